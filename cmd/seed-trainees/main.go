package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/certivox/certivox-backend/internal/config"
	"github.com/certivox/certivox-backend/internal/database"
	"github.com/certivox/certivox-backend/internal/logger"
	"github.com/certivox/certivox-backend/internal/model"
	"github.com/certivox/certivox-backend/internal/repository"
)

const traineeCount = 20

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	traineeRepo := repository.NewTraineeRepository(pool)
	moduleRepo := repository.NewModuleRepository(pool)

	fmt.Printf("=== Seeding %d Trainees + Demo Module ===\n", traineeCount)

	// All seeded accounts share one password, hashed once.
	hash, err := bcrypt.GenerateFromPassword([]byte("trainee123"), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash seed password")
	}

	created := 0
	for i := 1; i <= traineeCount; i++ {
		t := &model.Trainee{
			Email:        fmt.Sprintf("trainee%02d@certivox.dev", i),
			Name:         fmt.Sprintf("Trainee %02d", i),
			PasswordHash: string(hash),
		}
		if err := traineeRepo.Create(ctx, t); err != nil {
			fmt.Printf("Skipping %s: %v\n", t.Email, err)
			continue
		}
		created++
	}
	fmt.Printf("Created %d trainees (password: trainee123)\n", created)

	// Demo module: reused across runs if it already exists.
	var moduleID string
	err = pool.QueryRow(ctx,
		`SELECT id FROM training_modules WHERE title = $1`,
		"Forklift Pre-Operation Inspection",
	).Scan(&moduleID)
	if err != nil && err != pgx.ErrNoRows {
		log.Fatal().Err(err).Msg("Failed to check for existing demo module")
	}
	if err == nil {
		fmt.Printf("Demo module already exists (ID: %s)\n", moduleID)
		return
	}

	demo := &model.TrainingModule{
		Title: "Forklift Pre-Operation Inspection",
		Scenario: "You are about to operate a counterbalance forklift at the start of " +
			"a shift. Walk through the full pre-operation inspection: fluid levels, " +
			"tires, forks, mast, overhead guard, seatbelt, horn, lights, and brakes. " +
			"Any defect must be tagged out and reported before the truck is used.",
		Vocabulary: []string{
			"hydraulic", "mast", "counterweight", "load capacity", "tag out",
			"overhead guard", "stability triangle", "pre-operation", "defect", "LPG",
		},
		AuthorID: 1,
	}
	if err := moduleRepo.Create(ctx, demo); err != nil {
		log.Fatal().Err(err).Msg("Failed to create demo module (does admin ID 1 exist?)")
	}

	subtopics := []string{
		"Inspection Checklist Overview",
		"Fluid and Tire Checks",
		"Mast, Forks and Load Handling",
		"Operational Safety Checks",
	}
	for i, title := range subtopics {
		if _, err := pool.Exec(ctx,
			`INSERT INTO subtopics (module_id, title, order_num) VALUES ($1, $2, $3)`,
			demo.ID, title, i+1,
		); err != nil {
			log.Fatal().Err(err).Msg("Failed to insert subtopic")
		}
	}

	quizzes := []struct {
		title   string
		passing int
	}{
		{"Checklist Knowledge Check", 70},
		{"Safety Procedures Quiz", 80},
	}
	for _, q := range quizzes {
		if _, err := pool.Exec(ctx,
			`INSERT INTO quizzes (module_id, title, passing_score) VALUES ($1, $2, $3)`,
			demo.ID, q.title, q.passing,
		); err != nil {
			log.Fatal().Err(err).Msg("Failed to insert quiz")
		}
	}

	if err := moduleRepo.UpdateStatus(ctx, demo.ID, model.ModuleStatusPublished); err != nil {
		log.Fatal().Err(err).Msg("Failed to publish demo module")
	}

	fmt.Printf("Created demo module %s with %d subtopics and %d quizzes (PUBLISHED)\n",
		demo.ID, len(subtopics), len(quizzes))
}
