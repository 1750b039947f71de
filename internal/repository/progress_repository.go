package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/certivox/certivox-backend/internal/model"
)

// ProgressRepository handles subtopic completions and quiz attempts — the
// data the eligibility and difficulty calculations are built on.
type ProgressRepository struct {
	pool *pgxpool.Pool
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(pool *pgxpool.Pool) *ProgressRepository {
	return &ProgressRepository{pool: pool}
}

// MarkSubtopicComplete records a completion. Re-completing is a no-op.
func (r *ProgressRepository) MarkSubtopicComplete(ctx context.Context, subtopicID uuid.UUID, traineeID int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO subtopic_completions (subtopic_id, trainee_id)
		 VALUES ($1, $2)
		 ON CONFLICT (subtopic_id, trainee_id) DO NOTHING`,
		subtopicID, traineeID)
	return err
}

// CountCompletedSubtopics returns how many of a module's subtopics a trainee
// has completed.
func (r *ProgressRepository) CountCompletedSubtopics(ctx context.Context, moduleID uuid.UUID, traineeID int) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM subtopic_completions sc
		 JOIN subtopics s ON sc.subtopic_id = s.id
		 WHERE s.module_id = $1 AND sc.trainee_id = $2`,
		moduleID, traineeID,
	).Scan(&count)
	return count, err
}

// RecordQuizAttempt inserts a quiz attempt. passed is derived by the caller
// from the quiz's passing score.
func (r *ProgressRepository) RecordQuizAttempt(ctx context.Context, a *model.QuizAttempt) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO quiz_attempts (quiz_id, trainee_id, score, passed)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		a.QuizID, a.TraineeID, a.Score, a.Passed,
	).Scan(&a.ID, &a.CreatedAt)
}

// LatestPassingAttempts returns, for each quiz of the module the trainee has
// passed, the most recent passing attempt. Quizzes never passed contribute
// no row.
func (r *ProgressRepository) LatestPassingAttempts(ctx context.Context, moduleID uuid.UUID, traineeID int) ([]model.QuizAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT ON (qa.quiz_id)
		        qa.id, qa.quiz_id, qa.trainee_id, qa.score, qa.passed, qa.created_at
		 FROM quiz_attempts qa
		 JOIN quizzes q ON qa.quiz_id = q.id
		 WHERE q.module_id = $1 AND qa.trainee_id = $2 AND qa.passed
		 ORDER BY qa.quiz_id, qa.created_at DESC`,
		moduleID, traineeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.QuizAttempt
	for rows.Next() {
		var a model.QuizAttempt
		if err := rows.Scan(&a.ID, &a.QuizID, &a.TraineeID, &a.Score, &a.Passed, &a.CreatedAt); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// CompletionPercent returns the trainee's subtopic completion percentage for
// a module, or 0 when the module has no subtopics.
func (r *ProgressRepository) CompletionPercent(ctx context.Context, moduleID uuid.UUID, traineeID int) (float64, error) {
	var total, completed int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(sc.trainee_id)
		 FROM subtopics s
		 LEFT JOIN subtopic_completions sc
		        ON sc.subtopic_id = s.id AND sc.trainee_id = $2
		 WHERE s.module_id = $1`,
		moduleID, traineeID,
	).Scan(&total, &completed)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	return 100 * float64(completed) / float64(total), nil
}
