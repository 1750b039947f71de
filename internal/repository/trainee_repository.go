package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/certivox/certivox-backend/internal/model"
)

var ErrDuplicateEmail = errors.New("a user with this email already exists")

// TraineeRepository handles trainee data access.
type TraineeRepository struct {
	pool *pgxpool.Pool
}

// NewTraineeRepository creates a new TraineeRepository.
func NewTraineeRepository(pool *pgxpool.Pool) *TraineeRepository {
	return &TraineeRepository{pool: pool}
}

// GetByID retrieves a trainee by ID.
func (r *TraineeRepository) GetByID(ctx context.Context, id int) (*model.Trainee, error) {
	t := &model.Trainee{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, created_at, updated_at
		 FROM trainees WHERE id = $1`, id,
	).Scan(&t.ID, &t.Email, &t.Name, &t.PasswordHash, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetByEmail retrieves a trainee by their unique email.
func (r *TraineeRepository) GetByEmail(ctx context.Context, email string) (*model.Trainee, error) {
	t := &model.Trainee{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, created_at, updated_at
		 FROM trainees WHERE email = $1`, email,
	).Scan(&t.ID, &t.Email, &t.Name, &t.PasswordHash, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Create inserts a new trainee.
func (r *TraineeRepository) Create(ctx context.Context, t *model.Trainee) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO trainees (email, name, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		t.Email, t.Name, t.PasswordHash,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}
