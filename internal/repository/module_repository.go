package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/certivox/certivox-backend/internal/model"
)

// ModuleRepository handles training module, subtopic, and quiz data access.
type ModuleRepository struct {
	pool *pgxpool.Pool
}

// NewModuleRepository creates a new ModuleRepository.
func NewModuleRepository(pool *pgxpool.Pool) *ModuleRepository {
	return &ModuleRepository{pool: pool}
}

// GetByID retrieves a training module by ID.
func (r *ModuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.TrainingModule, error) {
	m := &model.TrainingModule{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, scenario, vocabulary, author_id, status, created_at, updated_at
		 FROM training_modules WHERE id = $1`, id,
	).Scan(&m.ID, &m.Title, &m.Scenario, &m.Vocabulary, &m.AuthorID, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListPublished retrieves all PUBLISHED modules, newest first.
func (r *ModuleRepository) ListPublished(ctx context.Context) ([]model.TrainingModule, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, scenario, vocabulary, author_id, status, created_at, updated_at
		 FROM training_modules
		 WHERE status = $1
		 ORDER BY created_at DESC`, model.ModuleStatusPublished,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var modules []model.TrainingModule
	for rows.Next() {
		var m model.TrainingModule
		if err := rows.Scan(&m.ID, &m.Title, &m.Scenario, &m.Vocabulary, &m.AuthorID, &m.Status, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

// Create inserts a new training module in DRAFT status.
func (r *ModuleRepository) Create(ctx context.Context, m *model.TrainingModule) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO training_modules (title, scenario, vocabulary, author_id, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		m.Title, m.Scenario, m.Vocabulary, m.AuthorID, model.ModuleStatusDraft,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
}

// UpdateStatus moves a module between DRAFT/PUBLISHED/ARCHIVED.
func (r *ModuleRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ModuleStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE training_modules SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	return err
}

// ListSubtopics retrieves a module's subtopics in order.
func (r *ModuleRepository) ListSubtopics(ctx context.Context, moduleID uuid.UUID) ([]model.Subtopic, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, module_id, title, order_num
		 FROM subtopics WHERE module_id = $1
		 ORDER BY order_num ASC`, moduleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subtopics []model.Subtopic
	for rows.Next() {
		var s model.Subtopic
		if err := rows.Scan(&s.ID, &s.ModuleID, &s.Title, &s.OrderNum); err != nil {
			return nil, err
		}
		subtopics = append(subtopics, s)
	}
	return subtopics, rows.Err()
}

// GetQuiz retrieves a single quiz by ID.
func (r *ModuleRepository) GetQuiz(ctx context.Context, quizID uuid.UUID) (*model.Quiz, error) {
	q := &model.Quiz{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, module_id, title, passing_score
		 FROM quizzes WHERE id = $1`, quizID,
	).Scan(&q.ID, &q.ModuleID, &q.Title, &q.PassingScore)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// ListQuizzes retrieves a module's quizzes.
func (r *ModuleRepository) ListQuizzes(ctx context.Context, moduleID uuid.UUID) ([]model.Quiz, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, module_id, title, passing_score
		 FROM quizzes WHERE module_id = $1
		 ORDER BY title ASC`, moduleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quizzes []model.Quiz
	for rows.Next() {
		var q model.Quiz
		if err := rows.Scan(&q.ID, &q.ModuleID, &q.Title, &q.PassingScore); err != nil {
			return nil, err
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, rows.Err()
}
