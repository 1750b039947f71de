package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/certivox/certivox-backend/internal/model"
)

// SessionRepository handles certification session data access. Questions and
// responses are stored as JSONB documents on the session row, so a session is
// always read and advanced as a single unit.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `id, trainee_id, module_id, status, adaptive_difficulty,
	 passing_threshold, average_quiz_score, questions, current_question_index,
	 responses, overall_score, started_at, completed_at`

func scanSession(row pgx.Row) (*model.CertSession, error) {
	s := &model.CertSession{}
	var questions, responses []byte
	err := row.Scan(
		&s.ID, &s.TraineeID, &s.ModuleID, &s.Status, &s.AdaptiveDifficulty,
		&s.PassingThreshold, &s.AverageQuizScore, &questions, &s.CurrentQuestionIndex,
		&responses, &s.OverallScore, &s.StartedAt, &s.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(questions, &s.Questions); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(responses, &s.Responses); err != nil {
		return nil, err
	}
	return s, nil
}

// GetByTraineeAndModule retrieves the session for a trainee-module combination.
func (r *SessionRepository) GetByTraineeAndModule(ctx context.Context, traineeID int, moduleID uuid.UUID) (*model.CertSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM cert_sessions
		 WHERE trainee_id = $1 AND module_id = $2`, traineeID, moduleID,
	))
}

// GetByID retrieves a session by its primary key.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.CertSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM cert_sessions
		 WHERE id = $1`, id,
	))
}

// Create inserts a new session (trainee starts certification). The unique
// constraint on (trainee_id, module_id) makes concurrent starts collapse to
// one row; on conflict no row is returned and the caller should refetch.
func (r *SessionRepository) Create(ctx context.Context, s *model.CertSession) error {
	questions, err := json.Marshal(s.Questions)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO cert_sessions
		   (trainee_id, module_id, status, adaptive_difficulty, passing_threshold,
		    average_quiz_score, questions, current_question_index, responses)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 0, '[]'::jsonb)
		 ON CONFLICT (trainee_id, module_id) DO NOTHING
		 RETURNING id, started_at`,
		s.TraineeID, s.ModuleID, model.CertStatusInProgress, s.AdaptiveDifficulty,
		s.PassingThreshold, s.AverageQuizScore, questions,
	).Scan(&s.ID, &s.StartedAt)
}

// AppendResponse records a scored response and advances the question pointer.
// The index guard keeps a duplicate submission from advancing twice.
func (r *SessionRepository) AppendResponse(ctx context.Context, sessionID uuid.UUID, index int, resp model.Response) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE cert_sessions
		 SET responses = responses || $1::jsonb,
		     current_question_index = current_question_index + 1
		 WHERE id = $2 AND current_question_index = $3 AND status = $4`,
		payload, sessionID, index, model.CertStatusInProgress)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.New("session advanced concurrently")
	}
	return nil
}

// AppendQuestion adds the next selected question to the session's ordered
// question list.
func (r *SessionRepository) AppendQuestion(ctx context.Context, sessionID uuid.UUID, q model.Question) error {
	payload, err := json.Marshal(q)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`UPDATE cert_sessions
		 SET questions = questions || $1::jsonb
		 WHERE id = $2 AND status = $3`,
		payload, sessionID, model.CertStatusInProgress)
	return err
}

// Finalize moves a session into a terminal state with its overall score.
func (r *SessionRepository) Finalize(ctx context.Context, sessionID uuid.UUID, status model.CertStatus, overallScore int) error {
	now := time.Now()
	_, err := r.pool.Exec(ctx,
		`UPDATE cert_sessions
		 SET status = $1, overall_score = $2, completed_at = $3
		 WHERE id = $4 AND status = $5`,
		status, overallScore, now, sessionID, model.CertStatusInProgress)
	return err
}

// ListByTrainee retrieves all certification sessions for a trainee.
func (r *SessionRepository) ListByTrainee(ctx context.Context, traineeID int) ([]model.CertSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM cert_sessions
		 WHERE trainee_id = $1
		 ORDER BY started_at DESC`, traineeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.CertSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// GetCertificate returns certificate data for a completed session, joined with
// trainee and module names.
func (r *SessionRepository) GetCertificate(ctx context.Context, traineeID int, moduleID uuid.UUID) (*model.Certificate, error) {
	c := &model.Certificate{}
	err := r.pool.QueryRow(ctx,
		`SELECT cs.id, cs.trainee_id, t.name, cs.module_id, m.title,
		        cs.overall_score, cs.adaptive_difficulty, cs.completed_at
		 FROM cert_sessions cs
		 JOIN trainees t ON cs.trainee_id = t.id
		 JOIN training_modules m ON cs.module_id = m.id
		 WHERE cs.trainee_id = $1 AND cs.module_id = $2 AND cs.status = $3`,
		traineeID, moduleID, model.CertStatusCompleted,
	).Scan(&c.SessionID, &c.TraineeID, &c.TraineeName, &c.ModuleID, &c.ModuleTitle,
		&c.OverallScore, &c.Difficulty, &c.IssuedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}
