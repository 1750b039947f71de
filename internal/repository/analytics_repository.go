package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/certivox/certivox-backend/internal/model"
)

// AnalyticsRepository persists certification analytics events flushed by the
// background worker.
type AnalyticsRepository struct {
	pool *pgxpool.Pool
}

// NewAnalyticsRepository creates a new AnalyticsRepository.
func NewAnalyticsRepository(pool *pgxpool.Pool) *AnalyticsRepository {
	return &AnalyticsRepository{pool: pool}
}

// BatchInsert writes a batch of events in one statement via UNNEST.
func (r *AnalyticsRepository) BatchInsert(ctx context.Context, events []model.AnalyticsEvent) error {
	if len(events) == 0 {
		return nil
	}

	sessionIDs := make([]string, len(events))
	eventTypes := make([]string, len(events))
	payloads := make([][]byte, len(events))
	for i, e := range events {
		sessionIDs[i] = e.SessionID.String()
		eventTypes[i] = e.EventType
		payloads[i] = e.Payload
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO analytics_events (session_id, event_type, payload)
		 SELECT * FROM UNNEST($1::uuid[], $2::text[], $3::jsonb[])`,
		sessionIDs, eventTypes, payloads)
	return err
}

// Insert writes a single event. Used as the fallback path when a batch write
// fails, so one malformed event cannot sink the whole batch.
func (r *AnalyticsRepository) Insert(ctx context.Context, e model.AnalyticsEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO analytics_events (session_id, event_type, payload)
		 VALUES ($1, $2, $3)`,
		e.SessionID, e.EventType, e.Payload)
	return err
}
