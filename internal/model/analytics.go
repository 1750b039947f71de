package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Analytics event types enqueued during a certification session.
const (
	AnalyticsEventSessionStarted    = "session_started"
	AnalyticsEventResponseScored    = "response_scored"
	AnalyticsEventSessionCompleted  = "session_completed"
	AnalyticsEventProviderFellBack  = "provider_fell_back"
	AnalyticsEventTranscriptionFail = "transcription_failed"
)

// AnalyticsEvent is one queued certification analytics record. Events are
// pushed to Redis during a session and flushed to Postgres in batches by the
// analytics worker.
type AnalyticsEvent struct {
	SessionID uuid.UUID       `json:"session_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at,omitempty"`
}
