package model

import (
	"time"

	"github.com/google/uuid"
)

// ModuleStatus enumerates the possible states of a training module.
type ModuleStatus string

const (
	ModuleStatusDraft     ModuleStatus = "DRAFT"
	ModuleStatusPublished ModuleStatus = "PUBLISHED"
	ModuleStatusArchived  ModuleStatus = "ARCHIVED"
)

// TrainingModule represents a procedural training module a trainee can be
// certified on. Scenario is the free-text procedure description fed into
// question templates and generative prompts; Vocabulary is the expected
// competency vocabulary used by the heuristic scorer.
type TrainingModule struct {
	ID         uuid.UUID    `json:"id"`
	Title      string       `json:"title"`
	Scenario   string       `json:"scenario"`
	Vocabulary []string     `json:"vocabulary"`
	AuthorID   int          `json:"author_id"`
	Status     ModuleStatus `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// Subtopic is one unit of module content a trainee works through.
type Subtopic struct {
	ID       uuid.UUID `json:"id"`
	ModuleID uuid.UUID `json:"module_id"`
	Title    string    `json:"title"`
	OrderNum int       `json:"order_num"`
}

// Quiz is a knowledge check attached to a module. A trainee must pass every
// quiz (or complete every subtopic) before starting voice certification.
type Quiz struct {
	ID           uuid.UUID `json:"id"`
	ModuleID     uuid.UUID `json:"module_id"`
	Title        string    `json:"title"`
	PassingScore int       `json:"passing_score"`
}

// QuizAttempt records one trainee attempt against a quiz. Score is a
// percentage in [0,100].
type QuizAttempt struct {
	ID        uuid.UUID `json:"id"`
	QuizID    uuid.UUID `json:"quiz_id"`
	TraineeID int       `json:"trainee_id"`
	Score     float64   `json:"score"`
	Passed    bool      `json:"passed"`
	CreatedAt time.Time `json:"created_at"`
}

// SubtopicCompletion marks a subtopic as finished by a trainee.
type SubtopicCompletion struct {
	SubtopicID  uuid.UUID `json:"subtopic_id"`
	TraineeID   int       `json:"trainee_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// CreateModuleRequest is the payload for creating a training module.
type CreateModuleRequest struct {
	Title      string   `json:"title" binding:"required,min=3,max=255"`
	Scenario   string   `json:"scenario" binding:"required,min=10"`
	Vocabulary []string `json:"vocabulary" binding:"omitempty,dive,min=1"`
}

// RecordQuizAttemptRequest is the payload for recording a quiz attempt.
type RecordQuizAttemptRequest struct {
	QuizID uuid.UUID `json:"quiz_id" binding:"required"`
	Score  float64   `json:"score" binding:"min=0,max=100"`
}
