package model

import (
	"time"

	"github.com/google/uuid"
)

// CertStatus enumerates certification session states. Transitions are
// monotonic: NOT_STARTED → IN_PROGRESS → {COMPLETED, FAILED}.
type CertStatus string

const (
	CertStatusNotStarted CertStatus = "NOT_STARTED"
	CertStatusInProgress CertStatus = "IN_PROGRESS"
	CertStatusCompleted  CertStatus = "COMPLETED"
	CertStatusFailed     CertStatus = "FAILED"
)

// Terminal reports whether the status permits no further transitions.
func (s CertStatus) Terminal() bool {
	return s == CertStatusCompleted || s == CertStatusFailed
}

// Difficulty is the adaptive tier derived from prior quiz performance.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyNormal Difficulty = "NORMAL"
	DifficultyHard   Difficulty = "HARD"
)

// CompetencyArea is one of the fixed skill dimensions tracked per response.
type CompetencyArea string

const (
	CompetencyAccuracy       CompetencyArea = "accuracy"
	CompetencyApplication    CompetencyArea = "application"
	CompetencyCommunication  CompetencyArea = "communication"
	CompetencyProblemSolving CompetencyArea = "problem_solving"
	CompetencyCompleteness   CompetencyArea = "completeness"
)

// CompetencyPriority is the fixed tie-break order used when two areas share
// the lowest running mean. Earlier entries win.
var CompetencyPriority = []CompetencyArea{
	CompetencyAccuracy,
	CompetencyApplication,
	CompetencyCommunication,
	CompetencyProblemSolving,
	CompetencyCompleteness,
}

// NeutralCompetencyScore is assumed for areas with no observations yet, so
// unobserved areas are neither prioritized nor ignored by question selection.
const NeutralCompetencyScore = 5.0

// DefaultMaxScore is the point value of a question unless stated otherwise.
const DefaultMaxScore = 10

// QuestionSource records which selection tier produced a question.
type QuestionSource string

const (
	QuestionSourceTemplate  QuestionSource = "TEMPLATE"
	QuestionSourceGenerated QuestionSource = "GENERATED"
	QuestionSourceFallback  QuestionSource = "FALLBACK"
)

// ScoringCriteria describes the rubric bands used to grade a response.
type ScoringCriteria struct {
	Excellent string `json:"excellent"`
	Good      string `json:"good"`
	Adequate  string `json:"adequate"`
	Poor      string `json:"poor"`
}

// Question is one spoken examination question within a session.
type Question struct {
	ID              uuid.UUID       `json:"id"`
	Text            string          `json:"text"`
	CompetencyArea  CompetencyArea  `json:"competency_area"`
	Difficulty      Difficulty      `json:"difficulty"`
	MaxScore        int             `json:"max_score"`
	ScoringCriteria ScoringCriteria `json:"scoring_criteria"`
	Source          QuestionSource  `json:"source"`
}

// Response is a trainee's scored answer to one question. Insertion order is
// answer order; one response exists per answered question.
type Response struct {
	QuestionID          uuid.UUID              `json:"question_id"`
	Transcript          string                 `json:"transcript"`
	Score               int                    `json:"score"`
	CompetencyScores    map[CompetencyArea]int `json:"competency_scores"`
	Feedback            string                 `json:"feedback"`
	SpeakingTimeSeconds float64                `json:"speaking_time_seconds"`
	CreatedAt           time.Time              `json:"created_at"`
}

// CertSession is one certification attempt for a (trainee, module) pair.
// At most one non-terminal session exists per pair.
type CertSession struct {
	ID                   uuid.UUID  `json:"id"`
	TraineeID            int        `json:"trainee_id"`
	ModuleID             uuid.UUID  `json:"module_id"`
	Status               CertStatus `json:"status"`
	AdaptiveDifficulty   Difficulty `json:"adaptive_difficulty"`
	PassingThreshold     int        `json:"passing_threshold"`
	AverageQuizScore     float64    `json:"average_quiz_score"`
	Questions            []Question `json:"questions"`
	CurrentQuestionIndex int        `json:"current_question_index"`
	Responses            []Response `json:"responses"`
	OverallScore         *int       `json:"overall_score,omitempty"`
	StartedAt            time.Time  `json:"started_at"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
}

// CurrentQuestion returns the question awaiting an answer, or nil when the
// session has run out of questions.
func (s *CertSession) CurrentQuestion() *Question {
	if s.CurrentQuestionIndex < 0 || s.CurrentQuestionIndex >= len(s.Questions) {
		return nil
	}
	return &s.Questions[s.CurrentQuestionIndex]
}

// SubmitResponseRequest is the payload for answering the current question.
// Either a ready transcript (client-side speech recognition) or base64 audio
// for server-side transcription must be present.
type SubmitResponseRequest struct {
	Transcript          string  `json:"transcript" binding:"omitempty,max=20000"`
	AudioBase64         string  `json:"audio_base64" binding:"omitempty"`
	AudioMimeType       string  `json:"audio_mime_type" binding:"omitempty,max=100"`
	SpeakingTimeSeconds float64 `json:"speaking_time_seconds" binding:"min=0"`
}

// QuestionPrompt is a question prepared for delivery: text always, audio when
// synthesis succeeded. ClientTTS asks the client to voice the text itself.
type QuestionPrompt struct {
	Number      int      `json:"number"`
	Total       int      `json:"total"`
	Question    Question `json:"question"`
	AudioBase64 string   `json:"audio_base64,omitempty"`
	ClientTTS   bool     `json:"client_tts"`
}

// FinalResult is the terminal outcome of a certification session.
type FinalResult struct {
	Passed           bool       `json:"passed"`
	OverallScore     int        `json:"overall_score"`
	PassingThreshold int        `json:"passing_threshold"`
	ElapsedSeconds   float64    `json:"elapsed_seconds"`
	Status           CertStatus `json:"status"`
}

// TurnResult is returned from a response submission: either the next question
// prompt or, once the last question is answered, the final result.
type TurnResult struct {
	Response     Response        `json:"response"`
	NextQuestion *QuestionPrompt `json:"next_question,omitempty"`
	Final        *FinalResult    `json:"final,omitempty"`
}

// EligibilityResult explains whether a trainee may start certification.
type EligibilityResult struct {
	Eligible           bool   `json:"eligible"`
	Reason             string `json:"reason,omitempty"`
	CompletedSubtopics int    `json:"completed_subtopics"`
	TotalSubtopics     int    `json:"total_subtopics"`
	PassedQuizzes      int    `json:"passed_quizzes"`
	TotalQuizzes       int    `json:"total_quizzes"`
}

// Certificate is issued for COMPLETED sessions only.
type Certificate struct {
	SessionID        uuid.UUID  `json:"session_id"`
	TraineeID        int        `json:"trainee_id"`
	TraineeName      string     `json:"trainee_name"`
	ModuleID         uuid.UUID  `json:"module_id"`
	ModuleTitle      string     `json:"module_title"`
	OverallScore     int        `json:"overall_score"`
	Difficulty       Difficulty `json:"difficulty"`
	VerificationCode string     `json:"verification_code"`
	IssuedAt         time.Time  `json:"issued_at"`
}
