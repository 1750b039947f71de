package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/certivox/certivox-backend/internal/config"
	"github.com/certivox/certivox-backend/internal/model"
	"github.com/certivox/certivox-backend/internal/repository"
)

// Domain errors surfaced to handlers. Everything else stays inside the
// fallback chains.
var (
	ErrIneligible         = errors.New("trainee is not eligible for certification")
	ErrSessionTerminal    = errors.New("certification session already finished")
	ErrNoActiveSession    = errors.New("no active certification session")
	ErrTranscription      = errors.New("could not transcribe the response")
	ErrEmptyResponse      = errors.New("no transcript or audio provided")
	ErrNotCertified       = errors.New("no completed certification for this module")
	ErrModuleNotPublished = errors.New("module is not published")
)

// IneligibleError carries the structured eligibility breakdown to the caller.
type IneligibleError struct {
	Result *model.EligibilityResult
}

func (e *IneligibleError) Error() string { return ErrIneligible.Error() }

func (e *IneligibleError) Unwrap() error { return ErrIneligible }

// CertificationService owns the session state machine: it gates starts on
// eligibility, drives the question/response loop, and finalizes the verdict.
type CertificationService struct {
	sessionRepo *repository.SessionRepository
	moduleRepo  *repository.ModuleRepository
	eligibility *EligibilityService
	selector    *SelectorService
	scorer      *ScoringService
	speech      *SpeechService
	rdb         *redis.Client
	totalQs     int
	log         zerolog.Logger
}

// NewCertificationService creates a new CertificationService. totalQuestions
// is the number of questions per session.
func NewCertificationService(
	sessionRepo *repository.SessionRepository,
	moduleRepo *repository.ModuleRepository,
	eligibility *EligibilityService,
	selector *SelectorService,
	scorer *ScoringService,
	speech *SpeechService,
	rdb *redis.Client,
	totalQuestions int,
	log zerolog.Logger,
) *CertificationService {
	return &CertificationService{
		sessionRepo: sessionRepo,
		moduleRepo:  moduleRepo,
		eligibility: eligibility,
		selector:    selector,
		scorer:      scorer,
		speech:      speech,
		rdb:         rdb,
		totalQs:     totalQuestions,
		log:         log.With().Str("service", "certification").Logger(),
	}
}

// StartResult is returned from Start.
type StartResult struct {
	SessionID          uuid.UUID             `json:"session_id"`
	AdaptiveDifficulty model.Difficulty      `json:"adaptive_difficulty"`
	PassingThreshold   int                   `json:"passing_threshold"`
	Resumed            bool                  `json:"resumed"`
	Question           *model.QuestionPrompt `json:"question"`
}

// Start begins a certification session, or resumes the trainee's existing
// in-progress one. Concurrent starts for the same trainee and module collapse
// to a single session.
func (s *CertificationService) Start(ctx context.Context, traineeID int, moduleID uuid.UUID) (*StartResult, error) {
	module, err := s.moduleRepo.GetByID(ctx, moduleID)
	if err != nil {
		return nil, fmt.Errorf("get module: %w", err)
	}
	if module.Status != model.ModuleStatusPublished {
		return nil, ErrModuleNotPublished
	}

	existing, err := s.sessionRepo.GetByTraineeAndModule(ctx, traineeID, moduleID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check existing session: %w", err)
	}
	if existing != nil {
		return s.resume(ctx, module, existing)
	}

	eligibility, err := s.eligibility.Evaluate(ctx, moduleID, traineeID)
	if err != nil {
		return nil, fmt.Errorf("evaluate eligibility: %w", err)
	}
	if !eligibility.Eligible {
		return nil, &IneligibleError{Result: eligibility}
	}

	placement, err := s.eligibility.Placement(ctx, moduleID, traineeID)
	if err != nil {
		return nil, fmt.Errorf("compute placement: %w", err)
	}

	session := &model.CertSession{
		TraineeID:          traineeID,
		ModuleID:           moduleID,
		Status:             model.CertStatusInProgress,
		AdaptiveDifficulty: placement.Difficulty,
		PassingThreshold:   placement.PassingThreshold,
		AverageQuizScore:   placement.AverageQuizScore,
		StartedAt:          time.Now(),
	}
	session.Questions = []model.Question{
		s.selector.NextQuestion(ctx, module, session, 0),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Concurrent start: reuse the row the other request created.
			existing, fetchErr := s.sessionRepo.GetByTraineeAndModule(ctx, traineeID, moduleID)
			if fetchErr != nil {
				return nil, fmt.Errorf("concurrent start detected, but fetch failed: %w", fetchErr)
			}
			return s.resume(ctx, module, existing)
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	startKey := config.CacheKey.CertSessionStartKey(moduleID.String(), traineeID)
	if err := s.rdb.Set(ctx, startKey, session.StartedAt.Unix(), 0).Err(); err != nil {
		s.log.Warn().Err(err).Msg("failed to cache session start time")
	}

	s.publishMonitorEvent(ctx, session, "session_started", nil)
	s.enqueueAnalytics(ctx, session.ID, model.AnalyticsEventSessionStarted, map[string]any{
		"trainee_id":         traineeID,
		"module_id":          moduleID,
		"difficulty":         placement.Difficulty,
		"passing_threshold":  placement.PassingThreshold,
		"average_quiz_score": placement.AverageQuizScore,
	})

	return &StartResult{
		SessionID:          session.ID,
		AdaptiveDifficulty: session.AdaptiveDifficulty,
		PassingThreshold:   session.PassingThreshold,
		Question:           s.prompt(ctx, session, 0),
	}, nil
}

func (s *CertificationService) resume(ctx context.Context, module *model.TrainingModule, session *model.CertSession) (*StartResult, error) {
	if session.Status.Terminal() {
		return nil, ErrSessionTerminal
	}

	// Self-heal the cached start time for resumed sessions.
	startKey := config.CacheKey.CertSessionStartKey(session.ModuleID.String(), session.TraineeID)
	_ = s.rdb.Set(ctx, startKey, session.StartedAt.Unix(), 0)

	if classifyTurn(session, s.totalQs) == turnHeal {
		if err := s.healQuestion(ctx, module, session); err != nil {
			return nil, err
		}
	}

	return &StartResult{
		SessionID:          session.ID,
		AdaptiveDifficulty: session.AdaptiveDifficulty,
		PassingThreshold:   session.PassingThreshold,
		Resumed:            true,
		Question:           s.prompt(ctx, session, session.CurrentQuestionIndex),
	}, nil
}

// prompt packages a question for delivery, attaching synthesized audio when
// the synthesis chain is up and asking for client-side speech otherwise.
func (s *CertificationService) prompt(ctx context.Context, session *model.CertSession, index int) *model.QuestionPrompt {
	if index < 0 || index >= len(session.Questions) {
		return nil
	}
	q := session.Questions[index]

	prompt := &model.QuestionPrompt{
		Number:   index + 1,
		Total:    s.totalQs,
		Question: q,
	}
	if audio, ok := s.speech.Synthesize(ctx, q.Text); ok {
		prompt.AudioBase64 = base64.StdEncoding.EncodeToString(audio)
	} else {
		prompt.ClientTTS = true
		s.enqueueAnalytics(ctx, session.ID, model.AnalyticsEventProviderFellBack, map[string]any{
			"concern":        "synthesis",
			"question_index": index,
		})
	}
	return prompt
}

// turnState classifies what a response submission should do with the session.
type turnState int

const (
	// turnAsk: the current question exists and awaits an answer.
	turnAsk turnState = iota
	// turnHeal: a response was recorded but the next question was never
	// selected (the previous request died in between). The missing question
	// must be selected before the session can continue.
	turnHeal
	// turnFinished: every question in the budget has been answered.
	turnFinished
)

// classifyTurn inspects the session shape. A nil current question alone does
// not mean the session is finished: the same shape occurs in the gap between
// recording a response and selecting the next question, and finalizing there
// would drop the unanswered remainder of the question budget.
func classifyTurn(session *model.CertSession, totalQuestions int) turnState {
	if session.CurrentQuestion() != nil {
		return turnAsk
	}
	if session.CurrentQuestionIndex >= totalQuestions {
		return turnFinished
	}
	return turnHeal
}

// healQuestion selects and persists the question missing at the session's
// current index.
func (s *CertificationService) healQuestion(ctx context.Context, module *model.TrainingModule, session *model.CertSession) error {
	q := s.selector.NextQuestion(ctx, module, session, session.CurrentQuestionIndex)
	if err := s.sessionRepo.AppendQuestion(ctx, session.ID, q); err != nil {
		return fmt.Errorf("append question: %w", err)
	}
	session.Questions = append(session.Questions, q)
	return nil
}

// SubmitResponse scores the trainee's answer to the current question and
// either advances to the next question or finalizes the session. A failed
// transcription keeps the trainee on the same question.
func (s *CertificationService) SubmitResponse(ctx context.Context, traineeID int, moduleID uuid.UUID, req *model.SubmitResponseRequest) (*model.TurnResult, error) {
	session, err := s.sessionRepo.GetByTraineeAndModule(ctx, traineeID, moduleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActiveSession
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session.Status.Terminal() {
		return nil, ErrSessionTerminal
	}

	module, err := s.moduleRepo.GetByID(ctx, moduleID)
	if err != nil {
		return nil, fmt.Errorf("get module: %w", err)
	}

	switch classifyTurn(session, s.totalQs) {
	case turnFinished:
		// All questions answered but never finalized; finish now.
		final, err := s.finalize(ctx, session)
		if err != nil {
			return nil, err
		}
		return &model.TurnResult{Final: final}, nil
	case turnHeal:
		// The answer being retried duplicates the response already recorded
		// last turn, so re-deliver the healed question instead of scoring it
		// again.
		if err := s.healQuestion(ctx, module, session); err != nil {
			return nil, err
		}
		return &model.TurnResult{
			NextQuestion: s.prompt(ctx, session, session.CurrentQuestionIndex),
		}, nil
	}
	question := session.CurrentQuestion()

	transcript := strings.TrimSpace(req.Transcript)
	if transcript == "" {
		if req.AudioBase64 == "" {
			return nil, ErrEmptyResponse
		}
		audio, err := base64.StdEncoding.DecodeString(req.AudioBase64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid audio encoding", ErrTranscription)
		}
		transcript, err = s.speech.Transcribe(ctx, audio, req.AudioMimeType)
		if err != nil {
			s.enqueueAnalytics(ctx, session.ID, model.AnalyticsEventTranscriptionFail, map[string]any{
				"question_index": session.CurrentQuestionIndex,
			})
			return nil, fmt.Errorf("%w: %v", ErrTranscription, err)
		}
	}

	score, competency, feedback := s.scorer.Score(ctx, *question, transcript, session.Responses, module.Vocabulary)
	resp := model.Response{
		QuestionID:          question.ID,
		Transcript:          transcript,
		Score:               score,
		CompetencyScores:    competency,
		Feedback:            feedback,
		SpeakingTimeSeconds: req.SpeakingTimeSeconds,
		CreatedAt:           time.Now(),
	}

	if err := s.sessionRepo.AppendResponse(ctx, session.ID, session.CurrentQuestionIndex, resp); err != nil {
		return nil, fmt.Errorf("append response: %w", err)
	}
	session.Responses = append(session.Responses, resp)
	session.CurrentQuestionIndex++

	s.publishMonitorEvent(ctx, session, "response_scored", map[string]any{
		"question_index": session.CurrentQuestionIndex - 1,
		"score":          score,
	})
	s.enqueueAnalytics(ctx, session.ID, model.AnalyticsEventResponseScored, map[string]any{
		"question_index":    session.CurrentQuestionIndex - 1,
		"question_source":   question.Source,
		"competency_area":   question.CompetencyArea,
		"score":             score,
		"speaking_time_sec": req.SpeakingTimeSeconds,
	})

	result := &model.TurnResult{Response: resp}

	if session.CurrentQuestionIndex >= s.totalQs {
		final, err := s.finalize(ctx, session)
		if err != nil {
			return nil, err
		}
		result.Final = final
		return result, nil
	}

	next := s.selector.NextQuestion(ctx, module, session, session.CurrentQuestionIndex)
	if err := s.sessionRepo.AppendQuestion(ctx, session.ID, next); err != nil {
		return nil, fmt.Errorf("append question: %w", err)
	}
	session.Questions = append(session.Questions, next)
	result.NextQuestion = s.prompt(ctx, session, session.CurrentQuestionIndex)
	return result, nil
}

// OverallScore computes the points-weighted percentage over the answered
// questions, bounded in [0,100].
func OverallScore(questions []model.Question, responses []model.Response) int {
	var earned, possible int
	for i, r := range responses {
		if i >= len(questions) {
			break
		}
		earned += r.Score
		possible += questions[i].MaxScore
	}
	if possible == 0 {
		return 0
	}
	score := int(math.Round(100 * float64(earned) / float64(possible)))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func (s *CertificationService) finalize(ctx context.Context, session *model.CertSession) (*model.FinalResult, error) {
	overall := OverallScore(session.Questions, session.Responses)
	status := model.CertStatusFailed
	if overall >= session.PassingThreshold {
		status = model.CertStatusCompleted
	}

	if err := s.sessionRepo.Finalize(ctx, session.ID, status, overall); err != nil {
		return nil, fmt.Errorf("finalize session: %w", err)
	}
	now := time.Now()
	session.Status = status
	session.OverallScore = &overall
	session.CompletedAt = &now

	s.publishMonitorEvent(ctx, session, "session_finished", map[string]any{
		"overall_score": overall,
		"status":        status,
	})
	s.enqueueAnalytics(ctx, session.ID, model.AnalyticsEventSessionCompleted, map[string]any{
		"overall_score":     overall,
		"status":            status,
		"passing_threshold": session.PassingThreshold,
		"responses":         len(session.Responses),
	})

	return &model.FinalResult{
		Passed:           status == model.CertStatusCompleted,
		OverallScore:     overall,
		PassingThreshold: session.PassingThreshold,
		ElapsedSeconds:   now.Sub(session.StartedAt).Seconds(),
		Status:           status,
	}, nil
}

// Complete finalizes the trainee's session. Terminal sessions return their
// stored result unchanged, so calling this twice is safe.
func (s *CertificationService) Complete(ctx context.Context, traineeID int, moduleID uuid.UUID) (*model.FinalResult, error) {
	session, err := s.sessionRepo.GetByTraineeAndModule(ctx, traineeID, moduleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActiveSession
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	if session.Status.Terminal() {
		overall := 0
		if session.OverallScore != nil {
			overall = *session.OverallScore
		}
		elapsed := 0.0
		if session.CompletedAt != nil {
			elapsed = session.CompletedAt.Sub(session.StartedAt).Seconds()
		}
		return &model.FinalResult{
			Passed:           session.Status == model.CertStatusCompleted,
			OverallScore:     overall,
			PassingThreshold: session.PassingThreshold,
			ElapsedSeconds:   elapsed,
			Status:           session.Status,
		}, nil
	}

	// Abandoned sessions finalize over whatever was answered; zero responses
	// scores zero and fails.
	return s.finalize(ctx, session)
}

// GetSession returns the trainee's session for a module.
func (s *CertificationService) GetSession(ctx context.Context, traineeID int, moduleID uuid.UUID) (*model.CertSession, error) {
	session, err := s.sessionRepo.GetByTraineeAndModule(ctx, traineeID, moduleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActiveSession
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// GetCertificate returns the certificate for a COMPLETED session.
func (s *CertificationService) GetCertificate(ctx context.Context, traineeID int, moduleID uuid.UUID) (*model.Certificate, error) {
	cert, err := s.sessionRepo.GetCertificate(ctx, traineeID, moduleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotCertified
		}
		return nil, fmt.Errorf("get certificate: %w", err)
	}
	cert.VerificationCode = VerificationCode(cert.SessionID)
	return cert, nil
}

// VerificationCode derives the printable certificate code from the session
// identity, so it can be recomputed for verification without extra storage.
func VerificationCode(sessionID uuid.UUID) string {
	sum := sha256.Sum256([]byte(sessionID.String()))
	return strings.ToUpper(hex.EncodeToString(sum[:6]))
}

// publishMonitorEvent pushes a live progress event to the module's monitor
// channel. Best effort; monitoring must never fail the main flow.
func (s *CertificationService) publishMonitorEvent(ctx context.Context, session *model.CertSession, event string, extra map[string]any) {
	payload := map[string]any{
		"event":      event,
		"session_id": session.ID,
		"trainee_id": session.TraineeID,
		"module_id":  session.ModuleID,
		"status":     session.Status,
		"sent_at":    time.Now().Unix(),
	}
	for k, v := range extra {
		payload[k] = v
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	channel := config.CacheKey.CertMonitorChannel(session.ModuleID.String())
	if err := s.rdb.Publish(ctx, channel, data).Err(); err != nil {
		s.log.Warn().Err(err).Str("channel", channel).Msg("failed to publish monitor event")
	}
}

// enqueueAnalytics pushes an event onto the worker queue. Best effort.
func (s *CertificationService) enqueueAnalytics(ctx context.Context, sessionID uuid.UUID, eventType string, payload map[string]any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	event := model.AnalyticsEvent{
		SessionID: sessionID,
		EventType: eventType,
		Payload:   raw,
		CreatedAt: time.Now(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := s.rdb.LPush(ctx, config.WorkerKey.AnalyticsEventsQueue, data).Err(); err != nil {
		s.log.Warn().Err(err).Msg("failed to enqueue analytics event")
	}
}
