package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/certivox/certivox-backend/internal/model"
	"github.com/certivox/certivox-backend/internal/repository"
)

// ErrModuleNotFound is returned for unknown module or quiz IDs.
var ErrModuleNotFound = errors.New("module not found")

// ModuleService handles the training module catalog and trainee progress.
type ModuleService struct {
	moduleRepo   *repository.ModuleRepository
	progressRepo *repository.ProgressRepository
}

// NewModuleService creates a new ModuleService.
func NewModuleService(moduleRepo *repository.ModuleRepository, progressRepo *repository.ProgressRepository) *ModuleService {
	return &ModuleService{moduleRepo: moduleRepo, progressRepo: progressRepo}
}

// ModuleProgress is a catalog entry overlaid with the trainee's progress.
type ModuleProgress struct {
	model.TrainingModule
	CompletedSubtopics int     `json:"completed_subtopics"`
	TotalSubtopics     int     `json:"total_subtopics"`
	CompletionPercent  float64 `json:"completion_percent"`
}

// Catalog returns all published modules with the trainee's completion overlay.
func (s *ModuleService) Catalog(ctx context.Context, traineeID int) ([]ModuleProgress, error) {
	modules, err := s.moduleRepo.ListPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}

	catalog := make([]ModuleProgress, 0, len(modules))
	for _, m := range modules {
		subtopics, err := s.moduleRepo.ListSubtopics(ctx, m.ID)
		if err != nil {
			return nil, fmt.Errorf("list subtopics: %w", err)
		}
		completed, err := s.progressRepo.CountCompletedSubtopics(ctx, m.ID, traineeID)
		if err != nil {
			return nil, fmt.Errorf("count completions: %w", err)
		}

		entry := ModuleProgress{
			TrainingModule:     m,
			CompletedSubtopics: completed,
			TotalSubtopics:     len(subtopics),
		}
		if len(subtopics) > 0 {
			entry.CompletionPercent = 100 * float64(completed) / float64(len(subtopics))
		}
		catalog = append(catalog, entry)
	}
	return catalog, nil
}

// GetModule retrieves a published module with its subtopics and quizzes.
func (s *ModuleService) GetModule(ctx context.Context, moduleID uuid.UUID) (*model.TrainingModule, []model.Subtopic, []model.Quiz, error) {
	module, err := s.moduleRepo.GetByID(ctx, moduleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, nil, ErrModuleNotFound
		}
		return nil, nil, nil, fmt.Errorf("get module: %w", err)
	}

	subtopics, err := s.moduleRepo.ListSubtopics(ctx, moduleID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("list subtopics: %w", err)
	}
	quizzes, err := s.moduleRepo.ListQuizzes(ctx, moduleID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("list quizzes: %w", err)
	}
	return module, subtopics, quizzes, nil
}

// CreateModule creates a new module in DRAFT status.
func (s *ModuleService) CreateModule(ctx context.Context, authorID int, req *model.CreateModuleRequest) (*model.TrainingModule, error) {
	module := &model.TrainingModule{
		Title:      req.Title,
		Scenario:   req.Scenario,
		Vocabulary: req.Vocabulary,
		AuthorID:   authorID,
	}
	if module.Vocabulary == nil {
		module.Vocabulary = []string{}
	}
	if err := s.moduleRepo.Create(ctx, module); err != nil {
		return nil, fmt.Errorf("create module: %w", err)
	}
	return module, nil
}

// SetModuleStatus moves a module between DRAFT, PUBLISHED and ARCHIVED.
func (s *ModuleService) SetModuleStatus(ctx context.Context, moduleID uuid.UUID, status model.ModuleStatus) error {
	if _, err := s.moduleRepo.GetByID(ctx, moduleID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrModuleNotFound
		}
		return fmt.Errorf("get module: %w", err)
	}
	return s.moduleRepo.UpdateStatus(ctx, moduleID, status)
}

// CompleteSubtopic marks a subtopic as done for a trainee. Idempotent.
func (s *ModuleService) CompleteSubtopic(ctx context.Context, subtopicID uuid.UUID, traineeID int) error {
	return s.progressRepo.MarkSubtopicComplete(ctx, subtopicID, traineeID)
}

// RecordQuizAttempt records a quiz attempt, deriving pass/fail from the
// quiz's passing score.
func (s *ModuleService) RecordQuizAttempt(ctx context.Context, traineeID int, req *model.RecordQuizAttemptRequest) (*model.QuizAttempt, error) {
	quiz, err := s.moduleRepo.GetQuiz(ctx, req.QuizID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrModuleNotFound
		}
		return nil, fmt.Errorf("get quiz: %w", err)
	}

	attempt := &model.QuizAttempt{
		QuizID:    quiz.ID,
		TraineeID: traineeID,
		Score:     req.Score,
		Passed:    req.Score >= float64(quiz.PassingScore),
	}
	if err := s.progressRepo.RecordQuizAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("record attempt: %w", err)
	}
	return attempt, nil
}
