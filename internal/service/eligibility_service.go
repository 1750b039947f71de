package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/certivox/certivox-backend/internal/model"
	"github.com/certivox/certivox-backend/internal/repository"
)

// Placement is the adaptive starting configuration for a session.
type Placement struct {
	Difficulty       model.Difficulty
	PassingThreshold int
	AverageQuizScore float64
}

// ComputePlacement derives the difficulty tier and passing threshold from the
// trainee's quiz history. avgSource is the mean of the latest passing attempt
// per quiz, or the completion percentage when no quiz was passed. Harder tiers
// get a more lenient threshold so pass rates stay comparable across tiers.
func ComputePlacement(passingAttempts []model.QuizAttempt, completionPercent float64) Placement {
	avg := completionPercent
	if len(passingAttempts) > 0 {
		var sum float64
		for _, a := range passingAttempts {
			sum += a.Score
		}
		avg = sum / float64(len(passingAttempts))
	}

	p := Placement{AverageQuizScore: avg}
	switch {
	case avg >= 90:
		p.Difficulty = model.DifficultyHard
		p.PassingThreshold = 60
	case avg >= 80:
		p.Difficulty = model.DifficultyNormal
		p.PassingThreshold = 70
	default:
		p.Difficulty = model.DifficultyEasy
		p.PassingThreshold = 75
	}
	return p
}

// defaultCompletionPercent seeds placement when a trainee has neither passed
// quizzes nor any completion data.
const defaultCompletionPercent = 80

// resolveCompletionPercent picks the placement seed used when no quiz was
// passed: the trainee's completion percentage, or the default when there is
// no completion data either.
func resolveCompletionPercent(pct float64) float64 {
	if pct > 0 {
		return pct
	}
	return defaultCompletionPercent
}

// EligibilityService decides whether a trainee may start certification and
// computes the adaptive placement for the session.
type EligibilityService struct {
	moduleRepo   *repository.ModuleRepository
	progressRepo *repository.ProgressRepository
}

// NewEligibilityService creates a new EligibilityService.
func NewEligibilityService(moduleRepo *repository.ModuleRepository, progressRepo *repository.ProgressRepository) *EligibilityService {
	return &EligibilityService{moduleRepo: moduleRepo, progressRepo: progressRepo}
}

// Evaluate checks the trainee's progress against the module's prerequisites.
// A trainee is eligible when every subtopic is completed, or when the module
// has quizzes and every one of them has at least one passing attempt. A module
// with no subtopics and no quizzes is never certifiable: there is nothing to
// have mastered, and an empty-set pass would let unfinished modules hand out
// certificates.
func (s *EligibilityService) Evaluate(ctx context.Context, moduleID uuid.UUID, traineeID int) (*model.EligibilityResult, error) {
	subtopics, err := s.moduleRepo.ListSubtopics(ctx, moduleID)
	if err != nil {
		return nil, fmt.Errorf("list subtopics: %w", err)
	}
	completed, err := s.progressRepo.CountCompletedSubtopics(ctx, moduleID, traineeID)
	if err != nil {
		return nil, fmt.Errorf("count completions: %w", err)
	}

	quizzes, err := s.moduleRepo.ListQuizzes(ctx, moduleID)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	passing, err := s.progressRepo.LatestPassingAttempts(ctx, moduleID, traineeID)
	if err != nil {
		return nil, fmt.Errorf("list passing attempts: %w", err)
	}

	result := &model.EligibilityResult{
		CompletedSubtopics: completed,
		TotalSubtopics:     len(subtopics),
		PassedQuizzes:      len(passing),
		TotalQuizzes:       len(quizzes),
	}

	allSubtopicsDone := len(subtopics) > 0 && completed >= len(subtopics)
	allQuizzesPassed := len(quizzes) > 0 && len(passing) >= len(quizzes)

	if allSubtopicsDone || allQuizzesPassed {
		result.Eligible = true
		return result, nil
	}

	result.Reason = fmt.Sprintf(
		"complete all subtopics (%d/%d) or pass every quiz (%d/%d) before certification",
		completed, len(subtopics), len(passing), len(quizzes))
	return result, nil
}

// Placement computes the adaptive placement for an eligible trainee.
func (s *EligibilityService) Placement(ctx context.Context, moduleID uuid.UUID, traineeID int) (Placement, error) {
	passing, err := s.progressRepo.LatestPassingAttempts(ctx, moduleID, traineeID)
	if err != nil {
		return Placement{}, fmt.Errorf("list passing attempts: %w", err)
	}

	completion := float64(defaultCompletionPercent)
	if len(passing) == 0 {
		pct, err := s.progressRepo.CompletionPercent(ctx, moduleID, traineeID)
		if err != nil {
			return Placement{}, fmt.Errorf("completion percent: %w", err)
		}
		completion = resolveCompletionPercent(pct)
	}

	return ComputePlacement(passing, completion), nil
}
