package service

import (
	"testing"

	"github.com/certivox/certivox-backend/internal/model"
)

func attempts(scores ...float64) []model.QuizAttempt {
	out := make([]model.QuizAttempt, len(scores))
	for i, s := range scores {
		out[i] = model.QuizAttempt{Score: s, Passed: true}
	}
	return out
}

func TestComputePlacementTiers(t *testing.T) {
	tests := []struct {
		name          string
		attempts      []model.QuizAttempt
		completion    float64
		wantDiff      model.Difficulty
		wantThreshold int
	}{
		{"high performer", attempts(95, 92, 98), 0, model.DifficultyHard, 60},
		{"exactly 90", attempts(90), 0, model.DifficultyHard, 60},
		{"mid performer", attempts(85, 82), 0, model.DifficultyNormal, 70},
		{"exactly 80", attempts(80), 0, model.DifficultyNormal, 70},
		{"just under 80", attempts(79.9), 0, model.DifficultyEasy, 75},
		{"low performer", attempts(60, 70), 0, model.DifficultyEasy, 75},
		{"no attempts uses completion", nil, 92, model.DifficultyHard, 60},
		{"no attempts mid completion", nil, 81, model.DifficultyNormal, 70},
		{"zero seed", nil, 0, model.DifficultyEasy, 75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ComputePlacement(tt.attempts, tt.completion)
			if p.Difficulty != tt.wantDiff {
				t.Errorf("difficulty = %s, want %s", p.Difficulty, tt.wantDiff)
			}
			if p.PassingThreshold != tt.wantThreshold {
				t.Errorf("threshold = %d, want %d", p.PassingThreshold, tt.wantThreshold)
			}
		})
	}
}

func TestResolveCompletionPercent(t *testing.T) {
	if got := resolveCompletionPercent(55); got != 55 {
		t.Errorf("resolveCompletionPercent(55) = %v, want 55", got)
	}
	if got := resolveCompletionPercent(0); got != defaultCompletionPercent {
		t.Errorf("resolveCompletionPercent(0) = %v, want %d", got, defaultCompletionPercent)
	}
}

func TestPlacementDefaultsWhenNoData(t *testing.T) {
	// Neither passed quizzes nor completion data: the seed defaults to 80,
	// which lands in the NORMAL band with its 70 threshold.
	p := ComputePlacement(nil, resolveCompletionPercent(0))
	if p.AverageQuizScore != 80 {
		t.Errorf("average = %v, want 80", p.AverageQuizScore)
	}
	if p.Difficulty != model.DifficultyNormal {
		t.Errorf("difficulty = %s, want NORMAL", p.Difficulty)
	}
	if p.PassingThreshold != 70 {
		t.Errorf("threshold = %d, want 70", p.PassingThreshold)
	}
}

func TestComputePlacementAverageFromAttempts(t *testing.T) {
	// Attempts present: completion percentage must be ignored.
	p := ComputePlacement(attempts(70, 80), 99)
	if p.AverageQuizScore != 75 {
		t.Errorf("average = %v, want 75", p.AverageQuizScore)
	}
	if p.Difficulty != model.DifficultyEasy {
		t.Errorf("difficulty = %s, want EASY", p.Difficulty)
	}
}
