package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/certivox/certivox-backend/internal/model"
	"github.com/certivox/certivox-backend/internal/provider/llm"
	llmmock "github.com/certivox/certivox-backend/internal/provider/llm/mock"
	"github.com/certivox/certivox-backend/internal/resilience"
)

// deadRedis returns a client whose every command fails fast, so the cache
// tiers behave as permanent misses.
func deadRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:            "127.0.0.1:1",
		DialTimeout:     100 * time.Millisecond,
		ReadTimeout:     100 * time.Millisecond,
		WriteTimeout:    100 * time.Millisecond,
		MaxRetries:      -1,
		PoolTimeout:     100 * time.Millisecond,
		MinRetryBackoff: -1,
		MaxRetryBackoff: -1,
	})
}

func newSelector(p llm.Provider) *SelectorService {
	chain := resilience.NewChain[llm.Provider]("llm", resilience.Config{Timeout: time.Second}, zerolog.Nop())
	if p != nil {
		chain.Add("mock", p)
	}
	return NewSelectorService(chain, deadRedis(), zerolog.Nop())
}

func testModule() *model.TrainingModule {
	return &model.TrainingModule{
		ID:       uuid.New(),
		Title:    "Forklift Pre-Operation Inspection",
		Scenario: "inspecting a forklift before a shift",
	}
}

func sessionWith(responses ...model.Response) *model.CertSession {
	return &model.CertSession{
		ID:                 uuid.New(),
		AdaptiveDifficulty: model.DifficultyNormal,
		Responses:          responses,
	}
}

func scored(area model.CompetencyArea, score int) model.Response {
	return model.Response{
		QuestionID:       uuid.New(),
		Transcript:       "an answer",
		Score:            score,
		CompetencyScores: map[model.CompetencyArea]int{area: score},
	}
}

func TestBuildProfileDefaultsToNeutral(t *testing.T) {
	profile := BuildProfile(nil)
	for _, area := range model.CompetencyPriority {
		if profile[area] != model.NeutralCompetencyScore {
			t.Errorf("%s = %v, want %v", area, profile[area], model.NeutralCompetencyScore)
		}
	}
}

func TestBuildProfileRunningMean(t *testing.T) {
	responses := []model.Response{
		{CompetencyScores: map[model.CompetencyArea]int{model.CompetencyAccuracy: 4}},
		{CompetencyScores: map[model.CompetencyArea]int{model.CompetencyAccuracy: 8}},
	}
	profile := BuildProfile(responses)
	if profile[model.CompetencyAccuracy] != 6 {
		t.Errorf("accuracy = %v, want 6", profile[model.CompetencyAccuracy])
	}
	// Unobserved areas stay neutral.
	if profile[model.CompetencyCompleteness] != model.NeutralCompetencyScore {
		t.Errorf("completeness = %v, want neutral", profile[model.CompetencyCompleteness])
	}
}

func TestWeakestAreaPicksLowest(t *testing.T) {
	profile := BuildProfile([]model.Response{
		{CompetencyScores: map[model.CompetencyArea]int{
			model.CompetencyAccuracy:      8,
			model.CompetencyCommunication: 2,
			model.CompetencyCompleteness:  6,
		}},
	})
	if got := WeakestArea(profile); got != model.CompetencyCommunication {
		t.Errorf("weakest = %s, want communication", got)
	}
}

func TestWeakestAreaTieBreaksByPriority(t *testing.T) {
	// All areas neutral: accuracy wins as the first priority entry.
	if got := WeakestArea(BuildProfile(nil)); got != model.CompetencyAccuracy {
		t.Errorf("weakest = %s, want accuracy", got)
	}

	// application and problem_solving tied lowest: application comes first.
	profile := BuildProfile([]model.Response{
		{CompetencyScores: map[model.CompetencyArea]int{
			model.CompetencyApplication:    3,
			model.CompetencyProblemSolving: 3,
		}},
	})
	if got := WeakestArea(profile); got != model.CompetencyApplication {
		t.Errorf("weakest = %s, want application", got)
	}
}

func TestNextQuestionUsesTemplatesEarly(t *testing.T) {
	p := &llmmock.Provider{Err: errors.New("must not be called")}
	s := newSelector(p)

	for index := 0; index <= 2; index++ {
		q := s.NextQuestion(context.Background(), testModule(), sessionWith(), index)
		if q.Source != model.QuestionSourceTemplate {
			t.Errorf("index %d: source = %s, want TEMPLATE", index, q.Source)
		}
		if q.Text == "" || q.MaxScore != model.DefaultMaxScore {
			t.Errorf("index %d: malformed question %+v", index, q)
		}
	}
	if p.CallCount() != 0 {
		t.Errorf("generation called %d times on the template path", p.CallCount())
	}
}

func TestNextQuestionUsesTemplatesWhenScoringHigh(t *testing.T) {
	p := &llmmock.Provider{Err: errors.New("must not be called")}
	s := newSelector(p)

	// Running average 8 > 7 keeps the fast path even past index 2.
	session := sessionWith(
		scored(model.CompetencyAccuracy, 8),
		scored(model.CompetencyAccuracy, 8),
		scored(model.CompetencyAccuracy, 8),
	)
	q := s.NextQuestion(context.Background(), testModule(), session, 3)
	if q.Source != model.QuestionSourceTemplate {
		t.Errorf("source = %s, want TEMPLATE", q.Source)
	}
}

func TestNextQuestionGeneratesForStrugglingTrainee(t *testing.T) {
	p := &llmmock.Provider{
		Content: `{"question": "What would you check first on the hydraulic system?", "reasoning": "probing accuracy"}`,
	}
	s := newSelector(p)

	session := sessionWith(
		scored(model.CompetencyAccuracy, 3),
		scored(model.CompetencyAccuracy, 4),
		scored(model.CompetencyAccuracy, 3),
	)
	q := s.NextQuestion(context.Background(), testModule(), session, 3)
	if q.Source != model.QuestionSourceGenerated {
		t.Fatalf("source = %s, want GENERATED", q.Source)
	}
	if q.Text != "What would you check first on the hydraulic system?" {
		t.Errorf("unexpected question text: %q", q.Text)
	}
	if q.CompetencyArea != model.CompetencyAccuracy {
		t.Errorf("focus = %s, want accuracy", q.CompetencyArea)
	}
	if p.CallCount() != 1 {
		t.Errorf("generation called %d times, want 1", p.CallCount())
	}
}

func TestNextQuestionFallsBackWhenGenerationFails(t *testing.T) {
	p := &llmmock.Provider{Err: errors.New("backend down")}
	s := newSelector(p)

	session := sessionWith(
		scored(model.CompetencyCommunication, 2),
		scored(model.CompetencyCommunication, 3),
		scored(model.CompetencyCommunication, 2),
	)
	q := s.NextQuestion(context.Background(), testModule(), session, 3)
	if q.Source != model.QuestionSourceFallback {
		t.Fatalf("source = %s, want FALLBACK", q.Source)
	}
	if q.Text == "" {
		t.Error("fallback produced empty question")
	}
	if !strings.Contains(q.Text, "communication") {
		t.Errorf("fallback does not name the focus area: %q", q.Text)
	}
}

func TestNextQuestionSurvivesEmptyChain(t *testing.T) {
	s := newSelector(nil)

	session := sessionWith(
		scored(model.CompetencyAccuracy, 1),
		scored(model.CompetencyAccuracy, 1),
		scored(model.CompetencyAccuracy, 1),
	)
	q := s.NextQuestion(context.Background(), testModule(), session, 5)
	if q.Source != model.QuestionSourceFallback {
		t.Errorf("source = %s, want FALLBACK", q.Source)
	}
}

func TestNextQuestionFallsBackOnMalformedGeneration(t *testing.T) {
	p := &llmmock.Provider{Content: "I think a good question would be about tires."}
	s := newSelector(p)

	session := sessionWith(
		scored(model.CompetencyAccuracy, 2),
		scored(model.CompetencyAccuracy, 2),
		scored(model.CompetencyAccuracy, 2),
	)
	q := s.NextQuestion(context.Background(), testModule(), session, 3)
	if q.Source != model.QuestionSourceFallback {
		t.Errorf("source = %s, want FALLBACK", q.Source)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"prose wrapped", "Sure! Here you go:\n{\"a\":1}\nHope that helps.", `{"a":1}`},
		{"code fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"no braces", "no json here", "no json here"},
		{"nested", `prefix {"a":{"b":2}} suffix`, `{"a":{"b":2}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(extractJSON(tt.in)); got != tt.want {
				t.Errorf("extractJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
