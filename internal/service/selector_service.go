package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/certivox/certivox-backend/internal/config"
	"github.com/certivox/certivox-backend/internal/model"
	"github.com/certivox/certivox-backend/internal/provider/llm"
	"github.com/certivox/certivox-backend/internal/resilience"
)

// questionCacheTTL bounds how long a generated question is reused for
// identical (module, question number, prior response count) states.
const questionCacheTTL = 24 * time.Hour

// BuildProfile computes the running mean competency scores across the
// session's responses. Areas with no observations get the neutral midpoint so
// they are neither prioritized nor ignored.
func BuildProfile(responses []model.Response) map[model.CompetencyArea]float64 {
	sums := make(map[model.CompetencyArea]float64)
	counts := make(map[model.CompetencyArea]int)
	for _, r := range responses {
		for area, score := range r.CompetencyScores {
			sums[area] += float64(score)
			counts[area]++
		}
	}

	profile := make(map[model.CompetencyArea]float64, len(model.CompetencyPriority))
	for _, area := range model.CompetencyPriority {
		if counts[area] > 0 {
			profile[area] = sums[area] / float64(counts[area])
		} else {
			profile[area] = model.NeutralCompetencyScore
		}
	}
	return profile
}

// WeakestArea returns the competency area with the lowest running mean. Ties
// are broken by the fixed priority order, earliest entry winning.
func WeakestArea(profile map[model.CompetencyArea]float64) model.CompetencyArea {
	weakest := model.CompetencyPriority[0]
	lowest := profile[weakest]
	for _, area := range model.CompetencyPriority[1:] {
		if profile[area] < lowest {
			weakest = area
			lowest = profile[area]
		}
	}
	return weakest
}

// runningAverage is the mean response score so far, on the 0..10 scale.
func runningAverage(responses []model.Response) float64 {
	if len(responses) == 0 {
		return 0
	}
	var sum float64
	for _, r := range responses {
		sum += float64(r.Score)
	}
	return sum / float64(len(responses))
}

// SelectorService picks the next question for a session, targeting the
// trainee's weakest competency. Three tiers are tried in order: a template
// library for cheap early questions, a generative backend for contextual
// follow-ups, and a deterministic fallback so the session loop can never
// stall for lack of a question.
type SelectorService struct {
	llmChain *resilience.Chain[llm.Provider]
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewSelectorService creates a new SelectorService.
func NewSelectorService(llmChain *resilience.Chain[llm.Provider], rdb *redis.Client, log zerolog.Logger) *SelectorService {
	return &SelectorService{
		llmChain: llmChain,
		rdb:      rdb,
		log:      log.With().Str("service", "selector").Logger(),
	}
}

// NextQuestion returns the question for the given 0-based index. It never
// fails: every tier failure demotes to the next tier.
func (s *SelectorService) NextQuestion(ctx context.Context, module *model.TrainingModule, session *model.CertSession, index int) model.Question {
	profile := BuildProfile(session.Responses)
	focusArea := WeakestArea(profile)

	// Identical states reuse previously produced questions.
	cacheKey := config.CacheKey.QuestionCacheKey(module.ID.String(), index, len(session.Responses))
	if cached, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
		var q model.Question
		if err := json.Unmarshal([]byte(cached), &q); err == nil {
			q.ID = uuid.New()
			return q
		}
	}

	// Template fast path: early questions, or a trainee doing comfortably
	// well, do not justify a generation call.
	if index <= 2 || runningAverage(session.Responses) > 7 {
		q := s.templateQuestion(module, session.AdaptiveDifficulty, focusArea, index)
		s.cacheQuestion(ctx, cacheKey, q)
		return q
	}

	if q, err := s.generateQuestion(ctx, module, session, focusArea); err == nil {
		s.cacheQuestion(ctx, cacheKey, q)
		return q
	} else {
		s.log.Warn().Err(err).
			Str("module_id", module.ID.String()).
			Str("focus_area", string(focusArea)).
			Msg("generative tier failed, using deterministic fallback")
	}

	return s.fallbackQuestion(module, session.AdaptiveDifficulty, focusArea)
}

func (s *SelectorService) cacheQuestion(ctx context.Context, key string, q model.Question) {
	payload, err := json.Marshal(q)
	if err != nil {
		return
	}
	// Last-writer-wins under a race is fine here.
	if err := s.rdb.Set(ctx, key, payload, questionCacheTTL).Err(); err != nil {
		s.log.Warn().Err(err).Msg("failed to cache question")
	}
}

// questionTemplates holds per-competency question stems. The slot is picked
// by question number; %s receives the module scenario.
var questionTemplates = map[model.CompetencyArea][]string{
	model.CompetencyAccuracy: {
		"Walk me through the correct procedure for the following situation: %s. Be precise about each step.",
		"In the scenario \"%s\", which facts and figures must you get exactly right, and what are they?",
		"Describe the standard you would follow in this situation: %s. What details cannot be approximated?",
	},
	model.CompetencyApplication: {
		"Given the scenario \"%s\", how would you apply what you learned in this module, step by step?",
		"Imagine the scenario \"%s\" changed unexpectedly mid-way. How would you adapt your approach?",
		"Pick one technique from this module and explain how you would use it in practice for: %s.",
	},
	model.CompetencyCommunication: {
		"Explain the scenario \"%s\" to a colleague who has never encountered it. Keep it clear and structured.",
		"In the scenario \"%s\", how would you brief your team before acting, and what would you emphasize?",
		"Summarize the key points of \"%s\" as you would to a customer, avoiding jargon.",
	},
	model.CompetencyProblemSolving: {
		"What is the biggest risk in the scenario \"%s\", and how would you mitigate it?",
		"Something goes wrong halfway through the scenario \"%s\". How do you diagnose and recover?",
		"Describe two different ways to handle \"%s\" and explain which you would choose and why.",
	},
	model.CompetencyCompleteness: {
		"List everything that must be done, start to finish, in the scenario: %s.",
		"What is commonly forgotten when handling \"%s\", and why does it matter?",
		"Walk through the scenario \"%s\" and name the checks you would perform before calling it done.",
	},
}

func (s *SelectorService) templateQuestion(module *model.TrainingModule, difficulty model.Difficulty, focusArea model.CompetencyArea, index int) model.Question {
	templates := questionTemplates[focusArea]
	slot := index
	if slot >= len(templates) {
		slot = slot % len(templates)
	}
	return model.Question{
		ID:              uuid.New(),
		Text:            fmt.Sprintf(templates[slot], module.Scenario),
		CompetencyArea:  focusArea,
		Difficulty:      difficulty,
		MaxScore:        model.DefaultMaxScore,
		ScoringCriteria: defaultCriteria(focusArea),
		Source:          model.QuestionSourceTemplate,
	}
}

// generatedQuestion is the JSON document the generative backend returns.
type generatedQuestion struct {
	Question  string `json:"question"`
	Reasoning string `json:"reasoning"`
}

func (s *SelectorService) generateQuestion(ctx context.Context, module *model.TrainingModule, session *model.CertSession, focusArea model.CompetencyArea) (model.Question, error) {
	var history strings.Builder
	for i, resp := range session.Responses {
		if i < len(session.Questions) {
			fmt.Fprintf(&history, "Q%d: %s\n", i+1, session.Questions[i].Text)
		}
		fmt.Fprintf(&history, "A%d: %s\n", i+1, resp.Transcript)
	}

	prompt := fmt.Sprintf(`You are examining a trainee in a spoken certification session.

Scenario: %s
Module: %s
Difficulty: %s
Target competency: %s

Conversation so far:
%s
Ask ONE follow-up question that probes the target competency. Reference specific points the trainee made and probe deeper rather than changing topic.

Respond with a JSON object only: {"question": "...", "reasoning": "..."}`,
		module.Scenario, module.Title, session.AdaptiveDifficulty, focusArea, history.String())

	text, err := resilience.Execute(ctx, s.llmChain, func(ctx context.Context, p llm.Provider) (string, error) {
		return p.Complete(ctx, llm.Request{
			SystemPrompt: "You are a strict but fair certification examiner. You always answer with a single JSON object.",
			Messages:     []llm.Message{{Role: "user", Content: prompt}},
			Temperature:  0.7,
			MaxTokens:    300,
		})
	})
	if err != nil {
		return model.Question{}, err
	}

	var gen generatedQuestion
	if err := json.Unmarshal(extractJSON(text), &gen); err != nil {
		return model.Question{}, fmt.Errorf("malformed generation output: %w", err)
	}
	if strings.TrimSpace(gen.Question) == "" {
		return model.Question{}, fmt.Errorf("generation produced empty question")
	}

	return model.Question{
		ID:              uuid.New(),
		Text:            strings.TrimSpace(gen.Question),
		CompetencyArea:  focusArea,
		Difficulty:      session.AdaptiveDifficulty,
		MaxScore:        model.DefaultMaxScore,
		ScoringCriteria: defaultCriteria(focusArea),
		Source:          model.QuestionSourceGenerated,
	}, nil
}

func (s *SelectorService) fallbackQuestion(module *model.TrainingModule, difficulty model.Difficulty, focusArea model.CompetencyArea) model.Question {
	return model.Question{
		ID:              uuid.New(),
		Text:            fmt.Sprintf("Considering the scenario \"%s\", describe how you would handle it with particular attention to %s. Mention concrete steps.", module.Scenario, competencyLabel(focusArea)),
		CompetencyArea:  focusArea,
		Difficulty:      difficulty,
		MaxScore:        model.DefaultMaxScore,
		ScoringCriteria: defaultCriteria(focusArea),
		Source:          model.QuestionSourceFallback,
	}
}

func competencyLabel(area model.CompetencyArea) string {
	switch area {
	case model.CompetencyProblemSolving:
		return "problem solving"
	default:
		return string(area)
	}
}

func defaultCriteria(area model.CompetencyArea) model.ScoringCriteria {
	label := competencyLabel(area)
	return model.ScoringCriteria{
		Excellent: fmt.Sprintf("Demonstrates outstanding %s with specific, well-organized detail", label),
		Good:      fmt.Sprintf("Shows solid %s with minor gaps or imprecision", label),
		Adequate:  fmt.Sprintf("Covers the essentials but %s is superficial or partly off", label),
		Poor:      fmt.Sprintf("Little or no evidence of %s; vague or off-topic", label),
	}
}

// extractJSON trims any prose a model wraps around its JSON document by
// slicing from the first opening brace to the last closing one.
func extractJSON(text string) []byte {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return []byte(text)
	}
	return []byte(text[start : end+1])
}
