package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/certivox/certivox-backend/internal/model"
	"github.com/certivox/certivox-backend/internal/provider/llm"
	"github.com/certivox/certivox-backend/internal/resilience"
)

// heuristicCap limits fallback scores to this fraction of a question's max
// score, so a provider outage cannot hand out unearned high marks.
const heuristicCap = 0.7

// ScoringService grades a transcript against a question's rubric. The rubric
// path goes through the LLM chain; on failure it demotes to a length and
// keyword heuristic, and an empty transcript scores zero. Scoring never
// surfaces a hard error to the trainee.
type ScoringService struct {
	llmChain *resilience.Chain[llm.Provider]
	log      zerolog.Logger
}

// NewScoringService creates a new ScoringService.
func NewScoringService(llmChain *resilience.Chain[llm.Provider], log zerolog.Logger) *ScoringService {
	return &ScoringService{
		llmChain: llmChain,
		log:      log.With().Str("service", "scoring").Logger(),
	}
}

// rubricVerdict is the JSON document the scoring backend returns.
type rubricVerdict struct {
	Score            int            `json:"score"`
	CompetencyScores map[string]int `json:"competencyScores"`
	Feedback         string         `json:"feedback"`
}

// Score grades one transcript. history provides conversational context to the
// rubric path; vocabulary feeds the keyword heuristic.
func (s *ScoringService) Score(ctx context.Context, question model.Question, transcript string, history []model.Response, vocabulary []string) (int, map[model.CompetencyArea]int, string) {
	if strings.TrimSpace(transcript) == "" {
		return 0, neutralCompetencyScores(), "No usable response was recorded for this question."
	}

	score, competency, feedback, err := s.rubricScore(ctx, question, transcript, history)
	if err == nil {
		return score, competency, feedback
	}
	s.log.Warn().Err(err).
		Str("question_id", question.ID.String()).
		Msg("rubric scoring failed, using heuristic")

	return HeuristicScore(question, transcript, vocabulary)
}

func (s *ScoringService) rubricScore(ctx context.Context, question model.Question, transcript string, history []model.Response) (int, map[model.CompetencyArea]int, string, error) {
	var past strings.Builder
	for i, r := range history {
		fmt.Fprintf(&past, "Answer %d (scored %d): %s\n", i+1, r.Score, r.Transcript)
	}

	prompt := fmt.Sprintf(`Grade this spoken answer from a certification session.

Question (%s, max %d points): %s

Rubric:
- Excellent (%d-%d): %s
- Good (%d-%d): %s
- Adequate (%d-%d): %s
- Poor (0-%d): %s

Earlier answers this session:
%s
Transcript of the answer:
%s

Respond with a JSON object only:
{"score": 0-%d, "competencyScores": {"accuracy": 0-10, "application": 0-10, "communication": 0-10, "problem_solving": 0-10, "completeness": 0-10}, "feedback": "2-3 sentences for the trainee"}`,
		question.CompetencyArea, question.MaxScore, question.Text,
		question.MaxScore-1, question.MaxScore, question.ScoringCriteria.Excellent,
		question.MaxScore*7/10, question.MaxScore-2, question.ScoringCriteria.Good,
		question.MaxScore/2, question.MaxScore*7/10-1, question.ScoringCriteria.Adequate,
		question.MaxScore/2-1, question.ScoringCriteria.Poor,
		past.String(), transcript, question.MaxScore)

	text, err := resilience.Execute(ctx, s.llmChain, func(ctx context.Context, p llm.Provider) (string, error) {
		return p.Complete(ctx, llm.Request{
			SystemPrompt: "You are a strict but fair certification examiner. You always answer with a single JSON object.",
			Messages:     []llm.Message{{Role: "user", Content: prompt}},
			Temperature:  0.2,
			MaxTokens:    400,
		})
	})
	if err != nil {
		return 0, nil, "", err
	}

	var verdict rubricVerdict
	if err := json.Unmarshal(extractJSON(text), &verdict); err != nil {
		return 0, nil, "", fmt.Errorf("malformed scoring output: %w", err)
	}

	score := clamp(verdict.Score, 0, question.MaxScore)
	competency := neutralCompetencyScores()
	for _, area := range model.CompetencyPriority {
		if v, ok := verdict.CompetencyScores[string(area)]; ok {
			competency[area] = clamp(v, 0, 10)
		}
	}
	feedback := strings.TrimSpace(verdict.Feedback)
	if feedback == "" {
		feedback = "Your answer has been scored."
	}
	return score, competency, feedback, nil
}

// HeuristicScore grades by answer length and keyword overlap with the
// module vocabulary, capped at 70% of the question's max score. Competency
// scores default to the neutral midpoint.
func HeuristicScore(question model.Question, transcript string, vocabulary []string) (int, map[model.CompetencyArea]int, string) {
	words := strings.Fields(transcript)

	// Up to half the credit for a substantive answer length.
	lengthPart := math.Min(float64(len(words))/60.0, 1.0) * 0.5

	// The other half for touching the module's expected vocabulary.
	vocabPart := 0.0
	if len(vocabulary) > 0 {
		lower := strings.ToLower(transcript)
		hits := 0
		for _, term := range vocabulary {
			if strings.Contains(lower, strings.ToLower(term)) {
				hits++
			}
		}
		vocabPart = math.Min(float64(hits)/float64(len(vocabulary))*2, 1.0) * 0.5
	}

	score := int(math.Round((lengthPart + vocabPart) * heuristicCap * float64(question.MaxScore)))
	score = clamp(score, 0, int(heuristicCap*float64(question.MaxScore)))

	return score, neutralCompetencyScores(),
		"Your answer was recorded and scored with a simplified method. A detailed review was not available for this question."
}

func neutralCompetencyScores() map[model.CompetencyArea]int {
	scores := make(map[model.CompetencyArea]int, len(model.CompetencyPriority))
	for _, area := range model.CompetencyPriority {
		scores[area] = int(model.NeutralCompetencyScore)
	}
	return scores
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
