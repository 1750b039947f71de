package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/certivox/certivox-backend/internal/model"
	"github.com/certivox/certivox-backend/internal/provider/llm"
	llmmock "github.com/certivox/certivox-backend/internal/provider/llm/mock"
	"github.com/certivox/certivox-backend/internal/resilience"
)

func newScorer(p llm.Provider) *ScoringService {
	chain := resilience.NewChain[llm.Provider]("llm", resilience.Config{Timeout: time.Second}, zerolog.Nop())
	if p != nil {
		chain.Add("mock", p)
	}
	return NewScoringService(chain, zerolog.Nop())
}

func rubricQuestion() model.Question {
	return model.Question{
		ID:             uuid.New(),
		Text:           "Walk me through the pre-operation inspection.",
		CompetencyArea: model.CompetencyAccuracy,
		Difficulty:     model.DifficultyNormal,
		MaxScore:       model.DefaultMaxScore,
	}
}

func TestScoreEmptyTranscriptIsZero(t *testing.T) {
	p := &llmmock.Provider{Err: errors.New("must not be called")}
	s := newScorer(p)

	for _, transcript := range []string{"", "   ", "\n\t"} {
		score, competency, feedback := s.Score(context.Background(), rubricQuestion(), transcript, nil, nil)
		if score != 0 {
			t.Errorf("transcript %q: score = %d, want 0", transcript, score)
		}
		if feedback == "" {
			t.Errorf("transcript %q: missing feedback", transcript)
		}
		for _, area := range model.CompetencyPriority {
			if competency[area] != int(model.NeutralCompetencyScore) {
				t.Errorf("transcript %q: %s = %d, want neutral", transcript, area, competency[area])
			}
		}
	}
	if p.CallCount() != 0 {
		t.Errorf("rubric called %d times for empty transcripts", p.CallCount())
	}
}

func TestScoreRubricVerdict(t *testing.T) {
	p := &llmmock.Provider{
		Content: `{"score": 8, "competencyScores": {"accuracy": 9, "application": 7, "communication": 8, "problem_solving": 6, "completeness": 7}, "feedback": "Thorough answer with minor gaps."}`,
	}
	s := newScorer(p)

	score, competency, feedback := s.Score(context.Background(), rubricQuestion(), "I would first check the hydraulic fluid level.", nil, nil)
	if score != 8 {
		t.Errorf("score = %d, want 8", score)
	}
	if competency[model.CompetencyAccuracy] != 9 {
		t.Errorf("accuracy = %d, want 9", competency[model.CompetencyAccuracy])
	}
	if feedback != "Thorough answer with minor gaps." {
		t.Errorf("feedback = %q", feedback)
	}
}

func TestScoreClampsRubricOutput(t *testing.T) {
	p := &llmmock.Provider{
		Content: `{"score": 42, "competencyScores": {"accuracy": -3, "communication": 15}, "feedback": "x"}`,
	}
	s := newScorer(p)

	q := rubricQuestion()
	score, competency, _ := s.Score(context.Background(), q, "some answer", nil, nil)
	if score != q.MaxScore {
		t.Errorf("score = %d, want clamped to %d", score, q.MaxScore)
	}
	if competency[model.CompetencyAccuracy] != 0 {
		t.Errorf("accuracy = %d, want clamped to 0", competency[model.CompetencyAccuracy])
	}
	if competency[model.CompetencyCommunication] != 10 {
		t.Errorf("communication = %d, want clamped to 10", competency[model.CompetencyCommunication])
	}
	// Areas the verdict omitted stay neutral.
	if competency[model.CompetencyCompleteness] != int(model.NeutralCompetencyScore) {
		t.Errorf("completeness = %d, want neutral", competency[model.CompetencyCompleteness])
	}
}

func TestScoreDemotesToHeuristicOnFailure(t *testing.T) {
	p := &llmmock.Provider{Err: errors.New("backend down")}
	s := newScorer(p)

	q := rubricQuestion()
	transcript := "Check the hydraulic fluid, inspect the mast and forks for cracks, test the horn and complete the tag out procedure for any defect found before operating."
	score, competency, _ := s.Score(context.Background(), q, transcript, nil, []string{"hydraulic", "mast", "tag out", "defect"})

	if limit := int(heuristicCap * float64(q.MaxScore)); score > limit {
		t.Errorf("heuristic score %d exceeds cap %d", score, limit)
	}
	if score == 0 {
		t.Error("substantive answer scored 0 on the heuristic path")
	}
	for _, area := range model.CompetencyPriority {
		if competency[area] != int(model.NeutralCompetencyScore) {
			t.Errorf("%s = %d, want neutral", area, competency[area])
		}
	}
}

func TestScoreDemotesToHeuristicOnMalformedVerdict(t *testing.T) {
	p := &llmmock.Provider{Content: "This answer deserves about a 7 out of 10."}
	s := newScorer(p)

	q := rubricQuestion()
	score, _, _ := s.Score(context.Background(), q, "a short answer", nil, nil)
	if limit := int(heuristicCap * float64(q.MaxScore)); score > limit {
		t.Errorf("score %d exceeds heuristic cap %d", score, limit)
	}
}

func TestHeuristicScoreCapAndMonotonicity(t *testing.T) {
	q := rubricQuestion()
	vocab := []string{"hydraulic", "mast", "forks", "horn", "brakes"}

	long := "check the hydraulic system and the mast then the forks the horn and the brakes "
	for i := 0; i < 4; i++ {
		long += long
	}
	score, _, _ := HeuristicScore(q, long, vocab)
	want := int(heuristicCap * float64(q.MaxScore))
	if score != want {
		t.Errorf("saturated heuristic = %d, want cap %d", score, want)
	}

	shortScore, _, _ := HeuristicScore(q, "check brakes", vocab)
	if shortScore >= score {
		t.Errorf("short answer (%d) should score below a saturated one (%d)", shortScore, score)
	}
}

func TestHeuristicScoreNoVocabulary(t *testing.T) {
	q := rubricQuestion()
	// Without vocabulary only the length half of the credit is reachable.
	long := ""
	for i := 0; i < 80; i++ {
		long += "word "
	}
	score, _, _ := HeuristicScore(q, long, nil)
	if limit := int(0.5 * heuristicCap * float64(q.MaxScore)); score > limit {
		t.Errorf("score %d exceeds length-only maximum %d", score, limit)
	}
	if score == 0 {
		t.Error("long answer scored 0")
	}
}
