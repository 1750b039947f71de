package service

import (
	"testing"

	"github.com/google/uuid"

	"github.com/certivox/certivox-backend/internal/model"
)

func qs(maxScores ...int) []model.Question {
	out := make([]model.Question, len(maxScores))
	for i, m := range maxScores {
		out[i] = model.Question{ID: uuid.New(), MaxScore: m}
	}
	return out
}

func rs(scores ...int) []model.Response {
	out := make([]model.Response, len(scores))
	for i, s := range scores {
		out[i] = model.Response{Score: s}
	}
	return out
}

func TestOverallScore(t *testing.T) {
	tests := []struct {
		name      string
		questions []model.Question
		responses []model.Response
		want      int
	}{
		{"no responses", qs(10, 10, 10), nil, 0},
		{"no questions", nil, rs(5), 0},
		{"perfect", qs(10, 10), rs(10, 10), 100},
		{"seventy percent", qs(10, 10, 10, 10, 10), rs(7, 7, 7, 7, 7), 70},
		{"rounds to nearest", qs(10, 10, 10), rs(5, 5, 5), 50},
		{"rounds half up", qs(10, 10), rs(8, 9), 85},
		{"partial session counts answered only", qs(10, 10, 10, 10), rs(8, 6), 70},
		{"mixed max scores", qs(10, 5), rs(5, 5), 67},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OverallScore(tt.questions, tt.responses); got != tt.want {
				t.Errorf("OverallScore = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestOverallScoreIgnoresExcessResponses(t *testing.T) {
	// A response without a matching question contributes nothing.
	got := OverallScore(qs(10), rs(10, 10, 10))
	if got != 100 {
		t.Errorf("OverallScore = %d, want 100", got)
	}
}

func TestClassifyTurn(t *testing.T) {
	const total = 5

	tests := []struct {
		name    string
		session *model.CertSession
		want    turnState
	}{
		{
			"current question awaits an answer",
			&model.CertSession{Questions: qs(10, 10, 10), CurrentQuestionIndex: 2, Responses: rs(7, 7)},
			turnAsk,
		},
		{
			"budget exhausted",
			&model.CertSession{Questions: qs(10, 10, 10, 10, 10), CurrentQuestionIndex: 5, Responses: rs(7, 7, 7, 7, 7)},
			turnFinished,
		},
		{
			// A crash landed between recording response 3 and selecting
			// question 4: three questions, three responses, index 3. The
			// session must heal, not finalize over a partial answer set.
			"missing question is healed not finalized",
			&model.CertSession{Questions: qs(10, 10, 10), CurrentQuestionIndex: 3, Responses: rs(7, 7, 7)},
			turnHeal,
		},
		{
			"fresh session asks the first question",
			&model.CertSession{Questions: qs(10), CurrentQuestionIndex: 0},
			turnAsk,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyTurn(tt.session, total); got != tt.want {
				t.Errorf("classifyTurn = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestVerificationCodeDeterministic(t *testing.T) {
	id := uuid.MustParse("a3f1c1de-0f5f-44f5-9e0f-0a8f3a1b2c3d")

	code := VerificationCode(id)
	if code != VerificationCode(id) {
		t.Error("code is not deterministic")
	}
	if len(code) != 12 {
		t.Errorf("code length = %d, want 12", len(code))
	}
	for _, c := range code {
		if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'F') {
			t.Errorf("code %q contains non-uppercase-hex character %q", code, c)
		}
	}

	if VerificationCode(uuid.New()) == code {
		t.Error("different sessions produced the same code")
	}
}
