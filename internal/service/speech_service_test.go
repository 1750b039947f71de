package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/certivox/certivox-backend/internal/provider/stt"
	sttmock "github.com/certivox/certivox-backend/internal/provider/stt/mock"
	"github.com/certivox/certivox-backend/internal/provider/tts"
	ttsmock "github.com/certivox/certivox-backend/internal/provider/tts/mock"
	"github.com/certivox/certivox-backend/internal/resilience"
)

func newSpeech(ttsProviders []tts.Provider, sttProviders []stt.Provider) *SpeechService {
	cfg := resilience.Config{Timeout: time.Second}
	ttsChain := resilience.NewChain[tts.Provider]("tts", cfg, zerolog.Nop())
	for i, p := range ttsProviders {
		ttsChain.Add(p.Name()+string(rune('a'+i)), p)
	}
	sttChain := resilience.NewChain[stt.Provider]("stt", cfg, zerolog.Nop())
	for i, p := range sttProviders {
		sttChain.Add(p.Name()+string(rune('a'+i)), p)
	}
	return NewSpeechService(ttsChain, sttChain, deadRedis(), time.Hour, zerolog.Nop())
}

func TestSynthesizeSuccess(t *testing.T) {
	primary := &ttsmock.Provider{Audio: []byte("mp3 bytes")}
	s := newSpeech([]tts.Provider{primary}, nil)

	audio, ok := s.Synthesize(context.Background(), "What do you check first?")
	if !ok {
		t.Fatal("Synthesize reported failure")
	}
	if !bytes.Equal(audio, []byte("mp3 bytes")) {
		t.Errorf("audio = %q", audio)
	}
}

func TestSynthesizeFallsThroughTiers(t *testing.T) {
	primary := &ttsmock.Provider{Err: errors.New("quota exceeded")}
	secondary := &ttsmock.Provider{Audio: []byte("backup audio")}
	s := newSpeech([]tts.Provider{primary, secondary}, nil)

	audio, ok := s.Synthesize(context.Background(), "question text")
	if !ok {
		t.Fatal("Synthesize reported failure with a healthy fallback tier")
	}
	if !bytes.Equal(audio, []byte("backup audio")) {
		t.Errorf("audio = %q, want fallback output", audio)
	}
	if primary.CallCount() != 1 || secondary.CallCount() != 1 {
		t.Errorf("calls = %d/%d, want 1/1", primary.CallCount(), secondary.CallCount())
	}
}

func TestSynthesizeDegradesToTextOnly(t *testing.T) {
	down := &ttsmock.Provider{Err: errors.New("service unavailable")}
	s := newSpeech([]tts.Provider{down}, nil)

	audio, ok := s.Synthesize(context.Background(), "question text")
	if ok {
		t.Error("Synthesize reported success with every tier down")
	}
	if audio != nil {
		t.Errorf("audio = %q, want nil", audio)
	}
}

func TestSynthesizeEmptyChainDegrades(t *testing.T) {
	s := newSpeech(nil, nil)
	if _, ok := s.Synthesize(context.Background(), "question text"); ok {
		t.Error("Synthesize reported success with no providers configured")
	}
}

func TestTranscribeSuccess(t *testing.T) {
	primary := &sttmock.Provider{Transcript: "i would check the brakes"}
	s := newSpeech(nil, []stt.Provider{primary})

	got, err := s.Transcribe(context.Background(), []byte("webm"), "audio/webm")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != "i would check the brakes" {
		t.Errorf("transcript = %q", got)
	}
}

func TestTranscribeRetriesChainOnce(t *testing.T) {
	// First pass fails, second pass succeeds.
	flaky := &sttmock.Provider{
		Transcript: "recovered transcript",
		Errs:       []error{errors.New("transient upstream error")},
	}
	s := newSpeech(nil, []stt.Provider{flaky})

	got, err := s.Transcribe(context.Background(), []byte("webm"), "audio/webm")
	if err != nil {
		t.Fatalf("Transcribe after retry: %v", err)
	}
	if got != "recovered transcript" {
		t.Errorf("transcript = %q", got)
	}
	if flaky.CallCount() != 2 {
		t.Errorf("provider called %d times, want 2", flaky.CallCount())
	}
}

func TestTranscribeFailsAfterRetry(t *testing.T) {
	down := &sttmock.Provider{Err: errors.New("hard failure")}
	s := newSpeech(nil, []stt.Provider{down})

	if _, err := s.Transcribe(context.Background(), []byte("webm"), "audio/webm"); err == nil {
		t.Fatal("Transcribe succeeded with every tier down")
	}
	if down.CallCount() != 2 {
		t.Errorf("provider called %d times, want 2 (initial + one retry)", down.CallCount())
	}
}
