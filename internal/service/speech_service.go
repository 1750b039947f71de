package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/certivox/certivox-backend/internal/config"
	"github.com/certivox/certivox-backend/internal/provider/stt"
	"github.com/certivox/certivox-backend/internal/provider/tts"
	"github.com/certivox/certivox-backend/internal/resilience"
)

// SpeechService fronts the synthesis and transcription fallback chains.
//
// Synthesis misses never fail a session: when the whole chain is down the
// caller gets no audio and asks the client to voice the text itself.
// Transcription retries once before surfacing an error, and the caller keeps
// the trainee on the same question rather than skipping it.
type SpeechService struct {
	ttsChain *resilience.Chain[tts.Provider]
	sttChain *resilience.Chain[stt.Provider]
	rdb      *redis.Client
	audioTTL time.Duration
	log      zerolog.Logger
}

// NewSpeechService creates a new SpeechService. audioTTL bounds how long
// synthesized audio stays cached.
func NewSpeechService(
	ttsChain *resilience.Chain[tts.Provider],
	sttChain *resilience.Chain[stt.Provider],
	rdb *redis.Client,
	audioTTL time.Duration,
	log zerolog.Logger,
) *SpeechService {
	return &SpeechService{
		ttsChain: ttsChain,
		sttChain: sttChain,
		rdb:      rdb,
		audioTTL: audioTTL,
		log:      log.With().Str("service", "speech").Logger(),
	}
}

// Synthesize converts question text to audio bytes. The cache is keyed by
// the exact text, so repeated and templated questions reuse prior synthesis.
// Returns (nil, false) only when every provider tier failed; (audio, true)
// otherwise.
func (s *SpeechService) Synthesize(ctx context.Context, text string) ([]byte, bool) {
	sum := sha256.Sum256([]byte(text))
	key := config.CacheKey.AudioCacheKey(hex.EncodeToString(sum[:]))

	if cached, err := s.rdb.Get(ctx, key).Bytes(); err == nil && len(cached) > 0 {
		return cached, true
	}

	audio, err := resilience.Execute(ctx, s.ttsChain, func(ctx context.Context, p tts.Provider) ([]byte, error) {
		return p.Synthesize(ctx, text)
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("synthesis unavailable, degrading to text-only")
		return nil, false
	}

	if err := s.rdb.Set(ctx, key, audio, s.audioTTL).Err(); err != nil {
		s.log.Warn().Err(err).Msg("failed to cache synthesized audio")
	}
	return audio, true
}

// Transcribe converts recorded audio to text, retrying the chain once.
func (s *SpeechService) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	transcript, err := resilience.Execute(ctx, s.sttChain, func(ctx context.Context, p stt.Provider) (string, error) {
		return p.Transcribe(ctx, audio, mimeType)
	})
	if err == nil {
		return transcript, nil
	}
	if ctx.Err() != nil {
		return "", err
	}

	s.log.Warn().Err(err).Msg("transcription failed, retrying once")
	return resilience.Execute(ctx, s.sttChain, func(ctx context.Context, p stt.Provider) (string, error) {
		return p.Transcribe(ctx, audio, mimeType)
	})
}
