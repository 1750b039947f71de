package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/certivox/certivox-backend/internal/config"
	"github.com/certivox/certivox-backend/internal/database"
	"github.com/certivox/certivox-backend/internal/handler"
	"github.com/certivox/certivox-backend/internal/logger"
	"github.com/certivox/certivox-backend/internal/provider/llm"
	"github.com/certivox/certivox-backend/internal/provider/llm/anyllm"
	llmopenai "github.com/certivox/certivox-backend/internal/provider/llm/openai"
	"github.com/certivox/certivox-backend/internal/provider/stt"
	"github.com/certivox/certivox-backend/internal/provider/stt/deepgram"
	"github.com/certivox/certivox-backend/internal/provider/stt/whisperapi"
	"github.com/certivox/certivox-backend/internal/provider/tts"
	"github.com/certivox/certivox-backend/internal/provider/tts/elevenlabs"
	"github.com/certivox/certivox-backend/internal/provider/tts/openaispeech"
	"github.com/certivox/certivox-backend/internal/repository"
	"github.com/certivox/certivox-backend/internal/resilience"
	"github.com/certivox/certivox-backend/internal/router"
	"github.com/certivox/certivox-backend/internal/service"
	"github.com/certivox/certivox-backend/internal/validator"
	"github.com/certivox/certivox-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Certivox Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	traineeRepo := repository.NewTraineeRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)
	moduleRepo := repository.NewModuleRepository(pool)
	progressRepo := repository.NewProgressRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	analyticsRepo := repository.NewAnalyticsRepository(pool)

	// ─── Build Provider Fallback Chains ────────────────────────────────
	chainCfg := resilience.Config{Timeout: cfg.ProviderTimeout}

	ttsChain := buildTTSChain(cfg, chainCfg, log)
	sttChain := buildSTTChain(cfg, chainCfg, log)
	llmChain := buildLLMChain(cfg, chainCfg, log)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	traineeService := service.NewTraineeService(traineeRepo)
	adminService := service.NewAdminService(adminRepo)
	moduleService := service.NewModuleService(moduleRepo, progressRepo)
	eligibilityService := service.NewEligibilityService(moduleRepo, progressRepo)
	selectorService := service.NewSelectorService(llmChain, rdb, log)
	scoringService := service.NewScoringService(llmChain, log)
	speechService := service.NewSpeechService(ttsChain, sttChain, rdb, cfg.AudioCacheTTL, log)
	certService := service.NewCertificationService(
		sessionRepo, moduleRepo,
		eligibilityService, selectorService, scoringService, speechService,
		rdb, cfg.QuestionsPerSession, log,
	)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:          handler.NewAuthHandler(authService, traineeService, adminService),
		Module:        handler.NewModuleHandler(moduleService),
		Certification: handler.NewCertificationHandler(certService, eligibilityService),
		Monitor:       handler.NewMonitorHandler(rdb, moduleService, log, cfg.AllowedOrigins),
		System:        handler.NewSystemHandler(rdb, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	analyticsWorker := worker.NewAnalyticsWorker(analyticsRepo, rdb, log)
	go analyticsWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the worker and wait for its queue to drain.
	workerCancel()
	time.Sleep(2 * time.Second)

	log.Info().Msg("Shutdown complete")
}

// buildTTSChain wires the speech synthesis tiers from configured credentials.
// An empty chain is legal: sessions then run text-only with client speech.
func buildTTSChain(cfg *config.Config, chainCfg resilience.Config, log zerolog.Logger) *resilience.Chain[tts.Provider] {
	chain := resilience.NewChain[tts.Provider]("tts", chainCfg, log)

	if cfg.ElevenLabsAPIKey != "" {
		p, err := elevenlabs.New(cfg.ElevenLabsAPIKey)
		if err != nil {
			log.Warn().Err(err).Msg("ElevenLabs synthesis disabled")
		} else {
			chain.Add(p.Name(), p)
		}
	}
	if cfg.OpenAIAPIKey != "" {
		p, err := openaispeech.New(cfg.OpenAIAPIKey)
		if err != nil {
			log.Warn().Err(err).Msg("OpenAI speech synthesis disabled")
		} else {
			chain.Add(p.Name(), p)
		}
	}

	if chain.Len() == 0 {
		log.Warn().Msg("No synthesis provider configured; questions will be text-only")
	}
	return chain
}

// buildSTTChain wires the transcription tiers from configured credentials.
func buildSTTChain(cfg *config.Config, chainCfg resilience.Config, log zerolog.Logger) *resilience.Chain[stt.Provider] {
	chain := resilience.NewChain[stt.Provider]("stt", chainCfg, log)

	if cfg.OpenAIAPIKey != "" {
		p, err := whisperapi.New(cfg.OpenAIAPIKey)
		if err != nil {
			log.Warn().Err(err).Msg("Whisper transcription disabled")
		} else {
			chain.Add(p.Name(), p)
		}
	}
	if cfg.DeepgramAPIKey != "" {
		p, err := deepgram.New(cfg.DeepgramAPIKey)
		if err != nil {
			log.Warn().Err(err).Msg("Deepgram transcription disabled")
		} else {
			chain.Add(p.Name(), p)
		}
	}

	if chain.Len() == 0 {
		log.Warn().Msg("No transcription provider configured; clients must send transcripts")
	}
	return chain
}

// buildLLMChain wires the generative tiers: the configured any-llm backend
// first, then a direct OpenAI client as a second opinion when keys allow.
func buildLLMChain(cfg *config.Config, chainCfg resilience.Config, log zerolog.Logger) *resilience.Chain[llm.Provider] {
	chain := resilience.NewChain[llm.Provider]("llm", chainCfg, log)

	if cfg.LLMAPIKey != "" || cfg.LLMProvider == "ollama" {
		p, err := anyllm.New(cfg.LLMProvider, cfg.LLMModel, cfg.LLMAPIKey)
		if err != nil {
			log.Warn().Err(err).Str("provider", cfg.LLMProvider).Msg("Primary LLM backend disabled")
		} else {
			chain.Add(p.Name(), p)
		}
	}
	if cfg.OpenAIAPIKey != "" && cfg.LLMProvider != "openai" {
		p, err := llmopenai.New(cfg.OpenAIAPIKey, cfg.LLMModel, cfg.ProviderTimeout)
		if err != nil {
			log.Warn().Err(err).Msg("OpenAI LLM fallback disabled")
		} else {
			chain.Add(p.Name(), p)
		}
	}

	if chain.Len() == 0 {
		log.Warn().Msg("No LLM provider configured; questions and scores fall back to templates and heuristics")
	}
	return chain
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
