package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/certivox/certivox-backend/internal/config"
	"github.com/certivox/certivox-backend/internal/model"
	"github.com/certivox/certivox-backend/internal/repository"
)

const (
	AnalyticsBatchSize    = 50
	AnalyticsBatchTimeout = 2 * time.Second
	AnalyticsPollTimeout  = 1 * time.Second
)

// AnalyticsWorker drains the certification analytics queue and persists
// events to Postgres in batches. Events are best-effort: a permanently
// unwritable event is dropped after one requeue cycle fails, never blocking
// the queue.
type AnalyticsWorker struct {
	repo *repository.AnalyticsRepository
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewAnalyticsWorker(repo *repository.AnalyticsRepository, rdb *redis.Client, log zerolog.Logger) *AnalyticsWorker {
	return &AnalyticsWorker{
		repo: repo,
		rdb:  rdb,
		log:  log.With().Str("component", "analytics_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *AnalyticsWorker) Start(ctx context.Context) {
	w.log.Info().Msg("AnalyticsWorker started")

	batch := make([]model.AnalyticsEvent, 0, AnalyticsBatchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= AnalyticsBatchSize || time.Since(lastFlush) >= AnalyticsBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, AnalyticsPollTimeout, config.WorkerKey.AnalyticsEventsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var e model.AnalyticsEvent
			if err := json.Unmarshal([]byte(item[1]), &e); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, e)
		}
	}
}

// ----------------------------------------------------------------
// Batch insert with single-row fallback
// ----------------------------------------------------------------

func (w *AnalyticsWorker) flushSafe(ctx context.Context, batch []model.AnalyticsEvent) {
	if len(batch) == 0 {
		return
	}

	err := w.repo.BatchInsert(ctx, batch)
	if err == nil {
		return
	}
	w.log.Warn().Err(err).Int("batch", len(batch)).Msg("bulk insert failed, using fallback")

	for _, e := range batch {
		if err := w.repo.Insert(ctx, e); err != nil {
			w.log.Error().Err(err).Str("event_type", e.EventType).Msg("single insert failed — requeueing")
			raw, merr := json.Marshal(e)
			if merr != nil {
				continue
			}
			w.rdb.RPush(ctx, config.WorkerKey.AnalyticsEventsQueue, raw)
		}
	}
}
