package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/quizforge/quizforge-backend/internal/config"
	"github.com/quizforge/quizforge-backend/internal/model"
	"github.com/quizforge/quizforge-backend/internal/repository"
	"github.com/quizforge/quizforge-backend/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	ResultBatchSize    = 50
	ResultBatchTimeout = 2 * time.Second
	ResultPollTimeout  = 1 * time.Second
)

// ResultWorker drains the persist queue of submitted attempt results and
// writes them to PostgreSQL in batches. A failed batch is requeued item by
// item: a completed attempt must never be lost.
type ResultWorker struct {
	attemptRepo *repository.AttemptRepository
	rdb         *redis.Client
	kv          store.KV
	log         zerolog.Logger
}

// NewResultWorker creates a new ResultWorker.
func NewResultWorker(attemptRepo *repository.AttemptRepository, rdb *redis.Client, kv store.KV, log zerolog.Logger) *ResultWorker {
	return &ResultWorker{
		attemptRepo: attemptRepo,
		rdb:         rdb,
		kv:          kv,
		log:         log.With().Str("component", "result_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultWorker started")

	batch := make([]*model.AttemptResult, 0, ResultBatchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= ResultBatchSize || time.Since(lastFlush) >= ResultBatchTimeout) {

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
			item, err := w.rdb.BLPop(ctx, ResultPollTimeout, config.WorkerKey.PersistResultsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var result model.AttemptResult
			if err := json.Unmarshal([]byte(item[1]), &result); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &result)
		}
	}
}

// ----------------------------------------------------------------
// Batch insert with per-item fallback
// ----------------------------------------------------------------

func (w *ResultWorker) flushSafe(ctx context.Context, batch []*model.AttemptResult) {
	if len(batch) == 0 {
		return
	}

	err := w.attemptRepo.CreateBatch(ctx, batch)
	if err == nil {
		w.clearPending(ctx, batch)
		return
	}
	w.log.Warn().Err(err).Int("size", len(batch)).Msg("Batch insert failed, using fallback")

	for _, result := range batch {
		if err := w.attemptRepo.Create(ctx, result); err != nil {
			w.log.Error().Err(err).Str("attempt_id", result.ID.String()).Msg("Single insert failed, requeueing")
			raw, marshalErr := json.Marshal(result)
			if marshalErr != nil {
				continue
			}
			w.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw)
			continue
		}
		w.kv.Delete(ctx, store.ResultsCollection, result.ID.String())
	}
}

// clearPending removes landed results from the fresh-results collection.
func (w *ResultWorker) clearPending(ctx context.Context, batch []*model.AttemptResult) {
	for _, result := range batch {
		if err := w.kv.Delete(ctx, store.ResultsCollection, result.ID.String()); err != nil {
			w.log.Warn().Err(err).Str("attempt_id", result.ID.String()).Msg("Failed to clear pending result")
		}
	}
}
