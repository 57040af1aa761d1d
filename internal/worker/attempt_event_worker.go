package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cettopper/exam-portal/internal/config"
	"github.com/cettopper/exam-portal/internal/model"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// EventSink stores audit events. Implemented by
// repository.AttemptEventRepository.
type EventSink interface {
	CopyEvents(ctx context.Context, events []*model.AttemptEvent) error
	InsertEvent(ctx context.Context, e *model.AttemptEvent) error
}

// AttemptEventWorker drains the attempt audit queue into PostgreSQL in batches.
type AttemptEventWorker struct {
	sink EventSink
	rdb  *redis.Client
	log  zerolog.Logger

	batchSize    int
	batchTimeout time.Duration
	backoff      time.Duration
}

func NewAttemptEventWorker(sink EventSink, rdb *redis.Client, log zerolog.Logger) *AttemptEventWorker {
	return &AttemptEventWorker{
		sink:         sink,
		rdb:          rdb,
		log:          log.With().Str("component", "attempt_event_worker").Logger(),
		batchSize:    BatchSize,
		batchTimeout: BatchTimeout,
		backoff:      2 * time.Second,
	}
}

// Start blocks until ctx is cancelled, then flushes what it holds.
func (w *AttemptEventWorker) Start(ctx context.Context) {
	w.log.Info().Msg("AttemptEventWorker started")

	buffer := make([]*model.AttemptEvent, 0, w.batchSize)
	lastFlushTime := time.Now()

	for {
		// 1. Flush on size or age
		if len(buffer) > 0 {
			if len(buffer) >= w.batchSize || time.Since(lastFlushTime) >= w.batchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0]
				lastFlushTime = time.Now()
			}
		}

		// 2. Graceful shutdown
		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		// 3. Fetch from Redis. BLPop returns immediately if data exists.
		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistAttemptEventsQueue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				continue // next iteration shuts down
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping")
			w.sleep(ctx, w.backoff)
			continue
		}

		if len(result) < 2 {
			continue
		}

		var event model.AttemptEvent
		if err := json.Unmarshal([]byte(result[1]), &event); err != nil {
			// Malformed JSON can never succeed; drop it.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed attempt event")
			continue
		}
		buffer = append(buffer, &event)
	}
}

// flushSafe tries a bulk COPY, then row-by-row inserts, then requeues.
func (w *AttemptEventWorker) flushSafe(ctx context.Context, batch []*model.AttemptEvent) {
	if err := w.sink.CopyEvents(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, batch)
		return
	}
	w.log.Debug().Int("count", len(batch)).Msg("Attempt events flushed")
}

func (w *AttemptEventWorker) fallbackInsert(ctx context.Context, batch []*model.AttemptEvent) {
	var requeueList []*model.AttemptEvent
	for _, e := range batch {
		if err := w.sink.InsertEvent(ctx, e); err != nil {
			w.log.Error().Err(err).Str("result_id", e.ResultID.String()).Msg("Insert failed, requeueing")
			requeueList = append(requeueList, e)
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *AttemptEventWorker) requeue(ctx context.Context, items []*model.AttemptEvent) {
	pipe := w.rdb.Pipeline()
	for _, e := range items {
		data, _ := json.Marshal(e)
		pipe.RPush(ctx, config.WorkerKey.PersistAttemptEventsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Int("count", len(items)).Msg("CRITICAL: Failed to requeue attempt events. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed attempt events")
	// Avoid thrashing while the database is down.
	w.sleep(ctx, w.backoff)
}

func (w *AttemptEventWorker) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (w *AttemptEventWorker) shutdown(buffer []*model.AttemptEvent) {
	w.log.Info().Int("pending", len(buffer)).Msg("Worker stopping, flushing remaining buffer...")

	// Give it 5 seconds to flush to DB
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}
