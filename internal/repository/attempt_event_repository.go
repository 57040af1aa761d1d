package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cettopper/exam-portal/internal/model"
)

// AttemptEventRepository writes the submission audit trail.
type AttemptEventRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptEventRepository creates a new AttemptEventRepository.
func NewAttemptEventRepository(pool *pgxpool.Pool) *AttemptEventRepository {
	return &AttemptEventRepository{pool: pool}
}

// CopyEvents bulk-inserts events with COPY.
func (r *AttemptEventRepository) CopyEvents(ctx context.Context, events []*model.AttemptEvent) error {
	rows := make([][]interface{}, 0, len(events))
	for _, e := range events {
		rows = append(rows, []interface{}{
			e.ResultID, e.UserID, e.TestID, string(e.Reason), e.ViolationCount, e.TimeTakenSeconds, time.Unix(e.Timestamp, 0),
		})
	}

	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"attempt_events"},
		[]string{"result_id", "user_id", "test_id", "reason", "violation_count", "time_taken_seconds", "recorded_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

// InsertEvent writes a single event.
func (r *AttemptEventRepository) InsertEvent(ctx context.Context, e *model.AttemptEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO attempt_events (result_id, user_id, test_id, reason, violation_count, time_taken_seconds, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ResultID, e.UserID, e.TestID, string(e.Reason), e.ViolationCount, e.TimeTakenSeconds, time.Unix(e.Timestamp, 0),
	)
	return err
}
