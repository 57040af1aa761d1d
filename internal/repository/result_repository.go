package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cettopper/exam-portal/internal/model"
)

// ResultRepository handles result data access. Results are append-only.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Create stores a result and its per-question answers atomically.
func (r *ResultRepository) Create(ctx context.Context, res *model.Result) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO results (user_id, test_id, attempt_id, score, total_marks, correct_count,
		                      total_questions, unanswered_count, accuracy, time_taken_seconds,
		                      violation_count, reason)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id, completed_at`,
		res.UserID, res.TestID, res.AttemptID, res.Score, res.TotalMarks, res.CorrectCount,
		res.TotalQuestions, res.UnansweredCount, res.Accuracy, res.TimeTakenSeconds,
		res.ViolationCount, res.Reason,
	).Scan(&res.ID, &res.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}

	if len(res.Answers) > 0 {
		rows := make([][]interface{}, 0, len(res.Answers))
		for _, a := range res.Answers {
			rows = append(rows, []interface{}{res.ID, a.QuestionID, a.Position, a.SelectedOption, a.IsCorrect})
		}
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"result_answers"},
			[]string{"result_id", "question_id", "position", "selected_option", "is_correct"},
			pgx.CopyFromRows(rows),
		); err != nil {
			return fmt.Errorf("copy answers: %w", err)
		}
	}

	return tx.Commit(ctx)
}

const resultListSelect = `
	SELECT r.id, r.user_id, COALESCE(u.name, 'Unknown Student'), COALESCE(u.email, ''),
	       r.test_id, COALESCE(t.title, 'Deleted Test'), r.score, r.total_marks, r.accuracy,
	       r.time_taken_seconds, r.violation_count, r.reason, r.completed_at
	FROM results r
	LEFT JOIN users u ON u.id = r.user_id
	LEFT JOIN tests t ON t.id = r.test_id`

// ListRecent returns the newest results across all users.
func (r *ResultRepository) ListRecent(ctx context.Context, limit int) ([]model.ResultListItem, error) {
	return r.list(ctx, resultListSelect+` ORDER BY r.completed_at DESC LIMIT $1`, limit)
}

// ListByUser returns a user's own results, newest first.
func (r *ResultRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.ResultListItem, error) {
	return r.list(ctx, resultListSelect+` WHERE r.user_id = $1 ORDER BY r.completed_at DESC`, userID)
}

// ListByTest returns every result for a test, best score first.
func (r *ResultRepository) ListByTest(ctx context.Context, testID uuid.UUID) ([]model.ResultListItem, error) {
	return r.list(ctx, resultListSelect+` WHERE r.test_id = $1 ORDER BY r.score DESC, r.completed_at`, testID)
}

func (r *ResultRepository) list(ctx context.Context, query string, args ...interface{}) ([]model.ResultListItem, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.ResultListItem
	for rows.Next() {
		var it model.ResultListItem
		if err := rows.Scan(&it.ID, &it.UserID, &it.StudentName, &it.StudentEmail,
			&it.TestID, &it.TestTitle, &it.Score, &it.TotalMarks, &it.Accuracy,
			&it.TimeTakenSeconds, &it.ViolationCount, &it.Reason, &it.CompletedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
