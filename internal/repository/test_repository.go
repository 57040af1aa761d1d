package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cettopper/exam-portal/internal/model"
)

// TestRepository handles test and question data access.
type TestRepository struct {
	pool *pgxpool.Pool
}

// NewTestRepository creates a new TestRepository.
func NewTestRepository(pool *pgxpool.Pool) *TestRepository {
	return &TestRepository{pool: pool}
}

// GetByID retrieves a test with its ordered questions, answer key included.
func (r *TestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	t := &model.Test{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, category, subject, total_marks, duration_minutes,
		        difficulty, is_published, created_at
		 FROM tests WHERE id = $1`, id,
	).Scan(&t.ID, &t.Title, &t.Category, &t.Subject, &t.TotalMarks, &t.DurationMinutes,
		&t.Difficulty, &t.IsPublished, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	questions, err := r.listQuestions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	t.Questions = questions
	t.QuestionCount = len(questions)
	return t, nil
}

func (r *TestRepository) listQuestions(ctx context.Context, testID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, position, text, options, correct_index, marks, explanation
		 FROM questions WHERE test_id = $1
		 ORDER BY position`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var (
			q       model.Question
			options []byte
		)
		if err := rows.Scan(&q.ID, &q.Position, &q.Text, &options, &q.CorrectIndex, &q.Marks, &q.Explanation); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("decode options of question %s: %w", q.ID, err)
		}
		q.TestID = testID
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ListPublished returns published tests without questions, newest first.
func (r *TestRepository) ListPublished(ctx context.Context) ([]model.Test, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT t.id, t.title, t.category, t.subject, t.total_marks, t.duration_minutes,
		        t.difficulty, t.is_published, t.created_at,
		        (SELECT COUNT(*) FROM questions q WHERE q.test_id = t.id)
		 FROM tests t
		 WHERE t.is_published
		 ORDER BY t.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tests []model.Test
	for rows.Next() {
		var t model.Test
		if err := rows.Scan(&t.ID, &t.Title, &t.Category, &t.Subject, &t.TotalMarks, &t.DurationMinutes,
			&t.Difficulty, &t.IsPublished, &t.CreatedAt, &t.QuestionCount); err != nil {
			return nil, err
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}

// Create inserts a test and its questions in one transaction. IDs and
// created_at are written back into t.
func (r *TestRepository) Create(ctx context.Context, t *model.Test) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO tests (title, category, subject, total_marks, duration_minutes, difficulty, is_published)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		t.Title, t.Category, t.Subject, t.TotalMarks, t.DurationMinutes, t.Difficulty, t.IsPublished,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert test: %w", err)
	}

	batch := &pgx.Batch{}
	for i := range t.Questions {
		q := &t.Questions[i]
		options, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("encode options: %w", err)
		}
		q.TestID = t.ID
		q.Position = i
		batch.Queue(
			`INSERT INTO questions (test_id, position, text, options, correct_index, marks, explanation)
			 VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7)
			 RETURNING id`,
			t.ID, i, q.Text, string(options), q.CorrectIndex, q.Marks, q.Explanation,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for i := range t.Questions {
		if err := br.QueryRow().Scan(&t.Questions[i].ID); err != nil {
			br.Close()
			return fmt.Errorf("insert question %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	t.QuestionCount = len(t.Questions)
	return tx.Commit(ctx)
}

// Delete removes a test; its questions cascade. Results are kept.
func (r *TestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
