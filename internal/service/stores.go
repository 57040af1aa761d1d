package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/cettopper/exam-portal/internal/model"
)

// TestStore is the persistence the catalog needs. Implemented by
// repository.TestRepository.
type TestStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error)
	ListPublished(ctx context.Context) ([]model.Test, error)
	Create(ctx context.Context, t *model.Test) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ResultStore is the persistence for scored attempts. Implemented by
// repository.ResultRepository.
type ResultStore interface {
	Create(ctx context.Context, r *model.Result) error
	ListRecent(ctx context.Context, limit int) ([]model.ResultListItem, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.ResultListItem, error)
	ListByTest(ctx context.Context, testID uuid.UUID) ([]model.ResultListItem, error)
}

// AnswerKeySource supplies the authoritative grading data for a test.
type AnswerKeySource interface {
	GetAnswerKey(ctx context.Context, testID uuid.UUID) (*model.AnswerKey, error)
}
