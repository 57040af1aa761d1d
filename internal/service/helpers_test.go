package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/cettopper/exam-portal/internal/config"
	"github.com/cettopper/exam-portal/internal/model"
	"github.com/cettopper/exam-portal/internal/repository"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:              "test-secret",
		JWTExpiry:              time.Hour,
		BcryptCost:             bcrypt.MinCost,
		AttemptIdempotencyTTL:  time.Hour,
		AdminResultsLimit:      100,
		DefaultDurationMinutes: 180,
		DefaultQuestionMarks:   2,
		MaxViolations:          3,
	}
}

// fakeTests is an in-memory TestStore.
type fakeTests struct {
	mu       sync.Mutex
	tests    map[uuid.UUID]*model.Test
	getCalls int
}

func newFakeTests(tests ...*model.Test) *fakeTests {
	f := &fakeTests{tests: make(map[uuid.UUID]*model.Test)}
	for _, t := range tests {
		f.tests[t.ID] = t
	}
	return f
}

func (f *fakeTests) GetByID(_ context.Context, id uuid.UUID) (*model.Test, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	t, ok := f.tests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	cp.Questions = append([]model.Question(nil), t.Questions...)
	return &cp, nil
}

func (f *fakeTests) ListPublished(_ context.Context) ([]model.Test, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Test
	for _, t := range f.tests {
		if t.IsPublished {
			cp := *t
			cp.Questions = nil
			cp.QuestionCount = len(t.Questions)
			out = append(out, cp)
		}
	}
	return out, nil
}

func (f *fakeTests) Create(_ context.Context, t *model.Test) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = uuid.New()
	t.CreatedAt = time.Now()
	for i := range t.Questions {
		t.Questions[i].ID = uuid.New()
		t.Questions[i].TestID = t.ID
	}
	stored := *t
	stored.Questions = append([]model.Question(nil), t.Questions...)
	f.tests[t.ID] = &stored
	return nil
}

func (f *fakeTests) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tests[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.tests, id)
	return nil
}

func (f *fakeTests) gets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls
}

// fakeResults is an in-memory ResultStore.
type fakeResults struct {
	mu      sync.Mutex
	created []*model.Result
	err     error
}

func (f *fakeResults) Create(_ context.Context, r *model.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	r.ID = uuid.New()
	r.CompletedAt = time.Now().UTC()
	f.created = append(f.created, r)
	return nil
}

func (f *fakeResults) items(match func(*model.Result) bool) []model.ResultListItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ResultListItem
	for _, r := range f.created {
		if !match(r) {
			continue
		}
		out = append(out, model.ResultListItem{
			ID:               r.ID,
			UserID:           r.UserID,
			StudentName:      "Student " + r.UserID.String()[:4],
			TestID:           r.TestID,
			TestTitle:        "Mock Test",
			Score:            r.Score,
			TotalMarks:       r.TotalMarks,
			Accuracy:         r.Accuracy,
			TimeTakenSeconds: r.TimeTakenSeconds,
			ViolationCount:   r.ViolationCount,
			Reason:           r.Reason,
			CompletedAt:      r.CompletedAt,
		})
	}
	return out
}

func (f *fakeResults) ListRecent(_ context.Context, limit int) ([]model.ResultListItem, error) {
	items := f.items(func(*model.Result) bool { return true })
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (f *fakeResults) ListByUser(_ context.Context, userID uuid.UUID) ([]model.ResultListItem, error) {
	return f.items(func(r *model.Result) bool { return r.UserID == userID }), nil
}

func (f *fakeResults) ListByTest(_ context.Context, testID uuid.UUID) ([]model.ResultListItem, error) {
	return f.items(func(r *model.Result) bool { return r.TestID == testID }), nil
}

func (f *fakeResults) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

// threeQuestionTest has correct answers 1, 0, 2 and two marks each.
func threeQuestionTest() *model.Test {
	return &model.Test{
		ID:              uuid.New(),
		Title:           "Physics Chapter 1",
		Category:        model.CategoryChapter,
		TotalMarks:      6,
		DurationMinutes: 30,
		Difficulty:      model.DifficultyMedium,
		IsPublished:     true,
		Questions: []model.Question{
			{ID: uuid.New(), Text: "q0", Options: []string{"a", "b", "c", "d"}, CorrectIndex: 1, Marks: 2},
			{ID: uuid.New(), Text: "q1", Options: []string{"a", "b", "c", "d"}, CorrectIndex: 0, Marks: 2},
			{ID: uuid.New(), Text: "q2", Options: []string{"a", "b", "c", "d"}, CorrectIndex: 2, Marks: 2},
		},
	}
}

var nopLog = zerolog.Nop()
