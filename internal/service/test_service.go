package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cettopper/exam-portal/internal/config"
	"github.com/cettopper/exam-portal/internal/model"
	"github.com/cettopper/exam-portal/internal/repository"
)

// Catalog errors.
var (
	ErrTestNotFound     = errors.New("test not found")
	ErrNoQuestions      = errors.New("test has no questions")
	ErrInvalidAnswerKey = errors.New("correct index outside option list")
)

const (
	answerKeyTotalField = "total_marks"
	publishedListTTL    = time.Minute
	prewarmConcurrency  = 4
)

// TestService owns the test catalog and its Redis fast lane: the stripped
// paper served to students and the answer key read by scoring.
type TestService struct {
	tests                  TestStore
	rdb                    *redis.Client
	defaultDurationMinutes int
	defaultQuestionMarks   int
	log                    zerolog.Logger
}

// NewTestService creates a new TestService.
func NewTestService(tests TestStore, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *TestService {
	return &TestService{
		tests:                  tests,
		rdb:                    rdb,
		defaultDurationMinutes: cfg.DefaultDurationMinutes,
		defaultQuestionMarks:   cfg.DefaultQuestionMarks,
		log:                    log.With().Str("component", "test_service").Logger(),
	}
}

// ListPublished returns published tests without their questions.
func (s *TestService) ListPublished(ctx context.Context) ([]model.Test, error) {
	key := config.CacheKey.PublishedTestsKey()
	if data, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
		var tests []model.Test
		if err := json.Unmarshal(data, &tests); err == nil {
			return tests, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("Published list cache unavailable, reading PostgreSQL")
	}

	tests, err := s.tests.ListPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("list published tests: %w", err)
	}
	if tests == nil {
		tests = []model.Test{}
	}

	if data, err := json.Marshal(tests); err == nil {
		if err := s.rdb.Set(ctx, key, data, publishedListTTL).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to cache published list")
		}
	}
	return tests, nil
}

// GetPaper returns the student-facing paper of a published test.
func (s *TestService) GetPaper(ctx context.Context, testID uuid.UUID) (*model.TestPaper, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.TestPaperKey(testID)).Bytes()
	switch {
	case err == nil:
		var paper model.TestPaper
		if err := json.Unmarshal(data, &paper); err == nil {
			return &paper, nil
		}
		s.log.Warn().Str("test_id", testID.String()).Msg("Discarding undecodable cached paper")
	case !errors.Is(err, redis.Nil):
		s.log.Warn().Err(err).Str("test_id", testID.String()).Msg("Paper cache unavailable, reading PostgreSQL")
	}

	test, err := s.loadPublished(ctx, testID)
	if err != nil {
		return nil, err
	}
	if err := s.WarmCache(ctx, test); err != nil {
		s.log.Warn().Err(err).Str("test_id", testID.String()).Msg("Failed to warm cache after miss")
	}
	return test.Paper(), nil
}

// GetAnswerKey returns the grading view of a published test. The Redis hash
// is tried first; a miss or a damaged entry falls back to PostgreSQL and
// rewrites the cache.
func (s *TestService) GetAnswerKey(ctx context.Context, testID uuid.UUID) (*model.AnswerKey, error) {
	fields, err := s.rdb.HGetAll(ctx, config.CacheKey.TestAnswerKey(testID)).Result()
	if err != nil {
		s.log.Warn().Err(err).Str("test_id", testID.String()).Msg("Answer key cache unavailable, reading PostgreSQL")
	} else if len(fields) > 0 {
		if key, ok := decodeAnswerKey(testID, fields); ok {
			return key, nil
		}
		s.log.Warn().Str("test_id", testID.String()).Msg("Discarding damaged cached answer key")
	}

	test, err := s.loadPublished(ctx, testID)
	if err != nil {
		return nil, err
	}
	if err := s.WarmCache(ctx, test); err != nil {
		s.log.Warn().Err(err).Str("test_id", testID.String()).Msg("Failed to warm cache after miss")
	}
	return test.AnswerKey(), nil
}

func (s *TestService) loadPublished(ctx context.Context, testID uuid.UUID) (*model.Test, error) {
	test, err := s.tests.GetByID(ctx, testID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("get test: %w", err)
	}
	if !test.IsPublished {
		return nil, ErrTestNotFound
	}
	return test, nil
}

// WarmCache writes a test's paper and answer key to Redis in one MULTI.
func (s *TestService) WarmCache(ctx context.Context, test *model.Test) error {
	paper, err := json.Marshal(test.Paper())
	if err != nil {
		return fmt.Errorf("marshal paper: %w", err)
	}

	key := test.AnswerKey()
	fields := make(map[string]interface{}, len(key.Entries)+1)
	fields[answerKeyTotalField] = key.TotalMarks
	for i, e := range key.Entries {
		entry, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal answer key entry: %w", err)
		}
		fields[strconv.Itoa(i)] = entry
	}

	keyName := config.CacheKey.TestAnswerKey(test.ID)
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, config.CacheKey.TestPaperKey(test.ID), paper, 0)
		pipe.Del(ctx, keyName)
		pipe.HSet(ctx, keyName, fields)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("test_id", test.ID.String()).
		Int("questions", len(test.Questions)).
		Msg("Cache warmed")
	return nil
}

func decodeAnswerKey(testID uuid.UUID, fields map[string]string) (*model.AnswerKey, bool) {
	total, err := strconv.Atoi(fields[answerKeyTotalField])
	if err != nil {
		return nil, false
	}

	entries := make([]model.AnswerKeyEntry, len(fields)-1)
	for i := range entries {
		raw, ok := fields[strconv.Itoa(i)]
		if !ok {
			return nil, false
		}
		if err := json.Unmarshal([]byte(raw), &entries[i]); err != nil {
			return nil, false
		}
	}
	return &model.AnswerKey{TestID: testID, TotalMarks: total, Entries: entries}, true
}

// Evict drops every cached view of a test.
func (s *TestService) Evict(ctx context.Context, testID uuid.UUID) error {
	return s.rdb.Del(ctx,
		config.CacheKey.TestPaperKey(testID),
		config.CacheKey.TestAnswerKey(testID),
		config.CacheKey.PublishedTestsKey(),
	).Err()
}

// Create authors a test. Correct indexes are checked against each option
// list here, so scoring can trust the stored key.
func (s *TestService) Create(ctx context.Context, req *model.CreateTestRequest) (*model.Test, error) {
	if len(req.Questions) == 0 {
		return nil, ErrNoQuestions
	}

	test := &model.Test{
		Title:           req.Title,
		Category:        req.Category,
		Subject:         req.Subject,
		TotalMarks:      req.TotalMarks,
		DurationMinutes: req.DurationMinutes,
		Difficulty:      req.Difficulty,
		IsPublished:     req.IsPublished == nil || *req.IsPublished,
		Questions:       make([]model.Question, len(req.Questions)),
	}
	if test.DurationMinutes == 0 {
		test.DurationMinutes = s.defaultDurationMinutes
	}
	if test.Difficulty == "" {
		test.Difficulty = model.DifficultyMedium
	}

	sum := 0
	for i, q := range req.Questions {
		if q.CorrectIndex == nil || *q.CorrectIndex < 0 || *q.CorrectIndex >= len(q.Options) {
			return nil, fmt.Errorf("%w: question %d", ErrInvalidAnswerKey, i)
		}
		marks := q.Marks
		if marks == 0 {
			marks = s.defaultQuestionMarks
		}
		test.Questions[i] = model.Question{
			Position:     i,
			Text:         q.Text,
			Options:      q.Options,
			CorrectIndex: *q.CorrectIndex,
			Marks:        marks,
			Explanation:  q.Explanation,
		}
		sum += marks
	}
	if test.TotalMarks == 0 {
		test.TotalMarks = sum
	}

	if err := s.tests.Create(ctx, test); err != nil {
		return nil, fmt.Errorf("create test: %w", err)
	}

	if test.IsPublished {
		if err := s.WarmCache(ctx, test); err != nil {
			s.log.Warn().Err(err).Str("test_id", test.ID.String()).Msg("Failed to warm cache for new test")
		}
	}
	if err := s.rdb.Del(ctx, config.CacheKey.PublishedTestsKey()).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to invalidate published list")
	}

	s.log.Info().
		Str("test_id", test.ID.String()).
		Int("questions", len(test.Questions)).
		Bool("published", test.IsPublished).
		Msg("Test created")
	return test, nil
}

// Delete removes a test. Results already recorded against it are kept.
func (s *TestService) Delete(ctx context.Context, testID uuid.UUID) error {
	if err := s.tests.Delete(ctx, testID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTestNotFound
		}
		return fmt.Errorf("delete test: %w", err)
	}
	if err := s.Evict(ctx, testID); err != nil {
		s.log.Warn().Err(err).Str("test_id", testID.String()).Msg("Failed to evict deleted test")
	}
	s.log.Info().Str("test_id", testID.String()).Msg("Test deleted")
	return nil
}

// PrewarmAllCaches loads every published test into Redis before the server
// accepts traffic. Individual failures are logged and skipped.
func (s *TestService) PrewarmAllCaches(ctx context.Context) error {
	tests, err := s.tests.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published tests: %w", err)
	}
	if len(tests) == 0 {
		s.log.Info().Msg("No published tests to prewarm")
		return nil
	}

	s.log.Info().Int("count", len(tests)).Msg("Prewarming published tests...")

	var warmed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(prewarmConcurrency)
	for _, t := range tests {
		id := t.ID
		g.Go(func() error {
			test, err := s.tests.GetByID(gctx, id)
			if err == nil {
				err = s.WarmCache(gctx, test)
			}
			if err != nil {
				s.log.Warn().Err(err).Str("test_id", id.String()).Msg("Failed to warm test, skipping")
				return nil
			}
			warmed.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	s.log.Info().
		Int64("warmed", warmed.Load()).
		Int("total", len(tests)).
		Msg("Prewarming complete")
	return nil
}
