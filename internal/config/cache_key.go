package config

import (
	"fmt"

	"github.com/google/uuid"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// TestPaperKey returns the cache key for a test's student-facing paper.
func (r *CacheKeyStruct) TestPaperKey(testID uuid.UUID) string {
	return fmt.Sprintf("test:%s:paper", testID)
}

// TestAnswerKey returns the cache key for a test's answer key.
func (r *CacheKeyStruct) TestAnswerKey(testID uuid.UUID) string {
	return fmt.Sprintf("test:%s:key", testID)
}

// PublishedTestsKey holds the cached catalogue of published tests.
func (r *CacheKeyStruct) PublishedTestsKey() string {
	return "tests:published"
}

// AttemptSummaryKey returns the idempotency key for a scored attempt.
// Scoped by user so one user cannot replay another user's attempt id.
func (r *CacheKeyStruct) AttemptSummaryKey(userID, attemptID uuid.UUID) string {
	return fmt.Sprintf("user:%s:attempt:%s:summary", userID, attemptID)
}

// ResultsChannel is the Redis PubSub channel carrying freshly scored results.
func (r *CacheKeyStruct) ResultsChannel() string {
	return "results:live"
}

var CacheKey = NewCacheKeyStruct()
