package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cettopper/exam-portal/internal/config"
	"github.com/cettopper/exam-portal/internal/model"
)

// Scoring errors.
var (
	ErrInvalidAnswer     = errors.New("invalid answer")
	ErrAttemptInProgress = errors.New("attempt is already being scored")
	ErrAttemptReused     = errors.New("attempt id already used for another test")
)

// ResultWriter persists a scored attempt.
type ResultWriter interface {
	Create(ctx context.Context, r *model.Result) error
}

// ScoringService grades submissions against the authoritative answer key and
// records one immutable Result per accepted submission.
type ScoringService struct {
	keys           AnswerKeySource
	results        ResultWriter
	rdb            *redis.Client
	idempotencyTTL time.Duration
	log            zerolog.Logger
	now            func() time.Time
}

// NewScoringService creates a new ScoringService.
func NewScoringService(keys AnswerKeySource, results ResultWriter, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *ScoringService {
	return &ScoringService{
		keys:           keys,
		results:        results,
		rdb:            rdb,
		idempotencyTTL: cfg.AttemptIdempotencyTTL,
		log:            log.With().Str("component", "scoring_service").Logger(),
		now:            time.Now,
	}
}

// Submit scores a payload for userID. When the payload carries an attemptId,
// a retry of an already scored attempt returns the stored summary without
// writing a second Result.
func (s *ScoringService) Submit(ctx context.Context, userID uuid.UUID, p *model.SubmissionPayload) (*model.SubmissionSummary, error) {
	if p.AttemptID == nil {
		return s.score(ctx, userID, p)
	}

	attemptID := *p.AttemptID
	stored, claimed, err := s.claimAttempt(ctx, userID, attemptID, p.TestID)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		s.log.Info().
			Str("user_id", userID.String()).
			Str("attempt_id", attemptID.String()).
			Msg("Replaying stored summary for retried attempt")
		return stored, nil
	}

	summary, err := s.score(ctx, userID, p)
	if claimed {
		if err != nil {
			s.releaseAttempt(ctx, userID, attemptID)
		} else {
			s.rememberAttempt(ctx, userID, attemptID, p.TestID, summary)
		}
	}
	return summary, err
}

func (s *ScoringService) score(ctx context.Context, userID uuid.UUID, p *model.SubmissionPayload) (*model.SubmissionSummary, error) {
	key, err := s.keys.GetAnswerKey(ctx, p.TestID)
	if err != nil {
		return nil, err
	}
	if err := ValidateAnswers(key, p.UserAnswers); err != nil {
		return nil, err
	}

	card := Score(key, p.UserAnswers)

	reason := p.Reason
	if reason == "" {
		reason = model.ReasonManual
	}

	res := &model.Result{
		UserID:           userID,
		TestID:           p.TestID,
		AttemptID:        p.AttemptID,
		Score:            card.Score,
		TotalMarks:       key.TotalMarks,
		CorrectCount:     card.CorrectCount,
		TotalQuestions:   card.TotalQuestions,
		UnansweredCount:  card.UnansweredCount,
		Accuracy:         card.Accuracy,
		TimeTakenSeconds: p.TimeTaken,
		ViolationCount:   p.ViolationCount,
		Reason:           reason,
		Answers:          card.Details,
	}
	if err := s.results.Create(ctx, res); err != nil {
		return nil, fmt.Errorf("persist result: %w", err)
	}
	if res.CompletedAt.IsZero() {
		res.CompletedAt = s.now().UTC()
	}

	// The Result is durable; fan-out must not be lost to a client hang-up.
	s.announce(context.WithoutCancel(ctx), res)

	s.log.Info().
		Str("result_id", res.ID.String()).
		Str("user_id", userID.String()).
		Str("test_id", p.TestID.String()).
		Int("score", res.Score).
		Int("violations", res.ViolationCount).
		Str("reason", string(reason)).
		Msg("Submission scored")

	return &model.SubmissionSummary{
		ResultID:        res.ID,
		Score:           res.Score,
		TotalMarks:      res.TotalMarks,
		CorrectCount:    res.CorrectCount,
		TotalQuestions:  res.TotalQuestions,
		UnansweredCount: res.UnansweredCount,
		Accuracy:        res.Accuracy,
	}, nil
}

// announce publishes the live result and queues the audit event.
func (s *ScoringService) announce(ctx context.Context, res *model.Result) {
	event, err := json.Marshal(model.ResultEvent{
		ResultID:       res.ID,
		UserID:         res.UserID,
		TestID:         res.TestID,
		Score:          res.Score,
		TotalMarks:     res.TotalMarks,
		Accuracy:       res.Accuracy,
		ViolationCount: res.ViolationCount,
		Reason:         res.Reason,
		CompletedAt:    res.CompletedAt,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to marshal result event")
		return
	}
	audit, err := json.Marshal(model.AttemptEvent{
		ResultID:         res.ID,
		UserID:           res.UserID,
		TestID:           res.TestID,
		Reason:           res.Reason,
		ViolationCount:   res.ViolationCount,
		TimeTakenSeconds: res.TimeTakenSeconds,
		Timestamp:        res.CompletedAt.Unix(),
	})
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to marshal attempt event")
		return
	}

	pipe := s.rdb.Pipeline()
	pipe.Publish(ctx, config.CacheKey.ResultsChannel(), event)
	pipe.RPush(ctx, config.WorkerKey.PersistAttemptEventsQueue, audit)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Str("result_id", res.ID.String()).Msg("Failed to announce result")
	}
}

// attemptRecord is what an attemptId key holds: the test it was claimed
// for and, once scored, the summary to replay.
type attemptRecord struct {
	TestID  uuid.UUID                `json:"test_id"`
	Pending bool                     `json:"pending,omitempty"`
	Summary *model.SubmissionSummary `json:"summary,omitempty"`
}

// claimRetries bounds how often a claim that vanished between SETNX and GET
// is retried.
const claimRetries = 3

// claimAttempt reserves an attemptId for testID. It returns the stored
// summary when the attempt was already scored, or claimed=true when this
// call owns scoring. A Redis outage degrades to unguarded scoring.
func (s *ScoringService) claimAttempt(ctx context.Context, userID, attemptID, testID uuid.UUID) (*model.SubmissionSummary, bool, error) {
	key := config.CacheKey.AttemptSummaryKey(userID, attemptID)
	pending, err := json.Marshal(attemptRecord{TestID: testID, Pending: true})
	if err != nil {
		return nil, false, fmt.Errorf("encode attempt claim: %w", err)
	}

	for i := 0; i < claimRetries; i++ {
		ok, err := s.rdb.SetNX(ctx, key, pending, s.idempotencyTTL).Result()
		if err != nil {
			s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Idempotency store unavailable, scoring without guard")
			return nil, false, nil
		}
		if ok {
			return nil, true, nil
		}

		raw, err := s.rdb.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			// Released or expired since SETNX; claim again.
			continue
		}
		if err != nil {
			s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Idempotency store unavailable, scoring without guard")
			return nil, false, nil
		}

		var rec attemptRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, false, fmt.Errorf("decode stored attempt: %w", err)
		}
		if rec.TestID != testID {
			return nil, false, ErrAttemptReused
		}
		if rec.Pending || rec.Summary == nil {
			return nil, false, ErrAttemptInProgress
		}
		return rec.Summary, false, nil
	}
	return nil, false, ErrAttemptInProgress
}

func (s *ScoringService) rememberAttempt(ctx context.Context, userID, attemptID, testID uuid.UUID, summary *model.SubmissionSummary) {
	data, err := json.Marshal(attemptRecord{TestID: testID, Summary: summary})
	if err == nil {
		err = s.rdb.Set(context.WithoutCancel(ctx), config.CacheKey.AttemptSummaryKey(userID, attemptID), data, s.idempotencyTTL).Err()
	}
	if err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Failed to store attempt summary")
	}
}

func (s *ScoringService) releaseAttempt(ctx context.Context, userID, attemptID uuid.UUID) {
	if err := s.rdb.Del(context.WithoutCancel(ctx), config.CacheKey.AttemptSummaryKey(userID, attemptID)).Err(); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Failed to release attempt claim")
	}
}
