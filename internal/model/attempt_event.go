package model

import "github.com/google/uuid"

// AttemptEvent is the audit row queued for every accepted submission.
type AttemptEvent struct {
	ResultID         uuid.UUID    `json:"result_id"`
	UserID           uuid.UUID    `json:"user_id"`
	TestID           uuid.UUID    `json:"test_id"`
	Reason           SubmitReason `json:"reason"`
	ViolationCount   int          `json:"violation_count"`
	TimeTakenSeconds int          `json:"time_taken_seconds"`
	Timestamp        int64        `json:"timestamp"`
}
