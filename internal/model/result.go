package model

import (
	"time"

	"github.com/google/uuid"
)

// SubmitReason records what ended an attempt.
type SubmitReason string

const (
	ReasonManual    SubmitReason = "manual"
	ReasonTimeout   SubmitReason = "timeout"
	ReasonViolation SubmitReason = "violation"
)

// Result is the immutable record of one scored attempt.
type Result struct {
	ID               uuid.UUID      `json:"id"`
	UserID           uuid.UUID      `json:"user_id"`
	TestID           uuid.UUID      `json:"test_id"`
	AttemptID        *uuid.UUID     `json:"attempt_id,omitempty"`
	Score            int            `json:"score"`
	TotalMarks       int            `json:"total_marks"`
	CorrectCount     int            `json:"correct_count"`
	TotalQuestions   int            `json:"total_questions"`
	UnansweredCount  int            `json:"unanswered_count"`
	Accuracy         float64        `json:"accuracy"`
	TimeTakenSeconds int            `json:"time_taken_seconds"`
	ViolationCount   int            `json:"violation_count"`
	Reason           SubmitReason   `json:"reason"`
	Answers          []AnswerDetail `json:"answers,omitempty"`
	CompletedAt      time.Time      `json:"completed_at"`
}

// AnswerDetail is the per-question outcome stored with a Result.
// SelectedOption is nil when the question was left blank.
type AnswerDetail struct {
	QuestionID     uuid.UUID `json:"question_id"`
	Position       int       `json:"position"`
	SelectedOption *int      `json:"selected_option"`
	IsCorrect      bool      `json:"is_correct"`
}

// ResultListItem is a Result joined with the student's and test's names.
type ResultListItem struct {
	ID               uuid.UUID    `json:"id"`
	UserID           uuid.UUID    `json:"user_id"`
	StudentName      string       `json:"student_name"`
	StudentEmail     string       `json:"student_email"`
	TestID           uuid.UUID    `json:"test_id"`
	TestTitle        string       `json:"test_title"`
	Score            int          `json:"score"`
	TotalMarks       int          `json:"total_marks"`
	Accuracy         float64      `json:"accuracy"`
	TimeTakenSeconds int          `json:"time_taken_seconds"`
	ViolationCount   int          `json:"violation_count"`
	Reason           SubmitReason `json:"reason"`
	CompletedAt      time.Time    `json:"completed_at"`
}

// ResultEvent is broadcast on the live results channel after scoring.
type ResultEvent struct {
	ResultID       uuid.UUID    `json:"result_id"`
	UserID         uuid.UUID    `json:"user_id"`
	TestID         uuid.UUID    `json:"test_id"`
	Score          int          `json:"score"`
	TotalMarks     int          `json:"total_marks"`
	Accuracy       float64      `json:"accuracy"`
	ViolationCount int          `json:"violation_count"`
	Reason         SubmitReason `json:"reason"`
	CompletedAt    time.Time    `json:"completed_at"`
}
