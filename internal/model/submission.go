package model

import "github.com/google/uuid"

// SubmissionPayload is the single message an attempt sends to be scored.
// UserAnswers maps question position to chosen option; blanks are absent.
type SubmissionPayload struct {
	TestID         uuid.UUID    `json:"testId" binding:"required"`
	UserAnswers    map[int]int  `json:"userAnswers" binding:"answerkeys"`
	TimeTaken      int          `json:"timeTaken" binding:"min=0"`
	ViolationCount int          `json:"violationCount" binding:"min=0"`
	AttemptID      *uuid.UUID   `json:"attemptId,omitempty"`
	Reason         SubmitReason `json:"reason,omitempty" binding:"omitempty,oneof=manual timeout violation"`
}

// SubmissionSummary is returned to the student once the attempt is scored.
type SubmissionSummary struct {
	ResultID        uuid.UUID `json:"resultId"`
	Score           int       `json:"score"`
	TotalMarks      int       `json:"totalMarks"`
	CorrectCount    int       `json:"correctCount"`
	TotalQuestions  int       `json:"totalQuestions"`
	UnansweredCount int       `json:"unansweredCount"`
	Accuracy        float64   `json:"accuracy"`
}
