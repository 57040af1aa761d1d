package model

import (
	"github.com/google/uuid"
)

// Question is a single multiple-choice item. CorrectIndex never leaves the
// server through JSON; scoring reads it through AnswerKey.
type Question struct {
	ID           uuid.UUID `json:"id"`
	TestID       uuid.UUID `json:"test_id"`
	Position     int       `json:"position"`
	Text         string    `json:"text"`
	Options      []string  `json:"options"`
	CorrectIndex int       `json:"-"`
	Marks        int       `json:"marks"`
	Explanation  string    `json:"-"`
}

// QuestionForStudent is a question without the correct answer, sent to students.
type QuestionForStudent struct {
	ID       uuid.UUID `json:"id"`
	Position int       `json:"position"`
	Text     string    `json:"text"`
	Options  []string  `json:"options"`
	Marks    int       `json:"marks"`
}

// CreateQuestionRequest is one question inside CreateTestRequest.
type CreateQuestionRequest struct {
	Text         string   `json:"text" yaml:"text" binding:"required,min=1,max=4000"`
	Options      []string `json:"options" yaml:"options" binding:"required,min=2,max=10,dive,required"`
	CorrectIndex *int     `json:"correct_index" yaml:"correct_index" binding:"required,min=0"`
	Marks        int      `json:"marks" yaml:"marks" binding:"omitempty,min=1,max=100"`
	Explanation  string   `json:"explanation" yaml:"explanation" binding:"omitempty,max=4000"`
}
