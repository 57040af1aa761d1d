package model

import (
	"time"

	"github.com/google/uuid"
)

// TestCategory enumerates the kinds of test a student can browse.
type TestCategory string

const (
	CategoryFullLength TestCategory = "Full Length"
	CategoryUnitTest   TestCategory = "Unit Test"
	CategoryChapter    TestCategory = "Chapter"
	CategorySubject    TestCategory = "Subject"
)

// Difficulty is the advertised difficulty of a test.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Test represents a test entity with its ordered questions.
type Test struct {
	ID              uuid.UUID    `json:"id"`
	Title           string       `json:"title"`
	Category        TestCategory `json:"category"`
	Subject         string       `json:"subject"`
	TotalMarks      int          `json:"total_marks"`
	DurationMinutes int          `json:"duration_minutes"`
	Difficulty      Difficulty   `json:"difficulty"`
	IsPublished     bool         `json:"is_published"`
	QuestionCount   int          `json:"question_count"`
	Questions       []Question   `json:"questions,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
}

// CreateTestRequest is the payload for authoring a test. The same shape is
// read from YAML by `portal import`.
type CreateTestRequest struct {
	Title           string                  `json:"title" yaml:"title" binding:"required,min=3,max=255"`
	Category        TestCategory            `json:"category" yaml:"category" binding:"required,oneof='Full Length' 'Unit Test' Chapter Subject"`
	Subject         string                  `json:"subject" yaml:"subject" binding:"omitempty,max=255"`
	TotalMarks      int                     `json:"total_marks" yaml:"total_marks" binding:"omitempty,min=1"`
	DurationMinutes int                     `json:"duration_minutes" yaml:"duration_minutes" binding:"omitempty,min=1,max=600"`
	Difficulty      Difficulty              `json:"difficulty" yaml:"difficulty" binding:"omitempty,oneof=Easy Medium Hard"`
	IsPublished     *bool                   `json:"is_published" yaml:"is_published"`
	Questions       []CreateQuestionRequest `json:"questions" yaml:"questions" binding:"required,min=1,dive"`
}

// TestPaper is the Redis-cached paper sent to students (no correct answers).
type TestPaper struct {
	TestID          uuid.UUID            `json:"id"`
	Title           string               `json:"title"`
	Category        TestCategory         `json:"category"`
	Subject         string               `json:"subject"`
	Difficulty      Difficulty           `json:"difficulty"`
	TotalMarks      int                  `json:"total_marks"`
	DurationMinutes int                  `json:"duration_minutes"`
	Questions       []QuestionForStudent `json:"questions"`
	// MaxViolations is filled per request, never cached.
	MaxViolations int `json:"max_violations,omitempty"`
}

// AnswerKeyEntry is the grading data for the question at the same position.
type AnswerKeyEntry struct {
	QuestionID   uuid.UUID `json:"question_id"`
	CorrectIndex int       `json:"correct_index"`
	Marks        int       `json:"marks"`
	OptionCount  int       `json:"option_count"`
}

// AnswerKey is the server-only grading view of a test, ordered by position.
type AnswerKey struct {
	TestID     uuid.UUID        `json:"test_id"`
	TotalMarks int              `json:"total_marks"`
	Entries    []AnswerKeyEntry `json:"entries"`
}

// Paper strips the answer key from t.
func (t *Test) Paper() *TestPaper {
	questions := make([]QuestionForStudent, len(t.Questions))
	for i, q := range t.Questions {
		questions[i] = QuestionForStudent{
			ID:       q.ID,
			Position: i,
			Text:     q.Text,
			Options:  q.Options,
			Marks:    q.Marks,
		}
	}
	return &TestPaper{
		TestID:          t.ID,
		Title:           t.Title,
		Category:        t.Category,
		Subject:         t.Subject,
		Difficulty:      t.Difficulty,
		TotalMarks:      t.TotalMarks,
		DurationMinutes: t.DurationMinutes,
		Questions:       questions,
	}
}

// AnswerKey extracts the grading view of t.
func (t *Test) AnswerKey() *AnswerKey {
	entries := make([]AnswerKeyEntry, len(t.Questions))
	for i, q := range t.Questions {
		entries[i] = AnswerKeyEntry{
			QuestionID:   q.ID,
			CorrectIndex: q.CorrectIndex,
			Marks:        q.Marks,
			OptionCount:  len(q.Options),
		}
	}
	return &AnswerKey{TestID: t.ID, TotalMarks: t.TotalMarks, Entries: entries}
}
