package service

import (
	"fmt"

	"github.com/cettopper/exam-portal/internal/model"
)

// Scorecard is the outcome of grading one set of answers against a key.
type Scorecard struct {
	Score           int
	CorrectCount    int
	TotalQuestions  int
	UnansweredCount int
	Accuracy        float64
	Details         []model.AnswerDetail
}

// ValidateAnswers rejects answers that point at a question or option the
// test does not have.
func ValidateAnswers(key *model.AnswerKey, answers map[int]int) error {
	for idx, opt := range answers {
		if idx < 0 || idx >= len(key.Entries) {
			return fmt.Errorf("%w: question %d does not exist", ErrInvalidAnswer, idx)
		}
		if opt < 0 || opt >= key.Entries[idx].OptionCount {
			return fmt.Errorf("%w: option %d out of range for question %d", ErrInvalidAnswer, opt, idx)
		}
	}
	return nil
}

// Score grades answers in the key's question order. A correct answer earns
// the question's marks, anything else earns nothing, and a blank counts as
// incorrect. Accuracy is correct/total*100, or 0 for an empty test.
func Score(key *model.AnswerKey, answers map[int]int) Scorecard {
	card := Scorecard{
		TotalQuestions: len(key.Entries),
		Details:        make([]model.AnswerDetail, 0, len(key.Entries)),
	}

	for i, e := range key.Entries {
		detail := model.AnswerDetail{QuestionID: e.QuestionID, Position: i}

		opt, answered := answers[i]
		if !answered {
			card.UnansweredCount++
		} else {
			selected := opt
			detail.SelectedOption = &selected
			if opt == e.CorrectIndex {
				detail.IsCorrect = true
				card.CorrectCount++
				card.Score += e.Marks
			}
		}
		card.Details = append(card.Details, detail)
	}

	if card.TotalQuestions > 0 {
		card.Accuracy = float64(card.CorrectCount) / float64(card.TotalQuestions) * 100
	}
	return card
}
