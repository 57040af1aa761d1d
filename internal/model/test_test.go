package model

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func sampleTest() *Test {
	return &Test{
		ID:              uuid.New(),
		Title:           "Kinematics",
		Category:        CategoryChapter,
		TotalMarks:      4,
		DurationMinutes: 30,
		Questions: []Question{
			{ID: uuid.New(), Text: "2+2", Options: []string{"3", "4"}, CorrectIndex: 1, Marks: 2, Explanation: "arithmetic"},
			{ID: uuid.New(), Text: "g", Options: []string{"9.8", "8.9", "1"}, CorrectIndex: 0, Marks: 2},
		},
	}
}

func TestPaperNeverCarriesAnswers(t *testing.T) {
	paper := sampleTest().Paper()

	raw, err := json.Marshal(paper)
	if err != nil {
		t.Fatalf("marshal paper: %v", err)
	}
	body := string(raw)
	for _, leak := range []string{"correct", "explanation", "arithmetic"} {
		if strings.Contains(body, leak) {
			t.Fatalf("paper leaks %q: %s", leak, body)
		}
	}
	if len(paper.Questions) != 2 || paper.Questions[1].Position != 1 {
		t.Fatalf("unexpected paper questions: %+v", paper.Questions)
	}
}

func TestTestJSONHidesCorrectIndex(t *testing.T) {
	raw, err := json.Marshal(sampleTest())
	if err != nil {
		t.Fatalf("marshal test: %v", err)
	}
	if strings.Contains(string(raw), "correct") {
		t.Fatalf("test JSON leaks the answer key: %s", raw)
	}
}

func TestAnswerKeyFollowsQuestionOrder(t *testing.T) {
	test := sampleTest()
	key := test.AnswerKey()

	if key.TotalMarks != 4 || len(key.Entries) != 2 {
		t.Fatalf("unexpected key: %+v", key)
	}
	if key.Entries[0].CorrectIndex != 1 || key.Entries[1].OptionCount != 3 {
		t.Fatalf("unexpected entries: %+v", key.Entries)
	}
	if key.Entries[1].QuestionID != test.Questions[1].ID {
		t.Fatal("entries must keep question ids in order")
	}
}
