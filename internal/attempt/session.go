package attempt

import (
	"github.com/google/uuid"

	"github.com/cettopper/exam-portal/internal/model"
)

const (
	defaultDurationMinutes = 180
	defaultMaxViolations   = 3
)

// Session is the in-progress state of one attempt. It is never persisted
// and is only touched through its Controller.
type Session struct {
	TestID    uuid.UUID
	Title     string
	Questions []model.QuestionForStudent
	Current   int
	Answers   map[int]int
	Flagged   map[int]bool
	Duration  int // seconds
	TimeLeft  int // seconds
	Proctor   Proctor
}

func newSession(paper *model.TestPaper, maxViolations int) *Session {
	minutes := paper.DurationMinutes
	if minutes <= 0 {
		minutes = defaultDurationMinutes
	}
	return &Session{
		TestID:    paper.TestID,
		Title:     paper.Title,
		Questions: paper.Questions,
		Answers:   make(map[int]int),
		Flagged:   make(map[int]bool),
		Duration:  minutes * 60,
		TimeLeft:  minutes * 60,
		Proctor:   Proctor{State: Inactive, MaxViolations: maxViolations},
	}
}

func (s *Session) goTo(index int) bool {
	if index < 0 || index >= len(s.Questions) {
		return false
	}
	s.Current = index
	return true
}

func (s *Session) selectOption(option int) bool {
	if s.Current >= len(s.Questions) {
		return false
	}
	if option < 0 || option >= len(s.Questions[s.Current].Options) {
		return false
	}
	s.Answers[s.Current] = option
	return true
}

func (s *Session) clear() {
	delete(s.Answers, s.Current)
}

func (s *Session) toggleFlag() {
	if s.Current >= len(s.Questions) {
		return
	}
	if s.Flagged[s.Current] {
		delete(s.Flagged, s.Current)
		return
	}
	s.Flagged[s.Current] = true
}

// payload freezes the session into the one message sent for scoring.
func (s *Session) payload(attemptID uuid.UUID, reason model.SubmitReason) *model.SubmissionPayload {
	answers := make(map[int]int, len(s.Answers))
	for k, v := range s.Answers {
		answers[k] = v
	}
	id := attemptID
	return &model.SubmissionPayload{
		TestID:         s.TestID,
		UserAnswers:    answers,
		TimeTaken:      s.Duration - s.TimeLeft,
		ViolationCount: s.Proctor.Violations,
		AttemptID:      &id,
		Reason:         reason,
	}
}

// View is a read-only snapshot for rendering.
type View struct {
	Title         string
	Index         int
	Total         int
	Question      *model.QuestionForStudent
	Selected      int // -1 when unanswered
	Flagged       bool
	Answered      int
	TimeLeft      int
	Violations    int
	MaxViolations int
	State         State
	Palette       []PaletteEntry
}

// PaletteEntry is one cell of the question navigator.
type PaletteEntry struct {
	Current  bool
	Answered bool
	Flagged  bool
}

func (s *Session) view() View {
	v := View{
		Title:         s.Title,
		Index:         s.Current,
		Total:         len(s.Questions),
		Selected:      -1,
		Answered:      len(s.Answers),
		TimeLeft:      s.TimeLeft,
		Violations:    s.Proctor.Violations,
		MaxViolations: s.Proctor.MaxViolations,
		State:         s.Proctor.State,
		Palette:       make([]PaletteEntry, len(s.Questions)),
	}
	if s.Current < len(s.Questions) {
		q := s.Questions[s.Current]
		v.Question = &q
		v.Flagged = s.Flagged[s.Current]
		if opt, ok := s.Answers[s.Current]; ok {
			v.Selected = opt
		}
	}
	for i := range s.Questions {
		_, answered := s.Answers[i]
		v.Palette[i] = PaletteEntry{Current: i == s.Current, Answered: answered, Flagged: s.Flagged[i]}
	}
	return v
}
