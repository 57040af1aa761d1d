package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/cettopper/exam-portal/internal/attempt"
)

const (
	altScreenOn  = "\x1b[?1049h\x1b[?1004h\x1b[?25l"
	altScreenOff = "\x1b[?1004l\x1b[?1049l\x1b[?25h"
	clearScreen  = "\x1b[H\x1b[2J"
)

// screen draws the attempt in raw mode, where every line needs "\r\n".
type screen struct {
	mu      sync.Mutex
	w       io.Writer
	status  string
	warning string
}

func newScreen(w io.Writer) *screen {
	return &screen{w: w}
}

func (s *screen) enter() { fmt.Fprint(s.w, altScreenOn) }
func (s *screen) leave() { fmt.Fprint(s.w, altScreenOff) }

func (s *screen) setStatus(msg string) {
	s.mu.Lock()
	s.status = msg
	s.mu.Unlock()
}

// warn is the attempt.Options.OnWarning hook.
func (s *screen) warn(w attempt.Warning) {
	s.mu.Lock()
	s.warning = fmt.Sprintf("WARNING: %s %d/%d warnings used.", w.Reason, w.Count, w.Max)
	s.mu.Unlock()
}

func (s *screen) draw(v attempt.View) {
	s.mu.Lock()
	status, warning := s.status, s.warning
	s.mu.Unlock()

	var b strings.Builder
	b.WriteString(clearScreen)
	renderView(&b, v, warning, status)
	io.WriteString(s.w, strings.ReplaceAll(b.String(), "\n", "\r\n"))
}

func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

func renderView(b *strings.Builder, v attempt.View, warning, status string) {
	fmt.Fprintf(b, "%s    time left %s    violations %d/%d\n\n",
		v.Title, formatClock(v.TimeLeft), v.Violations, v.MaxViolations)

	if v.State == attempt.Inactive {
		b.WriteString("The timer starts when you press Enter.\n")
		b.WriteString("Leaving this window or terminal counts as a violation.\n")
		fmt.Fprintf(b, "More than %d violations ends the test.\n", v.MaxViolations)
		return
	}

	if v.Question == nil {
		b.WriteString("This test has no questions. Press s to submit.\n")
	} else {
		flag := ""
		if v.Flagged {
			flag = "  [marked for review]"
		}
		fmt.Fprintf(b, "Question %d of %d (%d marks)%s\n\n%s\n\n", v.Index+1, v.Total, v.Question.Marks, flag, v.Question.Text)
		for i, opt := range v.Question.Options {
			mark := " "
			if i == v.Selected {
				mark = "*"
			}
			fmt.Fprintf(b, " %s %d) %s\n", mark, i+1, opt)
		}
	}

	b.WriteString("\n")
	for i, p := range v.Palette {
		cell := fmt.Sprintf("%d", i+1)
		switch {
		case p.Flagged:
			cell += "?"
		case p.Answered:
			cell += "+"
		}
		if p.Current {
			cell = "[" + cell + "]"
		}
		b.WriteString(cell + " ")
	}
	fmt.Fprintf(b, "\n%d/%d answered\n\n", v.Answered, v.Total)
	b.WriteString("1-9 answer  c clear  f mark  n/p or arrows move  s submit  q quit\n")

	if warning != "" {
		b.WriteString("\n" + warning + "\n")
	}
	if status != "" {
		b.WriteString("\n" + status + "\n")
	}
}
