package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cettopper/exam-portal/internal/attempt"
	"github.com/cettopper/exam-portal/internal/model"
)

func TestParseInput(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []keyAction
	}{
		{"digits", "14", []keyAction{{kind: actSelect, option: 0}, {kind: actSelect, option: 3}}},
		{"arrows", "\x1b[C\x1b[D", []keyAction{{kind: actNext}, {kind: actPrev}}},
		{"focus", "\x1b[O\x1b[I", []keyAction{{kind: actFocusLost}, {kind: actFocusGained}}},
		{"letters", "cfs\r", []keyAction{{kind: actClear}, {kind: actFlag}, {kind: actSubmit}, {kind: actStart}}},
		{"quit", "\x03", []keyAction{{kind: actQuit}}},
		{"lone escape", "\x1b", nil},
		{"unknown csi", "\x1b[Zn", []keyAction{{kind: actNext}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := parseInput([]byte(tc.in))
			if len(got) != len(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("action %d: expected %v, got %v", i, tc.want[i], got[i])
				}
			}
		})
	}
}

func TestFormatClock(t *testing.T) {
	for in, want := range map[int]string{0: "00:00:00", 59: "00:00:59", 3661: "01:01:01", 10800: "03:00:00", -5: "00:00:00"} {
		if got := formatClock(in); got != want {
			t.Fatalf("formatClock(%d) = %s, want %s", in, got, want)
		}
	}
}

func TestRenderView(t *testing.T) {
	q := model.QuestionForStudent{Text: "Speed of light?", Options: []string{"3e8 m/s", "340 m/s"}, Marks: 2}
	v := attempt.View{
		Title:         "Physics",
		Index:         0,
		Total:         2,
		Question:      &q,
		Selected:      1,
		Flagged:       true,
		Answered:      1,
		TimeLeft:      125,
		Violations:    1,
		MaxViolations: 3,
		State:         attempt.Active,
		Palette:       []attempt.PaletteEntry{{Current: true, Answered: true, Flagged: true}, {}},
	}

	var b strings.Builder
	renderView(&b, v, "WARNING: left", "")
	out := b.String()
	for _, want := range []string{"00:02:05", "violations 1/3", "Question 1 of 2", "marked for review", " * 2) 340 m/s", "[1?]", "WARNING: left"} {
		if !strings.Contains(out, want) {
			t.Fatalf("render missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, " * 1) 3e8") {
		t.Fatalf("wrong option marked:\n%s", out)
	}

	b.Reset()
	v.State = attempt.Inactive
	renderView(&b, v, "", "")
	if !strings.Contains(b.String(), "press Enter") || strings.Contains(b.String(), "Speed of light") {
		t.Fatalf("inactive view shows the paper:\n%s", b.String())
	}
}

const testYAML = `
title: Mechanics Chapter 3
category: Chapter
subject: Physics
difficulty: Hard
duration_minutes: 45
questions:
  - text: Unit of force?
    options: [Joule, Newton, Watt]
    correct_index: 1
    marks: 4
    explanation: F = ma
  - text: g on earth?
    options: ["9.8", "1.6"]
    correct_index: 0
`

func TestDecodeTestDefinition(t *testing.T) {
	req, err := decodeTestDefinition(strings.NewReader(testYAML))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.Title != "Mechanics Chapter 3" || req.Category != model.CategoryChapter || req.DurationMinutes != 45 {
		t.Fatalf("unexpected header %+v", req)
	}
	if len(req.Questions) != 2 || *req.Questions[0].CorrectIndex != 1 || req.Questions[0].Explanation != "F = ma" {
		t.Fatalf("unexpected questions %+v", req.Questions)
	}

	bad := []string{
		"title: x\nquestions: []\n",
		"title: x\nquestions:\n  - text: q\n    options: [a, b]\n",
		"title: x\ncorect_index: 1\n",
	}
	for _, doc := range bad {
		if _, err := decodeTestDefinition(strings.NewReader(doc)); err == nil {
			t.Fatalf("expected error for %q", doc)
		}
	}
}

func envelopeHandler(t *testing.T, created *model.CreateTestRequest) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/tests", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": map[string]interface{}{
			"tests": []model.Test{{ID: uuid.New(), Title: "Mock Test", Category: model.CategoryFullLength, QuestionCount: 90}},
		}})
	})
	mux.HandleFunc("/api/v1/admin/tests", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer admin-token" {
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"error": map[string]string{"code": "ADMIN_ACCESS_ONLY"}})
			return
		}
		if err := json.NewDecoder(r.Body).Decode(created); err != nil {
			t.Errorf("decode create: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": map[string]interface{}{
			"test": model.Test{ID: uuid.New(), Title: created.Title, TotalMarks: 6, DurationMinutes: 45},
		}})
	})
	return mux
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTestsCommand(t *testing.T) {
	srv := httptest.NewServer(envelopeHandler(t, &model.CreateTestRequest{}))
	defer srv.Close()

	out, err := run(t, "tests", "--api", srv.URL, "--token", "student-token")
	if err != nil {
		t.Fatalf("tests: %v", err)
	}
	if !strings.Contains(out, "Mock Test") || !strings.Contains(out, "90") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestImportCommand(t *testing.T) {
	var created model.CreateTestRequest
	srv := httptest.NewServer(envelopeHandler(t, &created))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "test.yaml")
	if err := os.WriteFile(path, []byte(testYAML), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	out, err := run(t, "import", path, "--draft", "--api", srv.URL, "--token", "admin-token")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "Mechanics Chapter 3") {
		t.Fatalf("unexpected output: %s", out)
	}
	if created.IsPublished == nil || *created.IsPublished || len(created.Questions) != 2 {
		t.Fatalf("server received %+v", created)
	}

	if _, err := run(t, "import", path, "--api", srv.URL, "--token", "student-token"); err == nil {
		t.Fatal("import with a student token succeeded")
	}
}

func TestPrintOutcome(t *testing.T) {
	summary := &model.SubmissionSummary{Score: 6, TotalMarks: 6, CorrectCount: 3, TotalQuestions: 3, Accuracy: 100}
	failed := errors.New("connection refused")

	cases := []struct {
		name    string
		outcome attempt.Outcome
		want    []string
		absent  []string
		wantErr bool
	}{
		{
			name:    "completed",
			outcome: attempt.Outcome{Kind: attempt.Completed, Summary: summary},
			want:    []string{"Score 6/6", "Accuracy: 100.0%"},
			absent:  []string{"terminated", "Time is up"},
		},
		{
			name:    "timed out",
			outcome: attempt.Outcome{Kind: attempt.TimedOut, Summary: summary},
			want:    []string{"Time is up", "Score 6/6"},
		},
		{
			name:    "terminated",
			outcome: attempt.Outcome{Kind: attempt.Terminated, Violations: 4, Summary: summary},
			want:    []string{"Test terminated: 4 proctoring violations."},
			absent:  []string{"Score", "Accuracy"},
		},
		{
			name:    "terminated and unsent",
			outcome: attempt.Outcome{Kind: attempt.Terminated, Violations: 4, Err: failed},
			want:    []string{"Test terminated"},
			absent:  []string{"Score", "were submitted"},
			wantErr: true,
		},
		{
			name:    "aborted",
			outcome: attempt.Outcome{Kind: attempt.Aborted, Err: failed},
			absent:  []string{"Score"},
			wantErr: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var b strings.Builder
			err := printOutcome(&b, tc.outcome)
			if (err != nil) != tc.wantErr {
				t.Fatalf("expected error %v, got %v", tc.wantErr, err)
			}
			for _, s := range tc.want {
				if !strings.Contains(b.String(), s) {
					t.Fatalf("missing %q:\n%s", s, b.String())
				}
			}
			for _, s := range tc.absent {
				if strings.Contains(b.String(), s) {
					t.Fatalf("unexpected %q:\n%s", s, b.String())
				}
			}
		})
	}
}

func TestEmitWaitsForSlowReader(t *testing.T) {
	ctrl := attempt.New(&model.TestPaper{TestID: uuid.New(), Questions: []model.QuestionForStudent{{Options: []string{"a", "b"}}}}, attempt.Options{})
	events := make(chan attempt.Event, 1)
	got := make(chan attempt.Event, 3)

	go func() {
		time.Sleep(50 * time.Millisecond)
		for i := 0; i < 3; i++ {
			got <- <-events
		}
	}()

	for i := 0; i < 3; i++ {
		emit(context.Background(), ctrl, events, attempt.VisibilityLost)
	}
	for i := 0; i < 3; i++ {
		select {
		case <-got:
		case <-time.After(5 * time.Second):
			t.Fatalf("event %d was dropped", i)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	full := make(chan attempt.Event)
	emit(ctx, ctrl, full, attempt.VisibilityLost) // returns once ctx is done
}
