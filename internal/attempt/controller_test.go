package attempt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cettopper/exam-portal/internal/model"
)

var errUnavailable = errors.New("service unavailable")

// recorder is a Submitter that keeps every payload it receives.
type recorder struct {
	mu       sync.Mutex
	payloads []*model.SubmissionPayload
	fail     int // fail this many calls before succeeding
	err      error
}

func (r *recorder) Submit(_ context.Context, p *model.SubmissionPayload) (*model.SubmissionSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, p)
	if r.fail > 0 {
		r.fail--
		return nil, r.err
	}
	return &model.SubmissionSummary{ResultID: uuid.New(), TotalQuestions: 3}, nil
}

func (r *recorder) sent() []*model.SubmissionPayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*model.SubmissionPayload(nil), r.payloads...)
}

type stubLoader struct {
	paper *model.TestPaper
	err   error
}

func (l stubLoader) GetTest(_ context.Context, _ uuid.UUID) (*model.TestPaper, error) {
	return l.paper, l.err
}

func paper(minutes int) *model.TestPaper {
	return &model.TestPaper{
		TestID:          uuid.New(),
		Title:           "Mock",
		DurationMinutes: minutes,
		Questions: []model.QuestionForStudent{
			{ID: uuid.New(), Position: 0, Options: []string{"a", "b", "c", "d"}},
			{ID: uuid.New(), Position: 1, Options: []string{"a", "b"}},
			{ID: uuid.New(), Position: 2, Options: []string{"a", "b", "c"}},
		},
	}
}

func started(t *testing.T, minutes int, sub Submitter) *Controller {
	t.Helper()
	c := New(paper(minutes), Options{Submitter: sub, MaxViolations: 3})
	c.HandleEvent(context.Background(), FullscreenGranted)
	if c.View().State != Active {
		t.Fatal("attempt did not start")
	}
	return c
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	if _, err := Open(ctx, stubLoader{}, uuid.Nil, Options{}); !errors.Is(err, ErrNoTestID) {
		t.Fatalf("expected ErrNoTestID, got %v", err)
	}

	notFound := errors.New("not found")
	if c, err := Open(ctx, stubLoader{err: notFound}, uuid.New(), Options{}); !errors.Is(err, notFound) || c != nil {
		t.Fatalf("expected wrapped load error and no controller, got %v %v", c, err)
	}

	c, err := Open(ctx, stubLoader{paper: paper(0)}, uuid.New(), Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	v := c.View()
	if v.Total != 3 || v.Index != 0 || v.State != Inactive || v.TimeLeft != 180*60 {
		t.Fatalf("unexpected initial view: %+v", v)
	}
}

func TestNavigation(t *testing.T) {
	c := started(t, 10, &recorder{})

	c.GoTo(2)
	if c.View().Index != 2 {
		t.Fatal("GoTo(2) did not move")
	}
	c.Next()
	if c.View().Index != 2 {
		t.Fatal("Next past the end moved")
	}
	c.GoTo(-1)
	c.GoTo(3)
	if c.View().Index != 2 {
		t.Fatal("out of range GoTo moved")
	}
	c.Prev()
	c.Prev()
	c.Prev()
	if c.View().Index != 0 {
		t.Fatalf("expected index 0, got %d", c.View().Index)
	}
}

func TestSelectLastWriteWins(t *testing.T) {
	c := started(t, 10, &recorder{})

	c.Select(1)
	c.Select(3)
	if v := c.View(); v.Selected != 3 || v.Answered != 1 {
		t.Fatalf("expected option 3 selected once, got %+v", v)
	}

	// Question 1 has two options.
	c.Next()
	c.Select(1)
	c.Select(2)
	if v := c.View(); v.Selected != 1 {
		t.Fatalf("out of range option replaced answer: %+v", v)
	}
	c.Select(-1)
	if v := c.View(); v.Selected != 1 {
		t.Fatalf("negative option replaced answer: %+v", v)
	}
}

func TestClearRemovesEntry(t *testing.T) {
	rec := &recorder{}
	c := started(t, 10, rec)

	c.Select(2)
	c.Next()
	c.Select(0)
	c.Clear()
	if v := c.View(); v.Selected != -1 || v.Answered != 1 {
		t.Fatalf("clear did not remove answer: %+v", v)
	}

	if _, err := c.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	got := rec.sent()[0].UserAnswers
	if _, ok := got[1]; ok || len(got) != 1 || got[0] != 2 {
		t.Fatalf("unexpected answers %v", got)
	}
}

func TestToggleFlagIsIndependent(t *testing.T) {
	c := started(t, 10, &recorder{})

	c.ToggleFlag()
	if v := c.View(); !v.Flagged || v.Selected != -1 {
		t.Fatalf("flag changed answer: %+v", v)
	}
	c.Select(0)
	c.ToggleFlag()
	if v := c.View(); v.Flagged || v.Selected != 0 {
		t.Fatalf("unflag changed answer: %+v", v)
	}
	if p := c.View().Palette[0]; !p.Current || !p.Answered || p.Flagged {
		t.Fatalf("unexpected palette entry %+v", p)
	}
}

func TestManualSubmitPayload(t *testing.T) {
	rec := &recorder{}
	c := started(t, 1, rec)

	c.Select(1)
	for i := 0; i < 10; i++ {
		c.Tick(context.Background())
	}
	c.HandleEvent(context.Background(), VisibilityLost)

	summary, err := c.Submit(context.Background())
	if err != nil || summary == nil {
		t.Fatalf("submit: %v", err)
	}

	sent := rec.sent()
	if len(sent) != 1 {
		t.Fatalf("expected one payload, got %d", len(sent))
	}
	p := sent[0]
	if p.TimeTaken != 10 || p.ViolationCount != 1 || p.Reason != model.ReasonManual {
		t.Fatalf("unexpected payload %+v", p)
	}
	if p.AttemptID == nil || *p.AttemptID != c.AttemptID() {
		t.Fatalf("payload missing attempt id")
	}

	out := c.Outcome()
	if out.Kind != Completed || out.Summary != summary {
		t.Fatalf("unexpected outcome %+v", out)
	}

	// Everything is inert once submitted.
	c.Select(3)
	c.HandleEvent(context.Background(), FullscreenExited)
	if _, err := c.Submit(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("second submit: expected ErrClosed, got %v", err)
	}
	if len(rec.sent()) != 1 {
		t.Fatal("inert controller submitted again")
	}
}

func TestViolationLimitForcesOneSubmission(t *testing.T) {
	rec := &recorder{}
	var warnings []Warning
	c := New(paper(30), Options{
		Submitter:     rec,
		MaxViolations: 3,
		OnWarning:     func(w Warning) { warnings = append(warnings, w) },
	})
	ctx := context.Background()
	c.HandleEvent(ctx, FullscreenGranted)
	c.Select(0)

	for i := 0; i < 4; i++ {
		c.HandleEvent(ctx, FullscreenExited)
	}

	select {
	case <-c.Done():
	default:
		t.Fatal("attempt still open after the fourth violation")
	}

	out := c.Outcome()
	if out.Kind != Terminated || out.Violations != 4 || out.Err != nil {
		t.Fatalf("unexpected outcome %+v", out)
	}
	sent := rec.sent()
	if len(sent) != 1 || sent[0].ViolationCount != 4 || sent[0].Reason != model.ReasonViolation {
		t.Fatalf("expected one forced payload with 4 violations, got %+v", sent)
	}
	if len(warnings) != 4 || warnings[3].Count != 4 {
		t.Fatalf("unexpected warnings %+v", warnings)
	}

	c.HandleEvent(ctx, FullscreenExited)
	if len(rec.sent()) != 1 {
		t.Fatal("further violations submitted again")
	}
	if v := c.View(); v.Violations != 4 {
		t.Fatalf("violations changed after termination: %d", v.Violations)
	}
}

func TestTimerZeroSubmitsExactlyOnce(t *testing.T) {
	rec := &recorder{}
	c := started(t, 1, rec)
	ctx := context.Background()

	for i := 0; i < 59; i++ {
		c.Tick(ctx)
	}
	if len(rec.sent()) != 0 {
		t.Fatal("submitted before time ran out")
	}
	for i := 0; i < 5; i++ {
		c.Tick(ctx)
	}

	sent := rec.sent()
	if len(sent) != 1 {
		t.Fatalf("expected exactly one submission, got %d", len(sent))
	}
	if sent[0].Reason != model.ReasonTimeout || sent[0].TimeTaken != 60 {
		t.Fatalf("unexpected payload %+v", sent[0])
	}
	if out := c.Outcome(); out.Kind != TimedOut {
		t.Fatalf("expected timed out, got %s", out.Kind)
	}
}

func TestTimerWaitsForStart(t *testing.T) {
	c := New(paper(1), Options{Submitter: &recorder{}})
	for i := 0; i < 120; i++ {
		c.Tick(context.Background())
	}
	if v := c.View(); v.TimeLeft != 60 {
		t.Fatalf("timer ran before start: %d", v.TimeLeft)
	}
}

func TestConcurrentTerminationsSubmitOnce(t *testing.T) {
	for round := 0; round < 50; round++ {
		rec := &recorder{}
		c := started(t, 1, rec)
		ctx := context.Background()

		for i := 0; i < 59; i++ {
			c.Tick(ctx)
		}
		for i := 0; i < 3; i++ {
			c.HandleEvent(ctx, VisibilityLost)
		}

		var wg sync.WaitGroup
		wg.Add(3)
		go func() { defer wg.Done(); c.Tick(ctx) }()
		go func() { defer wg.Done(); c.HandleEvent(ctx, VisibilityLost) }()
		go func() { defer wg.Done(); _, _ = c.Submit(ctx) }()
		wg.Wait()

		if n := len(rec.sent()); n != 1 {
			t.Fatalf("round %d: expected one submission, got %d", round, n)
		}
		<-c.Done()
	}
}

func TestFailedManualSubmitReopens(t *testing.T) {
	rec := &recorder{fail: 1, err: errUnavailable}
	c := started(t, 10, rec)
	ctx := context.Background()

	c.Select(2)
	if _, err := c.Submit(ctx); !errors.Is(err, errUnavailable) {
		t.Fatalf("expected retryable error, got %v", err)
	}
	select {
	case <-c.Done():
		t.Fatal("failed manual submission ended the attempt")
	default:
	}

	// Answers survive and the session is usable again.
	if v := c.View(); v.Selected != 2 {
		t.Fatalf("answers lost: %+v", v)
	}
	c.Select(1)

	if _, err := c.Submit(ctx); err != nil {
		t.Fatalf("retry: %v", err)
	}
	sent := rec.sent()
	if len(sent) != 2 || *sent[0].AttemptID != *sent[1].AttemptID {
		t.Fatalf("retry must reuse the attempt id: %+v", sent)
	}
	if sent[1].UserAnswers[0] != 1 {
		t.Fatalf("retry sent stale answers: %v", sent[1].UserAnswers)
	}
}

func TestFatalManualSubmitAborts(t *testing.T) {
	errAuth := errors.New("unauthorized")
	rec := &recorder{fail: 1, err: errAuth}
	c := New(paper(10), Options{
		Submitter: rec,
		Fatal:     func(err error) bool { return errors.Is(err, errAuth) },
	})

	if _, err := c.Submit(context.Background()); !errors.Is(err, errAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
	out := c.Outcome()
	if out.Kind != Aborted || !errors.Is(out.Err, errAuth) {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestFailedForcedSubmitIsTerminal(t *testing.T) {
	rec := &recorder{fail: 1, err: errUnavailable}
	c := started(t, 1, rec)

	for i := 0; i < 60; i++ {
		c.Tick(context.Background())
	}
	out := c.Outcome()
	if out.Kind != TimedOut || !errors.Is(out.Err, errUnavailable) || out.Summary != nil {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestRunDrivesTimerAndEvents(t *testing.T) {
	rec := &recorder{}
	c := New(paper(1), Options{Submitter: rec, TickInterval: time.Millisecond})

	events := make(chan Event, 1)
	events <- FullscreenUnsupported

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Run(ctx, events); err != nil {
		t.Fatalf("run: %v", err)
	}

	if out := c.Outcome(); out.Kind != TimedOut {
		t.Fatalf("expected timed out, got %s", out.Kind)
	}
	if len(rec.sent()) != 1 {
		t.Fatalf("expected one submission, got %d", len(rec.sent()))
	}
}

// gate blocks Submit until released.
type gate struct {
	entered chan *model.SubmissionPayload
	release chan struct{}
}

func (g *gate) Submit(_ context.Context, p *model.SubmissionPayload) (*model.SubmissionSummary, error) {
	g.entered <- p
	<-g.release
	return &model.SubmissionSummary{ResultID: uuid.New(), TotalQuestions: 3}, nil
}

func TestSessionFrozenWhileSubmitting(t *testing.T) {
	ctx := context.Background()
	g := &gate{entered: make(chan *model.SubmissionPayload, 1), release: make(chan struct{})}
	c := started(t, 30, g)
	c.Select(1)

	go func() { _, _ = c.Submit(ctx) }()
	p := <-g.entered

	c.Select(3)
	c.Next()
	c.ToggleFlag()
	c.HandleEvent(ctx, VisibilityLost)
	c.Tick(ctx)

	v := c.View()
	if v.Selected != 1 || v.Index != 0 || v.Flagged || v.Violations != 0 || v.TimeLeft != 30*60 {
		t.Fatalf("session changed during submission: %+v", v)
	}
	if p.UserAnswers[0] != 1 || p.ViolationCount != 0 {
		t.Fatalf("unexpected payload %+v", p)
	}

	close(g.release)
	if out := c.Outcome(); out.Kind != Completed || out.Violations != 0 {
		t.Fatalf("unexpected outcome %+v", out)
	}
}
