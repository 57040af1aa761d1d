// Package attempt runs one timed, proctored exam attempt on the student's
// machine. A Controller owns the Session, drives the countdown and the
// proctoring machine, and sends exactly one submission for scoring.
package attempt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cettopper/exam-portal/internal/model"
)

var (
	ErrNoTestID = errors.New("attempt: test id is required")
	ErrClosed   = errors.New("attempt: already submitted")
)

// Loader fetches the answer-free paper for a test.
type Loader interface {
	GetTest(ctx context.Context, testID uuid.UUID) (*model.TestPaper, error)
}

// Submitter sends the finished attempt for scoring.
type Submitter interface {
	Submit(ctx context.Context, p *model.SubmissionPayload) (*model.SubmissionSummary, error)
}

// Kind is how an attempt ended.
type Kind int

const (
	Completed Kind = iota + 1
	TimedOut
	Terminated
	// Aborted: a manual submission failed with an error that cannot be retried.
	Aborted
)

func (k Kind) String() string {
	switch k {
	case Completed:
		return "completed"
	case TimedOut:
		return "timed_out"
	case Terminated:
		return "terminated"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of an attempt. Summary is nil when Err is set.
type Outcome struct {
	Kind       Kind
	Summary    *model.SubmissionSummary
	Violations int
	Err        error
}

// Options configures a Controller.
type Options struct {
	Submitter Submitter
	// MaxViolations overrides the tolerance sent with the paper.
	MaxViolations int
	// OnWarning is called for every recorded violation, outside the session lock.
	OnWarning func(Warning)
	// Fatal reports whether a failed manual submission must end the attempt
	// instead of reopening it. Nil means every failure is retryable.
	Fatal        func(error) bool
	TickInterval time.Duration
	Logger       *zerolog.Logger
}

// Controller owns one attempt.
type Controller struct {
	mu      sync.Mutex
	session *Session
	running bool // countdown started and not stopped

	closed    atomic.Bool
	attemptID uuid.UUID

	submitter Submitter
	onWarning func(Warning)
	fatal     func(error) bool
	tick      time.Duration
	log       zerolog.Logger

	doneOnce sync.Once
	done     chan struct{}
	outcome  Outcome
}

// Open loads the paper for testID and prepares an inactive attempt. No
// Controller is returned when the paper cannot be loaded.
func Open(ctx context.Context, loader Loader, testID uuid.UUID, opts Options) (*Controller, error) {
	if testID == uuid.Nil {
		return nil, ErrNoTestID
	}
	paper, err := loader.GetTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("load test: %w", err)
	}
	return New(paper, opts), nil
}

// New prepares an inactive attempt for an already loaded paper.
func New(paper *model.TestPaper, opts Options) *Controller {
	if opts.MaxViolations <= 0 {
		opts.MaxViolations = paper.MaxViolations
	}
	if opts.MaxViolations <= 0 {
		opts.MaxViolations = defaultMaxViolations
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	c := &Controller{
		session:   newSession(paper, opts.MaxViolations),
		attemptID: uuid.New(),
		submitter: opts.Submitter,
		onWarning: opts.OnWarning,
		fatal:     opts.Fatal,
		tick:      opts.TickInterval,
		done:      make(chan struct{}),
	}
	c.log = log.With().
		Str("component", "attempt").
		Str("test_id", paper.TestID.String()).
		Str("attempt_id", c.attemptID.String()).
		Logger()
	return c
}

// AttemptID identifies this attempt to the scoring service. Retries reuse it.
func (c *Controller) AttemptID() uuid.UUID { return c.attemptID }

// Done is closed once the attempt has a terminal Outcome.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Outcome returns the terminal result. Only meaningful after Done is closed.
func (c *Controller) Outcome() Outcome {
	<-c.done
	return c.outcome
}

// View returns a snapshot for rendering.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.view()
}

// mutate runs fn under the lock unless the attempt is closed.
func (c *Controller) mutate(fn func(s *Session)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return
	}
	fn(c.session)
}

// GoTo moves to question index. Out of range is ignored.
func (c *Controller) GoTo(index int) {
	c.mutate(func(s *Session) { s.goTo(index) })
}

func (c *Controller) Next() {
	c.mutate(func(s *Session) { s.goTo(s.Current + 1) })
}

func (c *Controller) Prev() {
	c.mutate(func(s *Session) { s.goTo(s.Current - 1) })
}

// Select answers the current question. The last selection wins; an option
// the question does not have is ignored.
func (c *Controller) Select(option int) {
	c.mutate(func(s *Session) { s.selectOption(option) })
}

// Clear removes the answer to the current question.
func (c *Controller) Clear() {
	c.mutate(func(s *Session) { s.clear() })
}

// ToggleFlag marks or unmarks the current question for review.
func (c *Controller) ToggleFlag() {
	c.mutate(func(s *Session) { s.toggleFlag() })
}

// HandleEvent feeds a screen event to the proctoring machine and runs the
// resulting effects.
func (c *Controller) HandleEvent(ctx context.Context, ev Event) {
	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		return
	}
	next, effects := Transition(c.session.Proctor, ev)
	c.session.Proctor = next
	c.mu.Unlock()

	for _, eff := range effects {
		switch e := eff.(type) {
		case StartTimer:
			c.setRunning(true)
			c.log.Info().Str("event", ev.String()).Msg("Attempt started")
		case Warning:
			c.log.Warn().Int("count", e.Count).Int("max", e.Max).Str("event", ev.String()).Msg("Proctoring violation")
			if c.onWarning != nil {
				c.onWarning(e)
			}
		case StopTimer:
			c.setRunning(false)
		case ForceSubmit:
			c.finish(ctx, model.ReasonViolation, Terminated)
		}
	}
}

func (c *Controller) setRunning(v bool) {
	c.mu.Lock()
	c.running = v
	c.mu.Unlock()
}

// Tick advances the countdown by one second. Reaching zero submits the
// attempt; that submission cannot be cancelled.
func (c *Controller) Tick(ctx context.Context) {
	c.mu.Lock()
	if c.closed.Load() || !c.running || c.session.TimeLeft <= 0 {
		c.mu.Unlock()
		return
	}
	c.session.TimeLeft--
	expired := c.session.TimeLeft == 0
	if expired {
		c.running = false
	}
	c.mu.Unlock()

	if expired {
		c.finish(ctx, model.ReasonTimeout, TimedOut)
	}
}

// Submit sends the attempt on the student's request. On failure the attempt
// reopens with its answers intact and the error is returned for a retry,
// unless Options.Fatal says otherwise.
func (c *Controller) Submit(ctx context.Context) (*model.SubmissionSummary, error) {
	if !c.closed.CompareAndSwap(false, true) {
		return nil, ErrClosed
	}

	c.mu.Lock()
	payload := c.session.payload(c.attemptID, model.ReasonManual)
	c.mu.Unlock()

	summary, err := c.send(ctx, payload)
	if err != nil {
		if c.fatal != nil && c.fatal(err) {
			c.log.Error().Err(err).Msg("Submission rejected, attempt aborted")
			c.deliver(Outcome{Kind: Aborted, Violations: payload.ViolationCount, Err: err})
			return nil, err
		}
		c.log.Warn().Err(err).Msg("Submission failed, attempt reopened")
		c.closed.Store(false)
		c.finishPending(ctx)
		return nil, err
	}

	c.setRunning(false)
	c.deliver(Outcome{Kind: Completed, Summary: summary, Violations: payload.ViolationCount})
	return summary, nil
}

// finish performs a forced submission. Only the first caller of either
// finish or Submit gets to send.
func (c *Controller) finish(ctx context.Context, reason model.SubmitReason, kind Kind) {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}

	c.mu.Lock()
	c.running = false
	payload := c.session.payload(c.attemptID, reason)
	c.mu.Unlock()

	c.log.Info().Str("reason", string(reason)).Int("violations", payload.ViolationCount).Msg("Forcing submission")

	summary, err := c.send(ctx, payload)
	if err != nil {
		c.log.Error().Err(err).Str("reason", string(reason)).Msg("Forced submission failed")
	}
	c.deliver(Outcome{Kind: kind, Summary: summary, Violations: payload.ViolationCount, Err: err})
}

// finishPending forces the submission that a timer expiry or violation
// limit could not send while a manual submission was in flight.
func (c *Controller) finishPending(ctx context.Context) {
	c.mu.Lock()
	terminated := c.session.Proctor.State == StateTerminated
	expired := c.session.TimeLeft == 0
	c.mu.Unlock()

	switch {
	case terminated:
		c.finish(ctx, model.ReasonViolation, Terminated)
	case expired:
		c.finish(ctx, model.ReasonTimeout, TimedOut)
	}
}

func (c *Controller) send(ctx context.Context, p *model.SubmissionPayload) (*model.SubmissionSummary, error) {
	if c.submitter == nil {
		return nil, errors.New("attempt: no submitter configured")
	}
	summary, err := c.submitter.Submit(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("submit attempt: %w", err)
	}
	return summary, nil
}

func (c *Controller) deliver(o Outcome) {
	c.doneOnce.Do(func() {
		c.outcome = o
		close(c.done)
	})
}

// Run drives the countdown and feeds events until the attempt ends or ctx
// is cancelled. Events arriving before FullscreenGranted are ignored by the
// proctoring machine.
func (c *Controller) Run(ctx context.Context, events <-chan Event) error {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			c.HandleEvent(ctx, ev)
		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}
