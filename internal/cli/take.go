package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cettopper/exam-portal/internal/attempt"
	"github.com/cettopper/exam-portal/internal/client"
)

var errAbandoned = errors.New("attempt abandoned, nothing was submitted")

func newTakeCmd(flags *globalFlags) *cobra.Command {
	var maxViolations int

	cmd := &cobra.Command{
		Use:   "take <test-id>",
		Short: "Take a test in this terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			testID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid test id %q", args[0])
			}

			fd := int(os.Stdin.Fd())
			if !term.IsTerminal(fd) {
				return errors.New("take needs an interactive terminal")
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			api := flags.client()
			ui := newScreen(os.Stdout)
			ctrl, err := attempt.Open(ctx, api, testID, attempt.Options{
				Submitter:     api,
				MaxViolations: maxViolations,
				OnWarning:     ui.warn,
				Fatal:         client.IsAuthError,
			})
			if err != nil {
				if client.IsAuthError(err) {
					return fmt.Errorf("%w: sign in again or check --token", err)
				}
				return err
			}

			outcome, err := runAttempt(ctx, cancel, fd, ctrl, ui)
			if err != nil {
				return err
			}
			return printOutcome(cmd.OutOrStdout(), outcome)
		},
	}
	cmd.Flags().IntVar(&maxViolations, "max-violations", 0, "violations allowed before termination (0 uses the server's setting)")
	return cmd
}

// runAttempt owns the terminal until the attempt ends. The terminal is
// restored before it returns.
func runAttempt(ctx context.Context, cancel context.CancelFunc, fd int, ctrl *attempt.Controller, ui *screen) (attempt.Outcome, error) {
	old, err := term.MakeRaw(fd)
	if err != nil {
		return attempt.Outcome{}, fmt.Errorf("raw mode: %w", err)
	}
	defer term.Restore(fd, old)

	ui.enter()
	defer ui.leave()

	events := make(chan attempt.Event, 8)
	go ctrl.Run(ctx, events)

	actions := make(chan keyAction, 16)
	go readActions(os.Stdin, actions)

	redraw := time.NewTicker(250 * time.Millisecond)
	defer redraw.Stop()
	ui.draw(ctrl.View())

	for {
		select {
		case <-ctx.Done():
			return attempt.Outcome{}, errAbandoned
		case <-ctrl.Done():
			return ctrl.Outcome(), nil
		case <-redraw.C:
			ui.draw(ctrl.View())
		case a, ok := <-actions:
			if !ok {
				cancel()
				return attempt.Outcome{}, errAbandoned
			}
			if a.kind == actQuit {
				cancel()
				return attempt.Outcome{}, errAbandoned
			}
			apply(ctx, fd, ctrl, ui, events, a)
			ui.draw(ctrl.View())
		}
	}
}

func readActions(r io.Reader, out chan<- keyAction) {
	defer close(out)
	buf := make([]byte, 64)
	for {
		n, err := r.Read(buf)
		for _, a := range parseInput(buf[:n]) {
			out <- a
		}
		if err != nil {
			return
		}
	}
}

func apply(ctx context.Context, fd int, ctrl *attempt.Controller, ui *screen, events chan<- attempt.Event, a keyAction) {
	state := ctrl.View().State

	switch a.kind {
	case actStart:
		if state != attempt.Inactive {
			return
		}
		// The alternate screen stands in for fullscreen; without a
		// measurable terminal the attempt starts anyway.
		if _, _, err := term.GetSize(fd); err != nil {
			emit(ctx, ctrl, events, attempt.FullscreenUnsupported)
		} else {
			emit(ctx, ctrl, events, attempt.FullscreenGranted)
		}
		return
	case actFocusLost:
		emit(ctx, ctrl, events, attempt.VisibilityLost)
		return
	case actFocusGained:
		emit(ctx, ctrl, events, attempt.FullscreenEntered)
		return
	}

	if state != attempt.Active {
		return
	}
	switch a.kind {
	case actNext:
		ctrl.Next()
	case actPrev:
		ctrl.Prev()
	case actSelect:
		ctrl.Select(a.option)
	case actClear:
		ctrl.Clear()
	case actFlag:
		ctrl.ToggleFlag()
	case actSubmit:
		ui.setStatus("Submitting...")
		go func() {
			if _, err := ctrl.Submit(ctx); err != nil && !errors.Is(err, attempt.ErrClosed) {
				ui.setStatus(fmt.Sprintf("Submit failed: %v. Press s to retry.", err))
			}
		}()
	}
}

// emit hands ev to the controller. It gives up only once the attempt has
// ended or ctx is cancelled.
func emit(ctx context.Context, ctrl *attempt.Controller, events chan<- attempt.Event, ev attempt.Event) {
	select {
	case events <- ev:
	case <-ctrl.Done():
	case <-ctx.Done():
	}
}

// printOutcome reports how the attempt ended. A terminated attempt shows
// only the termination notice, never the score.
func printOutcome(w io.Writer, o attempt.Outcome) error {
	switch o.Kind {
	case attempt.Terminated:
		fmt.Fprintf(w, "Test terminated: %d proctoring violations.\n", o.Violations)
		if o.Err != nil {
			return fmt.Errorf("submission failed: %w", o.Err)
		}
		fmt.Fprintln(w, "Your answers were submitted and the attempt is closed.")
		return nil
	case attempt.TimedOut:
		fmt.Fprintln(w, "Time is up. Your answers were submitted automatically.")
	}
	if o.Err != nil {
		return fmt.Errorf("submission failed: %w", o.Err)
	}
	if o.Summary == nil {
		return errors.New("no summary returned")
	}

	s := o.Summary
	fmt.Fprintf(w, "Score %d/%d\n", s.Score, s.TotalMarks)
	fmt.Fprintf(w, "You answered %d out of %d questions correctly (%d left blank).\n",
		s.CorrectCount, s.TotalQuestions, s.UnansweredCount)
	fmt.Fprintf(w, "Accuracy: %.1f%%\n", s.Accuracy)
	return nil
}
