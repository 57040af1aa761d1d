package attempt

import "testing"

func TestTransitionActivation(t *testing.T) {
	for _, ev := range []Event{FullscreenGranted, FullscreenUnsupported} {
		p, effects := Transition(Proctor{MaxViolations: 3}, ev)
		if p.State != Active {
			t.Fatalf("%s: expected active, got %s", ev, p.State)
		}
		if len(effects) != 1 {
			t.Fatalf("%s: expected one effect, got %v", ev, effects)
		}
		if _, ok := effects[0].(StartTimer); !ok {
			t.Fatalf("%s: expected StartTimer, got %T", ev, effects[0])
		}
	}
}

func TestTransitionIgnoresEventsWhileInactive(t *testing.T) {
	for _, ev := range []Event{FullscreenExited, VisibilityLost, FullscreenEntered} {
		p, effects := Transition(Proctor{MaxViolations: 3}, ev)
		if p.State != Inactive || p.Violations != 0 || effects != nil {
			t.Fatalf("%s while inactive changed state: %+v %v", ev, p, effects)
		}
	}
}

func TestTransitionViolationsAreMonotonic(t *testing.T) {
	p := Proctor{State: Active, MaxViolations: 3}
	events := []Event{FullscreenExited, FullscreenEntered, VisibilityLost, FullscreenEntered, FullscreenGranted}

	last := 0
	for _, ev := range events {
		p, _ = Transition(p, ev)
		if p.Violations < last {
			t.Fatalf("violations went down after %s: %d < %d", ev, p.Violations, last)
		}
		last = p.Violations
	}
	if p.Violations != 2 {
		t.Fatalf("expected 2 violations, got %d", p.Violations)
	}
}

func TestTransitionWarnings(t *testing.T) {
	p := Proctor{State: Active, MaxViolations: 3}

	p, effects := Transition(p, VisibilityLost)
	if len(effects) != 1 {
		t.Fatalf("expected a single warning, got %v", effects)
	}
	w, ok := effects[0].(Warning)
	if !ok || w.Count != 1 || w.Max != 3 || w.Reason == "" {
		t.Fatalf("unexpected warning: %+v", effects[0])
	}
	if p.State != Active {
		t.Fatalf("expected still active, got %s", p.State)
	}
}

func TestTransitionTerminatesPastLimit(t *testing.T) {
	p := Proctor{State: Active, MaxViolations: 3}

	var effects []Effect
	for i := 1; i <= 3; i++ {
		p, effects = Transition(p, FullscreenExited)
		if p.State != Active {
			t.Fatalf("terminated early at violation %d", i)
		}
		for _, e := range effects {
			if _, ok := e.(ForceSubmit); ok {
				t.Fatalf("forced submission at violation %d", i)
			}
		}
	}

	p, effects = Transition(p, FullscreenExited)
	if p.State != StateTerminated || p.Violations != 4 {
		t.Fatalf("expected terminated with 4 violations, got %+v", p)
	}

	var stopped bool
	var forced *ForceSubmit
	for _, e := range effects {
		switch e := e.(type) {
		case StopTimer:
			stopped = true
		case ForceSubmit:
			forced = &e
		}
	}
	if !stopped {
		t.Fatal("timer not stopped on termination")
	}
	if forced == nil || forced.ViolationCount != 4 {
		t.Fatalf("expected ForceSubmit with 4 violations, got %+v", forced)
	}

	// StateTerminated is absorbing.
	after, effects := Transition(p, VisibilityLost)
	if after != p || effects != nil {
		t.Fatalf("terminated machine reacted: %+v %v", after, effects)
	}
}
