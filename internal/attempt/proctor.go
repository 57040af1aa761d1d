package attempt

// State is the proctoring phase of an attempt.
type State int

const (
	// Inactive: the paper is loaded but the student has not started.
	Inactive State = iota
	// Active: the timer runs and focus loss counts as a violation.
	Active
	// StateTerminated: the violation limit was exceeded.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Active:
		return "active"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Event is something the environment reports about the student's screen.
type Event int

const (
	// FullscreenGranted starts the attempt once fullscreen is on.
	FullscreenGranted Event = iota
	// FullscreenUnsupported starts the attempt without fullscreen.
	FullscreenUnsupported
	// FullscreenEntered reports fullscreen coming back. It never forgives a violation.
	FullscreenEntered
	FullscreenExited
	VisibilityLost
)

func (e Event) String() string {
	switch e {
	case FullscreenGranted:
		return "fullscreen_granted"
	case FullscreenUnsupported:
		return "fullscreen_unsupported"
	case FullscreenEntered:
		return "fullscreen_entered"
	case FullscreenExited:
		return "fullscreen_exited"
	case VisibilityLost:
		return "visibility_lost"
	default:
		return "unknown"
	}
}

// Effect is an action the caller must carry out after a transition.
type Effect interface {
	effect()
}

// StartTimer asks the caller to begin the countdown.
type StartTimer struct{}

// StopTimer asks the caller to halt the countdown.
type StopTimer struct{}

// Warning tells the student a violation was recorded.
type Warning struct {
	Count  int
	Max    int
	Reason string
}

// ForceSubmit asks the caller to submit the attempt as it stands.
type ForceSubmit struct {
	ViolationCount int
}

func (StartTimer) effect()  {}
func (StopTimer) effect()   {}
func (Warning) effect()     {}
func (ForceSubmit) effect() {}

// Proctor is the proctoring state of one attempt.
type Proctor struct {
	State         State
	Violations    int
	MaxViolations int
}

// Transition applies ev to p and returns the next state with the effects to
// run. It has no side effects.
func Transition(p Proctor, ev Event) (Proctor, []Effect) {
	switch p.State {
	case Inactive:
		switch ev {
		case FullscreenGranted, FullscreenUnsupported:
			p.State = Active
			return p, []Effect{StartTimer{}}
		}
	case Active:
		reason := violationReason(ev)
		if reason == "" {
			return p, nil
		}
		p.Violations++
		effects := []Effect{Warning{Count: p.Violations, Max: p.MaxViolations, Reason: reason}}
		if p.Violations > p.MaxViolations {
			p.State = StateTerminated
			effects = append(effects, StopTimer{}, ForceSubmit{ViolationCount: p.Violations})
		}
		return p, effects
	}
	return p, nil
}

func violationReason(ev Event) string {
	switch ev {
	case FullscreenExited:
		return "You exited full screen mode."
	case VisibilityLost:
		return "You switched away from the test window."
	default:
		return ""
	}
}
