package pipeline

import (
	"errors"
	"fmt"
)

// Phase is the state of a review run.
type Phase int

// Phases in the order a successful run visits them. Done and Failed are
// terminal.
const (
	PhaseIdle Phase = iota
	PhaseRendering
	PhaseAnalyzing
	PhaseAggregating
	PhaseSelectingJokes
	PhaseBuilding
	PhaseDone
	PhaseFailed
)

// String returns the phase name used in logs.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRendering:
		return "rendering"
	case PhaseAnalyzing:
		return "analyzing"
	case PhaseAggregating:
		return "aggregating"
	case PhaseSelectingJokes:
		return "selecting_jokes"
	case PhaseBuilding:
		return "building"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Terminal reports whether no further transition is possible.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// Event drives a Phase transition.
type Event int

// Events.
const (
	// EventStart begins a run.
	EventStart Event = iota
	// EventCompleted ends the current phase successfully.
	EventCompleted
	// EventFailed ends the run with a document-level error.
	EventFailed
	// EventCancelled ends the run because its context was cancelled.
	EventCancelled
)

// String returns the event name used in logs.
func (e Event) String() string {
	switch e {
	case EventStart:
		return "start"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	case EventCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// ErrInvalidTransition is returned by Transition for an event the phase
// does not accept.
var ErrInvalidTransition = errors.New("invalid phase transition")

// next is the phase reached by EventCompleted.
var next = map[Phase]Phase{
	PhaseRendering:      PhaseAnalyzing,
	PhaseAnalyzing:      PhaseAggregating,
	PhaseAggregating:    PhaseSelectingJokes,
	PhaseSelectingJokes: PhaseBuilding,
	PhaseBuilding:       PhaseDone,
}

// Transition returns the phase reached from p on e.
//
// A run fails only while rendering (bad PDF), analyzing (no usable page) or
// building (unserializable report). Cancellation is accepted in every
// non-terminal phase.
func Transition(p Phase, e Event) (Phase, error) {
	switch e {
	case EventStart:
		if p == PhaseIdle {
			return PhaseRendering, nil
		}
	case EventCompleted:
		if n, ok := next[p]; ok {
			return n, nil
		}
	case EventFailed:
		switch p {
		case PhaseRendering, PhaseAnalyzing, PhaseBuilding:
			return PhaseFailed, nil
		}
	case EventCancelled:
		if !p.Terminal() {
			return PhaseFailed, nil
		}
	}
	return p, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, e, p)
}
