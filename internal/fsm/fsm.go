// Package fsm defines the lifecycle of one injection request.
package fsm

import "fmt"

type State string

type Event string

const (
	StatePending       State = "pending"
	StateFocusAcquired State = "focus_acquired"
	StateInjecting     State = "injecting"
	StateVerifying     State = "verifying"
	StateSucceeded     State = "succeeded"
	StateFailed        State = "failed"
)

const (
	EventFocused  Event = "focused"
	EventEmit     Event = "emit"
	EventEmitted  Event = "emitted"
	EventVerified Event = "verified"
	EventRetry    Event = "retry"
	EventFail     Event = "fail"
)

// Terminal reports whether no further events are accepted.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

func Transition(current State, event Event) (State, error) {
	switch current {
	case StateSucceeded, StateFailed:
		return current, invalidTransition(current, event)
	case StatePending, StateFocusAcquired, StateInjecting, StateVerifying:
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}

	switch event {
	case EventFail:
		return StateFailed, nil
	case EventRetry:
		return StatePending, nil
	}

	switch current {
	case StatePending:
		if event == EventFocused {
			return StateFocusAcquired, nil
		}
	case StateFocusAcquired:
		if event == EventEmit {
			return StateInjecting, nil
		}
	case StateInjecting:
		if event == EventEmitted {
			return StateVerifying, nil
		}
	case StateVerifying:
		if event == EventVerified {
			return StateSucceeded, nil
		}
	}
	return current, invalidTransition(current, event)
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
