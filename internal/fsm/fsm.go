// Package fsm defines the recognizer listening states and their legal transitions.
package fsm

import "fmt"

type State string

type Event string

const (
	StateListening   State = "listening"
	StateDispatching State = "dispatching"
	StateSleeping    State = "sleeping"
	StateError       State = "error"
)

const (
	EventDispatch Event = "dispatch"
	EventDone     Event = "done"
	EventSleep    Event = "sleep"
	EventWake     Event = "wake"
	EventFail     Event = "fail"
	EventReset    Event = "reset"
)

func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		return StateError, nil
	}

	switch current {
	case StateListening:
		switch event {
		case EventDispatch:
			return StateDispatching, nil
		case EventSleep:
			return StateSleeping, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateDispatching:
		switch event {
		case EventDone:
			return StateListening, nil
		case EventSleep:
			return StateSleeping, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateSleeping:
		switch event {
		case EventWake:
			return StateListening, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateError:
		switch event {
		case EventReset:
			return StateListening, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
