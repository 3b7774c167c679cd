// Package fsm defines the capture session status machine.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle      State = "idle"
	StateListening State = "listening"
	StateStopping  State = "stopping"
)

const (
	// EventStart begins listening from idle.
	EventStart Event = "start"
	// EventEnded reports that the recognition stream finished. While listening
	// it means the stream is being restarted; while stopping it finalizes.
	EventEnded Event = "ended"
	// EventStop requests an explicit stop.
	EventStop Event = "stop"
	// EventRelanguage recreates the stream with a new language.
	EventRelanguage Event = "relanguage"
	// EventFail aborts the session from any state.
	EventFail Event = "fail"
)

func Transition(current State, event Event) (State, error) {
	switch current {
	case StateIdle, StateListening, StateStopping:
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}

	if event == EventFail {
		return StateIdle, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateListening, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateListening:
		switch event {
		case EventEnded, EventRelanguage:
			return StateListening, nil
		case EventStop:
			return StateStopping, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		switch event {
		case EventEnded:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
