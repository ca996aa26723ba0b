package session

import (
	"errors"
	"fmt"
)

// State is the lifecycle state of one tracking session.
type State string

const (
	StateIdle         State = "idle"
	StateInitializing State = "initializing"
	StateTracking     State = "tracking"
	StateError        State = "error"
	StateStopped      State = "stopped"
)

// Event drives a state transition.
type Event string

const (
	EventStart      Event = "start"
	EventReady      Event = "ready"
	EventFail       Event = "fail"
	EventFrameError Event = "frame_error"
	EventStop       Event = "stop"
)

// ErrInvalidTransition is returned for events not allowed in the current state.
var ErrInvalidTransition = errors.New("invalid state transition")

var transitions = map[State]map[Event]State{
	StateIdle: {
		EventStart: StateInitializing,
		EventStop:  StateStopped,
	},
	StateInitializing: {
		EventReady: StateTracking,
		EventFail:  StateError,
		EventStop:  StateStopped,
	},
	StateTracking: {
		EventFrameError: StateTracking,
		EventStop:       StateStopped,
	},
	StateError: {
		EventStop: StateError,
	},
	StateStopped: {
		EventStop: StateStopped,
	},
}

// Next returns the state reached from s on ev.
func Next(s State, ev Event) (State, error) {
	if to, ok := transitions[s][ev]; ok {
		return to, nil
	}
	return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, s, ev)
}

// Terminal reports whether s ends a session.
func (s State) Terminal() bool {
	return s == StateError || s == StateStopped
}

// Machine tracks the state of one session. It is not safe for concurrent use.
type Machine struct {
	state State
}

// NewMachine returns a machine in StateIdle.
func NewMachine() *Machine {
	return &Machine{state: StateIdle}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Fire applies ev and returns the previous and new states.
// On an invalid transition the state is unchanged.
func (m *Machine) Fire(ev Event) (from, to State, err error) {
	from = m.state
	to, err = Next(from, ev)
	if err != nil {
		return from, from, err
	}
	m.state = to
	return from, to, nil
}
