package live

import (
	"fmt"
	"slices"
)

// State is the lifecycle state of a Conn.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateOpen:
		return "Open"
	case StateClosing:
		return "Closing"
	case StateClosed:
		return "Closed"
	case StateErrored:
		return "Errored"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateErrored
}

var validTransitions = map[State][]State{
	StateDisconnected: {StateConnecting},
	StateConnecting:   {StateOpen, StateErrored},
	StateOpen:         {StateClosing, StateErrored},
	StateClosing:      {StateClosed, StateErrored},
}

// stateMachine holds the current state. It is not safe for concurrent use;
// Conn guards it with its own mutex.
type stateMachine struct {
	current State
}

func (sm *stateMachine) canTransition(to State) bool {
	validTo, ok := validTransitions[sm.current]
	if !ok {
		return false
	}
	return slices.Contains(validTo, to)
}

func (sm *stateMachine) transition(to State) bool {
	if !sm.canTransition(to) {
		return false
	}
	sm.current = to
	return true
}
