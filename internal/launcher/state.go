// SPDX-License-Identifier: MPL-2.0

package launcher

import (
	"errors"
	"fmt"
	"sync"
)

// Launch states.
const (
	StateIdle State = iota
	StateResolving
	StateFetching
	StateLaunching
	StateRunning
	StateCompleted
	StateFailed
)

// ErrInvalidTransition is returned for a transition the state machine does
// not allow.
var ErrInvalidTransition = errors.New("invalid launch state transition")

type (
	// State is a stage of a launch.
	State int

	// Listener observes state transitions of a launch.
	Listener func(launchID string, from, to State)

	// machine guards the state of one launch.
	machine struct {
		mu       sync.Mutex
		id       string
		state    State
		listener Listener
	}
)

var stateNames = [...]string{
	StateIdle:      "idle",
	StateResolving: "resolving",
	StateFetching:  "fetching",
	StateLaunching: "launching",
	StateRunning:   "running",
	StateCompleted: "completed",
	StateFailed:    "failed",
}

// String returns the lower-case state name.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// CanTransition reports whether from may move to to. Every non-terminal
// state may fail.
func CanTransition(from, to State) bool {
	if from.IsTerminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	switch from {
	case StateIdle:
		return to == StateResolving
	case StateResolving:
		return to == StateFetching
	case StateFetching:
		return to == StateLaunching
	case StateLaunching:
		return to == StateRunning
	case StateRunning:
		return to == StateCompleted
	default:
		return false
	}
}

func newMachine(id string, l Listener) *machine {
	return &machine{id: id, state: StateIdle, listener: l}
}

func (m *machine) current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// to moves the machine to next and notifies the listener outside the lock.
func (m *machine) to(next State) error {
	m.mu.Lock()
	from := m.state
	if !CanTransition(from, next) {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, next)
	}
	m.state = next
	m.mu.Unlock()

	if m.listener != nil {
		m.listener(m.id, from, next)
	}
	return nil
}
