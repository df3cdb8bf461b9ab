package status

import (
	"fmt"
	"slices"
	"sync"
)

// State represents a daemon runtime state.
type State string

const (
	Booting    State = "BOOTING"
	Connecting State = "CONNECTING"
	Listening  State = "LISTENING"
	Stopping   State = "STOPPING"
	Error      State = "ERROR"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Booting:    {Connecting, Stopping, Error},
	Connecting: {Listening, Stopping, Error},
	Listening:  {Stopping, Error},
	Error:      {Stopping},
	Stopping:   {},
}

// Observer is notified after every successful transition.
type Observer func(from, to State)

// Machine tracks and enforces daemon runtime state transitions.
type Machine struct {
	mu        sync.RWMutex
	current   State
	observers []Observer
}

// NewMachine creates a new state machine starting in Booting state.
func NewMachine(observers ...Observer) *Machine {
	m := &Machine{
		current:   Booting,
		observers: observers,
	}
	for _, obs := range observers {
		obs("", Booting)
	}
	return m
}

// Observe registers obs and immediately reports the current state to it.
func (m *Machine) Observe(obs Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, obs)
	obs("", m.current)
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	for _, obs := range m.observers {
		obs(from, to)
	}
	return nil
}
