// Package wsconn maintains the long-lived WebSocket connection to a
// UniFi Protect controller: dialing, the single reader loop, and the
// session state machine governing authentication and reconnection
// (spec.md §4.3).
package wsconn

import (
	"fmt"
	"sync"
)

// State is one node of the session state machine.
type State string

const (
	StateIdle          State = "idle"
	StateAuthenticating State = "authenticating"
	StateBootstrapping State = "bootstrapping"
	StateConnecting    State = "connecting"
	StateConnected     State = "connected"
	StateReconnecting  State = "reconnecting"
	StateClosing       State = "closing"
	StateClosed        State = "closed"
	StateFailed        State = "failed"
)

// transitions enumerates every permitted edge (spec.md §4.3 table).
// Attempting an edge not listed here is a programming error in this
// package, not a runtime condition callers need to handle.
var transitions = map[State]map[State]bool{
	StateIdle:           {StateAuthenticating: true},
	StateAuthenticating: {StateBootstrapping: true, StateFailed: true},
	StateBootstrapping:  {StateConnecting: true, StateFailed: true},
	StateConnecting:     {StateConnected: true, StateReconnecting: true},
	StateConnected:      {StateReconnecting: true, StateClosing: true},
	StateReconnecting:   {StateConnecting: true, StateAuthenticating: true, StateFailed: true},
	StateClosing:        {StateClosed: true},
	StateFailed:         {StateAuthenticating: true},
}

// Transition is one observed state change, published on the
// state-subscription channel.
type Transition struct {
	From State
	To   State
}

// stateMachine tracks the current state and validates every edge before
// applying it.
type stateMachine struct {
	mu      sync.Mutex
	current State
}

func newStateMachine() *stateMachine {
	return &stateMachine{current: StateIdle}
}

func (m *stateMachine) move(to State) (Transition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	allowed, ok := transitions[m.current]
	if !ok || !allowed[to] {
		return Transition{}, fmt.Errorf("wsconn: illegal transition %s -> %s", m.current, to)
	}
	t := Transition{From: m.current, To: to}
	m.current = to
	return t, nil
}

func (m *stateMachine) get() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}
