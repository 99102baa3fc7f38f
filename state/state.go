package state

import (
	"errors"
	"sync"

	"github.com/wfunc/showdown/game"
)

// ErrTransitionNotAllowed is returned when a phase transition is not allowed.
var ErrTransitionNotAllowed = errors.New("phase transition not allowed")

// Machine is a guarded phase machine. Transitions must be registered
// up front; anything else is rejected without touching the current
// phase.
type Machine struct {
	current     game.Phase
	transitions map[game.Phase]map[game.Phase]bool
	mutex       sync.RWMutex
}

func NewMachine(initial game.Phase) *Machine {
	return &Machine{
		current:     initial,
		transitions: make(map[game.Phase]map[game.Phase]bool),
	}
}

// NewRoomMachine builds the machine with the room lifecycle wired in:
// lobby -> planning -> resolution -> planning|ended -> lobby.
func NewRoomMachine() *Machine {
	m := NewMachine(game.PhaseLobby)
	m.AddTransition(game.PhaseLobby, game.PhasePlanning)
	m.AddTransition(game.PhasePlanning, game.PhaseResolution)
	m.AddTransition(game.PhaseResolution, game.PhasePlanning)
	m.AddTransition(game.PhaseResolution, game.PhaseEnded)
	m.AddTransition(game.PhaseEnded, game.PhaseLobby)
	return m
}

// AddTransition registers from -> to as legal.
func (m *Machine) AddTransition(from, to game.Phase) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.transitions[from]; !exists {
		m.transitions[from] = make(map[game.Phase]bool)
	}
	m.transitions[from][to] = true
}

// Transition moves the machine to the target phase, or returns
// ErrTransitionNotAllowed and stays put.
func (m *Machine) Transition(to game.Phase) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !m.transitions[m.current][to] {
		return ErrTransitionNotAllowed
	}
	m.current = to
	return nil
}

// Current returns the machine's phase.
func (m *Machine) Current() game.Phase {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.current
}
