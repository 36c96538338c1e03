// Package statemachine implements Rob Pike's "state functions" pattern: a
// state is a function that performs its work and returns the next state
// function to run. It is deliberately generic and domain-agnostic — it knows
// nothing about players, rooms, or games — so it can back any entity in this
// module whose lifecycle is better described as a handful of named states
// with clear entry/exit behavior than as a single mutable status field.
//
// The Game Session phase (Lobby/Dealing/Playing/Paused/GameOver) is NOT
// built on this package: that state's transitions are driven by external
// commands against an explicit transition table, which is easier to audit as
// a flat switch than as a chain of returned closures. This package backs
// state that evolves from its own internal conditions instead — see
// pkg/player's connection-status machine.
package statemachine

import "sync"

// StateEvent distinguishes why a callback fired.
type StateEvent int

const (
	StateEntered StateEvent = iota
	StateExited
	TransitionRequested
)

// StateFn is one state: given the entity and an optional callback, it does
// its work and returns the state to run next. Returning nil terminates the
// machine.
type StateFn[T any] func(*T, func(stateName string, event StateEvent)) StateFn[T]

// StateMachine is a thread-safe wrapper around a chain of StateFn values.
type StateMachine[T any] struct {
	entity      *T
	stateFn     StateFn[T]
	currentName string
	mu          sync.RWMutex
}

// NewStateMachine creates a state machine for entity, starting at initialStateFn.
func NewStateMachine[T any](entity *T, initialStateFn StateFn[T]) *StateMachine[T] {
	return &StateMachine[T]{entity: entity, stateFn: initialStateFn}
}

// Dispatch runs the current state function once and transitions to whatever
// it returns. callback may be nil.
func (sm *StateMachine[T]) Dispatch(callback func(stateName string, event StateEvent)) {
	sm.mu.Lock()
	currentStateFn := sm.stateFn
	sm.mu.Unlock()

	if currentStateFn == nil {
		return
	}

	nextStateFn := currentStateFn(sm.entity, func(stateName string, event StateEvent) {
		if event == StateEntered {
			sm.mu.Lock()
			sm.currentName = stateName
			sm.mu.Unlock()
		}
		if callback != nil {
			callback(stateName, event)
		}
	})

	sm.mu.Lock()
	sm.stateFn = nextStateFn
	sm.mu.Unlock()
}

// GetCurrentState returns the current state function.
func (sm *StateMachine[T]) GetCurrentState() StateFn[T] {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.stateFn
}

// CurrentName returns the name of the most recently entered state, as
// reported by that state's own StateEntered callback. Empty until the first
// Dispatch/SetState call.
func (sm *StateMachine[T]) CurrentName() string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.currentName
}

// SetState forces a transition to stateFn and immediately dispatches it so
// its StateEntered callback fires and CurrentName updates.
func (sm *StateMachine[T]) SetState(stateFn StateFn[T]) {
	sm.mu.Lock()
	sm.stateFn = stateFn
	sm.mu.Unlock()

	sm.Dispatch(nil)
}

// Terminated reports whether the machine has reached a nil (terminal) state.
func (sm *StateMachine[T]) Terminated() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.stateFn == nil
}
