package relay

import (
	"sync"
)

// Action is a reducer action: a type tag and an optional payload.
type Action struct {
	Type    string `json:"type" yaml:"type"`
	Payload any    `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// Reducer computes the next state from the current one and an action.
type Reducer[S any] func(state S, action Action) S

// UpdateHook observes every reduction with the state before and after it.
type UpdateHook[S any] func(prev, next S, action Action)

// WithUpdateHook wraps a reducer so hook runs after each reduction.
// A nil hook returns the reducer unchanged.
func WithUpdateHook[S any](reducer Reducer[S], hook UpdateHook[S]) Reducer[S] {
	if hook == nil {
		return reducer
	}
	return func(state S, action Action) S {
		next := reducer(state, action)
		hook(state, next, action)
		return next
	}
}

// Store holds a reducer-managed state. It is safe for concurrent use.
type Store[S any] struct {
	mu     sync.RWMutex
	state  S
	reduce Reducer[S]
}

// NewStore creates a store with an initial state.
func NewStore[S any](initial S, reducer Reducer[S]) *Store[S] {
	return &Store[S]{state: initial, reduce: reducer}
}

// Dispatch reduces the action and returns the new state.
func (s *Store[S]) Dispatch(action Action) S {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = s.reduce(s.state, action)
	return s.state
}

// State returns the current state.
func (s *Store[S]) State() S {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}
