package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotFound is returned when no entry is registered under a name.
var ErrNotFound = errors.New("not registered")

// ErrEmptyName is returned when registering under an empty name.
var ErrEmptyName = errors.New("empty name")

// Registry maps unique names to values (typically handler functions).
type Registry[H any] struct {
	mu      sync.RWMutex
	entries map[string]H
}

// NewRegistry creates a new empty registry.
func NewRegistry[H any]() *Registry[H] {
	return &Registry[H]{
		entries: make(map[string]H),
	}
}

// Register adds an entry to the registry.
// If an entry with the same name exists, it is overwritten.
func (r *Registry[H]) Register(name string, h H) error {
	if name == "" {
		return ErrEmptyName
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = h
	return nil
}

// Lookup returns the entry registered under name.
func (r *Registry[H]) Lookup(name string) (H, error) {
	r.mu.RLock()
	h, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		var zero H
		return zero, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return h, nil
}

// Names returns every registered name, sorted.
func (r *Registry[H]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for k := range r.entries {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered entries.
func (r *Registry[H]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
