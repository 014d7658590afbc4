package bridge

import "context"

// Controller is the untyped view of a state system used by adapters that
// only move JSON-like values around (HTTP, pub/sub, MCP).
// Like the System itself, every method must run on the owning loop.
type Controller interface {
	Name() string
	Actions() []string
	Dispatch(ctx context.Context, action string, payload any) error
	Current() any
}

var _ Controller = (*System[struct{}])(nil)

// Current returns a deep copy of the live state as an untyped value.
func (s *System[T]) Current() any { return s.Snapshot() }
