package ports

import (
	"context"

	"github.com/aretw0/statebridge/pkg/domain"
)

// EventTarget is the element owning a state system.
type EventTarget interface {
	// AddEventListener registers fn for events named name.
	// The returned function removes that registration and is safe to call more than once.
	AddEventListener(name string, fn domain.Listener) (remove func())

	// Emit delivers an event synchronously to every listener registered for name
	// at the moment the emit starts, in registration order.
	Emit(ctx context.Context, name string, detail any)
}

// Scheduler moves work onto the goroutine that owns an EventTarget.
// The state system itself is single-threaded; adapters running on other goroutines
// (HTTP handlers, pub/sub consumers, pollers) must go through a Scheduler.
type Scheduler interface {
	// Post enqueues an event to be emitted by the owning loop. It does not wait.
	Post(ctx context.Context, name string, detail any) error

	// Do runs fn on the owning loop and waits for it to return.
	Do(ctx context.Context, fn func(ctx context.Context)) error
}

// Host is an event target that also owns the loop its listeners run on.
// scene.Element is the canonical implementation.
type Host interface {
	EventTarget
	Scheduler
}
