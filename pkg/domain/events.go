package domain

import (
	"context"
	"time"
)

const (
	// EventStateUpdate is emitted on the owning element after every successful dispatch.
	EventStateUpdate = "stateupdate"
	// EventLoaded is emitted on the owning element once the scene has finished loading.
	EventLoaded = "loaded"
)

// Event is a named signal delivered to listeners of an element.
type Event struct {
	Name   string `json:"name"`
	Detail any    `json:"detail,omitempty"`
}

// Listener reacts to an event raised on an element.
type Listener func(ctx context.Context, evt Event)

// StateUpdate is the detail carried by every "stateupdate" event.
type StateUpdate struct {
	Action  string `json:"action"`
	Payload any    `json:"payload,omitempty"`
}

// EventBase contains common fields for all lifecycle events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	System    string    `json:"system"`
}

// PhaseEvent reports a transition of the state system lifecycle.
type PhaseEvent struct {
	EventBase
	From Phase `json:"from"`
	To   Phase `json:"to"`
}

// DispatchEvent reports the outcome of a single dispatch.
type DispatchEvent struct {
	EventBase
	Action   string        `json:"action"`
	Payload  any           `json:"payload,omitempty"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// NotifyEvent reports a completed notification pass.
type NotifyEvent struct {
	EventBase
	Subscribers int `json:"subscribers"`
}

// LifecycleHooks defines callbacks for state system observability.
type LifecycleHooks struct {
	OnPhaseChange func(context.Context, *PhaseEvent)
	OnDispatch    func(context.Context, *DispatchEvent)
	OnNotify      func(context.Context, *NotifyEvent)
}
