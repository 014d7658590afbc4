package domain

// Phase defines the lifecycle stage of a state system.
type Phase string

const (
	PhaseUninitialized Phase = "uninitialized" // Definitions may still be registered
	PhaseInitialized   Phase = "initialized"   // State resolved, listeners bound
	PhaseActive        Phase = "active"        // At least one notification or dispatch happened
	PhaseDestroyed     Phase = "destroyed"     // Sink phase
)

// Live reports whether the phase accepts dispatches and notifications.
func (p Phase) Live() bool {
	return p == PhaseInitialized || p == PhaseActive
}

// Subscriber is an entity-level collaborator that wants to observe the shared state.
// Subscribers are compared by identity, so implementations should be pointer types.
// The state pointer is live: it is mutated in place by the next dispatch.
type Subscriber[T any] interface {
	OnStateUpdate(state *T)
}
