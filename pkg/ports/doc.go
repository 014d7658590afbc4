/*
Package ports defines the driven ports (interfaces) of the state bridge.

These interfaces decouple the state system from the concrete scene implementation,
so the bridge can be driven by the in-process scene element, by tests, or by any
host that can deliver named events.

# Key Interfaces

  - EventTarget: the owning element; listeners are added per event name and events are emitted synchronously.
  - Scheduler: hands work to the goroutine that owns the element, for producers living elsewhere.
*/
package ports
