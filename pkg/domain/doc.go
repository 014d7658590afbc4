/*
Package domain contains the core types shared by the state bridge.

It defines the events exchanged with the owning scene element, the lifecycle phases
of a state system, the subscriber contract and the sentinel errors. This package is
kept pure and free of I/O so every adapter can depend on it.

# Key Entities

  - Event / Listener: named signals raised on an element and the callbacks reacting to them.
  - StateUpdate: the detail of the outbound "stateupdate" event (action + payload).
  - Subscriber: anything exposing OnStateUpdate, compared by identity.
  - Phase: uninitialized -> initialized -> active -> destroyed, never backwards.
  - LifecycleHooks: observability callbacks fired by the state system.
*/
package domain
