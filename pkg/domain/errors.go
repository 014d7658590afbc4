package domain

import "errors"

// ErrUnknownAction is returned when an action is dispatched but no handler is registered for it.
var ErrUnknownAction = errors.New("unknown action")

// ErrInvalidAction is returned when an action name is empty.
var ErrInvalidAction = errors.New("invalid action name")

// ErrNilHandler is returned when a handler registration carries a nil function.
var ErrNilHandler = errors.New("nil action handler")

// ErrNotInitialized is returned when the state system is used before Init.
var ErrNotInitialized = errors.New("state system not initialized")

// ErrAlreadyInitialized is returned by operations only valid before Init.
var ErrAlreadyInitialized = errors.New("state system already initialized")

// ErrDestroyed is returned when the state system is used after Destroy.
var ErrDestroyed = errors.New("state system destroyed")

// ErrIncomparableSubscriber is returned when a subscriber handle cannot be compared by identity.
var ErrIncomparableSubscriber = errors.New("subscriber is not comparable")

// ErrDuplicateSystem is returned when a scene already owns a system with the same name.
var ErrDuplicateSystem = errors.New("system already registered")

// ErrSystemNotFound is returned when a scene has no system with the requested name.
var ErrSystemNotFound = errors.New("system not found")

// ErrSystemType is returned when a system exists but has an unexpected type.
var ErrSystemType = errors.New("system has unexpected type")

// ErrElementClosed is returned when work is scheduled on a closed element.
var ErrElementClosed = errors.New("element closed")

// ErrSceneLoaded is returned when a scene is modified in a way only valid before Load.
var ErrSceneLoaded = errors.New("scene already loaded")

// ErrDuplicateComponent is returned when an entity already holds a component with the same name.
var ErrDuplicateComponent = errors.New("component already attached")
