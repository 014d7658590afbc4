// Package redis relays actions and state updates between a scene and Redis
// pub/sub, so processes outside the scene can drive and observe it.
package redis
