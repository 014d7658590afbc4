// Package relay connects reducer-style stores living outside a scene to the
// scene's event loop.
//
// A store can push its changes with an UpdateHook built by Forward, or be
// observed from the outside with a Poller. Either way the selected state
// reaches the scene as the payload of an ordinary action event, so the bridge
// system applies it with a regular handler.
package relay
