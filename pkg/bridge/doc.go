/*
Package bridge keeps one shared state value consistent between code running
outside a scene and the entities inside it.

A System owns the state of a scene. Partial Definitions (name, initial state or
factory, named handlers) are merged with Register before the scene loads. On Init
the initial state is resolved and deep-copied, and one listener per action is bound
on the owning element, so raising an event named after an action dispatches it with
the event detail as payload.

Dispatch mutates the live state in place through the registered handler, then runs a
notification pass (each distinct subscriber is called once with the live state) and
finally emits "stateupdate" with the action and payload. Dispatching an unregistered
action returns domain.ErrUnknownAction.

# Usage

	sys, err := bridge.New(bridge.Definition[Game]{
		Name:    "game",
		Initial: bridge.Value(Game{Level: 1}),
		Handlers: map[string]bridge.Handler[Game]{
			"addScore": bridge.Typed(func(g *Game, n int) error {
				g.Score += n
				return nil
			}),
		},
	})
	if err != nil {
		return err
	}
	sc := scene.New()
	if err := bridge.Mount(sc, sys); err != nil {
		return err
	}
*/
package bridge
