/*
Package statebridge shares one state between the entities of a scene and the
world outside it.

A scene owns an element (an event target with its own loop) and a set of
systems. The bridge system keeps a single state value, a table of action
handlers and a list of subscribers. Dispatching an action runs its handler
against the live state, notifies every distinct subscriber once and emits a
"stateupdate" event on the element. Any event named after an action is turned
into a dispatch, so producers only need to emit events.

# Key Features

  - Single-threaded state: every mutation runs on the scene loop, no locks in handlers.
  - Typed handlers: payloads are decoded into Go structs with bridge.Typed.
  - Declarative states: map-shaped states driven by configuration (package reducers).
  - Adapters: HTTP with Server-Sent Events, Redis pub/sub and MCP.
  - Observability: lifecycle hooks feeding slog and Prometheus.

# Usage

	type Game struct {
		Score int `json:"score"`
	}

	eng, err := statebridge.New(bridge.Definition[Game]{
		Name: "game",
		Handlers: map[string]bridge.Handler[Game]{
			"addScore": bridge.Typed(func(g *Game, points int) error {
				g.Score += points
				return nil
			}),
		},
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if err := eng.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer eng.Stop(ctx)

	state, err := eng.Dispatch(ctx, "addScore", 10)

Components attached to scene entities observe the state with bridge.Stateful,
and adapters reach the loop through ports.Scheduler.
*/
package statebridge
