package statebridge_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/statebridge"
	"github.com/aretw0/statebridge/pkg/bridge"
	"github.com/aretw0/statebridge/pkg/reducers"
)

type Player struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ExampleNew shows a typed state driven by typed handlers.
func ExampleNew() {
	eng, err := statebridge.New(bridge.Definition[Player]{
		Name: "player",
		Handlers: map[string]bridge.Handler[Player]{
			"move": bridge.Typed(func(p *Player, d Player) error {
				p.X += d.X
				p.Y += d.Y
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

	// JSON-like payloads are decoded into the handler's payload type
	state, err := eng.Dispatch(ctx, "move", map[string]any{"x": 2, "y": 1})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("x=%d y=%d\n", state.X, state.Y)

	// Output:
	// x=2 y=1
}

// ExampleNew_declarative builds the same kind of engine from action specs.
func ExampleNew_declarative() {
	def, err := reducers.Build("game", reducers.State{"score": 0}, map[string]reducers.ActionSpec{
		"addScore": {Op: reducers.OpAdd, Path: "score", Value: 1},
	})
	if err != nil {
		log.Fatal(err)
	}

	eng, err := statebridge.New(def)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if err := eng.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer eng.Stop(ctx)

	eng.Dispatch(ctx, "addScore", nil)
	state, _ := eng.Dispatch(ctx, "addScore", 5)
	fmt.Println("score:", state["score"])

	// Output:
	// score: 6
}
