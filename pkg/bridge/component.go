package bridge

import (
	"context"
	"fmt"

	"github.com/aretw0/statebridge/pkg/domain"
	"github.com/aretw0/statebridge/pkg/scene"
)

var _ scene.System = (*System[struct{}])(nil)

// Mount registers sys on sc under its name.
func Mount[T any](sc *scene.Scene, sys *System[T]) error {
	return sc.RegisterSystem(sys.Name(), sys)
}

// Lookup returns the state system registered on sc under name.
func Lookup[T any](sc *scene.Scene, name string) (*System[T], error) {
	raw, err := sc.System(name)
	if err != nil {
		return nil, err
	}
	sys, ok := raw.(*System[T])
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T", domain.ErrSystemType, name, raw)
	}
	return sys, nil
}

// Stateful is a component that receives state updates while attached to an entity.
type Stateful[T any] struct {
	system   string
	onUpdate func(ent *scene.Entity, state *T)

	ent *scene.Entity
	sys *System[T]
}

var _ scene.Component = (*Stateful[struct{}])(nil)

// NewStateful creates a component subscribed to the system named system.
// onUpdate runs on every notification pass while the component is attached.
func NewStateful[T any](system string, onUpdate func(ent *scene.Entity, state *T)) *Stateful[T] {
	return &Stateful[T]{system: system, onUpdate: onUpdate}
}

// Attach subscribes the component.
func (c *Stateful[T]) Attach(ctx context.Context, ent *scene.Entity) error {
	sys, err := Lookup[T](ent.Scene(), c.system)
	if err != nil {
		return err
	}
	if err := sys.Subscribe(c); err != nil {
		return err
	}
	c.ent = ent
	c.sys = sys
	return nil
}

// Detach unsubscribes the component.
func (c *Stateful[T]) Detach(ctx context.Context, ent *scene.Entity) {
	if c.sys != nil {
		c.sys.Unsubscribe(c)
	}
	c.sys = nil
	c.ent = nil
}

// OnStateUpdate implements domain.Subscriber.
func (c *Stateful[T]) OnStateUpdate(state *T) {
	if c.onUpdate != nil {
		c.onUpdate(c.ent, state)
	}
}

// Dispatch forwards an action to the system the component is attached to.
func (c *Stateful[T]) Dispatch(ctx context.Context, action string, payload any) error {
	if c.sys == nil {
		return domain.ErrNotInitialized
	}
	return c.sys.Dispatch(ctx, action, payload)
}
