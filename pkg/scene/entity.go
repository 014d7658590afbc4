package scene

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/statebridge/pkg/domain"
)

// Component is a per-entity behavior.
type Component interface {
	Attach(ctx context.Context, ent *Entity) error
	Detach(ctx context.Context, ent *Entity)
}

// Entity groups named components inside a scene.
// Components attached before the scene loads are attached during Load, after
// every system has been initialized.
type Entity struct {
	id    string
	scene *Scene

	mu         sync.Mutex
	components map[string]Component
	order      []string
	attached   map[string]bool
}

// ID returns the entity identifier.
func (e *Entity) ID() string { return e.id }

// Scene returns the owning scene.
func (e *Entity) Scene() *Scene { return e.scene }

// Attach adds a component under name.
func (e *Entity) Attach(ctx context.Context, name string, c Component) error {
	e.mu.Lock()
	if _, exists := e.components[name]; exists {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrDuplicateComponent, name)
	}
	e.components[name] = c
	e.order = append(e.order, name)
	e.mu.Unlock()

	if !e.scene.Loaded() {
		return nil
	}
	if err := e.attach(ctx, name, c); err != nil {
		e.forget(name)
		return err
	}
	return nil
}

// Detach removes the component registered under name. It reports whether one existed.
func (e *Entity) Detach(ctx context.Context, name string) bool {
	e.mu.Lock()
	c, ok := e.components[name]
	if !ok {
		e.mu.Unlock()
		return false
	}
	wasAttached := e.attached[name]
	e.forgetLocked(name)
	e.mu.Unlock()

	if wasAttached {
		c.Detach(ctx, e)
	}
	return true
}

// Component returns the component registered under name.
func (e *Entity) Component(name string) (Component, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.components[name]
	return c, ok
}

func (e *Entity) attach(ctx context.Context, name string, c Component) error {
	if err := c.Attach(ctx, e); err != nil {
		return fmt.Errorf("attach %q: %w", name, err)
	}
	e.mu.Lock()
	if e.attached == nil {
		e.attached = make(map[string]bool)
	}
	e.attached[name] = true
	e.mu.Unlock()
	return nil
}

func (e *Entity) attachPending(ctx context.Context) error {
	e.mu.Lock()
	var pending []string
	for _, name := range e.order {
		if !e.attached[name] {
			pending = append(pending, name)
		}
	}
	e.mu.Unlock()

	for _, name := range pending {
		c, ok := e.Component(name)
		if !ok {
			continue
		}
		if err := e.attach(ctx, name, c); err != nil {
			return err
		}
	}
	return nil
}

func (e *Entity) detachAll(ctx context.Context) {
	e.mu.Lock()
	order := append([]string(nil), e.order...)
	e.mu.Unlock()
	for i := len(order) - 1; i >= 0; i-- {
		e.Detach(ctx, order[i])
	}
}

func (e *Entity) forget(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.forgetLocked(name)
}

func (e *Entity) forgetLocked(name string) {
	delete(e.components, name)
	delete(e.attached, name)
	for i, n := range e.order {
		if n == name {
			e.order = append(e.order[:i:i], e.order[i+1:]...)
			break
		}
	}
}
