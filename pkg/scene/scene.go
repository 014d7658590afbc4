package scene

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/statebridge/internal/logging"
	"github.com/aretw0/statebridge/pkg/domain"
	"github.com/aretw0/statebridge/pkg/ports"
	"github.com/google/uuid"
)

// System is a scene-wide container of logic, initialized before any component.
type System interface {
	// Init binds the system to the element of its scene.
	Init(ctx context.Context, target ports.EventTarget) error

	// Destroy releases every resource acquired in Init.
	Destroy(ctx context.Context) error
}

// Scene owns an element, the systems registered on it and its entities.
type Scene struct {
	id     string
	el     *Element
	logger *slog.Logger

	mu       sync.Mutex
	systems  map[string]System
	order    []string
	entities []*Entity
	loaded   bool
	closed   bool
}

// Option configures a Scene.
type Option func(*Scene)

// WithLogger sets a custom structured logger for the scene.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scene) {
		s.logger = logger
	}
}

// WithElement injects a preconfigured element.
func WithElement(el *Element) Option {
	return func(s *Scene) {
		s.el = el
	}
}

// WithID overrides the generated scene identifier.
func WithID(id string) Option {
	return func(s *Scene) {
		s.id = id
	}
}

// New creates an empty, unloaded scene.
func New(opts ...Option) *Scene {
	s := &Scene{
		systems: make(map[string]System),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	s.logger = s.logger.With("scene_id", s.id)
	if s.el == nil {
		s.el = NewElement(WithElementLogger(s.logger))
	}
	return s
}

// ID returns the scene identifier.
func (s *Scene) ID() string { return s.id }

// Element returns the element owning the scene systems.
func (s *Scene) Element() *Element { return s.el }

// Logger returns the scene logger.
func (s *Scene) Logger() *slog.Logger { return s.logger }

// RegisterSystem adds a system under a unique name. Systems must be registered before Load.
func (s *Scene) RegisterSystem(name string, sys System) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return fmt.Errorf("register system %q: %w", name, domain.ErrSceneLoaded)
	}
	if _, exists := s.systems[name]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateSystem, name)
	}
	s.systems[name] = sys
	s.order = append(s.order, name)
	return nil
}

// System returns the system registered under name.
func (s *Scene) System(name string) (System, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sys, ok := s.systems[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSystemNotFound, name)
	}
	return sys, nil
}

// Loaded reports whether Load completed.
func (s *Scene) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Load initializes every system in registration order, attaches the components
// of existing entities and finally emits "loaded" on the element.
// It must run on the goroutine that owns the element.
func (s *Scene) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.loaded {
		s.mu.Unlock()
		return domain.ErrSceneLoaded
	}
	order := append([]string(nil), s.order...)
	systems := make([]System, len(order))
	for i, name := range order {
		systems[i] = s.systems[name]
	}
	entities := append([]*Entity(nil), s.entities...)
	s.loaded = true
	s.mu.Unlock()

	for i, sys := range systems {
		if err := sys.Init(ctx, s.el); err != nil {
			return fmt.Errorf("failed to init system %q: %w", order[i], err)
		}
		s.logger.Debug("system initialized", "system", order[i])
	}

	for _, ent := range entities {
		if err := ent.attachPending(ctx); err != nil {
			return fmt.Errorf("failed to attach components of entity %s: %w", ent.id, err)
		}
	}

	s.el.Emit(ctx, domain.EventLoaded, nil)
	s.logger.Info("scene loaded", "systems", len(systems), "entities", len(entities))
	return nil
}

// NewEntity creates an entity owned by the scene.
func (s *Scene) NewEntity() *Entity {
	ent := &Entity{
		id:         uuid.NewString(),
		scene:      s,
		components: make(map[string]Component),
	}
	s.mu.Lock()
	s.entities = append(s.entities, ent)
	s.mu.Unlock()
	return ent
}

// RemoveEntity detaches every component of ent and forgets it.
func (s *Scene) RemoveEntity(ctx context.Context, ent *Entity) {
	s.mu.Lock()
	for i, candidate := range s.entities {
		if candidate == ent {
			s.entities = append(s.entities[:i:i], s.entities[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	ent.detachAll(ctx)
}

// Close removes all entities, destroys systems in reverse registration order and
// closes the element. It is safe to call more than once.
func (s *Scene) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	entities := s.entities
	s.entities = nil
	order := append([]string(nil), s.order...)
	loaded := s.loaded
	s.mu.Unlock()

	for _, ent := range entities {
		ent.detachAll(ctx)
	}

	var errs []error
	if loaded {
		for i := len(order) - 1; i >= 0; i-- {
			if err := s.systems[order[i]].Destroy(ctx); err != nil {
				errs = append(errs, fmt.Errorf("destroy system %q: %w", order[i], err))
			}
		}
	}
	s.el.Close()
	s.logger.Info("scene closed")
	return errors.Join(errs...)
}
