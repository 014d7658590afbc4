package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/aretw0/statebridge/internal/logging"
	"github.com/aretw0/statebridge/pkg/domain"
	"github.com/aretw0/statebridge/pkg/ports"
	"github.com/aretw0/statebridge/pkg/registry"
)

// DefaultName is the system name used when no definition provides one.
const DefaultName = "state"

// System owns the shared state of one scene: its definition, the live value,
// the handlers and the subscribers. It implements scene.System.
//
// A System is not safe for concurrent use. Every call must happen on the goroutine
// that owns its element; other goroutines go through a ports.Scheduler.
type System[T any] struct {
	def      Definition[T]
	handlers *registry.Registry[Handler[T]]

	state  T
	subs   SubscriberList[T]
	target ports.EventTarget
	phase  domain.Phase

	bound    map[string]struct{}
	removers []func()

	hooks  domain.LifecycleHooks
	logger *slog.Logger
}

// Option configures a System.
type Option func(*systemConfig)

type systemConfig struct {
	hooks  domain.LifecycleHooks
	logger *slog.Logger
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *systemConfig) {
		c.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the system.
func WithLogger(logger *slog.Logger) Option {
	return func(c *systemConfig) {
		c.logger = logger
	}
}

// New creates an uninitialized system from a first definition.
// More definitions can be merged with Register until Init.
func New[T any](def Definition[T], opts ...Option) (*System[T], error) {
	cfg := systemConfig{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logging.NewNop()
	}

	s := &System[T]{
		phase:  domain.PhaseUninitialized,
		hooks:  cfg.hooks,
		logger: cfg.logger,
	}
	if err := s.Register(def); err != nil {
		return nil, err
	}
	s.logger = s.logger.With("system", s.Name())
	return s, nil
}

// Name returns the system name.
func (s *System[T]) Name() string {
	if s.def.Name == "" {
		return DefaultName
	}
	return s.def.Name
}

// Phase returns the lifecycle phase.
func (s *System[T]) Phase() domain.Phase { return s.phase }

// Register merges a partial definition. Later calls augment earlier ones.
// It fails once the system has been initialized.
func (s *System[T]) Register(def Definition[T]) error {
	if s.phase != domain.PhaseUninitialized {
		return fmt.Errorf("register: %w", domain.ErrAlreadyInitialized)
	}
	if err := def.Validate(); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	s.def = s.def.Merge(def)
	return nil
}

// Init resolves the initial state, resets the subscribers and binds one listener
// per action on target, plus the "loaded" listener.
func (s *System[T]) Init(ctx context.Context, target ports.EventTarget) error {
	switch s.phase {
	case domain.PhaseDestroyed:
		return domain.ErrDestroyed
	case domain.PhaseInitialized, domain.PhaseActive:
		return domain.ErrAlreadyInitialized
	}
	if target == nil {
		return errors.New("init: nil event target")
	}

	handlers := registry.NewRegistry[Handler[T]]()
	for name, h := range s.def.Handlers {
		if err := handlers.Register(name, h); err != nil {
			return fmt.Errorf("init: %w", err)
		}
	}
	s.handlers = handlers
	s.state = s.def.Initial.Resolve()
	s.subs.Reset()
	s.target = target

	s.initEventHandlers()
	s.removers = append(s.removers, target.AddEventListener(domain.EventLoaded, func(ctx context.Context, _ domain.Event) {
		if !s.phase.Live() {
			return
		}
		s.setPhase(ctx, domain.PhaseActive)
		s.NotifyStateUpdate(ctx)
	}))

	s.setPhase(ctx, domain.PhaseInitialized)
	s.logger.Debug("state system initialized", "actions", s.handlers.Len())
	return nil
}

// initEventHandlers binds exactly one listener per registered action name.
func (s *System[T]) initEventHandlers() {
	s.bound = make(map[string]struct{}, s.handlers.Len())
	for _, name := range s.handlers.Names() {
		if _, done := s.bound[name]; done {
			continue
		}
		s.bound[name] = struct{}{}
		s.registerListener(name)
	}
}

func (s *System[T]) registerListener(action string) {
	remove := s.target.AddEventListener(action, func(ctx context.Context, evt domain.Event) {
		if err := s.Dispatch(ctx, action, evt.Detail); err != nil {
			s.logger.Warn("event dispatch failed", "action", action, "err", err)
		}
	})
	s.removers = append(s.removers, remove)
}

// Dispatch runs the handler registered for action against the live state, then
// notifies every subscriber and emits "stateupdate" on the element.
// Unregistered actions fail with domain.ErrUnknownAction.
func (s *System[T]) Dispatch(ctx context.Context, action string, payload any) error {
	switch {
	case s.phase == domain.PhaseDestroyed:
		return domain.ErrDestroyed
	case !s.phase.Live():
		return domain.ErrNotInitialized
	case action == "":
		return domain.ErrInvalidAction
	}

	start := time.Now()
	handler, err := s.handlers.Lookup(action)
	if err != nil {
		err = fmt.Errorf("%w: %s", domain.ErrUnknownAction, action)
		s.logger.Warn("dispatch of unknown action", "action", action)
		s.fireDispatch(ctx, action, payload, start, err)
		return err
	}

	if err := handler(&s.state, payload); err != nil {
		err = fmt.Errorf("action %s: %w", action, err)
		s.logger.Warn("action handler failed", "action", action, "err", err)
		s.fireDispatch(ctx, action, payload, start, err)
		return err
	}

	if s.phase == domain.PhaseInitialized {
		s.setPhase(ctx, domain.PhaseActive)
	}
	s.NotifyStateUpdate(ctx)
	s.target.Emit(ctx, domain.EventStateUpdate, domain.StateUpdate{
		Action:  action,
		Payload: payload,
	})

	s.logger.Debug("action dispatched", "action", action)
	s.fireDispatch(ctx, action, payload, start, nil)
	return nil
}

// NotifyStateUpdate delivers the live state once to every distinct subscriber
// present when the pass starts. Delivery runs in reverse subscription order.
func (s *System[T]) NotifyStateUpdate(ctx context.Context) {
	if !s.phase.Live() {
		return
	}
	toUpdate := s.subs.Distinct()
	for i := len(toUpdate) - 1; i >= 0; i-- {
		toUpdate[i].OnStateUpdate(&s.state)
	}
	if s.hooks.OnNotify != nil {
		s.hooks.OnNotify(ctx, &domain.NotifyEvent{
			EventBase:   s.eventBase(),
			Subscribers: len(toUpdate),
		})
	}
}

// Subscribe adds a subscriber. Subscribing twice is allowed; delivery is still once per pass.
func (s *System[T]) Subscribe(sub domain.Subscriber[T]) error {
	switch {
	case s.phase == domain.PhaseDestroyed:
		return domain.ErrDestroyed
	case !s.phase.Live():
		return domain.ErrNotInitialized
	}
	return s.subs.Add(sub)
}

// Unsubscribe removes every occurrence of sub. Unknown handles are ignored.
func (s *System[T]) Unsubscribe(sub domain.Subscriber[T]) {
	s.subs.Remove(sub)
}

// Subscribers returns the number of distinct subscribers.
func (s *System[T]) Subscribers() int {
	return len(s.subs.Distinct())
}

// State returns the live state. Callers must treat it as read-only and must not
// retain it past the current turn of the scene loop.
func (s *System[T]) State() *T { return &s.state }

// Snapshot returns a deep copy of the live state.
func (s *System[T]) Snapshot() T { return clone(s.state) }

// Actions returns the sorted names of the registered actions.
func (s *System[T]) Actions() []string {
	if s.handlers != nil {
		return s.handlers.Names()
	}
	names := make([]string, 0, len(s.def.Handlers))
	for name := range s.def.Handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Destroy unbinds every listener and drops the subscribers. The system cannot be reused.
func (s *System[T]) Destroy(ctx context.Context) error {
	if s.phase == domain.PhaseDestroyed {
		return nil
	}
	for _, remove := range s.removers {
		remove()
	}
	s.removers = nil
	s.bound = nil
	s.subs.Reset()
	s.setPhase(ctx, domain.PhaseDestroyed)
	s.logger.Debug("state system destroyed")
	return nil
}

func (s *System[T]) setPhase(ctx context.Context, to domain.Phase) {
	from := s.phase
	if from == to {
		return
	}
	s.phase = to
	if s.hooks.OnPhaseChange != nil {
		s.hooks.OnPhaseChange(ctx, &domain.PhaseEvent{
			EventBase: s.eventBase(),
			From:      from,
			To:        to,
		})
	}
}

func (s *System[T]) fireDispatch(ctx context.Context, action string, payload any, start time.Time, err error) {
	if s.hooks.OnDispatch == nil {
		return
	}
	s.hooks.OnDispatch(ctx, &domain.DispatchEvent{
		EventBase: s.eventBase(),
		Action:    action,
		Payload:   payload,
		Duration:  time.Since(start),
		Err:       err,
	})
}

func (s *System[T]) eventBase() domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), System: s.Name()}
}
