package statebridge

import (
	"context"
	_ "embed"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/aretw0/statebridge/internal/logging"
	"github.com/aretw0/statebridge/pkg/bridge"
	"github.com/aretw0/statebridge/pkg/domain"
	"github.com/aretw0/statebridge/pkg/observability"
	"github.com/aretw0/statebridge/pkg/scene"
)

// Version is the release of the module.
//
//go:embed VERSION
var Version string

// ErrStarted is returned by Start on an engine that is already running.
var ErrStarted = errors.New("engine already started")

// Engine is the high-level entry point of the library: one scene, one shared
// state system and the loop that owns both.
type Engine[T any] struct {
	scene  *scene.Scene
	system *bridge.System[T]
	logger *slog.Logger

	mu       sync.Mutex
	started  bool
	cancel   context.CancelFunc
	loopDone chan error
}

// Option defines a functional option for configuring the Engine.
type Option func(*options)

type options struct {
	logger *slog.Logger
	hooks  []domain.LifecycleHooks
	sceneO []scene.Option
}

// WithLogger sets a custom structured logger for the engine, its scene and its system.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks. Repeated calls accumulate.
func WithLifecycleHooks(hooks ...domain.LifecycleHooks) Option {
	return func(o *options) {
		o.hooks = append(o.hooks, hooks...)
	}
}

// WithSceneID fixes the scene identifier instead of generating one.
func WithSceneID(id string) Option {
	return func(o *options) {
		o.sceneO = append(o.sceneO, scene.WithID(id))
	}
}

// New creates an engine holding a system built from def. Nothing runs until Start.
func New[T any](def bridge.Definition[T], opts ...Option) (*Engine[T], error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}

	sys, err := bridge.New(def,
		bridge.WithLogger(o.logger),
		bridge.WithLifecycleHooks(observability.Combine(o.hooks...)),
	)
	if err != nil {
		return nil, err
	}

	sc := scene.New(append([]scene.Option{scene.WithLogger(o.logger)}, o.sceneO...)...)
	if err := bridge.Mount(sc, sys); err != nil {
		return nil, err
	}
	return &Engine[T]{scene: sc, system: sys, logger: o.logger}, nil
}

// Scene returns the scene owned by the engine.
func (e *Engine[T]) Scene() *scene.Scene { return e.scene }

// System returns the shared state system. Use it only from the loop (see Element.Do).
func (e *Engine[T]) System() *bridge.System[T] { return e.system }

// Element returns the scene element every adapter talks to.
func (e *Engine[T]) Element() *scene.Element { return e.scene.Element() }

// Start loads the scene on the calling goroutine, then runs the element loop in
// the background until Stop.
func (e *Engine[T]) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return ErrStarted
	}
	if err := e.scene.Load(ctx); err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancel = cancel
	e.loopDone = make(chan error, 1)
	e.started = true
	go func() {
		e.loopDone <- e.Element().Run(loopCtx)
	}()
	return nil
}

// Stop closes the scene on its loop and waits for the loop to exit.
// An engine that was never started is closed directly.
func (e *Engine[T]) Stop(ctx context.Context) error {
	e.mu.Lock()
	started := e.started
	e.started = false
	e.mu.Unlock()

	if !started {
		return e.scene.Close(ctx)
	}

	var closeErr error
	err := e.Element().Do(ctx, func(ctx context.Context) {
		closeErr = e.scene.Close(ctx)
	})
	if errors.Is(err, domain.ErrElementClosed) {
		err = nil
	}
	e.cancel()
	if loopErr := <-e.loopDone; loopErr != nil && !errors.Is(loopErr, context.Canceled) {
		err = errors.Join(err, loopErr)
	}
	return errors.Join(err, closeErr)
}

// Dispatch runs an action on the loop and returns a copy of the resulting state.
// The copy is returned even when the handler fails.
func (e *Engine[T]) Dispatch(ctx context.Context, action string, payload any) (T, error) {
	var (
		state       T
		dispatchErr error
	)
	err := e.Element().Do(ctx, func(ctx context.Context) {
		dispatchErr = e.system.Dispatch(ctx, action, payload)
		state = e.system.Snapshot()
	})
	if err != nil {
		return state, err
	}
	return state, dispatchErr
}

// State returns a copy of the current state.
func (e *Engine[T]) State(ctx context.Context) (T, error) {
	var state T
	err := e.Element().Do(ctx, func(context.Context) {
		state = e.system.Snapshot()
	})
	return state, err
}

// Subscribe calls fn with a copy of the state after every notification pass.
// fn runs on the loop and must not block. The returned function unsubscribes; it
// may be called from fn itself, but not from any other code running on the loop.
func (e *Engine[T]) Subscribe(ctx context.Context, fn func(state T)) (func(), error) {
	var stopped, delivering atomic.Bool
	sub := bridge.OnUpdate(func(state *T) {
		if stopped.Load() {
			return
		}
		delivering.Store(true)
		defer delivering.Store(false)
		fn(e.system.Snapshot())
	})
	var subErr error
	err := e.Element().Do(ctx, func(context.Context) {
		subErr = e.system.Subscribe(sub)
	})
	if err == nil {
		err = subErr
	}
	if err != nil {
		return nil, err
	}

	remove := func() {
		_ = e.Element().Do(context.Background(), func(context.Context) {
			e.system.Unsubscribe(sub)
		})
	}
	return func() {
		if stopped.Swap(true) {
			return
		}
		if delivering.Load() {
			// inside fn the loop is busy with this very pass
			go remove()
			return
		}
		remove()
	}, nil
}
