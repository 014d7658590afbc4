package scene

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/aretw0/statebridge/internal/logging"
	"github.com/aretw0/statebridge/pkg/domain"
	"github.com/aretw0/statebridge/pkg/ports"
)

const defaultQueueSize = 64

var (
	_ ports.EventTarget = (*Element)(nil)
	_ ports.Scheduler   = (*Element)(nil)
	_ ports.Host        = (*Element)(nil)
)

type listenerEntry struct {
	fn      domain.Listener
	removed atomic.Bool
}

// Element is the event target owning the systems of a scene.
//
// Listener registration is safe from any goroutine. Emit runs listeners on the
// calling goroutine; everything posted through Post or Do runs on the goroutine
// executing Run, which is the single logical thread of the scene.
type Element struct {
	mu        sync.Mutex
	listeners map[string][]*listenerEntry

	tasks     chan func(context.Context)
	done      chan struct{}
	closeOnce sync.Once

	logger *slog.Logger
}

// ElementOption configures an Element.
type ElementOption func(*Element)

// WithQueueSize sets the capacity of the task queue.
func WithQueueSize(n int) ElementOption {
	return func(e *Element) {
		if n > 0 {
			e.tasks = make(chan func(context.Context), n)
		}
	}
}

// WithElementLogger configures a logger for the Element.
func WithElementLogger(logger *slog.Logger) ElementOption {
	return func(e *Element) {
		e.logger = logger
	}
}

// NewElement creates an element with an empty listener table.
func NewElement(opts ...ElementOption) *Element {
	e := &Element{
		listeners: make(map[string][]*listenerEntry),
		tasks:     make(chan func(context.Context), defaultQueueSize),
		done:      make(chan struct{}),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddEventListener registers fn for events named name.
func (e *Element) AddEventListener(name string, fn domain.Listener) func() {
	entry := &listenerEntry{fn: fn}

	e.mu.Lock()
	e.listeners[name] = append(e.listeners[name], entry)
	e.mu.Unlock()

	return func() {
		if entry.removed.Swap(true) {
			return
		}
		e.mu.Lock()
		defer e.mu.Unlock()
		list := e.listeners[name]
		for i, candidate := range list {
			if candidate == entry {
				e.listeners[name] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
		if len(e.listeners[name]) == 0 {
			delete(e.listeners, name)
		}
	}
}

// ListenerCount returns how many listeners are registered for name.
func (e *Element) ListenerCount(name string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[name])
}

// Emit delivers the event synchronously. Listeners removed while the emit is in
// progress are skipped; listeners added while it is in progress only see later events.
func (e *Element) Emit(ctx context.Context, name string, detail any) {
	e.mu.Lock()
	snapshot := append([]*listenerEntry(nil), e.listeners[name]...)
	e.mu.Unlock()

	evt := domain.Event{Name: name, Detail: detail}
	for _, entry := range snapshot {
		if entry.removed.Load() {
			continue
		}
		entry.fn(ctx, evt)
	}
}

// Run executes queued work until ctx is cancelled or the element is closed.
func (e *Element) Run(ctx context.Context) error {
	e.logger.Debug("element loop started")
	defer e.logger.Debug("element loop stopped")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.done:
			return nil
		case task := <-e.tasks:
			task(ctx)
		}
	}
}

// Post enqueues an event to be emitted by the loop.
func (e *Element) Post(ctx context.Context, name string, detail any) error {
	return e.enqueue(ctx, func(ctx context.Context) {
		e.Emit(ctx, name, detail)
	})
}

// Do runs fn on the loop and waits for it to finish.
// Calling Do from the loop goroutine itself deadlocks; call fn directly instead.
func (e *Element) Do(ctx context.Context, fn func(ctx context.Context)) error {
	finished := make(chan struct{})
	err := e.enqueue(ctx, func(ctx context.Context) {
		defer close(finished)
		fn(ctx)
	})
	if err != nil {
		return err
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		// The loop may have picked the task up right before closing.
		select {
		case <-finished:
			return nil
		default:
			return domain.ErrElementClosed
		}
	}
}

// Close stops the loop. Pending work is discarded.
func (e *Element) Close() {
	e.closeOnce.Do(func() {
		close(e.done)
	})
}

// Closed reports whether Close has been called.
func (e *Element) Closed() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

func (e *Element) enqueue(ctx context.Context, task func(context.Context)) error {
	if e.Closed() {
		return domain.ErrElementClosed
	}
	select {
	case <-e.done:
		return domain.ErrElementClosed
	case <-ctx.Done():
		return ctx.Err()
	case e.tasks <- task:
		return nil
	}
}
