package relay

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/aretw0/statebridge/internal/logging"
	"github.com/aretw0/statebridge/pkg/ports"
)

// DefaultInterval is the polling period used by Run when none is configured.
const DefaultInterval = 100 * time.Millisecond

// Source exposes the current state of an external store.
type Source[S any] interface {
	State() S
}

// Selector picks the part of the external state that is relayed.
type Selector[S any] func(state S) any

// Forward returns an UpdateHook that posts action into the scene whenever the
// selected part of the state changes. Post errors are logged.
func Forward[S any](ctx context.Context, sched ports.Scheduler, action string, selector Selector[S], logger *slog.Logger) UpdateHook[S] {
	if logger == nil {
		logger = logging.NewNop()
	}
	return func(prev, next S, _ Action) {
		prevSel, nextSel := selector(prev), selector(next)
		if reflect.DeepEqual(prevSel, nextSel) {
			return
		}
		if err := sched.Post(ctx, action, nextSel); err != nil {
			logger.Warn("relay forward failed", "action", action, "err", err)
		}
	}
}

// Poller periodically reads a Source and relays changes of the selection as
// the payload of a fixed action.
type Poller[S any] struct {
	source   Source[S]
	sched    ports.Scheduler
	action   string
	selector Selector[S]
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	last    any
	relayed bool
}

// PollerOption configures a Poller.
type PollerOption func(*pollerConfig)

type pollerConfig struct {
	interval time.Duration
	logger   *slog.Logger
}

// WithInterval sets the polling period.
func WithInterval(d time.Duration) PollerOption {
	return func(c *pollerConfig) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithLogger sets the logger used for relay failures.
func WithLogger(logger *slog.Logger) PollerOption {
	return func(c *pollerConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewPoller creates a poller. A nil selector relays the whole state.
func NewPoller[S any](source Source[S], sched ports.Scheduler, action string, selector Selector[S], opts ...PollerOption) *Poller[S] {
	cfg := pollerConfig{interval: DefaultInterval, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if selector == nil {
		selector = func(s S) any { return s }
	}
	return &Poller[S]{
		source:   source,
		sched:    sched,
		action:   action,
		selector: selector,
		interval: cfg.interval,
		logger:   cfg.logger,
	}
}

// Sync relays the current selection if it differs from the last relayed one.
// The first call always relays. It reports whether anything was posted.
func (p *Poller[S]) Sync(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sel := p.selector(p.source.State())
	if p.relayed && reflect.DeepEqual(sel, p.last) {
		return false, nil
	}
	if err := p.sched.Post(ctx, p.action, sel); err != nil {
		return false, fmt.Errorf("relay %s: %w", p.action, err)
	}
	p.last = sel
	p.relayed = true
	return true, nil
}

// Run polls until ctx is cancelled.
func (p *Poller[S]) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.Sync(ctx); err != nil {
			p.logger.Warn("relay sync failed", "action", p.action, "err", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
