package cli

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/statebridge"
	"github.com/aretw0/statebridge/internal/config"
	"github.com/aretw0/statebridge/internal/logging"
	"github.com/aretw0/statebridge/pkg/domain"
	"github.com/aretw0/statebridge/pkg/observability"
	"github.com/aretw0/statebridge/pkg/reducers"
	"github.com/prometheus/client_golang/prometheus"
)

// Options configures NewRuntime.
type Options struct {
	Logger *slog.Logger
	// Registerer receives the dispatch metrics. Nil disables metrics.
	Registerer prometheus.Registerer
	Hooks      []domain.LifecycleHooks
}

// Runtime is the engine built from the configuration file: a map-shaped state
// driven by declarative actions.
type Runtime struct {
	*statebridge.Engine[reducers.State]

	Config  config.Config
	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// NewRuntime builds the scene described by cfg. Nothing runs until Start.
func NewRuntime(cfg config.Config, opts Options) (*Runtime, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	def, err := cfg.System.Definition()
	if err != nil {
		return nil, fmt.Errorf("error building system: %w", err)
	}

	rt := &Runtime{Config: cfg, Logger: logger}

	hooks := []domain.LifecycleHooks{observability.LoggingHooks(logger)}
	if opts.Registerer != nil {
		rt.Metrics, err = observability.NewMetrics(opts.Registerer)
		if err != nil {
			return nil, fmt.Errorf("error registering metrics: %w", err)
		}
		hooks = append(hooks, rt.Metrics.Hooks())
	}
	hooks = append(hooks, opts.Hooks...)

	rt.Engine, err = statebridge.New(def,
		statebridge.WithLogger(logger),
		statebridge.WithLifecycleHooks(hooks...),
	)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return rt, nil
}
