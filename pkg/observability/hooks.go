package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/statebridge/pkg/domain"
)

// Combine merges several hook sets into one. Callbacks run in argument order.
func Combine(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range hooks {
		out.OnPhaseChange = chain(out.OnPhaseChange, h.OnPhaseChange)
		out.OnDispatch = chain(out.OnDispatch, h.OnDispatch)
		out.OnNotify = chain(out.OnNotify, h.OnNotify)
	}
	return out
}

func chain[E any](first, second func(context.Context, E)) func(context.Context, E) {
	switch {
	case first == nil:
		return second
	case second == nil:
		return first
	}
	return func(ctx context.Context, e E) {
		first(ctx, e)
		second(ctx, e)
	}
}

// LoggingHooks logs phase changes and failed dispatches at info/warn level,
// and successful dispatches at debug level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnPhaseChange: func(ctx context.Context, e *domain.PhaseEvent) {
			logger.InfoContext(ctx, "phase_change",
				"system", e.System,
				"from", e.From,
				"to", e.To,
			)
		},
		OnDispatch: func(ctx context.Context, e *domain.DispatchEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "dispatch_failed",
					"system", e.System,
					"action", e.Action,
					"err", e.Err,
				)
				return
			}
			logger.DebugContext(ctx, "dispatch",
				"system", e.System,
				"action", e.Action,
				"duration", e.Duration,
			)
		},
		OnNotify: func(ctx context.Context, e *domain.NotifyEvent) {
			logger.DebugContext(ctx, "notify",
				"system", e.System,
				"subscribers", e.Subscribers,
			)
		},
	}
}
