package observability

import (
	"context"
	"errors"

	"github.com/aretw0/statebridge/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Dispatch results used as the "result" label.
const (
	ResultOK      = "ok"
	ResultUnknown = "unknown"
	ResultError   = "error"
)

// unknownActionLabel replaces the action label of unregistered actions so
// arbitrary input cannot grow the series count.
const unknownActionLabel = "_unknown"

// Metrics holds the Prometheus collectors of the state systems of a process.
type Metrics struct {
	Dispatches    *prometheus.CounterVec
	Duration      *prometheus.HistogramVec
	Notifications *prometheus.CounterVec
	Subscribers   *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "statebridge_dispatch_total",
				Help: "Total number of dispatched actions by result",
			},
			[]string{"system", "action", "result"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "statebridge_dispatch_duration_seconds",
				Help:    "Duration of action handlers including the notification pass",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"system", "action"},
		),
		Notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "statebridge_notifications_total",
				Help: "Total number of notification passes",
			},
			[]string{"system"},
		),
		Subscribers: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "statebridge_subscribers",
				Help: "Distinct subscribers reached by the last notification pass",
			},
			[]string{"system"},
		),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.Dispatches, m.Duration, m.Notifications, m.Subscribers} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDispatch: func(_ context.Context, e *domain.DispatchEvent) {
			action, result := e.Action, ResultOK
			switch {
			case errors.Is(e.Err, domain.ErrUnknownAction):
				action, result = unknownActionLabel, ResultUnknown
			case e.Err != nil:
				result = ResultError
			}
			m.Dispatches.WithLabelValues(e.System, action, result).Inc()
			if result != ResultUnknown {
				m.Duration.WithLabelValues(e.System, action).Observe(e.Duration.Seconds())
			}
		},
		OnNotify: func(_ context.Context, e *domain.NotifyEvent) {
			m.Notifications.WithLabelValues(e.System).Inc()
			m.Subscribers.WithLabelValues(e.System).Set(float64(e.Subscribers))
		},
		OnPhaseChange: func(_ context.Context, e *domain.PhaseEvent) {
			if e.To == domain.PhaseDestroyed {
				m.Subscribers.DeleteLabelValues(e.System)
			}
		},
	}
}
