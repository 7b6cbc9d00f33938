// Package metrics holds the Prometheus instrumentation of the indexing
// pipeline.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/indexsync/internal/index"
)

const namespace = "indexsync"

// Skip reasons reported by the update gate.
const (
	SkipDatabase = "database"
	SkipPaused   = "paused"
	SkipBulk     = "bulk"
)

// Metrics is one set of collectors. Create it once per registry.
type Metrics struct {
	EventsHandled    *prometheus.CounterVec
	EventsSkipped    *prometheus.CounterVec
	EventDuration    *prometheus.HistogramVec
	MutationFailures *prometheus.CounterVec
	Notifications    *prometheus.CounterVec
}

// New builds the collectors without registering them.
func New() *Metrics {
	return &Metrics{
		EventsHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "events_handled_total",
			Help:      "Content events that passed the update gate.",
		}, []string{"index", "kind"}),
		EventsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "events_skipped_total",
			Help:      "Gate conditions that held when an event arrived.",
		}, []string{"index", "reason"}),
		EventDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "event_duration_seconds",
			Help:      "Time spent handling one content event, cascades included.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"index", "kind"}),
		MutationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "mutation_failures_total",
			Help:      "Events whose index mutation returned an error.",
		}, []string{"index", "kind"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crawler",
			Name:      "notifications_total",
			Help:      "Crawler notifications by kind.",
		}, []string{"index", "kind"}),
	}
}

// Register adds every collector to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	var errs []error
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MustRegister registers every collector and panics on conflict.
func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(m.collectors()...)
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.EventsHandled,
		m.EventsSkipped,
		m.EventDuration,
		m.MutationFailures,
		m.Notifications,
	}
}

// Handled records one event that reached its handler.
func (m *Metrics) Handled(idx, kind string, started time.Time) {
	if m == nil {
		return
	}
	m.EventsHandled.WithLabelValues(idx, kind).Inc()
	m.EventDuration.WithLabelValues(idx, kind).Observe(time.Since(started).Seconds())
}

// Skipped records one gate condition that held.
func (m *Metrics) Skipped(idx, reason string) {
	if m == nil {
		return
	}
	m.EventsSkipped.WithLabelValues(idx, reason).Inc()
}

// Failed records an event whose mutation failed.
func (m *Metrics) Failed(idx, kind string) {
	if m == nil {
		return
	}
	m.MutationFailures.WithLabelValues(idx, kind).Inc()
}

// Observer returns an index.Observer counting crawler notifications.
func (m *Metrics) Observer() index.Observer {
	return index.ObserverFunc(func(_ context.Context, n index.Notification) {
		if m == nil {
			return
		}
		m.Notifications.WithLabelValues(n.Index, string(n.Kind)).Inc()
	})
}
