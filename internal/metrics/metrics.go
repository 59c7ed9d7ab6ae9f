// Package metrics holds the Prometheus collectors for ingestion and deliberation.
//
// nextpost runs as a one-shot CLI, so collectors live in a private registry that is
// pushed to a Pushgateway at the end of a command rather than scraped.
// Every method is safe on a nil *Metrics, which disables instrumentation.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Session outcomes used as the "outcome" label.
const (
	OutcomeTerminated = "terminated_by_coordinator"
	OutcomeRoundLimit = "round_limit_reached"
	OutcomeFailed     = "failed"
)

// Metrics bundles every collector nextpost exports.
type Metrics struct {
	Registry *prometheus.Registry

	RecordsAdded   prometheus.Counter
	IngestFailures *prometheus.CounterVec
	Sessions       *prometheus.CounterVec
	Turns          *prometheus.CounterVec
	TurnDuration   *prometheus.HistogramVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RecordsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nextpost",
			Name:      "records_added_total",
			Help:      "Posts successfully ingested into the knowledge store.",
		}),
		IngestFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nextpost",
			Name:      "ingest_failures_total",
			Help:      "Rejected or failed ingestions by kind (validation, store).",
		}, []string{"kind"}),
		Sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nextpost",
			Name:      "deliberation_sessions_total",
			Help:      "Finished deliberation sessions by outcome.",
		}, []string{"outcome"}),
		Turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nextpost",
			Name:      "deliberation_turns_total",
			Help:      "Generated agent turns by role.",
		}, []string{"role"}),
		TurnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nextpost",
			Name:      "deliberation_turn_seconds",
			Help:      "Latency of a single agent generation.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 120},
		}, []string{"role"}),
	}

	m.Registry.MustRegister(m.RecordsAdded, m.IngestFailures, m.Sessions, m.Turns, m.TurnDuration)
	return m
}

// RecordAdded counts one successful ingestion.
func (m *Metrics) RecordAdded() {
	if m == nil {
		return
	}
	m.RecordsAdded.Inc()
}

// IngestFailed counts one rejected or failed ingestion.
func (m *Metrics) IngestFailed(kind string) {
	if m == nil {
		return
	}
	m.IngestFailures.WithLabelValues(kind).Inc()
}

// SessionFinished counts one deliberation session.
func (m *Metrics) SessionFinished(outcome string) {
	if m == nil {
		return
	}
	m.Sessions.WithLabelValues(outcome).Inc()
}

// TurnCompleted records one generated turn and how long it took.
func (m *Metrics) TurnCompleted(role string, took time.Duration) {
	if m == nil {
		return
	}
	m.Turns.WithLabelValues(role).Inc()
	m.TurnDuration.WithLabelValues(role).Observe(took.Seconds())
}

// Push sends the registry to a Pushgateway under the given job name.
func (m *Metrics) Push(ctx context.Context, gatewayURL, job string) error {
	if m == nil || gatewayURL == "" {
		return nil
	}
	if err := push.New(gatewayURL, job).Gatherer(m.Registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
