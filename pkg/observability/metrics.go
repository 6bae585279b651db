package observability

import (
	"context"
	"sync"

	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "genius"

// Metrics holds the engine collectors.
type Metrics struct {
	Events           *prometheus.CounterVec
	Decisions        *prometheus.CounterVec
	DecisionDuration *prometheus.HistogramVec
	InProgress       prometheus.Gauge

	mu      sync.Mutex
	running map[string]struct{}
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_events_total",
				Help:      "Total number of session events by type",
			},
			[]string{"type"},
		),
		Decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decisions_total",
				Help:      "Total number of decision source calls",
			},
			[]string{"game_type", "provider", "outcome"},
		),
		DecisionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "decision_duration_seconds",
				Help:      "Duration of decision source calls",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"provider"},
		),
		InProgress: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sessions_in_progress",
				Help:      "Number of sessions currently in progress",
			},
		),
		running: make(map[string]struct{}),
	}
	if reg != nil {
		reg.MustRegister(m.Events, m.Decisions, m.DecisionDuration, m.InProgress)
	}
	return m
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnEvent: func(_ context.Context, e domain.Event) {
			m.Events.WithLabelValues(string(e.Type)).Inc()

			m.mu.Lock()
			defer m.mu.Unlock()
			switch e.Type {
			case domain.EventSessionStarted:
				if _, ok := m.running[e.SessionID]; !ok {
					m.running[e.SessionID] = struct{}{}
					m.InProgress.Inc()
				}
			case domain.EventSessionEnded:
				if _, ok := m.running[e.SessionID]; ok {
					delete(m.running, e.SessionID)
					m.InProgress.Dec()
				}
			}
		},
		OnDecision: func(_ context.Context, e domain.DecisionEvent) {
			m.Decisions.WithLabelValues(string(e.GameType), e.Provider, outcome(e.Err)).Inc()
			m.DecisionDuration.WithLabelValues(e.Provider).Observe(e.Duration.Seconds())
		},
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(domain.KindOf(err))
}
