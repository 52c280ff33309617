// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package metrics holds the Prometheus instruments for the hub and the
// voting components. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "movie_night"

// Ballot outcomes
const (
	OutcomeAccepted     = "accepted"
	OutcomeDuplicate    = "duplicate"
	OutcomeInvalid      = "invalid"
	OutcomeRoundClosed  = "round_closed"
	OutcomeStorageError = "error"
)

type Metrics struct {
	HubConnections  prometheus.Gauge
	EventsPublished *prometheus.CounterVec
	SendFailures    prometheus.Counter
	BallotsCast     *prometheus.CounterVec
	TallyDuration   prometheus.Histogram
}

// New registers the instruments with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HubConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "connections",
			Help:      "Number of live push connections",
		}),
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "hub",
				Name:      "events_published_total",
				Help:      "Events fanned out by the hub, by event type",
			},
			[]string{"type"},
		),
		SendFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "send_failures_total",
			Help:      "Sends that failed and dropped the connection",
		}),
		BallotsCast: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "ballots_total",
				Help:      "Ballot submissions, by outcome",
			},
			[]string{"outcome"},
		),
		TallyDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tally",
			Name:      "duration_seconds",
			Help:      "Time spent running the instant-runoff tally",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8), // 100µs to ~1.6s
		}),
	}
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.HubConnections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.HubConnections.Dec()
}

func (m *Metrics) EventPublished(eventType string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(eventType).Inc()
}

func (m *Metrics) SendFailed() {
	if m == nil {
		return
	}
	m.SendFailures.Inc()
}

func (m *Metrics) BallotCast(outcome string) {
	if m == nil {
		return
	}
	m.BallotsCast.WithLabelValues(outcome).Inc()
}

// ObserveTally records the time since start
func (m *Metrics) ObserveTally(start time.Time) {
	if m == nil {
		return
	}
	m.TallyDuration.Observe(time.Since(start).Seconds())
}
