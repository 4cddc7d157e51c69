// Package metrics implements model.Observer using Prometheus.
package metrics

//
// Metrics definitions
//

import (
	"time"

	"github.com/devlink/tlstransport/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// summaryObjectives returns the summary objectives for promauto.NewSummary.
func summaryObjectives() map[float64]float64 {
	return map[float64]float64{
		0.25: 0.010,
		0.5:  0.010,
		0.75: 0.010,
		0.9:  0.010,
		0.99: 0.001,
	}
}

// Observer is a model.Observer exporting Prometheus metrics.
type Observer struct {
	// bytesTotal counts the bytes transferred by direction.
	bytesTotal *prometheus.CounterVec

	// connectDurationSeconds summarizes the duration of Connect.
	connectDurationSeconds prometheus.Summary

	// connectTotal counts the Connect attempts by status.
	connectTotal *prometheus.CounterVec

	// handshakeSteps counts the steps each handshake took.
	handshakeSteps prometheus.Histogram
}

var _ model.Observer = &Observer{}

// New creates an Observer registering its metrics with reg. A nil reg
// means we create the metrics without registering them.
func New(reg prometheus.Registerer) *Observer {
	factory := promauto.With(reg)
	return &Observer{
		bytesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tlstransport_bytes_total",
			Help: "Total number of application bytes transferred",
		}, []string{"direction"}),

		connectDurationSeconds: factory.NewSummary(prometheus.SummaryOpts{
			Name:       "tlstransport_connect_duration_seconds",
			Help:       "Summarizes the time to complete Connect (in seconds)",
			Objectives: summaryObjectives(),
		}),

		connectTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tlstransport_connect_total",
			Help: "Total number of Connect attempts by status",
		}, []string{"status"}),

		handshakeSteps: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tlstransport_handshake_steps",
			Help:    "Number of steps taken by each TLS handshake",
			Buckets: prometheus.LinearBuckets(1, 2, 8),
		}),
	}
}

// OnConnect implements model.Observer.
func (o *Observer) OnConnect(status string, elapsed time.Duration) {
	o.connectTotal.WithLabelValues(status).Inc()
	o.connectDurationSeconds.Observe(elapsed.Seconds())
}

// OnHandshake implements model.Observer.
func (o *Observer) OnHandshake(steps int, err error) {
	o.handshakeSteps.Observe(float64(steps))
}

// OnTransfer implements model.Observer.
func (o *Observer) OnTransfer(operation string, count int) {
	o.bytesTotal.WithLabelValues(operation).Add(float64(count))
}
