// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package pubsub

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Request outcomes used as metric labels.
const (
	outcomeOK          = "ok"
	outcomeError       = "error"
	outcomeUnsupported = "unsupported"
	outcomeFault       = "fault"
)

// Metrics holds Prometheus metrics for a Service.
// A nil *Metrics records nothing.
type Metrics struct {
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	notifications *prometheus.CounterVec
}

// NewMetrics creates the service metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xmppext",
			Subsystem: "pubsub",
			Name:      "requests_total",
			Help:      "Total number of pubsub requests handled",
		}, []string{"verb", "outcome"}), // outcome: ok, error, unsupported, fault

		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "xmppext",
			Subsystem: "pubsub",
			Name:      "request_duration_seconds",
			Help:      "Time spent handling pubsub requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"verb"}),

		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xmppext",
			Subsystem: "pubsub",
			Name:      "notifications_total",
			Help:      "Total number of event notifications sent",
		}, []string{"kind"}), // kind: items, delete, purge
	}
	for _, c := range []prometheus.Collector{m.requests, m.duration, m.notifications} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeRequest(verb Verb, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(verb.String(), outcome).Inc()
	m.duration.WithLabelValues(verb.String()).Observe(elapsed.Seconds())
}

func (m *Metrics) observeNotification(kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.notifications.WithLabelValues(kind).Add(float64(n))
}
