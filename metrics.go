package auth

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dhaaraai/go-auth/middleware/jwtware"
)

// Metrics counts authentication activity. It is both an ActivitySink
// for register and login events and an OutcomeListener for the
// authentication middleware.
type Metrics struct {
	events          *prometheus.CounterVec
	outcomes        *prometheus.CounterVec
	resolveDuration prometheus.Histogram
}

var _ ActivitySink = (*Metrics)(nil)

// NewMetrics creates the collectors and registers them with reg. A nil
// reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_events_total",
			Help: "Total number of register and login attempts by event type",
		}, []string{"event"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_middleware_outcomes_total",
			Help: "Total number of requests by authentication pipeline terminal state",
		}, []string{"state"}),
		resolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "auth_middleware_duration_seconds",
			Help:    "Histogram of authentication pipeline latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}

	if reg != nil {
		reg.MustRegister(m.events, m.outcomes, m.resolveDuration)
	}
	return m
}

// Record implements ActivitySink.
func (m *Metrics) Record(_ context.Context, event ActivityEvent) error {
	m.events.WithLabelValues(string(event.EventType)).Inc()
	return nil
}

// ObserveOutcome implements OutcomeListener.
func (m *Metrics) ObserveOutcome(c *fiber.Ctx, outcome jwtware.Outcome) {
	m.outcomes.WithLabelValues(string(outcome.State)).Inc()
	if start, ok := c.Locals(requestStartKey).(time.Time); ok {
		m.resolveDuration.Observe(time.Since(start).Seconds())
	}
}

// Events exposes the event counter
func (m *Metrics) Events() *prometheus.CounterVec {
	return m.events
}

// Outcomes exposes the middleware outcome counter
func (m *Metrics) Outcomes() *prometheus.CounterVec {
	return m.outcomes
}

const requestStartKey = "auth.request_start"

// MarkRequestStart records the request start time used by the
// pipeline latency histogram. Mount it before the authentication
// middleware.
func MarkRequestStart() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(requestStartKey, time.Now())
		return c.Next()
	}
}
