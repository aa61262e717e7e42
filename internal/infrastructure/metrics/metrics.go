// Package metrics exposes Prometheus collectors for the API and the worker.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stockflow/internal/domain"
)

const namespace = "stockflow"

// Metrics holds every collector on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	eventsWritten *prometheus.CounterVec
	outboxRelayed *prometheus.CounterVec
}

// New creates the collectors and registers them with Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		eventsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "written_total",
			Help:      "Domain events written to the outbox, by event type. Receipts and payments show up here.",
		}, []string{"event_type"}),
		outboxRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "relayed_total",
			Help:      "Outbox messages handled by the relay, by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.eventsWritten,
		m.outboxRelayed,
	)
	return m
}

// Registry returns the private registry, for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// OutboxRelayed adds n messages with the given result ("published", "failed", "dead_lettered").
func (m *Metrics) OutboxRelayed(result string, n int) {
	if n > 0 {
		m.outboxRelayed.WithLabelValues(result).Add(float64(n))
	}
}

// CountingPublisher counts events that were written successfully.
// The count happens inside the business transaction, so a later rollback
// still counts the attempt.
type CountingPublisher struct {
	next    domain.EventPublisher
	metrics *Metrics
}

// NewCountingPublisher wraps next.
func NewCountingPublisher(next domain.EventPublisher, m *Metrics) *CountingPublisher {
	return &CountingPublisher{next: next, metrics: m}
}

// Publish implements domain.EventPublisher.
func (p *CountingPublisher) Publish(ctx context.Context, event domain.Event) error {
	if err := p.next.Publish(ctx, event); err != nil {
		return err
	}
	p.metrics.eventsWritten.WithLabelValues(event.EventType).Inc()
	return nil
}

var _ domain.EventPublisher = (*CountingPublisher)(nil)
