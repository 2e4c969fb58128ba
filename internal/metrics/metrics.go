// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements the recorder interfaces of the event bus, the
// two-factor service and the HTTP layer.
type Collector struct {
	eventsPublished   *prometheus.CounterVec
	eventsDelivered   *prometheus.CounterVec
	eventsDropped     *prometheus.CounterVec
	subscribers       *prometheus.GaugeVec
	twoFactorOutcomes *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpLatency       *prometheus.HistogramVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workorder_events_published_total",
			Help: "Events published on the notification bus.",
		}, []string{"kind"}),
		eventsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workorder_events_fanout_total",
			Help: "Subscriber deliveries scheduled by publishes.",
		}, []string{"kind"}),
		eventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workorder_events_dropped_total",
			Help: "Events dropped because a subscriber backlog was full.",
		}, []string{"kind"}),
		subscribers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "workorder_event_subscribers",
			Help: "Live subscribers per event kind.",
		}, []string{"kind"}),
		twoFactorOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workorder_twofactor_calls_total",
			Help: "Two-factor provider calls by operation and outcome.",
		}, []string{"op", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workorder_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "workorder_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.eventsPublished,
		c.eventsDelivered,
		c.eventsDropped,
		c.subscribers,
		c.twoFactorOutcomes,
		c.httpRequests,
		c.httpLatency,
	)

	return c
}

func (c *Collector) EventPublished(kind string, subscribers int) {
	c.eventsPublished.WithLabelValues(kind).Inc()
	c.eventsDelivered.WithLabelValues(kind).Add(float64(subscribers))
}

func (c *Collector) EventDropped(kind string) {
	c.eventsDropped.WithLabelValues(kind).Inc()
}

func (c *Collector) SubscriberAdded(kind string) {
	c.subscribers.WithLabelValues(kind).Inc()
}

func (c *Collector) SubscriberRemoved(kind string) {
	c.subscribers.WithLabelValues(kind).Dec()
}

func (c *Collector) TwoFactorOutcome(op, outcome string) {
	c.twoFactorOutcomes.WithLabelValues(op, outcome).Inc()
}

func (c *Collector) RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
