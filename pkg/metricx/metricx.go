// Package metricx holds the Prometheus collectors for the identity core.
package metricx

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is dedicated so tests and multiple containers do not collide on
// the global default registerer.
var Registry = prometheus.NewRegistry()

var (
	AuthDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_auth_decisions_total",
			Help: "Route guard decisions by outcome.",
		},
		[]string{"outcome"},
	)

	APIKeyValidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_apikey_validations_total",
			Help: "API key validations by outcome.",
		},
		[]string{"outcome"},
	)

	OAuthLinks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_oauth_links_total",
			Help: "OAuth callbacks by linking branch.",
		},
		[]string{"branch"},
	)

	BestEffortDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_besteffort_dropped_total",
			Help: "Best-effort tasks dropped before running.",
		},
		[]string{"task"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	Registry.MustRegister(
		AuthDecisions,
		APIKeyValidations,
		OAuthLinks,
		BestEffortDropped,
		httpRequestDuration,
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Instrument records request latency labelled by the matched route pattern.
func Instrument() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		httpRequestDuration.
			WithLabelValues(c.Method(), c.Route().Path, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
		return err
	}
}
