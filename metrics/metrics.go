// Package metrics exposes the Prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hermes",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hermes",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	ChatCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hermes",
		Name:      "chat_commands_total",
		Help:      "Chat commands handled, by command and outcome.",
	}, []string{"command", "outcome"})

	Exports = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hermes",
		Name:      "exports_total",
		Help:      "Directory snapshots uploaded to object storage.",
	}, []string{"variant", "outcome"})
)
