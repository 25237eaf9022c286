//go:build prometheus

package http11

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for per-connection request handling, in the same
// opt-in-via-build-tag style as the package-root buffer pool metrics.
var requestsServedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "ember",
		Subsystem: "http11",
		Name:      "requests_served_total",
		Help:      "Total number of HTTP/1.1 requests served across all connections.",
	},
)

// observeRequestServed records one completed request for Prometheus
// collection. Called from Connection.Serve's per-request loop.
func observeRequestServed() {
	requestsServedTotal.Inc()
}
