//go:build prometheus

package http2

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for HPACK dynamic-table occupancy, in the same
// opt-in-via-build-tag style as the package-root buffer pool metrics.
var hpackDynamicTableBytes = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "ember",
		Subsystem: "http2",
		Name:      "hpack_dynamic_table_bytes",
		Help:      "Current HPACK dynamic table occupancy in octets, per role.",
	},
	[]string{"role", "side"},
)

// observeHPACKTableSize records a dynamic table's occupancy in octets.
// role is "encoder" or "decoder"; the side label is always "dynamic"
// (this implementation keeps one table per direction).
func observeHPACKTableSize(role string, size uint32) {
	hpackDynamicTableBytes.WithLabelValues(role, "dynamic").Set(float64(size))
}
