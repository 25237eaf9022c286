//go:build !prometheus

package http2

// observeHPACKTableSize is a no-op in the default build, which carries zero
// Prometheus dependency cost for embedders who don't opt into the
// "prometheus" build tag.
func observeHPACKTableSize(role string, size uint32) {}
