//go:build !prometheus

package http11

// observeRequestServed is a no-op in the default build, which carries zero
// Prometheus dependency cost for embedders who don't opt into the
// "prometheus" build tag.
func observeRequestServed() {}
