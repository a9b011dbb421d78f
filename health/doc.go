// Package health reports whether listiconsd can serve icons.
//
// Checkers cover the pieces the icon pipeline depends on: the heads
// directory must be writable, the decoration images directory readable,
// the address directory reachable, and the remote profile service's
// circuit breaker closed. An Aggregator runs them in parallel and
// RegisterHandlers exposes /healthz, /readyz and /health.
//
// An open circuit is reported as degraded rather than unhealthy: cached
// heads keep being served while the remote service is down.
package health
