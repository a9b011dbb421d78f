// Package observe provides observability primitives for the icon pipeline.
//
// It is a pure instrumentation library: no icon logic, no transport, no I/O
// beyond exporter setup. The icon cache, the avatar store, the texture
// fetcher and the HTTP server receive an Observer (or its parts) through
// their constructors.
package observe
