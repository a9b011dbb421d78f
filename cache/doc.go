// Package cache provides the bounded in-memory store behind composed icons.
//
// MemoryCache is a size-bounded LRU whose entries expire a fixed interval
// after their last access. Loader layers single-flight loading on top of any
// Cache so that concurrent misses for one key run the load exactly once and
// failed loads are never stored.
package cache
