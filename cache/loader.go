package cache

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// LoadFunc produces the value for a missing key.
type LoadFunc func(ctx context.Context) ([]byte, error)

// Outcome reports how GetOrLoad obtained its value.
type Outcome int

const (
	// OutcomeHit means the value came from the cache.
	OutcomeHit Outcome = iota
	// OutcomeLoaded means a load ran and its result went to this caller only.
	OutcomeLoaded
	// OutcomeShared means one load's result was handed to several callers.
	OutcomeShared
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHit:
		return "hit"
	case OutcomeLoaded:
		return "loaded"
	case OutcomeShared:
		return "shared"
	default:
		return "unknown"
	}
}

// Loader coalesces concurrent loads for a key and stores successful results.
//
// Contract:
//   - At most one LoadFunc runs per key at any instant. Callers arriving while
//     a load is in flight wait for it and receive the same result.
//   - Errors are returned to every waiter and never cached; the next call
//     after a failure runs a fresh load.
//   - The load runs on a context detached from the first caller's
//     cancellation. A caller whose context ends stops waiting with
//     ctx.Err(); the load continues for the remaining waiters and its
//     result is still cached.
//   - Forget and Purge mark loads already in flight as stale. A stale load
//     still answers its waiters but its result is not stored.
type Loader struct {
	cache Cache
	group singleflight.Group

	mu       sync.Mutex
	inflight map[string]*flight
}

type flight struct {
	stale bool
}

// NewLoader creates a Loader over c.
func NewLoader(c Cache) (*Loader, error) {
	if c == nil {
		return nil, ErrNilCache
	}
	return &Loader{cache: c, inflight: make(map[string]*flight)}, nil
}

// Cache returns the underlying cache.
func (l *Loader) Cache() Cache {
	return l.cache
}

// GetOrLoad returns the cached value for key or runs fn to produce it.
func (l *Loader) GetOrLoad(ctx context.Context, key string, fn LoadFunc) ([]byte, Outcome, error) {
	if err := ValidateKey(key); err != nil {
		return nil, OutcomeLoaded, err
	}

	if value, ok := l.cache.Get(ctx, key); ok {
		return value, OutcomeHit, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan(key, func() (any, error) {
		f := l.begin(key)
		// Another load may have completed between our miss and acquiring the flight.
		if value, ok := l.cache.Get(loadCtx, key); ok {
			_ = l.finish(loadCtx, key, f, nil, false)
			return value, nil
		}
		value, err := fn(loadCtx)
		if err != nil {
			_ = l.finish(loadCtx, key, f, nil, false)
			return nil, err
		}
		if err := l.finish(loadCtx, key, f, value, true); err != nil {
			return nil, fmt.Errorf("cache: store %q: %w", key, err)
		}
		return value, nil
	})

	select {
	case <-ctx.Done():
		return nil, OutcomeShared, ctx.Err()
	case res := <-ch:
		outcome := OutcomeLoaded
		if res.Shared {
			outcome = OutcomeShared
		}
		if res.Err != nil {
			return nil, outcome, res.Err
		}
		return res.Val.([]byte), outcome, nil
	}
}

// Forget removes the cached value for key. A load for key already in flight
// keeps running for its waiters but does not store its result.
func (l *Loader) Forget(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if f := l.inflight[key]; f != nil {
		f.stale = true
	}
	return l.cache.Delete(ctx, key)
}

// Purge removes every cached value and marks every load in flight stale.
func (l *Loader) Purge() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, f := range l.inflight {
		f.stale = true
	}
	l.cache.Purge()
}

func (l *Loader) begin(key string) *flight {
	f := &flight{}
	l.mu.Lock()
	l.inflight[key] = f
	l.mu.Unlock()
	return f
}

// finish retires f and, when store is set, stores value unless f went stale.
func (l *Loader) finish(ctx context.Context, key string, f *flight, value []byte, store bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inflight[key] == f {
		delete(l.inflight, key)
	}
	if !store || f.stale {
		return nil
	}
	return l.cache.Set(ctx, key, value)
}
