package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewLoader_NilCache(t *testing.T) {
	if _, err := NewLoader(nil); !errors.Is(err, ErrNilCache) {
		t.Fatalf("expected ErrNilCache, got %v", err)
	}
}

func TestLoader_HitAfterLoad(t *testing.T) {
	l, _ := NewLoader(NewMemoryCache(DefaultPolicy()))
	ctx := context.Background()
	var calls atomic.Int32
	fn := func(context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte("png"), nil
	}

	v1, o1, err := l.GetOrLoad(ctx, "k", fn)
	if err != nil || o1 != OutcomeLoaded {
		t.Fatalf("first call: %v %v", o1, err)
	}
	v2, o2, err := l.GetOrLoad(ctx, "k", fn)
	if err != nil || o2 != OutcomeHit {
		t.Fatalf("second call: %v %v", o2, err)
	}
	if string(v1) != string(v2) {
		t.Fatal("results differ")
	}
	if calls.Load() != 1 {
		t.Fatalf("load ran %d times", calls.Load())
	}
}

func TestLoader_ConcurrentMissesLoadOnce(t *testing.T) {
	l, _ := NewLoader(NewMemoryCache(DefaultPolicy()))
	var calls atomic.Int32
	release := make(chan struct{})
	fn := func(context.Context) ([]byte, error) {
		calls.Add(1)
		<-release
		return []byte("png"), nil
	}

	const n = 50
	var wg sync.WaitGroup
	var started sync.WaitGroup
	errs := make(chan error, n)
	started.Add(n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started.Done()
			v, _, err := l.GetOrLoad(context.Background(), "k", fn)
			if err == nil && string(v) != "png" {
				err = errors.New("wrong value")
			}
			errs <- err
		}()
	}
	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("GetOrLoad: %v", err)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("load ran %d times, want 1", calls.Load())
	}
}

func TestLoader_ErrorsNotCached(t *testing.T) {
	l, _ := NewLoader(NewMemoryCache(DefaultPolicy()))
	ctx := context.Background()
	boom := errors.New("boom")

	_, _, err := l.GetOrLoad(ctx, "k", func(context.Context) ([]byte, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if l.Cache().Len() != 0 {
		t.Fatal("failure was cached")
	}

	v, outcome, err := l.GetOrLoad(ctx, "k", func(context.Context) ([]byte, error) { return []byte("ok"), nil })
	if err != nil || string(v) != "ok" || outcome != OutcomeLoaded {
		t.Fatalf("recovery: %q %v %v", v, outcome, err)
	}
}

func TestLoader_CancelledWaiterDoesNotAbortLoad(t *testing.T) {
	l, _ := NewLoader(NewMemoryCache(DefaultPolicy()))
	release := make(chan struct{})
	loadCtxErr := make(chan error, 1)
	fn := func(ctx context.Context) ([]byte, error) {
		<-release
		loadCtxErr <- ctx.Err()
		return []byte("png"), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, _, err := l.GetOrLoad(ctx, "k", fn)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	close(release)
	if err := <-loadCtxErr; err != nil {
		t.Fatalf("load context was cancelled: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, ok := l.Cache().Get(context.Background(), "k"); ok {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("detached load result was not cached")
}

func TestLoader_InvalidKey(t *testing.T) {
	l, _ := NewLoader(NewMemoryCache(DefaultPolicy()))
	_, _, err := l.GetOrLoad(context.Background(), "", func(context.Context) ([]byte, error) {
		t.Fatal("load must not run for an invalid key")
		return nil, nil
	})
	if !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestLoader_Forget(t *testing.T) {
	l, _ := NewLoader(NewMemoryCache(DefaultPolicy()))
	ctx := context.Background()
	_, _, _ = l.GetOrLoad(ctx, "k", func(context.Context) ([]byte, error) { return []byte("a"), nil })
	if err := l.Forget(ctx, "k"); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	v, _, _ := l.GetOrLoad(ctx, "k", func(context.Context) ([]byte, error) { return []byte("b"), nil })
	if string(v) != "b" {
		t.Fatalf("expected reload after Forget, got %q", v)
	}
}

// startGatedLoad begins a load for key that blocks until release closes.
func startGatedLoad(t *testing.T, l *Loader, key string, value string, calls *atomic.Int32, release chan struct{}) <-chan []byte {
	t.Helper()
	entered := make(chan struct{})
	out := make(chan []byte, 1)
	go func() {
		v, _, _ := l.GetOrLoad(context.Background(), key, func(context.Context) ([]byte, error) {
			calls.Add(1)
			close(entered)
			<-release
			return []byte(value), nil
		})
		out <- v
	}()
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("load did not start")
	}
	return out
}

func TestLoader_ForgetDuringLoad(t *testing.T) {
	l, _ := NewLoader(NewMemoryCache(DefaultPolicy()))
	ctx := context.Background()
	var calls atomic.Int32
	release := make(chan struct{})
	first := startGatedLoad(t, l, "k", "old", &calls, release)

	if err := l.Forget(ctx, "k"); err != nil {
		t.Fatalf("Forget: %v", err)
	}

	// A caller arriving after Forget joins the running load instead of
	// starting a second one.
	second := make(chan []byte, 1)
	go func() {
		v, _, _ := l.GetOrLoad(ctx, "k", func(context.Context) ([]byte, error) {
			calls.Add(1)
			return []byte("new"), nil
		})
		second <- v
	}()
	time.Sleep(20 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Fatalf("load ran %d times concurrently, want 1", n)
	}

	close(release)
	if v := <-first; string(v) != "old" {
		t.Fatalf("first waiter got %q", v)
	}
	<-second
	if _, ok := l.Cache().Get(ctx, "k"); ok {
		t.Fatal("forgotten load stored its result")
	}

	v, outcome, err := l.GetOrLoad(ctx, "k", func(context.Context) ([]byte, error) { return []byte("new"), nil })
	if err != nil || string(v) != "new" || outcome != OutcomeLoaded {
		t.Fatalf("after Forget: %q %v %v", v, outcome, err)
	}
}

func TestLoader_PurgeDuringLoad(t *testing.T) {
	l, _ := NewLoader(NewMemoryCache(DefaultPolicy()))
	ctx := context.Background()
	_, _, _ = l.GetOrLoad(ctx, "done", func(context.Context) ([]byte, error) { return []byte("a"), nil })

	var calls atomic.Int32
	release := make(chan struct{})
	pending := startGatedLoad(t, l, "k", "old", &calls, release)

	l.Purge()
	close(release)
	<-pending

	if n := l.Cache().Len(); n != 0 {
		t.Fatalf("cache holds %d entries after Purge, want 0", n)
	}
	v, _, _ := l.GetOrLoad(ctx, "k", func(context.Context) ([]byte, error) { return []byte("new"), nil })
	if string(v) != "new" {
		t.Fatalf("expected reload after Purge, got %q", v)
	}
}
