package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRateLimiter_BurstThenReject(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 0.001, Burst: 3})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := rl.Execute(ctx, succeed); err != nil {
			t.Fatalf("call %d within burst: %v", i, err)
		}
	}
	if err := rl.Execute(ctx, succeed); !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("expected ErrRateLimitExceeded, got %v", err)
	}
}

func TestRateLimiter_WaitsForToken(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 100, Burst: 1, WaitOnLimit: true, MaxWait: time.Second})
	ctx := context.Background()

	_ = rl.Execute(ctx, succeed)
	start := time.Now()
	if err := rl.Execute(ctx, succeed); err != nil {
		t.Fatalf("waiting call: %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatal("waited far longer than one token interval")
	}
}

func TestRateLimiter_WaitBoundedByMaxWait(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 0.01, Burst: 1, WaitOnLimit: true, MaxWait: 20 * time.Millisecond})
	ctx := context.Background()

	_ = rl.Execute(ctx, succeed)
	called := false
	err := rl.Execute(ctx, func(context.Context) error { called = true; return nil })
	if !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("expected ErrRateLimitExceeded, got %v", err)
	}
	if called {
		t.Fatal("operation ran without a token")
	}
}

func TestRateLimiter_CallerCancellation(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 0.01, Burst: 1, WaitOnLimit: true, MaxWait: time.Minute})
	_ = rl.Execute(context.Background(), succeed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := rl.Execute(ctx, succeed); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRateLimiter_Defaults(t *testing.T) {
	cfg := NewRateLimiter(RateLimiterConfig{}).Config()
	if cfg.Rate != 10 || cfg.Burst != 20 || cfg.MaxWait != 2*time.Second {
		t.Fatalf("defaults = %+v", cfg)
	}
}
