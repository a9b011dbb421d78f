package health

import (
	"context"
	"fmt"
	"time"

	"github.com/go-git/go-billy/v5"

	"github.com/jonwraymond/listicons/resilience"
)

const probeName = ".listicons-health"

// WritableDir checks that fs accepts a file create and remove.
func WritableDir(name string, fs billy.Filesystem) Checker {
	return NewCheckerFunc(name, func(ctx context.Context) Result {
		if err := ctx.Err(); err != nil {
			return Unhealthy("context done", err)
		}
		f, err := fs.Create(probeName)
		if err != nil {
			return Unhealthy("not writable", fmt.Errorf("%w: %w", ErrCheckFailed, err))
		}
		_ = f.Close()
		if err := fs.Remove(probeName); err != nil {
			return Unhealthy("probe not removable", fmt.Errorf("%w: %w", ErrCheckFailed, err))
		}
		return Healthy("writable").WithDetails(map[string]any{"root": fs.Root()})
	})
}

// ReadableDir checks that fs can list its root. It reports the entry count.
func ReadableDir(name string, fs billy.Filesystem) Checker {
	return NewCheckerFunc(name, func(ctx context.Context) Result {
		if err := ctx.Err(); err != nil {
			return Unhealthy("context done", err)
		}
		entries, err := fs.ReadDir("/")
		if err != nil {
			return Unhealthy("not readable", fmt.Errorf("%w: %w", ErrCheckFailed, err))
		}
		return Healthy("readable").WithDetails(map[string]any{
			"root":    fs.Root(),
			"entries": len(entries),
		})
	})
}

// Ping checks a dependency through its Ping method.
func Ping(name string, ping func(context.Context) error) Checker {
	return NewCheckerFunc(name, func(ctx context.Context) Result {
		start := time.Now()
		if err := ping(ctx); err != nil {
			return Unhealthy("ping failed", fmt.Errorf("%w: %w", ErrCheckFailed, err))
		}
		return Healthy("reachable").WithDetails(map[string]any{"latency": time.Since(start).String()})
	})
}

// Circuit reports an open breaker as degraded and a half-open one as healthy
// but probing.
func Circuit(name string, cb *resilience.CircuitBreaker) Checker {
	return NewCheckerFunc(name, func(context.Context) Result {
		m := cb.Metrics()
		details := map[string]any{
			"state":    m.State.String(),
			"failures": m.Failures,
			"rejected": m.Rejected,
		}
		if !m.LastFailure.IsZero() {
			details["last_failure"] = m.LastFailure.UTC().Format(time.RFC3339)
		}
		switch m.State {
		case resilience.StateOpen:
			return Degraded("circuit open").WithDetails(details)
		case resilience.StateHalfOpen:
			return Healthy("circuit probing").WithDetails(details)
		default:
			return Healthy("circuit closed").WithDetails(details)
		}
	})
}
