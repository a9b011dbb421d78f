// Package resilience guards calls to the remote profile service.
//
// Each pattern can be used independently or composed through an Executor:
//
//   - Timeout bounds a single call.
//   - CircuitBreaker stops calling a service that keeps failing and probes it
//     again after a reset interval.
//   - RateLimiter spaces calls out with a token bucket
//     (golang.org/x/time/rate), optionally waiting a bounded time for a token.
//   - Bulkhead caps the number of calls in flight.
//
// There is deliberately no retry pattern: a failed icon load is reported to
// its caller and the next request starts a fresh attempt.
//
// # Usage
//
//	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    MaxFailures:  5,
//	    ResetTimeout: time.Minute,
//	})
//
//	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{
//	    Rate:        10,
//	    Burst:       20,
//	    WaitOnLimit: true,
//	    MaxWait:     2 * time.Second,
//	})
//
//	executor := resilience.NewExecutor(
//	    resilience.WithRateLimiter(rl),
//	    resilience.WithCircuitBreaker(cb),
//	    resilience.WithTimeout(10*time.Second),
//	)
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return fetchProfile(ctx)
//	})
package resilience
