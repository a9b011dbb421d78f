package texture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jonwraymond/listicons/observe"
	"github.com/jonwraymond/listicons/resilience"
)

// DefaultProfileURL is the public session-service profile endpoint.
const DefaultProfileURL = "https://sessionserver.mojang.com/session/minecraft/profile"

// Response size limits.
const (
	maxProfileBytes = 64 << 10
	maxSkinBytes    = 4 << 20
)

// Fetcher retrieves a player's 32x32 head image.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Fetch must honor cancellation and deadlines.
// - Errors: failures match ErrNotFound or ErrRemote.
type Fetcher interface {
	Fetch(ctx context.Context, id uuid.UUID) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, id uuid.UUID) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, id uuid.UUID) ([]byte, error) {
	return f(ctx, id)
}

// Config configures a RemoteFetcher.
type Config struct {
	// ProfileURL is the profile endpoint; the hyphen-less uuid is appended.
	// Default: DefaultProfileURL
	ProfileURL string

	// Client performs HTTP requests. Default: a client with no global timeout;
	// the executor's timeout bounds each fetch.
	Client *http.Client

	// Executor guards each fetch. Default: NewGuard(GuardConfig{}).
	Executor *resilience.Executor

	// Middleware instruments each fetch. Default: no telemetry.
	Middleware *observe.Middleware

	// Logger receives debug entries. Default: observe.NopLogger().
	Logger observe.Logger

	// UserAgent is sent on every request.
	UserAgent string
}

// RemoteFetcher implements Fetcher against the session service.
type RemoteFetcher struct {
	profileURL string
	client     *http.Client
	executor   *resilience.Executor
	mw         *observe.Middleware
	logger     observe.Logger
	userAgent  string
}

// NewRemoteFetcher creates a fetcher with defaults applied.
func NewRemoteFetcher(cfg Config) *RemoteFetcher {
	if cfg.ProfileURL == "" {
		cfg.ProfileURL = DefaultProfileURL
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	if cfg.Executor == nil {
		cfg.Executor = NewGuard(GuardConfig{})
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	if cfg.Middleware == nil {
		cfg.Middleware = observe.NewMiddleware(observe.NewTracer(observe.NopObserver().Tracer()), nil, cfg.Logger)
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "listicons"
	}
	return &RemoteFetcher{
		profileURL: strings.TrimRight(cfg.ProfileURL, "/"),
		client:     cfg.Client,
		executor:   cfg.Executor,
		mw:         cfg.Middleware,
		logger:     cfg.Logger.With(observe.F("component", "texture")),
		userAgent:  cfg.UserAgent,
	}
}

// Fetch downloads the skin for id and returns the encoded 32x32 head.
func (f *RemoteFetcher) Fetch(ctx context.Context, id uuid.UUID) ([]byte, error) {
	op := observe.Operation{Component: "texture", Name: "fetch"}.
		With(attribute.String("player.uuid", id.String()))

	var head []byte
	err := f.mw.Run(ctx, op, func(ctx context.Context) error {
		return f.executor.Execute(ctx, func(ctx context.Context) error {
			var err error
			head, err = f.fetch(ctx, id)
			return err
		})
	})
	if err != nil {
		return nil, classify(err)
	}
	return head, nil
}

func (f *RemoteFetcher) fetch(ctx context.Context, id uuid.UUID) ([]byte, error) {
	profile, err := f.profile(ctx, id)
	if err != nil {
		return nil, err
	}
	skinURL, err := profile.SkinURL()
	if err != nil {
		return nil, err
	}
	f.logger.Debug(ctx, "resolved skin", observe.F("player.uuid", id.String()), observe.F("url", skinURL))

	skin, err := f.get(ctx, skinURL, maxSkinBytes)
	if err != nil {
		return nil, err
	}
	if skin == nil {
		return nil, fmt.Errorf("%w: skin %s returned no content", ErrRemote, skinURL)
	}
	return HeadFromSkinPNG(skin)
}

func (f *RemoteFetcher) profile(ctx context.Context, id uuid.UUID) (Profile, error) {
	url := f.profileURL + "/" + strings.ReplaceAll(id.String(), "-", "")
	body, err := f.get(ctx, url, maxProfileBytes)
	if err != nil {
		return Profile{}, err
	}
	if body == nil {
		return Profile{}, fmt.Errorf("%w: no profile for %s", ErrNotFound, id)
	}
	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return Profile{}, fmt.Errorf("%w: parse profile: %w", ErrRemote, err)
	}
	return profile, nil
}

// get returns the body of a 200 response, nil for 204 and 404, and ErrRemote
// for anything else.
func (f *RemoteFetcher) get(ctx context.Context, url string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrRemote, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", ErrRemote, url, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent, http.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: GET %s: status %d", ErrRemote, url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrRemote, url, err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrRemote, url, limit)
	}
	return body, nil
}

// classify maps guard and context failures onto ErrRemote, leaving already
// classified errors untouched.
func classify(err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrRemote) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRemote, err)
}

// GuardConfig configures the executor that guards remote fetches.
type GuardConfig struct {
	Timeout         time.Duration // Default: 10s
	Rate            float64       // Default: 10 per second
	Burst           int           // Default: 20
	RateWait        time.Duration // Default: 2s
	CircuitFailures int           // Default: 5
	CircuitReset    time.Duration // Default: 1m
	MaxConcurrent   int           // Zero disables the bulkhead.

	// OnStateChange observes circuit breaker transitions.
	OnStateChange func(from, to resilience.State)
}

// NewGuard builds the fetch executor: rate limiter, optional bulkhead,
// circuit breaker and timeout. ErrNotFound does not count as a breaker
// failure since it is a valid answer from a healthy service.
func NewGuard(cfg GuardConfig) *resilience.Executor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = resilience.DefaultTimeout
	}
	if cfg.CircuitReset <= 0 {
		cfg.CircuitReset = time.Minute
	}

	opts := []resilience.ExecutorOption{
		resilience.WithRateLimiter(resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Rate:        cfg.Rate,
			Burst:       cfg.Burst,
			WaitOnLimit: true,
			MaxWait:     cfg.RateWait,
		})),
		resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			MaxFailures:   cfg.CircuitFailures,
			ResetTimeout:  cfg.CircuitReset,
			OnStateChange: cfg.OnStateChange,
			IsFailure: func(err error) bool {
				return err != nil && !errors.Is(err, ErrNotFound)
			},
		})),
		resilience.WithTimeout(cfg.Timeout),
	}
	if cfg.MaxConcurrent > 0 {
		opts = append(opts, resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: cfg.MaxConcurrent,
			MaxWait:       cfg.Timeout,
		})))
	}
	return resilience.NewExecutor(opts...)
}

var _ Fetcher = (*RemoteFetcher)(nil)
