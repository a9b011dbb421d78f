package icon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jonwraymond/listicons/cache"
	"github.com/jonwraymond/listicons/decoration"
	"github.com/jonwraymond/listicons/identity"
	"github.com/jonwraymond/listicons/observe"
)

// ErrUnavailable indicates no icon could be produced for the player. The
// returned error also wraps the underlying cause.
var ErrUnavailable = errors.New("icon: unavailable")

// ErrMissingDependency indicates a required Config field is nil.
var ErrMissingDependency = errors.New("icon: missing dependency")

// AvatarSource supplies 32x32 head PNGs.
type AvatarSource interface {
	Avatar(ctx context.Context, id uuid.UUID) ([]byte, error)
}

// Composer layers a head onto a decoration asset.
type Composer interface {
	Compose(layout decoration.Layout, assets []string, head []byte) ([]byte, error)
}

// Config configures a Cache.
type Config struct {
	// Avatars supplies heads. Required.
	Avatars AvatarSource

	// Composer draws decorations. Required.
	Composer Composer

	// Registry holds decoration rules. Default: an empty registry.
	Registry *decoration.Registry

	// Policy bounds the cache. Default: cache.DefaultPolicy().
	Policy cache.Policy

	// Keyer derives cache keys. Default: cache.NewDefaultKeyer().
	Keyer cache.Keyer

	// Now supplies the clock for idle expiry. Default: time.Now.
	Now func() time.Time

	// Observer supplies telemetry. Default: observe.NopObserver().
	Observer observe.Observer
}

// Cache is the composed icon cache.
//
// Contract:
//   - Concurrency: safe for concurrent use. At most one load pipeline runs
//     per (uuid, display name) at a time.
//   - Memory: at most Policy.MaxEntries icons are held; an icon not accessed
//     for Policy.IdleTTL is dropped.
//   - Errors: Icon failures match ErrUnavailable and the underlying kind
//     (texture.ErrNotFound, texture.ErrRemote, avatar.ErrStorage,
//     compose.ErrComposition).
type Cache struct {
	avatars  AvatarSource
	composer Composer
	registry *decoration.Registry
	keyer    cache.Keyer
	store    *cache.MemoryCache
	loader   *cache.Loader
	mw       *observe.Middleware
	logger   observe.Logger
	metrics  *instruments
}

// New creates a Cache.
func New(cfg Config) (*Cache, error) {
	if cfg.Avatars == nil {
		return nil, fmt.Errorf("%w: avatar source", ErrMissingDependency)
	}
	if cfg.Composer == nil {
		return nil, fmt.Errorf("%w: composer", ErrMissingDependency)
	}
	if cfg.Registry == nil {
		cfg.Registry, _ = decoration.NewRegistry()
	}
	if cfg.Policy == (cache.Policy{}) {
		cfg.Policy = cache.DefaultPolicy()
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, err
	}
	if cfg.Keyer == nil {
		cfg.Keyer = cache.NewDefaultKeyer()
	}
	if cfg.Observer == nil {
		cfg.Observer = observe.NopObserver()
	}

	var opts []cache.MemoryOption
	if cfg.Now != nil {
		opts = append(opts, cache.WithClock(cfg.Now))
	}

	c := &Cache{
		avatars:  cfg.Avatars,
		composer: cfg.Composer,
		registry: cfg.Registry,
		keyer:    cfg.Keyer,
		logger:   cfg.Observer.Logger().With(observe.F("component", "icon")),
	}

	opts = append(opts, cache.WithEvictionCallback(func(string) { c.metrics.evicted() }))
	c.store = cache.NewMemoryCache(cfg.Policy, opts...)

	var err error
	if c.loader, err = cache.NewLoader(c.store); err != nil {
		return nil, err
	}
	store := c.store
	if c.metrics, err = newInstruments(cfg.Observer.Meter(), func() int64 { return int64(store.Len()) }); err != nil {
		return nil, fmt.Errorf("icon: metrics: %w", err)
	}

	opMetrics, err := observe.NewMetrics(cfg.Observer.Meter())
	if err != nil {
		return nil, fmt.Errorf("icon: metrics: %w", err)
	}
	c.mw = observe.NewMiddleware(observe.NewTracer(cfg.Observer.Tracer()), opMetrics, c.logger)
	return c, nil
}

// Icon returns the PNG icon for player.
func (c *Cache) Icon(ctx context.Context, player identity.Player) ([]byte, error) {
	key := c.keyer.Key(player.ID, player.Name)

	data, outcome, err := c.loader.GetOrLoad(ctx, key, func(ctx context.Context) ([]byte, error) {
		return c.load(ctx, player)
	})
	c.metrics.lookup(ctx, outcome == cache.OutcomeHit)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, player, err)
	}
	return data, nil
}

// RegisterDecoration adds a rule to the decoration registry.
// Icons already cached keep their current decoration until they age out.
func (c *Cache) RegisterDecoration(rule decoration.Rule) error {
	return c.registry.Register(rule)
}

// ReloadDecorations replaces every rule and drops all cached icons. Loads
// already running finish for their callers but are not cached, so no icon
// decorated under the old rules outlives the reload.
func (c *Cache) ReloadDecorations(rules ...decoration.Rule) error {
	if err := c.registry.Reload(rules...); err != nil {
		return err
	}
	c.loader.Purge()
	return nil
}

// Registry returns the decoration registry.
func (c *Cache) Registry() *decoration.Registry {
	return c.registry
}

// Invalidate drops the cached icon for player. A load already running for
// player is not cached when it completes.
func (c *Cache) Invalidate(ctx context.Context, player identity.Player) error {
	return c.loader.Forget(ctx, c.keyer.Key(player.ID, player.Name))
}

// Len returns the number of cached icons.
func (c *Cache) Len() int {
	return c.store.Len()
}

// Sweep drops idle icons and returns how many were dropped.
func (c *Cache) Sweep() int {
	return c.store.Sweep()
}

// RunSweeper sweeps idle icons every interval until ctx ends.
func (c *Cache) RunSweeper(ctx context.Context, interval time.Duration) {
	c.store.RunSweeper(ctx, interval)
}

// load is the miss pipeline: select, fetch head, compose.
func (c *Cache) load(ctx context.Context, player identity.Player) ([]byte, error) {
	op := observe.Operation{Component: "icon", Name: "load"}.With(
		attribute.String("player.uuid", player.ID.String()),
		attribute.String("player.name", player.Name),
	)

	start := time.Now()
	var icon []byte
	err := c.mw.Run(ctx, op, func(ctx context.Context) error {
		rule, decorated := c.registry.Select(ctx, player)

		head, err := c.avatars.Avatar(ctx, player.ID)
		if err != nil {
			return err
		}
		if !decorated {
			icon = head
			return nil
		}

		composed, err := c.composer.Compose(rule.Layout, rule.Assets, head)
		if err != nil {
			return fmt.Errorf("decoration %q: %w", rule.Name, err)
		}
		c.logger.Debug(ctx, "composed icon",
			observe.F("player.uuid", player.ID.String()),
			observe.F("decoration", rule.Name),
			observe.F("layout", rule.Layout.String()),
		)
		icon = composed
		return nil
	})
	c.metrics.loaded(ctx, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return icon, nil
}
