package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jonwraymond/listicons/avatar"
	"github.com/jonwraymond/listicons/compose"
	"github.com/jonwraymond/listicons/config"
	"github.com/jonwraymond/listicons/decoration"
	"github.com/jonwraymond/listicons/health"
	"github.com/jonwraymond/listicons/icon"
	"github.com/jonwraymond/listicons/observe"
	"github.com/jonwraymond/listicons/resilience"
	"github.com/jonwraymond/listicons/texture"
)

// pipeline is the icon production chain built from configuration.
type pipeline struct {
	observer observe.Observer
	guard    *resilience.Executor
	avatars  *avatar.Store
	composer *compose.Compositor
	icons    *icon.Cache
}

// newObserver builds telemetry with log output sent to logs.
func newObserver(ctx context.Context, cfg *config.Config, logs io.Writer) (observe.Observer, error) {
	oc := cfg.ObserveConfig(version)
	oc.Logging.Writer = logs
	obs, err := observe.NewObserver(ctx, oc)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	return obs, nil
}

func buildPipeline(ctx context.Context, cfg *config.Config, obs observe.Observer) (*pipeline, error) {
	logger := obs.Logger()
	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return nil, fmt.Errorf("init middleware: %w", err)
	}

	guard := texture.NewGuard(cfg.GuardConfig(func(from, to resilience.State) {
		logger.Warn(context.Background(), "remote circuit changed state",
			observe.F("from", from.String()), observe.F("to", to.String()))
	}))
	fetcher := texture.NewRemoteFetcher(texture.Config{
		ProfileURL: cfg.Remote.ProfileURL,
		Executor:   guard,
		Middleware: mw,
		Logger:     logger,
		UserAgent:  cfg.Remote.UserAgent,
	})

	avatars, err := avatar.NewStore(avatar.Config{
		Dir:        cfg.Paths.HeadsDir,
		Fetcher:    fetcher,
		Freshness:  cfg.Avatar.Freshness.Duration,
		Logger:     logger,
		Middleware: mw,
	})
	if err != nil {
		return nil, err
	}

	composer, err := compose.New(compose.Config{Dir: cfg.Paths.ImagesDir})
	if err != nil {
		return nil, err
	}

	rules, err := decorationRules(ctx, cfg, composer, logger)
	if err != nil {
		return nil, err
	}
	registry, err := decoration.NewRegistry(rules...)
	if err != nil {
		return nil, err
	}

	icons, err := icon.New(icon.Config{
		Avatars:  avatars,
		Composer: composer,
		Registry: registry,
		Policy:   cfg.CachePolicy(),
		Observer: obs,
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "icon pipeline ready",
		observe.F("decorations", registry.Len()),
		observe.F("heads_dir", cfg.Paths.HeadsDir),
		observe.F("images_dir", cfg.Paths.ImagesDir))

	return &pipeline{
		observer: obs,
		guard:    guard,
		avatars:  avatars,
		composer: composer,
		icons:    icons,
	}, nil
}

// decorationRules builds the configured rules and warns about assets the
// composer cannot find.
func decorationRules(ctx context.Context, cfg *config.Config, composer *compose.Compositor, logger observe.Logger) ([]decoration.Rule, error) {
	rules, err := cfg.Rules(cfg.PermissionTable())
	if err != nil {
		return nil, err
	}
	for _, rule := range rules {
		for _, asset := range rule.Assets {
			if !composer.Exists(asset) {
				logger.Warn(ctx, "decoration asset missing",
					observe.F("decoration", rule.Name), observe.F("asset", asset))
			}
		}
	}
	return rules, nil
}

// reloadDecorations rereads the config file at path and replaces the
// decoration rules and permission table. Cached icons are dropped.
func (p *pipeline) reloadDecorations(ctx context.Context, path string) (int, error) {
	cfg, _, _, err := config.Load(ctx, path)
	if err != nil {
		return 0, err
	}
	rules, err := decorationRules(ctx, cfg, p.composer, p.observer.Logger())
	if err != nil {
		return 0, err
	}
	if err := p.icons.ReloadDecorations(rules...); err != nil {
		return 0, err
	}
	return len(rules), nil
}

// healthCheckers lists the readiness checks for a running service.
func (p *pipeline) healthCheckers(ping func(context.Context) error) []health.Checker {
	checkers := []health.Checker{
		health.WritableDir("heads", p.avatars.Filesystem()),
		health.ReadableDir("images", p.composer.Filesystem()),
		health.Ping("directory", ping),
	}
	if cb := p.guard.CircuitBreaker(); cb != nil {
		checkers = append(checkers, health.Circuit("remote", cb))
	}
	return checkers
}

// shutdownObserver flushes telemetry, ignoring providers that were never
// started.
func shutdownObserver(ctx context.Context, obs observe.Observer) error {
	if err := obs.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("shutdown telemetry: %w", err)
	}
	return nil
}
