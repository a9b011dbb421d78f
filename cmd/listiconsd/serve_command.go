package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/listicons/health"
	"github.com/jonwraymond/listicons/identity"
	"github.com/jonwraymond/listicons/observe"
	"github.com/jonwraymond/listicons/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the icon HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd.Context())
			if err != nil {
				return err
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}

			lock := flock.New(cfg.LockPath())
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !ok {
				return fmt.Errorf("another listiconsd is already using %s", cfg.Paths.DataDir)
			}
			defer func() { _ = lock.Unlock() }()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			obs, err := newObserver(runCtx, cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdownObserver(shutdownCtx, obs)
			}()
			logger := obs.Logger()

			p, err := buildPipeline(runCtx, cfg, obs)
			if err != nil {
				return err
			}

			dir, err := identity.OpenSQLite(runCtx, cfg.Paths.Database)
			if err != nil {
				return err
			}
			defer dir.Close()

			agg := health.NewAggregator(0)
			for _, checker := range p.healthCheckers(dir.Ping) {
				agg.Register(checker)
			}

			srv, err := server.New(server.Config{
				Bind:              cfg.Server.Bind,
				Icons:             p.icons,
				Directory:         dir,
				Health:            agg,
				Authenticator:     cfg.Authenticator(),
				PrometheusMetrics: cfg.Observe.MetricsExporter == "prometheus",
				ShutdownTimeout:   cfg.Server.ShutdownTimeout.Duration,
				Observer:          obs,
			})
			if err != nil {
				return err
			}

			go p.icons.RunSweeper(runCtx, cfg.Cache.SweepInterval.Duration)

			hup := make(chan os.Signal, 1)
			signal.Notify(hup, syscall.SIGHUP)
			defer signal.Stop(hup)
			go watchReload(runCtx, hup, p, ctx.configPath, logger)

			logger.Info(runCtx, "listiconsd starting",
				observe.F("version", version),
				observe.F("config", ctx.configPath),
				observe.F("database", dir.Path()))
			if err := srv.ListenAndServe(runCtx); err != nil {
				return err
			}
			logger.Info(context.Background(), "listiconsd stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Override the listen address")
	return cmd
}

// watchReload reloads decoration rules each time a signal arrives on sig.
func watchReload(ctx context.Context, sig <-chan os.Signal, p *pipeline, path string, logger observe.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			n, err := p.reloadDecorations(ctx, path)
			if err != nil {
				logger.Error(ctx, "reload decorations failed", observe.F("config", path), observe.Err(err))
				continue
			}
			logger.Info(ctx, "reloaded decorations", observe.F("decorations", n))
		}
	}
}
