package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"slices"

	"github.com/jonwraymond/listicons/decoration"
	"github.com/jonwraymond/listicons/observe"
)

// ErrInvalid indicates a configuration value is out of range.
var ErrInvalid = errors.New("config: invalid")

func invalid(key, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalid, key, fmt.Sprintf(format, args...))
}

// Validate checks every section and returns all problems joined.
func (c *Config) Validate() error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	if _, _, err := net.SplitHostPort(c.Server.Bind); err != nil {
		add(invalid("server.bind", "%v", err))
	}
	if c.Server.ShutdownTimeout.Duration <= 0 {
		add(invalid("server.shutdown_timeout", "must be positive"))
	}

	if c.Cache.MaxEntries <= 0 {
		add(invalid("cache.max_entries", "must be positive"))
	}
	if c.Cache.IdleTTL.Duration <= 0 {
		add(invalid("cache.idle_ttl", "must be positive"))
	}
	if c.Cache.SweepInterval.Duration <= 0 {
		add(invalid("cache.sweep_interval", "must be positive"))
	}
	if c.Avatar.Freshness.Duration <= 0 {
		add(invalid("avatar.freshness", "must be positive"))
	}

	if u, err := url.Parse(c.Remote.ProfileURL); err != nil || u.Scheme == "" || u.Host == "" {
		add(invalid("remote.profile_url", "must be an absolute URL"))
	}
	if c.Remote.Timeout.Duration <= 0 {
		add(invalid("remote.timeout", "must be positive"))
	}
	if c.Remote.Rate <= 0 || c.Remote.Burst <= 0 {
		add(invalid("remote.rate", "rate and burst must be positive"))
	}
	if c.Remote.CircuitFailures <= 0 {
		add(invalid("remote.circuit_failures", "must be positive"))
	}
	if c.Remote.MaxConcurrent < 0 {
		add(invalid("remote.max_concurrent", "must not be negative"))
	}

	if secret := c.Admin.JWTSecret; secret != "" && len(secret) < 32 {
		add(invalid("admin.jwt_secret", "must be at least 32 bytes"))
	}

	if !slices.Contains(observe.ValidLogLevels, c.Observe.LogLevel) {
		add(invalid("observe.log_level", "%q", c.Observe.LogLevel))
	}
	if !slices.Contains(observe.ValidTracingExporters, c.Observe.TracingExporter) {
		add(invalid("observe.tracing_exporter", "%q", c.Observe.TracingExporter))
	}
	if !slices.Contains(observe.ValidMetricsExporters, c.Observe.MetricsExporter) {
		add(invalid("observe.metrics_exporter", "%q", c.Observe.MetricsExporter))
	}
	if c.Observe.SamplePct < 0 || c.Observe.SamplePct > 1 {
		add(invalid("observe.sample_pct", "must be within [0, 1]"))
	}

	seen := make(map[string]bool, len(c.Decorations))
	for i, d := range c.Decorations {
		key := fmt.Sprintf("decorations[%d]", i)
		if d.Name == "" {
			add(invalid(key, "name is required"))
		} else if seen[d.Name] {
			add(invalid(key, "duplicate name %q", d.Name))
		}
		seen[d.Name] = true
		if _, err := decoration.ParseLayout(d.Type); err != nil {
			add(invalid(key, "%v", err))
		}
		if len(d.Images) == 0 {
			add(invalid(key, "at least one image is required"))
		}
	}

	for name, g := range c.Permissions.Groups {
		for _, parent := range g.Inherits {
			if _, ok := c.Permissions.Groups[parent]; !ok {
				add(invalid("permissions.groups."+name, "inherits unknown group %q", parent))
			}
		}
	}

	return errors.Join(errs...)
}
