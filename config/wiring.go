package config

import (
	"fmt"

	"github.com/jonwraymond/listicons/auth"
	"github.com/jonwraymond/listicons/cache"
	"github.com/jonwraymond/listicons/decoration"
	"github.com/jonwraymond/listicons/observe"
	"github.com/jonwraymond/listicons/permission"
	"github.com/jonwraymond/listicons/resilience"
	"github.com/jonwraymond/listicons/texture"
)

// CachePolicy returns the icon cache bounds.
func (c *Config) CachePolicy() cache.Policy {
	return cache.Policy{MaxEntries: c.Cache.MaxEntries, IdleTTL: c.Cache.IdleTTL.Duration}
}

// GuardConfig returns the remote fetch guard settings.
func (c *Config) GuardConfig(onStateChange func(from, to resilience.State)) texture.GuardConfig {
	return texture.GuardConfig{
		Timeout:         c.Remote.Timeout.Duration,
		Rate:            c.Remote.Rate,
		Burst:           c.Remote.Burst,
		RateWait:        c.Remote.RateWait.Duration,
		CircuitFailures: c.Remote.CircuitFailures,
		CircuitReset:    c.Remote.CircuitReset.Duration,
		MaxConcurrent:   c.Remote.MaxConcurrent,
		OnStateChange:   onStateChange,
	}
}

// ObserveConfig returns the telemetry settings. Exporters named "none"
// disable their subsystem.
func (c *Config) ObserveConfig(version string) observe.Config {
	return observe.Config{
		ServiceName: c.Observe.ServiceName,
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   c.Observe.TracingExporter != "none" && c.Observe.TracingExporter != "",
			Exporter:  c.Observe.TracingExporter,
			SamplePct: c.Observe.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.Observe.MetricsExporter != "none" && c.Observe.MetricsExporter != "",
			Exporter: c.Observe.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   c.Observe.LogLevel,
		},
	}
}

// PermissionTable builds the permission checker.
func (c *Config) PermissionTable() *permission.Table {
	return permission.NewTable(c.Permissions)
}

// Rules builds decoration rules, gating each on its permission via checker.
func (c *Config) Rules(checker permission.Checker) ([]decoration.Rule, error) {
	rules := make([]decoration.Rule, 0, len(c.Decorations))
	for _, d := range c.Decorations {
		layout, err := decoration.ParseLayout(d.Type)
		if err != nil {
			return nil, fmt.Errorf("decoration %q: %w", d.Name, err)
		}
		rules = append(rules, decoration.Rule{
			Name:      d.Name,
			Priority:  d.Priority,
			Layout:    layout,
			Predicate: decoration.PermissionPredicate(checker, d.Permission),
			Assets:    d.Images,
		})
	}
	return rules, nil
}

// Authenticator builds the admin authenticator from the configured API keys
// and JWT secret. It returns nil when neither is configured.
func (c *Config) Authenticator() auth.Authenticator {
	var auths []auth.Authenticator
	if len(c.Admin.APIKeys) > 0 {
		keys := make([]auth.APIKey, len(c.Admin.APIKeys))
		for i, k := range c.Admin.APIKeys {
			keys[i] = auth.NewAPIKey(k, fmt.Sprintf("api-key-%d", i+1), "admin")
		}
		auths = append(auths, auth.NewAPIKeyAuthenticator("", keys...))
	}
	if c.Admin.JWTSecret != "" {
		auths = append(auths, auth.NewJWTAuthenticator(auth.JWTConfig{
			Secret: []byte(c.Admin.JWTSecret),
			Issuer: c.Admin.JWTIssuer,
		}))
	}
	if len(auths) == 0 {
		return nil
	}
	return auth.NewCompositeAuthenticator(auths...)
}
