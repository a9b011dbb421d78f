package config

import (
	"time"

	"github.com/jonwraymond/listicons/avatar"
	"github.com/jonwraymond/listicons/cache"
	"github.com/jonwraymond/listicons/texture"
)

const defaultDataDir = "~/.local/share/listicons"

// Default returns the built-in configuration. Derived paths are filled in
// by normalisation.
func Default() Config {
	return Config{
		Paths: Paths{DataDir: defaultDataDir},
		Server: Server{
			Bind:            "127.0.0.1:8765",
			ShutdownTimeout: Dur(10 * time.Second),
		},
		Cache: Cache{
			MaxEntries:    cache.DefaultMaxEntries,
			IdleTTL:       Dur(cache.DefaultIdleTTL),
			SweepInterval: Dur(time.Minute),
		},
		Avatar: Avatar{Freshness: Dur(avatar.DefaultFreshness)},
		Remote: Remote{
			ProfileURL:      texture.DefaultProfileURL,
			UserAgent:       "listicons",
			Timeout:         Dur(10 * time.Second),
			Rate:            10,
			Burst:           20,
			RateWait:        Dur(2 * time.Second),
			CircuitFailures: 5,
			CircuitReset:    Dur(time.Minute),
		},
		Admin: Admin{JWTIssuer: "listicons"},
		Observe: Observe{
			ServiceName:     "listiconsd",
			LogLevel:        "info",
			TracingExporter: "none",
			MetricsExporter: "none",
			SamplePct:       1,
		},
	}
}
