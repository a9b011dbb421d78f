package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"

	"github.com/jonwraymond/listicons/permission"
	"github.com/jonwraymond/listicons/secret"
)

//go:embed sample_config.toml
var sampleConfig string

// DefaultFileName is looked up in the working directory when no path is given.
const DefaultFileName = "listicons.toml"

type Paths struct {
	DataDir   string `toml:"data_dir" env:"LISTICONS_DATA_DIR"`
	HeadsDir  string `toml:"heads_dir" env:"LISTICONS_HEADS_DIR"`
	ImagesDir string `toml:"images_dir" env:"LISTICONS_IMAGES_DIR"`
	Database  string `toml:"database" env:"LISTICONS_DATABASE"`
}

type Server struct {
	Bind            string   `toml:"bind" env:"LISTICONS_BIND"`
	ShutdownTimeout Duration `toml:"shutdown_timeout" env:"LISTICONS_SHUTDOWN_TIMEOUT"`
}

type Cache struct {
	MaxEntries    int      `toml:"max_entries" env:"LISTICONS_CACHE_MAX_ENTRIES"`
	IdleTTL       Duration `toml:"idle_ttl" env:"LISTICONS_CACHE_IDLE_TTL"`
	SweepInterval Duration `toml:"sweep_interval" env:"LISTICONS_CACHE_SWEEP_INTERVAL"`
}

type Avatar struct {
	Freshness Duration `toml:"freshness" env:"LISTICONS_AVATAR_FRESHNESS"`
}

type Remote struct {
	ProfileURL      string   `toml:"profile_url" env:"LISTICONS_PROFILE_URL"`
	UserAgent       string   `toml:"user_agent" env:"LISTICONS_USER_AGENT"`
	Timeout         Duration `toml:"timeout" env:"LISTICONS_REMOTE_TIMEOUT"`
	Rate            float64  `toml:"rate" env:"LISTICONS_REMOTE_RATE"`
	Burst           int      `toml:"burst" env:"LISTICONS_REMOTE_BURST"`
	RateWait        Duration `toml:"rate_wait" env:"LISTICONS_REMOTE_RATE_WAIT"`
	CircuitFailures int      `toml:"circuit_failures" env:"LISTICONS_REMOTE_CIRCUIT_FAILURES"`
	CircuitReset    Duration `toml:"circuit_reset" env:"LISTICONS_REMOTE_CIRCUIT_RESET"`
	MaxConcurrent   int      `toml:"max_concurrent" env:"LISTICONS_REMOTE_MAX_CONCURRENT"`
}

// Admin holds credentials for the mutating HTTP routes. APIKeys and
// JWTSecret may be secretref values.
type Admin struct {
	APIKeys   []string `toml:"api_keys" env:"LISTICONS_ADMIN_API_KEYS" envSeparator:","`
	JWTSecret string   `toml:"jwt_secret" env:"LISTICONS_ADMIN_JWT_SECRET"`
	JWTIssuer string   `toml:"jwt_issuer" env:"LISTICONS_ADMIN_JWT_ISSUER"`
}

type Observe struct {
	ServiceName     string  `toml:"service_name" env:"LISTICONS_SERVICE_NAME"`
	LogLevel        string  `toml:"log_level" env:"LISTICONS_LOG_LEVEL"`
	TracingExporter string  `toml:"tracing_exporter" env:"LISTICONS_TRACING_EXPORTER"`
	MetricsExporter string  `toml:"metrics_exporter" env:"LISTICONS_METRICS_EXPORTER"`
	SamplePct       float64 `toml:"sample_pct" env:"LISTICONS_TRACE_SAMPLE_PCT"`
}

// Decoration is one [[decorations]] entry.
type Decoration struct {
	Name       string   `toml:"name"`
	Priority   int      `toml:"priority"`
	Type       string   `toml:"type"`
	Permission string   `toml:"permission"`
	Images     []string `toml:"images"`
}

type Config struct {
	Paths       Paths             `toml:"paths"`
	Server      Server            `toml:"server"`
	Cache       Cache             `toml:"cache"`
	Avatar      Avatar            `toml:"avatar"`
	Remote      Remote            `toml:"remote"`
	Admin       Admin             `toml:"admin"`
	Observe     Observe           `toml:"observe"`
	Permissions permission.Config `toml:"permissions"`
	Decorations []Decoration      `toml:"decorations"`
}

// Load reads the configuration at path, or DefaultFileName when path is
// empty. A missing file is not an error; defaults are used and exists is
// false. The returned path is the file that was, or would have been, read.
func Load(ctx context.Context, path string) (*Config, string, bool, error) {
	cfg := Default()

	resolved, exists, err := resolvePath(path)
	if err != nil {
		return nil, "", false, err
	}
	if exists {
		f, err := os.Open(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()
		if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, "", false, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.resolveSecrets(ctx, secret.DefaultResolver()); err != nil {
		return nil, "", false, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

// Parse decodes TOML data over the defaults, then normalises and validates.
// Environment and secret layers are not applied.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func resolvePath(path string) (string, bool, error) {
	if path == "" {
		path = DefaultFileName
	}
	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return expanded, false, nil
	case err != nil:
		return "", false, fmt.Errorf("stat config: %w", err)
	case info.IsDir():
		return "", false, fmt.Errorf("config %s is a directory", expanded)
	}
	return expanded, true, nil
}

func (c *Config) resolveSecrets(ctx context.Context, r *secret.Resolver) error {
	keys, err := r.ResolveSlice(ctx, c.Admin.APIKeys)
	if err != nil {
		return fmt.Errorf("admin.api_keys: %w", err)
	}
	c.Admin.APIKeys = keys
	if c.Admin.JWTSecret != "" {
		if c.Admin.JWTSecret, err = r.ResolveValue(ctx, c.Admin.JWTSecret); err != nil {
			return fmt.Errorf("admin.jwt_secret: %w", err)
		}
	}
	return nil
}

// EnsureDirectories creates the data, heads and images directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.HeadsDir, c.Paths.ImagesDir, filepath.Dir(c.Paths.Database)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath is the single-instance lock file for serve.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "listiconsd.lock")
}

// Encode renders c as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

// Sample returns the annotated sample configuration.
func Sample() string {
	return sampleConfig
}

// CreateSample writes the sample configuration to path. An existing file is
// left untouched unless overwrite is set.
func CreateSample(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config %s already exists", path)
		}
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
