package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	for _, p := range []struct {
		key   string
		value *string
		def   string
	}{
		{"paths.heads_dir", &c.Paths.HeadsDir, "heads"},
		{"paths.images_dir", &c.Paths.ImagesDir, "images"},
		{"paths.database", &c.Paths.Database, "directory.db"},
	} {
		v := strings.TrimSpace(*p.value)
		if v == "" {
			v = filepath.Join(c.Paths.DataDir, p.def)
		} else if !filepath.IsAbs(v) && !strings.HasPrefix(v, "~") {
			v = filepath.Join(c.Paths.DataDir, v)
		}
		if *p.value, err = expandPath(v); err != nil {
			return fmt.Errorf("%s: %w", p.key, err)
		}
	}

	c.Observe.LogLevel = strings.ToLower(strings.TrimSpace(c.Observe.LogLevel))
	c.Observe.TracingExporter = strings.ToLower(strings.TrimSpace(c.Observe.TracingExporter))
	c.Observe.MetricsExporter = strings.ToLower(strings.TrimSpace(c.Observe.MetricsExporter))

	keys := c.Admin.APIKeys[:0]
	for _, k := range c.Admin.APIKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	c.Admin.APIKeys = keys

	for i := range c.Decorations {
		d := &c.Decorations[i]
		d.Name = strings.TrimSpace(d.Name)
		d.Type = strings.ToLower(strings.TrimSpace(d.Type))
		d.Permission = strings.TrimSpace(d.Permission)
	}
	return nil
}

// expandPath resolves "~" and makes pathValue absolute.
func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	abs, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return abs, nil
}
