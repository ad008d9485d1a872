// Package config loads the server's runtime configuration from
// defaults, an optional YAML file, and NAUTILUS_-prefixed environment
// variables, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix scopes environment overrides, e.g. NAUTILUS_METRICS_ADDR.
const envPrefix = "NAUTILUS_"

// Config holds the notification server's runtime configuration.
type Config struct {
	MetricsAddr string `koanf:"metrics_addr"` // Prometheus listen address
	DataDir     string `koanf:"data_dir"`     // DB and file storage root

	Switchboard struct {
		Host string `koanf:"host"`
		Port int    `koanf:"port"`
	} `koanf:"switchboard"`

	PumpInterval  time.Duration `koanf:"pump_interval"`
	PumpBatch     int           `koanf:"pump_batch"`
	TokenLifetime time.Duration `koanf:"token_lifetime"`
}

func defaults() map[string]any {
	return map[string]any{
		"metrics_addr":     ":9090",
		"data_dir":         defaultDataDir(),
		"switchboard.host": "localhost",
		"switchboard.port": 1864,
		"pump_interval":    time.Second,
		"pump_batch":       100,
		"token_lifetime":   30 * time.Second,
	}
}

// Load builds a Config. path names an optional YAML file; "" skips it.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	err := k.Load(env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, any) {
		key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
		return strings.ReplaceAll(key, "__", "."), value
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var c Config
	if err := k.Unmarshal("", &c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Validate checks the configuration and ensures the data directory
// exists.
func (c *Config) Validate() error {
	if c.MetricsAddr == "" {
		return fmt.Errorf("metrics_addr is required")
	}
	if c.PumpInterval <= 0 {
		return fmt.Errorf("pump_interval must be positive")
	}
	if c.PumpBatch <= 0 {
		return fmt.Errorf("pump_batch must be positive")
	}
	if err := os.MkdirAll(c.DataDir, 0o750); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return nil
}

// DBPath returns the path to the SQLite database file.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "nautilus.db")
}

// StorageRoot returns the root of the file storage tree (offline
// messages, display pictures).
func (c *Config) StorageRoot() string {
	return filepath.Join(c.DataDir, "storage")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "nautilus")
	}
	return filepath.Join(home, ".config", "nautilus")
}
