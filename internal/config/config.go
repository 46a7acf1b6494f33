package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dyluth/warren/internal/instance"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = "warren.yml"

// WarrenConfig represents the top-level warren.yml configuration
type WarrenConfig struct {
	Version  string        `yaml:"version" env:"WARREN_CONFIG_VERSION"`
	Instance string        `yaml:"instance" env:"WARREN_INSTANCE"` // Namespace for all Redis keys
	Store    StoreConfig   `yaml:"store"`
	API      APIConfig     `yaml:"api"`
	Gateway  GatewayConfig `yaml:"gateway"`
	Graph    GraphConfig   `yaml:"graph"`
	Log      LogConfig     `yaml:"log"`
}

// StoreConfig selects and locates the world store
type StoreConfig struct {
	Driver     string `yaml:"driver" env:"WARREN_STORE_DRIVER"` // "redis" or "sqlite"
	RedisURL   string `yaml:"redis_url,omitempty" env:"WARREN_REDIS_URL"`
	SQLitePath string `yaml:"sqlite_path,omitempty" env:"WARREN_SQLITE_PATH"`
}

// APIConfig configures the primary editor API server
type APIConfig struct {
	Listen   string `yaml:"listen" env:"WARREN_API_LISTEN"`
	BasePath string `yaml:"base_path" env:"WARREN_API_BASE_PATH"`
}

// GatewayConfig configures the proxy in front of the editor API
type GatewayConfig struct {
	Listen string `yaml:"listen" env:"WARREN_GATEWAY_LISTEN"`

	// Upstream is the base URL of the editor API, including its base path.
	Upstream string `yaml:"upstream" env:"WARREN_GATEWAY_UPSTREAM"`

	// Timeout bounds each forwarded call; 0 means no timeout.
	Timeout      time.Duration `yaml:"timeout,omitempty" env:"WARREN_GATEWAY_TIMEOUT"`
	AllowOrigins []string      `yaml:"allow_origins,omitempty" env:"WARREN_GATEWAY_ALLOW_ORIGINS" envSeparator:","`
}

// GraphConfig sets traversal defaults
type GraphConfig struct {
	DefaultDepth *int   `yaml:"default_depth,omitempty" env:"WARREN_GRAPH_DEFAULT_DEPTH"`
	Mode         string `yaml:"mode,omitempty" env:"WARREN_GRAPH_MODE"` // "local" or "global"
}

// LogConfig configures structured logging
type LogConfig struct {
	Level  string `yaml:"level,omitempty" env:"WARREN_LOG_LEVEL"`
	Format string `yaml:"format,omitempty" env:"WARREN_LOG_FORMAT"` // "json" or "text"
}

// Default returns the configuration used when no file is present.
func Default() *WarrenConfig {
	return &WarrenConfig{
		Version:  "1.0",
		Instance: "default",
		Store: StoreConfig{
			Driver:   "redis",
			RedisURL: "redis://localhost:6379/0",
		},
		API: APIConfig{
			Listen:   ":8080",
			BasePath: "/editor-api",
		},
		Gateway: GatewayConfig{
			Listen:       ":8000",
			Upstream:     "http://localhost:8080/editor-api",
			AllowOrigins: []string{"*"},
		},
		Graph: GraphConfig{Mode: "local"},
		Log:   LogConfig{Level: "info", Format: "json"},
	}
}

// Validate performs strict validation on the configuration and fills in
// defaults for optional fields
func (c *WarrenConfig) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if strings.TrimSpace(c.Instance) == "" {
		return fmt.Errorf("instance is required")
	}
	if err := instance.ValidateName(c.Instance); err != nil {
		return err
	}

	switch c.Store.Driver {
	case "redis":
		if c.Store.RedisURL == "" {
			return fmt.Errorf("store.redis_url is required for the redis driver")
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("invalid store.driver: %s (must be 'redis' or 'sqlite')", c.Store.Driver)
	}

	if c.API.BasePath != "" && !strings.HasPrefix(c.API.BasePath, "/") {
		return fmt.Errorf("api.base_path must start with '/', got %q", c.API.BasePath)
	}
	c.API.BasePath = strings.TrimSuffix(c.API.BasePath, "/")

	if c.Gateway.Upstream != "" {
		u, err := url.Parse(c.Gateway.Upstream)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("gateway.upstream must be an absolute URL, got %q", c.Gateway.Upstream)
		}
	}
	if c.Gateway.Timeout < 0 {
		return fmt.Errorf("gateway.timeout must be >= 0, got %s", c.Gateway.Timeout)
	}

	// Apply default traversal depth if missing
	if c.Graph.DefaultDepth == nil {
		defaultDepth := 1
		c.Graph.DefaultDepth = &defaultDepth
	}
	if *c.Graph.DefaultDepth < 0 {
		return fmt.Errorf("graph.default_depth must be >= 0, got %d", *c.Graph.DefaultDepth)
	}
	if c.Graph.Mode == "" {
		c.Graph.Mode = "local"
	}
	if c.Graph.Mode != "local" && c.Graph.Mode != "global" {
		return fmt.Errorf("invalid graph.mode: %s (must be 'local' or 'global')", c.Graph.Mode)
	}

	if c.Log.Format != "" && c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("invalid log.format: %s (must be 'json' or 'text')", c.Log.Format)
	}

	return nil
}

// Load reads warren.yml from the specified path, applies WARREN_* environment
// overrides and validates the result. Fields absent from the file keep their
// defaults.
func Load(path string) (*WarrenConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return finish(config)
}

// LoadOrDefault is Load, except that a missing file at path yields the
// defaults (plus environment overrides) unless explicit is set.
func LoadOrDefault(path string, explicit bool) (*WarrenConfig, error) {
	config, err := Load(path)
	if err == nil {
		return config, nil
	}
	if explicit || !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return finish(Default())
}

func finish(config *WarrenConfig) (*WarrenConfig, error) {
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}
