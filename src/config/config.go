// Package config loads and validates the JSON configuration for the
// content guard: serving transport plus engine limits and custom
// patterns. The engine runs with pure defaults when no file is present.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/Easy-Infra-Ltd/easy-content-guard/src/engine"
)

// Config is the top-level configuration.
type Config struct {
	Server ServerConfig `json:"server"`
	Engine EngineConfig `json:"engine"`
}

// ServerConfig controls how callers reach the engine.
type ServerConfig struct {
	Transport string     `json:"transport"` // "stdio" or "http"
	HTTP      HTTPConfig `json:"http"`
}

// HTTPConfig holds HTTP listener settings.
type HTTPConfig struct {
	Addr string `json:"addr"` // e.g. ":8080"
	Path string `json:"path"` // e.g. "/mcp"
}

// EngineConfig tunes the pipeline's boundaries. Nil fields use the
// engine defaults.
type EngineConfig struct {
	MaxContentSize          *int     `json:"maxContentSize,omitempty"`
	GlobalTimeoutMS         *int     `json:"globalTimeoutMs,omitempty"`
	ScanTimeoutMS           *int     `json:"scanTimeoutMs,omitempty"`
	MaxRecursionDepth       *int     `json:"maxRecursionDepth,omitempty"`
	CustomInjectionPatterns []string `json:"customInjectionPatterns,omitempty"`
}

const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"

	DefaultHTTPAddr = ":8080"
	DefaultHTTPPath = "/mcp"
)

// Load reads and parses a JSON config file, applies defaults, and
// validates. A missing file is not an error: the engine core must run
// with zero configuration, so defaults are returned instead.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Config{}
			applyDefaults(&cfg)
			return cfg, nil
		}
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(cfg); err != nil {
		return Config{}, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Transport == "" {
		cfg.Server.Transport = TransportStdio
	}
	if cfg.Server.HTTP.Addr == "" {
		cfg.Server.HTTP.Addr = DefaultHTTPAddr
	}
	if cfg.Server.HTTP.Path == "" {
		cfg.Server.HTTP.Path = DefaultHTTPPath
	}
}

func validate(cfg Config) error {
	if cfg.Server.Transport != TransportStdio && cfg.Server.Transport != TransportHTTP {
		return fmt.Errorf("server transport must be %q or %q, got %q",
			TransportStdio, TransportHTTP, cfg.Server.Transport)
	}

	if v := cfg.Engine.MaxContentSize; v != nil && *v <= 0 {
		return fmt.Errorf("engine.maxContentSize must be positive, got %d", *v)
	}
	if v := cfg.Engine.GlobalTimeoutMS; v != nil && *v <= 0 {
		return fmt.Errorf("engine.globalTimeoutMs must be positive, got %d", *v)
	}
	if v := cfg.Engine.ScanTimeoutMS; v != nil && *v <= 0 {
		return fmt.Errorf("engine.scanTimeoutMs must be positive, got %d", *v)
	}
	if v := cfg.Engine.MaxRecursionDepth; v != nil && *v <= 0 {
		return fmt.Errorf("engine.maxRecursionDepth must be positive, got %d", *v)
	}

	for i, pattern := range cfg.Engine.CustomInjectionPatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("engine.customInjectionPatterns[%d]: invalid regex %q: %w", i, pattern, err)
		}
	}

	return nil
}

// EngineSettings converts the JSON-facing tunables into engine.Config.
// Nil fields map to zero values, which the engine replaces with its
// defaults.
func (e EngineConfig) EngineSettings() engine.Config {
	cfg := engine.Config{}
	if e.MaxContentSize != nil {
		cfg.MaxContentSize = *e.MaxContentSize
	}
	if e.GlobalTimeoutMS != nil {
		cfg.GlobalTimeout = time.Duration(*e.GlobalTimeoutMS) * time.Millisecond
	}
	if e.ScanTimeoutMS != nil {
		cfg.ScanTimeout = time.Duration(*e.ScanTimeoutMS) * time.Millisecond
	}
	if e.MaxRecursionDepth != nil {
		cfg.MaxRecursionDepth = *e.MaxRecursionDepth
	}
	return cfg
}
