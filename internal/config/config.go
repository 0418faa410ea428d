package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// AppConfig is the dashboard server configuration.
type AppConfig struct {
	Server   ServerConfig   `toml:"server"`
	Upstream UpstreamConfig `toml:"upstream"`
	Cache    CacheConfig    `toml:"cache"`
	Log      LogConfig      `toml:"log"`
	Warmup   WarmupConfig   `toml:"warmup"`
}

type ServerConfig struct {
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
	SessionTTL     Duration `toml:"session_ttl"`
}

// UpstreamConfig selects where period data comes from: the estimation API
// ("http") or a directory of <period>.csv files ("file").
type UpstreamConfig struct {
	Kind          string   `toml:"kind"`
	BaseURL       string   `toml:"base_url"`
	DataDir       string   `toml:"data_dir"`
	Timeout       Duration `toml:"timeout"`
	RatePerSecond float64  `toml:"rate_per_second"`
	Burst         int      `toml:"burst"`
}

type CacheConfig struct {
	Kind     string   `toml:"kind"` // memory, redis or none
	TTL      Duration `toml:"ttl"`
	RedisURL string   `toml:"redis_url"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type WarmupConfig struct {
	Enabled    bool `toml:"enabled"`
	MaxPeriods int  `toml:"max_periods"`
	Parallel   int  `toml:"parallel"`
}

// Duration reads TOML strings such as "90s" or "5m".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:3000"},
			SessionTTL:     Duration{30 * time.Minute},
		},
		Upstream: UpstreamConfig{
			Kind:          "http",
			BaseURL:       "http://localhost:8081/api/results",
			DataDir:       "data",
			Timeout:       Duration{30 * time.Second},
			RatePerSecond: 10,
			Burst:         5,
		},
		Cache: CacheConfig{
			Kind:     "memory",
			TTL:      Duration{5 * time.Minute},
			RedisURL: "redis://localhost:6379/0",
		},
		Log: LogConfig{Level: "info"},
		Warmup: WarmupConfig{
			Enabled:    true,
			MaxPeriods: 4,
			Parallel:   2,
		},
	}
}

// Load reads path (missing file means defaults), then .env, then the
// PHARMADASH_* environment overrides.
func Load(path string) (*AppConfig, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		}
	}

	_ = godotenv.Load()
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *AppConfig) error {
	if v := os.Getenv("PHARMADASH_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PHARMADASH_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("PHARMADASH_UPSTREAM_URL"); v != "" {
		cfg.Upstream.Kind = "http"
		cfg.Upstream.BaseURL = v
	}
	if v := os.Getenv("PHARMADASH_DATA_DIR"); v != "" {
		cfg.Upstream.Kind = "file"
		cfg.Upstream.DataDir = v
	}
	if v := os.Getenv("PHARMADASH_REDIS_URL"); v != "" {
		cfg.Cache.Kind = "redis"
		cfg.Cache.RedisURL = v
	}
	if v := os.Getenv("PHARMADASH_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return nil
}

func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.SessionTTL.Duration <= 0 {
		return fmt.Errorf("server.session_ttl %v must be positive", c.Server.SessionTTL.Duration)
	}
	if c.Warmup.MaxPeriods < 0 {
		return fmt.Errorf("warmup.max_periods %d must not be negative", c.Warmup.MaxPeriods)
	}
	switch c.Upstream.Kind {
	case "http":
		if c.Upstream.BaseURL == "" {
			return errors.New("upstream.base_url is required for kind http")
		}
	case "file":
		if c.Upstream.DataDir == "" {
			return errors.New("upstream.data_dir is required for kind file")
		}
	default:
		return fmt.Errorf("upstream.kind %q: want http or file", c.Upstream.Kind)
	}
	switch c.Cache.Kind {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("cache.kind %q: want memory, redis or none", c.Cache.Kind)
	}
	return nil
}

func (c *AppConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
