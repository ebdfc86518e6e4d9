// Package config loads server and CLI settings from defaults, an optional config
// file and SITEBUILDER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the environment variable prefix: SITEBUILDER_SERVER_ADDR sets
// server.addr, SITEBUILDER_AUTH_JWT_SECRET sets auth.jwt_secret.
const EnvPrefix = "SITEBUILDER"

type Config struct {
	Server         Server        `mapstructure:"server"`
	Log            Log           `mapstructure:"log"`
	Storage        Storage       `mapstructure:"storage"`
	Auth           Auth          `mapstructure:"auth"`
	Publish        Publish       `mapstructure:"publish"`
	Redis          Redis         `mapstructure:"redis"`
	Minio          Minio         `mapstructure:"minio"`
	Assistant      Assistant     `mapstructure:"assistant"`
	PersistTimeout time.Duration `mapstructure:"persist_timeout"`
	HistoryLimit   int           `mapstructure:"history_limit"`
}

type Server struct {
	Addr string `mapstructure:"addr"`
}

type Log struct {
	Level  string `mapstructure:"level"`  // debug|info|warn|error
	Format string `mapstructure:"format"` // text|json
}

type Storage struct {
	Driver string `mapstructure:"driver"` // memory|json|sqlite|postgres
	Path   string `mapstructure:"path"`   // Directory (json) or database file (sqlite)
	DSN    string `mapstructure:"dsn"`    // postgres only
}

type Auth struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type Publish struct {
	BaseURL string `mapstructure:"base_url"`
}

type Redis struct {
	Addr    string `mapstructure:"addr"` // Empty disables the Redis change bus
	Channel string `mapstructure:"channel"`
}

type Minio struct {
	Endpoint  string `mapstructure:"endpoint"` // Empty keeps objects in memory
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	PublicURL string `mapstructure:"public_url"`
}

type Assistant struct {
	Endpoint      string        `mapstructure:"endpoint"` // Empty disables AI generation
	APIKey        string        `mapstructure:"api_key"`
	RatePerMinute int           `mapstructure:"rate_per_minute"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

var defaults = map[string]any{
	"server.addr":               ":8080",
	"log.level":                 "info",
	"log.format":                "text",
	"storage.driver":            "json",
	"storage.path":              "data",
	"storage.dsn":               "",
	"auth.jwt_secret":           "",
	"auth.token_ttl":            "24h",
	"publish.base_url":          "https://sites.example.com",
	"persist_timeout":           "10s",
	"history_limit":             100,
	"redis.addr":                "",
	"redis.channel":             "site-builder:changes",
	"minio.endpoint":            "",
	"minio.access_key":          "",
	"minio.secret_key":          "",
	"minio.use_ssl":             false,
	"minio.public_url":          "",
	"assistant.endpoint":        "",
	"assistant.api_key":         "",
	"assistant.rate_per_minute": 10,
	"assistant.timeout":         "30s",
}

// ErrInvalid wraps configuration validation failures.
var ErrInvalid = errors.New("invalid configuration")

// Load reads configuration. configFile may be empty; a missing explicit file is
// an error, a missing default file is not.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("sitebuilder")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	// Defaults make every key known, so AutomaticEnv also applies on Unmarshal.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "json", "sqlite":
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("%w: storage.dsn is required for postgres", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown storage.driver %q", ErrInvalid, c.Storage.Driver)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log.format %q", ErrInvalid, c.Log.Format)
	}
	if c.PersistTimeout <= 0 {
		return fmt.Errorf("%w: persist_timeout must be positive", ErrInvalid)
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("%w: history_limit cannot be negative", ErrInvalid)
	}
	if c.Assistant.RatePerMinute < 0 {
		return fmt.Errorf("%w: assistant.rate_per_minute cannot be negative", ErrInvalid)
	}
	return nil
}
