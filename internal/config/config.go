// Package config loads the facet.yml configuration with viper, layering
// environment variables over the file and the file over built-in defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the Facet configuration
type Config struct {
	Schema   string         `mapstructure:"schema"`
	LogLevel string         `mapstructure:"log_level"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	API      APIConfig      `mapstructure:"api"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	Compression     []string      `mapstructure:"compression"`
}

// Address returns the listen address in host:port form
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig represents storage configuration. Driver is one of
// "memory", "sqlite" or "postgres"; URL is ignored for memory.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	URL    string `mapstructure:"url"`
}

// CacheConfig represents response cache configuration. Backend is one of
// "memory" or "redis".
type CacheConfig struct {
	Backend       string        `mapstructure:"backend"`
	TTL           time.Duration `mapstructure:"ttl"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
}

// APIConfig represents representation settings
type APIConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	MaxDepth     int    `mapstructure:"max_depth"`
	DefaultLimit int    `mapstructure:"default_limit"`
	MaxLimit     int    `mapstructure:"max_limit"`
	Links        bool   `mapstructure:"links"`
}

// Load loads the configuration from facet.yml or facet.yaml
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom loads the configuration from an explicit file path; an empty
// path searches the working directory for facet.yml.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("schema", "facet.schema.yml")
	v.SetDefault("log_level", "info")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.compression", []string{"br", "gzip"})
	v.SetDefault("database.driver", "memory")
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", time.Minute)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("api.base_url", "/api/v1")
	v.SetDefault("api.max_depth", 3)
	v.SetDefault("api.default_limit", 10)
	v.SetDefault("api.max_limit", 100)
	v.SetDefault("api.links", true)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("facet")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// FACET_SERVER_PORT=9090 overrides server.port
	v.SetEnvPrefix("FACET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	switch cfg.Database.Driver {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be memory, sqlite or postgres, got: %s", cfg.Database.Driver)
	}
	if cfg.Database.Driver != "memory" && cfg.Database.URL == "" {
		return fmt.Errorf("database.url is required for driver %s", cfg.Database.Driver)
	}

	switch cfg.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("cache.backend must be memory or redis, got: %s", cfg.Cache.Backend)
	}

	if cfg.API.BaseURL != "" {
		if !strings.HasPrefix(cfg.API.BaseURL, "/") {
			return fmt.Errorf("api.base_url must start with '/', got: %s", cfg.API.BaseURL)
		}
		if strings.HasSuffix(cfg.API.BaseURL, "/") {
			return fmt.Errorf("api.base_url must not end with '/', got: %s", cfg.API.BaseURL)
		}
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got: %d", cfg.Server.Port)
	}

	for _, alg := range cfg.Server.Compression {
		switch alg {
		case "br", "gzip", "identity":
		default:
			return fmt.Errorf("server.compression must list br, gzip or identity, got: %s", alg)
		}
	}
	return nil
}
