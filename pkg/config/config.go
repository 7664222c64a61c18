// Package config loads application configuration from an optional YAML file
// with environment variable overrides. Environment always wins, so deploys
// can share one file and differ per instance.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/inkwell-cms/inkwell/pkg/observability"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Cache backends.
const (
	CacheLRU   = "lru"
	CacheRedis = "redis"
)

// Config holds all application configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Cache  CacheConfig  `yaml:"cache"`
	Auth   AuthConfig   `yaml:"auth"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	HealthPort      string        `yaml:"health_port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StoreConfig selects and configures the document store backend.
type StoreConfig struct {
	Backend         string `yaml:"backend"`
	FileDir         string `yaml:"file_dir"`
	CompactSchedule string `yaml:"compact_schedule"`
	SQLitePath      string `yaml:"sqlite_path"`
	PostgresURL     string `yaml:"postgres_url"`
}

// CacheConfig selects and configures the result cache backend.
type CacheConfig struct {
	Backend       string        `yaml:"backend"`
	LRUSize       int           `yaml:"lru_size"`
	TTL           time.Duration `yaml:"ttl"`
	RedisURL      string        `yaml:"redis_url"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
}

// AuthConfig configures the authentication middleware.
type AuthConfig struct {
	// Optional lets unauthenticated requests through as anonymous callers;
	// admin-guarded operations still reject them.
	Optional bool `yaml:"optional"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			HealthPort:      "9090",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Store: StoreConfig{
			Backend:         StoreMemory,
			FileDir:         "data",
			CompactSchedule: "@hourly",
			SQLitePath:      "inkwell.db",
		},
		Cache: CacheConfig{
			Backend: CacheLRU,
			LRUSize: 512,
			TTL:     15 * time.Minute,
			RedisDB: 0,
		},
		Auth: AuthConfig{Optional: true},
		Log:  LogConfig{Level: "info"},
	}
}

// Load builds the configuration: defaults, then the YAML file when path is
// non-empty, then environment overrides, then validation.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnv("INKWELL_HOST", c.Server.Host)
	c.Server.Port = getEnv("INKWELL_PORT", c.Server.Port)
	c.Server.HealthPort = getEnv("INKWELL_HEALTH_PORT", c.Server.HealthPort)
	c.Server.ReadTimeout = getEnvDuration("INKWELL_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration("INKWELL_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvDuration("INKWELL_IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.ShutdownTimeout = getEnvDuration("INKWELL_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Store.Backend = getEnv("INKWELL_STORE_BACKEND", c.Store.Backend)
	c.Store.FileDir = getEnv("INKWELL_FILE_DIR", c.Store.FileDir)
	c.Store.CompactSchedule = getEnv("INKWELL_COMPACT_SCHEDULE", c.Store.CompactSchedule)
	c.Store.SQLitePath = getEnv("INKWELL_SQLITE_PATH", c.Store.SQLitePath)
	c.Store.PostgresURL = getEnv("INKWELL_POSTGRES_URL", c.Store.PostgresURL)

	c.Cache.Backend = getEnv("INKWELL_CACHE_BACKEND", c.Cache.Backend)
	c.Cache.LRUSize = getEnvInt("INKWELL_CACHE_LRU_SIZE", c.Cache.LRUSize)
	c.Cache.TTL = getEnvDuration("INKWELL_CACHE_TTL", c.Cache.TTL)
	c.Cache.RedisURL = getEnv("INKWELL_REDIS_URL", c.Cache.RedisURL)
	c.Cache.RedisPassword = getEnv("INKWELL_REDIS_PASSWORD", c.Cache.RedisPassword)
	c.Cache.RedisDB = getEnvInt("INKWELL_REDIS_DB", c.Cache.RedisDB)

	c.Auth.Optional = getEnvBool("INKWELL_AUTH_OPTIONAL", c.Auth.Optional)
	c.Log.Level = getEnv("INKWELL_LOG_LEVEL", c.Log.Level)
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	switch c.Store.Backend {
	case StoreMemory:
	case StoreFile:
		if c.Store.FileDir == "" {
			return fmt.Errorf("file_dir is required for the file store")
		}
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("sqlite_path is required for the sqlite store")
		}
	case StorePostgres:
		if c.Store.PostgresURL == "" {
			return fmt.Errorf("postgres_url is required for the postgres store")
		}
	default:
		return fmt.Errorf("invalid store backend: %s (must be memory, file, sqlite, or postgres)", c.Store.Backend)
	}

	switch c.Cache.Backend {
	case CacheLRU:
	case CacheRedis:
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("redis_url is required for the redis cache")
		}
	default:
		return fmt.Errorf("invalid cache backend: %s (must be lru or redis)", c.Cache.Backend)
	}
	return nil
}

// LogLevel returns the configured level as a logrus level.
func (c *Config) LogLevel() logrus.Level {
	return observability.ParseLevel(c.Log.Level)
}

// getEnv returns an environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
