package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/agora/pkg/maintenance"
	"github.com/platinummonkey/agora/pkg/observability"
	"github.com/platinummonkey/agora/pkg/storage"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server"`

	// Storage configuration
	Storage storage.Config `yaml:"storage"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`

	// Vote casting configuration
	Votes VotesConfig `yaml:"votes"`

	// Background housekeeping
	Maintenance MaintenanceConfig `yaml:"maintenance"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
}

// Addr is the listen address
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel string `yaml:"log_level"`

	// Metrics
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// OpenTelemetry
	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"` // Use insecure gRPC connection
}

// Level is the parsed log level
func (o ObservabilityConfig) Level() observability.LogLevel {
	return observability.ParseLogLevel(o.LogLevel)
}

// OTel converts the settings for observability.InitOTel
func (o ObservabilityConfig) OTel() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        o.OTelEnabled,
		Endpoint:       o.OTelEndpoint,
		ServiceName:    o.OTelServiceName,
		ServiceVersion: o.OTelServiceVersion,
		Insecure:       o.OTelInsecure,
	}
}

// VotesConfig limits vote casting per user (or per client IP when anonymous).
// A zero RateLimitRequests disables limiting.
type VotesConfig struct {
	RateLimitRequests int           `yaml:"rate_limit_requests"`
	RateLimitWindow   time.Duration `yaml:"rate_limit_window"`
}

// MaintenanceConfig controls the background sweeper
type MaintenanceConfig struct {
	Enabled   bool                  `yaml:"enabled"`
	Schedules maintenance.Schedules `yaml:"schedules"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Storage: storage.DefaultConfig(),
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "agora",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
		},
		Votes: VotesConfig{
			RateLimitRequests: 60,
			RateLimitWindow:   time.Minute,
		},
		Maintenance: MaintenanceConfig{
			Enabled:   true,
			Schedules: maintenance.DefaultSchedules(),
		},
	}
}

// LoadConfig builds the configuration in three layers: defaults, then the
// YAML file named by AGORA_CONFIG_FILE, then AGORA_* environment variables.
// A .env file (or AGORA_ENV_FILE) is loaded first if present; it never
// overrides variables already set in the process environment.
func LoadConfig() (*Config, error) {
	envFile := getEnv("AGORA_ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg := Default()

	if path := os.Getenv("AGORA_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadFile overlays the YAML file at path. Keys absent from the file keep
// their current values.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	s := &c.Server
	s.Host = getEnv("AGORA_HOST", s.Host)
	s.Port = getEnv("AGORA_PORT", s.Port)
	s.ReadTimeout = getEnvDuration("AGORA_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getEnvDuration("AGORA_WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = getEnvDuration("AGORA_IDLE_TIMEOUT", s.IdleTimeout)
	s.ShutdownTimeout = getEnvDuration("AGORA_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.MaxBodyBytes = getEnvInt64("AGORA_MAX_BODY_BYTES", s.MaxBodyBytes)

	st := &c.Storage
	st.Type = getEnv("AGORA_STORAGE_TYPE", st.Type)
	st.PostgresURL = getEnv("AGORA_POSTGRES_URL", st.PostgresURL)
	st.PostgresMaxConns = getEnvInt("AGORA_POSTGRES_MAX_CONNS", st.PostgresMaxConns)
	st.PostgresMinConns = getEnvInt("AGORA_POSTGRES_MIN_CONNS", st.PostgresMinConns)
	st.PostgresTimeout = getEnvDuration("AGORA_POSTGRES_TIMEOUT", st.PostgresTimeout)
	st.SQLitePath = getEnv("AGORA_SQLITE_PATH", st.SQLitePath)
	st.RedisURL = getEnv("AGORA_REDIS_URL", st.RedisURL)
	st.RedisPassword = getEnv("AGORA_REDIS_PASSWORD", st.RedisPassword)
	st.RedisDB = getEnvInt("AGORA_REDIS_DB", st.RedisDB)
	st.RedisMaxRetries = getEnvInt("AGORA_REDIS_MAX_RETRIES", st.RedisMaxRetries)
	st.RedisPoolSize = getEnvInt("AGORA_REDIS_POOL_SIZE", st.RedisPoolSize)
	st.CacheEnabled = getEnvBool("AGORA_CACHE_ENABLED", st.CacheEnabled)
	st.CacheTTL = getEnvDuration("AGORA_CACHE_TTL", st.CacheTTL)
	st.L1CacheEntries = getEnvInt("AGORA_L1_CACHE_ENTRIES", st.L1CacheEntries)

	o := &c.Observability
	o.LogLevel = getEnv("AGORA_LOG_LEVEL", o.LogLevel)
	o.MetricsEnabled = getEnvBool("AGORA_METRICS_ENABLED", o.MetricsEnabled)
	o.OTelEnabled = getEnvBool("AGORA_OTEL_ENABLED", o.OTelEnabled)
	o.OTelEndpoint = getEnv("AGORA_OTEL_ENDPOINT", o.OTelEndpoint)
	o.OTelServiceName = getEnv("AGORA_OTEL_SERVICE_NAME", o.OTelServiceName)
	o.OTelServiceVersion = getEnv("AGORA_OTEL_SERVICE_VERSION", o.OTelServiceVersion)
	o.OTelInsecure = getEnvBool("AGORA_OTEL_INSECURE", o.OTelInsecure)

	v := &c.Votes
	v.RateLimitRequests = getEnvInt("AGORA_VOTE_RATE_LIMIT", v.RateLimitRequests)
	v.RateLimitWindow = getEnvDuration("AGORA_VOTE_RATE_WINDOW", v.RateLimitWindow)

	m := &c.Maintenance
	m.Enabled = getEnvBool("AGORA_MAINTENANCE_ENABLED", m.Enabled)
	m.Schedules.LegacyVotes = getEnv("AGORA_LEGACY_VOTE_SCHEDULE", m.Schedules.LegacyVotes)
	m.Schedules.ExpiredTokens = getEnv("AGORA_TOKEN_PURGE_SCHEDULE", m.Schedules.ExpiredTokens)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("server port must be numeric: %q", c.Server.Port)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body bytes must be positive")
	}

	switch c.Storage.Type {
	case "postgres":
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for postgres storage")
		}
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for sqlite storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be postgres or sqlite)", c.Storage.Type)
	}

	if c.Storage.CacheEnabled && c.Storage.L1CacheEntries <= 0 {
		return fmt.Errorf("l1 cache entries must be positive when the region cache is enabled")
	}

	switch strings.ToLower(c.Observability.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Observability.LogLevel)
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	if c.Votes.RateLimitRequests < 0 {
		return fmt.Errorf("vote rate limit must not be negative")
	}
	if c.Votes.RateLimitRequests > 0 && c.Votes.RateLimitWindow <= 0 {
		return fmt.Errorf("vote rate window must be positive when limiting is enabled")
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
