package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tapecert/tapecert/pkg/observability"
	"github.com/tapecert/tapecert/pkg/store"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Auth configuration
	Auth AuthConfig

	// Store configuration
	Store store.Config

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string

	// CORS allowed origins; "*" allows all
	CORSOrigins []string
}

// AuthConfig holds token and bootstrap settings.
type AuthConfig struct {
	// JWTSecret signs access tokens. Required.
	JWTSecret string
	// TokenTTL bounds access token lifetime.
	TokenTTL time.Duration

	// Bootstrap admin, created at startup when no admin exists.
	BootstrapAdminUsername string
	BootstrapAdminPassword string
	BootstrapAdminCompany  string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Auth:          loadAuthConfig(),
		Store:         loadStoreConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("TAPECERT_HOST", "0.0.0.0"),
		Port:            getEnv("TAPECERT_PORT", "8080"),
		ReadTimeout:     getEnvDuration("TAPECERT_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("TAPECERT_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("TAPECERT_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("TAPECERT_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("TAPECERT_HEALTH_PORT", "9090"),
		CORSOrigins:     splitTrim(getEnv("TAPECERT_CORS_ORIGINS", "*")),
	}
}

// loadAuthConfig loads token settings from environment
func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret:              getEnv("TAPECERT_JWT_SECRET", ""),
		TokenTTL:               getEnvDuration("TAPECERT_TOKEN_TTL", 30*time.Minute),
		BootstrapAdminUsername: getEnv("TAPECERT_BOOTSTRAP_ADMIN_USERNAME", "admin"),
		BootstrapAdminPassword: getEnv("TAPECERT_BOOTSTRAP_ADMIN_PASSWORD", "admin123"),
		BootstrapAdminCompany:  getEnv("TAPECERT_BOOTSTRAP_ADMIN_COMPANY", "System Admin"),
	}
}

// loadStoreConfig loads persistence configuration from environment
func loadStoreConfig() store.Config {
	cfg := store.DefaultConfig()

	// PostgreSQL config
	if pgURL := getEnv("TAPECERT_POSTGRES_URL", ""); pgURL != "" {
		cfg.PostgresURL = pgURL
	}
	if maxConns := getEnvInt("TAPECERT_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.PostgresMaxConns = maxConns
	}
	if minConns := getEnvInt("TAPECERT_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		cfg.PostgresMinConns = minConns
	}
	if timeout := getEnvDuration("TAPECERT_POSTGRES_TIMEOUT", 0); timeout > 0 {
		cfg.PostgresTimeout = timeout
	}

	// Redis config
	if redisURL := getEnv("TAPECERT_REDIS_URL", ""); redisURL != "" {
		cfg.RedisURL = redisURL
	}
	if redisPassword := getEnv("TAPECERT_REDIS_PASSWORD", ""); redisPassword != "" {
		cfg.RedisPassword = redisPassword
	}
	if redisDB := getEnvInt("TAPECERT_REDIS_DB", -1); redisDB >= 0 {
		cfg.RedisDB = redisDB
	}
	if redisPoolSize := getEnvInt("TAPECERT_REDIS_POOL_SIZE", 0); redisPoolSize > 0 {
		cfg.RedisPoolSize = redisPoolSize
	}
	cfg.CacheEnabled = getEnvBool("TAPECERT_CACHE_ENABLED", cfg.RedisURL != "")
	if ttl := getEnvDuration("TAPECERT_CACHE_TTL", 0); ttl > 0 {
		cfg.CacheTTL = ttl
	}

	// S3 config
	cfg.S3Enabled = getEnvBool("TAPECERT_S3_ENABLED", false)
	if s3Endpoint := getEnv("TAPECERT_S3_ENDPOINT", ""); s3Endpoint != "" {
		cfg.S3Endpoint = s3Endpoint
	}
	if s3Region := getEnv("TAPECERT_S3_REGION", ""); s3Region != "" {
		cfg.S3Region = s3Region
	}
	if s3Bucket := getEnv("TAPECERT_S3_BUCKET", ""); s3Bucket != "" {
		cfg.S3Bucket = s3Bucket
	}
	if s3AccessKey := getEnv("TAPECERT_S3_ACCESS_KEY", ""); s3AccessKey != "" {
		cfg.S3AccessKey = s3AccessKey
	}
	if s3SecretKey := getEnv("TAPECERT_S3_SECRET_KEY", ""); s3SecretKey != "" {
		cfg.S3SecretKey = s3SecretKey
	}
	cfg.S3UsePathStyle = getEnvBool("TAPECERT_S3_USE_PATH_STYLE", cfg.S3UsePathStyle)

	return cfg
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       observability.ParseLogLevel(strings.ToLower(getEnv("TAPECERT_LOG_LEVEL", "info"))),
		MetricsEnabled: getEnvBool("TAPECERT_METRICS_ENABLED", true),
	}
}

// Validate checks if the configuration is valid
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

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required (TAPECERT_JWT_SECRET)")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}
	if c.Auth.BootstrapAdminUsername == "" || c.Auth.BootstrapAdminPassword == "" {
		return fmt.Errorf("bootstrap admin credentials are required")
	}

	if c.Store.PostgresURL == "" {
		return fmt.Errorf("postgres URL is required (TAPECERT_POSTGRES_URL)")
	}
	if c.Store.CacheEnabled && c.Store.RedisURL == "" {
		return fmt.Errorf("redis URL is required when the cache is enabled")
	}
	if c.Store.S3Enabled && c.Store.S3Bucket == "" {
		return fmt.Errorf("S3 bucket is required when S3 offload is enabled")
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

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// splitTrim splits a comma-separated list and trims whitespace
func splitTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
