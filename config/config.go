package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Local persistence backends.
const (
	LocalStoreMemory = "memory"
	LocalStoreRedis  = "redis"
)

// Config holds the application configuration
type Config struct {
	Port string // Service port

	KratosURL     string        // Kratos public URL (Frontend API - port 4433)
	KratosTimeout time.Duration // Per-call timeout for Kratos requests

	DatabaseURL string // Postgres DSN
	DBMaxConns  int
	DBMinConns  int

	LocalStore    string        // memory or redis
	RedisURL      string        // Required when LocalStore is redis
	LocalStoreTTL time.Duration // Expiry of device entries in redis; 0 keeps them
	ForcePoll     bool          // Watch device entries by polling instead of native notification
	PollInterval  time.Duration

	BootstrapTimeout time.Duration // Fallback timer of an identity resolution pass
	GuardSettleWait  time.Duration // How long a guarded request waits for a settled identity
	IdentityIdleTTL  time.Duration // Idle devices are unmounted after this
	IdentityMaxSize  int           // Upper bound on mounted devices
	SignOutTimeout   time.Duration // Bound on the background provider sign-out

	QueryCacheTTL  time.Duration
	QueryCacheSize int

	DeviceTokenSecret string // HS256 key for the device cookie
	DeviceTokenTTL    time.Duration
	CSRFSecret        string // CSRF secret for token generation
	InternalSecret    string // Shared secret guarding /metrics
	SecureCookies     bool

	RateLimitRPS   float64
	RateLimitBurst int

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioPublicURL string // Base of public object URLs

	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	config := &Config{
		Port:              getEnv("PORT", "8080"),
		KratosURL:         getEnv("KRATOS_URL", "http://kratos:4433"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		LocalStore:        strings.ToLower(getEnv("LOCAL_STORE", LocalStoreMemory)),
		RedisURL:          getEnv("REDIS_URL", ""),
		DeviceTokenSecret: getEnv("DEVICE_TOKEN_SECRET", ""),
		CSRFSecret:        getEnv("CSRF_SECRET", ""),
		InternalSecret:    getEnv("INTERNAL_SECRET", ""),
		MinioEndpoint:     getEnv("MINIO_ENDPOINT", "minio:9000"),
		MinioAccessKey:    getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:    getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:       getEnv("MINIO_BUCKET", "items"),
		MinioPublicURL:    getEnv("MINIO_PUBLIC_URL", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}

	durations := []struct {
		key      string
		fallback time.Duration
		dst      *time.Duration
	}{
		{"KRATOS_TIMEOUT", 5 * time.Second, &config.KratosTimeout},
		{"LOCAL_STORE_TTL", 0, &config.LocalStoreTTL},
		{"POLL_INTERVAL", 2 * time.Second, &config.PollInterval},
		{"IDENTITY_BOOTSTRAP_TIMEOUT", 3 * time.Second, &config.BootstrapTimeout},
		{"GUARD_SETTLE_WAIT", 250 * time.Millisecond, &config.GuardSettleWait},
		{"IDENTITY_IDLE_TTL", 30 * time.Minute, &config.IdentityIdleTTL},
		{"SIGN_OUT_TIMEOUT", 10 * time.Second, &config.SignOutTimeout},
		{"QUERY_CACHE_TTL", 60 * time.Second, &config.QueryCacheTTL},
		{"DEVICE_TOKEN_TTL", 30 * 24 * time.Hour, &config.DeviceTokenTTL},
	}
	for _, d := range durations {
		v, err := durationEnv(d.key, d.fallback)
		if err != nil {
			return nil, err
		}
		*d.dst = v
	}

	ints := []struct {
		key      string
		fallback int
		dst      *int
	}{
		{"DB_MAX_CONNS", 10, &config.DBMaxConns},
		{"DB_MIN_CONNS", 2, &config.DBMinConns},
		{"IDENTITY_MAX_DEVICES", 10000, &config.IdentityMaxSize},
		{"QUERY_CACHE_SIZE", 256, &config.QueryCacheSize},
		{"RATE_LIMIT_BURST", 10, &config.RateLimitBurst},
	}
	for _, i := range ints {
		v, err := intEnv(i.key, i.fallback)
		if err != nil {
			return nil, err
		}
		*i.dst = v
	}

	var err error
	if config.RateLimitRPS, err = floatEnv("RATE_LIMIT_RPS", 5); err != nil {
		return nil, err
	}
	if config.ForcePoll, err = boolEnv("LOCAL_STORE_FORCE_POLL", false); err != nil {
		return nil, err
	}
	if config.MinioUseSSL, err = boolEnv("MINIO_USE_SSL", false); err != nil {
		return nil, err
	}
	if config.SecureCookies, err = boolEnv("SECURE_COOKIES", true); err != nil {
		return nil, err
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.KratosURL == "" {
		return fmt.Errorf("KRATOS_URL cannot be empty")
	}

	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL cannot be empty")
	}

	switch c.LocalStore {
	case LocalStoreMemory:
	case LocalStoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when LOCAL_STORE=redis")
		}
	default:
		return fmt.Errorf("LOCAL_STORE must be %q or %q, got %q", LocalStoreMemory, LocalStoreRedis, c.LocalStore)
	}

	if len(c.DeviceTokenSecret) < 32 {
		return fmt.Errorf("DEVICE_TOKEN_SECRET must be at least 32 bytes")
	}

	if c.CSRFSecret == "" {
		return fmt.Errorf("CSRF_SECRET cannot be empty")
	}

	if c.BootstrapTimeout <= 0 {
		return fmt.Errorf("IDENTITY_BOOTSTRAP_TIMEOUT must be positive")
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}

	if c.QueryCacheTTL <= 0 || c.QueryCacheSize <= 0 {
		return fmt.Errorf("QUERY_CACHE_TTL and QUERY_CACHE_SIZE must be positive")
	}

	if c.IdentityMaxSize <= 0 {
		return fmt.Errorf("IDENTITY_MAX_DEVICES must be positive")
	}

	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}

	return nil
}

// getEnv retrieves an environment variable or returns a fallback value
func getEnv(key, fallback string) string {
	// Check for _FILE suffix
	if fileValue := os.Getenv(key + "_FILE"); fileValue != "" {
		content, err := os.ReadFile(fileValue)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}

	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s format: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s format: %w", key, err)
	}
	return v, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s format: %w", key, err)
	}
	return v, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s format: %w", key, err)
	}
	return v, nil
}
