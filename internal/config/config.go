// Package config loads service settings from the environment and an optional .env file
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Rate cache backends
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Config holds application configuration.
type Config struct {
	Port     string
	DataDir  string
	LogLevel string

	// Exchange rate provider
	ExchangeAPIBaseURL string
	ExchangeAPIKey     string
	ExchangeAPITimeout time.Duration

	// Bulk conversion
	BulkWorkers    int
	MaxUploadBytes int64

	// Rate cache
	RateCacheBackend string
	RateCacheTTL     time.Duration
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
}

// Load reads configuration from environment variables and .env files if present.
// Real environment variables win over .env values.
func Load(envFiles ...string) (*Config, error) {
	// Missing .env files are fine
	_ = godotenv.Load(envFiles...)

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	exchangeTimeout, err := parseDuration(v, "EXCHANGE_API_TIMEOUT")
	if err != nil {
		return nil, err
	}

	cacheTTL, err := parseDuration(v, "RATE_CACHE_TTL")
	if err != nil {
		return nil, err
	}

	bulkWorkers, err := parseInt(v, "BULK_WORKERS")
	if err != nil {
		return nil, err
	}

	maxUpload, err := parseInt(v, "MAX_UPLOAD_BYTES")
	if err != nil {
		return nil, err
	}

	redisDB, err := parseInt(v, "REDIS_DB")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:               strings.TrimSpace(v.GetString("PORT")),
		DataDir:            strings.TrimSpace(v.GetString("DATA_DIR")),
		LogLevel:           strings.TrimSpace(v.GetString("LOG_LEVEL")),
		ExchangeAPIBaseURL: strings.TrimSpace(v.GetString("EXCHANGE_API_BASE_URL")),
		ExchangeAPIKey:     strings.TrimSpace(v.GetString("EXCHANGE_API_KEY")),
		ExchangeAPITimeout: exchangeTimeout,
		BulkWorkers:        bulkWorkers,
		MaxUploadBytes:     int64(maxUpload),
		RateCacheBackend:   strings.ToLower(strings.TrimSpace(v.GetString("RATE_CACHE_BACKEND"))),
		RateCacheTTL:       cacheTTL,
		RedisAddr:          strings.TrimSpace(v.GetString("REDIS_ADDR")),
		RedisPassword:      v.GetString("REDIS_PASSWORD"),
		RedisDB:            redisDB,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("DATA_DIR", "./data")
	v.SetDefault("LOG_LEVEL", "INFO")
	v.SetDefault("EXCHANGE_API_BASE_URL", "https://v6.exchangerate-api.com/v6")
	v.SetDefault("EXCHANGE_API_KEY", "")
	v.SetDefault("EXCHANGE_API_TIMEOUT", "10s")
	v.SetDefault("BULK_WORKERS", "8")
	v.SetDefault("MAX_UPLOAD_BYTES", strconv.Itoa(10<<20))
	v.SetDefault("RATE_CACHE_BACKEND", CacheBackendMemory)
	v.SetDefault("RATE_CACHE_TTL", "0s")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", "0")
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	var errs []error

	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be a number between 1 and 65535, got %q", c.Port))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("DATA_DIR must not be empty"))
	}
	if c.ExchangeAPIBaseURL == "" {
		errs = append(errs, errors.New("EXCHANGE_API_BASE_URL must not be empty"))
	}
	if c.ExchangeAPITimeout <= 0 {
		errs = append(errs, errors.New("EXCHANGE_API_TIMEOUT must be positive"))
	}
	if c.BulkWorkers < 1 {
		errs = append(errs, errors.New("BULK_WORKERS must be at least 1"))
	}
	if c.MaxUploadBytes < 1 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	if c.RateCacheTTL < 0 {
		errs = append(errs, errors.New("RATE_CACHE_TTL must not be negative"))
	}

	switch c.RateCacheBackend {
	case CacheBackendMemory:
	case CacheBackendRedis:
		if _, _, err := net.SplitHostPort(c.RedisAddr); err != nil {
			errs = append(errs, fmt.Errorf("REDIS_ADDR must be host:port when RATE_CACHE_BACKEND=redis: %w", err))
		}
		if c.RedisDB < 0 {
			errs = append(errs, errors.New("REDIS_DB must not be negative"))
		}
	default:
		errs = append(errs, fmt.Errorf("RATE_CACHE_BACKEND must be %q or %q, got %q", CacheBackendMemory, CacheBackendRedis, c.RateCacheBackend))
	}

	return errors.Join(errs...)
}

// Addr returns the listen address for the HTTP server
func (c *Config) Addr() string {
	return ":" + c.Port
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func parseInt(v *viper.Viper, key string) (int, error) {
	raw := strings.TrimSpace(v.GetString(key))
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}
