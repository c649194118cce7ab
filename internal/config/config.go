// Package config loads CLI settings from the environment.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

var (
	ErrInvalidTimeout = errors.New("SERP_TIMEOUT_SEC must be positive")
	ErrInvalidRetry   = errors.New("retry settings must be non-negative")
	ErrInvalidCache   = errors.New("SERP_CACHE_TTL_SEC must be non-negative")
	ErrInvalidQuota   = errors.New("SERP_QUOTA_PER_MINUTE must be non-negative")
)

type Config struct {
	API   APIConfig
	Retry RetryConfig
	Cache CacheConfig
	Quota QuotaConfig
	Log   LogConfig
}

type APIConfig struct {
	Key     string
	BaseURL string
	Timeout time.Duration
}

type RetryConfig struct {
	MaxRetries        int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

type CacheConfig struct {
	TTL time.Duration
}

type QuotaConfig struct {
	PerMinute int
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		API: APIConfig{
			Key:     os.Getenv("SERP_API_KEY"),
			BaseURL: getEnvOrDefault("SERP_BASE_URL", "https://serpapi.com"),
			Timeout: time.Duration(getEnvIntOrDefault("SERP_TIMEOUT_SEC", 30)) * time.Second,
		},
		Retry: RetryConfig{
			MaxRetries:        getEnvIntOrDefault("SERP_MAX_RETRIES", 3),
			BaseDelay:         time.Duration(getEnvIntOrDefault("SERP_RETRY_BASE_MS", 100)) * time.Millisecond,
			MaxDelay:          time.Duration(getEnvIntOrDefault("SERP_RETRY_MAX_SEC", 10)) * time.Second,
			BackoffMultiplier: getEnvFloatOrDefault("SERP_BACKOFF_MULTIPLIER", 2.0),
		},
		Cache: CacheConfig{
			TTL: time.Duration(getEnvIntOrDefault("SERP_CACHE_TTL_SEC", 0)) * time.Second,
		},
		Quota: QuotaConfig{
			PerMinute: getEnvIntOrDefault("SERP_QUOTA_PER_MINUTE", 0),
		},
		Log: LogConfig{
			Level: getEnvOrDefault("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.API.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Retry.MaxRetries < 0 || c.Retry.BaseDelay < 0 || c.Retry.MaxDelay < 0 || c.Retry.BackoffMultiplier < 0 {
		return ErrInvalidRetry
	}
	if c.Cache.TTL < 0 {
		return ErrInvalidCache
	}
	if c.Quota.PerMinute < 0 {
		return ErrInvalidQuota
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
