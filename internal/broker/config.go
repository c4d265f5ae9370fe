package broker

import (
	"fmt"
	"net/url"
	"time"
)

// Config configures a Client. Zero fields take the defaults below.
type Config struct {
	// URL is the broker (or router) base URL, e.g. http://localhost:8082.
	URL string `yaml:"url"`

	// Username and Password enable HTTP basic auth when Username is set.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// Timeout bounds a single HTTP attempt. Default 60s.
	Timeout time.Duration `yaml:"timeout"`

	Retry     RetryConfig     `yaml:"retry"`
	Breaker   BreakerConfig   `yaml:"breaker"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// CacheSize is the number of responses kept in memory. Zero disables
	// the cache.
	CacheSize int `yaml:"cache_size"`
}

// RetryConfig controls retries of transient failures.
type RetryConfig struct {
	// MaxTries counts the first attempt. Default 3.
	MaxTries uint `yaml:"max_tries"`
	// InitialInterval is the first backoff delay. Default 100ms.
	InitialInterval time.Duration `yaml:"initial_interval"`
	// MaxInterval caps a single backoff delay. Default 2s.
	MaxInterval time.Duration `yaml:"max_interval"`
	// MaxElapsed caps the total time spent retrying. Default 1m.
	MaxElapsed time.Duration `yaml:"max_elapsed"`
}

// BreakerConfig controls the circuit breaker.
type BreakerConfig struct {
	// ConsecutiveFailures opens the breaker. Default 5.
	ConsecutiveFailures uint32 `yaml:"consecutive_failures"`
	// OpenTimeout is how long the breaker stays open. Default 30s.
	OpenTimeout time.Duration `yaml:"open_timeout"`
	// HalfOpenRequests are let through while probing. Default 1.
	HalfOpenRequests uint32 `yaml:"half_open_requests"`
}

// RateLimitConfig limits outbound requests. PerSecond <= 0 disables it.
type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.Retry.MaxTries == 0 {
		c.Retry.MaxTries = 3
	}
	if c.Retry.InitialInterval <= 0 {
		c.Retry.InitialInterval = 100 * time.Millisecond
	}
	if c.Retry.MaxInterval <= 0 {
		c.Retry.MaxInterval = 2 * time.Second
	}
	if c.Retry.MaxElapsed <= 0 {
		c.Retry.MaxElapsed = time.Minute
	}
	if c.Breaker.ConsecutiveFailures == 0 {
		c.Breaker.ConsecutiveFailures = 5
	}
	if c.Breaker.OpenTimeout <= 0 {
		c.Breaker.OpenTimeout = 30 * time.Second
	}
	if c.Breaker.HalfOpenRequests == 0 {
		c.Breaker.HalfOpenRequests = 1
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 1
	}
	return c
}

// Validate reports configuration the client cannot work with.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("broker url is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid broker url %q: %w", c.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("broker url %q: scheme must be http or https", c.URL)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache_size must not be negative, got %d", c.CacheSize)
	}
	return nil
}
