// Package cacheinfra adapts sturdyc to the cache.CacheService contract.
package cacheinfra

import (
	"context"
	"time"

	"github.com/viccon/sturdyc"
)

// Config holds the sturdyc settings the memo layer exposes.
type Config struct {
	// Capacity is the maximum number of entries the cache can store.
	Capacity int

	// NumShards controls concurrency; higher values trade memory for less
	// contention.
	NumShards int

	// TTL is the default time-to-live for memoized reads.
	TTL time.Duration

	// EvictionPercentage is the share of entries evicted when the cache is
	// full, between 1 and 100.
	EvictionPercentage int

	// MissingRecordStorage remembers keys that resolved to nothing so
	// repeated misses skip the store.
	MissingRecordStorage bool

	// EvictionInterval overrides how often expired entries are collected.
	// Zero keeps sturdyc's default.
	EvictionInterval time.Duration
}

// DefaultConfig returns settings suitable for memoizing store reads.
func DefaultConfig() Config {
	return Config{
		Capacity:             10000,
		NumShards:            256,
		TTL:                  5 * time.Minute,
		EvictionPercentage:   10,
		MissingRecordStorage: true,
	}
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}
	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}
	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}
	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}
	return nil
}

func (c Config) options() []sturdyc.Option {
	var opts []sturdyc.Option
	if c.MissingRecordStorage {
		opts = append(opts, sturdyc.WithMissingRecordStorage())
	}
	if c.EvictionInterval > 0 {
		opts = append(opts, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return opts
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// SturdycService wraps a sturdyc client providing memoization.
type SturdycService struct {
	client *sturdyc.Client[any]
}

// NewSturdycService validates the configuration and builds the client.
func NewSturdycService(cfg Config) (*SturdycService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.options()...,
	)
	return &SturdycService{client: client}, nil
}

// GetOrFetch returns the memoized value for key, fetching and storing it on
// a miss.
func (s *SturdycService) GetOrFetch(ctx context.Context, key string, fetchFn func(ctx context.Context) (any, error)) (any, error) {
	return s.client.GetOrFetch(ctx, key, fetchFn)
}

// Delete removes a single entry so the next read fetches fresh data.
func (s *SturdycService) Delete(ctx context.Context, key string) error {
	s.client.Delete(key)
	return nil
}
