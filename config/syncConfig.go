package config

import (
	"time"

	"github.com/go-faster/errors"
)

// SyncConfig holds the pacing and batching constants of a catalog sync run.
type SyncConfig struct {
	PageSize           int           `yaml:"page_size"`
	MaxPages           int           `yaml:"max_pages"`
	PageInterval       time.Duration `yaml:"page_interval"`
	CollectionPageSize int           `yaml:"collection_page_size"`
	CollectionInterval time.Duration `yaml:"collection_interval"`

	ThrottleBackoff    time.Duration `yaml:"throttle_backoff"`
	MaxThrottleBackoff time.Duration `yaml:"max_throttle_backoff"`
	BackoffMultiplier  float64       `yaml:"backoff_multiplier"`
	MaxAttempts        int           `yaml:"max_attempts"`

	ResolverWorkers int     `yaml:"resolver_workers"`
	ResolverRPS     float64 `yaml:"resolver_rps"`

	ProductBatchSize    int           `yaml:"product_batch_size"`
	CollectionBatchSize int           `yaml:"collection_batch_size"`
	CacheTTL            time.Duration `yaml:"cache_ttl"`

	// SkipWhenFresh gives forceRefresh=false its meaning: a run is skipped while the
	// current snapshot has not expired.
	SkipWhenFresh    bool          `yaml:"skip_when_fresh"`
	SingleFlight     bool          `yaml:"single_flight"`
	ScheduleInterval time.Duration `yaml:"schedule_interval"`
}

func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		PageSize:            50,
		MaxPages:            20,
		PageInterval:        2 * time.Second,
		CollectionPageSize:  250,
		CollectionInterval:  1500 * time.Millisecond,
		ThrottleBackoff:     10 * time.Second,
		MaxThrottleBackoff:  2 * time.Minute,
		BackoffMultiplier:   2,
		MaxAttempts:         5,
		ResolverWorkers:     1,
		ProductBatchSize:    50,
		CollectionBatchSize: 25,
		CacheTTL:            30 * time.Minute,
		SingleFlight:        true,
	}
}

func (c SyncConfig) Validate() error {
	switch {
	case c.PageSize <= 0 || c.PageSize > 250:
		return errors.Errorf("sync.page_size must be in 1..250, got %d", c.PageSize)
	case c.MaxPages <= 0:
		return errors.Errorf("sync.max_pages must be positive, got %d", c.MaxPages)
	case c.CollectionPageSize <= 0 || c.CollectionPageSize > 250:
		return errors.Errorf("sync.collection_page_size must be in 1..250, got %d", c.CollectionPageSize)
	case c.MaxAttempts <= 0:
		return errors.Errorf("sync.max_attempts must be positive, got %d", c.MaxAttempts)
	case c.ProductBatchSize <= 0 || c.CollectionBatchSize <= 0:
		return errors.New("sync batch sizes must be positive")
	case c.CacheTTL <= 0:
		return errors.New("sync.cache_ttl must be positive")
	case c.ResolverWorkers < 0:
		return errors.New("sync.resolver_workers must not be negative")
	}
	return nil
}
