package trust

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds trust scoring settings.
type Config struct {
	ReviewFloor      int `toml:"review_floor"`
	BatchConcurrency int `toml:"batch_concurrency"`
	MaxBatch         int `toml:"max_batch"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	ReviewFloor string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		if err := c.loadEnv(env); err != nil {
			return err
		}
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.ReviewFloor != 0 {
		c.ReviewFloor = overlay.ReviewFloor
	}
	if overlay.BatchConcurrency != 0 {
		c.BatchConcurrency = overlay.BatchConcurrency
	}
	if overlay.MaxBatch != 0 {
		c.MaxBatch = overlay.MaxBatch
	}
}

func (c *Config) loadDefaults() {
	if c.ReviewFloor == 0 {
		c.ReviewFloor = 15
	}
	if c.BatchConcurrency == 0 {
		c.BatchConcurrency = 8
	}
	if c.MaxBatch == 0 {
		c.MaxBatch = 100
	}
}

func (c *Config) loadEnv(env *Env) error {
	if env.ReviewFloor != "" {
		if v := os.Getenv(env.ReviewFloor); v != "" {
			floor, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", env.ReviewFloor, err)
			}
			c.ReviewFloor = floor
		}
	}
	return nil
}

func (c *Config) validate() error {
	if c.ReviewFloor < 0 || c.ReviewFloor > 100 {
		return fmt.Errorf("review_floor must be in [0,100]")
	}
	if c.BatchConcurrency < 1 {
		return fmt.Errorf("batch_concurrency must be positive")
	}
	if c.MaxBatch < 1 {
		return fmt.Errorf("max_batch must be positive")
	}
	return nil
}
