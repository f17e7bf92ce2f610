package conflicts

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the resolution margins and check fan-out limits.
type Config struct {
	TrustMargin      int    `toml:"trust_margin"`
	Staleness        string `toml:"staleness"`
	CheckConcurrency int    `toml:"check_concurrency"`
	MaxClaims        int    `toml:"max_claims"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	TrustMargin string
	Staleness   string
}

// StalenessDuration returns Staleness as a time.Duration.
func (c *Config) StalenessDuration() time.Duration {
	d, _ := time.ParseDuration(c.Staleness)
	return d
}

// Policy returns the margins as a Policy.
func (c *Config) Policy() Policy {
	return Policy{
		TrustMargin: c.TrustMargin,
		Staleness:   c.StalenessDuration(),
	}
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
	if overlay.TrustMargin != 0 {
		c.TrustMargin = overlay.TrustMargin
	}
	if overlay.Staleness != "" {
		c.Staleness = overlay.Staleness
	}
	if overlay.CheckConcurrency != 0 {
		c.CheckConcurrency = overlay.CheckConcurrency
	}
	if overlay.MaxClaims != 0 {
		c.MaxClaims = overlay.MaxClaims
	}
}

func (c *Config) loadDefaults() {
	if c.TrustMargin == 0 {
		c.TrustMargin = 15
	}
	if c.Staleness == "" {
		c.Staleness = "72h"
	}
	if c.CheckConcurrency == 0 {
		c.CheckConcurrency = 8
	}
	if c.MaxClaims == 0 {
		c.MaxClaims = 50
	}
}

func (c *Config) loadEnv(env *Env) error {
	if env.TrustMargin != "" {
		if v := os.Getenv(env.TrustMargin); v != "" {
			margin, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", env.TrustMargin, err)
			}
			c.TrustMargin = margin
		}
	}
	if env.Staleness != "" {
		if v := os.Getenv(env.Staleness); v != "" {
			c.Staleness = v
		}
	}
	return nil
}

func (c *Config) validate() error {
	if c.TrustMargin < 0 || c.TrustMargin > 100 {
		return fmt.Errorf("trust_margin must be in [0,100]")
	}
	d, err := time.ParseDuration(c.Staleness)
	if err != nil {
		return fmt.Errorf("invalid staleness: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("staleness must be positive")
	}
	if c.CheckConcurrency < 1 || c.MaxClaims < 1 {
		return fmt.Errorf("check_concurrency and max_claims must be positive")
	}
	return nil
}
