package jury

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds deliberation parameters fixed at the time an appeal opens.
type Config struct {
	Quorum       int    `toml:"quorum"`
	VotingWindow string `toml:"voting_window"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Quorum       string
	VotingWindow string
}

// VotingWindowDuration returns VotingWindow as a time.Duration.
func (c *Config) VotingWindowDuration() time.Duration {
	d, _ := time.ParseDuration(c.VotingWindow)
	return d
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
	if overlay.Quorum != 0 {
		c.Quorum = overlay.Quorum
	}
	if overlay.VotingWindow != "" {
		c.VotingWindow = overlay.VotingWindow
	}
}

func (c *Config) loadDefaults() {
	if c.Quorum == 0 {
		c.Quorum = 5
	}
	if c.VotingWindow == "" {
		c.VotingWindow = "72h"
	}
}

func (c *Config) loadEnv(env *Env) error {
	if env.Quorum != "" {
		if v := os.Getenv(env.Quorum); v != "" {
			quorum, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", env.Quorum, err)
			}
			c.Quorum = quorum
		}
	}
	if env.VotingWindow != "" {
		if v := os.Getenv(env.VotingWindow); v != "" {
			c.VotingWindow = v
		}
	}
	return nil
}

func (c *Config) validate() error {
	if c.Quorum < 1 {
		return fmt.Errorf("quorum must be positive")
	}
	d, err := time.ParseDuration(c.VotingWindow)
	if err != nil {
		return fmt.Errorf("invalid voting_window: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("voting_window must be positive")
	}
	return nil
}
