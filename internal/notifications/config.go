package notifications

import (
	"fmt"
	"os"
	"time"
)

// Config holds webhook delivery settings. An empty WebhookURL disables delivery.
type Config struct {
	WebhookURL     string `toml:"webhook_url"`
	Timeout        string `toml:"timeout"`
	MaxElapsedTime string `toml:"max_elapsed_time"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	WebhookURL     string
	Timeout        string
	MaxElapsedTime string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// MaxElapsedTimeDuration returns MaxElapsedTime as a time.Duration.
func (c *Config) MaxElapsedTimeDuration() time.Duration {
	d, _ := time.ParseDuration(c.MaxElapsedTime)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.WebhookURL != "" {
		c.WebhookURL = overlay.WebhookURL
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.MaxElapsedTime != "" {
		c.MaxElapsedTime = overlay.MaxElapsedTime
	}
}

func (c *Config) loadDefaults() {
	if c.Timeout == "" {
		c.Timeout = "5s"
	}
	if c.MaxElapsedTime == "" {
		c.MaxElapsedTime = "1m"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.WebhookURL != "" {
		if v := os.Getenv(env.WebhookURL); v != "" {
			c.WebhookURL = v
		}
	}
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
	if env.MaxElapsedTime != "" {
		if v := os.Getenv(env.MaxElapsedTime); v != "" {
			c.MaxElapsedTime = v
		}
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.MaxElapsedTime); err != nil {
		return fmt.Errorf("invalid max_elapsed_time: %w", err)
	}
	return nil
}
