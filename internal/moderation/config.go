package moderation

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	AnalyzerHTTP  = "http"
	AnalyzerAgent = "agent"

	FailClosed = "closed"
	FailOpen   = "open"
)

// Config holds analyzer selection, call bounds, failure handling, and policy thresholds.
type Config struct {
	Analyzer                 string  `toml:"analyzer"`
	Endpoint                 string  `toml:"endpoint"`
	Token                    string  `toml:"token"`
	Timeout                  string  `toml:"timeout"`
	RetryMax                 int     `toml:"retry_max"`
	FailureMode              string  `toml:"failure_mode"`
	BreakerFailures          int     `toml:"breaker_failures"`
	BreakerCooldown          string  `toml:"breaker_cooldown"`
	BlockThreshold           float64 `toml:"block_threshold"`
	WarnThreshold            float64 `toml:"warn_threshold"`
	PlagiarismBlockThreshold float64 `toml:"plagiarism_block_threshold"`
	PlagiarismWarnThreshold  float64 `toml:"plagiarism_warn_threshold"`
	IgnoreAnalyzerBlock      bool    `toml:"ignore_analyzer_block"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Analyzer    string
	Endpoint    string
	Token       string
	Timeout     string
	FailureMode string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// BreakerCooldownDuration returns BreakerCooldown as a time.Duration.
func (c *Config) BreakerCooldownDuration() time.Duration {
	d, _ := time.ParseDuration(c.BreakerCooldown)
	return d
}

// FailsClosed reports whether analyzer failures block content.
func (c *Config) FailsClosed() bool {
	return c.FailureMode != FailOpen
}

// Policy returns the thresholds as a Policy.
func (c *Config) Policy() Policy {
	return Policy{
		BlockThreshold:           c.BlockThreshold,
		WarnThreshold:            c.WarnThreshold,
		PlagiarismBlockThreshold: c.PlagiarismBlockThreshold,
		PlagiarismWarnThreshold:  c.PlagiarismWarnThreshold,
		IgnoreAnalyzerBlock:      c.IgnoreAnalyzerBlock,
	}
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
	if overlay.Analyzer != "" {
		c.Analyzer = overlay.Analyzer
	}
	if overlay.Endpoint != "" {
		c.Endpoint = overlay.Endpoint
	}
	if overlay.Token != "" {
		c.Token = overlay.Token
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.RetryMax != 0 {
		c.RetryMax = overlay.RetryMax
	}
	if overlay.FailureMode != "" {
		c.FailureMode = overlay.FailureMode
	}
	if overlay.BreakerFailures != 0 {
		c.BreakerFailures = overlay.BreakerFailures
	}
	if overlay.BreakerCooldown != "" {
		c.BreakerCooldown = overlay.BreakerCooldown
	}
	if overlay.BlockThreshold != 0 {
		c.BlockThreshold = overlay.BlockThreshold
	}
	if overlay.WarnThreshold != 0 {
		c.WarnThreshold = overlay.WarnThreshold
	}
	if overlay.PlagiarismBlockThreshold != 0 {
		c.PlagiarismBlockThreshold = overlay.PlagiarismBlockThreshold
	}
	if overlay.PlagiarismWarnThreshold != 0 {
		c.PlagiarismWarnThreshold = overlay.PlagiarismWarnThreshold
	}
	if overlay.IgnoreAnalyzerBlock {
		c.IgnoreAnalyzerBlock = true
	}
}

func (c *Config) loadDefaults() {
	if c.Analyzer == "" {
		c.Analyzer = AnalyzerHTTP
	}
	if c.Timeout == "" {
		c.Timeout = "5s"
	}
	if c.RetryMax == 0 {
		c.RetryMax = 2
	}
	if c.FailureMode == "" {
		c.FailureMode = FailClosed
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = 5
	}
	if c.BreakerCooldown == "" {
		c.BreakerCooldown = "30s"
	}
	if c.BlockThreshold == 0 {
		c.BlockThreshold = 0.85
	}
	if c.WarnThreshold == 0 {
		c.WarnThreshold = 0.5
	}
	if c.PlagiarismBlockThreshold == 0 {
		c.PlagiarismBlockThreshold = 0.9
	}
	if c.PlagiarismWarnThreshold == 0 {
		c.PlagiarismWarnThreshold = 0.6
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Analyzer != "" {
		if v := os.Getenv(env.Analyzer); v != "" {
			c.Analyzer = v
		}
	}
	if env.Endpoint != "" {
		if v := os.Getenv(env.Endpoint); v != "" {
			c.Endpoint = v
		}
	}
	if env.Token != "" {
		if v := os.Getenv(env.Token); v != "" {
			c.Token = v
		}
	}
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
	if env.FailureMode != "" {
		if v := os.Getenv(env.FailureMode); v != "" {
			c.FailureMode = v
		}
	}
}

func (c *Config) validate() error {
	switch c.Analyzer {
	case AnalyzerHTTP:
		if c.Endpoint == "" {
			return fmt.Errorf("endpoint required for http analyzer")
		}
	case AnalyzerAgent:
	default:
		return fmt.Errorf("unknown analyzer: %s", c.Analyzer)
	}
	if c.FailureMode != FailClosed && c.FailureMode != FailOpen {
		return fmt.Errorf("failure_mode must be %s or %s", FailClosed, FailOpen)
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.BreakerCooldown); err != nil {
		return fmt.Errorf("invalid breaker_cooldown: %w", err)
	}
	for name, v := range map[string]float64{
		"block_threshold":            c.BlockThreshold,
		"warn_threshold":             c.WarnThreshold,
		"plagiarism_block_threshold": c.PlagiarismBlockThreshold,
		"plagiarism_warn_threshold":  c.PlagiarismWarnThreshold,
	} {
		if v <= 0 || v > 1 {
			return fmt.Errorf("%s must be in (0,1]: %s", name, strconv.FormatFloat(v, 'f', -1, 64))
		}
	}
	if c.WarnThreshold > c.BlockThreshold {
		return fmt.Errorf("warn_threshold cannot exceed block_threshold")
	}
	return nil
}
