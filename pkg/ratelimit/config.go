package ratelimit

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// RuleConfig is the TOML form of a Rule.
type RuleConfig struct {
	Limit  int    `toml:"limit"`
	Window string `toml:"window"`
}

// Config holds the rule table keyed by class name.
type Config struct {
	Classes map[string]RuleConfig `toml:"classes"`
}

// Env names the environment prefix used for per-class overrides.
// For prefix WARDEN_RATE_LIMIT and class auth the variables are
// WARDEN_RATE_LIMIT_AUTH_LIMIT and WARDEN_RATE_LIMIT_AUTH_WINDOW.
type Env struct {
	Prefix string
}

// DefaultRules is the static rule table applied before overrides.
func DefaultRules() map[Class]Rule {
	return map[Class]Rule{
		Read:   {Limit: 300, Window: time.Minute},
		Write:  {Limit: 60, Window: time.Minute},
		Auth:   {Limit: 10, Window: 15 * time.Minute},
		Upload: {Limit: 20, Window: time.Hour},
		Report: {Limit: 10, Window: time.Hour},
		AI:     {Limit: 20, Window: time.Hour},
	}
}

// Rules returns the finalized rule table.
func (c *Config) Rules() map[Class]Rule {
	rules := make(map[Class]Rule, len(c.Classes))
	for name, rc := range c.Classes {
		w, _ := time.ParseDuration(rc.Window)
		rules[Class(name)] = Rule{Limit: rc.Limit, Window: w}
	}
	return rules
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites classes present in overlay, field by field.
func (c *Config) Merge(overlay *Config) {
	if len(overlay.Classes) == 0 {
		return
	}
	if c.Classes == nil {
		c.Classes = make(map[string]RuleConfig)
	}
	for name, o := range overlay.Classes {
		cur := c.Classes[name]
		if o.Limit != 0 {
			cur.Limit = o.Limit
		}
		if o.Window != "" {
			cur.Window = o.Window
		}
		c.Classes[name] = cur
	}
}

func (c *Config) loadDefaults() {
	if c.Classes == nil {
		c.Classes = make(map[string]RuleConfig)
	}
	for class, rule := range DefaultRules() {
		cur := c.Classes[string(class)]
		if cur.Limit == 0 {
			cur.Limit = rule.Limit
		}
		if cur.Window == "" {
			cur.Window = rule.Window.String()
		}
		c.Classes[string(class)] = cur
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Prefix == "" {
		return
	}
	for name, rc := range c.Classes {
		base := env.Prefix + "_" + strings.ToUpper(name)
		if v := os.Getenv(base + "_LIMIT"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				rc.Limit = n
			}
		}
		if v := os.Getenv(base + "_WINDOW"); v != "" {
			rc.Window = v
		}
		c.Classes[name] = rc
	}
}

func (c *Config) validate() error {
	for name, rc := range c.Classes {
		if rc.Limit < 1 {
			return fmt.Errorf("class %s: limit must be positive", name)
		}
		w, err := time.ParseDuration(rc.Window)
		if err != nil {
			return fmt.Errorf("class %s: invalid window: %w", name, err)
		}
		if w <= 0 {
			return fmt.Errorf("class %s: window must be positive", name)
		}
	}
	return nil
}
