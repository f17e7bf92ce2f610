package config

import (
	"fmt"
	"os"
	"time"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
	"github.com/JaimeStill/warden/internal/audit"
	"github.com/JaimeStill/warden/internal/conflicts"
	"github.com/JaimeStill/warden/internal/identity"
	"github.com/JaimeStill/warden/internal/jury"
	"github.com/JaimeStill/warden/internal/moderation"
	"github.com/JaimeStill/warden/internal/notifications"
	"github.com/JaimeStill/warden/internal/reports"
	"github.com/JaimeStill/warden/internal/trust"
	"github.com/JaimeStill/warden/pkg/auth"
	"github.com/JaimeStill/warden/pkg/database"
	"github.com/JaimeStill/warden/pkg/ratelimit"
	"github.com/JaimeStill/warden/pkg/storage"
	"github.com/pelletier/go-toml/v2"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvWardenEnv             = "WARDEN_ENV"
	EnvWardenShutdownTimeout = "WARDEN_SHUTDOWN_TIMEOUT"
	EnvWardenVersion         = "WARDEN_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "WARDEN_DB_HOST",
	Port:            "WARDEN_DB_PORT",
	Name:            "WARDEN_DB_NAME",
	User:            "WARDEN_DB_USER",
	Password:        "WARDEN_DB_PASSWORD",
	SSLMode:         "WARDEN_DB_SSL_MODE",
	MaxOpenConns:    "WARDEN_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "WARDEN_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "WARDEN_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "WARDEN_DB_CONN_TIMEOUT",
}

var authEnv = &auth.Env{
	Enabled:  "WARDEN_AUTH_ENABLED",
	Issuer:   "WARDEN_AUTH_ISSUER",
	ClientID: "WARDEN_AUTH_CLIENT_ID",
	JWKSURL:  "WARDEN_AUTH_JWKS_URL",
}

var moderationEnv = &moderation.Env{
	Analyzer:    "WARDEN_MODERATION_ANALYZER",
	Endpoint:    "WARDEN_MODERATION_ENDPOINT",
	Token:       "WARDEN_MODERATION_TOKEN",
	Timeout:     "WARDEN_MODERATION_TIMEOUT",
	FailureMode: "WARDEN_MODERATION_FAILURE_MODE",
}

var rateLimitEnv = &ratelimit.Env{
	Prefix: "WARDEN_RATE_LIMIT",
}

var trustEnv = &trust.Env{
	ReviewFloor: "WARDEN_TRUST_REVIEW_FLOOR",
}

var conflictsEnv = &conflicts.Env{
	TrustMargin: "WARDEN_CONFLICTS_TRUST_MARGIN",
	Staleness:   "WARDEN_CONFLICTS_STALENESS",
}

var juryEnv = &jury.Env{
	Quorum:       "WARDEN_JURY_QUORUM",
	VotingWindow: "WARDEN_JURY_VOTING_WINDOW",
}

var auditEnv = &audit.Env{
	BufferSize:   "WARDEN_AUDIT_BUFFER_SIZE",
	WriteTimeout: "WARDEN_AUDIT_WRITE_TIMEOUT",
}

var identityEnv = &identity.Env{
	CacheSize: "WARDEN_IDENTITY_CACHE_SIZE",
	CacheTTL:  "WARDEN_IDENTITY_CACHE_TTL",
}

var notificationsEnv = &notifications.Env{
	WebhookURL:     "WARDEN_NOTIFICATIONS_WEBHOOK_URL",
	Timeout:        "WARDEN_NOTIFICATIONS_TIMEOUT",
	MaxElapsedTime: "WARDEN_NOTIFICATIONS_MAX_ELAPSED_TIME",
}

// Config is the root configuration for the Warden service.
type Config struct {
	Server          ServerConfig         `toml:"server"`
	Database        database.Config      `toml:"database"`
	Storage         storage.Config       `toml:"storage"`
	API             APIConfig            `toml:"api"`
	Auth            auth.Config          `toml:"auth"`
	Agent           gaconfig.AgentConfig `toml:"agent"`
	Moderation      moderation.Config    `toml:"moderation"`
	RateLimit       ratelimit.Config     `toml:"rate_limit"`
	Trust           trust.Config         `toml:"trust"`
	Conflicts       conflicts.Config     `toml:"conflicts"`
	Jury            jury.Config          `toml:"jury"`
	Reports         reports.Config       `toml:"reports"`
	Audit           audit.Config         `toml:"audit"`
	Identity        identity.Config      `toml:"identity"`
	Notifications   notifications.Config `toml:"notifications"`
	ShutdownTimeout string               `toml:"shutdown_timeout"`
	Version         string               `toml:"version"`
}

// Env returns the WARDEN_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvWardenEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// LoadDatabase resolves only the database section from the same files and
// environment as Load, so tools like migrate need no other settings.
func LoadDatabase() (*database.Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Database.Finalize(databaseEnv); err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	return &cfg.Database, nil
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// read loads config.toml when present and merges the environment overlay.
func read() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Auth.Merge(&overlay.Auth)
	c.Agent.Merge(&overlay.Agent)
	c.Moderation.Merge(&overlay.Moderation)
	c.RateLimit.Merge(&overlay.RateLimit)
	c.Trust.Merge(&overlay.Trust)
	c.Conflicts.Merge(&overlay.Conflicts)
	c.Jury.Merge(&overlay.Jury)
	c.Reports.Merge(&overlay.Reports)
	c.Audit.Merge(&overlay.Audit)
	c.Identity.Merge(&overlay.Identity)
	c.Notifications.Merge(&overlay.Notifications)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize("WARDEN_STORAGE"); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Auth.Finalize(authEnv); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Moderation.Finalize(moderationEnv); err != nil {
		return fmt.Errorf("moderation: %w", err)
	}
	if c.Moderation.Analyzer == moderation.AnalyzerAgent {
		if err := FinalizeAgent(&c.Agent); err != nil {
			return fmt.Errorf("agent: %w", err)
		}
	}
	if err := c.RateLimit.Finalize(rateLimitEnv); err != nil {
		return fmt.Errorf("rate_limit: %w", err)
	}
	if err := c.Trust.Finalize(trustEnv); err != nil {
		return fmt.Errorf("trust: %w", err)
	}
	if err := c.Conflicts.Finalize(conflictsEnv); err != nil {
		return fmt.Errorf("conflicts: %w", err)
	}
	if err := c.Jury.Finalize(juryEnv); err != nil {
		return fmt.Errorf("jury: %w", err)
	}
	if err := c.Reports.Finalize(); err != nil {
		return fmt.Errorf("reports: %w", err)
	}
	if err := c.Audit.Finalize(auditEnv); err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	if err := c.Identity.Finalize(identityEnv); err != nil {
		return fmt.Errorf("identity: %w", err)
	}
	if err := c.Notifications.Finalize(notificationsEnv); err != nil {
		return fmt.Errorf("notifications: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvWardenShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvWardenVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvWardenEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
