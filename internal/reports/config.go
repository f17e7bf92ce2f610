package reports

import (
	"fmt"
	"time"
)

// Config holds report evidence archive settings.
type Config struct {
	ArchiveEvidence bool   `toml:"archive_evidence"`
	ArchiveTimeout  string `toml:"archive_timeout"`
}

// ArchiveTimeoutDuration returns ArchiveTimeout as a time.Duration.
func (c *Config) ArchiveTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ArchiveTimeout)
	return d
}

// Finalize applies defaults and validation.
func (c *Config) Finalize() error {
	if c.ArchiveTimeout == "" {
		c.ArchiveTimeout = "10s"
	}
	if _, err := time.ParseDuration(c.ArchiveTimeout); err != nil {
		return fmt.Errorf("invalid archive_timeout: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.ArchiveEvidence {
		c.ArchiveEvidence = true
	}
	if overlay.ArchiveTimeout != "" {
		c.ArchiveTimeout = overlay.ArchiveTimeout
	}
}
