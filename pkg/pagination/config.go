// Package pagination parses page requests from query strings and wraps list
// results with page metadata.
package pagination

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// Page sizes applied when a Config leaves them unset. No configuration may
// raise MaxPageSize above PageSizeCeiling.
const (
	StandardPageSize    = 20
	StandardMaxPageSize = 100
	PageSizeCeiling     = 500
)

// Config bounds the page sizes a caller may request. The zero value behaves
// as the standard sizes.
type Config struct {
	DefaultPageSize int `toml:"default_page_size"`
	MaxPageSize     int `toml:"max_page_size"`
}

// Finalize fills unset sizes, applies <prefix>_SIZE and <prefix>_SIZE_MAX when
// prefix is set, and validates. Unparseable or non-positive values are ignored.
func (c *Config) Finalize(prefix string) error {
	c.DefaultPageSize, c.MaxPageSize = c.sizes()
	if prefix != "" {
		envSize(prefix+"_SIZE", &c.DefaultPageSize)
		envSize(prefix+"_SIZE_MAX", &c.MaxPageSize)
	}
	return c.validate()
}

// Merge applies non-zero values from the overlay configuration.
func (c *Config) Merge(overlay *Config) {
	if overlay.DefaultPageSize != 0 {
		c.DefaultPageSize = overlay.DefaultPageSize
	}
	if overlay.MaxPageSize != 0 {
		c.MaxPageSize = overlay.MaxPageSize
	}
}

func (c Config) sizes() (def, limit int) {
	def, limit = c.DefaultPageSize, c.MaxPageSize
	if def <= 0 {
		def = StandardPageSize
	}
	if limit <= 0 {
		limit = StandardMaxPageSize
	}
	return def, limit
}

func envSize(name string, dst *int) {
	if n, err := strconv.Atoi(os.Getenv(name)); err == nil && n > 0 {
		*dst = n
	}
}

func (c *Config) validate() error {
	var errs []error
	if c.MaxPageSize > PageSizeCeiling {
		errs = append(errs, fmt.Errorf("max_page_size %d exceeds ceiling %d", c.MaxPageSize, PageSizeCeiling))
	}
	if c.DefaultPageSize > c.MaxPageSize {
		errs = append(errs, fmt.Errorf("default_page_size %d exceeds max_page_size %d", c.DefaultPageSize, c.MaxPageSize))
	}
	return errors.Join(errs...)
}
