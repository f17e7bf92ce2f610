package storage

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
)

// DefaultContainer holds evidence when no container is configured.
const DefaultContainer = "warden-evidence"

// Backend names where evidence is archived.
type Backend string

const (
	BackendMemory           Backend = "memory"
	BackendConnectionString Backend = "connection_string"
	BackendAccount          Backend = "account"
)

// Azure container names: 3-63 characters, lowercase letters, digits, and
// single hyphens between them.
var containerName = regexp.MustCompile(`^[a-z0-9](?:-?[a-z0-9])*$`)

// Config locates the evidence container. A connection string wins over an
// account URL, which authenticates with the ambient Azure credential chain.
// With neither, evidence stays in process memory.
type Config struct {
	Container        string `toml:"container"`
	ConnectionString string `toml:"connection_string"`
	AccountURL       string `toml:"account_url"`
}

// Backend reports which archive the config selects.
func (c *Config) Backend() Backend {
	switch {
	case c.ConnectionString != "":
		return BackendConnectionString
	case c.AccountURL != "":
		return BackendAccount
	default:
		return BackendMemory
	}
}

// Finalize fills defaults, applies <prefix>_CONTAINER, <prefix>_CONNECTION_STRING
// and <prefix>_ACCOUNT_URL when prefix is set, then validates.
func (c *Config) Finalize(prefix string) error {
	if c.Container == "" {
		c.Container = DefaultContainer
	}
	if prefix != "" {
		for suffix, dst := range map[string]*string{
			"_CONTAINER":         &c.Container,
			"_CONNECTION_STRING": &c.ConnectionString,
			"_ACCOUNT_URL":       &c.AccountURL,
		} {
			if v := os.Getenv(prefix + suffix); v != "" {
				*dst = v
			}
		}
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Container != "" {
		c.Container = overlay.Container
	}
	if overlay.ConnectionString != "" {
		c.ConnectionString = overlay.ConnectionString
	}
	if overlay.AccountURL != "" {
		c.AccountURL = overlay.AccountURL
	}
}

func (c *Config) validate() error {
	var errs []error

	if n := len(c.Container); n < 3 || n > 63 || !containerName.MatchString(c.Container) {
		errs = append(errs, fmt.Errorf("container %q is not a valid blob container name", c.Container))
	}

	if c.Backend() == BackendAccount {
		u, err := url.Parse(c.AccountURL)
		if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
			errs = append(errs, fmt.Errorf("account_url %q must be an absolute http(s) URL", c.AccountURL))
		}
	}

	return errors.Join(errs...)
}
