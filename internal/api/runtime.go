package api

import (
	"github.com/JaimeStill/warden/internal/config"
	"github.com/JaimeStill/warden/internal/infrastructure"
	"github.com/JaimeStill/warden/pkg/auth"
	"github.com/JaimeStill/warden/pkg/pagination"
	"github.com/JaimeStill/warden/pkg/ratelimit"
)

// Runtime extends Infrastructure with API-specific configuration
// and the request-scoped guards shared by every route.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
	Auth       *auth.Authenticator
	Limiter    *ratelimit.Limiter
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	logger := infra.Logger.With("module", "api")

	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    logger,
			Database:  infra.Database,
			Storage:   infra.Storage,
		},
		Pagination: cfg.API.Pagination,
		Auth:       auth.New(&cfg.Auth, logger),
		Limiter:    ratelimit.New(&cfg.RateLimit),
	}
}
