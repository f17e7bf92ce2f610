// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/warden/internal/config"
	"github.com/JaimeStill/warden/internal/infrastructure"
	"github.com/JaimeStill/warden/pkg/formatting"
	"github.com/JaimeStill/warden/pkg/middleware"
	"github.com/JaimeStill/warden/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
// The audit writer and token verifier are registered with the lifecycle coordinator.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(cfg, runtime)

	if err := domain.Audit.Start(runtime.Lifecycle); err != nil {
		return nil, fmt.Errorf("audit start failed: %w", err)
	}
	if err := runtime.Auth.Start(runtime.Lifecycle); err != nil {
		return nil, fmt.Errorf("auth start failed: %w", err)
	}

	mux := http.NewServeMux()
	if err := registerRoutes(mux, domain, cfg, runtime); err != nil {
		return nil, err
	}

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))
	m.Use(middleware.ClientInfo())
	m.Use(runtime.Auth.Middleware())
	m.Use(middleware.BodyLimit(cfg.API.MaxBodySizeBytes()))

	runtime.Logger.Info(
		"api module ready",
		"base_path", cfg.API.BasePath,
		"max_body", formatting.FormatBytes(cfg.API.MaxBodySizeBytes(), 1),
		"auth", cfg.Auth.Enabled,
	)

	return m, nil
}
