package api

import (
	"net/http"

	"github.com/JaimeStill/warden/internal/audit"
	"github.com/JaimeStill/warden/internal/config"
	"github.com/JaimeStill/warden/pkg/middleware"
	"github.com/JaimeStill/warden/pkg/openapi"
	"github.com/JaimeStill/warden/pkg/ratelimit"
	"github.com/JaimeStill/warden/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) error {
	throttler := middleware.NewThrottler(
		runtime.Limiter,
		runtime.Logger,
		auditDenied(domain.Audit),
	)
	throttle := throttleRoute(throttler)

	groups := []routes.Group{
		domain.Submissions.Handler().Routes(),
		domain.Moderation.Handler().Routes(),
		domain.Reports.Handler().Routes(),
		domain.Jury.Handler().Routes(),
		domain.Trust.Handler().Routes(),
		domain.Conflicts.Handler().Routes(),
		domain.Audit.Handler().Routes(),
		domain.Identity.Handler().Routes(),
	}

	for _, g := range groups {
		routes.Register(mux, g.Wrap(throttle))
	}

	spec := openapi.NewSpec(cfg.API.OpenAPI.Title, cfg.Version)
	spec.SetDescription(cfg.API.OpenAPI.Description)
	spec.SetServer(cfg.API.OpenAPI.ServerURL)
	spec.AddGroups(cfg.API.BasePath, groups...)

	serveSpec, err := spec.Handler()
	if err != nil {
		return err
	}
	mux.HandleFunc("GET /openapi.json", serveSpec)

	return nil
}

// routeClass resolves the rate limit class for a route. Routes without an
// explicit class are throttled as reads or writes by method.
func routeClass(route routes.Route) ratelimit.Class {
	if route.Class != "" {
		return ratelimit.Class(route.Class)
	}
	if route.Method == http.MethodGet {
		return ratelimit.Read
	}
	return ratelimit.Write
}

func throttleRoute(t *middleware.Throttler) routes.Middleware {
	return func(route routes.Route, next http.HandlerFunc) http.HandlerFunc {
		return t.Wrap(routeClass(route), next)
	}
}

func auditDenied(recorder audit.Recorder) middleware.DenyHook {
	return func(r *http.Request, class ratelimit.Class, d ratelimit.Decision) {
		recorder.Log(r.Context(), audit.Entry{
			Action: "auth_rate_limited",
			Metadata: map[string]any{
				"class":       string(class),
				"limit":       d.Limit,
				"retry_after": d.RetryAfter.String(),
				"path":        r.URL.Path,
			},
		})
	}
}
