package moderation

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/warden/pkg/auth"
	"github.com/JaimeStill/warden/pkg/handlers"
	"github.com/JaimeStill/warden/pkg/ratelimit"
	"github.com/JaimeStill/warden/pkg/routes"
)

// Handler provides the HTTP endpoint for previewing moderation decisions.
type Handler struct {
	sys       System
	authorize Authorizer
	logger    *slog.Logger
}

// NewHandler creates a Handler with the given system and logger.
func NewHandler(sys System, authorize Authorizer, logger *slog.Logger) *Handler {
	return &Handler{
		sys:       sys,
		authorize: authorize,
		logger:    logger.With("handler", "moderation"),
	}
}

// Routes returns the route group definition for moderation endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/moderation",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/evaluate", Handler: h.Evaluate, Summary: "Preview a moderation decision", Class: string(ratelimit.AI)},
		},
	}
}

// Evaluate runs the gate against the request body without storing anything.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequireActor(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, err)
		return
	}

	if err := h.authorize(r.Context(), actor); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	d, err := h.sys.Evaluate(r.Context(), req)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, d)
}
