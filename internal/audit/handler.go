package audit

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/warden/pkg/auth"
	"github.com/JaimeStill/warden/pkg/handlers"
	"github.com/JaimeStill/warden/pkg/pagination"
	"github.com/JaimeStill/warden/pkg/routes"
)

// Handler provides admin-only HTTP endpoints for reading the audit trail.
type Handler struct {
	sys        System
	authorize  Authorizer
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler with the given system, authorizer, logger, and pagination config.
func NewHandler(
	sys System,
	authorize Authorizer,
	logger *slog.Logger,
	pagination pagination.Config,
) *Handler {
	return &Handler{
		sys:        sys,
		authorize:  authorize,
		logger:     logger.With("handler", "audit"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for audit endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/audit",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List, Summary: "Query audit events"},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find, Summary: "Get an audit event"},
		},
	}
}

// List returns a paginated list of audit events with optional query parameter filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r) {
		return
	}

	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns a single audit event by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r) {
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	e, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, e)
}

func (h *Handler) allowed(w http.ResponseWriter, r *http.Request) bool {
	actor, err := auth.RequireActor(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, err)
		return false
	}

	if err := h.authorize(r.Context(), actor); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return false
	}

	return true
}
