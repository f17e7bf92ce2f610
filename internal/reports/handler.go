package reports

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/warden/internal/identity"
	"github.com/JaimeStill/warden/pkg/auth"
	"github.com/JaimeStill/warden/pkg/handlers"
	"github.com/JaimeStill/warden/pkg/pagination"
	"github.com/JaimeStill/warden/pkg/ratelimit"
	"github.com/JaimeStill/warden/pkg/routes"
)

// Handler provides HTTP endpoints for the report workflow.
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
		logger:     logger.With("handler", "reports"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for report endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/reports",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List, Summary: "List reports"},
			{Method: "POST", Pattern: "", Handler: h.File, Summary: "File a report", Class: string(ratelimit.Report)},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find, Summary: "Get a report"},
			{Method: "PATCH", Pattern: "/{id}", Handler: h.Update, Summary: "Review or appeal a report"},
			{Method: "POST", Pattern: "/{id}/reopen", Handler: h.Reopen, Summary: "Reopen an overturned report"},
			{Method: "GET", Pattern: "/{id}/evidence", Handler: h.Evidence, Summary: "Download report evidence"},
		},
	}
}

// File opens a report on behalf of the caller.
func (h *Handler) File(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.allowed(w, r, identity.OpFileReport)
	if !ok {
		return
	}

	var cmd FileCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}
	cmd.ReporterID = &actor

	rep, err := h.sys.File(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, rep)
}

// List returns a paginated list of reports. Moderators only.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.allowed(w, r, identity.OpReviewReport); !ok {
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

// Find returns a single report by its UUID path parameter. Moderators only.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.allowed(w, r, identity.OpReviewReport); !ok {
		return
	}

	id, ok := h.id(w, r)
	if !ok {
		return
	}

	rep, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, rep)
}

// Update applies a review transition. Authorization is enforced by the system.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequireActor(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, err)
		return
	}

	id, ok := h.id(w, r)
	if !ok {
		return
	}

	var cmd UpdateCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	rep, err := h.sys.Update(r.Context(), id, actor, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, rep)
}

// Reopen returns a closed report to review. Authorization is enforced by the system.
func (h *Handler) Reopen(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequireActor(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, err)
		return
	}

	id, ok := h.id(w, r)
	if !ok {
		return
	}

	var cmd ReopenCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil && err != io.EOF {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	rep, err := h.sys.Reopen(r.Context(), id, actor, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, rep)
}

// Evidence streams the archived evidence document. Moderators only.
func (h *Handler) Evidence(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.allowed(w, r, identity.OpReviewReport); !ok {
		return
	}

	id, ok := h.id(w, r)
	if !ok {
		return
	}

	rc, err := h.sys.Evidence(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	io.Copy(w, rc)
}

func (h *Handler) id(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) allowed(w http.ResponseWriter, r *http.Request, op identity.Operation) (uuid.UUID, bool) {
	actor, err := auth.RequireActor(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, err)
		return uuid.Nil, false
	}

	if err := h.authorize(r.Context(), actor, op); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return uuid.Nil, false
	}

	return actor, true
}
