package conflicts

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/warden/internal/identity"
	"github.com/JaimeStill/warden/pkg/auth"
	"github.com/JaimeStill/warden/pkg/handlers"
	"github.com/JaimeStill/warden/pkg/pagination"
	"github.com/JaimeStill/warden/pkg/routes"
)

// Handler provides HTTP endpoints for conflict records.
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
		logger:     logger.With("handler", "conflicts"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for conflict endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/conflicts",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List, Summary: "List conflict records"},
			{Method: "POST", Pattern: "", Handler: h.Record, Summary: "Record a conflicting claim"},
			{Method: "POST", Pattern: "/check", Handler: h.Check, Summary: "Check a claim against existing records"},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find, Summary: "Get a conflict record"},
			{Method: "POST", Pattern: "/{id}/action", Handler: h.MarkActionTaken, Summary: "Mark a conflict as acted on"},
		},
	}
}

// List returns a paginated list of conflict records with optional filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns a single conflict record by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	rec, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, rec)
}

// Record resolves and stores one contradiction.
func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.allowed(w, r, identity.OpRecordConflict); !ok {
		return
	}

	var cmd RecordCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	rec, err := h.sys.Record(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, rec)
}

// Check compares a field claim with several external claims and stores each contradiction.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.allowed(w, r, identity.OpRecordConflict); !ok {
		return
	}

	var cmd CheckCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	records, err := h.sys.Check(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, records)
}

// MarkActionTaken records that a moderator acted on the suggestion.
func (h *Handler) MarkActionTaken(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.allowed(w, r, identity.OpActOnConflict)
	if !ok {
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	rec, err := h.sys.MarkActionTaken(r.Context(), id, actor)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, rec)
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
