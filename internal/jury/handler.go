package jury

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

// Handler provides HTTP endpoints for appeals and jury voting.
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
		logger:     logger.With("handler", "jury"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for appeal endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/appeals",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List, Summary: "List deliberations"},
			{Method: "POST", Pattern: "", Handler: h.Open, Summary: "Open a deliberation"},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find, Summary: "Get a deliberation"},
			{Method: "POST", Pattern: "/{id}/votes", Handler: h.Vote, Summary: "Cast a vote"},
			{Method: "POST", Pattern: "/{id}/resolve", Handler: h.Resolve, Summary: "Resolve an escalated deliberation"},
			{Method: "POST", Pattern: "/{id}/close", Handler: h.Close, Summary: "Close a deliberation"},
		},
	}
}

// Open starts an appeal on behalf of the caller.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequireActor(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, err)
		return
	}

	var cmd OpenCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}
	cmd.AppellantID = actor

	d, err := h.sys.Open(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, d)
}

// List returns a paginated list of deliberations. Jurors only.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, identity.OpCastVote) {
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

// Find returns a deliberation with its votes. Jurors only.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r, identity.OpCastVote) {
		return
	}

	id, ok := h.id(w, r)
	if !ok {
		return
	}

	d, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, d)
}

// Vote casts the caller's verdict.
func (h *Handler) Vote(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequireActor(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, err)
		return
	}

	id, ok := h.id(w, r)
	if !ok {
		return
	}

	var cmd VoteCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	d, err := h.sys.CastVote(r.Context(), id, actor, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, d)
}

// Resolve decides an escalated appeal. Admin only, enforced by the system.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequireActor(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, err)
		return
	}

	id, ok := h.id(w, r)
	if !ok {
		return
	}

	var cmd ResolveCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	d, err := h.sys.ResolveEscalation(r.Context(), id, actor, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, d)
}

// Close escalates an expired deliberation. Admin only, enforced by the system.
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequireActor(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, err)
		return
	}

	id, ok := h.id(w, r)
	if !ok {
		return
	}

	d, err := h.sys.Close(r.Context(), id, actor)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, d)
}

func (h *Handler) id(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) allowed(w http.ResponseWriter, r *http.Request, op identity.Operation) bool {
	actor, err := auth.RequireActor(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, err)
		return false
	}

	if err := h.authorize(r.Context(), actor, op); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return false
	}
	return true
}
