package trust

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/warden/internal/content"
	"github.com/JaimeStill/warden/pkg/auth"
	"github.com/JaimeStill/warden/pkg/handlers"
	"github.com/JaimeStill/warden/pkg/pagination"
	"github.com/JaimeStill/warden/pkg/routes"
)

// Handler provides HTTP endpoints for trust profiles.
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
		logger:     logger.With("handler", "trust"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for trust endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/trust",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List, Summary: "List trust profiles"},
			{Method: "POST", Pattern: "/batch", Handler: h.Batch, Summary: "Score trust for several items"},
			{Method: "GET", Pattern: "/{type}/{id}", Handler: h.Find, Summary: "Get a trust profile"},
			{Method: "PUT", Pattern: "/{type}/{id}", Handler: h.Rescore, Summary: "Rescore trust for an item"},
		},
	}
}

// List returns a paginated list of trust profiles.
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

// Find returns the profile for the content in the path.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.ref(w, r)
	if !ok {
		return
	}

	p, err := h.sys.Find(r.Context(), ref)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, p)
}

// Rescore scores the content in the path from the Signals request body.
func (h *Handler) Rescore(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r) {
		return
	}

	ref, ok := h.ref(w, r)
	if !ok {
		return
	}

	var sig Signals
	if err := json.NewDecoder(r.Body).Decode(&sig); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	p, err := h.sys.Rescore(r.Context(), RescoreCommand{
		ContentType: ref.Type,
		ContentID:   ref.ID,
		Signals:     sig,
	})
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, p)
}

// Batch rescores every command in the request body.
func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	if !h.allowed(w, r) {
		return
	}

	var cmds []RescoreCommand
	if err := json.NewDecoder(r.Body).Decode(&cmds); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	profiles, err := h.sys.ScoreBatch(r.Context(), cmds)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, profiles)
}

func (h *Handler) ref(w http.ResponseWriter, r *http.Request) (content.Ref, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	ref := content.Ref{Type: content.Type(r.PathValue("type")), ID: id}
	if err != nil || !ref.Type.Valid() {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRef)
		return ref, false
	}
	return ref, true
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
