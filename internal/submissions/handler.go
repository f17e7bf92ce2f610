package submissions

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/warden/pkg/auth"
	"github.com/JaimeStill/warden/pkg/handlers"
	"github.com/JaimeStill/warden/pkg/ratelimit"
	"github.com/JaimeStill/warden/pkg/routes"
)

// Handler provides the HTTP endpoint for content submission.
type Handler struct {
	sys       System
	authorize Authorizer
	logger    *slog.Logger
}

// NewHandler creates a Handler with the given system, authorizer, and logger.
func NewHandler(sys System, authorize Authorizer, logger *slog.Logger) *Handler {
	return &Handler{
		sys:       sys,
		authorize: authorize,
		logger:    logger.With("handler", "submissions"),
	}
}

// Routes returns the route group definition for submission endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/submissions",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Submit, Summary: "Submit content through the moderation gate", Class: string(ratelimit.Write)},
		},
	}
}

// Submit moderates and stores content authored by the caller.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequireActor(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, err)
		return
	}

	var cmd SubmitCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}
	cmd.AuthorID = actor

	result, err := h.sys.Submit(r.Context(), cmd)

	var blocked *BlockedError
	if errors.As(err, &blocked) {
		h.logger.Info("submission blocked", "author_id", actor, "warnings", blocked.Warnings)
		handlers.RespondJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":     ErrBlocked.Error(),
			"warnings":  blocked.Warnings,
			"report_id": blocked.ReportID,
		})
		return
	}
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, result)
}
