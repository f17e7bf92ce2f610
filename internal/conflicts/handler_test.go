package conflicts_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/JaimeStill/warden/internal/conflicts"
	"github.com/JaimeStill/warden/internal/identity"
	"github.com/JaimeStill/warden/pkg/auth"
	"github.com/JaimeStill/warden/pkg/faults"
	"github.com/JaimeStill/warden/pkg/pagination"
)

type mockSystem struct {
	recordFn func(ctx context.Context, cmd conflicts.RecordCommand) (*conflicts.Record, error)
	markFn   func(ctx context.Context, id, actorID uuid.UUID) (*conflicts.Record, error)
}

func (m *mockSystem) Handler() *conflicts.Handler { return nil }

func (m *mockSystem) Record(ctx context.Context, cmd conflicts.RecordCommand) (*conflicts.Record, error) {
	return m.recordFn(ctx, cmd)
}

func (m *mockSystem) Check(context.Context, conflicts.CheckCommand) ([]conflicts.Record, error) {
	return nil, nil
}

func (m *mockSystem) Find(context.Context, uuid.UUID) (*conflicts.Record, error) {
	return nil, conflicts.ErrNotFound
}

func (m *mockSystem) List(context.Context, pagination.PageRequest, conflicts.Filters) (*pagination.PageResult[conflicts.Record], error) {
	return nil, nil
}

func (m *mockSystem) MarkActionTaken(ctx context.Context, id, actorID uuid.UUID) (*conflicts.Record, error) {
	return m.markFn(ctx, id, actorID)
}

var (
	researcher = uuid.MustParse("33333333-3333-3333-3333-333333333333")
	moderator  = uuid.MustParse("44444444-4444-4444-4444-444444444444")
)

func authorizer(_ context.Context, actor uuid.UUID, op identity.Operation) error {
	role := identity.Member
	switch actor {
	case researcher:
		role = identity.Researcher
	case moderator:
		role = identity.Moderator
	}
	if !identity.Allowed(role, op) {
		return faults.ErrUnauthorized
	}
	return nil
}

func setupMux(h *conflicts.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	group := h.Routes()
	for _, route := range group.Routes {
		pattern := route.Method + " " + group.Prefix + route.Pattern
		mux.HandleFunc(pattern, route.Handler)
	}
	return mux
}

func send(mux *http.ServeMux, method, target, body string, actor uuid.UUID) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req = req.WithContext(auth.WithActor(req.Context(), actor))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandlerRecord(t *testing.T) {
	sys := &mockSystem{
		recordFn: func(_ context.Context, cmd conflicts.RecordCommand) (*conflicts.Record, error) {
			rec, err := policy.Resolve(cmd.Input)
			if err != nil {
				return nil, err
			}
			return &rec, nil
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mux := setupMux(conflicts.NewHandler(sys, authorizer, logger, pagination.Config{}))

	body := `{"subject": "road", "external_source_id": "osm",
		"field_claim": {"state": "blocked"}, "external_claim": {"state": "open"}}`

	assert.Equal(t, http.StatusCreated, send(mux, "POST", "/conflicts", body, researcher).Code)
	assert.Equal(t, http.StatusForbidden, send(mux, "POST", "/conflicts", body, uuid.New()).Code)

	agree := `{"subject": "road", "external_source_id": "osm",
		"field_claim": {"state": "open"}, "external_claim": {"state": "open"}}`
	assert.Equal(t, http.StatusUnprocessableEntity, send(mux, "POST", "/conflicts", agree, researcher).Code)
}

func TestHandlerMarkActionTaken(t *testing.T) {
	var gotActor uuid.UUID
	sys := &mockSystem{
		markFn: func(_ context.Context, id, actorID uuid.UUID) (*conflicts.Record, error) {
			gotActor = actorID
			return &conflicts.Record{ID: id, ActionTaken: true}, nil
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mux := setupMux(conflicts.NewHandler(sys, authorizer, logger, pagination.Config{}))

	target := "/conflicts/" + uuid.NewString() + "/action"

	assert.Equal(t, http.StatusForbidden, send(mux, "POST", target, "", researcher).Code)
	assert.Equal(t, http.StatusOK, send(mux, "POST", target, "", moderator).Code)
	assert.Equal(t, moderator, gotActor)
}
