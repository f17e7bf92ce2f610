package reports_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/warden/internal/content"
	"github.com/JaimeStill/warden/internal/identity"
	"github.com/JaimeStill/warden/internal/reports"
	"github.com/JaimeStill/warden/pkg/auth"
	"github.com/JaimeStill/warden/pkg/faults"
	"github.com/JaimeStill/warden/pkg/pagination"
)

type mockSystem struct {
	fileFn     func(ctx context.Context, cmd reports.FileCommand) (*reports.Report, error)
	updateFn   func(ctx context.Context, id, actorID uuid.UUID, cmd reports.UpdateCommand) (*reports.Report, error)
	reopenFn   func(ctx context.Context, id, actorID uuid.UUID, cmd reports.ReopenCommand) (*reports.Report, error)
	evidenceFn func(ctx context.Context, id uuid.UUID) (io.ReadCloser, error)
}

func (m *mockSystem) Handler() *reports.Handler { return nil }

func (m *mockSystem) File(ctx context.Context, cmd reports.FileCommand) (*reports.Report, error) {
	return m.fileFn(ctx, cmd)
}

func (m *mockSystem) Flag(context.Context, content.Ref, string, map[string]any) error {
	return nil
}

func (m *mockSystem) Update(ctx context.Context, id, actorID uuid.UUID, cmd reports.UpdateCommand) (*reports.Report, error) {
	return m.updateFn(ctx, id, actorID, cmd)
}

func (m *mockSystem) Reopen(ctx context.Context, id, actorID uuid.UUID, cmd reports.ReopenCommand) (*reports.Report, error) {
	return m.reopenFn(ctx, id, actorID, cmd)
}

func (m *mockSystem) ApplyAppealOutcome(context.Context, *sql.Tx, uuid.UUID, reports.Outcome) (*reports.Report, error) {
	return nil, nil
}

func (m *mockSystem) Find(_ context.Context, id uuid.UUID) (*reports.Report, error) {
	return &reports.Report{ID: id, Status: reports.Pending}, nil
}

func (m *mockSystem) List(context.Context, pagination.PageRequest, reports.Filters) (*pagination.PageResult[reports.Report], error) {
	result := pagination.NewPageResult([]reports.Report{}, 0, 1, 20)
	return &result, nil
}

func (m *mockSystem) Evidence(ctx context.Context, id uuid.UUID) (io.ReadCloser, error) {
	return m.evidenceFn(ctx, id)
}

var (
	member    = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	moderator = uuid.MustParse("44444444-4444-4444-4444-444444444444")
	admin     = uuid.MustParse("55555555-5555-5555-5555-555555555555")
)

func authorizer(_ context.Context, actor uuid.UUID, op identity.Operation) error {
	role := identity.Member
	switch actor {
	case moderator:
		role = identity.Moderator
	case admin:
		role = identity.Admin
	}
	if !identity.Allowed(role, op) {
		return faults.ErrUnauthorized
	}
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupMux(h *reports.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	group := h.Routes()
	for _, route := range group.Routes {
		pattern := route.Method + " " + group.Prefix + route.Pattern
		mux.HandleFunc(pattern, route.Handler)
	}
	return mux
}

func send(mux *http.ServeMux, method, target, body string, actor *uuid.UUID) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if actor != nil {
		req = req.WithContext(auth.WithActor(req.Context(), *actor))
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandlerFileUsesCaller(t *testing.T) {
	var got reports.FileCommand
	sys := &mockSystem{
		fileFn: func(_ context.Context, cmd reports.FileCommand) (*reports.Report, error) {
			got = cmd
			return &reports.Report{ID: uuid.New(), ReporterID: cmd.ReporterID, Status: reports.Pending}, nil
		},
	}
	mux := setupMux(reports.NewHandler(sys, authorizer, discard(), pagination.Config{}))

	contentID := uuid.New()
	body := `{"content_type": "post", "content_id": "` + contentID.String() + `", "reason": "spam"}`

	rec := send(mux, "POST", "/reports", body, &member)
	require.Equal(t, http.StatusCreated, rec.Code)

	require.NotNil(t, got.ReporterID)
	assert.Equal(t, member, *got.ReporterID)
	assert.Equal(t, content.Post, got.ContentType)
	assert.Equal(t, contentID, got.ContentID)
	assert.Nil(t, got.Snapshot)

	var rep reports.Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&rep))
	assert.Equal(t, reports.Pending, rep.Status)
}

func TestHandlerFileErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"duplicate", reports.ErrDuplicate, http.StatusConflict},
		{"self report", reports.ErrSelfReport, http.StatusBadRequest},
		{"missing content", content.ErrNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys := &mockSystem{
				fileFn: func(context.Context, reports.FileCommand) (*reports.Report, error) {
					return nil, tt.err
				},
			}
			mux := setupMux(reports.NewHandler(sys, authorizer, discard(), pagination.Config{}))

			body := `{"content_type": "post", "content_id": "` + uuid.NewString() + `", "reason": "spam"}`
			assert.Equal(t, tt.status, send(mux, "POST", "/reports", body, &member).Code)
		})
	}
}

func TestHandlerRequiresActor(t *testing.T) {
	mux := setupMux(reports.NewHandler(&mockSystem{}, authorizer, discard(), pagination.Config{}))

	assert.Equal(t, http.StatusUnauthorized, send(mux, "POST", "/reports", `{}`, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, send(mux, "GET", "/reports", "", nil).Code)
}

func TestHandlerListModeratorsOnly(t *testing.T) {
	mux := setupMux(reports.NewHandler(&mockSystem{}, authorizer, discard(), pagination.Config{}))

	assert.Equal(t, http.StatusForbidden, send(mux, "GET", "/reports", "", &member).Code)
	assert.Equal(t, http.StatusOK, send(mux, "GET", "/reports?status=pending", "", &moderator).Code)
	assert.Equal(t, http.StatusForbidden, send(mux, "GET", "/reports/"+uuid.NewString(), "", &member).Code)
	assert.Equal(t, http.StatusOK, send(mux, "GET", "/reports/"+uuid.NewString(), "", &moderator).Code)
}

func TestHandlerUpdate(t *testing.T) {
	id := uuid.New()
	var gotCmd reports.UpdateCommand
	sys := &mockSystem{
		updateFn: func(_ context.Context, reportID, actorID uuid.UUID, cmd reports.UpdateCommand) (*reports.Report, error) {
			gotCmd = cmd
			if err := authorizer(context.Background(), actorID, identity.OpReviewReport); err != nil {
				return nil, err
			}
			return nil, &reports.TransitionError{From: reports.Resolved, To: cmd.Status}
		},
	}
	mux := setupMux(reports.NewHandler(sys, authorizer, discard(), pagination.Config{}))

	body := `{"status": "pending"}`
	assert.Equal(t, http.StatusForbidden, send(mux, "PATCH", "/reports/"+id.String(), body, &member).Code)
	assert.Equal(t, http.StatusConflict, send(mux, "PATCH", "/reports/"+id.String(), body, &moderator).Code)
	assert.Equal(t, reports.Pending, gotCmd.Status)

	assert.Equal(t, http.StatusBadRequest, send(mux, "PATCH", "/reports/not-a-uuid", body, &moderator).Code)
}

func TestHandlerReopenAcceptsEmptyBody(t *testing.T) {
	id := uuid.New()
	sys := &mockSystem{
		reopenFn: func(_ context.Context, reportID, actorID uuid.UUID, cmd reports.ReopenCommand) (*reports.Report, error) {
			if err := authorizer(context.Background(), actorID, identity.OpReopenReport); err != nil {
				return nil, err
			}
			return &reports.Report{ID: reportID, Status: reports.Reviewing}, nil
		},
	}
	mux := setupMux(reports.NewHandler(sys, authorizer, discard(), pagination.Config{}))

	target := "/reports/" + id.String() + "/reopen"
	assert.Equal(t, http.StatusForbidden, send(mux, "POST", target, "", &moderator).Code)
	assert.Equal(t, http.StatusOK, send(mux, "POST", target, "", &admin).Code)
	assert.Equal(t, http.StatusOK, send(mux, "POST", target, `{"reason": "new evidence"}`, &admin).Code)
}

func TestHandlerEvidence(t *testing.T) {
	sys := &mockSystem{
		evidenceFn: func(_ context.Context, id uuid.UUID) (io.ReadCloser, error) {
			if id == uuid.Nil {
				return nil, reports.ErrEvidenceUnavailable
			}
			return io.NopCloser(strings.NewReader(`{"report_id": "` + id.String() + `"}`)), nil
		},
	}
	mux := setupMux(reports.NewHandler(sys, authorizer, discard(), pagination.Config{}))

	id := uuid.New()
	rec := send(mux, "GET", "/reports/"+id.String()+"/evidence", "", &moderator)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), id.String())

	assert.Equal(t, http.StatusNotFound, send(mux, "GET", "/reports/"+uuid.Nil.String()+"/evidence", "", &moderator).Code)
}
