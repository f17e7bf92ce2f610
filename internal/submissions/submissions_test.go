package submissions_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/warden/internal/audit"
	"github.com/JaimeStill/warden/internal/content"
	"github.com/JaimeStill/warden/internal/moderation"
	"github.com/JaimeStill/warden/internal/reports"
	"github.com/JaimeStill/warden/internal/submissions"
	"github.com/JaimeStill/warden/pkg/auth"
	"github.com/JaimeStill/warden/pkg/faults"
	"github.com/JaimeStill/warden/pkg/repository"
)

type mockContent struct {
	created []content.CreateCommand
}

func (m *mockContent) Find(context.Context, content.Ref) (*content.Item, error) {
	return nil, content.ErrNotFound
}

func (m *mockContent) Create(_ context.Context, cmd content.CreateCommand) (*content.Item, error) {
	m.created = append(m.created, cmd)
	return &content.Item{
		Type:      cmd.Type,
		ID:        cmd.ID,
		AuthorID:  cmd.AuthorID,
		Title:     cmd.Title,
		Body:      cmd.Body,
		CreatedAt: time.Now(),
	}, nil
}

func (m *mockContent) Remove(context.Context, repository.Executor, content.Ref) error {
	return nil
}

func (m *mockContent) Restore(context.Context, repository.Executor, content.Ref) (bool, error) {
	return false, nil
}

type gateFunc func(ctx context.Context, req moderation.Request) (moderation.Decision, error)

func (f gateFunc) Evaluate(ctx context.Context, req moderation.Request) (moderation.Decision, error) {
	return f(ctx, req)
}

type mockFiler struct {
	filed []reports.FileCommand
	err   error
}

func (m *mockFiler) File(_ context.Context, cmd reports.FileCommand) (*reports.Report, error) {
	m.filed = append(m.filed, cmd)
	if m.err != nil {
		return nil, m.err
	}
	return &reports.Report{ID: uuid.New(), ContentID: cmd.ContentID, Status: reports.Pending}, nil
}

var policy = moderation.Policy{
	BlockThreshold:           0.85,
	WarnThreshold:            0.5,
	PlagiarismBlockThreshold: 0.9,
	PlagiarismWarnThreshold:  0.6,
}

func decide(sig moderation.Signal) gateFunc {
	return func(context.Context, moderation.Request) (moderation.Decision, error) {
		return policy.Apply(sig), nil
	}
}

func allowAll(context.Context, uuid.UUID) error { return nil }

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func post(author uuid.UUID) submissions.SubmitCommand {
	return submissions.SubmitCommand{
		AuthorID:    author,
		ContentType: content.Post,
		Title:       "water point",
		Body:        "  new water point opened at the school  ",
	}
}

func TestSubmitPublishesWithWarnings(t *testing.T) {
	store := &mockContent{}
	filer := &mockFiler{}
	recorder := audit.NewMemory()

	gate := decide(moderation.Signal{
		Moderation: moderation.ModerationDetail{Categories: map[string]float64{"spam": 0.6}},
	})
	sys := submissions.New(store, gate, filer, allowAll, recorder, discard())

	author := uuid.New()
	result, err := sys.Submit(context.Background(), post(author))
	require.NoError(t, err)

	assert.Equal(t, submissions.Published, result.Status)
	require.NotNil(t, result.Item)
	assert.Equal(t, author, result.Item.AuthorID)
	assert.Equal(t, "new water point opened at the school", result.Item.Body)
	assert.Equal(t, []string{"flagged: spam"}, result.Warnings)

	assert.Len(t, store.created, 1)
	assert.Empty(t, filer.filed)
	assert.NotContains(t, recorder.Actions(), "content_blocked")
}

func TestSubmitQuarantinesBlockedContent(t *testing.T) {
	store := &mockContent{}
	filer := &mockFiler{}
	recorder := audit.NewMemory()

	gate := decide(moderation.Signal{
		Moderation: moderation.ModerationDetail{Flagged: true, Categories: map[string]float64{"violence": 0.95}},
	})
	sys := submissions.New(store, gate, filer, allowAll, recorder, discard())

	author := uuid.New()
	_, err := sys.Submit(context.Background(), post(author))

	var blocked *submissions.BlockedError
	require.True(t, errors.As(err, &blocked))
	assert.ErrorIs(t, err, submissions.ErrBlocked)
	assert.Equal(t, []string{"blocked: violence"}, blocked.Warnings)
	require.NotNil(t, blocked.ReportID)

	assert.Empty(t, store.created, "blocked content must not be stored")

	require.Len(t, filer.filed, 1)
	filed := filer.filed[0]
	assert.Nil(t, filed.ReporterID)
	require.NotNil(t, filed.Snapshot)
	assert.Equal(t, author, filed.Snapshot.AuthorID)
	assert.Equal(t, filed.ContentID, filed.Snapshot.ID)
	assert.Equal(t, "new water point opened at the school", filed.Snapshot.Body)
	assert.Contains(t, filed.Reason, "blocked: violence")

	sig, ok := filed.ModerationData.(*moderation.Signal)
	require.True(t, ok)
	assert.Equal(t, 0.95, sig.Moderation.Categories["violence"])

	entries := recorder.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "content_blocked", entries[0].Action)
	assert.Equal(t, blocked.ReportID.String(), entries[0].Metadata["report_id"])
}

func TestSubmitFailsWhenReportCannotBeFiled(t *testing.T) {
	store := &mockContent{}
	filer := &mockFiler{err: errors.New("database unavailable")}
	rec := audit.NewMemory()

	gate := gateFunc(func(context.Context, moderation.Request) (moderation.Decision, error) {
		return moderation.Fallback(true), nil
	})
	sys := submissions.New(store, gate, filer, allowAll, rec, discard())

	result, err := sys.Submit(context.Background(), post(uuid.New()))
	require.Error(t, err)
	assert.Nil(t, result)

	var blocked *submissions.BlockedError
	assert.False(t, errors.As(err, &blocked))
	assert.Equal(t, http.StatusInternalServerError, submissions.MapHTTPStatus(err))

	assert.Empty(t, store.created)
	assert.Empty(t, rec.Actions())
}

func TestSubmitValidatesBeforeModeration(t *testing.T) {
	called := false
	gate := gateFunc(func(context.Context, moderation.Request) (moderation.Decision, error) {
		called = true
		return moderation.Decision{}, nil
	})
	sys := submissions.New(&mockContent{}, gate, &mockFiler{}, allowAll, audit.NewMemory(), discard())

	cmd := post(uuid.New())
	cmd.Title = ""
	_, err := sys.Submit(context.Background(), cmd)
	assert.ErrorIs(t, err, content.ErrTitleRequired)

	cmd = post(uuid.New())
	cmd.ContentType = content.Comment
	_, err = sys.Submit(context.Background(), cmd)
	assert.ErrorIs(t, err, content.ErrPostRequired)

	assert.False(t, called)
}

func TestSubmitRequiresPermission(t *testing.T) {
	deny := func(context.Context, uuid.UUID) error { return faults.ErrUnauthorized }
	sys := submissions.New(&mockContent{}, decide(moderation.Signal{}), &mockFiler{}, deny, audit.NewMemory(), discard())

	_, err := sys.Submit(context.Background(), post(uuid.New()))
	assert.ErrorIs(t, err, faults.ErrUnauthorized)
}

func TestHandlerSubmit(t *testing.T) {
	gate := gateFunc(func(_ context.Context, req moderation.Request) (moderation.Decision, error) {
		if strings.Contains(req.Text, "forbidden") {
			return policy.Apply(moderation.Signal{ShouldBlock: true, Warnings: []string{"policy violation"}}), nil
		}
		return policy.Apply(moderation.Signal{}), nil
	})
	store := &mockContent{}
	sys := submissions.New(store, gate, &mockFiler{}, allowAll, audit.NewMemory(), discard())
	h := sys.Handler()

	mux := http.NewServeMux()
	group := h.Routes()
	for _, route := range group.Routes {
		mux.HandleFunc(route.Method+" "+group.Prefix+route.Pattern, route.Handler)
	}

	send := func(body string, actor *uuid.UUID) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/submissions", strings.NewReader(body))
		if actor != nil {
			req = req.WithContext(auth.WithActor(req.Context(), *actor))
		}
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec
	}

	author := uuid.New()

	rec := send(`{"content_type": "post", "title": "t", "body": "fine"}`, &author)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, store.created, 1)
	assert.Equal(t, author, store.created[0].AuthorID)

	rec = send(`{"content_type": "post", "title": "t", "body": "forbidden"}`, &author)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body struct {
		Error    string   `json:"error"`
		Warnings []string `json:"warnings"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, []string{"policy violation"}, body.Warnings)

	assert.Equal(t, http.StatusBadRequest, send(`{"content_type": "video", "body": "x"}`, &author).Code)
	assert.Equal(t, http.StatusUnauthorized, send(`{}`, nil).Code)
	assert.Equal(t, "write", group.Routes[0].Class)
}
