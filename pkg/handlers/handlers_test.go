package handlers_test

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/warden/pkg/faults"
	"github.com/JaimeStill/warden/pkg/handlers"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRespondJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	handlers.RespondJSON(rec, http.StatusCreated, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "value", decode(t, rec)["key"])
}

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()
	handlers.RespondError(rec, discard(), http.StatusBadRequest, errors.New("invalid input"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid input", decode(t, rec)["error"])
}

func TestRespondErrorHidesPermissionDetail(t *testing.T) {
	err := faults.New(faults.ErrUnauthorized, "role member may not perform report.review")

	rec := httptest.NewRecorder()
	handlers.RespondError(rec, discard(), http.StatusForbidden, err)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, faults.ErrUnauthorized.Error(), decode(t, rec)["error"])
}

func TestRespondRetryAfter(t *testing.T) {
	tests := []struct {
		name       string
		retryAfter time.Duration
		want       string
	}{
		{"rounds up", 1500 * time.Millisecond, "2"},
		{"whole seconds", 30 * time.Second, "30"},
		{"never below one", 0, "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handlers.RespondRetryAfter(rec, discard(), tt.retryAfter, errors.New("rate limit exceeded"))

			assert.Equal(t, http.StatusTooManyRequests, rec.Code)
			assert.Equal(t, tt.want, rec.Header().Get("Retry-After"))
		})
	}
}
