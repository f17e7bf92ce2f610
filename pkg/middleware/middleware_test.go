package middleware_test

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/warden/pkg/auth"
	"github.com/JaimeStill/warden/pkg/middleware"
	"github.com/JaimeStill/warden/pkg/ratelimit"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ok(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestStackOrder(t *testing.T) {
	var order []string
	tag := func(name string) middleware.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	s := middleware.New()
	s.Use(tag("first"), nil, tag("second"))
	s.Use(tag("third"))
	require.Equal(t, 3, s.Len())

	handler := s.Apply(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"first", "second", "third", "handler"}, order)
}

func corsConfig(t *testing.T, cfg middleware.CORSConfig) *middleware.CORSConfig {
	t.Helper()
	require.NoError(t, cfg.Finalize(nil))
	return &cfg
}

func TestCORSDisabledPassesThrough(t *testing.T) {
	cfg := corsConfig(t, middleware.CORSConfig{Origins: []string{"http://example.com"}})
	handler := middleware.CORS(cfg)(http.HandlerFunc(ok))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSAllowedOrigin(t *testing.T) {
	cfg := corsConfig(t, middleware.CORSConfig{
		Enabled:          true,
		Origins:          []string{"http://example.com"},
		AllowCredentials: true,
	})
	handler := middleware.CORS(cfg)(http.HandlerFunc(ok))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	h := rec.Header()
	assert.Equal(t, "http://example.com", h.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, PUT, PATCH, OPTIONS", h.Get("Access-Control-Allow-Methods"))
	assert.Contains(t, h.Get("Access-Control-Expose-Headers"), "Retry-After")
	assert.Equal(t, "true", h.Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "3600", h.Get("Access-Control-Max-Age"))
	assert.Equal(t, "Origin", h.Get("Vary"))
}

func TestCORSDisallowedOrigin(t *testing.T) {
	cfg := corsConfig(t, middleware.CORSConfig{
		Enabled: true,
		Origins: []string{"http://example.com"},
	})
	handler := middleware.CORS(cfg)(http.HandlerFunc(ok))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight(t *testing.T) {
	cfg := corsConfig(t, middleware.CORSConfig{
		Enabled: true,
		Origins: []string{"http://example.com"},
	})

	var reached bool
	handler := middleware.CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/reports", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, reached)
}

func TestCORSConfigFinalizeEnv(t *testing.T) {
	t.Setenv("TEST_CORS_ENABLED", "true")
	t.Setenv("TEST_CORS_ORIGINS", "http://a.com, ,http://b.com")
	t.Setenv("TEST_CORS_CREDS", "true")

	cfg := middleware.CORSConfig{}
	require.NoError(t, cfg.Finalize(&middleware.CORSEnv{
		Enabled:          "TEST_CORS_ENABLED",
		Origins:          "TEST_CORS_ORIGINS",
		AllowCredentials: "TEST_CORS_CREDS",
	}))

	assert.True(t, cfg.Enabled)
	assert.Equal(t, []string{"http://a.com", "http://b.com"}, cfg.Origins)
	assert.True(t, cfg.AllowCredentials)
}

func TestCORSConfigMerge(t *testing.T) {
	base := middleware.CORSConfig{
		Enabled: true,
		Origins: []string{"http://base.com"},
		MaxAge:  3600,
	}

	base.Merge(&middleware.CORSConfig{
		Origins: []string{"http://overlay.com"},
		MaxAge:  7200,
	})

	assert.True(t, base.Enabled, "overlay without enabled must not disable CORS")
	assert.Equal(t, []string{"http://overlay.com"}, base.Origins)
	assert.Equal(t, 7200, base.MaxAge)
}

func TestLoggerRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	handler := middleware.Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short"))
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/reports?page=2", nil))

	out := buf.String()
	assert.Contains(t, out, "status=418")
	assert.Contains(t, out, "bytes=5")
	assert.Contains(t, out, `uri="/reports?page=2"`)
}

func TestLoggerServerErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	handler := middleware.Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Contains(t, buf.String(), "level=ERROR")
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{"remote host", "10.0.0.1:5000", "", "10.0.0.1"},
		{"forwarded first hop", "10.0.0.1:5000", "203.0.113.7, 10.0.0.2", "203.0.113.7"},
		{"no port", "10.0.0.9", "", "10.0.0.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			assert.Equal(t, tt.want, middleware.ClientIP(req))
		})
	}
}

func TestClientInfoStoresClient(t *testing.T) {
	var got middleware.Client
	var found bool
	handler := middleware.ClientInfo()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, found = middleware.ClientFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.4:1234"
	req.Header.Set("User-Agent", "warden-test")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, found)
	assert.Equal(t, "192.0.2.4", got.IP)
	assert.Equal(t, "warden-test", got.UserAgent)
}

func TestBodyLimit(t *testing.T) {
	var readErr error
	handler := middleware.BodyLimit(4)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("ab")))
	assert.NoError(t, readErr)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("abcdefgh")))
	var maxErr *http.MaxBytesError
	assert.ErrorAs(t, readErr, &maxErr)
}

func newThrottler(t *testing.T, limit int, onDeny middleware.DenyHook) *middleware.Throttler {
	t.Helper()
	cfg := &ratelimit.Config{Classes: map[string]ratelimit.RuleConfig{
		"write": {Limit: limit, Window: "1m"},
	}}
	require.NoError(t, cfg.Finalize(nil))
	return middleware.NewThrottler(ratelimit.New(cfg), discard(), onDeny)
}

func TestThrottlerDeniesOverLimit(t *testing.T) {
	var denied []ratelimit.Class
	th := newThrottler(t, 1, func(r *http.Request, class ratelimit.Class, d ratelimit.Decision) {
		denied = append(denied, class)
	})
	handler := th.Wrap(ratelimit.Write, ok)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/reports", nil)
		req.RemoteAddr = "198.51.100.1:4000"
		rec := httptest.NewRecorder()
		handler(rec, req)
		return rec
	}

	first := send()
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", first.Header().Get("X-RateLimit-Remaining"))

	second := send()
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.Equal(t, []ratelimit.Class{ratelimit.Write}, denied)
}

func TestThrottlerKeysByActor(t *testing.T) {
	th := newThrottler(t, 1, nil)
	handler := th.Wrap(ratelimit.Write, ok)

	send := func(actor uuid.UUID) int {
		req := httptest.NewRequest(http.MethodPost, "/reports", nil)
		req.RemoteAddr = "198.51.100.1:4000"
		req = req.WithContext(auth.WithActor(req.Context(), actor))
		rec := httptest.NewRecorder()
		handler(rec, req)
		return rec.Code
	}

	a, b := uuid.New(), uuid.New()
	assert.Equal(t, http.StatusOK, send(a))
	assert.Equal(t, http.StatusOK, send(b), "actors sharing an address get separate buckets")
	assert.Equal(t, http.StatusTooManyRequests, send(a))
}

func TestThrottlerUnknownClass(t *testing.T) {
	th := newThrottler(t, 1, nil)
	rec := httptest.NewRecorder()
	th.Wrap(ratelimit.Class("bogus"), ok)(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestNilThrottlerPassesThrough(t *testing.T) {
	var th *middleware.Throttler
	rec := httptest.NewRecorder()
	th.Wrap(ratelimit.Write, ok)(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
