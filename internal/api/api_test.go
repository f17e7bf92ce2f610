package api_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/warden/internal/api"
	"github.com/JaimeStill/warden/internal/config"
	"github.com/JaimeStill/warden/internal/infrastructure"
	"github.com/JaimeStill/warden/pkg/module"
)

const testConfig = `
[database]
name = "warden"
user = "warden"

[moderation]
endpoint = "http://127.0.0.1:1/analyze"

[rate_limit.classes.ai]
limit = 1
window = "1m"
`

func loadConfig(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.BaseConfigFile), []byte(testConfig), 0o644))

	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(orig) })

	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func newModule(t *testing.T) *module.Module {
	t.Helper()

	cfg := loadConfig(t)
	infra, err := infrastructure.NewWithOutput(cfg, io.Discard)
	require.NoError(t, err)
	t.Cleanup(func() { infra.Database.Connection().Close() })

	m, err := api.NewModule(cfg, infra)
	require.NoError(t, err)
	return m
}

func serve(m *module.Module, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "192.0.2.10:5000"
	rec := httptest.NewRecorder()
	m.Serve(rec, req)
	return rec
}

func TestNewModulePrefix(t *testing.T) {
	assert.Equal(t, "/api", newModule(t).Prefix())
}

func TestNewRuntime(t *testing.T) {
	cfg := loadConfig(t)
	infra, err := infrastructure.NewWithOutput(cfg, io.Discard)
	require.NoError(t, err)
	defer infra.Database.Connection().Close()

	runtime := api.NewRuntime(cfg, infra)

	assert.Equal(t, 20, runtime.Pagination.DefaultPageSize)
	assert.NotNil(t, runtime.Auth)
	assert.NotNil(t, runtime.Limiter)
	assert.Same(t, infra.Lifecycle, runtime.Lifecycle)

	rule, ok := runtime.Limiter.Rule("ai")
	require.True(t, ok)
	assert.Equal(t, 1, rule.Limit)
}

func TestOpenAPIDocument(t *testing.T) {
	rec := serve(newModule(t), http.MethodGet, "/api/openapi.json", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var doc struct {
		Info  struct{ Title string }    `json:"info"`
		Paths map[string]map[string]any `json:"paths"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&doc))

	assert.Equal(t, "Warden API", doc.Info.Title)
	assert.Contains(t, doc.Paths, "/api/reports/{id}")
	assert.Contains(t, doc.Paths["/api/reports/{id}"], "patch")
	assert.Contains(t, doc.Paths, "/api/moderation/evaluate")
}

func TestProtectedRouteRequiresActor(t *testing.T) {
	rec := serve(newModule(t), http.MethodPost, "/api/moderation/evaluate", `{"text":"hello"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoutesAreThrottledByClass(t *testing.T) {
	m := newModule(t)

	first := serve(m, http.MethodPost, "/api/moderation/evaluate", `{}`)
	assert.Equal(t, http.StatusUnauthorized, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))

	second := serve(m, http.MethodPost, "/api/moderation/evaluate", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
}
