package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/warden/internal/config"
	"github.com/JaimeStill/warden/pkg/ratelimit"
	"github.com/JaimeStill/warden/pkg/storage"
)

const baseConfig = `
shutdown_timeout = "30s"
version = "0.1.0"

[server]
host = "0.0.0.0"
port = 8080
read_timeout = "1m"
write_timeout = "15m"
shutdown_timeout = "30s"

[database]
host = "localhost"
port = 5432
name = "warden"
user = "warden"
password = "warden"

[storage]
container = "evidence"

[api]
base_path = "/api"

[api.pagination]
default_page_size = 25
max_page_size = 50

[moderation]
endpoint = "http://localhost:9000/analyze"
block_threshold = 0.8
warn_threshold = 0.4

[rate_limit.classes.report]
limit = 3
window = "10m"

[jury]
quorum = 7

[conflicts]
trust_margin = 15
`

const overlayConfig = `
[server]
port = 9090

[database]
host = "prodhost"

[moderation]
failure_mode = "open"
`

// minimalConfig carries only what validation requires.
const minimalConfig = `
[database]
name = "warden"
user = "warden"

[moderation]
endpoint = "http://localhost:9000/analyze"
`

func writeConfig(t *testing.T, dir, filename, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(content), 0644))
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(orig) })
}

func load(t *testing.T, files map[string]string) (*config.Config, error) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		writeConfig(t, dir, name, content)
	}
	chdir(t, dir)
	return config.Load()
}

func TestLoad(t *testing.T) {
	cfg, err := load(t, map[string]string{"config.toml": baseConfig})
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "evidence", cfg.Storage.Container)
	assert.Equal(t, storage.BackendMemory, cfg.Storage.Backend())
	assert.Equal(t, "/api", cfg.API.BasePath)
	assert.Equal(t, 25, cfg.API.Pagination.DefaultPageSize)
	assert.Equal(t, 50, cfg.API.Pagination.MaxPageSize)
	assert.Equal(t, 0.8, cfg.Moderation.BlockThreshold)
	assert.Equal(t, 7, cfg.Jury.Quorum)
	assert.Equal(t, 15, cfg.Conflicts.TrustMargin)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeoutDuration())
}

func TestLoadRateLimitOverridesOneClass(t *testing.T) {
	cfg, err := load(t, map[string]string{"config.toml": baseConfig})
	require.NoError(t, err)

	rules := cfg.RateLimit.Rules()
	assert.Equal(t, ratelimit.Rule{Limit: 3, Window: 10 * time.Minute}, rules[ratelimit.Report])
	assert.Equal(t, ratelimit.DefaultRules()[ratelimit.Auth], rules[ratelimit.Auth])
}

func TestLoadWithOverlay(t *testing.T) {
	t.Setenv(config.EnvWardenEnv, "staging")

	cfg, err := load(t, map[string]string{
		"config.toml":         baseConfig,
		"config.staging.toml": overlayConfig,
	})
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "prodhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.False(t, cfg.Moderation.FailsClosed())
	assert.Equal(t, "staging", cfg.Env())
}

func TestLoadEnvVarOverrides(t *testing.T) {
	t.Setenv("WARDEN_VERSION", "2.0.0")
	t.Setenv("WARDEN_SERVER_PORT", "3000")
	t.Setenv("WARDEN_JURY_QUORUM", "3")
	t.Setenv("WARDEN_JURY_VOTING_WINDOW", "24h")
	t.Setenv("WARDEN_TRUST_REVIEW_FLOOR", "40")
	t.Setenv("WARDEN_RATE_LIMIT_AUTH_LIMIT", "5")
	t.Setenv("WARDEN_PAGE_SIZE", "10")

	cfg, err := load(t, map[string]string{"config.toml": baseConfig})
	require.NoError(t, err)

	assert.Equal(t, "2.0.0", cfg.Version)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Jury.Quorum)
	assert.Equal(t, 24*time.Hour, cfg.Jury.VotingWindowDuration())
	assert.Equal(t, 40, cfg.Trust.ReviewFloor)
	assert.Equal(t, 5, cfg.RateLimit.Rules()[ratelimit.Auth].Limit)
	assert.Equal(t, 10, cfg.API.Pagination.DefaultPageSize)
}

func TestLoadNoConfigFile(t *testing.T) {
	t.Setenv("WARDEN_DB_NAME", "testdb")
	t.Setenv("WARDEN_DB_USER", "testuser")
	t.Setenv("WARDEN_MODERATION_ENDPOINT", "http://analyzer")
	t.Setenv("WARDEN_STORAGE_CONNECTION_STRING", "conn")

	cfg, err := load(t, nil)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "testdb", cfg.Database.Name)
	assert.Equal(t, "conn", cfg.Storage.ConnectionString)
	assert.Equal(t, storage.BackendConnectionString, cfg.Storage.Backend())
	assert.Equal(t, "local", cfg.Env())
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(t, map[string]string{"config.toml": minimalConfig})
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.API.Pagination.DefaultPageSize)
	assert.Equal(t, 100, cfg.API.Pagination.MaxPageSize)
	assert.Equal(t, int64(1024*1024), cfg.API.MaxBodySizeBytes())
	assert.Equal(t, "Warden API", cfg.API.OpenAPI.Title)
	assert.True(t, cfg.Moderation.FailsClosed())
	assert.False(t, cfg.Auth.Enabled)
	assert.Equal(t, 5, cfg.Jury.Quorum)
	assert.Empty(t, cfg.Notifications.WebhookURL)
	assert.Nil(t, cfg.Agent.Provider, "agent is only finalized for the agent analyzer")
}

func TestLoadMaxBodySize(t *testing.T) {
	t.Setenv("WARDEN_API_MAX_BODY_SIZE", "2MB")

	cfg, err := load(t, map[string]string{"config.toml": minimalConfig})
	require.NoError(t, err)
	assert.Equal(t, int64(2*1024*1024), cfg.API.MaxBodySizeBytes())
}

func TestLoadAgentAnalyzer(t *testing.T) {
	t.Setenv("WARDEN_MODERATION_ANALYZER", "agent")

	cfg, err := load(t, map[string]string{"config.toml": `
[database]
name = "warden"
user = "warden"

[agent]
name = "moderator-agent"
`})
	require.NoError(t, err)

	assert.Equal(t, "moderator-agent", cfg.Agent.Name)
	require.NotNil(t, cfg.Agent.Provider)
	assert.Equal(t, "ollama", cfg.Agent.Provider.Name)
	require.NotNil(t, cfg.Agent.Model)
}

func TestAgentEnvOverrides(t *testing.T) {
	t.Setenv("WARDEN_MODERATION_ANALYZER", "agent")
	t.Setenv("WARDEN_AGENT_PROVIDER_NAME", "azure")
	t.Setenv("WARDEN_AGENT_BASE_URL", "https://myendpoint.openai.azure.com")
	t.Setenv("WARDEN_AGENT_MODEL_NAME", "gpt-5-mini")
	t.Setenv("WARDEN_AGENT_TOKEN", "test-token")
	t.Setenv("WARDEN_AGENT_DEPLOYMENT", "gpt-5-mini")
	t.Setenv("WARDEN_AGENT_API_VERSION", "2024-12-01-preview")
	t.Setenv("WARDEN_AGENT_AUTH_TYPE", "api_key")

	cfg, err := load(t, map[string]string{"config.toml": minimalConfig})
	require.NoError(t, err)

	assert.Equal(t, "azure", cfg.Agent.Provider.Name)
	assert.Equal(t, "https://myendpoint.openai.azure.com", cfg.Agent.Provider.BaseURL)
	assert.Equal(t, "gpt-5-mini", cfg.Agent.Model.Name)

	opts := cfg.Agent.Provider.Options
	assert.Equal(t, "test-token", opts["token"])
	assert.Equal(t, "gpt-5-mini", opts["deployment"])
	assert.Equal(t, "2024-12-01-preview", opts["api_version"])
	assert.Equal(t, "api_key", opts["auth_type"])
}

func TestAgentAzureRequiresDeployment(t *testing.T) {
	t.Setenv("WARDEN_MODERATION_ANALYZER", "agent")
	t.Setenv("WARDEN_AGENT_PROVIDER_NAME", "azure")
	t.Setenv("WARDEN_AGENT_BASE_URL", "https://myendpoint.openai.azure.com")

	_, err := load(t, map[string]string{"config.toml": minimalConfig})
	assert.ErrorContains(t, err, "deployment")
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		wantErr string
	}{
		{
			name:    "invalid toml",
			config:  `server = {`,
			wantErr: "parse config",
		},
		{
			name: "invalid port",
			config: minimalConfig + `
[server]
port = 99999
`,
			wantErr: "invalid port",
		},
		{
			name: "invalid read_timeout",
			config: minimalConfig + `
[server]
read_timeout = "bad"
`,
			wantErr: "invalid read_timeout",
		},
		{
			name: "missing database name",
			config: `
[database]
user = "warden"

[moderation]
endpoint = "http://localhost:9000/analyze"
`,
			wantErr: "name required",
		},
		{
			name: "http analyzer without endpoint",
			config: `
[database]
name = "warden"
user = "warden"
`,
			wantErr: "endpoint required",
		},
		{
			name: "warn above block",
			config: minimalConfig + `block_threshold = 0.3
warn_threshold = 0.5
`,
			wantErr: "warn_threshold cannot exceed block_threshold",
		},
		{
			name: "enabled auth without issuer",
			config: minimalConfig + `
[auth]
enabled = true
`,
			wantErr: "issuer required",
		},
		{
			name: "zero body size",
			config: minimalConfig + `
[api]
max_body_size = "0"
`,
			wantErr: "invalid max_body_size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(t, map[string]string{"config.toml": tt.config})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadDatabaseIgnoresOtherSections(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", `
[database]
host = "db.internal"
name = "warden"
user = "migrator"
password = "pw"

[moderation]
analyzer = "http"
`)
	chdir(t, dir)
	t.Setenv("WARDEN_DB_PORT", "6543")

	db, err := config.LoadDatabase()
	require.NoError(t, err)

	assert.Equal(t, "postgres://migrator:pw@db.internal:6543/warden?sslmode=disable", db.URL())
}

func TestLoadLogSettings(t *testing.T) {
	t.Setenv("WARDEN_LOG_LEVEL", "debug")
	t.Setenv("WARDEN_LOG_FORMAT", "JSON")

	cfg, err := load(t, map[string]string{"config.toml": minimalConfig})
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Server.LogFormat)
	assert.Equal(t, slog.LevelDebug, cfg.Server.Level())
}

func TestLoadRejectsUnknownLogFormat(t *testing.T) {
	t.Setenv("WARDEN_LOG_FORMAT", "xml")

	_, err := load(t, map[string]string{"config.toml": minimalConfig})
	assert.ErrorContains(t, err, "invalid log_format")
}
