package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/warden/pkg/storage"
)

func TestFinalizeDefaults(t *testing.T) {
	var cfg storage.Config
	require.NoError(t, cfg.Finalize(""))

	assert.Equal(t, storage.DefaultContainer, cfg.Container)
	assert.Equal(t, storage.BackendMemory, cfg.Backend())
}

func TestFinalizeEnvOverrides(t *testing.T) {
	t.Setenv("TEST_STORAGE_CONTAINER", "archive")
	t.Setenv("TEST_STORAGE_ACCOUNT_URL", "https://wardenstore.blob.core.windows.net")

	var cfg storage.Config
	require.NoError(t, cfg.Finalize("TEST_STORAGE"))

	assert.Equal(t, "archive", cfg.Container)
	assert.Equal(t, "https://wardenstore.blob.core.windows.net", cfg.AccountURL)
	assert.Equal(t, storage.BackendAccount, cfg.Backend())

	t.Setenv("TEST_STORAGE_CONNECTION_STRING", "override-connection")
	require.NoError(t, cfg.Finalize("TEST_STORAGE"))
	assert.Equal(t, storage.BackendConnectionString, cfg.Backend())
}

func TestFinalizeValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     storage.Config
		wantErr string
	}{
		{name: "valid account", cfg: storage.Config{Container: "case-files-2026", AccountURL: "https://acct.blob.core.windows.net"}},
		{name: "too short", cfg: storage.Config{Container: "ev"}, wantErr: "not a valid blob container name"},
		{name: "uppercase", cfg: storage.Config{Container: "Evidence"}, wantErr: "not a valid blob container name"},
		{name: "double hyphen", cfg: storage.Config{Container: "case--files"}, wantErr: "not a valid blob container name"},
		{name: "trailing hyphen", cfg: storage.Config{Container: "evidence-"}, wantErr: "not a valid blob container name"},
		{name: "relative account url", cfg: storage.Config{AccountURL: "acct.blob.core.windows.net"}, wantErr: "absolute http(s) URL"},
		{name: "connection string skips url check", cfg: storage.Config{ConnectionString: "conn", AccountURL: "::"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize("")
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestMerge(t *testing.T) {
	base := storage.Config{
		Container:        "evidence",
		ConnectionString: "base-conn",
	}

	base.Merge(&storage.Config{AccountURL: "https://example.blob.core.windows.net"})

	assert.Equal(t, "evidence", base.Container)
	assert.Equal(t, "base-conn", base.ConnectionString)
	assert.Equal(t, "https://example.blob.core.windows.net", base.AccountURL)
	assert.Equal(t, storage.BackendConnectionString, base.Backend())
}
