package storage_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/warden/pkg/storage"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=wardenstore;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/wardenstore;"

func TestNewReturnsSystem(t *testing.T) {
	cfg := &storage.Config{
		Container:        "evidence",
		ConnectionString: azuriteConnString,
	}

	sys, err := storage.New(cfg, slog.Default())
	require.NoError(t, err)
	assert.NotNil(t, sys)
}

func TestNewInvalidConnectionString(t *testing.T) {
	cfg := &storage.Config{
		Container:        "evidence",
		ConnectionString: "not-a-connection-string",
	}

	_, err := storage.New(cfg, slog.Default())
	assert.Error(t, err)
}

func TestNewRequiresEndpoint(t *testing.T) {
	_, err := storage.New(&storage.Config{Container: "evidence"}, slog.Default())
	assert.ErrorContains(t, err, "connection_string or account_url required")
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", storage.ErrNotFound, http.StatusNotFound},
		{"exists", storage.ErrExists, http.StatusConflict},
		{"empty key", storage.ErrEmptyKey, http.StatusBadRequest},
		{"invalid key", storage.ErrInvalidKey, http.StatusBadRequest},
		{"wrapped not found", fmt.Errorf("operation failed: %w", storage.ErrNotFound), http.StatusNotFound},
		{"unknown", fmt.Errorf("unexpected failure"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, storage.MapHTTPStatus(tt.err))
		})
	}
}

func TestKeyValidation(t *testing.T) {
	cfg := &storage.Config{
		Container:        "evidence",
		ConnectionString: azuriteConnString,
	}

	azure, err := storage.New(cfg, slog.Default())
	require.NoError(t, err)

	systems := map[string]storage.System{
		"azure":  azure,
		"memory": storage.NewMemory(),
	}

	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"empty key", "", storage.ErrEmptyKey},
		{"path traversal", "reports/../secrets/key", storage.ErrInvalidKey},
		{"double dot in middle", "reports/..hidden/snapshot.json", storage.ErrInvalidKey},
	}

	ctx := context.Background()

	for sysName, sys := range systems {
		for _, tt := range tests {
			t.Run(sysName+"/"+tt.name, func(t *testing.T) {
				err := sys.Put(ctx, tt.key, bytes.NewReader(nil), "application/json")
				assert.True(t, errors.Is(err, tt.wantErr), "Put() error = %v", err)

				_, err = sys.Get(ctx, tt.key)
				assert.True(t, errors.Is(err, tt.wantErr), "Get() error = %v", err)
			})
		}
	}
}

func TestMemoryIsWriteOnce(t *testing.T) {
	ctx := context.Background()
	sys := storage.NewMemory()
	key := "reports/abc/snapshot.json"

	_, err := sys.Get(ctx, key)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, sys.Put(ctx, key, bytes.NewBufferString(`{"a":1}`), "application/json"))

	err = sys.Put(ctx, key, bytes.NewBufferString(`{"a":2}`), "application/json")
	assert.ErrorIs(t, err, storage.ErrExists)

	rc, err := sys.Get(ctx, key)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.JSONEq(t, `{"a":1}`, string(body), "first write wins")
}
