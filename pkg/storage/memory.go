package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/JaimeStill/warden/pkg/lifecycle"
)

type memory struct {
	objects *xsync.MapOf[string, []byte]
}

// NewMemory creates an archive held in process memory, for local runs
// without Azure and for tests.
func NewMemory() System {
	return &memory{objects: xsync.NewMapOf[string, []byte]()}
}

func (m *memory) Start(*lifecycle.Coordinator) error { return nil }

func (m *memory) Put(_ context.Context, key string, r io.Reader, _ string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	if _, loaded := m.objects.LoadOrStore(key, data); loaded {
		return fmt.Errorf("%w: %s", ErrExists, key)
	}
	return nil
}

func (m *memory) Get(_ context.Context, key string) (io.ReadCloser, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	data, ok := m.objects.Load(key)
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
