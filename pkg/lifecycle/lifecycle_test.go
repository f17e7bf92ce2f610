package lifecycle_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/warden/pkg/lifecycle"
)

func TestReadyAfterStartupHooks(t *testing.T) {
	lc := lifecycle.New()
	assert.False(t, lc.Ready())

	var count atomic.Int32
	for range 3 {
		lc.OnStartup(func() { count.Add(1) })
	}

	lc.WaitForStartup()

	assert.True(t, lc.Ready())
	assert.Equal(t, int32(3), count.Load())
}

func TestShutdownRunsHooksAfterCancel(t *testing.T) {
	lc := lifecycle.New()

	var drained atomic.Bool
	lc.OnShutdown(func() {
		<-lc.Context().Done()
		drained.Store(true)
	})

	lc.WaitForStartup()
	require.NoError(t, lc.Shutdown(5*time.Second))

	assert.True(t, drained.Load())
	assert.Error(t, lc.Context().Err())
}

func TestDrainPrecedesShutdown(t *testing.T) {
	lc := lifecycle.New()

	var mu sync.Mutex
	var order []string
	record := func(name string) func() {
		return func() {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
		}
	}

	lc.OnShutdown(record("database"))
	lc.OnDrain(record("audit"))
	lc.OnDrain(record("http"))

	require.NoError(t, lc.Shutdown(5*time.Second))
	assert.Equal(t, []string{"http", "audit", "database"}, order)
}

func TestShutdownTimeout(t *testing.T) {
	lc := lifecycle.New()

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		time.Sleep(500 * time.Millisecond)
	})

	lc.WaitForStartup()
	assert.Error(t, lc.Shutdown(50*time.Millisecond))
}

func TestReadyRequiresEveryChecker(t *testing.T) {
	lc := lifecycle.New()

	var dbReady atomic.Bool
	lc.Register("database", lifecycle.ReadyFunc(dbReady.Load))
	lc.Register("auth", lifecycle.ReadyFunc(func() bool { return true }))

	lc.WaitForStartup()
	assert.False(t, lc.Ready())
	assert.Equal(t, map[string]bool{"startup": true, "database": false, "auth": true}, lc.Status())

	dbReady.Store(true)
	assert.True(t, lc.Ready())
}

func TestStatusBeforeStartup(t *testing.T) {
	lc := lifecycle.New()
	assert.Equal(t, map[string]bool{"startup": false}, lc.Status())
}
