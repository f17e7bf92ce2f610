// Package lifecycle coordinates startup and shutdown hooks and aggregates
// subsystem readiness.
//
// Shutdown runs in two phases. Drain hooks stop intake and flush in-flight
// work one at a time, newest registration first. Shutdown hooks then release
// resources concurrently.
package lifecycle

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"
)

// ReadinessChecker reports whether a subsystem is ready to serve traffic.
type ReadinessChecker interface {
	Ready() bool
}

// Coordinator manages startup and shutdown hooks for the application lifecycle.
type Coordinator struct {
	ctx       context.Context
	cancel    context.CancelFunc
	startupWg sync.WaitGroup

	mu        sync.RWMutex
	started   bool
	checkers  map[string]ReadinessChecker
	drains    []func()
	shutdowns []func()
}

// New creates a Coordinator with a cancellable context.
func New() *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		ctx:      ctx,
		cancel:   cancel,
		checkers: make(map[string]ReadinessChecker),
	}
}

// Context returns the coordinator's context, cancelled on shutdown.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// OnStartup registers a function to run concurrently during startup.
func (c *Coordinator) OnStartup(fn func()) {
	c.startupWg.Go(fn)
}

// OnDrain registers a function run during the first shutdown phase, after
// the context is cancelled and before any shutdown hook.
func (c *Coordinator) OnDrain(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drains = append(c.drains, fn)
}

// OnShutdown registers a function run concurrently once every drain hook has
// returned. The context is already cancelled when it runs.
func (c *Coordinator) OnShutdown(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shutdowns = append(c.shutdowns, fn)
}

// Register adds a named readiness checker. Registering a name twice replaces
// the earlier checker.
func (c *Coordinator) Register(name string, checker ReadinessChecker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkers[name] = checker
}

// Ready returns true once startup hooks have completed and every registered
// checker reports ready.
func (c *Coordinator) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.started {
		return false
	}
	for _, checker := range c.checkers {
		if !checker.Ready() {
			return false
		}
	}
	return true
}

// Status reports readiness per registered checker plus the "startup" phase.
func (c *Coordinator) Status() map[string]bool {
	c.mu.RLock()
	checkers := maps.Clone(c.checkers)
	started := c.started
	c.mu.RUnlock()

	status := make(map[string]bool, len(checkers)+1)
	status["startup"] = started
	for name, checker := range checkers {
		status[name] = checker.Ready()
	}
	return status
}

// WaitForStartup blocks until all startup hooks have completed.
func (c *Coordinator) WaitForStartup() {
	c.startupWg.Wait()
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()
}

// Shutdown cancels the context, runs drain hooks then shutdown hooks, and
// waits for both phases within the given timeout.
func (c *Coordinator) Shutdown(timeout time.Duration) error {
	c.cancel()

	c.mu.RLock()
	drains := slices.Clone(c.drains)
	shutdowns := slices.Clone(c.shutdowns)
	c.mu.RUnlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, fn := range slices.Backward(drains) {
			fn()
		}
		var wg sync.WaitGroup
		for _, fn := range shutdowns {
			wg.Go(fn)
		}
		wg.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timeout after %v", timeout)
	}
}

// ReadyFunc adapts a function to ReadinessChecker.
type ReadyFunc func() bool

// Ready calls f.
func (f ReadyFunc) Ready() bool { return f() }
