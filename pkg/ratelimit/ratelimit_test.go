package ratelimit_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/warden/pkg/faults"
	"github.com/JaimeStill/warden/pkg/ratelimit"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newLimiter(t *testing.T, classes map[string]ratelimit.RuleConfig) (*ratelimit.Limiter, *clock) {
	t.Helper()
	cfg := &ratelimit.Config{Classes: classes}
	require.NoError(t, cfg.Finalize(nil))

	c := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return ratelimit.New(cfg, ratelimit.WithClock(c.Now)), c
}

func ptr(s string) *string { return &s }

func TestCheckAdmitsUpToLimit(t *testing.T) {
	l, _ := newLimiter(t, map[string]ratelimit.RuleConfig{
		"auth": {Limit: 5, Window: "15m"},
	})
	actor := ptr("user-1")

	for i := range 5 {
		d, err := l.Check(actor, "10.0.0.1", ratelimit.Auth)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d", i+1)
		assert.Equal(t, 5-(i+1), d.Remaining)
	}

	d, err := l.Check(actor, "10.0.0.1", ratelimit.Auth)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
	assert.Equal(t, 15*time.Minute, d.RetryAfter)
}

func TestCheckResetsAfterWindow(t *testing.T) {
	l, c := newLimiter(t, map[string]ratelimit.RuleConfig{
		"write": {Limit: 2, Window: "1m"},
	})
	actor := ptr("user-1")

	for range 2 {
		d, _ := l.Check(actor, "", ratelimit.Write)
		require.True(t, d.Allowed)
	}

	c.Advance(30 * time.Second)
	d, _ := l.Check(actor, "", ratelimit.Write)
	assert.False(t, d.Allowed)
	assert.Equal(t, 30*time.Second, d.RetryAfter)

	c.Advance(30 * time.Second)
	d, _ = l.Check(actor, "", ratelimit.Write)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
}

func TestCheckIsolatesIdentityAndClass(t *testing.T) {
	l, _ := newLimiter(t, map[string]ratelimit.RuleConfig{
		"report": {Limit: 1, Window: "1h"},
	})

	d, _ := l.Check(ptr("a"), "10.0.0.1", ratelimit.Report)
	assert.True(t, d.Allowed)

	d, _ = l.Check(ptr("b"), "10.0.0.1", ratelimit.Report)
	assert.True(t, d.Allowed, "other actor has its own bucket")

	d, _ = l.Check(ptr("a"), "10.0.0.1", ratelimit.Write)
	assert.True(t, d.Allowed, "other class has its own bucket")

	d, _ = l.Check(nil, "10.0.0.1", ratelimit.Report)
	assert.True(t, d.Allowed, "anonymous requests are keyed by fallback")

	d, _ = l.Check(nil, "10.0.0.1", ratelimit.Report)
	assert.False(t, d.Allowed)
}

func TestCheckUnknownClass(t *testing.T) {
	l, _ := newLimiter(t, nil)

	_, err := l.Check(ptr("a"), "", ratelimit.Class("bogus"))
	require.Error(t, err)
	assert.ErrorIs(t, err, faults.ErrValidation)
}

func TestAllowReturnsExceededError(t *testing.T) {
	l, _ := newLimiter(t, map[string]ratelimit.RuleConfig{
		"ai": {Limit: 1, Window: "1h"},
	})

	_, err := l.Allow(ptr("a"), "", ratelimit.AI)
	require.NoError(t, err)

	_, err = l.Allow(ptr("a"), "", ratelimit.AI)
	require.Error(t, err)
	assert.ErrorIs(t, err, ratelimit.ErrLimited)

	var exceeded *ratelimit.ExceededError
	require.True(t, errors.As(err, &exceeded))
	assert.Equal(t, time.Hour, exceeded.RetryAfter)
}

func TestReset(t *testing.T) {
	l, _ := newLimiter(t, map[string]ratelimit.RuleConfig{
		"auth": {Limit: 1, Window: "15m"},
	})
	actor := ptr("a")

	l.Check(actor, "", ratelimit.Auth)
	d, _ := l.Check(actor, "", ratelimit.Auth)
	require.False(t, d.Allowed)

	l.Reset(ratelimit.Identity(actor, ""), ratelimit.Auth)

	d, _ = l.Check(actor, "", ratelimit.Auth)
	assert.True(t, d.Allowed)
}

func TestCheckConcurrentNeverOverAdmits(t *testing.T) {
	const limit = 50
	l, _ := newLimiter(t, map[string]ratelimit.RuleConfig{
		"write": {Limit: limit, Window: "1m"},
	})
	actor := ptr("shared")

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for range 500 {
		wg.Go(func() {
			d, err := l.Check(actor, "", ratelimit.Write)
			if err == nil && d.Allowed {
				admitted.Add(1)
			}
		})
	}
	wg.Wait()

	assert.Equal(t, int64(limit), admitted.Load())
}

func TestExpiredBucketsAreSwept(t *testing.T) {
	l, c := newLimiter(t, map[string]ratelimit.RuleConfig{
		"read": {Limit: 10000, Window: "1m"},
	})

	for i := range 1023 {
		l.Check(ptr(string(rune('a'+i%26))+string(rune(i))), "", ratelimit.Read)
	}
	require.Greater(t, l.Len(), 1)

	c.Advance(2 * time.Minute)
	l.Check(ptr("trigger"), "", ratelimit.Read)

	assert.Equal(t, 1, l.Len())
}
