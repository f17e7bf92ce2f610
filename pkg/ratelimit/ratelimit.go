// Package ratelimit provides per-identity, per-action-class fixed-window throttling.
//
// Buckets are held in a concurrent sharded map and every admission is a single
// atomic compute on the bucket key, so concurrent checks against the same
// identity never over-admit. Expired buckets are reset on next access and
// swept opportunistically; no background timer is involved.
package ratelimit

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/JaimeStill/warden/pkg/faults"
)

// Class names a group of operations that share a throttling rule.
type Class string

const (
	Read   Class = "read"
	Write  Class = "write"
	Auth   Class = "auth"
	Upload Class = "upload"
	Report Class = "report"
	AI     Class = "ai"
)

// sweepEvery is the number of checks between lazy sweeps of expired buckets.
const sweepEvery = 1024

var (
	// ErrLimited is the kind carried by every ExceededError.
	ErrLimited = errors.New("rate limit exceeded")
	// ErrUnknownClass is returned when a check names a class without a rule.
	ErrUnknownClass = faults.New(faults.ErrValidation, "unknown action class")
)

var decisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_ratelimit_decisions_total",
	Help: "Rate limit decisions by action class and outcome",
}, []string{"class", "allowed"})

// Rule is the request allowance for one class within one window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Decision is the result of a single check.
type Decision struct {
	Allowed    bool          `json:"allowed"`
	Limit      int           `json:"limit"`
	Remaining  int           `json:"remaining"`
	ResetAt    time.Time     `json:"reset_at"`
	RetryAfter time.Duration `json:"retry_after"`
}

// ExceededError reports a denied check along with how long to wait.
type ExceededError struct {
	Class      Class
	RetryAfter time.Duration
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("%s: %s class, retry after %s", ErrLimited, e.Class, e.RetryAfter.Round(time.Second))
}

func (e *ExceededError) Unwrap() error {
	return ErrLimited
}

type key struct {
	identity string
	class    Class
}

type bucket struct {
	start time.Time
	count int
}

// Limiter enforces the rule table against in-memory buckets.
type Limiter struct {
	rules   map[Class]Rule
	buckets *xsync.MapOf[key, bucket]
	now     func() time.Time
	checks  atomic.Uint64
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces the wall clock, primarily for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New creates a Limiter from the finalized config.
func New(cfg *Config, opts ...Option) *Limiter {
	l := &Limiter{
		rules:   cfg.Rules(),
		buckets: xsync.NewMapOf[key, bucket](),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Identity resolves the bucket identity: the actor id when authenticated,
// otherwise the fallback (typically the client IP).
func Identity(actorID *string, fallback string) string {
	if actorID != nil && *actorID != "" {
		return "actor:" + *actorID
	}
	return "addr:" + fallback
}

// Rule returns the configured rule for class.
func (l *Limiter) Rule(class Class) (Rule, bool) {
	r, ok := l.rules[class]
	return r, ok
}

// Check admits or denies one request for the identity and class.
// An admission consumes one unit of the window allowance; a denial consumes nothing.
func (l *Limiter) Check(actorID *string, fallback string, class Class) (Decision, error) {
	rule, ok := l.rules[class]
	if !ok {
		return Decision{}, fmt.Errorf("%w: %s", ErrUnknownClass, class)
	}

	now := l.now()
	k := key{identity: Identity(actorID, fallback), class: class}

	var d Decision
	l.buckets.Compute(k, func(b bucket, loaded bool) (bucket, bool) {
		if !loaded || !now.Before(b.start.Add(rule.Window)) {
			b = bucket{start: now}
		}

		resetAt := b.start.Add(rule.Window)
		d = Decision{Limit: rule.Limit, ResetAt: resetAt}

		if b.count >= rule.Limit {
			d.RetryAfter = resetAt.Sub(now)
			return b, false
		}

		b.count++
		d.Allowed = true
		d.Remaining = rule.Limit - b.count
		return b, false
	})

	decisions.WithLabelValues(string(class), fmt.Sprint(d.Allowed)).Inc()

	if l.checks.Add(1)%sweepEvery == 0 {
		l.sweep(now)
	}

	return d, nil
}

// Allow is Check expressed as an error: nil when admitted, *ExceededError when denied.
func (l *Limiter) Allow(actorID *string, fallback string, class Class) (Decision, error) {
	d, err := l.Check(actorID, fallback, class)
	if err != nil {
		return d, err
	}
	if !d.Allowed {
		return d, &ExceededError{Class: class, RetryAfter: d.RetryAfter}
	}
	return d, nil
}

// Reset clears the bucket for identity and class.
func (l *Limiter) Reset(identity string, class Class) {
	l.buckets.Delete(key{identity: identity, class: class})
}

// Len returns the number of live buckets.
func (l *Limiter) Len() int {
	return l.buckets.Size()
}

func (l *Limiter) sweep(now time.Time) {
	l.buckets.Range(func(k key, b bucket) bool {
		rule, ok := l.rules[k.class]
		if !ok || !now.Before(b.start.Add(rule.Window)) {
			l.buckets.Compute(k, func(cur bucket, loaded bool) (bucket, bool) {
				expired := loaded && (!ok || !now.Before(cur.start.Add(rule.Window)))
				return cur, expired || !loaded
			})
		}
		return true
	})
}
