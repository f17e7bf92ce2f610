package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"

	"github.com/JaimeStill/warden/internal/audit"
)

var (
	evaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_moderation_evaluations_total",
		Help: "Moderation gate decisions by outcome",
	}, []string{"outcome", "degraded"})

	analyzerLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "warden_moderation_analyzer_seconds",
		Help:    "Latency of content analyzer calls",
		Buckets: prometheus.DefBuckets,
	})

	breakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "warden_moderation_breaker_open",
		Help: "1 while the analyzer circuit breaker is open",
	})
)

// Authorizer gates the preview endpoint.
type Authorizer func(ctx context.Context, actorID uuid.UUID) error

// System defines the public contract for the moderation gate.
type System interface {
	Handler() *Handler

	// Evaluate always returns a decision for a valid request. Analyzer
	// failures produce a degraded fallback decision, never an error.
	Evaluate(ctx context.Context, req Request) (Decision, error)
}

type gate struct {
	analyzer   Analyzer
	policy     Policy
	breaker    *gobreaker.CircuitBreaker
	timeout    time.Duration
	failClosed bool
	authorize  Authorizer
	audit      audit.Recorder
	logger     *slog.Logger
}

// New creates the moderation gate around analyzer.
func New(
	analyzer Analyzer,
	cfg *Config,
	authorize Authorizer,
	recorder audit.Recorder,
	logger *slog.Logger,
) System {
	logger = logger.With("system", "moderation")
	failures := uint32(cfg.BreakerFailures)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "content-analyzer",
		Timeout: cfg.BreakerCooldownDuration(),
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		// The analyzer deadline surfaces as DeadlineExceeded, so Canceled
		// only means the caller went away.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("analyzer breaker state changed", "from", from.String(), "to", to.String())
			if to == gobreaker.StateOpen {
				breakerState.Set(1)
			} else {
				breakerState.Set(0)
			}
		},
	})

	return &gate{
		analyzer:   analyzer,
		policy:     cfg.Policy(),
		breaker:    breaker,
		timeout:    cfg.TimeoutDuration(),
		failClosed: cfg.FailsClosed(),
		authorize:  authorize,
		audit:      recorder,
		logger:     logger,
	}
}

func (g *gate) Handler() *Handler {
	return NewHandler(g, g.authorize, g.logger)
}

func (g *gate) Evaluate(ctx context.Context, req Request) (Decision, error) {
	if err := req.Validate(); err != nil {
		return Decision{}, err
	}

	sig, err := g.analyze(ctx, req)
	if err != nil {
		return g.fallback(ctx, err), nil
	}

	d := g.policy.Apply(sig)
	evaluations.WithLabelValues(d.Outcome(), "false").Inc()
	g.logger.Info(
		"content evaluated",
		"outcome", d.Outcome(),
		"severity", d.Severity,
		"plagiarism", d.Plagiarism.Score,
	)
	return d, nil
}

func (g *gate) analyze(ctx context.Context, req Request) (Signal, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	res, err := g.breaker.Execute(func() (any, error) {
		return g.analyzer.Analyze(ctx, req)
	})
	analyzerLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		return Signal{}, err
	}

	sig, ok := res.(Signal)
	if !ok {
		return Signal{}, fmt.Errorf("%w: unexpected result %T", ErrAnalyzerResponse, res)
	}
	return sig, nil
}

func (g *gate) fallback(ctx context.Context, cause error) Decision {
	d := Fallback(g.failClosed)
	evaluations.WithLabelValues(d.Outcome(), "true").Inc()

	reason := "error"
	switch {
	case errors.Is(cause, gobreaker.ErrOpenState), errors.Is(cause, gobreaker.ErrTooManyRequests):
		reason = "breaker_open"
	case errors.Is(cause, context.DeadlineExceeded):
		reason = "timeout"
	case errors.Is(cause, context.Canceled):
		reason = "canceled"
	}

	g.logger.Warn(
		"content analyzer unavailable, applying fallback",
		"reason", reason,
		"fail_closed", g.failClosed,
		"error", cause,
	)

	g.audit.Log(ctx, audit.Entry{
		Action: "content_moderation_degraded",
		Metadata: map[string]any{
			"reason":      reason,
			"fail_closed": g.failClosed,
			"error":       cause.Error(),
		},
	})

	return d
}
