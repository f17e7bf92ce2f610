package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/JaimeStill/warden/pkg/auth"
	"github.com/JaimeStill/warden/pkg/lifecycle"
	"github.com/JaimeStill/warden/pkg/middleware"
)

var failures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_audit_failures_total",
	Help: "Audit entries that could not be written",
}, []string{"reason"})

// Recorder is the fire-and-forget audit surface used by domain systems.
type Recorder interface {
	Log(ctx context.Context, e Entry)
}

// WriteFunc persists a single entry.
type WriteFunc func(ctx context.Context, e Entry) error

// Writer queues entries and persists them on a background worker.
// Log never blocks: a full queue drops the entry and reports it to diagnostics.
type Writer struct {
	write   WriteFunc
	queue   chan Entry
	timeout time.Duration
	logger  *slog.Logger
}

// NewWriter creates a Writer. Entries accumulate until Start launches the worker.
func NewWriter(write WriteFunc, cfg *Config, logger *slog.Logger) *Writer {
	return &Writer{
		write:   write,
		queue:   make(chan Entry, cfg.BufferSize),
		timeout: cfg.WriteTimeoutDuration(),
		logger:  logger,
	}
}

// Log enriches e from the request context and queues it.
func (w *Writer) Log(ctx context.Context, e Entry) {
	e = enrich(ctx, e)

	select {
	case w.queue <- e:
	default:
		failures.WithLabelValues("queue_full").Inc()
		w.logger.Error("audit entry dropped", "action", e.Action, "error", ErrQueueFull)
	}
}

// Start launches the worker. It keeps persisting through the start of
// shutdown, so requests still draining can be audited, and flushes the queue
// in its drain hook.
func (w *Writer) Start(lc *lifecycle.Coordinator) error {
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		w.run(stop)
	}()

	lc.OnDrain(func() {
		close(stop)
		<-done
		w.logger.Info("audit writer drained")
	})

	return nil
}

func (w *Writer) run(stop <-chan struct{}) {
	for {
		select {
		case e := <-w.queue:
			w.persist(e)
		case <-stop:
			for {
				select {
				case e := <-w.queue:
					w.persist(e)
				default:
					return
				}
			}
		}
	}
}

func (w *Writer) persist(e Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.write(ctx, e); err != nil {
		failures.WithLabelValues("write").Inc()
		w.logger.Error("audit write failed", "action", e.Action, "error", err)
	}
}

func enrich(ctx context.Context, e Entry) Entry {
	if c, ok := middleware.ClientFrom(ctx); ok {
		if e.SourceIP == "" {
			e.SourceIP = c.IP
		}
		if e.UserAgent == "" {
			e.UserAgent = c.UserAgent
		}
	}
	if e.ActorID == nil {
		if id, ok := auth.ActorFrom(ctx); ok {
			e.ActorID = &id
		}
	}
	e.Category = e.category()
	return e
}
