// Package database provides PostgreSQL connection management with lifecycle coordination.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/JaimeStill/warden/pkg/lifecycle"
)

// System manages database connections and lifecycle coordination.
type System interface {
	// Connection returns the underlying database connection pool.
	Connection() *sql.DB
	// Start registers startup and shutdown hooks with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
	// Ready reports whether the startup ping has succeeded.
	Ready() bool
	// Check pings the database once connected. Before that, and after
	// shutdown, it returns the error for the current phase.
	Check(ctx context.Context) error
}

type database struct {
	conn        *sql.DB
	logger      *slog.Logger
	connTimeout time.Duration
	phase       atomic.Int32
}

// New creates a database system with the given configuration.
// It calls sql.Open to validate the URL and configure pool parameters,
// but does not establish a connection until Start is called.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	db, err := sql.Open("pgx", cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	return &database{
		conn:        db,
		logger:      logger.With("system", "database"),
		connTimeout: cfg.ConnTimeoutDuration(),
	}, nil
}

func (d *database) Connection() *sql.DB {
	return d.conn
}

func (d *database) Ready() bool {
	return phase(d.phase.Load()) == connected
}

func (d *database) Check(ctx context.Context) error {
	if err := phase(d.phase.Load()).err(); err != nil {
		return err
	}
	return d.conn.PingContext(ctx)
}

// Start pings the database in the background, retrying with exponential
// backoff for up to six connection timeouts, and closes the pool on shutdown.
func (d *database) Start(lc *lifecycle.Coordinator) error {
	d.logger.Info("starting database connection")
	lc.Register("database", d)

	lc.OnStartup(func() {
		policy := backoff.NewExponentialBackOff()
		policy.MaxElapsedTime = 6 * d.connTimeout

		ping := func() error {
			ctx, cancel := context.WithTimeout(lc.Context(), d.connTimeout)
			defer cancel()
			return d.conn.PingContext(ctx)
		}
		notify := func(err error, wait time.Duration) {
			d.logger.Warn("database ping failed, retrying", "error", err, "wait", wait)
		}

		if err := backoff.RetryNotify(ping, backoff.WithContext(policy, lc.Context()), notify); err != nil {
			d.logger.Error("database ping failed", "error", err)
			d.phase.CompareAndSwap(int32(connecting), int32(unreachable))
			return
		}

		if !d.phase.CompareAndSwap(int32(connecting), int32(connected)) {
			return
		}
		d.logger.Info("database connection established")
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		d.phase.Store(int32(closed))
		d.logger.Info("closing database connection")

		if err := d.conn.Close(); err != nil {
			d.logger.Error("database close failed", "error", err)
			return
		}

		d.logger.Info("database connection closed")
	})

	return nil
}
