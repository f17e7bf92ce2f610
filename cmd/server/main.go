package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JaimeStill/warden/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fatal("config load failed", err)
	}

	srv, err := NewServer(cfg)
	if err != nil {
		fatal("server init failed", err)
	}

	if err := srv.Start(); err != nil {
		fatal("server start failed", err)
	}

	srv.infra.Logger.Info("warden started", "addr", cfg.Server.Addr())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	if err := srv.Shutdown(cfg.ShutdownTimeoutDuration()); err != nil {
		fatal("shutdown failed", err)
	}

	srv.infra.Logger.Info("warden stopped")
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
