package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type webhook struct {
	url        string
	client     *http.Client
	maxElapsed time.Duration
	logger     *slog.Logger
}

type noop struct {
	logger *slog.Logger
}

// New returns a webhook notifier, or a logging no-op when no URL is configured.
func New(cfg *Config, logger *slog.Logger) Notifier {
	logger = logger.With("system", "notifications")

	if cfg.WebhookURL == "" {
		return &noop{logger: logger}
	}

	return &webhook{
		url:        cfg.WebhookURL,
		client:     &http.Client{Timeout: cfg.TimeoutDuration()},
		maxElapsed: cfg.MaxElapsedTimeDuration(),
		logger:     logger,
	}
}

func (n *noop) Notify(_ context.Context, note Notification) {
	n.logger.Debug("notification skipped", "kind", note.Kind, "recipient_id", note.RecipientID)
}

func (w *webhook) Notify(_ context.Context, note Notification) {
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), w.maxElapsed)
		defer cancel()

		if err := w.deliver(ctx, note); err != nil {
			w.logger.Error("notification delivery failed",
				"kind", note.Kind,
				"recipient_id", note.RecipientID,
				"error", err,
			)
		}
	}()
}

func (w *webhook) deliver(ctx context.Context, note Notification) error {
	body, err := json.Marshal(note)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("marshal notification: %w", err))
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = w.maxElapsed

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.client.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()

		switch {
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("webhook status %d", resp.StatusCode)
		case resp.StatusCode >= 400:
			return backoff.Permanent(fmt.Errorf("webhook status %d", resp.StatusCode))
		}
		return nil
	}

	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}
