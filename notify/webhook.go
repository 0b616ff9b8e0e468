package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"neighborhood-monitor/pkg/backoff"
	"neighborhood-monitor/pkg/monitor"
)

// Webhook POSTs each match event as JSON to a configured URL, for
// integrations that want to consume matches outside the dashboard.
type Webhook struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewWebhook creates a webhook notifier.
func NewWebhook(url string, logger *slog.Logger) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// Notify delivers ev to the webhook URL with retries.
func (w *Webhook) Notify(ctx context.Context, ev *monitor.MatchEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
			if err != nil {
				return fmt.Errorf("create request: %w", err)
			}
			req.Header.Set("Content-Type", "application/json")

			startTime := time.Now()
			resp, err := w.client.Do(req)
			duration := time.Since(startTime)

			if err != nil {
				w.logger.Warn("Webhook request failed, will retry",
					"post_id", ev.PostID,
					"duration_ms", duration.Milliseconds(),
					"error", err)
				return err
			}
			defer func() {
				if closeErr := resp.Body.Close(); closeErr != nil {
					w.logger.Warn("Failed to close response body", "error", closeErr)
				}
			}()

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				w.logger.Warn("Webhook returned non-2xx status, will retry",
					"status_code", resp.StatusCode,
					"post_id", ev.PostID)
				return fmt.Errorf("HTTP %d", resp.StatusCode)
			}

			w.logger.Info("Webhook delivered",
				"post_id", ev.PostID,
				"duration_ms", duration.Milliseconds())
			return nil
		},
		backoff.Options(ctx, w.logger, "webhook delivery")...,
	)
}
