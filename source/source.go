// Package source supplies batches of neighborhood posts, either from the
// live Ring feed or from a mock generator for development.
package source

import (
	"context"
	"log/slog"

	"neighborhood-monitor/pkg/monitor"
)

// Source fetches one batch of posts. Implementations own their transport
// errors; a failed fetch is reported to the poller, which retries on the
// next cycle without ever handing malformed posts downstream.
type Source interface {
	Fetch(ctx context.Context) ([]*monitor.Post, error)
	Name() string
}

// Select picks the post source once at startup: the live vendor feed when
// an API token is configured, the mock generator otherwise. The choice is
// logged so a mock-backed deployment is never mistaken for a live one.
func Select(apiToken, baseURL string, logger *slog.Logger) Source {
	if apiToken != "" {
		logger.Info("Using live Ring feed source", "base_url", baseURL)
		return NewRingSource(apiToken, baseURL, logger)
	}
	logger.Warn("No Ring API token configured, using mock post source")
	return NewMockSource(0, logger)
}
