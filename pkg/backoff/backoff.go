// Package backoff holds the shared retry policy for outbound I/O
// (snapshot storage, webhook delivery, alert email).
package backoff

import (
	"context"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

// Options returns the standard retry options: three attempts with
// jittered backoff, cancelled with ctx. op names the operation in
// retry logs.
func Options(ctx context.Context, logger *slog.Logger, op string) []retry.Option {
	return []retry.Option{
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(2 * time.Minute),
		retry.MaxJitter(10 * time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.Info("Retrying "+op+" after error", "attempt", n, "error", err)
		}),
	}
}
