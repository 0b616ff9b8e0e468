package email

import (
	"context"
	"log/slog"
)

// MockProvider stands in for Gmail in local development: alerts are
// logged, never sent.
type MockProvider struct {
	logger *slog.Logger
}

// NewMockProvider creates a logging provider.
func NewMockProvider(logger *slog.Logger) *MockProvider {
	return &MockProvider{logger: logger}
}

// Send logs the alert instead of delivering it.
func (m *MockProvider) Send(_ context.Context, to, subject, htmlBody string) error {
	m.logger.Info("MOCK ALERT EMAIL",
		"to", to,
		"subject", subject,
		"body_bytes", len(htmlBody))
	return nil
}
