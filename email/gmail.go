package email

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"google.golang.org/api/gmail/v1"

	"neighborhood-monitor/pkg/backoff"
)

// GmailProvider sends alert emails through the Gmail API. The sender
// address is whatever account the service was authenticated as.
type GmailProvider struct {
	service *gmail.Service
	logger  *slog.Logger
}

// NewGmailProvider creates a Gmail-backed provider.
func NewGmailProvider(service *gmail.Service, logger *slog.Logger) *GmailProvider {
	return &GmailProvider{service: service, logger: logger}
}

// sanitizeEmailHeader removes newlines and control characters to prevent
// header injection. RFC 5322 headers are newline-delimited, so any
// newline in a header value allows an attacker to inject arbitrary
// headers.
func sanitizeEmailHeader(s string) string {
	var result strings.Builder
	for _, r := range s {
		if r >= 32 && r != 127 {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// encodeMessage builds the raw base64url MIME message the Gmail API
// expects. Headers must already be sanitized.
func encodeMessage(to, subject, htmlBody string) string {
	var msg strings.Builder
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	msg.WriteString(htmlBody)
	return base64.URLEncoding.EncodeToString([]byte(msg.String()))
}

// Send delivers one alert email, retrying transient Gmail failures.
func (g *GmailProvider) Send(ctx context.Context, to, subject, htmlBody string) error {
	to = sanitizeEmailHeader(to)
	subject = sanitizeEmailHeader(subject)
	raw := encodeMessage(to, subject, htmlBody)

	return retry.Do(
		func() error {
			start := time.Now()
			_, err := g.service.Users.Messages.Send("me", &gmail.Message{
				Raw: raw,
			}).Context(ctx).Do()
			if err != nil {
				g.logger.Warn("Gmail send failed, will retry",
					"to", to,
					"duration_ms", time.Since(start).Milliseconds(),
					"error", err)
				return err
			}

			g.logger.Info("Alert email sent",
				"to", to,
				"subject", subject,
				"duration_ms", time.Since(start).Milliseconds())
			return nil
		},
		backoff.Options(ctx, g.logger, "alert email send")...,
	)
}
