// Package email sends match alert emails via a pluggable provider.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"neighborhood-monitor/pkg/monitor"
)

// Provider defines the interface for email sending implementations.
type Provider interface {
	// Send sends an email with the given parameters.
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Sender formats and sends one alert email per newly recorded match.
// It satisfies the notifier interface used by the delivery fanout.
type Sender struct {
	provider Provider
	logger   *slog.Logger
	to       string
	baseURL  string // For dashboard links in emails
}

// New creates an email sender with the given provider.
func New(provider Provider, to, baseURL string, logger *slog.Logger) *Sender {
	return &Sender{
		provider: provider,
		logger:   logger,
		to:       to,
		baseURL:  baseURL,
	}
}

// Notify sends an alert email for a newly recorded match event.
func (s *Sender) Notify(ctx context.Context, ev *monitor.MatchEvent) error {
	subject := fmt.Sprintf("Neighborhood alert: %s", strings.Join(ev.MatchedTerms, ", "))

	body := s.formatAlertBody(ev)

	s.logger.Info("Sending alert email",
		"to", s.to,
		"post_id", ev.PostID,
		"terms", ev.MatchedTerms)

	return s.provider.Send(ctx, s.to, subject, body)
}

func (s *Sender) formatAlertBody(ev *monitor.MatchEvent) string {
	var b strings.Builder

	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	b.WriteString("<meta charset=\"utf-8\">\n")
	b.WriteString("<style>\n")
	b.WriteString("body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 800px; margin: 0 auto; padding: 20px; }\n")
	b.WriteString(".header { border-bottom: 2px solid #c0392b; padding-bottom: 10px; margin-bottom: 20px; }\n")
	b.WriteString(".terms { color: #c0392b; font-weight: 600; }\n")
	b.WriteString(".timestamp { color: #7f8c8d; font-size: 0.9em; }\n")
	b.WriteString(".content { background: #f8f9fa; padding: 20px; border-radius: 8px; margin: 15px 0; white-space: pre-wrap; }\n")
	b.WriteString(".footer { margin-top: 20px; padding-top: 10px; border-top: 2px solid #ecf0f1; color: #7f8c8d; font-size: 0.9em; }\n")
	b.WriteString("a { color: #c0392b; text-decoration: none; }\n")
	b.WriteString("</style>\n</head>\n<body>\n")

	b.WriteString("<div class=\"header\">\n")
	if ev.Title != "" {
		b.WriteString(fmt.Sprintf("<h2>%s</h2>\n", escapeHTML(ev.Title)))
	} else {
		b.WriteString("<h2>Neighborhood Alert</h2>\n")
	}
	b.WriteString(fmt.Sprintf("<span class=\"terms\">Matched: %s</span>\n", escapeHTML(strings.Join(ev.MatchedTerms, ", "))))
	if !ev.PostTimestamp.IsZero() {
		b.WriteString(fmt.Sprintf("<span class=\"timestamp\"> &bull; posted %s</span>\n", ev.PostTimestamp.Format("Jan 2, 2006 at 3:04 PM")))
	}
	b.WriteString("</div>\n")

	b.WriteString("<div class=\"content\">\n")
	b.WriteString(escapeHTML(ev.Text))
	b.WriteString("</div>\n")

	if ev.Address != "" {
		b.WriteString(fmt.Sprintf("<p>Location: %s</p>\n", escapeHTML(ev.Address)))
	}

	b.WriteString("<div class=\"footer\">\n")
	if s.baseURL != "" {
		b.WriteString(fmt.Sprintf("<a href=\"%s\">Open the dashboard</a> &bull; \n", escapeHTML(s.baseURL)))
	}
	b.WriteString(fmt.Sprintf("Detected %s\n", ev.DetectedAt.Format(time.RFC1123)))
	b.WriteString("</div>\n")

	b.WriteString("</body>\n</html>")

	return b.String()
}

func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&#39;")
	return s
}
