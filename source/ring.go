package source

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"neighborhood-monitor/pkg/monitor"
)

const defaultBaseURL = "https://api.ring.com"

// RingSource fetches neighborhood alerts from the unofficial Ring API
// using a pre-acquired bearer token. Acquiring the token (login, 2FA,
// token refresh) is out of scope here.
type RingSource struct {
	client  *resty.Client
	logger  *slog.Logger
	baseURL string
}

// NewRingSource creates a live feed source.
func NewRingSource(apiToken, baseURL string, logger *slog.Logger) *RingSource {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(apiToken).
		SetHeader("User-Agent", "neighborhood-monitor/1.0").
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(2 * time.Second)

	return &RingSource{
		client:  client,
		logger:  logger,
		baseURL: baseURL,
	}
}

// Name identifies the source in logs and the config endpoint.
func (*RingSource) Name() string { return "ring" }

// feedResponse mirrors the vendor's neighborhood alerts payload.
type feedResponse struct {
	Alerts []feedAlert `json:"alerts"`
}

type feedAlert struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"` // may contain HTML markup
	CreatedAt   string  `json:"created_at"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Address     string  `json:"address"`
}

// Fetch retrieves the current batch of neighborhood posts.
func (r *RingSource) Fetch(ctx context.Context) ([]*monitor.Post, error) {
	start := time.Now()
	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParam("limit", "50").
		SetResult(&feedResponse{}).
		Get("/clients_api/neighborhoods/alerts")
	if err != nil {
		return nil, fmt.Errorf("fetch neighborhood alerts: %w", err)
	}

	r.logger.Info("Feed request completed",
		"status_code", resp.StatusCode(),
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("feed returned HTTP %d", resp.StatusCode())
	}

	feed, ok := resp.Result().(*feedResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected feed response type %T", resp.Result())
	}

	posts := make([]*monitor.Post, 0, len(feed.Alerts))
	for _, alert := range feed.Alerts {
		if alert.ID == "" {
			r.logger.Warn("Dropping feed item without id", "title", alert.Title)
			continue
		}

		post := &monitor.Post{
			ID:      alert.ID,
			Title:   strings.TrimSpace(alert.Title),
			Text:    htmlToText(alert.Description),
			Address: alert.Address,
		}

		if alert.CreatedAt != "" {
			if ts, parseErr := time.Parse(time.RFC3339, alert.CreatedAt); parseErr == nil {
				post.CreatedAt = ts
			} else {
				r.logger.Warn("Unparseable post timestamp", "post_id", alert.ID, "created_at", alert.CreatedAt)
			}
		}

		if alert.Latitude != 0 || alert.Longitude != 0 {
			post.Location = &monitor.Location{
				Latitude:  alert.Latitude,
				Longitude: alert.Longitude,
			}
		}

		posts = append(posts, post)
	}

	r.logger.Info("Feed batch fetched", "items", len(feed.Alerts), "posts", len(posts))
	return posts, nil
}

// htmlToText strips markup from a post body so keyword matching runs over
// the text a dashboard user would actually see. Plain-text bodies pass
// through unchanged apart from whitespace trimming.
func htmlToText(body string) string {
	if !strings.ContainsRune(body, '<') {
		return strings.TrimSpace(body)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return strings.TrimSpace(body)
	}
	return strings.TrimSpace(doc.Text())
}
