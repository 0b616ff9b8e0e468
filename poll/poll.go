// Package poll drives the fetch-match-record cycle against the post source.
package poll

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"neighborhood-monitor/match"
	"neighborhood-monitor/pkg/monitor"
)

// Source supplies batches of posts.
type Source interface {
	Fetch(ctx context.Context) ([]*monitor.Post, error)
	Name() string
}

// Recorder deduplicates and stores matches. Delivery to notifiers happens
// through the recorder's own observers, not here.
type Recorder interface {
	RecordIfNew(post *monitor.Post, terms []string) (*monitor.MatchEvent, error)
}

// Poller periodically fetches posts, scans them for configured terms,
// and records first-time matches.
type Poller struct {
	source   Source
	recorder Recorder
	logger   *slog.Logger
	keywords []string
	emojis   []string
	interval time.Duration
}

// New creates a poller. A non-positive interval falls back to one minute.
func New(source Source, recorder Recorder, keywords, emojis []string, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Poller{
		source:   source,
		recorder: recorder,
		keywords: keywords,
		emojis:   emojis,
		interval: interval,
		logger:   logger,
	}
}

// Run polls until ctx is cancelled. The first check happens immediately,
// then on every tick. Fetch failures are logged and retried on the next
// cycle rather than aborting the loop.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("Starting poll loop",
		"source", p.source.Name(),
		"interval", p.interval.String(),
		"keywords", len(p.keywords),
		"emojis", len(p.emojis))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	if err := p.CheckOnce(ctx); err != nil {
		p.logger.Warn("Initial check failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Poll loop stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			if err := p.CheckOnce(ctx); err != nil {
				p.logger.Warn("Check failed", "error", err)
			}
		}
	}
}

// CheckOnce runs a single fetch-match-record cycle.
func (p *Poller) CheckOnce(ctx context.Context) error {
	start := time.Now()

	posts, err := p.source.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch posts: %w", err)
	}

	var matched, recorded, dropped int
	for _, post := range posts {
		if post == nil || post.ID == "" {
			// The ID is the dedup key; unkeyable posts never reach the store.
			p.logger.Warn("Dropping post without id", "source", p.source.Name())
			dropped++
			continue
		}

		terms := match.FindInPost(post.Title, post.Text, p.keywords, p.emojis)
		if len(terms) == 0 {
			continue
		}
		matched++

		ev, err := p.recorder.RecordIfNew(post, terms)
		if err != nil {
			p.logger.Error("Record failed", "post_id", post.ID, "error", err)
			continue
		}
		if ev == nil {
			// Already seen in an earlier cycle.
			continue
		}
		recorded++

		p.logger.Info("New match detected",
			"post_id", ev.PostID,
			"terms", ev.MatchedTerms,
			"address", ev.Address)
	}

	p.logger.Info("Check completed",
		"posts", len(posts),
		"matched", matched,
		"recorded", recorded,
		"dropped", dropped,
		"duration_ms", time.Since(start).Milliseconds())

	return nil
}
