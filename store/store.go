// Package store maintains the append-only log of match events,
// deduplicated by vendor post ID.
package store

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"neighborhood-monitor/pkg/monitor"
)

// ErrMissingPostID is returned when a post without an ID reaches the
// store. The ID is the deduplication key, so this is a caller bug.
var ErrMissingPostID = errors.New("post has no id")

// Stats summarizes the stored events for the dashboard.
type Stats struct {
	TotalMatches int            `json:"total_matches"`
	TermsSeen    []string       `json:"matched_terms_seen"`
	TermCounts   map[string]int `json:"term_counts"`
}

// Store records each matching post at most once, keyed by post ID.
// A single poll loop writes; query handlers read concurrently.
type Store struct {
	mu     sync.RWMutex
	byID   map[string]*monitor.MatchEvent
	events []*monitor.MatchEvent

	obsMu     sync.Mutex
	observers []func(*monitor.MatchEvent)

	logger *slog.Logger
	now    func() time.Time
}

// New creates an empty store.
func New(logger *slog.Logger) *Store {
	return &Store{
		byID:   make(map[string]*monitor.MatchEvent),
		logger: logger,
		now:    time.Now,
	}
}

// OnMatch registers fn to be invoked for every newly recorded event.
// Observers run after the insert lock is released, in registration order.
func (s *Store) OnMatch(fn func(*monitor.MatchEvent)) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.observers = append(s.observers, fn)
}

// RecordIfNew records a match event for post unless its ID has been seen
// before. It returns the new event on first insertion and nil when the
// post is a duplicate. The check-then-insert runs under one lock so two
// near-simultaneous calls with the same ID cannot both insert.
func (s *Store) RecordIfNew(post *monitor.Post, terms []string) (*monitor.MatchEvent, error) {
	if post == nil || post.ID == "" {
		return nil, ErrMissingPostID
	}
	if len(terms) == 0 {
		// An event exists only for posts that matched something.
		return nil, nil
	}

	ev := &monitor.MatchEvent{
		PostID:        post.ID,
		Title:         post.Title,
		Text:          post.Text,
		MatchedTerms:  append([]string(nil), terms...),
		PostTimestamp: post.CreatedAt,
		Location:      post.Location,
		Address:       post.Address,
	}

	s.mu.Lock()
	if _, dup := s.byID[post.ID]; dup {
		s.mu.Unlock()
		return nil, nil
	}
	ev.DetectedAt = s.now()
	s.byID[post.ID] = ev
	s.events = append(s.events, ev)
	total := len(s.events)
	s.mu.Unlock()

	s.logger.Info("Match recorded",
		"post_id", ev.PostID,
		"terms", ev.MatchedTerms,
		"total_matches", total)

	s.notify(ev)
	return ev, nil
}

func (s *Store) notify(ev *monitor.MatchEvent) {
	s.obsMu.Lock()
	observers := s.observers
	s.obsMu.Unlock()

	for _, fn := range observers {
		fn(ev)
	}
}

// List returns stored events in append order. A non-empty term keeps
// only events whose matched terms contain it, compared exactly against
// the stored canonical spelling. An empty result is not an error.
func (s *Store) List(term string) []*monitor.MatchEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if term == "" {
		out := make([]*monitor.MatchEvent, len(s.events))
		copy(out, s.events)
		return out
	}

	var out []*monitor.MatchEvent
	for _, ev := range s.events {
		for _, t := range ev.MatchedTerms {
			if t == term {
				out = append(out, ev)
				break
			}
		}
	}
	return out
}

// Stats aggregates the stored events. An event with two terms increments
// both term counts; this is a per-term tally, not a partition.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		TotalMatches: len(s.events),
		TermCounts:   make(map[string]int),
	}
	for _, ev := range s.events {
		for _, t := range ev.MatchedTerms {
			if _, seen := st.TermCounts[t]; !seen {
				st.TermsSeen = append(st.TermsSeen, t)
			}
			st.TermCounts[t]++
		}
	}
	return st
}

// Len reports the number of stored events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Restore seeds the store from a durable snapshot at startup. Snapshot
// listings come back in object-name order, so events are sorted by
// DetectedAt first; List keeps ascending detection order across
// restarts. Events whose post ID is already present are skipped,
// preserving the at-most-once guarantee. Observers are not invoked for
// restored events.
func (s *Store) Restore(events []*monitor.MatchEvent) int {
	ordered := make([]*monitor.MatchEvent, 0, len(events))
	for _, ev := range events {
		if ev == nil || ev.PostID == "" {
			continue
		}
		ordered = append(ordered, ev)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].DetectedAt.Before(ordered[j].DetectedAt)
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	var restored int
	for _, ev := range ordered {
		if _, dup := s.byID[ev.PostID]; dup {
			continue
		}
		s.byID[ev.PostID] = ev
		s.events = append(s.events, ev)
		restored++
	}
	return restored
}
