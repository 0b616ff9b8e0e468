// Package server exposes the query API and the live push channel used by
// the dashboard.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"neighborhood-monitor/pkg/monitor"
	"neighborhood-monitor/store"
)

// Store is the read side of the match store.
type Store interface {
	List(term string) []*monitor.MatchEvent
	Stats() store.Stats
}

// Hub hands out subscriptions to the push channel.
type Hub interface {
	Subscribe() (<-chan *monitor.MatchEvent, func())
}

// Poller triggers an immediate check outside the regular cadence.
type Poller interface {
	CheckOnce(ctx context.Context) error
}

// Server handles HTTP requests.
type Server struct {
	store      Store
	hub        Hub
	poller     Poller
	logger     *slog.Logger
	sourceName string
	keywords   []string
	emojis     []string
	interval   time.Duration
}

// Config holds server configuration.
type Config struct {
	Store      Store
	Hub        Hub
	Poller     Poller
	Logger     *slog.Logger
	SourceName string
	Keywords   []string
	Emojis     []string
	Interval   time.Duration
}

// New creates a new HTTP server handler.
func New(cfg *Config) *Server {
	return &Server{
		store:      cfg.Store,
		hub:        cfg.Hub,
		poller:     cfg.Poller,
		logger:     cfg.Logger,
		sourceName: cfg.SourceName,
		keywords:   cfg.Keywords,
		emojis:     cfg.Emojis,
		interval:   cfg.Interval,
	}
}

// Handler builds the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/pollz", s.handlePoll)
	mux.HandleFunc("/api/matches", s.handleMatches)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/events", s.handleEvents)
	return mux
}

// ListenAndServe starts the server on addr and shuts it down when ctx is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      0, // SSE streams on /events stay open indefinitely
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", "addr", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"service": "neighborhood-monitor",
		"source":  s.sourceName,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, `{"status":"healthy"}`); err != nil {
		s.logger.Warn("Failed to write health response", "error", err)
	}
}

func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.logger.Info("Poll endpoint triggered")

	if err := s.poller.CheckOnce(r.Context()); err != nil {
		s.logger.Error("Poll check failed", "error", err)
		http.Error(w, "Check failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, `{"status":"completed"}`); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}

// handleMatches returns stored events in append order, optionally
// filtered by the term query parameter.
func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	term := r.URL.Query().Get("term")
	events := s.store.List(term)
	if events == nil {
		events = []*monitor.MatchEvent{}
	}
	s.writeJSON(w, http.StatusOK, events)
}

// statsResponse extends the store tallies with the configured term sets,
// so the dashboard can render zero-count terms too.
type statsResponse struct {
	store.Stats
	ConfiguredKeywords []string `json:"configured_keywords"`
	ConfiguredEmojis   []string `json:"configured_emojis"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	st := s.store.Stats()
	if st.TermsSeen == nil {
		st.TermsSeen = []string{}
	}
	s.writeJSON(w, http.StatusOK, statsResponse{
		Stats:              st,
		ConfiguredKeywords: s.keywords,
		ConfiguredEmojis:   s.emojis,
	})
}

// handleConfig returns the monitoring configuration without credentials.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"keywords":              s.keywords,
		"emojis":                s.emojis,
		"poll_interval_seconds": int(s.interval.Seconds()),
		"source":                s.sourceName,
	})
}

// handleEvents streams new match events to the dashboard over
// server-sent events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	events, cancel := s.hub.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Tell the client it is connected before the first match arrives.
	fmt.Fprint(w, "event: connected\ndata: {}\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case ev, open := <-events:
			if !open {
				// Dropped by the hub for falling behind.
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.Warn("Failed to marshal event", "post_id", ev.PostID, "error", err)
				continue
			}
			fmt.Fprintf(w, "event: new_match\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
