package notify

import (
	"context"
	"log/slog"
	"sync"

	"neighborhood-monitor/pkg/monitor"
)

// clientBuffer is how many undelivered events a subscriber may lag behind
// before it is dropped.
const clientBuffer = 16

// Hub is the in-process push-update channel. Dashboard connections
// subscribe and receive every match event recorded while subscribed.
// A subscriber that stops draining its channel is disconnected rather
// than allowed to block the poll loop.
type Hub struct {
	mu      sync.Mutex
	clients map[chan *monitor.MatchEvent]struct{}
	logger  *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[chan *monitor.MatchEvent]struct{}),
		logger:  logger,
	}
}

// Subscribe registers a new client. The returned cancel func must be
// called when the client disconnects.
func (h *Hub) Subscribe() (<-chan *monitor.MatchEvent, func()) {
	ch := make(chan *monitor.MatchEvent, clientBuffer)

	h.mu.Lock()
	h.clients[ch] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("Dashboard client connected", "clients", count)

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.clients[ch]; ok {
			delete(h.clients, ch)
			close(ch)
		}
		remaining := len(h.clients)
		h.mu.Unlock()
		h.logger.Info("Dashboard client disconnected", "clients", remaining)
	}
	return ch, cancel
}

// ClientCount reports the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Notify pushes ev to every subscriber without blocking. Clients whose
// buffers are full are dropped.
func (h *Hub) Notify(_ context.Context, ev *monitor.MatchEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.clients {
		select {
		case ch <- ev:
		default:
			delete(h.clients, ch)
			close(ch)
			h.logger.Warn("Dropping slow dashboard client", "clients", len(h.clients))
		}
	}
	return nil
}
