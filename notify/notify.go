// Package notify fans newly recorded match events out to connected
// dashboard clients and other delivery targets.
package notify

import (
	"context"
	"log/slog"
	"sync"

	"neighborhood-monitor/pkg/monitor"
)

// Notifier delivers one newly recorded match event.
type Notifier interface {
	Notify(ctx context.Context, ev *monitor.MatchEvent) error
}

// targetQueue is how many undelivered events may back up per target
// before new ones are dropped for it.
const targetQueue = 64

// Fanout delivers events to every target asynchronously. Each target
// gets its own queue and delivery worker, so a slow webhook or email
// provider never stalls the caller; the record path runs inside the
// poll loop and must stay free of delivery I/O. Failures are logged per
// target and never propagate.
type Fanout struct {
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	queues []chan *monitor.MatchEvent

	wg sync.WaitGroup
}

// NewFanout creates a fanout over the given targets and starts one
// delivery worker per target.
func NewFanout(logger *slog.Logger, targets ...Notifier) *Fanout {
	f := &Fanout{logger: logger}
	for _, target := range targets {
		ch := make(chan *monitor.MatchEvent, targetQueue)
		f.queues = append(f.queues, ch)
		f.wg.Add(1)
		go f.deliver(target, ch)
	}
	return f
}

func (f *Fanout) deliver(target Notifier, events <-chan *monitor.MatchEvent) {
	defer f.wg.Done()
	for ev := range events {
		// Deliveries outlive the recording call, so each carries its
		// own context; targets bring their own timeouts.
		if err := target.Notify(context.Background(), ev); err != nil {
			f.logger.Warn("Notifier delivery failed",
				"post_id", ev.PostID,
				"error", err)
		}
	}
}

// Notify enqueues ev for every target without blocking. It always
// returns nil; a target whose queue is full has the event dropped with
// a warning rather than stalling the caller.
func (f *Fanout) Notify(_ context.Context, ev *monitor.MatchEvent) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return nil
	}

	for _, ch := range f.queues {
		select {
		case ch <- ev:
		default:
			f.logger.Warn("Dropping event for saturated notifier",
				"post_id", ev.PostID)
		}
	}
	return nil
}

// Close stops accepting events and waits for queued deliveries to
// finish. Safe to call more than once.
func (f *Fanout) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.mu.Unlock()

	for _, ch := range f.queues {
		close(ch)
	}
	f.wg.Wait()
}

// LogNotifier logs each event instead of delivering it, for local
// development without any configured targets.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a logging notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the event.
func (l *LogNotifier) Notify(_ context.Context, ev *monitor.MatchEvent) error {
	l.logger.Info("MOCK NOTIFY",
		"post_id", ev.PostID,
		"terms", ev.MatchedTerms,
		"detected_at", ev.DetectedAt)
	return nil
}
