package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"neighborhood-monitor/pkg/monitor"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEvent(id string) *monitor.MatchEvent {
	return &monitor.MatchEvent{
		PostID:       id,
		MatchedTerms: []string{"theft"},
		DetectedAt:   time.Now(),
	}
}

type recordingNotifier struct {
	events chan *monitor.MatchEvent
	err    error
}

func newRecordingNotifier(err error) *recordingNotifier {
	return &recordingNotifier{
		events: make(chan *monitor.MatchEvent, 8),
		err:    err,
	}
}

func (r *recordingNotifier) Notify(_ context.Context, ev *monitor.MatchEvent) error {
	r.events <- ev
	return r.err
}

func waitForEvent(t *testing.T, ch chan *monitor.MatchEvent) *monitor.MatchEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event delivered within timeout")
		return nil
	}
}

func TestFanoutDeliversToAllTargets(t *testing.T) {
	a := newRecordingNotifier(nil)
	b := newRecordingNotifier(errors.New("broken target"))
	c := newRecordingNotifier(nil)

	f := NewFanout(testLogger(), a, b, c)
	defer f.Close()

	if err := f.Notify(context.Background(), testEvent("p1")); err != nil {
		t.Fatalf("Notify() error = %v, want nil", err)
	}

	for i, r := range []*recordingNotifier{a, b, c} {
		if ev := waitForEvent(t, r.events); ev.PostID != "p1" {
			t.Errorf("target %d got PostID %q, want p1", i, ev.PostID)
		}
	}
}

// stallingNotifier blocks every delivery until release is closed.
type stallingNotifier struct {
	release   chan struct{}
	delivered chan *monitor.MatchEvent
}

func newStallingNotifier(buffer int) *stallingNotifier {
	return &stallingNotifier{
		release:   make(chan struct{}),
		delivered: make(chan *monitor.MatchEvent, buffer),
	}
}

func (s *stallingNotifier) Notify(_ context.Context, ev *monitor.MatchEvent) error {
	<-s.release
	s.delivered <- ev
	return nil
}

// The record path runs inside the poll loop, so a stalled target must
// not delay Notify.
func TestFanoutDoesNotBlockOnSlowTarget(t *testing.T) {
	slow := newStallingNotifier(1)
	fast := newRecordingNotifier(nil)
	f := NewFanout(testLogger(), slow, fast)

	start := time.Now()
	if err := f.Notify(context.Background(), testEvent("p1")); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("Notify() took %v with a stalled target, want immediate return", elapsed)
	}

	if ev := waitForEvent(t, fast.events); ev.PostID != "p1" {
		t.Errorf("fast target got PostID %q, want p1", ev.PostID)
	}

	close(slow.release)
	if ev := waitForEvent(t, slow.delivered); ev.PostID != "p1" {
		t.Errorf("slow target got PostID %q, want p1", ev.PostID)
	}
	f.Close()
}

func TestFanoutDropsEventsForSaturatedTarget(t *testing.T) {
	const sent = targetQueue + 8
	slow := newStallingNotifier(sent)
	f := NewFanout(testLogger(), slow)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := range sent {
			_ = f.Notify(context.Background(), testEvent(fmt.Sprintf("p%d", i)))
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked once the target queue was full")
	}

	close(slow.release)
	f.Close()

	delivered := len(slow.delivered)
	if delivered < targetQueue {
		t.Errorf("delivered %d events, want at least the %d queued", delivered, targetQueue)
	}
	if delivered == sent {
		t.Error("all events delivered; a saturated target should have dropped some")
	}
}

func TestFanoutNotifyAfterClose(t *testing.T) {
	f := NewFanout(testLogger(), newRecordingNotifier(nil))
	f.Close()
	f.Close() // double-close must be safe

	if err := f.Notify(context.Background(), testEvent("p1")); err != nil {
		t.Errorf("Notify() after Close error = %v, want nil", err)
	}
}

func TestHubDeliversToSubscribers(t *testing.T) {
	h := NewHub(testLogger())

	ch1, cancel1 := h.Subscribe()
	ch2, cancel2 := h.Subscribe()
	defer cancel1()
	defer cancel2()

	if got := h.ClientCount(); got != 2 {
		t.Fatalf("ClientCount() = %d, want 2", got)
	}

	ev := testEvent("p1")
	if err := h.Notify(context.Background(), ev); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	for i, ch := range []<-chan *monitor.MatchEvent{ch1, ch2} {
		select {
		case got := <-ch:
			if got.PostID != "p1" {
				t.Errorf("subscriber %d got PostID %q, want p1", i, got.PostID)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d received nothing", i)
		}
	}
}

func TestHubUnsubscribe(t *testing.T) {
	h := NewHub(testLogger())

	ch, cancel := h.Subscribe()
	cancel()
	cancel() // double-cancel must be safe

	if got := h.ClientCount(); got != 0 {
		t.Errorf("ClientCount() = %d after cancel, want 0", got)
	}

	if _, open := <-ch; open {
		t.Error("channel still open after unsubscribe")
	}

	// Notifying with no subscribers is a no-op.
	if err := h.Notify(context.Background(), testEvent("p1")); err != nil {
		t.Errorf("Notify() error = %v", err)
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	h := NewHub(testLogger())

	_, cancel := h.Subscribe()
	defer cancel()

	// Overflow the subscriber buffer without draining it.
	for i := range clientBuffer + 1 {
		if err := h.Notify(context.Background(), testEvent("p"+string(rune('0'+i%10)))); err != nil {
			t.Fatalf("Notify() error = %v", err)
		}
	}

	if got := h.ClientCount(); got != 0 {
		t.Errorf("ClientCount() = %d, want 0 (slow client dropped)", got)
	}
}

func TestWebhookPostsEventJSON(t *testing.T) {
	var received monitor.MatchEvent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, testLogger())
	ev := testEvent("p1")
	if err := w.Notify(context.Background(), ev); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	if received.PostID != "p1" {
		t.Errorf("payload post_id = %q, want p1", received.PostID)
	}
	if len(received.MatchedTerms) != 1 || received.MatchedTerms[0] != "theft" {
		t.Errorf("payload matched_terms = %v, want [theft]", received.MatchedTerms)
	}
}

func TestWebhookRetriesOnServerError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, testLogger())
	if err := w.Notify(context.Background(), testEvent("p1")); err != nil {
		t.Fatalf("Notify() error = %v, want success after retry", err)
	}
	if calls != 2 {
		t.Errorf("server called %d times, want 2", calls)
	}
}
