package source

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRingSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/clients_api/neighborhoods/alerts" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"alerts": [
				{
					"id": "alert_1",
					"title": "Suspicious Activity",
					"description": "<p>Someone was <b>lurking</b> around the block</p>",
					"created_at": "2025-06-01T12:00:00Z",
					"latitude": 37.7749,
					"longitude": -122.4194,
					"address": "123 Main St, San Francisco, CA"
				},
				{
					"id": "",
					"title": "No ID, dropped",
					"description": "ignored"
				},
				{
					"id": "alert_2",
					"title": "Plain text",
					"description": "police were called 🚔",
					"created_at": "not-a-timestamp"
				}
			]
		}`))
	}))
	defer srv.Close()

	src := NewRingSource("test-token", srv.URL, testLogger())
	if src.Name() != "ring" {
		t.Errorf("Name() = %q, want ring", src.Name())
	}

	posts, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("Fetch() returned %d posts, want 2 (item without id dropped)", len(posts))
	}

	first := posts[0]
	if first.ID != "alert_1" {
		t.Errorf("ID = %q, want alert_1", first.ID)
	}
	if first.Text != "Someone was lurking around the block" {
		t.Errorf("Text = %q, want markup stripped", first.Text)
	}
	want := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if !first.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", first.CreatedAt, want)
	}
	if first.Location == nil || first.Location.Latitude != 37.7749 {
		t.Errorf("Location = %+v, want parsed coordinates", first.Location)
	}

	second := posts[1]
	if second.Text != "police were called 🚔" {
		t.Errorf("Text = %q, want plain text preserved", second.Text)
	}
	if !second.CreatedAt.IsZero() {
		t.Errorf("CreatedAt = %v, want zero for unparseable timestamp", second.CreatedAt)
	}
	if second.Location != nil {
		t.Errorf("Location = %+v, want nil when coordinates absent", second.Location)
	}
}

func TestRingSourceFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	src := NewRingSource("bad-token", srv.URL, testLogger())
	if _, err := src.Fetch(context.Background()); err == nil {
		t.Fatal("Fetch() error = nil, want HTTP status error")
	}
}

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "theft reported 🚨", "theft reported 🚨"},
		{"tags stripped", "<div><p>theft</p> reported</div>", "theft reported"},
		{"whitespace trimmed", "  padded  ", "padded"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htmlToText(tt.in); got != tt.want {
				t.Errorf("htmlToText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
