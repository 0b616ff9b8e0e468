// Package monitor contains the core domain types for the neighborhood
// monitoring service.
package monitor

import "time"

// Location is a latitude/longitude pair attached to a post.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Post represents a single neighborhood feed item fetched from the vendor.
// Posts are transient: they are scanned for matches and then discarded.
type Post struct {
	ID        string     // Vendor-assigned identifier, unique per post
	Title     string     // Short headline, may be empty
	Text      string     // Free-form body, scanned together with Title
	CreatedAt time.Time  // When the post was created at the vendor
	Location  *Location  // Optional coordinates
	Address   string     // Optional human-readable address
}

// MatchEvent is the record created the first time a post matches a
// configured term. Events are immutable once created; the JSON field
// names are the payload contract for the query API and push channel.
type MatchEvent struct {
	PostID        string     `json:"post_id"`
	Title         string     `json:"title,omitempty"`
	Text          string     `json:"text,omitempty"`
	MatchedTerms  []string   `json:"matched_terms"`
	PostTimestamp time.Time  `json:"post_timestamp"`
	DetectedAt    time.Time  `json:"detected_at"`
	Location      *Location  `json:"location,omitempty"`
	Address       string     `json:"address,omitempty"`
}
