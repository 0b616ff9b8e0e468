package source

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"neighborhood-monitor/pkg/monitor"
)

// mockLocations are base coordinates for San Francisco neighborhoods.
var mockLocations = []struct {
	name string
	lat  float64
	lng  float64
}{
	{"Mission District", 37.7599, -122.4148},
	{"Castro", 37.7609, -122.4350},
	{"Nob Hill", 37.7919, -122.4158},
	{"Haight-Ashbury", 37.7692, -122.4481},
	{"Marina", 37.8021, -122.4378},
	{"Sunset District", 37.7575, -122.4948},
	{"Richmond", 37.7805, -122.4716},
	{"SOMA", 37.7749, -122.4194},
	{"North Beach", 37.8006, -122.4100},
	{"Potrero Hill", 37.7574, -122.3991},
}

var mockTemplates = []string{
	"Saw %s activity near %s",
	"Be aware: %s reported in the area %s",
	"%s %s alert! Stay vigilant",
	"Police responded to %s incident",
	"Neighborhood watch: %s behavior observed",
	"Security concern - %s %s",
	"Alert: %s in progress",
	"Community safety: %s reported %s",
}

var (
	mockKeywords = []string{"suspicious", "theft", "break-in", "burglar", "police", "safety", "alert"}
	mockEmojis   = []string{"🚨", "🚔", "⚠️", "🔴", "👮", "🏃"}

	// Template indices split by whether a slot holds an emoji, so a
	// post without one never renders stray padding.
	emojiTemplateIdx = []int{1, 2, 5, 7}
	plainTemplateIdx = []int{0, 3, 4, 6}
)

// MockSource generates realistic demo posts so the matcher, store, and
// dashboard can be exercised without vendor access. Roughly a quarter of
// each batch repeats an earlier post so deduplication is visible end to
// end, and some posts contain no configured term at all.
type MockSource struct {
	mu     sync.Mutex
	rng    *rand.Rand
	seq    int
	logger *slog.Logger
}

// NewMockSource creates a generator. A non-zero seed makes the stream
// deterministic for tests.
func NewMockSource(seed int64, logger *slog.Logger) *MockSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &MockSource{
		rng:    rand.New(rand.NewSource(seed)),
		logger: logger,
	}
}

// Name identifies the source in logs and the config endpoint.
func (*MockSource) Name() string { return "mock" }

// Fetch returns a small batch of generated posts.
func (m *MockSource) Fetch(_ context.Context) ([]*monitor.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 3 + m.rng.Intn(5)
	posts := make([]*monitor.Post, 0, count)

	for range count {
		n := m.seq
		if m.seq > 0 && m.rng.Intn(4) == 0 {
			// Re-emit an earlier post ID to exercise deduplication.
			n = m.rng.Intn(m.seq)
		} else {
			m.seq++
		}
		posts = append(posts, m.generate(n))
	}

	m.logger.Debug("Mock batch generated", "posts", len(posts))
	return posts, nil
}

func (m *MockSource) generate(n int) *monitor.Post {
	loc := mockLocations[m.rng.Intn(len(mockLocations))]

	var text string
	if m.rng.Intn(5) == 0 {
		// Occasional post with nothing of interest.
		text = fmt.Sprintf("Has anyone seen a golden retriever near %s?", loc.name)
	} else {
		keyword := mockKeywords[m.rng.Intn(len(mockKeywords))]
		if m.rng.Intn(2) == 0 {
			emoji := mockEmojis[m.rng.Intn(len(mockEmojis))]
			tmpl := mockTemplates[emojiTemplateIdx[m.rng.Intn(len(emojiTemplateIdx))]]
			text = formatTemplate(tmpl, keyword, loc.name, emoji)
		} else {
			tmpl := mockTemplates[plainTemplateIdx[m.rng.Intn(len(plainTemplateIdx))]]
			text = formatTemplate(tmpl, keyword, loc.name, "")
		}
	}

	return &monitor.Post{
		ID:        fmt.Sprintf("demo_post_%d", n),
		Title:     fmt.Sprintf("Alert #%d", n+1),
		Text:      text,
		CreatedAt: time.Now().Add(-time.Duration(m.rng.Intn(24*60)) * time.Minute),
		Location: &monitor.Location{
			Latitude:  loc.lat + m.rng.Float64()*0.02 - 0.01,
			Longitude: loc.lng + m.rng.Float64()*0.02 - 0.01,
		},
		Address: fmt.Sprintf("%d Street, %s, San Francisco, CA", 100+m.rng.Intn(900), loc.name),
	}
}

// formatTemplate fills a template whose verbs vary between
// (keyword, location), (keyword, emoji), and (emoji, keyword) order.
func formatTemplate(tmpl, keyword, location, emoji string) string {
	switch tmpl {
	case mockTemplates[0]:
		return fmt.Sprintf(tmpl, keyword, location)
	case mockTemplates[2]:
		return fmt.Sprintf(tmpl, emoji, keyword)
	case mockTemplates[3], mockTemplates[4], mockTemplates[6]:
		return fmt.Sprintf(tmpl, keyword)
	default:
		return fmt.Sprintf(tmpl, keyword, emoji)
	}
}
