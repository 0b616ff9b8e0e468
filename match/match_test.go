package match

import (
	"reflect"
	"testing"
)

func TestFind(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		keywords []string
		emojis   []string
		want     []string
	}{
		{
			name:     "case-insensitive keyword",
			text:     "Suspicious activity reported",
			keywords: []string{"suspicious"},
			want:     []string{"suspicious"},
		},
		{
			name:     "all-caps text still matches",
			text:     "SUSPICIOUS",
			keywords: []string{"suspicious"},
			want:     []string{"suspicious"},
		},
		{
			name:     "keyword embedded in longer token",
			text:     "THEFT123 reported downtown",
			keywords: []string{"theft"},
			want:     []string{"theft"},
		},
		{
			name:   "emoji exact match",
			text:   "Watch out 🚨",
			emojis: []string{"🚨"},
			want:   []string{"🚨"},
		},
		{
			name:   "emoji absent",
			text:   "no emoji here",
			emojis: []string{"🚨"},
			want:   nil,
		},
		{
			// The skin-tone variant starts with the base codepoint, so
			// raw-sequence containment finds the base inside it.
			name:   "base emoji matches inside its skin-tone variant",
			text:   "thanks 👍🏽",
			emojis: []string{"👍"},
			want:   []string{"👍"},
		},
		{
			name:   "skin-tone variant does not match bare base emoji",
			text:   "thanks 👍",
			emojis: []string{"👍🏽"},
			want:   nil,
		},
		{
			name:     "multi-term union",
			text:     "burglar with police called",
			keywords: []string{"burglar", "police"},
			want:     []string{"burglar", "police"},
		},
		{
			name:     "overlapping terms both match",
			text:     "firearm spotted",
			keywords: []string{"fire", "firearm"},
			want:     []string{"fire", "firearm"},
		},
		{
			name:     "keywords and emojis combined, config order",
			text:     "🚔 police responded to theft",
			keywords: []string{"theft", "police"},
			emojis:   []string{"🚨", "🚔"},
			want:     []string{"theft", "police", "🚔"},
		},
		{
			name:     "no configured terms never matches",
			text:     "anything at all",
			keywords: nil,
			emojis:   nil,
			want:     nil,
		},
		{
			name:     "empty text never matches",
			text:     "",
			keywords: []string{"theft"},
			emojis:   []string{"🚨"},
			want:     nil,
		},
		{
			name:     "duplicate configured keyword reported once",
			text:     "theft in progress",
			keywords: []string{"theft", "theft"},
			want:     []string{"theft"},
		},
		{
			name:     "canonical spelling preserved",
			text:     "BREAK-IN on oak street",
			keywords: []string{"Break-In"},
			want:     []string{"Break-In"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Find(tt.text, tt.keywords, tt.emojis)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Find() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFindIsPure(t *testing.T) {
	keywords := []string{"theft"}
	emojis := []string{"🚨"}
	text := "theft alert 🚨"

	first := Find(text, keywords, emojis)
	second := Find(text, keywords, emojis)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Find() not deterministic: %v then %v", first, second)
	}
	if keywords[0] != "theft" || emojis[0] != "🚨" {
		t.Error("Find() mutated its inputs")
	}
}

func TestFindInPost(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		text     string
		keywords []string
		want     []string
	}{
		{
			name:     "term only in title",
			title:    "Police Response",
			text:     "units were dispatched",
			keywords: []string{"police"},
			want:     []string{"police"},
		},
		{
			name:     "term only in body",
			title:    "Neighborhood update",
			text:     "reported theft on Main St",
			keywords: []string{"theft"},
			want:     []string{"theft"},
		},
		{
			name:     "empty title",
			title:    "",
			text:     "suspicious person",
			keywords: []string{"suspicious"},
			want:     []string{"suspicious"},
		},
		{
			name:     "term split across title and body does not match",
			title:    "sus",
			text:     "picious",
			keywords: []string{"suspicious"},
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindInPost(tt.title, tt.text, tt.keywords, nil)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FindInPost() = %v, want %v", got, tt.want)
			}
		})
	}
}
