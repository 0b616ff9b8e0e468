// Package match implements keyword and emoji detection over post text.
package match

import "strings"

// Find returns the configured terms present in text. Keywords match
// case-insensitively as substrings; emojis match as exact codepoint
// sequences with no variant or skin-tone folding. Because containment
// is over raw sequences, a configured base emoji also matches where it
// starts a longer variant (👍 matches inside 👍🏽), while a configured
// variant never matches the bare base emoji. Returned terms keep their
// configured spelling and appear in configuration order, keywords before
// emojis, with no duplicates. An empty result means no match and is the
// expected common case, not an error.
func Find(text string, keywords, emojis []string) []string {
	if text == "" || (len(keywords) == 0 && len(emojis) == 0) {
		return nil
	}

	lower := strings.ToLower(text)

	var terms []string
	seen := make(map[string]struct{})

	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			terms = append(terms, kw)
			seen[kw] = struct{}{}
		}
	}

	for _, emoji := range emojis {
		if emoji == "" {
			continue
		}
		if _, dup := seen[emoji]; dup {
			continue
		}
		if strings.Contains(text, emoji) {
			terms = append(terms, emoji)
			seen[emoji] = struct{}{}
		}
	}

	return terms
}

// FindInPost scans a post's title and body together, the same way the
// dashboard presents them.
func FindInPost(title, text string, keywords, emojis []string) []string {
	switch {
	case title == "":
		return Find(text, keywords, emojis)
	case text == "":
		return Find(title, keywords, emojis)
	default:
		return Find(title+" "+text, keywords, emojis)
	}
}
