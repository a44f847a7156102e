// Package extract turns raw search result items into structured retreat
// candidates. It is pure: no I/O, no errors, malformed items degrade to
// sentinels and fallbacks.
package extract

import (
	"regexp"
	"strings"

	"github.com/retreatscout/retreat-scout/internal/searchprov"
)

// DateSentinel is used when a snippet carries no recognizable date.
const DateSentinel = "Date not available"

// FallbackImage is used when a result has no structured thumbnail.
const FallbackImage = "https://source.unsplash.com/featured/?retreat"

// MaxCandidates bounds every candidate list, preserving API order.
const MaxCandidates = 5

// sourceDomains is the fixed allowlist baked into every query.
var sourceDomains = []string{"retreat.guru", "bookretreats.com", "tripaneer.com"}

// keywordRx retains only results that mention the retreat domain at all.
var keywordRx = regexp.MustCompile(`(?i)retreat|yoga|meditation|wellness`)

// dateRx matches an English month name (full or abbreviated), an optional
// day number, an optional comma, and a 4-digit year.
var dateRx = regexp.MustCompile(`\b(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|Jun(?:e)?|Jul(?:y)?|Aug(?:ust)?|Sep(?:tember)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)(?:\s+\d{1,2})?,?\s+\d{4}\b`)

// Candidate is a retreat record derived from a single search result item,
// not yet persisted.
type Candidate struct {
	Title    string `json:"title"`
	Location string `json:"location"`
	Date     string `json:"date"`
	Link     string `json:"link"`
	Image    string `json:"image"`
}

// BuildQuery expands a user query into the fixed search template with the
// source-domain allowlist.
func BuildQuery(raw string) string {
	var b strings.Builder
	b.WriteString(raw)
	b.WriteString(" retreat yoga OR meditation OR wellness")
	for i, d := range sourceDomains {
		if i == 0 {
			b.WriteString(" site:")
		} else {
			b.WriteString(" OR site:")
		}
		b.WriteString(d)
	}
	return b.String()
}

// Extract filters and maps search items into at most MaxCandidates
// candidates, preserving the provider's ranking order.
func Extract(items []searchprov.Item) []Candidate {
	out := make([]Candidate, 0, MaxCandidates)
	for _, it := range items {
		if !keywordRx.MatchString(it.Title + it.Snippet) {
			continue
		}
		out = append(out, fromItem(it))
		if len(out) == MaxCandidates {
			break
		}
	}
	return out
}

func fromItem(it searchprov.Item) Candidate {
	date := DateSentinel
	if m := dateRx.FindString(it.Snippet); m != "" {
		date = m
	}
	image := it.Thumbnail
	if image == "" {
		image = FallbackImage
	}
	return Candidate{
		Title:    it.Title,
		Location: it.DisplayLink,
		Date:     date,
		Link:     it.Link,
		Image:    image,
	}
}
