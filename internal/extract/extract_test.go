package extract

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retreatscout/retreat-scout/internal/searchprov"
)

func TestBuildQuery(t *testing.T) {
	got := BuildQuery("Yoga in Bali")
	want := "Yoga in Bali retreat yoga OR meditation OR wellness site:retreat.guru OR site:bookretreats.com OR site:tripaneer.com"
	assert.Equal(t, want, got)
}

func TestExtract_UbudScenario(t *testing.T) {
	items := []searchprov.Item{{
		Title:       "10-Day Yoga Retreat in Ubud",
		Snippet:     "Join us March 15, 2025 in Bali",
		DisplayLink: "bookretreats.com",
		Link:        "https://bookretreats.com/r/ubud",
		Thumbnail:   "https://img.example/ubud.jpg",
	}}

	cs := Extract(items)
	require.Len(t, cs, 1)
	assert.Equal(t, Candidate{
		Title:    "10-Day Yoga Retreat in Ubud",
		Location: "bookretreats.com",
		Date:     "March 15, 2025",
		Link:     "https://bookretreats.com/r/ubud",
		Image:    "https://img.example/ubud.jpg",
	}, cs[0])
}

func TestExtract_FiltersUnrelatedItems(t *testing.T) {
	items := []searchprov.Item{
		{Title: "Cheap flights to Denpasar", Snippet: "Fly today"},
		{Title: "Silent MEDITATION week", Snippet: "ten days of quiet"},
		{Title: "Hotel deals", Snippet: "wellness spa included"},
	}
	cs := Extract(items)
	require.Len(t, cs, 2)
	assert.Equal(t, "Silent MEDITATION week", cs[0].Title)
	assert.Equal(t, "Hotel deals", cs[1].Title)
}

func TestExtract_CapsAtFivePreservingOrder(t *testing.T) {
	var items []searchprov.Item
	for i := 0; i < 9; i++ {
		items = append(items, searchprov.Item{
			Title:   fmt.Sprintf("Yoga retreat %d", i),
			Snippet: "a retreat",
		})
	}
	cs := Extract(items)
	require.Len(t, cs, MaxCandidates)
	for i, c := range cs {
		assert.Equal(t, fmt.Sprintf("Yoga retreat %d", i), c.Title)
	}
}

func TestExtract_DateSentinelWhenNoMatch(t *testing.T) {
	items := []searchprov.Item{{Title: "Yoga escape", Snippet: "sometime soon, we promise"}}
	cs := Extract(items)
	require.Len(t, cs, 1)
	assert.Equal(t, DateSentinel, cs[0].Date)
}

func TestExtract_DatePatternVariants(t *testing.T) {
	cases := map[string]string{
		"starts Jan 3, 2026 sharp":     "Jan 3, 2026",
		"all of September 2025 open":   "September 2025",
		"December 31 2025 celebration": "December 31 2025",
		"May, 2027 bookings":           "May, 2027",
	}
	for snippet, want := range cases {
		cs := Extract([]searchprov.Item{{Title: "yoga", Snippet: snippet}})
		require.Len(t, cs, 1, snippet)
		assert.Equal(t, want, cs[0].Date, snippet)
	}
}

func TestExtract_FallbackImageWhenNoThumbnail(t *testing.T) {
	cs := Extract([]searchprov.Item{{Title: "wellness", Snippet: ""}})
	require.Len(t, cs, 1)
	assert.Equal(t, FallbackImage, cs[0].Image)
}

func TestExtract_MalformedItemsDegrade(t *testing.T) {
	// An item with only a matching title still yields a candidate with
	// sentinel date and fallback image; nothing panics or errors.
	cs := Extract([]searchprov.Item{{Title: "retreat"}})
	require.Len(t, cs, 1)
	assert.Equal(t, DateSentinel, cs[0].Date)
	assert.Equal(t, FallbackImage, cs[0].Image)
	assert.Empty(t, cs[0].Link)
}
