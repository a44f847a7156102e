package searchprov

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleProvider_ParsesItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customsearch/v1", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "test-cx", r.URL.Query().Get("cx"))
		assert.Equal(t, "yoga retreat", r.URL.Query().Get("q"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
            "items": [
                {
                    "title": "10-Day Yoga Retreat in Ubud",
                    "snippet": "Join us March 15, 2025 in Bali",
                    "displayLink": "bookretreats.com",
                    "link": "https://bookretreats.com/r/ubud",
                    "pagemap": {"cse_image": [{"src": "https://img.example/ubud.jpg"}]}
                },
                {
                    "title": "Wellness Weekend",
                    "snippet": "No image for this one",
                    "displayLink": "retreat.guru",
                    "link": "https://retreat.guru/r/weekend"
                }
            ]
        }`))
	}))
	defer srv.Close()

	p := NewGoogleProvider(srv.URL, "test-key", "test-cx")
	items, err := p.Search(context.Background(), "yoga retreat")
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "10-Day Yoga Retreat in Ubud", items[0].Title)
	assert.Equal(t, "https://img.example/ubud.jpg", items[0].Thumbnail)
	assert.Equal(t, "bookretreats.com", items[0].DisplayLink)
	assert.Empty(t, items[1].Thumbnail)
}

func TestGoogleProvider_MissingItemsIsEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	p := NewGoogleProvider(srv.URL, "k", "cx")
	items, err := p.Search(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestGoogleProvider_NonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewGoogleProvider(srv.URL, "k", "cx")
	_, err := p.Search(context.Background(), "anything")
	assert.Error(t, err)
}
