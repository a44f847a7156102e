// Package searchprov wraps the third-party web search API the chat
// pipeline queries for retreat listings. The raw response shape is
// validated once here; internal code only ever sees Item.
package searchprov

import "context"

// Item is one search result after boundary validation. Thumbnail is
// empty when the result carried no structured image metadata.
type Item struct {
	Title       string
	Snippet     string
	DisplayLink string
	Link        string
	Thumbnail   string
}

// Provider executes a single search query. Implementations do not
// paginate, retry, or re-rank; callers receive results in API order.
type Provider interface {
	Search(ctx context.Context, query string) ([]Item, error)
}
