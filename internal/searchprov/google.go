package searchprov

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// GoogleProvider calls the Google Custom Search JSON API.
type GoogleProvider struct {
	client *resty.Client
	apiKey string
	cx     string
}

// NewGoogleProvider creates a provider against the given base URL
/// (normally https://www.googleapis.com) with a programmable search
// engine key and CX identifier.
func NewGoogleProvider(baseURL, apiKey, cx string) *GoogleProvider {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second)

	return &GoogleProvider{client: c, apiKey: apiKey, cx: cx}
}

// rawResponse mirrors the subset of the Custom Search response we consume.
type rawResponse struct {
	Items []rawItem `json:"items"`
}

type rawItem struct {
	Title       string `json:"title"`
	Snippet     string `json:"snippet"`
	DisplayLink string `json:"displayLink"`
	Link        string `json:"link"`
	Pagemap     *struct {
		CSEImage []struct {
			Src string `json:"src"`
		} `json:"cse_image"`
	} `json:"pagemap"`
}

// Search executes one query and validates the response shape into Items.
// A missing items array is an empty result, not an error.
func (p *GoogleProvider) Search(ctx context.Context, query string) ([]Item, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"key": p.apiKey,
			"cx":  p.cx,
			"q":   query,
		}).
		Get("/customsearch/v1")
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("search status %d: %s", resp.StatusCode(), resp.String())
	}

	var raw rawResponse
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	items := make([]Item, 0, len(raw.Items))
	for _, ri := range raw.Items {
		it := Item{
			Title:       ri.Title,
			Snippet:     ri.Snippet,
			DisplayLink: ri.DisplayLink,
			Link:        ri.Link,
		}
		if ri.Pagemap != nil && len(ri.Pagemap.CSEImage) > 0 {
			it.Thumbnail = ri.Pagemap.CSEImage[0].Src
		}
		items = append(items, it)
	}
	return items, nil
}

// HealthPing verifies the API endpoint is reachable. The Custom Search
// API has no dedicated health route, so an empty-key request that
// reaches the server at all counts as reachable.
func (p *GoogleProvider) HealthPing(ctx context.Context) error {
	resp, err := p.client.R().SetContext(ctx).Get("/customsearch/v1")
	if err != nil {
		return err
	}
	if resp.StatusCode() >= http.StatusInternalServerError {
		return fmt.Errorf("search endpoint status %d", resp.StatusCode())
	}
	return nil
}
