package factory

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/retreatscout/retreat-scout/internal/config"
	"github.com/retreatscout/retreat-scout/internal/searchprov"
)

// NewSearchProvider returns the Custom Search client. Both the API key
// and the engine id are mandatory; there is no offline fallback.
func NewSearchProvider(cfg *config.Config, log zerolog.Logger) (*searchprov.GoogleProvider, error) {
	if cfg.SearchAPIKey == "" || cfg.SearchCX == "" {
		return nil, fmt.Errorf("RETREAT_SCOUT_SEARCH_API_KEY and RETREAT_SCOUT_SEARCH_CX are required")
	}
	log.Info().Str("base_url", cfg.SearchBaseURL).Msg("search provider ready")
	return searchprov.NewGoogleProvider(cfg.SearchBaseURL, cfg.SearchAPIKey, cfg.SearchCX), nil
}
