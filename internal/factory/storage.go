// Package factory constructs the service's swappable dependencies from
// configuration: the store adapter and the search provider.
package factory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/retreatscout/retreat-scout/internal/config"
	storepkg "github.com/retreatscout/retreat-scout/internal/store"
	storepg "github.com/retreatscout/retreat-scout/internal/store/postgres"
	storesqlite "github.com/retreatscout/retreat-scout/internal/store/sqlite"
)

// NewStore returns a store.Store for the configured driver. Postgres
// bootstrap (idempotent schema apply) runs synchronously; the service
// must not accept traffic against missing tables.
func NewStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storepkg.Store, error) {
	switch cfg.DBDriver {
	case "sqlite":
		st, err := storesqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info().Str("driver", cfg.DBDriver).Str("path", cfg.SQLitePath).Msg("store ready")
		return st, nil

	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("RETREAT_SCOUT_POSTGRES_DSN is required when DB_DRIVER=postgres")
		}
		db, err := storepg.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := storepg.Bootstrap(ctx, db); err != nil {
			return nil, fmt.Errorf("postgres bootstrap: %w", err)
		}
		log.Info().Str("driver", cfg.DBDriver).Msg("store ready")
		return storepg.NewWithDB(db), nil

	default:
		return nil, fmt.Errorf("unknown DB_DRIVER: %s", cfg.DBDriver)
	}
}
