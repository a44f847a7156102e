// Package chatservice wires configuration, storage, search, identity
// and the HTTP transport into a runnable service.
package chatservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/retreatscout/retreat-scout/internal/api"
	"github.com/retreatscout/retreat-scout/internal/chat"
	"github.com/retreatscout/retreat-scout/internal/config"
	"github.com/retreatscout/retreat-scout/internal/factory"
	"github.com/retreatscout/retreat-scout/internal/health"
	"github.com/retreatscout/retreat-scout/internal/identity"
	"github.com/retreatscout/retreat-scout/internal/logger"
	"github.com/retreatscout/retreat-scout/internal/searchprov"
	"github.com/retreatscout/retreat-scout/internal/store"
)

// Run starts the retreat service HTTP server and blocks until shutdown or error.
func Run() error {
	log := logger.New("retreat-service")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}
	if cfg.JWTSecret == "" {
		err := fmt.Errorf("RETREAT_SCOUT_JWT_SECRET is required")
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log.Info().
		Str("build_target", cfg.BuildTarget).
		Str("db_driver", cfg.DBDriver).
		Int("http_port", cfg.HTTPPort).
		Str("search_base_url", cfg.SearchBaseURL).
		Msg("Retreat service starting")

	// Cancellable root context bound to SIGINT/SIGTERM.
	ctx, stop := newServerContext()
	defer stop()

	st, provider, err := initDependencies(ctx, cfg, log)
	if err != nil {
		return err
	}

	router := buildRouter(st, provider, cfg, log)

	svcHealth := startHealthCheckers(ctx, cfg, log, st, provider)

	// Block startup until dependencies report healthy; fail fast otherwise.
	if err := waitUntilHealthy(ctx, cfg, svcHealth); err != nil {
		log.Error().Stack().Err(err).Msg("startup health check failed")
		return err
	}

	server := newHTTPServer(ctx, cfg, router)
	errCh := serveHTTP(server, log, cfg)

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

// initDependencies constructs the store and search provider, failing
// fast when either is missing.
func initDependencies(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Store, *searchprov.GoogleProvider, error) {
	st, err := factory.NewStore(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Store adapter unavailable")
		return nil, nil, err
	}

	provider, err := factory.NewSearchProvider(cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Search provider unavailable")
		return nil, nil, err
	}
	return st, provider, nil
}

// buildRouter wires HTTP routes to handlers.
func buildRouter(st store.Store, provider *searchprov.GoogleProvider, cfg *config.Config, log zerolog.Logger) *mux.Router {
	ids := identity.NewService(st, cfg.JWTSecret, log)
	hub := chat.NewHub(st, provider, log)
	return api.NewRouter(st, hub, ids)
}

// startHealthCheckers starts component checkers and the service-level
// aggregator, and binds the aggregate to the health endpoint.
func startHealthCheckers(ctx context.Context, cfg *config.Config, log zerolog.Logger, st store.Store, provider *searchprov.GoogleProvider) *health.ServiceHealthChecker {
	probeTimeout := time.Duration(cfg.HealthProbeTimeoutSeconds) * time.Second
	interval := time.Duration(cfg.HealthIntervalSeconds) * time.Second

	var checkers []health.HealthChecker
	if pinger, ok := st.(health.HealthPinger); ok {
		storeChecker := health.NewPingChecker("store", pinger, log, probeTimeout)
		go storeChecker.Start(ctx, interval)
		checkers = append(checkers, storeChecker)
	}
	searchChecker := health.NewPingChecker("search", provider, log, probeTimeout)
	go searchChecker.Start(ctx, interval)
	checkers = append(checkers, searchChecker)

	svcHealth := health.NewServiceHealthChecker(log, checkers...)
	go svcHealth.Start(ctx, interval)
	api.BindServiceHealth(svcHealth.IsHealthy)
	return svcHealth
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// calculateStartupHealthTimeout returns the startup health timeout in
// seconds: interval*2 with a minimum of 60 seconds.
func calculateStartupHealthTimeout(healthIntervalSeconds int) int {
	timeout := healthIntervalSeconds * 2
	if timeout < 60 {
		return 60
	}
	return timeout
}

// waitUntilHealthy blocks until service health is healthy or the startup window expires.
func waitUntilHealthy(ctx context.Context, cfg *config.Config, svcHealth *health.ServiceHealthChecker) error {
	// Checkers start unhealthy and need at least one probe cycle.
	timeoutSeconds := calculateStartupHealthTimeout(cfg.HealthIntervalSeconds)
	deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		if svcHealth.IsHealthy() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("startup aborted: dependencies not healthy within %d seconds", timeoutSeconds)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// newServerContext returns a cancellable context that is cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
