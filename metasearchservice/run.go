package metasearchservice

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

	"github.com/ndsh/metasearch/internal/api"
	"github.com/ndsh/metasearch/internal/catalog"
	"github.com/ndsh/metasearch/internal/config"
	emb "github.com/ndsh/metasearch/internal/embeddings"
	"github.com/ndsh/metasearch/internal/factory"
	"github.com/ndsh/metasearch/internal/health"
	"github.com/ndsh/metasearch/internal/logger"
	"github.com/ndsh/metasearch/internal/search"
)

// Run starts the metasearch HTTP server and blocks until shutdown or error.
func Run() error {
	log := logger.New("metasearch-service")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}
	log = log.Level(logger.ParseLevel(cfg.LogLevel))

	// Create cancellable root context bound to SIGINT/SIGTERM
	ctx, stop := newServerContext()
	defer stop()

	ln, err := net.Listen("tcp", cfg.GetHTTPAddr())
	if err != nil {
		log.Error().Stack().Err(err).Int("port", cfg.HTTPPort).Msg("Failed to bind HTTP port")
		return err
	}
	return Serve(ctx, cfg, log, ln)
}

// Serve loads the catalog and embedding provider, then serves the API on ln
// until ctx is cancelled. Startup failures are returned before serving.
func Serve(ctx context.Context, cfg *config.Config, log zerolog.Logger, ln net.Listener) error {
	log.Info().
		Str("environment", string(cfg.Environment)).
		Str("embed_provider", cfg.EmbedProvider).
		Str("embed_model", factory.ModelName(cfg)).
		Str("addr", ln.Addr().String()).
		Msg("Metasearch service starting")

	// Initialize dependencies (catalog, embedder)
	tbl, embedProvider, err := initDependencies(ctx, cfg, log)
	if err != nil {
		_ = ln.Close()
		return err
	}
	if c, ok := embedProvider.(emb.Closer); ok {
		defer c.Close()
	}

	searcher, err := search.New(tbl, embedProvider, factory.ModelName(cfg), log)
	if err != nil {
		_ = ln.Close()
		return err
	}

	// Start health checkers and block startup until dependencies report healthy
	svcHealth := startHealthCheckers(ctx, cfg, log, tbl, embedProvider)
	if err := waitUntilHealthy(ctx, cfg, svcHealth); err != nil {
		log.Error().Stack().Err(err).Msg("startup health check failed")
		_ = ln.Close()
		return err
	}

	router := buildRouter(searcher, svcHealth, cfg, log)

	// HTTP server and serve
	server := newHTTPServer(ctx, router)
	errCh := serveHTTP(server, ln, log)

	// Graceful shutdown on context cancel or server error
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

// initDependencies constructs required components and enforces fail-fast on missing deps.
// The provider comes first so preloaded embeddings can be checked against its output.
func initDependencies(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*catalog.Table, emb.Provider, error) {
	embProvider, dims, err := factory.NewEmbeddingProvider(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Embedding provider unavailable")
		return nil, nil, err
	}

	tbl, err := factory.NewCatalog(ctx, cfg, dims, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Catalog unavailable")
		if c, ok := embProvider.(emb.Closer); ok {
			_ = c.Close()
		}
		return nil, nil, err
	}
	return tbl, embProvider, nil
}

// buildRouter wires HTTP routes to handlers.
func buildRouter(searcher *search.Searcher, svcHealth *health.ServiceHealthChecker, cfg *config.Config, log zerolog.Logger) *mux.Router {
	return api.NewRouter(api.Options{
		Searcher:      searcher,
		Health:        svcHealth,
		DefaultColumn: cfg.DefaultColumn,
		DefaultTopK:   cfg.DefaultTopK,
		Logger:        log,
	})
}

// startHealthCheckers starts component checkers and the service-level aggregator.
func startHealthCheckers(ctx context.Context, cfg *config.Config, log zerolog.Logger, tbl *catalog.Table, embProvider emb.Provider) *health.ServiceHealthChecker {
	var checkers []health.HealthChecker
	probeTimeout := time.Duration(cfg.HealthProbeTimeoutSeconds) * time.Second
	interval := healthInterval(cfg.HealthIntervalSeconds)

	// First probes run inline so the aggregator's initial evaluation sees them.
	catalogChecker := health.NewPingChecker("catalog", tbl, log, probeTimeout)
	catalogChecker.Probe(ctx)
	go catalogChecker.StartAfter(ctx, interval)
	checkers = append(checkers, catalogChecker)

	embChecker := emb.NewProviderHealthChecker(embProvider, log, probeTimeout)
	embChecker.Probe(ctx)
	go embChecker.StartAfter(ctx, interval)
	checkers = append(checkers, embChecker)

	svcHealth := health.NewServiceHealthChecker(log, checkers...)
	go svcHealth.Start(ctx, interval)
	return svcHealth
}

func healthInterval(seconds int) time.Duration {
	if seconds <= 0 {
		seconds = 30
	}
	return time.Duration(seconds) * time.Second
}

func newHTTPServer(ctx context.Context, handler http.Handler) *http.Server {
	return &http.Server{
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      2 * time.Minute, // first search on a column embeds it
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, ln net.Listener, log zerolog.Logger) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("HTTP server starting")
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// calculateStartupHealthTimeout returns the startup health timeout in seconds,
// calculated as interval*2 with a minimum of 60 seconds.
func calculateStartupHealthTimeout(healthIntervalSeconds int) int {
	timeout := healthIntervalSeconds * 2
	if timeout < 60 {
		return 60
	}
	return timeout
}

// waitUntilHealthy blocks until service health is healthy or the startup window expires.
func waitUntilHealthy(ctx context.Context, cfg *config.Config, svcHealth *health.ServiceHealthChecker) error {
	timeoutSeconds := calculateStartupHealthTimeout(cfg.HealthIntervalSeconds)
	deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
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
