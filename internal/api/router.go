package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/ndsh/metasearch/internal/api/recovery"
	"github.com/ndsh/metasearch/internal/api/requestid"
	"github.com/ndsh/metasearch/internal/api/respond"
	"github.com/ndsh/metasearch/internal/model"
	"github.com/ndsh/metasearch/internal/search"
)

// Searcher is the search capability the HTTP layer depends on.
type Searcher interface {
	Search(ctx context.Context, query, column string, k int) ([]search.Hit, error)
	CheckProjection(columns []string) error
	ModelName() string
	Columns() []model.ColumnInfo
}

// HealthReporter exposes cached service and component health.
type HealthReporter interface {
	IsHealthy() bool
	Components() map[string]bool
}

// Options configures NewRouter.
type Options struct {
	Searcher      Searcher
	Health        HealthReporter // nil reports healthy
	DefaultColumn string
	DefaultTopK   int
	Logger        zerolog.Logger
}

// NewRouter creates the HTTP router with all API routes.
func NewRouter(opts Options) *mux.Router {
	router := mux.NewRouter()

	// Global middlewares, outermost first
	router.Use(requestid.Middleware)
	router.Use(AccessLog(opts.Logger))
	router.Use(recovery.Middleware)

	router.NotFoundHandler = requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond.WriteNotFound(w, "no route for "+r.URL.Path)
	}))
	router.MethodNotAllowedHandler = requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond.WriteMethodNotAllowed(w, r.Method+" not allowed on "+r.URL.Path)
	}))

	homeHandler := NewHomeHandler(opts.Searcher, opts.Health)
	healthHandler := NewHealthHandler(opts.Health)
	searchHandler := NewSearchHandler(opts.Searcher, opts.DefaultColumn, opts.DefaultTopK, opts.Logger)

	router.HandleFunc("/", homeHandler.Home).Methods("GET")
	router.HandleFunc("/health", healthHandler.CheckHealth).Methods("GET")
	router.HandleFunc("/columns", searchHandler.ListColumns).Methods("GET")
	router.HandleFunc("/search", searchHandler.HandleSearch).Methods("POST")

	return router
}
