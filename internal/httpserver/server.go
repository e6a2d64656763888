package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fdg312/nutricart/internal/auth"
	"github.com/fdg312/nutricart/internal/blob"
	"github.com/fdg312/nutricart/internal/cart"
	"github.com/fdg312/nutricart/internal/catalog"
	"github.com/fdg312/nutricart/internal/config"
	"github.com/fdg312/nutricart/internal/logging"
	"github.com/fdg312/nutricart/internal/metrics"
	"github.com/fdg312/nutricart/internal/nutrition"
	"github.com/fdg312/nutricart/internal/profiles"
	"github.com/fdg312/nutricart/internal/reports"
	"github.com/fdg312/nutricart/internal/solver"
	"github.com/fdg312/nutricart/internal/storage/memory"
	"github.com/fdg312/nutricart/internal/suggest"
)

// Server представляет HTTP сервер
type Server struct {
	config         *config.Config
	mux            *http.ServeMux
	storage        *memory.MemoryStorage
	catalog        *catalog.Catalog
	blobStore      blob.Store
	authMiddleware *auth.Middleware
	handler        http.Handler
	httpServer     *http.Server
}

// New создаёт HTTP сервер: blob store, каталог, маршруты
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	store, mode, err := blob.NewBlobStore(ctx, cfg.Blob, logging.Printer{})
	if err != nil {
		return nil, err
	}

	cat, err := LoadCatalog(ctx, cfg, store)
	if err != nil {
		return nil, fmt.Errorf("load catalog from %s: %w", cfg.CatalogSource, err)
	}
	logging.Info().
		Str("source", cfg.CatalogSource).
		Int("products", cat.Len()).
		Str("blob_mode", mode).
		Msg("catalog loaded")

	return NewWithCatalog(cfg, cat, store), nil
}

// NewWithCatalog builds the server around an already loaded catalog. store
// may be nil (local mode).
func NewWithCatalog(cfg *config.Config, cat *catalog.Catalog, store blob.Store) *Server {
	s := &Server{
		config:    cfg,
		mux:       http.NewServeMux(),
		storage:   memory.New(),
		catalog:   cat,
		blobStore: store,
	}
	metrics.SetCatalogProducts(cat.Len())

	s.routes()
	s.handler = s.middleware(s.mux)
	return s
}

// routes регистрирует маршруты
func (s *Server) routes() {
	// Health check & metrics (no auth required)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.Handle("GET /metrics", metrics.Handler())

	// Sessions
	authService := auth.NewService(s.config)
	s.authMiddleware = auth.NewMiddleware(s.config.AuthRequired, authService)

	sessionService := profiles.NewService(s.storage)
	sessionHandler := profiles.NewHandler(sessionService, authService)
	s.mux.HandleFunc("POST /v1/session", sessionHandler.HandleCreate)
	s.mux.HandleFunc("GET /v1/session", sessionHandler.HandleGet)
	s.mux.HandleFunc("PUT /v1/session", sessionHandler.HandleUpdate)
	s.mux.HandleFunc("DELETE /v1/session", sessionHandler.HandleDelete)

	// Targets
	nutritionHandler := nutrition.NewHandler(sessionService)
	s.mux.HandleFunc("GET /v1/nutrition/targets", nutritionHandler.HandleGetTargets)
	s.mux.HandleFunc("POST /v1/nutrition/targets", nutritionHandler.HandleComputeTargets)

	// Catalog & cart
	s.mux.HandleFunc("GET /v1/products", catalog.NewHandler(s.catalog, sessionService).HandleList)
	s.mux.HandleFunc("POST /v1/cart/nutrients", cart.NewHandler(s.catalog).HandleNutrients)

	// Suggestions
	engine := suggest.NewEngine(s.catalog, s.engineOptions())
	timeout := time.Duration(s.config.SuggestTimeoutSeconds) * time.Second
	s.mux.HandleFunc("POST /v1/suggestions", suggest.NewHandler(engine, sessionService, timeout).HandleSuggest)

	// Reports
	reportService := reports.NewService(reports.Options{
		Reports:    s.storage,
		Products:   s.catalog,
		Engine:     engine,
		Profiles:   sessionService,
		BlobStore:  s.blobStore,
		PresignTTL: s.config.Blob.S3.PresignTTLSeconds,
	})
	reportHandler := reports.NewHandlers(reportService, timeout)
	s.mux.HandleFunc("POST /v1/reports", reportHandler.HandleCreate)
	s.mux.HandleFunc("GET /v1/reports", reportHandler.HandleList)
	s.mux.HandleFunc("GET /v1/reports/{id}/download", reportHandler.HandleDownload)
	s.mux.HandleFunc("DELETE /v1/reports/{id}", reportHandler.HandleDelete)
}

func (s *Server) engineOptions() suggest.Options {
	opts := suggest.Options{
		SampleSize:  s.config.SuggestSampleSize,
		MaxAttempts: s.config.SuggestMaxAttempts,
		Solver:      solver.NewFactory(solver.Options{MaxNodes: s.config.SolverMaxNodes}),
	}
	if s.config.SuggestSeed != 0 {
		opts.Rand = suggest.SeededRand(uint64(s.config.SuggestSeed))
	}
	return opts
}

// middleware builds the chain, outermost first:
// CORS → access log/metrics → rate limit → auth → router
func (s *Server) middleware(next http.Handler) http.Handler {
	handler := s.authMiddleware.Wrap(next)
	handler = RateLimitMiddleware(s.config, handler)
	handler = AccessLogMiddleware(s.route, handler)
	handler = CORSMiddleware(s.config, handler)
	return handler
}

// route returns the registered pattern for r, used as a low-cardinality label.
func (s *Server) route(r *http.Request) string {
	_, pattern := s.mux.Handler(r)
	if pattern == "" {
		return "unmatched"
	}
	return pattern
}

// ServeHTTP serves a request through the full middleware chain.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// handleHealthz возвращает статус сервера
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":   "ok",
		"products": s.catalog.Len(),
	})
}

// Start запускает сервер и блокируется до Shutdown
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      time.Duration(s.config.SuggestTimeoutSeconds+10) * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logging.Info().Str("addr", addr).Msg("server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown waits for in-flight requests up to ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
