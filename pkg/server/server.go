package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mnohosten/bufferpoold/pkg/catalog"
	"github.com/mnohosten/bufferpoold/pkg/compression"
	"github.com/mnohosten/bufferpoold/pkg/encryption"
	gql "github.com/mnohosten/bufferpoold/pkg/graphql"
	"github.com/mnohosten/bufferpoold/pkg/metrics"
	"github.com/mnohosten/bufferpoold/pkg/server/handlers"
	"github.com/mnohosten/bufferpoold/pkg/storage"
)

// Server is the admin/introspection HTTP server fronting a BufferPool. It
// never accepts tuple-level reads or writes — those are out of scope for
// this core (spec §1) — only GetPage/lock-table/histogram introspection
// and operational endpoints.
type Server struct {
	config      *Config
	pool        *storage.BufferPool
	store       *storage.FilePageStore
	catalog     catalog.Catalog
	histograms  *catalog.HistogramRegistry
	flusher     *storage.Flusher
	router      *chi.Mux
	httpSrv     *http.Server
	startTime   time.Time
	collector   *metrics.Collector
	statsStream *handlers.StatsStream
	log         *log.Logger
}

// New creates a new Server, opening (or creating) the FilePageStore data
// directory at config.DataDir and wiring it to a fresh BufferPool.
func New(config *Config) (*Server, error) {
	if config.EnableTLS {
		if config.TLSCertFile == "" || config.TLSKeyFile == "" {
			return nil, fmt.Errorf("TLS enabled but certificate or key file not specified")
		}
		if _, err := os.Stat(config.TLSCertFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("TLS certificate file not found: %s", config.TLSCertFile)
		}
		if _, err := os.Stat(config.TLSKeyFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("TLS key file not found: %s", config.TLSKeyFile)
		}
	}

	logger := log.New(os.Stdout, "bufferpoold: ", log.LstdFlags)
	collector := metrics.NewCollector()
	collector.SetPageSize(config.PageSize)

	var storeOpts []storage.FilePageStoreOption
	storeOpts = append(storeOpts, storage.WithIOTracker(collector.Resources()))
	if config.EnableCompression {
		cfg, err := compression.ParseConfig(config.CompressionAlgo)
		if err != nil {
			return nil, fmt.Errorf("parse compression config: %w", err)
		}
		storeOpts = append(storeOpts, storage.WithCompression(cfg))
	}
	if config.EnableEncryption {
		cfg, err := encryption.NewConfigFromPassword(config.EncryptionPassword, encryption.AlgorithmAES256GCM)
		if err != nil {
			return nil, fmt.Errorf("derive encryption key: %w", err)
		}
		storeOpts = append(storeOpts, storage.WithEncryption(cfg))
	}

	store, err := storage.NewFilePageStore(config.DataDir, config.PageSize, storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("open data directory: %w", err)
	}

	pool := storage.NewBufferPool(config.BufferSize, store, logger)
	cat := catalog.NewMemCatalog()
	histograms := catalog.NewHistogramRegistry()

	srv := &Server{
		config:      config,
		pool:        pool,
		store:       store,
		catalog:     cat,
		histograms:  histograms,
		router:      chi.NewRouter(),
		startTime:   time.Now(),
		collector:   collector,
		statsStream: handlers.NewStatsStream(),
		log:         logger,
	}

	if config.FlushIntervalMillis > 0 {
		srv.flusher = storage.NewFlusher(pool, time.Duration(config.FlushIntervalMillis)*time.Millisecond, logger)
	}

	srv.setupMiddleware()
	srv.setupRoutes()

	if config.EnableGraphQL {
		if err := srv.setupGraphQLRoutes(); err != nil {
			return nil, fmt.Errorf("failed to setup GraphQL routes: %w", err)
		}
	}

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	srv.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      srv.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return srv, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	if s.config.EnableLogging {
		s.router.Use(middleware.Logger)
	}
	if s.config.EnableCORS {
		s.router.Use(s.corsMiddleware)
	}
	s.router.Use(s.requestSizeLimitMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))
}

func (s *Server) setupRoutes() {
	h := handlers.New(s.pool, s.catalog)

	s.router.Get("/_health", s.jsonContentType(h.Health(s.startTime)))
	s.router.Get("/stats", s.jsonContentType(h.Stats))
	s.router.Get("/metrics", s.handlePrometheusMetrics)
	s.router.Get("/ws/stats", s.statsStream.Handler())
}

func (s *Server) setupGraphQLRoutes() error {
	graphqlHandler, err := gql.NewHandler(s.pool, s.catalog, s.histograms)
	if err != nil {
		return fmt.Errorf("failed to create GraphQL handler: %w", err)
	}
	s.router.Post("/graphql", graphqlHandler.ServeHTTP)
	s.router.Get("/graphiql", gql.GraphiQLHandler())
	return nil
}

func (s *Server) jsonContentType(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next(w, r)
	}
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := "*"
		if len(s.config.AllowedOrigins) > 0 {
			origin = s.config.AllowedOrigins[0]
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", "86400")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestSizeLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handlePrometheusMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	if err := s.collector.WriteMetrics(w, s.pool, s.startTime); err != nil {
		http.Error(w, fmt.Sprintf("Error writing metrics: %v", err), http.StatusInternalServerError)
	}
}

// Start runs the HTTP server and the background stats broadcaster/flusher
// until a termination signal arrives, then shuts down gracefully.
func (s *Server) Start() error {
	protocol := "http"
	if s.config.EnableTLS {
		protocol = "https"
		s.log.Printf("TLS/SSL enabled, certificate: %s", s.config.TLSCertFile)
	}
	s.log.Printf("admin server starting on %s://%s:%d", protocol, s.config.Host, s.config.Port)
	s.log.Printf("data directory: %s, buffer pool size: %d pages", s.config.DataDir, s.config.BufferSize)

	if s.flusher != nil {
		s.flusher.Start()
	}
	go s.statsStream.Run(handlers.New(s.pool, s.catalog), time.Second)

	errChan := make(chan error, 1)
	go func() {
		var err error
		if s.config.EnableTLS {
			err = s.httpSrv.ListenAndServeTLS(s.config.TLSCertFile, s.config.TLSKeyFile)
		} else {
			err = s.httpSrv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		s.log.Printf("received signal: %v", sig)
		return s.Shutdown()
	}
}

// Pool returns the server's buffer pool.
func (s *Server) Pool() *storage.BufferPool { return s.pool }

// Catalog returns the server's catalog.
func (s *Server) Catalog() catalog.Catalog { return s.catalog }

// Histograms returns the server's column histogram registry.
func (s *Server) Histograms() *catalog.HistogramRegistry { return s.histograms }

// Shutdown gracefully shuts down the server, flushing every dirty page.
func (s *Server) Shutdown() error {
	s.log.Printf("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.log.Printf("server shutdown error: %v", err)
	}

	s.statsStream.Stop()
	if s.flusher != nil {
		s.flusher.Stop()
	}

	s.pool.FlushAllPages()
	if err := s.store.Close(); err != nil {
		s.log.Printf("data store close error: %v", err)
		return err
	}

	s.log.Printf("shutdown complete")
	return nil
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		fmt.Printf("Error encoding JSON response: %v\n", err)
	}
}

// WriteError writes an error response
func WriteError(w http.ResponseWriter, statusCode int, errorType, message string) {
	response := map[string]interface{}{
		"ok":      false,
		"error":   errorType,
		"message": message,
		"code":    statusCode,
	}
	WriteJSON(w, statusCode, response)
}

// WriteSuccess writes a success response
func WriteSuccess(w http.ResponseWriter, result interface{}) {
	response := map[string]interface{}{
		"ok":     true,
		"result": result,
	}
	WriteJSON(w, http.StatusOK, response)
}
