// Package server assembles the HTTP router: pages at the root, the JSON API
// under /api and a health check backed by the cache store.
package server

import (
	"context"
	"net/http"
	"time"

	"econ_dashboard/pkg/api/respond"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// Routes is implemented by every handler group.
type Routes interface {
	Routes(r chi.Router)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds server configuration
type Config struct {
	Addr           string
	RequestTimeout time.Duration
	CORSOrigins    []string
	Log            zerolog.Logger

	Pages     Routes
	WorldBank Routes
	Finance   Routes
	Settings  Routes
	Store     Pinger
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	store  Pinger
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		store:  cfg.Store,
	}

	s.setupMiddleware(cfg)
	s.setupRoutes(cfg)

	writeTimeout := cfg.RequestTimeout + 5*time.Second
	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupMiddleware(cfg Config) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	// Summaries wait on the LLM, so this has to cover llm.timeout.
	if cfg.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes(cfg Config) {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		if cfg.WorldBank != nil {
			cfg.WorldBank.Routes(r)
		}
		if cfg.Finance != nil {
			r.Route("/finance", cfg.Finance.Routes)
		}
		if cfg.Settings != nil {
			r.Route("/config", cfg.Settings.Routes)
		}
	})

	if cfg.Pages != nil {
		cfg.Pages.Routes(s.router)
	}
}

type healthResponse struct {
	Status string `json:"status"`
	Cache  string `json:"cache"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respond.JSON(w, s.log, http.StatusOK, healthResponse{Status: "ok", Cache: "none"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Cache store ping failed")
		// The dashboard still serves uncached data, so this is degraded rather than down.
		respond.JSON(w, s.log, http.StatusOK, healthResponse{Status: "degraded", Cache: "unreachable"})
		return
	}
	respond.JSON(w, s.log, http.StatusOK, healthResponse{Status: "ok", Cache: "ok"})
}

// Start blocks serving requests until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
