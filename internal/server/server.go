// Package server provides the HTTP server and routing for StratAlpha.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/stratalpha/stratalpha/internal/analysis"
	"github.com/stratalpha/stratalpha/internal/config"
	"github.com/stratalpha/stratalpha/internal/database"
	"github.com/stratalpha/stratalpha/internal/events"
	macrohandlers "github.com/stratalpha/stratalpha/internal/modules/macro/handlers"
	riskhandlers "github.com/stratalpha/stratalpha/internal/modules/risk/handlers"
	supplyhandlers "github.com/stratalpha/stratalpha/internal/modules/supply/handlers"
	valuationhandlers "github.com/stratalpha/stratalpha/internal/modules/valuation/handlers"
)

// Config holds server configuration.
type Config struct {
	Log               zerolog.Logger
	Config            *config.Config
	CacheDB           *database.DB
	EventBus          *events.Bus
	Orchestrator      *analysis.Orchestrator
	ValuationHandlers *valuationhandlers.Handler
	RiskHandlers      *riskhandlers.Handler
	MacroHandlers     *macrohandlers.Handler
	SupplyHandlers    *supplyhandlers.Handler
	SystemHandlers    *SystemHandlers
}

// Server is the HTTP server.
type Server struct {
	router           *chi.Mux
	server           *http.Server
	log              zerolog.Logger
	cfg              *config.Config
	eventBus         *events.Bus
	analysisHandlers *AnalysisHandlers
	systemHandlers   *SystemHandlers
}

// New creates a new HTTP server.
func New(cfg Config) *Server {
	s := &Server{
		router:           chi.NewRouter(),
		log:              cfg.Log.With().Str("component", "server").Logger(),
		cfg:              cfg.Config,
		eventBus:         cfg.EventBus,
		analysisHandlers: NewAnalysisHandlers(cfg.Orchestrator, cfg.Config, cfg.Log),
		systemHandlers:   cfg.SystemHandlers,
	}

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes(cfg)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Router exposes the configured router, mainly for tests.
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes(cfg Config) {
	s.router.Get("/health", s.systemHandlers.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		eventsStream := NewEventsStreamHandler(s.eventBus, s.log)
		r.Get("/events/ws", eventsStream.ServeHTTP)

		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.systemHandlers.HandleSystemStatus)
			r.Get("/disk", s.systemHandlers.HandleDiskUsage)
			r.Route("/jobs", func(r chi.Router) {
				r.Post("/refresh", s.systemHandlers.HandleTriggerRefresh)
				r.Post("/cleanup", s.systemHandlers.HandleTriggerCleanup)
				r.Post("/backup", s.systemHandlers.HandleTriggerBackup)
			})
		})

		r.Route("/analysis", func(r chi.Router) {
			r.Post("/run", s.analysisHandlers.HandleRunAnalysis)
		})

		cfg.ValuationHandlers.RegisterRoutes(r)
		cfg.RiskHandlers.RegisterRoutes(r)
		cfg.MacroHandlers.RegisterRoutes(r)
		cfg.SupplyHandlers.RegisterRoutes(r)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests.
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
