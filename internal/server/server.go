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

	"github.com/aristath/fund-trader/internal/config"
	"github.com/aristath/fund-trader/internal/database"
	"github.com/aristath/fund-trader/internal/modules/portfolio"
	"github.com/aristath/fund-trader/internal/modules/trunk"
	"github.com/aristath/fund-trader/internal/modules/universe"
)

// Config holds server configuration
type Config struct {
	Port    int
	Log     zerolog.Logger
	DB      *database.DB
	Config  *config.Config
	DevMode bool

	TrunkHandler     *trunk.Handler
	UniverseHandler  *universe.Handler
	PortfolioHandler *portfolio.Handler
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	db     *database.DB
	cfg    *config.Config

	trunkHandler     *trunk.Handler
	universeHandler  *universe.Handler
	portfolioHandler *portfolio.Handler
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:           chi.NewRouter(),
		log:              cfg.Log.With().Str("component", "server").Logger(),
		db:               cfg.DB,
		cfg:              cfg.Config,
		trunkHandler:     cfg.TrunkHandler,
		universeHandler:  cfg.UniverseHandler,
		portfolioHandler: cfg.PortfolioHandler,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	// Scoring passes over a large universe can take a while
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

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.handleSystemStatus)
		})

		r.Route("/trunk", func(r chi.Router) {
			r.Get("/ranking", s.trunkHandler.HandleGetRanking)
			r.Get("/funds-for-allocation", s.trunkHandler.HandleFundsForAllocation)
			r.Get("/stats", s.trunkHandler.HandleStats)
			r.Get("/composite/{fund_id}", s.trunkHandler.HandleGetComposite)
			r.Get("/contradictions", s.trunkHandler.HandleGetContradictions)

			r.Get("/brains", s.trunkHandler.HandleListBrains)
			r.Post("/brains/{brain_id}/activate", s.trunkHandler.HandleActivateBrain)
			r.Post("/brains/{brain_id}/deactivate", s.trunkHandler.HandleDeactivateBrain)

			r.Get("/weights", s.trunkHandler.HandleGetWeights)
			r.Post("/weights", s.trunkHandler.HandleUpdateWeights)
		})

		r.Route("/funds", func(r chi.Router) {
			r.Get("/", s.universeHandler.HandleListFunds)
			r.Post("/import", s.universeHandler.HandleImportCatalog)
			r.Get("/{isin}", s.universeHandler.HandleGetFund)
			r.Get("/{isin}/history", s.universeHandler.HandleGetHistory)
		})

		r.Route("/portfolio", func(r chi.Router) {
			r.Post("/suggest", s.portfolioHandler.HandleSuggest)
			r.Get("/policy", s.portfolioHandler.HandleGetPolicy)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
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
