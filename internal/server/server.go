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

	"github.com/stockleague/engine/internal/config"
	"github.com/stockleague/engine/internal/database"
	"github.com/stockleague/engine/internal/modules/accounts"
	"github.com/stockleague/engine/internal/modules/leaderboard"
	"github.com/stockleague/engine/internal/modules/ledger"
	"github.com/stockleague/engine/internal/modules/ranking"
	"github.com/stockleague/engine/internal/modules/valuation"
	"github.com/stockleague/engine/internal/scheduler"
)

// Config holds server configuration
type Config struct {
	Port    int
	Log     zerolog.Logger
	DB      *database.DB
	Config  *config.Config
	DevMode bool

	Accounts    *accounts.Handler
	Ledger      *ledger.Handler
	Valuation   *valuation.Handler
	Ranking     *ranking.Handler
	Leaderboard *leaderboard.Handlers

	Scheduler  *scheduler.Scheduler
	RankingJob scheduler.Job
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	db     *database.DB
	cfg    *config.Config

	accounts    *accounts.Handler
	ledger      *ledger.Handler
	valuation   *valuation.Handler
	ranking     *ranking.Handler
	leaderboard *leaderboard.Handlers

	scheduler  *scheduler.Scheduler
	rankingJob scheduler.Job
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		log:         cfg.Log.With().Str("component", "server").Logger(),
		db:          cfg.DB,
		cfg:         cfg.Config,
		accounts:    cfg.Accounts,
		ledger:      cfg.Ledger,
		valuation:   cfg.Valuation,
		ranking:     cfg.Ranking,
		leaderboard: cfg.Leaderboard,
		scheduler:   cfg.Scheduler,
		rankingJob:  cfg.RankingJob,
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

		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", s.accounts.HandleCreateAccount)
			r.Route("/{accountID}", func(r chi.Router) {
				r.Get("/", s.accounts.HandleGetAccount)
				r.Post("/login", s.accounts.HandleTouchLogin)
				r.Post("/transactions", s.ledger.HandleRecordTransaction)
				r.Get("/transactions", s.ledger.HandleGetTransactions)
				r.Get("/portfolio", s.valuation.HandleGetPortfolio)
			})
		})

		r.Get("/rankings", s.ranking.HandleGetRankings)
		r.Get("/leaderboard", s.leaderboard.HandleGetLeaderboard)

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/valuation/run", s.valuation.HandleRunBatch)
			r.Post("/ranking/run", s.handleRunRanking)
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
