package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stockleague/engine/internal/clients/quotes"
	"github.com/stockleague/engine/internal/config"
	"github.com/stockleague/engine/internal/database"
	"github.com/stockleague/engine/internal/events"
	"github.com/stockleague/engine/internal/modules/accounts"
	"github.com/stockleague/engine/internal/modules/leaderboard"
	"github.com/stockleague/engine/internal/modules/ledger"
	"github.com/stockleague/engine/internal/modules/ranking"
	"github.com/stockleague/engine/internal/modules/valuation"
	"github.com/stockleague/engine/internal/scheduler"
	"github.com/stockleague/engine/internal/server"
	"github.com/stockleague/engine/pkg/logger"
)

func main() {
	// Load configuration first so the log level is configurable
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(logger.Config{Level: "info", Pretty: true})
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting StockLeague engine")

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Initialize schemas
	if err := initSchemas(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize schemas")
	}

	// Shared infrastructure
	eventManager := events.NewManager(log)
	quoteClient := quotes.NewClient(cfg.QuoteServiceURL, cfg.QuoteChunkSize, log)

	// Repositories
	accountRepo := accounts.NewRepository(db.Conn(), log)
	ledgerRepo := ledger.NewRepository(db.Conn(), log)
	valuationRepo := valuation.NewRepository(db.Conn(), log)
	rankingRepo := ranking.NewRepository(db.Conn(), log)
	leaderboardRepo := leaderboard.NewRepository(db.Conn(), log)

	// Services
	valuationService := valuation.NewService(valuation.ServiceConfig{
		Repo:      valuationRepo,
		Ledger:    ledgerRepo,
		Gateway:   quoteClient,
		Events:    eventManager,
		BatchSize: cfg.ValuationBatchSize,
		Workers:   cfg.ValuationWorkers,
		Log:       log,
	})
	rankingService := ranking.NewService(valuationRepo, rankingRepo, eventManager, log)
	leaderboardService := leaderboard.NewService(
		leaderboardRepo, eventManager, cfg.TopGainersLimit, cfg.DailyMoversLimit, log)

	// Scheduler and jobs
	window, err := scheduler.ParseWindow(cfg.WindowStart, cfg.WindowEnd)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid valuation window")
	}

	sched := scheduler.New(log)
	valuationJob := scheduler.NewValuationJob(valuationService, window, log)
	rankingJob := scheduler.NewRankingJob(rankingService, leaderboardService, log)

	if err := sched.AddJob(cfg.ValuationSchedule, valuationJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register valuation job")
	}
	if err := sched.AddJob(cfg.RankingSchedule, rankingJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register ranking job")
	}

	sched.Start()
	defer sched.Stop()

	// HTTP server
	srv := server.New(server.Config{
		Port:    cfg.Port,
		Log:     log,
		DB:      db,
		Config:  cfg,
		DevMode: cfg.DevMode,

		Accounts:    accounts.NewHandler(accountRepo, eventManager, log),
		Ledger:      ledger.NewHandler(ledgerRepo, accountRepo, eventManager, log),
		Valuation:   valuation.NewHandler(valuationRepo, valuationService, log),
		Ranking:     ranking.NewHandler(rankingRepo, log),
		Leaderboard: leaderboard.NewHandlers(leaderboardService, log),

		Scheduler:  sched,
		RankingJob: rankingJob,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func initSchemas(db *database.DB) error {
	conn := db.Conn()
	for _, init := range []func(*sql.DB) error{
		accounts.InitSchema,
		ledger.InitSchema,
		valuation.InitSchema,
		ranking.InitSchema,
		leaderboard.InitSchema,
	} {
		if err := init(conn); err != nil {
			return err
		}
	}
	return nil
}
