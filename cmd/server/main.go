package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fund-trader/internal/config"
	"github.com/aristath/fund-trader/internal/database"
	"github.com/aristath/fund-trader/internal/events"
	"github.com/aristath/fund-trader/internal/modules/brains"
	"github.com/aristath/fund-trader/internal/modules/portfolio"
	"github.com/aristath/fund-trader/internal/modules/trunk"
	"github.com/aristath/fund-trader/internal/modules/universe"
	"github.com/aristath/fund-trader/internal/scheduler"
	"github.com/aristath/fund-trader/internal/server"
	"github.com/aristath/fund-trader/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Fund Trader")

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	eventMgr := events.NewManager(log)

	// Fund universe
	ingestion := universe.NewIngestion(cfg.FundsFilePath, log)
	fundRepo := universe.NewFundRepository(db.Conn(), log)
	historyDB := universe.NewHistoryDB(cfg.NavHistoryDir, log)
	provider := universe.NewMockProvider(log)
	universeService := universe.NewService(ingestion, fundRepo, historyDB, provider, log)

	// Trunk: registry, weights, engine
	registry := trunk.NewRegistry(log)
	registryRepo := trunk.NewRegistryRepository(db.Conn(), log)

	weightStore := trunk.NewWeightStore(lastPersistedWeights(registryRepo, log), registryRepo, log)
	engine := trunk.NewEngine(registry, weightStore, registryRepo, eventMgr, log)

	// Brains
	rescoreService := brains.NewRescoreService(engine, registryRepo, universeService, eventMgr, log)

	brainImpls := []brains.Brain{
		brains.NewFundamentalBrain(log),
		brains.NewMomentumBrain(universeService, log),
	}
	for _, brain := range brainImpls {
		if err := rescoreService.RegisterBrain(brain); err != nil {
			log.Fatal().Err(err).Msg("Failed to register brain")
		}
	}

	restoreActivationState(registry, registryRepo, log)

	if len(weightStore.Get()) == 0 {
		if err := weightStore.Update(registry.DefaultWeights(), "initial"); err != nil {
			log.Fatal().Err(err).Msg("Failed to set initial weights")
		}
	}

	// Import catalog on first run
	if fundCount(db) == 0 {
		if _, err := universeService.ImportCatalog(); err != nil {
			log.Warn().Err(err).Msg("Initial catalog import failed, universe is empty")
		}
	}

	// Portfolio
	policy, err := portfolio.LoadHorizonPolicy(cfg.HorizonPolicyPath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load horizon policy")
	}
	allocator := portfolio.NewAllocator(policy, log)
	portfolioService := portfolio.NewService(engine, rescoreService, fundRepo, allocator, eventMgr, log)

	// Scheduler
	sched := scheduler.New(log)
	rescoreJob := scheduler.NewRescoreCycleJob(rescoreService, log)
	if err := sched.AddJob(cfg.RescoreSchedule, rescoreJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule rescore cycle")
	}
	if err := sched.AddJob("@every 6h", scheduler.NewHealthCheckJob(db, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule health check")
	}
	sched.Start()
	defer sched.Stop()

	// First pass in the background so the API is up immediately
	go func() {
		if err := sched.RunNow(rescoreJob); err != nil {
			log.Error().Err(err).Msg("Initial scoring pass failed")
		}
	}()

	// HTTP server
	srv := server.New(server.Config{
		Port:             cfg.Port,
		Log:              log,
		DB:               db,
		Config:           cfg,
		DevMode:          cfg.DevMode,
		TrunkHandler:     trunk.NewHandler(engine, rescoreService, log),
		UniverseHandler:  universe.NewHandler(universeService, fundRepo, log),
		PortfolioHandler: portfolio.NewHandler(portfolioService, policy, log),
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

// lastPersistedWeights restores the most recent weight snapshot, or an empty
// map on first run.
func lastPersistedWeights(repo *trunk.RegistryRepository, log zerolog.Logger) map[string]float64 {
	history, err := repo.LoadWeightHistory()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load weight history")
		return map[string]float64{}
	}
	if len(history) == 0 {
		return map[string]float64{}
	}
	return history[len(history)-1].Weights
}

// restoreActivationState re-applies persisted brain deactivations, which
// registration resets.
func restoreActivationState(registry *trunk.Registry, repo *trunk.RegistryRepository, log zerolog.Logger) {
	persisted, err := repo.LoadRegistrations()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load persisted brain registrations")
		return
	}

	for _, reg := range persisted {
		if !reg.IsActive {
			if err := registry.Deactivate(reg.BrainID); err != nil {
				log.Warn().Err(err).Str("brain_id", reg.BrainID).Msg("Failed to restore deactivation")
			}
		}
	}
}

func fundCount(db *database.DB) int {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM funds").Scan(&count); err != nil {
		return 0
	}
	return count
}
