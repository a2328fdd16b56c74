package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"futurebot/internal/clients/bybit"
	"futurebot/internal/config"
	"futurebot/internal/database"
	"futurebot/internal/events"
	"futurebot/internal/paper"
	"futurebot/internal/portfolio"
	"futurebot/internal/scheduler"
	"futurebot/internal/server"
	"futurebot/internal/services"
	"futurebot/internal/trading"
	"futurebot/pkg/logger"
)

func main() {
	// Load configuration first so the logger can honor LOG_LEVEL
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Bool("paper_trading", cfg.EnablePaperTrading).Msg("Starting futurebot")

	// Database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Repositories
	orderRepo := trading.NewOrderRepository(db.Conn(), log)
	positionRepo := portfolio.NewPositionRepository(db.Conn(), log)

	// Exchange client and event feed
	exchange := bybit.NewClient(cfg.BybitBaseURL(), cfg.BybitAPIKey, cfg.BybitAPISecret, log)
	eventManager := events.NewManager(100, log)

	// Paper engine, restored from any open positions in the database
	engine := paper.NewEngine(cfg.InitialBalance, exchange, positionRepo, eventManager, log)
	if cfg.EnablePaperTrading {
		open, err := positionRepo.GetOpen()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load open positions")
		}
		engine.RestorePositions(open)
	}

	// Trading orchestration
	validator := trading.NewValidator(cfg.MaxPositionSizeUSD, cfg.MaxOpenPositions, cfg.MaxLeverage)
	tradingService := services.NewTradingService(
		orderRepo,
		positionRepo,
		validator,
		engine,
		exchange,
		eventManager,
		cfg.EnablePaperTrading,
		log,
	)

	// Background jobs
	sched := scheduler.New(log)
	if cfg.EnablePaperTrading {
		schedule := fmt.Sprintf("@every %ds", cfg.PriceRefreshSeconds)
		if err := sched.AddJob(schedule, scheduler.NewPriceSyncJob(engine)); err != nil {
			log.Fatal().Err(err).Msg("Failed to register price sync job")
		}
	}
	sched.Start()
	defer sched.Stop()

	// HTTP server
	srv := server.New(server.Config{
		Port:    cfg.Port,
		Log:     log,
		Trading: tradingService,
		Market:  exchange,
		Events:  eventManager,
		DevMode: cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

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
