// Package main is the entry point for the StratAlpha analysis server. It
// exposes the valuation, risk, macro, and supply chain engines over HTTP,
// keeps artifacts fresh via scheduled jobs, and optionally ships backups to
// an S3-compatible store.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/stratalpha/stratalpha/internal/analysis"
	"github.com/stratalpha/stratalpha/internal/clientdata"
	"github.com/stratalpha/stratalpha/internal/clients/yahoo"
	"github.com/stratalpha/stratalpha/internal/config"
	"github.com/stratalpha/stratalpha/internal/database"
	"github.com/stratalpha/stratalpha/internal/events"
	"github.com/stratalpha/stratalpha/internal/marketdata"
	"github.com/stratalpha/stratalpha/internal/modules/artifacts"
	"github.com/stratalpha/stratalpha/internal/modules/macro"
	macrohandlers "github.com/stratalpha/stratalpha/internal/modules/macro/handlers"
	"github.com/stratalpha/stratalpha/internal/modules/report"
	"github.com/stratalpha/stratalpha/internal/modules/risk"
	riskhandlers "github.com/stratalpha/stratalpha/internal/modules/risk/handlers"
	"github.com/stratalpha/stratalpha/internal/modules/supply"
	supplyhandlers "github.com/stratalpha/stratalpha/internal/modules/supply/handlers"
	"github.com/stratalpha/stratalpha/internal/modules/valuation"
	valuationhandlers "github.com/stratalpha/stratalpha/internal/modules/valuation/handlers"
	"github.com/stratalpha/stratalpha/internal/reliability"
	"github.com/stratalpha/stratalpha/internal/scheduler"
	"github.com/stratalpha/stratalpha/internal/server"
	"github.com/stratalpha/stratalpha/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting StratAlpha")

	// Client data cache (price history, fundamentals from Yahoo).
	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "client_data.db"),
		Profile: database.ProfileCache,
		Name:    "client_data",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	cacheRepo := clientdata.NewRepository(cacheDB.Conn())
	if err := cacheRepo.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize cache schema")
	}

	// Market data layer: Yahoo Finance with deterministic synthetic fallbacks.
	yahooClient := yahoo.NewClient(cacheRepo, log)
	data := marketdata.NewService(yahooClient, yahooClient, log)

	// Analysis engines.
	bus := events.NewBus(log)
	valuationSvc := valuation.NewService(data, log)
	riskAnalyzer := risk.NewAnalyzer(data, log)
	macroSvc := macro.NewService(macro.NewBundledProvider(), log)
	supplySvc := supply.NewService(nil, "", log)
	artifactsWriter := artifacts.NewWriter(cfg.ArtifactsDir, log)
	reportGen := report.NewGenerator(cfg.ReportsDir, log)

	orchestrator := analysis.NewOrchestrator(
		valuationSvc,
		riskAnalyzer,
		macroSvc,
		supplySvc,
		artifactsWriter,
		reportGen,
		bus,
		log,
	)

	// Scheduled jobs.
	sched := scheduler.New(log)
	refreshJob := scheduler.NewRefreshJob(orchestrator, cfg, bus, log)
	cleanupJob := scheduler.NewCleanupJob(clientdata.NewCleanupJob(cacheRepo, log), bus)

	if err := sched.AddJob(cfg.RefreshSchedule, refreshJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register refresh job")
	}
	if err := sched.AddJob(cfg.CleanupSchedule, cleanupJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cleanup job")
	}

	var backupJob *scheduler.BackupJob
	if cfg.Backup.Enabled {
		s3Client, err := reliability.NewS3Client(context.Background(), cfg.Backup, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create S3 client")
		}
		backups := reliability.NewBackupService(s3Client, cfg.Backup.Prefix, map[string]string{
			"artifacts": cfg.ArtifactsDir,
			"reports":   cfg.ReportsDir,
		}, log)
		backupJob = scheduler.NewBackupJob(backups, cfg.Backup.RetentionDays, bus)
		if err := sched.AddJob(cfg.BackupSchedule, backupJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to register backup job")
		}
	} else {
		log.Info().Msg("Backups disabled")
	}

	sched.Start()
	defer sched.Stop()

	// HTTP server.
	systemHandlers := server.NewSystemHandlers(cfg, cacheDB, log)
	if backupJob != nil {
		systemHandlers.SetJobs(refreshJob, cleanupJob, backupJob)
	} else {
		systemHandlers.SetJobs(refreshJob, cleanupJob, nil)
	}

	srv := server.New(server.Config{
		Log:          log,
		Config:       cfg,
		CacheDB:      cacheDB,
		EventBus:     bus,
		Orchestrator: orchestrator,
		ValuationHandlers: valuationhandlers.NewHandler(
			valuationSvc, cfg.DefaultTicker, cfg.PeerTickers, log),
		RiskHandlers: riskhandlers.NewHandler(riskAnalyzer, riskhandlers.Defaults{
			Ticker:       cfg.DefaultTicker,
			Peers:        cfg.PeerTickers,
			ShockTickers: cfg.ShockTickers,
			ShockPct:     cfg.ShockPct,
		}, log),
		MacroHandlers:  macrohandlers.NewHandler(macroSvc, log),
		SupplyHandlers: supplyhandlers.NewHandler(supplySvc, log),
		SystemHandlers: systemHandlers,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
