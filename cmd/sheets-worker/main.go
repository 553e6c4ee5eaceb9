package main

import (
	"context"
	"errors"
	"os"
	"time"

	"autonome/internal/cli"
	"autonome/internal/config"
	"autonome/internal/export"
	"autonome/internal/log"
	"autonome/internal/report"
	"autonome/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()
	logger = logger.WithComponent(log.ComponentWorker)
	loc := cli.Location(logger, cfg)

	logger.Info("Starting sheets-worker")

	if cfg.AMQPURL == "" || cfg.GoogleSpreadsheetID == "" {
		logger.Error("sheets-worker needs AMQP_URL and GOOGLE_SPREADSHEET_ID")
		os.Exit(1)
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	backend := cli.InitBackend(ctx, logger, cfg)
	defer backend.Close()
	if backend.AMQP == nil {
		logger.Error("AMQP broker unavailable, nothing to consume")
		os.Exit(1)
	}

	sheets, err := export.NewSheetsPublisher(ctx, export.SheetsConfig{
		SpreadsheetID: cfg.GoogleSpreadsheetID,
		SheetName:     cfg.GoogleSheetName,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	engine := report.NewEngine(backend.Store, logger, report.EngineConfig{
		Location:  loc,
		CacheSize: cfg.CacheSize,
		CacheTTL:  cfg.CacheTTL,
	})
	sync := worker.NewSheetsSync(engine, config.NewSettingsStore(backend.Store, logger), sheets, logger)

	// Events may have been missed while the worker was down.
	year := time.Now().In(loc).Year()
	if err := sync.SyncYear(ctx, year); err != nil {
		logger.Error("Startup sync failed", log.FieldError, err, log.FieldYear, year)
	}

	go func() {
		err := backend.AMQP.ConsumeEvents(ctx, sync.HandleEvent)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Event consumption failed", log.FieldError, err)
		}
		cancel()
	}()

	sync.Run(ctx, cfg.SheetsSyncInterval)
	logger.Info("Sheets-worker shutdown complete")
}
