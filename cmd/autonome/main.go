package main

import (
	"errors"
	"net/http"
	"os"
	"time"

	"autonome/internal/cli"
	"autonome/internal/config"
	apphttp "autonome/internal/http"
	"autonome/internal/log"
	"autonome/internal/report"
	"autonome/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()
	loc := cli.Location(logger, cfg)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	backend := cli.InitBackend(ctx, logger, cfg)
	defer backend.Close()

	if backend.Forwarder != nil {
		go backend.Forwarder.Run(ctx)
	}

	scheduler := services.NewScheduler(backend.Store, backend.Bus, logger, services.SchedulerConfig{
		MaterializeIncome: cfg.RecurringMaterializeIncome,
		MaxCatchUp:        cfg.RecurringMaxCatchUp,
		Location:          loc,
	})
	engine := report.NewEngine(backend.Store, logger, report.EngineConfig{
		Location:  loc,
		CacheSize: cfg.CacheSize,
		CacheTTL:  cfg.CacheTTL,
	})

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Store:             backend.Store,
		Bus:               backend.Bus,
		Scheduler:         scheduler,
		Engine:            engine,
		Settings:          config.NewSettingsStore(backend.Store, logger),
		Logger:            logger,
		RequestsPerMinute: cfg.RateLimitPerMinute,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting autonome server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"timezone", loc.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			backend.Close()
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := cli.ShutdownContext(30 * time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err)
	}
	if backend.Forwarder != nil {
		backend.Forwarder.Drain(shutdownCtx)
	}
	logger.Info("Server stopped gracefully")
}
