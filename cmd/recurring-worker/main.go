package main

import (
	"time"

	"autonome/internal/cli"
	"autonome/internal/log"
	"autonome/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()
	logger = logger.WithComponent(log.ComponentWorker)
	loc := cli.Location(logger, cfg)

	logger.Info("Starting recurring-worker")

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	backend := cli.InitBackend(ctx, logger, cfg)
	defer backend.Close()

	if backend.Forwarder != nil {
		go backend.Forwarder.Run(ctx)
	} else {
		logger.Info("AMQP disabled, generated records will not reach the sheets worker")
	}

	scheduler := services.NewScheduler(backend.Store, backend.Bus, logger, services.SchedulerConfig{
		MaterializeIncome: cfg.RecurringMaterializeIncome,
		MaxCatchUp:        cfg.RecurringMaxCatchUp,
		Location:          loc,
	})
	runner := services.NewRunner(scheduler, cfg.RecurringInterval, logger)

	logger.Info("Recurring scheduler configured",
		"interval", cfg.RecurringInterval,
		"materialize_income", cfg.RecurringMaterializeIncome,
		"backend", cfg.DataBackend)

	if err := runner.Start(ctx); err != nil {
		logger.Error("Failed to start recurring scheduler", log.FieldError, err)
		return
	}

	<-ctx.Done()

	shutdownCtx, shutdownCancel := cli.ShutdownContext(30 * time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down recurring-worker...")
	if err := runner.Stop(shutdownCtx); err != nil {
		logger.Warn("Recurring scheduler did not stop cleanly", log.FieldError, err)
	}
	if backend.Forwarder != nil {
		backend.Forwarder.Drain(shutdownCtx)
		sent, dropped := backend.Forwarder.Stats()
		logger.Info("Event forwarding stopped", "sent", sent, "dropped", dropped)
	}
	logger.Info("Recurring-worker shutdown complete")
}
