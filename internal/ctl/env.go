// Package ctl implements the autonomectl subcommands.
package ctl

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"autonome/internal/backend"
	"autonome/internal/config"
	"autonome/internal/events"
	"autonome/internal/export"
	"autonome/internal/ledger"
	"autonome/internal/log"
	"autonome/internal/report"
	"autonome/internal/worker"
)

// Env is what a subcommand runs against.
type Env struct {
	Config *config.Config
	Store  ledger.Store
	Bus    *events.Bus
	Loc    *time.Location
	Logger *log.Logger
	Now    func() time.Time

	// Sheets opens the spreadsheet publisher on demand.
	Sheets func(ctx context.Context) (worker.YearPublisher, error)

	close func() error
}

func (e *Env) Close() error {
	if e.close == nil {
		return nil
	}
	return e.close()
}

func (e *Env) engine() *report.Engine {
	return report.NewEngine(e.Store, e.Logger, report.EngineConfig{Location: e.Loc})
}

// Opener builds the Env for one command run.
type Opener func(ctx context.Context) (*Env, error)

// FromEnvironment opens the configured backend. Logs go to stderr so command
// output stays clean on stdout.
func FromEnvironment(ctx context.Context) (*Env, error) {
	cfg := config.Load()
	logger := log.New(log.Config{
		Component: log.ComponentApp,
		Handler:   slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: log.ParseLevel(cfg.LogLevel)}),
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("open backend: %w", err)
	}

	env := &Env{
		Config: cfg,
		Store:  res.Store,
		Bus:    res.Bus,
		Loc:    loc,
		Logger: logger,
		Now:    time.Now,
		Sheets: func(ctx context.Context) (worker.YearPublisher, error) {
			return export.NewSheetsPublisher(ctx, export.SheetsConfig{
				SpreadsheetID: cfg.GoogleSpreadsheetID,
				SheetName:     cfg.GoogleSheetName,
			}, logger)
		},
	}
	env.close = func() error {
		if res.Forwarder != nil {
			drain, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			res.Forwarder.Drain(drain)
			cancel()
		}
		return res.Close()
	}
	return env, nil
}
