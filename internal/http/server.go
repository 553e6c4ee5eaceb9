// Package http is the JSON API of the ledger.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"autonome/internal/cache"
	"autonome/internal/config"
	"autonome/internal/events"
	"autonome/internal/ledger"
	"autonome/internal/log"
	"autonome/internal/middleware/ratelimit"
	"autonome/internal/middleware/security"
	"autonome/internal/middleware/trace"
	"autonome/internal/report"
	"autonome/internal/services"
)

// Deps are the components the API serves. Bus and Runner are optional.
type Deps struct {
	Store     ledger.Store
	Bus       *events.Bus
	Scheduler *services.Scheduler
	Runner    *services.Runner
	Engine    *report.Engine
	Settings  *config.SettingsStore
	Logger    *log.Logger

	// RequestsPerMinute limits writes per client; zero uses the default.
	RequestsPerMinute int
}

type Server struct {
	http.Server

	store     ledger.Store
	expenses  *services.ExpenseService
	work      *services.WorkService
	invoices  *services.InvoiceService
	scheduler *services.Scheduler
	runner    *services.Runner
	engine    *report.Engine
	settings  *config.SettingsStore
	events    events.Publisher
	logger    *log.Logger
	loc       *time.Location
	now       func() time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	caches   *cache.Manager

	shutdownOnce sync.Once
}

// NewServer wires the routes and middleware and returns a server ready for
// ListenAndServe.
func NewServer(addr string, d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = log.Default(log.ComponentHTTP)
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	var publisher events.Publisher
	if d.Bus != nil {
		publisher = d.Bus
	}

	s := &Server{
		store:     d.Store,
		expenses:  services.NewExpenseService(d.Store, publisher, logger),
		work:      services.NewWorkService(d.Store, publisher, logger),
		invoices:  services.NewInvoiceService(d.Store, d.Settings, logger),
		scheduler: d.Scheduler,
		runner:    d.Runner,
		engine:    d.Engine,
		settings:  d.Settings,
		events:    publisher,
		logger:    logger,
		loc:       d.Engine.Location(),
		now:       time.Now,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: d.RequestsPerMinute}),
		detector:  security.NewDetector(logger),
		caches:    cache.NewManager(logger),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	if c, ok := d.Engine.Cache().(cache.Cleaner); ok {
		s.caches.Register(c)
		s.caches.StartCleanup(5 * time.Minute)
	}

	mux := http.NewServeMux()
	s.routes(mux)
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	s.mountRecords(mux)

	mux.HandleFunc("POST /api/sessions/start", s.handleStartSession)
	mux.HandleFunc("POST /api/sessions/{id}/stop", s.handleStopSession)
	mux.HandleFunc("POST /api/mileage/trip", s.handleRecordTrip)

	mux.HandleFunc("POST /api/recurring/run", s.handleRunScheduler)
	mux.HandleFunc("GET /api/recurring/status", s.handleSchedulerStatus)

	mux.HandleFunc("GET /api/reports/day", s.handleDay)
	mux.HandleFunc("GET /api/reports/days", s.handleDays)
	mux.HandleFunc("GET /api/reports/summary", s.handleSummary)
	mux.HandleFunc("GET /api/reports/monthly", s.handleMonthly)
	mux.HandleFunc("GET /api/reports/projects/{id}", s.handleProject)

	mux.HandleFunc("GET /api/export/backup", s.handleBackup)
	mux.HandleFunc("GET /api/export/summary", s.handleExportSummary)
	mux.HandleFunc("GET /api/export/{collection}", s.handleExport)
	mux.HandleFunc("POST /api/import/backup", s.handleImportBackup)

	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", s.handlePutSettings)
}

// middleware wraps h from the outside in: request ID and access log, request
// logger, scan screening, security headers, write rate limit.
func (s *Server) middleware(h http.Handler) http.Handler {
	h = s.limiter.Middleware(s.detector.ExtractClientIP, ratelimit.MutatingOnly, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded, try again later"})
	})(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(h)
	h = log.Middleware(s.logger, func(r *http.Request) string { return trace.GetRequestID(r.Context()) })(h)
	return s.tracer.Middleware(h)
}

// Shutdown stops background cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.caches.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// catchUp runs a scheduler pass before a read so the view includes every
// elapsed recurring period. Failures are logged; the read goes on.
func (s *Server) catchUp(ctx context.Context) {
	if s.scheduler == nil {
		return
	}
	res, err := s.scheduler.Run(ctx, s.now())
	if err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Recurring catch-up before read failed", log.FieldError, err)
		return
	}
	if n := res.Records(); n > 0 {
		log.FromContext(ctx).InfoContext(ctx, "Recurring catch-up generated records", "records", n)
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if _, err := s.store.ListClients(ctx); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Readiness check failed", log.FieldError, err)
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "store unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
