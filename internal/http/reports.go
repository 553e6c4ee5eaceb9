package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"autonome/internal/ledger"
	"autonome/internal/report"
	"autonome/internal/services"
)

type dayResponse struct {
	report.DayBucket
	HasActivity bool `json:"hasActivity"`
}

// handleDay returns one local day, ?date=YYYY-MM-DD, today by default.
func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	day := s.now()
	if v := r.URL.Query().Get("date"); v != "" {
		d, err := parseDate(v, s.loc)
		if err != nil {
			writeError(w, r, err)
			return
		}
		day = d
	}
	s.catchUp(r.Context())

	b, ok, err := s.engine.Day(r.Context(), day)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dayResponse{DayBucket: b, HasActivity: ok})
}

// handleDays lists the days with activity in a range, newest first.
func (s *Server) handleDays(w http.ResponseWriter, r *http.Request) {
	rng, err := rangeFromQuery(r.URL.Query(), s.now().In(s.loc), s.loc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.catchUp(r.Context())

	days, err := s.engine.Days(r.Context(), rng)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if days == nil {
		days = []report.DayBucket{}
	}
	writeJSON(w, http.StatusOK, days)
}

// handleSummary returns the financial summary of ?year= and optional ?month=.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	p, err := periodFromQuery(r.URL.Query(), s.now().In(s.loc))
	if err != nil {
		writeError(w, r, err)
		return
	}
	sum, err := s.summary(r, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) summary(r *http.Request, p report.Period) (report.FinancialSummary, error) {
	settings, err := s.settings.Load(r.Context())
	if err != nil {
		return report.FinancialSummary{}, fmt.Errorf("load settings: %w", err)
	}
	s.catchUp(r.Context())
	return s.engine.Summary(r.Context(), p, settings.ReportParams())
}

// handleMonthly returns the printable report of one month, the current one
// by default.
func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	now := s.now().In(s.loc)
	q := r.URL.Query()
	if q.Get("month") == "" {
		q.Set("month", fmt.Sprint(int(now.Month())))
	}
	p, err := periodFromQuery(q, now)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.catchUp(r.Context())

	rep, err := s.engine.Monthly(r.Context(), p.Year, p.Month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// handleProject returns the lifetime totals of one project. A project id
// without a record still reports the activity tagged with it.
func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	settings, err := s.settings.Load(r.Context())
	if err != nil {
		writeError(w, r, fmt.Errorf("load settings: %w", err))
		return
	}
	s.catchUp(r.Context())

	totals, err := s.engine.Project(r.Context(), id, settings.ReportParams())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// handleRunScheduler runs one recurring pass now.
func (s *Server) handleRunScheduler(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		writeError(w, r, errors.New("recurring scheduler not configured"))
		return
	}
	res, err := s.scheduler.Run(r.Context(), s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if res.Generated == nil {
		res.Generated = []services.Generated{}
	}
	writeJSON(w, http.StatusOK, res)
}

type schedulerStatus struct {
	Running bool             `json:"running"`
	LastRun *time.Time       `json:"lastRun,omitempty"`
	Last    *services.Result `json:"last,omitempty"`
}

func (s *Server) handleSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		writeError(w, r, fmt.Errorf("%w: no background scheduler in this process", ledger.ErrNotFound))
		return
	}
	st := schedulerStatus{Running: s.runner.IsRunning()}
	if res, at := s.runner.Last(); !at.IsZero() {
		st.LastRun = &at
		st.Last = &res
	}
	writeJSON(w, http.StatusOK, st)
}
