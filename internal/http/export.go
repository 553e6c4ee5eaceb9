package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"autonome/internal/events"
	"autonome/internal/export"
	"autonome/internal/log"
)

// handleExport writes one collection as csv, json or xlsx. The range query
// parameters of the list endpoints apply.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("collection")
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	now := s.now()
	rng, err := rangeFromQuery(r.URL.Query(), now.In(s.loc), s.loc)
	if err != nil {
		writeError(w, r, err)
		return
	}

	t, err := export.Load(r.Context(), s.store, name, rng, now)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	switch format {
	case export.FormatJSON:
		err = export.WriteJSON(&buf, t)
	case export.FormatXLSX:
		err = export.WriteXLSX(&buf, t)
	default:
		err = export.WriteCSV(&buf, t)
	}
	if err != nil {
		writeError(w, r, fmt.Errorf("export %s: %w", name, err))
		return
	}
	writeFile(w, format, fmt.Sprintf("%s-%s", name, now.In(s.loc).Format("2006-01-02")), buf.Bytes())
}

// handleExportSummary exports the yearly series and category breakdown of
// ?year=. Workbooks get both tables; csv and json get the monthly series.
func (s *Server) handleExportSummary(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	p, err := periodFromQuery(r.URL.Query(), s.now().In(s.loc))
	if err != nil {
		writeError(w, r, err)
		return
	}
	p.Month = 0

	sum, err := s.summary(r, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	series := export.MonthlySeriesTable(sum.Months)
	categories := export.CategoryTable(sum.Categories)

	var buf bytes.Buffer
	switch format {
	case export.FormatXLSX:
		err = export.WriteXLSX(&buf, series, categories)
	case export.FormatJSON:
		err = export.WriteJSON(&buf, series)
	default:
		err = export.WriteCSV(&buf, series)
	}
	if err != nil {
		writeError(w, r, fmt.Errorf("export summary: %w", err))
		return
	}
	writeFile(w, format, "summary-"+strconv.Itoa(p.Year), buf.Bytes())
}

// handleBackup downloads every collection as one JSON document.
func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	b, err := export.LoadBackup(r.Context(), s.store, now)
	if err != nil {
		writeError(w, r, fmt.Errorf("backup: %w", err))
		return
	}
	var buf bytes.Buffer
	if err := export.WriteBackup(&buf, b); err != nil {
		writeError(w, r, fmt.Errorf("backup: %w", err))
		return
	}
	writeFile(w, export.FormatJSON, "autonome-backup-"+now.In(s.loc).Format("2006-01-02"), buf.Bytes())
}

type importResult struct {
	Version int `json:"version"`
	Records int `json:"records"`
}

// handleImportBackup replaces the ledger with an uploaded backup document.
// Settings are not part of a backup and stay as they are.
func (s *Server) handleImportBackup(w http.ResponseWriter, r *http.Request) {
	b, err := export.ReadBackup(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		writeError(w, r, err)
		return
	}
	n, err := export.ImportBackup(r.Context(), s.store, b)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.engine.Invalidate()
	if s.events != nil {
		s.events.Publish(r.Context(), events.LedgerRestored, events.RestorePayload{Version: b.Version, Records: n})
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Backup restored",
		"version", b.Version,
		"records", n)
	writeJSON(w, http.StatusOK, importResult{Version: b.Version, Records: n})
}

// writeFile sends body as an attachment named base plus the format extension.
func writeFile(w http.ResponseWriter, f export.Format, base string, body []byte) {
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", base+"."+string(f)))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
