package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"autonome/internal/ledger"
	"autonome/internal/report"
)

const (
	maxBodyBytes = 1 << 20
	// maxUploadBytes bounds bodies that carry files: documents and backups.
	maxUploadBytes = 64 << 20
)

// decodeJSON reads one JSON document into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return decodeJSONLimit(w, r, v, maxBodyBytes)
}

func decodeJSONLimit(w http.ResponseWriter, r *http.Request, v any, limit int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", errBadRequest, r.PathValue("id"))
	}
	return id, nil
}

// parseDate accepts YYYY-MM-DD, read as local midnight in loc, or RFC 3339.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: invalid date %q", errBadRequest, s)
}

func queryInt(q url.Values, key string, def int) (int, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q", errBadRequest, key, v)
	}
	return n, nil
}

// periodFromQuery reads year (default: current) and an optional month.
func periodFromQuery(q url.Values, now time.Time) (report.Period, error) {
	year, err := queryInt(q, "year", now.Year())
	if err != nil {
		return report.Period{}, err
	}
	month, err := queryInt(q, "month", 0)
	if err != nil {
		return report.Period{}, err
	}
	if month < 0 || month > 12 {
		return report.Period{}, fmt.Errorf("%w: month must be between 1 and 12", errBadRequest)
	}
	if year < 1970 || year > 9999 {
		return report.Period{}, fmt.Errorf("%w: invalid year %d", errBadRequest, year)
	}
	return report.Period{Year: year, Month: time.Month(month)}, nil
}

// rangeFromQuery reads from/to (inclusive local days) or year/month. No
// parameters means every record.
func rangeFromQuery(q url.Values, now time.Time, loc *time.Location) (ledger.Range, error) {
	var r ledger.Range
	if q.Get("from") == "" && q.Get("to") == "" {
		if q.Get("year") == "" && q.Get("month") == "" {
			return r, nil
		}
		p, err := periodFromQuery(q, now)
		if err != nil {
			return r, err
		}
		return p.Range(loc), nil
	}

	if v := q.Get("from"); v != "" {
		from, err := parseDate(v, loc)
		if err != nil {
			return r, err
		}
		r.From = from
	}
	if v := q.Get("to"); v != "" {
		to, err := parseDate(v, loc)
		if err != nil {
			return r, err
		}
		r.To = report.DayRange(to, loc).To
	}
	if !r.From.IsZero() && !r.To.IsZero() && !r.From.Before(r.To) {
		return r, fmt.Errorf("%w: from must be before to", errBadRequest)
	}
	return r, nil
}

// sanitizeInput trims s and drops control characters other than tab and
// line breaks.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
