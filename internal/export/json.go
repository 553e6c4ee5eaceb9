package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"autonome/internal/core"
)

// WriteJSON writes t as an array of flat objects keyed by the header.
func WriteJSON(w io.Writer, t Table) error {
	records := make([]orderedRecord, 0, len(t.Rows))
	for _, row := range t.Rows {
		records = append(records, orderedRecord{keys: t.Header, values: row})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// orderedRecord marshals as an object whose keys keep header order.
type orderedRecord struct {
	keys   []string
	values []any
}

func (r orderedRecord) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, k := range r.keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf = append(buf, key...)
		buf = append(buf, ':')

		var v any
		if i < len(r.values) {
			v = r.values[i]
		}
		if t, ok := v.(time.Time); ok {
			if t.IsZero() {
				v = nil
			} else {
				v = t.UTC().Format(time.RFC3339)
			}
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		buf = append(buf, val...)
	}
	return append(buf, '}'), nil
}

// Backup is the full-ledger JSON document used for local backups.
type Backup struct {
	Version   int                  `json:"version"`
	Timestamp time.Time            `json:"timestamp"`
	Sessions  []core.WorkSession   `json:"workSessions"`
	Expenses  []core.Expense       `json:"expenses"`
	Incomes   []core.Income        `json:"incomes"`
	Clients   []core.Client        `json:"clients"`
	Projects  []core.Project       `json:"projects"`
	Mileage   []core.MileageEntry  `json:"mileage"`
	Jobs      []core.Job           `json:"jobs"`
	Invoices  []core.Invoice       `json:"invoices"`
	Recurring []core.RecurringItem `json:"recurringItems"`
	Documents []core.Document      `json:"documents"`
}

// BackupVersion is the current backup document version. Version 3 added
// documents.
const BackupVersion = 3

func WriteBackup(w io.Writer, b Backup) error {
	if b.Version == 0 {
		b.Version = BackupVersion
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(b)
}

func toString(v any) string {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(v)
}
