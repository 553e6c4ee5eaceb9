package export

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"autonome/internal/core"
)

// WriteCSV writes t with a bare header row. String cells are always quoted
// with "" escaping, times are RFC 3339 in UTC, numbers are bare and nil is
// empty.
func WriteCSV(w io.Writer, t Table) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(t.Header, ",") + "\n"); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := writeCSVRow(bw, row); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeCSVRow(w *bufio.Writer, row []any) error {
	for i, v := range row {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(csvCell(v)); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}

func csvCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return `"` + strings.ReplaceAll(x, `"`, `""`) + `"`
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.UTC().Format(time.RFC3339)
	case core.Money:
		return x.String()
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return `"` + strings.ReplaceAll(toString(x), `"`, `""`) + `"`
	}
}
