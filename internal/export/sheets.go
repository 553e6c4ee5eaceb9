package export

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"autonome/internal/log"
	"autonome/internal/report"
)

// SheetsConfig names the spreadsheet and the base sheet name. The year is
// prefixed to the sheet name, e.g. "2024 Résumé".
type SheetsConfig struct {
	SpreadsheetID string
	SheetName     string
}

// SheetsPublisher writes a year's monthly series and category breakdown to
// a Google spreadsheet.
type SheetsPublisher struct {
	svc    *gsheet.Service
	cfg    SheetsConfig
	logger *log.Logger
}

// NewSheetsPublisher builds a publisher. Without opts, service account
// credentials are read from the environment.
func NewSheetsPublisher(ctx context.Context, cfg SheetsConfig, logger *log.Logger, opts ...option.ClientOption) (*SheetsPublisher, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if strings.TrimSpace(cfg.SheetName) == "" {
		cfg.SheetName = "Résumé"
	}
	if logger == nil {
		logger = log.Default(log.ComponentSheets)
	}
	logger = logger.WithComponent(log.ComponentSheets)

	if len(opts) == 0 {
		cred, err := serviceAccountOption(ctx, logger)
		if err != nil {
			return nil, err
		}
		opts = []option.ClientOption{cred, option.WithScopes(gsheet.SpreadsheetsScope)}
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &SheetsPublisher{svc: svc, cfg: cfg, logger: logger}, nil
}

// serviceAccountOption resolves credentials from GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS, in that order.
func serviceAccountOption(ctx context.Context, logger *log.Logger) (option.ClientOption, error) {
	inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		logger.DebugContext(ctx, "Using inline service account credentials")
		return option.WithCredentialsJSON([]byte(inline)), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		logger.DebugContext(ctx, "Using service account file", "path", file)
		return option.WithCredentialsJSON(data), nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// SheetTitle is the year-prefixed sheet name.
func (p *SheetsPublisher) SheetTitle(year int) string {
	return yearPrefixedName(p.cfg.SheetName, year)
}

// PublishYear clears the year's sheet, creating it when needed, and writes the monthly series in
// columns A:C and the category breakdown in columns E:G.
func (p *SheetsPublisher) PublishYear(ctx context.Context, year int, sum report.FinancialSummary) error {
	sheet := p.SheetTitle(year)
	quoted := "'" + strings.ReplaceAll(sheet, "'", "''") + "'"

	if err := p.clearOrCreate(ctx, sheet, quoted); err != nil {
		return err
	}

	months := [][]any{{"Mois", "Revenus", "Dépenses"}}
	for _, m := range sum.Months {
		months = append(months, []any{m.Month, m.Income.Units(), m.Expense.Units()})
	}
	categories := [][]any{{"Catégorie", "Montant", "%"}}
	for _, c := range sum.Categories.Shares {
		categories = append(categories, []any{c.Category, c.Amount.Units(), math.Round(c.Percentage*100) / 100})
	}

	req := &gsheet.BatchUpdateValuesRequest{
		ValueInputOption: "USER_ENTERED",
		Data: []*gsheet.ValueRange{
			{Range: fmt.Sprintf("%s!A1:C%d", quoted, len(months)), Values: months},
			{Range: fmt.Sprintf("%s!E1:G%d", quoted, len(categories)), Values: categories},
		},
	}
	resp, err := p.svc.Spreadsheets.Values.BatchUpdate(p.cfg.SpreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", sheet, err)
	}

	p.logger.InfoContext(ctx, "Published yearly summary",
		"sheet", sheet,
		log.FieldYear, year,
		"cells", resp.TotalUpdatedCells)
	return nil
}

// clearOrCreate empties columns A:G of the sheet, adding the sheet when the
// spreadsheet does not have it yet.
func (p *SheetsPublisher) clearOrCreate(ctx context.Context, sheet, quoted string) error {
	_, err := p.svc.Spreadsheets.Values.Clear(p.cfg.SpreadsheetID, quoted+"!A:G", &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err == nil {
		return nil
	}
	if !isMissingSheet(err) {
		return fmt.Errorf("clear %s: %w", sheet, err)
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: sheet}},
	}}}
	if _, err := p.svc.Spreadsheets.BatchUpdate(p.cfg.SpreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", sheet, err)
	}
	p.logger.InfoContext(ctx, "Added sheet", "sheet", sheet)
	return nil
}

// isMissingSheet reports the error the API returns for a range on a sheet
// that does not exist.
func isMissingSheet(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusBadRequest &&
		strings.Contains(gerr.Message, "Unable to parse range")
}

// yearPrefixedName returns "<year> <base>" unless base already starts with
// a four-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if len(base) >= 5 && base[4] == ' ' {
		if _, err := fmt.Sscanf(base[:4], "%d", new(int)); err == nil {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
