package ctl

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/subcommands"

	"autonome/internal/config"
	"autonome/internal/events"
	"autonome/internal/export"
	"autonome/internal/ledger"
	"autonome/internal/report"
	"autonome/internal/services"
)

// Commands returns every autonomectl subcommand. Output goes to out.
func Commands(open Opener, out io.Writer) []subcommands.Command {
	base := base{open: open, out: out}
	return []subcommands.Command{
		&recurCmd{base: base},
		&reportCmd{base: base},
		&exportCmd{base: base},
		&restoreCmd{base: base},
		&sheetsCmd{base: base},
	}
}

type base struct {
	open Opener
	out  io.Writer
}

// run opens the Env, calls fn and maps its error to an exit status.
func (b base) run(ctx context.Context, fn func(ctx context.Context, env *Env) error) subcommands.ExitStatus {
	env, err := b.open(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer env.Close()

	if err := fn(ctx, env); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (b base) printJSON(v any) error {
	enc := json.NewEncoder(b.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseDay reads YYYY-MM-DD in loc; empty means now.
func parseDay(s string, loc *time.Location, now time.Time) (time.Time, error) {
	if s == "" {
		return now, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

type recurCmd struct {
	base
	at          string
	materialize bool
}

func (*recurCmd) Name() string     { return "recur" }
func (*recurCmd) Synopsis() string { return "run one recurring scheduler pass" }
func (*recurCmd) Usage() string {
	return `autonomectl recur [-at <date>] [-income]

  Generates every record due up to the given date (default: now) and prints
  the pass result as JSON.
`
}

func (c *recurCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.at, "at", "", "Run the pass as of this date (YYYY-MM-DD, end of day)")
	f.BoolVar(&c.materialize, "income", false, "Write Income records for income items (default: RECURRING_MATERIALIZE_INCOME)")
}

func (c *recurCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, func(ctx context.Context, env *Env) error {
		now := env.Now()
		if c.at != "" {
			day, err := parseDay(c.at, env.Loc, now)
			if err != nil {
				return err
			}
			now = report.DayRange(day, env.Loc).To.Add(-time.Nanosecond)
		}
		cfg := services.SchedulerConfig{MaterializeIncome: c.materialize, Location: env.Loc}
		if env.Config != nil {
			cfg.MaterializeIncome = cfg.MaterializeIncome || env.Config.RecurringMaterializeIncome
			cfg.MaxCatchUp = env.Config.RecurringMaxCatchUp
		}
		res, err := services.NewScheduler(env.Store, env.Bus, env.Logger, cfg).Run(ctx, now)
		if err != nil {
			return err
		}
		return c.printJSON(res)
	})
}

type reportCmd struct {
	base
	year    int
	month   int
	monthly bool
	project int64
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "print a financial summary" }
func (*reportCmd) Usage() string {
	return `autonomectl report [-year <y>] [-month <m>] [-monthly] [-project <id>]

  Prints the financial summary of a year or month as JSON. With -monthly,
  prints the monthly report of -month instead. With -project, prints the
  lifetime totals of that project.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.year, "year", 0, "Year (defaults to the current year)")
	f.IntVar(&c.month, "month", 0, "Month 1-12 (0 for the whole year)")
	f.BoolVar(&c.monthly, "monthly", false, "Print the monthly report")
	f.Int64Var(&c.project, "project", 0, "Print the totals of this project id")
}

func (c *reportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.month < 0 || c.month > 12 {
		fmt.Fprintf(os.Stderr, "Error: month must be between 1 and 12\n")
		return subcommands.ExitUsageError
	}
	return c.run(ctx, func(ctx context.Context, env *Env) error {
		now := env.Now().In(env.Loc)
		year := c.year
		if year == 0 {
			year = now.Year()
		}
		engine := env.engine()

		if c.monthly {
			month := time.Month(c.month)
			if month == 0 {
				month = now.Month()
			}
			rep, err := engine.Monthly(ctx, year, month)
			if err != nil {
				return err
			}
			return c.printJSON(rep)
		}

		st, err := config.NewSettingsStore(env.Store, env.Logger).Load(ctx)
		if err != nil {
			return err
		}
		if c.project > 0 {
			totals, err := engine.Project(ctx, c.project, st.ReportParams())
			if err != nil {
				return err
			}
			return c.printJSON(totals)
		}
		sum, err := engine.Summary(ctx, report.Period{Year: year, Month: time.Month(c.month)}, st.ReportParams())
		if err != nil {
			return err
		}
		return c.printJSON(sum)
	})
}

type exportCmd struct {
	base
	format string
	output string
	year   int
	month  int
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export a collection, a backup or a summary" }
func (*exportCmd) Usage() string {
	return `autonomectl export [-format csv|json|xlsx] [-o <file>] [-year <y>] [-month <m>] <collection>

  Writes a collection (sessions, expenses, incomes, mileage, invoices,
  clients, jobs, documents) to stdout or a file. "backup" writes every collection as one
  JSON document; "summary" writes the yearly series and category breakdown.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.format, "format", "csv", "Output format: csv, json or xlsx")
	f.StringVar(&c.output, "o", "", "Output file (default: stdout)")
	f.IntVar(&c.year, "year", 0, "Only records of this year")
	f.IntVar(&c.month, "month", 0, "Only records of this month (needs -year)")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	name := f.Arg(0)
	format, err := export.ParseFormat(c.format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	return c.run(ctx, func(ctx context.Context, env *Env) error {
		w := c.out
		if c.output != "" {
			file, err := os.Create(c.output)
			if err != nil {
				return err
			}
			defer file.Close()
			w = file
		}
		return c.write(ctx, env, w, name, format)
	})
}

func (c *exportCmd) write(ctx context.Context, env *Env, w io.Writer, name string, format export.Format) error {
	now := env.Now()
	switch name {
	case "backup":
		b, err := export.LoadBackup(ctx, env.Store, now)
		if err != nil {
			return err
		}
		return export.WriteBackup(w, b)
	case "summary":
		year := c.year
		if year == 0 {
			year = now.In(env.Loc).Year()
		}
		st, err := config.NewSettingsStore(env.Store, env.Logger).Load(ctx)
		if err != nil {
			return err
		}
		sum, err := env.engine().Summary(ctx, report.YearPeriod(year), st.ReportParams())
		if err != nil {
			return err
		}
		series, categories := export.MonthlySeriesTable(sum.Months), export.CategoryTable(sum.Categories)
		return writeTables(w, format, series, categories)
	}

	var r ledger.Range
	if c.year != 0 {
		r = report.Period{Year: c.year, Month: time.Month(c.month)}.Range(env.Loc)
	}
	t, err := export.Load(ctx, env.Store, name, r, now)
	if err != nil {
		return err
	}
	return writeTables(w, format, t)
}

// writeTables writes every table to a workbook, or the first one as csv or
// json.
func writeTables(w io.Writer, format export.Format, tables ...export.Table) error {
	switch format {
	case export.FormatXLSX:
		return export.WriteXLSX(w, tables...)
	case export.FormatJSON:
		return export.WriteJSON(w, tables[0])
	default:
		return export.WriteCSV(w, tables[0])
	}
}

type sheetsCmd struct {
	base
	year int
}

func (*sheetsCmd) Name() string     { return "sheets" }
func (*sheetsCmd) Synopsis() string { return "publish a yearly summary to Google Sheets" }
func (*sheetsCmd) Usage() string {
	return `autonomectl sheets [-year <y>]

  Recomputes the summary of the year and overwrites its sheet in
  GOOGLE_SPREADSHEET_ID.
`
}

func (c *sheetsCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.year, "year", 0, "Year to publish (defaults to the current year)")
}

func (c *sheetsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, func(ctx context.Context, env *Env) error {
		year := c.year
		if year == 0 {
			year = env.Now().In(env.Loc).Year()
		}
		if env.Sheets == nil {
			return fmt.Errorf("google sheets publishing is not configured")
		}
		pub, err := env.Sheets(ctx)
		if err != nil {
			return err
		}
		st, err := config.NewSettingsStore(env.Store, env.Logger).Load(ctx)
		if err != nil {
			return err
		}
		sum, err := env.engine().Summary(ctx, report.YearPeriod(year), st.ReportParams())
		if err != nil {
			return err
		}
		if err := pub.PublishYear(ctx, year, sum); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Published %d\n", year)
		return nil
	})
}

type restoreCmd struct {
	base
	dryRun bool
}

func (*restoreCmd) Name() string     { return "restore" }
func (*restoreCmd) Synopsis() string { return "replace the ledger with a backup file" }
func (*restoreCmd) Usage() string {
	return `autonomectl restore [-dry-run] <backup.json>

  Replaces every record with the contents of a file written by
  "autonomectl export backup". Settings are kept. With -dry-run the file is
  only checked.
`
}

func (c *restoreCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.dryRun, "dry-run", false, "Check the file without changing the ledger")
}

type restoreResult struct {
	Version  int  `json:"version"`
	Records  int  `json:"records"`
	Restored bool `json:"restored"`
}

func (c *restoreCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	path := f.Arg(0)

	return c.run(ctx, func(ctx context.Context, env *Env) error {
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		b, err := export.ReadBackup(file)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		d := b.Dataset()
		if c.dryRun {
			if err := d.Validate(); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			return c.printJSON(restoreResult{Version: b.Version, Records: d.Records()})
		}
		n, err := export.ImportBackup(ctx, env.Store, b)
		if err != nil {
			return err
		}
		if env.Bus != nil {
			env.Bus.Publish(ctx, events.LedgerRestored, events.RestorePayload{Version: b.Version, Records: n})
		}
		env.Logger.InfoContext(ctx, "Backup restored", "file", path, "records", n)
		return c.printJSON(restoreResult{Version: b.Version, Records: n, Restored: true})
	})
}
