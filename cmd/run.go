package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"acumensync/acumen"
	"acumensync/calendar"
	"acumensync/config"
	"acumensync/internal/timeutil"
	"acumensync/notify"
	"acumensync/pipeline"
	"acumensync/storage"
)

var (
	runDBPath  string
	runMonth   string
	runDryRun  bool
	runNoSync  bool
	runVerbose bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daily batch: extract, reconcile, aggregate, sync, notify",
	Long: `Run one batch pass over the configured employee roster.

For each employee: fetch current entries from the Acumen portal, reconcile them
against the local database (insert/update/delete by natural key), recompute
biweekly and monthly totals, mirror accepted entries into Google Calendar via
the persisted entry-to-event mapping, and send the hours report.

A failing employee never blocks the others; the run reports partial failure.`,
	Example: `
  # Current month-to-date
  acumensync run

  # Specific month, read-only preview
  acumensync run --month 2026-07 --dry-run

  # Reconcile and notify but leave the calendar alone
  acumensync run --no-calendar
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadAndValidate()
		if err != nil {
			return err
		}
		if len(cfg.Employees) == 0 {
			return fmt.Errorf("no employees configured; add a roster to the config file")
		}

		logger := newLogger(runVerbose)
		loc := cfg.Timezone()

		window, reference, err := resolveWindow(runMonth, time.Now().In(loc), loc)
		if err != nil {
			return err
		}

		store, err := storage.OpenSQLite(runDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		var calendarClient calendar.Client
		if !runDryRun && !runNoSync && cfg.Calendar.ID != "" {
			calendarClient, err = calendar.NewGoogleClient(cmd.Context(), cfg.Calendar.ID, cfg.Calendar.Credentials)
			if err != nil {
				return err
			}
		}

		runner := &pipeline.Runner{
			Cfg: cfg,
			Log: logger,
			Extractor: &acumen.BrowserExtractor{
				BaseURL:  cfg.Acumen.URL,
				Location: loc,
			},
			Store:     store,
			Calendar:  calendarClient,
			Mappings:  store,
			Notifier:  newNotifier(cfg, runDryRun),
			Window:    window,
			Reference: reference,
			DryRun:    runDryRun,
		}

		report := runner.Run(context.Background())
		printRunReport(report)

		if report.Status() == pipeline.StatusFailed {
			return fmt.Errorf("run failed for all employees")
		}
		return nil
	},
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// resolveWindow turns the --month flag into the fetch window. Empty means
// current month-to-date; a YYYY-MM value means that whole month.
func resolveWindow(month string, now time.Time, loc *time.Location) (timeutil.Window, time.Time, error) {
	if month == "" {
		return timeutil.MonthToDate(now), now, nil
	}
	parsed, err := time.ParseInLocation("2006-01", month, loc)
	if err != nil {
		return timeutil.Window{}, time.Time{}, fmt.Errorf("invalid --month %q, expected YYYY-MM", month)
	}
	return timeutil.MonthWindow(parsed), parsed, nil
}

func newNotifier(cfg *config.Config, dryRun bool) notify.Notifier {
	if dryRun || cfg.Mail.Host == "" {
		return &notify.ConsoleNotifier{}
	}
	return &notify.SMTPNotifier{
		Host: cfg.Mail.Host,
		Port: cfg.Mail.Port,
		From: cfg.Mail.From,
	}
}

func printRunReport(report pipeline.RunReport) {
	for _, employee := range report.Employees {
		if employee.Err != nil {
			fmt.Printf("%s: failed: %v\n", employee.Employee, employee.Err)
			continue
		}
		fmt.Printf(
			"%s: inserted=%d updated=%d deleted=%d duplicates=%d rejected=%d calendar-failures=%d\n",
			employee.Employee,
			employee.Inserted,
			employee.Updated,
			employee.Deleted,
			employee.Duplicates,
			employee.RejectedValidation,
			employee.CalendarFailures,
		)
	}
	fmt.Printf("Run status: %s\n", report.Status())
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runDBPath, "db", "./acumensync.db", "Path to local SQLite database")
	runCmd.Flags().StringVar(&runMonth, "month", "", "Target month (YYYY-MM); default is current month-to-date")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Report intended decisions without writing to the store, calendar, or mail")
	runCmd.Flags().BoolVar(&runNoSync, "no-calendar", false, "Skip calendar synchronization")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Enable debug logging")
}
