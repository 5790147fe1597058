package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"acumensync/config"
	"acumensync/notify"
	"acumensync/storage"
	"acumensync/summary"
)

var (
	reportDBPath string
	reportMonth  string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print biweekly and monthly hour totals from the local database",
	Long: `Print per-employee period summaries computed from accepted entries in the
local database. No external systems are contacted.`,
	Example: `
  # Current month
  acumensync report

  # Specific month
  acumensync report --month 2026-07
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadAndValidate()
		if err != nil {
			return err
		}

		loc := cfg.Timezone()
		window, reference, err := resolveWindow(reportMonth, time.Now().In(loc), loc)
		if err != nil {
			return err
		}

		store, err := storage.OpenSQLite(reportDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		for _, employee := range cfg.Employees {
			entries, err := store.ListEntries(employee.Name, window)
			if err != nil {
				return err
			}
			summaries := summary.Aggregate(employee.Name, entries, reference)
			fmt.Print(notify.Render(summaries))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportDBPath, "db", "./acumensync.db", "Path to local SQLite database")
	reportCmd.Flags().StringVar(&reportMonth, "month", "", "Target month (YYYY-MM); default is current month-to-date")
}
