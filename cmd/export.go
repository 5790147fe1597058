package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"acumensync/config"
	"acumensync/storage"
	"acumensync/summary"
)

var (
	exportFormat string
	exportOutput string
	exportDBPath string
	exportMonth  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export period summaries from SQLite to CSV/Excel",
	Long: `Export biweekly and monthly summaries computed from the local database.

Output format can be selected explicitly via --format or inferred from --output extension.`,
	Example: `
  # Export current month's summaries to CSV
  acumensync export --output ./hours.csv

  # Export a specific month to Excel
  acumensync export --month 2026-07 --output ./hours.xlsx

  # Force Excel format independent of extension
  acumensync export --format excel --output ./hours.out
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadAndValidate()
		if err != nil {
			return err
		}

		format := exportFormat
		if strings.TrimSpace(format) == "" {
			format = detectExportFormat(exportOutput)
		}
		writer, err := summary.WriterForFormat(format)
		if err != nil {
			return err
		}

		loc := cfg.Timezone()
		window, reference, err := resolveWindow(exportMonth, time.Now().In(loc), loc)
		if err != nil {
			return err
		}

		store, err := storage.OpenSQLite(exportDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		summaries := make([]summary.PeriodSummary, 0, len(cfg.Employees)*3)
		for _, employee := range cfg.Employees {
			entries, err := store.ListEntries(employee.Name, window)
			if err != nil {
				return err
			}
			summaries = append(summaries, summary.Aggregate(employee.Name, entries, reference)...)
		}

		if err := writer.Write(exportOutput, summaries); err != nil {
			return err
		}
		fmt.Printf("Export completed. Periods: %d, Format: %s, File: %s\n", len(summaries), format, exportOutput)
		return nil
	},
}

func detectExportFormat(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "csv":
		return "csv"
	case "xlsx", "xlsm", "xls":
		return "excel"
	default:
		return "csv"
	}
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "Output format: csv|excel (optional, inferred from output extension)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path")
	exportCmd.Flags().StringVar(&exportDBPath, "db", "./acumensync.db", "Path to local SQLite database")
	exportCmd.Flags().StringVar(&exportMonth, "month", "", "Target month (YYYY-MM); default is current month-to-date")

	_ = exportCmd.MarkFlagRequired("output")
}
