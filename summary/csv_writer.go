package summary

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"acumensync/worklog"
)

type Writer interface {
	Write(path string, summaries []PeriodSummary) error
}

func WriterForFormat(format string) (Writer, error) {
	switch normalizeFormat(format) {
	case "csv":
		return &CSVWriter{}, nil
	case "excel", "xlsx":
		return &ExcelWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

func normalizeFormat(value string) string {
	return strings.TrimSpace(strings.ToLower(value))
}

var reportHeaders = []string{"Employee", "Period", "Start", "End", "310", "320", "331", "Total"}

func reportRow(s PeriodSummary) []string {
	return []string{
		s.EmployeeID,
		string(s.PeriodType),
		s.PeriodStart.Format("2006-01-02"),
		s.PeriodEnd.Format("2006-01-02"),
		worklog.FormatMinutes(s.TotalsByCode[worklog.ServicePersonalCare]),
		worklog.FormatMinutes(s.TotalsByCode[worklog.ServiceRespite]),
		worklog.FormatMinutes(s.TotalsByCode[worklog.ServiceCommunity]),
		worklog.FormatMinutes(s.TotalMinutes),
	}
}

type CSVWriter struct{}

func (w *CSVWriter) Write(path string, summaries []PeriodSummary) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv output %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(reportHeaders); err != nil {
		return fmt.Errorf("write csv headers: %w", err)
	}

	for _, summary := range summaries {
		if err := writer.Write(reportRow(summary)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv output: %w", err)
	}

	return nil
}
