package acumen

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"acumensync/worklog"
)

const (
	dateLayout = "Jan 2, 2006"
	timeLayout = "3:04 PM"
)

// Table is the scraped punches table: one header row plus data rows, cell
// text only.
type Table struct {
	Header []string
	Rows   [][]string
}

// ParseTable normalizes scraped punch rows into work entries. Rows whose
// status is Open or Rejected are dropped at the source, matching what the
// portal itself treats as not-yet-final. Cell access is header-driven so
// column reordering in the portal does not silently corrupt fields.
func ParseTable(table Table, employeeID string, loc *time.Location) ([]worklog.Entry, error) {
	idx, err := columnIndex(table.Header)
	if err != nil {
		return nil, err
	}

	entries := make([]worklog.Entry, 0, len(table.Rows))
	for _, row := range table.Rows {
		if len(row) <= idx.max() {
			continue
		}

		status := strings.TrimSpace(row[idx.status])
		if strings.EqualFold(status, "Open") || strings.EqualFold(status, "Rejected") {
			continue
		}

		entry, err := parseRow(row, idx, employeeID, loc)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

type columns struct {
	id          int
	serviceDate int
	startTime   int
	endTime     int
	amount      int
	serviceCode int
	status      int
}

func (c columns) max() int {
	out := c.id
	for _, v := range []int{c.serviceDate, c.startTime, c.endTime, c.amount, c.serviceCode, c.status} {
		if v > out {
			out = v
		}
	}
	return out
}

func columnIndex(header []string) (columns, error) {
	byName := make(map[string]int, len(header))
	for i, name := range header {
		byName[strings.ToLower(strings.TrimSpace(name))] = i
	}

	idx := columns{}
	for name, target := range map[string]*int{
		"id":           &idx.id,
		"service date": &idx.serviceDate,
		"start time":   &idx.startTime,
		"end time":     &idx.endTime,
		"amount":       &idx.amount,
		"service code": &idx.serviceCode,
		"status":       &idx.status,
	} {
		pos, ok := byName[name]
		if !ok {
			return columns{}, fmt.Errorf("punches table is missing column %q", name)
		}
		*target = pos
	}
	return idx, nil
}

func parseRow(row []string, idx columns, employeeID string, loc *time.Location) (worklog.Entry, error) {
	sourceID := strings.TrimSpace(row[idx.id])

	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(row[idx.serviceDate]), loc)
	if err != nil {
		return worklog.Entry{}, fmt.Errorf("row %s: parse service date %q: %w", sourceID, row[idx.serviceDate], err)
	}

	start, err := atDay(day, row[idx.startTime], loc)
	if err != nil {
		return worklog.Entry{}, fmt.Errorf("row %s: parse start time %q: %w", sourceID, row[idx.startTime], err)
	}
	end, err := atDay(day, row[idx.endTime], loc)
	if err != nil {
		return worklog.Entry{}, fmt.Errorf("row %s: parse end time %q: %w", sourceID, row[idx.endTime], err)
	}
	// A shift crossing midnight still belongs to its start date; the end
	// clock reading lands on the next day.
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}

	minutes, err := parseAmount(row[idx.amount])
	if err != nil {
		return worklog.Entry{}, fmt.Errorf("row %s: parse amount %q: %w", sourceID, row[idx.amount], err)
	}

	code, err := strconv.Atoi(strings.TrimSpace(row[idx.serviceCode]))
	if err != nil {
		return worklog.Entry{}, fmt.Errorf("row %s: parse service code %q: %w", sourceID, row[idx.serviceCode], err)
	}

	return worklog.Entry{
		EmployeeID:      employeeID,
		Date:            day,
		StartTime:       start,
		EndTime:         end,
		ServiceCode:     worklog.ServiceCode(code),
		DurationMinutes: minutes,
		SourceID:        sourceID,
	}, nil
}

func atDay(day time.Time, clock string, loc *time.Location) (time.Time, error) {
	parsed, err := time.ParseInLocation(timeLayout, strings.TrimSpace(clock), loc)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), parsed.Hour(), parsed.Minute(), 0, 0, loc), nil
}

// parseAmount converts the portal's duration cell to minutes. The cell reads
// "D:HH:MM"; a bare "HH:MM" is accepted as well.
func parseAmount(raw string) (int, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")

	var hoursPart, minutesPart string
	switch len(parts) {
	case 3:
		hoursPart, minutesPart = parts[1], parts[2]
	case 2:
		hoursPart, minutesPart = parts[0], parts[1]
	default:
		return 0, fmt.Errorf("unexpected amount format")
	}

	hours, err := strconv.Atoi(strings.TrimSpace(hoursPart))
	if err != nil {
		return 0, err
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(minutesPart))
	if err != nil {
		return 0, err
	}
	if hours < 0 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("amount out of range")
	}
	return hours*60 + minutes, nil
}
