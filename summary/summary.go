package summary

import (
	"sort"
	"time"

	"acumensync/internal/timeutil"
	"acumensync/worklog"
)

// PeriodType distinguishes the two accounting windows hours are summed over.
type PeriodType string

const (
	PeriodBiweekly PeriodType = "biweekly"
	PeriodMonthly  PeriodType = "monthly"
)

// PeriodSummary holds one employee's minute totals for one period.
type PeriodSummary struct {
	EmployeeID   string
	PeriodType   PeriodType
	PeriodStart  time.Time
	PeriodEnd    time.Time
	TotalsByCode map[worklog.ServiceCode]int
	TotalMinutes int
}

// Aggregate computes one monthly and two biweekly summaries per month touched
// by the accepted set. The reference month is always included, even when it
// has no entries. An entry belongs to exactly one biweekly period, decided by
// its shift start date. Pure function of its inputs.
func Aggregate(employeeID string, accepted []worklog.PersistedEntry, referenceDate time.Time) []PeriodSummary {
	months := map[time.Time][]worklog.PersistedEntry{
		timeutil.MonthWindow(referenceDate).Start: nil,
	}
	for _, entry := range accepted {
		month := timeutil.MonthWindow(entry.Date).Start
		months[month] = append(months[month], entry)
	}

	monthStarts := make([]time.Time, 0, len(months))
	for month := range months {
		monthStarts = append(monthStarts, month)
	}
	sort.Slice(monthStarts, func(i, j int) bool { return monthStarts[i].Before(monthStarts[j]) })

	summaries := make([]PeriodSummary, 0, len(monthStarts)*3)
	for _, month := range monthStarts {
		entries := months[month]
		first, second := timeutil.BiweeklyWindows(month)

		summaries = append(summaries,
			summarize(employeeID, PeriodBiweekly, first, entries),
			summarize(employeeID, PeriodBiweekly, second, entries),
			summarize(employeeID, PeriodMonthly, timeutil.MonthWindow(month), entries),
		)
	}
	return summaries
}

func summarize(employeeID string, kind PeriodType, win timeutil.Window, entries []worklog.PersistedEntry) PeriodSummary {
	out := PeriodSummary{
		EmployeeID:   employeeID,
		PeriodType:   kind,
		PeriodStart:  win.Start,
		PeriodEnd:    win.End,
		TotalsByCode: make(map[worklog.ServiceCode]int, len(worklog.ServiceCodes)),
	}
	for _, code := range worklog.ServiceCodes {
		out.TotalsByCode[code] = 0
	}

	for _, entry := range entries {
		if !win.Contains(entry.Date) {
			continue
		}
		out.TotalsByCode[entry.ServiceCode] += entry.DurationMinutes
		out.TotalMinutes += entry.DurationMinutes
	}
	return out
}
