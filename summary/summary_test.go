package summary

import (
	"testing"
	"time"

	"acumensync/worklog"
)

func acceptedEntry(t *testing.T, day int, code worklog.ServiceCode, minutes int) worklog.PersistedEntry {
	t.Helper()
	start := time.Date(2026, 7, day, 9, 0, 0, 0, time.Local)
	return worklog.PersistedEntry{
		Entry: worklog.Entry{
			EmployeeID:      "E",
			Date:            time.Date(2026, 7, day, 0, 0, 0, 0, time.Local),
			StartTime:       start,
			EndTime:         start.Add(time.Duration(minutes) * time.Minute),
			ServiceCode:     code,
			DurationMinutes: minutes,
		},
		ID:     int64(day),
		Status: worklog.StatusAccepted,
	}
}

func findSummary(t *testing.T, summaries []PeriodSummary, kind PeriodType, startDay int) PeriodSummary {
	t.Helper()
	for _, s := range summaries {
		if s.PeriodType == kind && s.PeriodStart.Day() == startDay && s.PeriodStart.Month() == time.July {
			return s
		}
	}
	t.Fatalf("no %s summary starting on day %d", kind, startDay)
	return PeriodSummary{}
}

func TestAggregate_BiweeklySplitAroundDay15(t *testing.T) {
	t.Parallel()

	// Code 310: 4800 minutes across days 1-15, 5200 minutes across days 16-31.
	entries := []worklog.PersistedEntry{
		acceptedEntry(t, 1, worklog.ServicePersonalCare, 2000),
		acceptedEntry(t, 10, worklog.ServicePersonalCare, 2000),
		acceptedEntry(t, 15, worklog.ServicePersonalCare, 800),
		acceptedEntry(t, 16, worklog.ServicePersonalCare, 2600),
		acceptedEntry(t, 31, worklog.ServicePersonalCare, 2600),
	}

	ref := time.Date(2026, 7, 20, 0, 0, 0, 0, time.Local)
	summaries := Aggregate("E", entries, ref)

	first := findSummary(t, summaries, PeriodBiweekly, 1)
	second := findSummary(t, summaries, PeriodBiweekly, 16)
	monthly := findSummary(t, summaries, PeriodMonthly, 1)

	if got := first.TotalsByCode[worklog.ServicePersonalCare]; got != 4800 {
		t.Fatalf("first biweekly 310 total = %d, expected 4800", got)
	}
	if got := second.TotalsByCode[worklog.ServicePersonalCare]; got != 5200 {
		t.Fatalf("second biweekly 310 total = %d, expected 5200", got)
	}
	if got := monthly.TotalsByCode[worklog.ServicePersonalCare]; got != 10000 {
		t.Fatalf("monthly 310 total = %d, expected 10000", got)
	}
}

func TestAggregate_BiweekliesPartitionTheMonth(t *testing.T) {
	t.Parallel()

	entries := []worklog.PersistedEntry{
		acceptedEntry(t, 3, worklog.ServicePersonalCare, 120),
		acceptedEntry(t, 15, worklog.ServiceRespite, 90),
		acceptedEntry(t, 16, worklog.ServiceRespite, 45),
		acceptedEntry(t, 28, worklog.ServiceCommunity, 200),
	}

	ref := time.Date(2026, 7, 1, 0, 0, 0, 0, time.Local)
	summaries := Aggregate("E", entries, ref)

	first := findSummary(t, summaries, PeriodBiweekly, 1)
	second := findSummary(t, summaries, PeriodBiweekly, 16)
	monthly := findSummary(t, summaries, PeriodMonthly, 1)

	for _, code := range worklog.ServiceCodes {
		sum := first.TotalsByCode[code] + second.TotalsByCode[code]
		if sum != monthly.TotalsByCode[code] {
			t.Fatalf("code %s: biweekly sum %d != monthly %d", code, sum, monthly.TotalsByCode[code])
		}
	}
	if first.TotalMinutes+second.TotalMinutes != monthly.TotalMinutes {
		t.Fatalf("biweekly grand totals must sum to the monthly total")
	}
}

func TestAggregate_MidnightCrossingEntryBelongsToStartDate(t *testing.T) {
	t.Parallel()

	entry := acceptedEntry(t, 15, worklog.ServicePersonalCare, 60)
	entry.StartTime = time.Date(2026, 7, 15, 23, 30, 0, 0, time.Local)
	entry.EndTime = time.Date(2026, 7, 16, 0, 30, 0, 0, time.Local)

	ref := time.Date(2026, 7, 1, 0, 0, 0, 0, time.Local)
	summaries := Aggregate("E", []worklog.PersistedEntry{entry}, ref)

	first := findSummary(t, summaries, PeriodBiweekly, 1)
	second := findSummary(t, summaries, PeriodBiweekly, 16)

	if first.TotalsByCode[worklog.ServicePersonalCare] != 60 {
		t.Fatalf("entry must be attributed to its start date period")
	}
	if second.TotalsByCode[worklog.ServicePersonalCare] != 0 {
		t.Fatalf("entry must appear in exactly one period")
	}
}

func TestAggregate_ReferenceMonthAlwaysReported(t *testing.T) {
	t.Parallel()

	ref := time.Date(2026, 7, 1, 0, 0, 0, 0, time.Local)
	summaries := Aggregate("E", nil, ref)

	if len(summaries) != 3 {
		t.Fatalf("expected three summaries for an empty month, got %d", len(summaries))
	}
	for _, s := range summaries {
		if s.TotalMinutes != 0 {
			t.Fatalf("empty month must report zero totals, got %+v", s)
		}
		for _, code := range worklog.ServiceCodes {
			if _, ok := s.TotalsByCode[code]; !ok {
				t.Fatalf("summary must carry explicit zero for code %s", code)
			}
		}
	}
}

func TestAggregate_MultipleMonthsEachGetThreeSummaries(t *testing.T) {
	t.Parallel()

	june := acceptedEntry(t, 10, worklog.ServicePersonalCare, 100)
	june.Date = time.Date(2026, 6, 10, 0, 0, 0, 0, time.Local)
	june.StartTime = time.Date(2026, 6, 10, 9, 0, 0, 0, time.Local)
	june.EndTime = june.StartTime.Add(100 * time.Minute)
	july := acceptedEntry(t, 10, worklog.ServiceRespite, 50)

	ref := time.Date(2026, 7, 1, 0, 0, 0, 0, time.Local)
	summaries := Aggregate("E", []worklog.PersistedEntry{june, july}, ref)

	if len(summaries) != 6 {
		t.Fatalf("expected six summaries across two months, got %d", len(summaries))
	}
}

func TestAggregate_IsDeterministic(t *testing.T) {
	t.Parallel()

	entries := []worklog.PersistedEntry{
		acceptedEntry(t, 2, worklog.ServicePersonalCare, 100),
		acceptedEntry(t, 20, worklog.ServiceCommunity, 55),
	}
	ref := time.Date(2026, 7, 1, 0, 0, 0, 0, time.Local)

	first := Aggregate("E", entries, ref)
	second := Aggregate("E", entries, ref)

	if len(first) != len(second) {
		t.Fatalf("rerun changed summary count")
	}
	for i := range first {
		if first[i].PeriodType != second[i].PeriodType ||
			!first[i].PeriodStart.Equal(second[i].PeriodStart) ||
			first[i].TotalMinutes != second[i].TotalMinutes {
			t.Fatalf("rerun diverged at %d:\n%+v\n%+v", i, first[i], second[i])
		}
	}
}
