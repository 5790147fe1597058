package timeutil

import (
	"testing"
	"time"
)

func TestStartOfDay(t *testing.T) {
	t.Parallel()

	input := time.Date(2026, 3, 1, 14, 37, 9, 123, time.Local)
	got := StartOfDay(input)

	if got.Year() != 2026 || got.Month() != time.March || got.Day() != 1 {
		t.Fatalf("unexpected date: %v", got)
	}
	if got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 || got.Nanosecond() != 0 {
		t.Fatalf("expected midnight, got %v", got)
	}
}

func TestSameDay(t *testing.T) {
	t.Parallel()

	a := time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local)
	b := time.Date(2026, 3, 1, 18, 30, 0, 0, time.Local)
	c := time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local)

	if !SameDay(a, b) {
		t.Fatalf("expected same day for %v and %v", a, b)
	}
	if SameDay(a, c) {
		t.Fatalf("expected different days for %v and %v", a, c)
	}
}

func TestMinutesFromMidnight(t *testing.T) {
	t.Parallel()

	input := time.Date(2026, 3, 1, 13, 25, 0, 0, time.Local)
	if got := MinutesFromMidnight(input); got != 805 {
		t.Fatalf("expected 805, got %d", got)
	}
}

func TestBiweeklyWindows_CoverTheMonthExactly(t *testing.T) {
	t.Parallel()

	refs := []time.Time{
		time.Date(2026, 7, 20, 10, 0, 0, 0, time.Local),
		time.Date(2026, 2, 3, 0, 0, 0, 0, time.Local),  // 28-day month
		time.Date(2024, 2, 29, 0, 0, 0, 0, time.Local), // leap February
		time.Date(2026, 4, 1, 0, 0, 0, 0, time.Local),  // 30-day month
	}

	for _, ref := range refs {
		first, second := BiweeklyWindows(ref)
		month := MonthWindow(ref)

		if !first.Start.Equal(month.Start) {
			t.Fatalf("first window must start with the month, got %v", first.Start)
		}
		if first.End.Day() != 15 {
			t.Fatalf("first window must end on day 15, got %v", first.End)
		}
		if second.Start.Day() != 16 {
			t.Fatalf("second window must start on day 16, got %v", second.Start)
		}
		if !second.End.Equal(month.End) {
			t.Fatalf("second window must end with the month, got %v vs %v", second.End, month.End)
		}
		if !second.Start.Equal(first.End.AddDate(0, 0, 1)) {
			t.Fatalf("windows must be contiguous: %v then %v", first.End, second.Start)
		}
	}
}

func TestWindowContains_IsInclusiveAndDayBased(t *testing.T) {
	t.Parallel()

	first, second := BiweeklyWindows(time.Date(2026, 7, 1, 0, 0, 0, 0, time.Local))

	day15Evening := time.Date(2026, 7, 15, 23, 30, 0, 0, time.Local)
	if !first.Contains(day15Evening) {
		t.Fatalf("day 15 belongs to the first window")
	}
	if second.Contains(day15Evening) {
		t.Fatalf("day 15 must not appear in the second window")
	}

	day16 := time.Date(2026, 7, 16, 0, 0, 0, 0, time.Local)
	if first.Contains(day16) || !second.Contains(day16) {
		t.Fatalf("day 16 belongs only to the second window")
	}
}

func TestMonthToDate(t *testing.T) {
	t.Parallel()

	ref := time.Date(2026, 7, 20, 15, 4, 0, 0, time.Local)
	win := MonthToDate(ref)

	if win.Start.Day() != 1 || win.Start.Month() != time.July {
		t.Fatalf("unexpected window start: %v", win.Start)
	}
	if win.End.Day() != 20 || win.End.Hour() != 0 {
		t.Fatalf("unexpected window end: %v", win.End)
	}
}
