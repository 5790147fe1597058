package timeutil

import "time"

func StartOfDay(value time.Time) time.Time {
	return time.Date(value.Year(), value.Month(), value.Day(), 0, 0, 0, 0, value.Location())
}

func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func MinutesFromMidnight(value time.Time) int {
	return value.Hour()*60 + value.Minute()
}

// Window is an inclusive day range [Start, End], both at midnight.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether the day of value falls inside the window.
func (w Window) Contains(value time.Time) bool {
	day := StartOfDay(value)
	return !day.Before(w.Start) && !day.After(w.End)
}

// MonthWindow returns the calendar month enclosing ref.
func MonthWindow(ref time.Time) Window {
	start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	end := start.AddDate(0, 1, -1)
	return Window{Start: start, End: end}
}

// BiweeklyWindows splits the month enclosing ref into its two accounting
// periods: days [1,15] and [16, end-of-month]. The two windows are contiguous,
// non-overlapping, and together cover the month exactly.
func BiweeklyWindows(ref time.Time) (Window, Window) {
	month := MonthWindow(ref)
	first := Window{
		Start: month.Start,
		End:   time.Date(ref.Year(), ref.Month(), 15, 0, 0, 0, 0, ref.Location()),
	}
	second := Window{
		Start: time.Date(ref.Year(), ref.Month(), 16, 0, 0, 0, 0, ref.Location()),
		End:   month.End,
	}
	return first, second
}

// MonthToDate returns the window from the first of ref's month through ref.
func MonthToDate(ref time.Time) Window {
	return Window{Start: MonthWindow(ref).Start, End: StartOfDay(ref)}
}
