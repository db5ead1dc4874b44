package generic

import (
	"strconv"
	"time"
)

// =============================================================================
// CALENDAR CONSTANTS
// =============================================================================

const (
	monthLayout = "2006-01"
	weekLayout  = "2006-01-02"

	// A weekly series is compared against the week closest to exactly 52 weeks
	// earlier, and only when that week lies within the tolerance window.
	YearAgoWeekOffsetDays    = 364
	YearAgoWeekToleranceDays = 7

	// Weekly trend lines show the selected week and the 11 before it.
	WeeklyTrendWindow = 12

	// AvailableWeeks keeps this many years back from the latest week.
	availableWeeksYears = 2

	day = 24 * time.Hour
)

// MonthNames are the short English month names used in labels.
var MonthNames = []string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// MonthName maps "01".."12" to "Jan".."Dec". Unknown input is returned as is.
func MonthName(mm string) string {
	n, err := strconv.Atoi(mm)
	if err != nil || n < 1 || n > 12 {
		return mm
	}
	return MonthNames[n-1]
}

// ShortYear returns the last two digits of "YYYY".
func ShortYear(year string) string {
	if len(year) < 4 {
		return year
	}
	return year[2:4]
}

// =============================================================================
// KEY PARSING
// =============================================================================

// ParseMonthKey parses "YYYY-MM".
func ParseMonthKey(key string) (time.Time, error) {
	if len(key) != len(monthLayout) {
		return time.Time{}, &SelectionError{Granularity: GranularityMonthly, Key: key, Err: ErrInvalidPeriodKey}
	}
	t, err := time.Parse(monthLayout, key)
	if err != nil {
		return time.Time{}, &SelectionError{Granularity: GranularityMonthly, Key: key, Err: ErrInvalidPeriodKey}
	}
	return t, nil
}

// ParseWeekKey parses a week-ending date "YYYY-MM-DD" (UTC midnight).
func ParseWeekKey(key string) (time.Time, error) {
	if len(key) != len(weekLayout) {
		return time.Time{}, &SelectionError{Granularity: GranularityWeekly, Key: key, Err: ErrInvalidPeriodKey}
	}
	t, err := time.Parse(weekLayout, key)
	if err != nil {
		return time.Time{}, &SelectionError{Granularity: GranularityWeekly, Key: key, Err: ErrInvalidPeriodKey}
	}
	return t, nil
}

// WeekKey formats a date as a week key.
func WeekKey(t time.Time) PeriodKey {
	return PeriodKey(t.Format(weekLayout))
}

// =============================================================================
// LABELS
// =============================================================================

// MonthLabel renders "Jan 2025".
func MonthLabel(key PeriodKey) string {
	return MonthName(key.Month()) + " " + key.Year()
}

// MonthTrendLabel renders "Jan '25".
func MonthTrendLabel(key PeriodKey) string {
	return MonthName(key.Month()) + " '" + ShortYear(key.Year())
}

// WeekLabel renders "Jun 15, '25". Unparseable keys are returned as is.
func WeekLabel(key PeriodKey) string {
	t, err := ParseWeekKey(string(key))
	if err != nil {
		return string(key)
	}
	return MonthNames[t.Month()-1] + " " + strconv.Itoa(t.Day()) + ", '" + ShortYear(strconv.Itoa(t.Year()))
}

// weekTrendLabel renders "Jun 15".
func weekTrendLabel(key PeriodKey) string {
	t, err := ParseWeekKey(string(key))
	if err != nil {
		return string(key)
	}
	return MonthNames[t.Month()-1] + " " + strconv.Itoa(t.Day())
}

// =============================================================================
// WEEK SELECTION
// =============================================================================

// AvailableWeeks returns the sorted week keys no older than two years before
// the latest week.
func AvailableWeeks(weekly RawSeries) []PeriodKey {
	sorted := SortedKeys(weekly)
	if len(sorted) == 0 {
		return sorted
	}
	latest, err := ParseWeekKey(string(sorted[len(sorted)-1]))
	if err != nil {
		return sorted
	}
	cutoff := WeekKey(latest.AddDate(-availableWeeksYears, 0, 0))
	out := make([]PeriodKey, 0, len(sorted))
	for _, k := range sorted {
		if k >= cutoff {
			out = append(out, k)
		}
	}
	return out
}
