package generic

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// =============================================================================
// PERIOD KEY - The canonical identifier of one elementary time bucket
// =============================================================================

// PeriodKey identifies one elementary bucket.
//
// Two families share the type:
//   - Monthly: "YYYY-MM"
//   - Weekly:  "YYYY-MM-DD" (week-ending date)
//
// Keys are fixed width and zero padded, so plain string order IS chronological
// order. Everything in this package relies on that.
type PeriodKey string

// MonthKey builds "YYYY-MM" from a year string and a two-digit month.
func MonthKey(year, mm string) PeriodKey {
	return PeriodKey(year + "-" + mm)
}

// Year returns "YYYY" (empty for keys that are too short).
func (k PeriodKey) Year() string {
	if len(k) < 4 {
		return ""
	}
	return string(k[:4])
}

// Month returns "MM" (empty for keys that are too short).
func (k PeriodKey) Month() string {
	if len(k) < 7 {
		return ""
	}
	return string(k[5:7])
}

// Quarter returns the calendar quarter of the key's month.
func (k PeriodKey) Quarter() Quarter {
	return QuarterOf(k.Month())
}

func (k PeriodKey) String() string { return string(k) }

// =============================================================================
// QUARTERS
// =============================================================================

type Quarter string

const (
	Q1 Quarter = "Q1"
	Q2 Quarter = "Q2"
	Q3 Quarter = "Q3"
	Q4 Quarter = "Q4"
)

// AllQuarters in calendar order.
var AllQuarters = []Quarter{Q1, Q2, Q3, Q4}

var quarterByMonth = map[string]Quarter{
	"01": Q1, "02": Q1, "03": Q1,
	"04": Q2, "05": Q2, "06": Q2,
	"07": Q3, "08": Q3, "09": Q3,
	"10": Q4, "11": Q4, "12": Q4,
}

var monthsByQuarter = map[Quarter][]string{
	Q1: {"01", "02", "03"},
	Q2: {"04", "05", "06"},
	Q3: {"07", "08", "09"},
	Q4: {"10", "11", "12"},
}

// QuarterOf maps a two-digit month to its quarter. Unknown months map to Q1.
func QuarterOf(mm string) Quarter {
	if q, ok := quarterByMonth[mm]; ok {
		return q
	}
	return Q1
}

// Months returns the quarter's three months ("01".."12"); nil for an unknown quarter.
func (q Quarter) Months() []string {
	return monthsByQuarter[q]
}

// Number returns 1..4, or 0 for an unknown quarter.
func (q Quarter) Number() int {
	for i, c := range AllQuarters {
		if c == q {
			return i + 1
		}
	}
	return 0
}

// Valid reports whether q is one of Q1..Q4.
func (q Quarter) Valid() bool { return q.Number() > 0 }

// Prev returns the preceding quarter and whether it wraps into the prior year.
func (q Quarter) Prev() (prev Quarter, wraps bool) {
	n := q.Number()
	if n <= 1 {
		return Q4, true
	}
	return AllQuarters[n-2], false
}

// QuarterKey formats "YYYY-QN".
func QuarterKey(year string, q Quarter) string {
	return year + "-" + string(q)
}

// ParseQuarterKey splits "YYYY-QN" into year and quarter.
func ParseQuarterKey(key string) (year string, q Quarter, err error) {
	parts := strings.SplitN(key, "-", 2)
	if len(parts) != 2 || !isYear(parts[0]) || !Quarter(parts[1]).Valid() {
		return "", "", &SelectionError{Granularity: GranularityQuarterly, Key: key, Err: ErrInvalidPeriodKey}
	}
	return parts[0], Quarter(parts[1]), nil
}

// =============================================================================
// SERIES KEY HELPERS
// =============================================================================

// SortedKeys returns every key of the series in chronological order.
func SortedKeys(series RawSeries) []PeriodKey {
	keys := make([]PeriodKey, 0, len(series))
	for k := range series {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Years returns the distinct years present, sorted ascending.
func Years(series RawSeries) []string {
	seen := make(map[string]bool)
	var years []string
	for k := range series {
		y := k.Year()
		if y == "" || seen[y] {
			continue
		}
		seen[y] = true
		years = append(years, y)
	}
	sort.Strings(years)
	return years
}

// LatestTwoYears returns the two most recent years as (older, newer).
// With a single year both values are equal, which signals "no YoY possible".
// An empty series returns ("", "").
func LatestTwoYears(series RawSeries) (older, newer string) {
	years := Years(series)
	switch len(years) {
	case 0:
		return "", ""
	case 1:
		return years[0], years[0]
	default:
		return years[len(years)-2], years[len(years)-1]
	}
}

// KeysInYear returns the sorted keys that belong to year.
func KeysInYear(series RawSeries, year string) []PeriodKey {
	if year == "" {
		return nil
	}
	var keys []PeriodKey
	for _, k := range SortedKeys(series) {
		if k.Year() == year {
			keys = append(keys, k)
		}
	}
	return keys
}

// PriorYear returns year-1 as a string, or "" when year is not numeric.
func PriorYear(year string) string {
	n, err := strconv.Atoi(year)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%04d", n-1)
}

func isYear(s string) bool {
	if len(s) != 4 {
		return false
	}
	_, err := strconv.Atoi(s)
	return err == nil
}

// =============================================================================
// SELECTION LISTS
// =============================================================================

// AvailableMonths lists the selectable months: both of the latest two years,
// or every month when the series spans a single year.
func AvailableMonths(series RawSeries) []PeriodKey {
	older, newer := LatestTwoYears(series)
	sorted := SortedKeys(series)
	if older == newer {
		return sorted
	}
	var out []PeriodKey
	for _, k := range sorted {
		if y := k.Year(); y == older || y == newer {
			out = append(out, k)
		}
	}
	return out
}

// AvailableQuarters lists "YYYY-QN" for every quarter in the latest two years
// that has at least one month of data.
func AvailableQuarters(series RawSeries) []string {
	var out []string
	for _, year := range latestYears(series) {
		for _, q := range AllQuarters {
			if len(presentQuarterKeys(series, year, q)) > 0 {
				out = append(out, QuarterKey(year, q))
			}
		}
	}
	return out
}

// latestYears returns the latest two years, or one when they coincide.
func latestYears(series RawSeries) []string {
	older, newer := LatestTwoYears(series)
	switch {
	case newer == "":
		return nil
	case older == newer:
		return []string{newer}
	default:
		return []string{older, newer}
	}
}

// presentQuarterKeys returns the quarter's month keys in year that exist in the series.
func presentQuarterKeys(series RawSeries, year string, q Quarter) []PeriodKey {
	if year == "" {
		return nil
	}
	var keys []PeriodKey
	for _, mm := range q.Months() {
		if k := MonthKey(year, mm); series.Has(k) {
			keys = append(keys, k)
		}
	}
	return keys
}
