/*
slice.go - The four slice computers

PURPOSE:
  A TimeSlice is what every view consumes: the selected window's per-UPC
  data, the comparable year-ago window, the unconstrained prior baseline,
  a chart series and, for quarterly/YTD, the pace projection.

SKELETON (shared by all granularities):
  1. Resolve current / comparable / full-prior key sets (comparability.go)
  2. Aggregate each set (aggregate.go)
  3. Build the trend series
  4. Count months, decide completeness
  5. Project (quarterly and YTD only)
  6. Label the window

GRANULARITY RULES:
  monthly    trend = every period, sorted
  quarterly  trend = every month of the selected year and the year before
  ytd        trend = every month of the two latest years
  weekly     trend = the 12 weeks ending at the selected week

EMPTY INPUT:
  A nil series or an unknown selection yields a slice with empty (non-nil)
  maps, no trend and null percentages. It never fails.
*/
package generic

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// GRANULARITY
// =============================================================================

type Granularity string

const (
	GranularityWeekly    Granularity = "weekly"
	GranularityMonthly   Granularity = "monthly"
	GranularityQuarterly Granularity = "quarterly"
	GranularityYTD       Granularity = "ytd"
)

// Granularities in display order.
var Granularities = []Granularity{GranularityWeekly, GranularityMonthly, GranularityQuarterly, GranularityYTD}

// ParseGranularity accepts the four names case-insensitively.
func ParseGranularity(s string) (Granularity, error) {
	g := Granularity(strings.ToLower(strings.TrimSpace(s)))
	switch g {
	case GranularityWeekly, GranularityMonthly, GranularityQuarterly, GranularityYTD:
		return g, nil
	}
	return "", &SelectionError{Granularity: Granularity(s), Err: ErrUnknownGranularity}
}

// =============================================================================
// TIME SLICE
// =============================================================================

// TrendPoint is one point of a slice's chart series.
type TrendPoint struct {
	Period       PeriodKey       `json:"period"`
	Label        string          `json:"label"`
	Year         string          `json:"year"`
	Month        string          `json:"month"`
	Dollars      decimal.Decimal `json:"dollars"`
	Units        decimal.Decimal `json:"units"`
	ProductCount int             `json:"productCount"`
}

// TimeSlice is the derived view of one (granularity, selection) pair.
type TimeSlice struct {
	Granularity  Granularity
	SelectionKey string

	CurrentData      PeriodMap
	ComparisonData   PeriodMap
	FullPrevYearData PeriodMap
	TrendData        []TrendPoint

	PeriodLabel      string
	ComparableMonths int
	MonthsWithData   int
	IsComplete       bool

	CurrentYear string
	PriorYear   string

	// Keys behind each window, kept for drill-down and labelling.
	Keys KeySets

	// Projection is nil for weekly and monthly slices.
	Projection *Projection
}

// CurrentTotals reduces the current window.
func (s TimeSlice) CurrentTotals() Totals { return ReduceToScalar(s.CurrentData) }

// ComparisonTotals reduces the comparable year-ago window.
func (s TimeSlice) ComparisonTotals() Totals { return ReduceToScalar(s.ComparisonData) }

// FullPrevYearTotals reduces the pace baseline.
func (s TimeSlice) FullPrevYearTotals() Totals { return ReduceToScalar(s.FullPrevYearData) }

// YoY returns the whole-slice year-over-year change for metric.
func (s TimeSlice) YoY(metric Metric) Pct {
	return PercentChange(s.CurrentTotals().Value(metric), s.ComparisonTotals().Value(metric))
}

// ProductYoY returns the year-over-year change of one product.
func (s TimeSlice) ProductYoY(upc UPC, metric Metric) Pct {
	return PercentChange(s.CurrentData.Get(upc).Value(metric), s.ComparisonData.Get(upc).Value(metric))
}

// Multiplier is the annualization factor rows of this slice are projected with.
func (s TimeSlice) Multiplier() Multiplier {
	return MultiplierFor(s.Granularity, s.MonthsWithData, s.ComparableMonths)
}

// HasComparison reports whether any year-ago data was found.
func (s TimeSlice) HasComparison() bool { return len(s.ComparisonData) > 0 }

func emptySlice(g Granularity, key string) TimeSlice {
	return TimeSlice{
		Granularity:      g,
		SelectionKey:     key,
		CurrentData:      PeriodMap{},
		ComparisonData:   PeriodMap{},
		FullPrevYearData: PeriodMap{},
		TrendData:        []TrendPoint{},
	}
}

// =============================================================================
// DISPATCH
// =============================================================================

// ComputeSlice routes to the computer for g. The key is ignored for ytd.
// Only an unknown granularity is an error.
func ComputeSlice(series Series, g Granularity, key string) (TimeSlice, error) {
	switch g {
	case GranularityWeekly:
		return ComputeWeeklySlice(series.Weekly, PeriodKey(key)), nil
	case GranularityMonthly:
		return ComputeMonthlySlice(series.Periods, PeriodKey(key)), nil
	case GranularityQuarterly:
		return ComputeQuarterlySlice(series.Periods, key), nil
	case GranularityYTD:
		return ComputeYTDSlice(series.Periods), nil
	}
	return emptySlice(g, key), &SelectionError{Granularity: g, Key: key, Err: ErrUnknownGranularity}
}

// ValidateSelection checks that key is well formed for g.
func ValidateSelection(g Granularity, key string) error {
	switch g {
	case GranularityWeekly:
		_, err := ParseWeekKey(key)
		return err
	case GranularityMonthly:
		_, err := ParseMonthKey(key)
		return err
	case GranularityQuarterly:
		_, _, err := ParseQuarterKey(key)
		return err
	case GranularityYTD:
		return nil
	}
	return &SelectionError{Granularity: g, Key: key, Err: ErrUnknownGranularity}
}

// DefaultSelection returns the latest selectable key for g ("" when none).
func DefaultSelection(series Series, g Granularity) string {
	switch g {
	case GranularityWeekly:
		if weeks := AvailableWeeks(series.Weekly); len(weeks) > 0 {
			return string(weeks[len(weeks)-1])
		}
	case GranularityMonthly:
		if months := AvailableMonths(series.Periods); len(months) > 0 {
			return string(months[len(months)-1])
		}
	case GranularityQuarterly:
		if qs := AvailableQuarters(series.Periods); len(qs) > 0 {
			return qs[len(qs)-1]
		}
	}
	return ""
}

// =============================================================================
// MONTHLY
// =============================================================================

// ComputeMonthlySlice compares one month with the same month a year earlier.
func ComputeMonthlySlice(series RawSeries, key PeriodKey) TimeSlice {
	s := emptySlice(GranularityMonthly, string(key))
	if _, err := ParseMonthKey(string(key)); err != nil {
		return s
	}
	ks := ResolveMonthly(series, key)

	s.Keys = ks
	s.CurrentData = SumOverKeys(series, ks.Current)
	s.ComparisonData = SumOverKeys(series, ks.Comparable)
	s.FullPrevYearData = SumOverKeys(series, ks.FullPrior)
	s.TrendData = monthlyTrend(series, SortedKeys(series))
	s.PeriodLabel = MonthLabel(key)
	s.ComparableMonths = 1
	s.MonthsWithData = 1
	s.IsComplete = true
	s.CurrentYear, s.PriorYear = ks.CurrentYear, ks.PriorYear
	return s
}

// =============================================================================
// QUARTERLY
// =============================================================================

// ComputeQuarterlySlice compares the months of a quarter present in the
// selected year with the same months of the year before.
func ComputeQuarterlySlice(series RawSeries, quarterKey string) TimeSlice {
	s := emptySlice(GranularityQuarterly, quarterKey)
	year, q, err := ParseQuarterKey(quarterKey)
	if err != nil {
		return s
	}
	ks := ResolveQuarterly(series, year, q)

	s.Keys = ks
	s.CurrentData = SumOverKeys(series, ks.Current)
	s.ComparisonData = SumOverKeys(series, ks.Comparable)
	s.FullPrevYearData = SumOverKeys(series, ks.FullPrior)

	var trendKeys []PeriodKey
	trendKeys = append(trendKeys, KeysInYear(series, ks.PriorYear)...)
	trendKeys = append(trendKeys, KeysInYear(series, year)...)
	s.TrendData = monthlyTrend(series, trendKeys)

	s.PeriodLabel = string(q) + " " + year
	s.MonthsWithData = len(ks.Current)
	s.ComparableMonths = len(ks.Comparable)
	s.IsComplete = s.MonthsWithData == len(q.Months())
	s.CurrentYear, s.PriorYear = ks.CurrentYear, ks.PriorYear
	s.Projection = ProjectQuarter(s.CurrentTotals(), s.FullPrevYearTotals(), s.MonthsWithData)
	return s
}

// =============================================================================
// YTD
// =============================================================================

// ComputeYTDSlice compares the months common to the two latest years.
func ComputeYTDSlice(series RawSeries) TimeSlice {
	s := emptySlice(GranularityYTD, "")
	ks := ResolveYTD(series)

	s.Keys = ks
	s.CurrentData = SumOverKeys(series, ks.Current)
	s.ComparisonData = SumOverKeys(series, ks.Comparable)
	s.FullPrevYearData = SumOverKeys(series, ks.FullPrior)

	var trendKeys []PeriodKey
	trendKeys = append(trendKeys, ks.FullPrior...)
	trendKeys = append(trendKeys, KeysInYear(series, ks.CurrentYear)...)
	s.TrendData = monthlyTrend(series, trendKeys)

	s.MonthsWithData = len(ks.Current)
	s.ComparableMonths = len(ks.Comparable)
	if s.ComparableMonths == 0 {
		s.ComparableMonths = len(ks.Current)
	}
	s.IsComplete = s.MonthsWithData == 12
	s.CurrentYear, s.PriorYear = ks.CurrentYear, ks.PriorYear
	s.SelectionKey = ks.CurrentYear
	if len(ks.Current) > 0 {
		first, last := ks.Current[0], ks.Current[len(ks.Current)-1]
		s.PeriodLabel = ks.CurrentYear + " YTD (" + MonthName(first.Month()) + "–" + MonthName(last.Month()) + ")"
	}
	s.Projection = ProjectYear(s.CurrentTotals(), s.FullPrevYearTotals(), s.ComparableMonths)
	return s
}

// =============================================================================
// WEEKLY
// =============================================================================

// ComputeWeeklySlice compares one week with the week closest to 364 days
// earlier. The year-ago week doubles as the pace baseline.
func ComputeWeeklySlice(weekly RawSeries, key PeriodKey) TimeSlice {
	s := emptySlice(GranularityWeekly, string(key))
	if _, err := ParseWeekKey(string(key)); err != nil {
		return s
	}
	ks := ResolveWeekly(weekly, key)

	s.Keys = ks
	s.CurrentData = SumOverKeys(weekly, ks.Current)
	s.ComparisonData = SumOverKeys(weekly, ks.Comparable)
	s.FullPrevYearData = s.ComparisonData.Clone()
	s.TrendData = weeklyTrend(weekly, key)
	s.PeriodLabel = "Week ending " + WeekLabel(key)
	s.ComparableMonths = 1
	s.MonthsWithData = 1
	s.IsComplete = true
	s.CurrentYear, s.PriorYear = ks.CurrentYear, ks.PriorYear
	return s
}

// =============================================================================
// TREND BUILDERS
// =============================================================================

func monthlyTrend(series RawSeries, keys []PeriodKey) []TrendPoint {
	out := make([]TrendPoint, 0, len(keys))
	for _, k := range keys {
		out = append(out, trendPoint(series, k, MonthTrendLabel(k)))
	}
	return out
}

// weeklyTrend returns the window of WeeklyTrendWindow weeks ending at key.
// A key absent from the series has no window.
func weeklyTrend(weekly RawSeries, key PeriodKey) []TrendPoint {
	sorted := SortedKeys(weekly)
	idx := -1
	for i, k := range sorted {
		if k == key {
			idx = i
			break
		}
	}
	if idx < 0 {
		return []TrendPoint{}
	}
	start := idx - (WeeklyTrendWindow - 1)
	if start < 0 {
		start = 0
	}
	out := make([]TrendPoint, 0, idx-start+1)
	for _, k := range sorted[start : idx+1] {
		out = append(out, trendPoint(weekly, k, weekTrendLabel(k)))
	}
	return out
}

func trendPoint(series RawSeries, k PeriodKey, label string) TrendPoint {
	t := ReduceToScalar(series[k])
	return TrendPoint{
		Period:       k,
		Label:        label,
		Year:         k.Year(),
		Month:        k.Month(),
		Dollars:      t.Dollars,
		Units:        t.Units,
		ProductCount: t.ProductCount,
	}
}
