package generic

import (
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
)

// =============================================================================
// QUARTER OVERVIEW - One card per quarter of the two latest years
// =============================================================================

// QuarterSummary is one cell of the quarter grid, expressed in the
// retailer's primary metric.
type QuarterSummary struct {
	Quarter         string          `json:"quarter"`
	DisplayLabel    string          `json:"displayLabel"`
	CurrentTotal    decimal.Decimal `json:"currentTotal"`
	ComparisonTotal decimal.Decimal `json:"comparisonTotal"`
	QEP             decimal.Decimal `json:"qep"`
	MonthsWithData  int             `json:"monthsWithData"`
	IsComplete      bool            `json:"isComplete"`
	YoYPct          Pct             `json:"yoyPct"`
	PacePct         Pct             `json:"pacePct"`
	MonthCount      string          `json:"monthCount"`
	ProductCount    int             `json:"productCount"`
}

// QuarterOverview builds one summary per quarter of the latest two years
// that has at least one month of data, in chronological order.
func QuarterOverview(series RawSeries) []QuarterSummary {
	metric := DetectPrimaryMetric(series)
	out := []QuarterSummary{}
	for _, qk := range AvailableQuarters(series) {
		s := ComputeQuarterlySlice(series, qk)
		cur := s.CurrentTotals()
		comp := s.ComparisonTotals()
		full := s.FullPrevYearTotals()

		var qep decimal.Decimal
		if s.Projection != nil {
			qep = s.Projection.QEP.Value(metric)
		}
		out = append(out, QuarterSummary{
			Quarter:         qk,
			DisplayLabel:    s.PeriodLabel,
			CurrentTotal:    cur.Value(metric),
			ComparisonTotal: comp.Value(metric),
			QEP:             qep,
			MonthsWithData:  s.MonthsWithData,
			IsComplete:      s.IsComplete,
			YoYPct:          PositiveBaseChange(cur.Value(metric), comp.Value(metric)),
			PacePct:         PacePercent(qep, full.Value(metric)),
			MonthCount:      strconv.Itoa(s.MonthsWithData) + " of 3 months",
			ProductCount:    cur.ProductCount,
		})
	}
	return out
}

// =============================================================================
// PRIOR-SEQUENTIAL LOOKUP - MoM / QoQ / WoW baselines
// =============================================================================

// PriorSequential returns the period immediately preceding the selection:
// the previous week or month in sorted order, or the previous calendar
// quarter. It returns nil when there is none; ytd has no sequential baseline.
func PriorSequential(series Series, g Granularity, key string) PeriodMap {
	switch g {
	case GranularityWeekly:
		return previousInOrder(series.Weekly, PeriodKey(key))
	case GranularityMonthly:
		return previousInOrder(series.Periods, PeriodKey(key))
	case GranularityQuarterly:
		year, q, err := ParseQuarterKey(key)
		if err != nil {
			return nil
		}
		prev, wraps := q.Prev()
		if wraps {
			year = PriorYear(year)
		}
		keys := presentQuarterKeys(series.Periods, year, prev)
		if len(keys) == 0 {
			return nil
		}
		return SumOverKeys(series.Periods, keys)
	}
	return nil
}

func previousInOrder(series RawSeries, key PeriodKey) PeriodMap {
	sorted := SortedKeys(series)
	for i, k := range sorted {
		if k != key {
			continue
		}
		if i == 0 {
			return nil
		}
		return series[sorted[i-1]].Clone()
	}
	return nil
}

// FullPriorYearProducts sums, per UPC, every period of the year before the
// latest one. It returns nil when the series spans a single year.
func FullPriorYearProducts(series RawSeries) PeriodMap {
	older, newer := LatestTwoYears(series)
	if older == newer {
		return nil
	}
	return SumOverKeys(series, KeysInYear(series, older))
}

// =============================================================================
// PRODUCT TREND ROWS - Heatmap and sparkline data
// =============================================================================

// HeatmapMonths is how many trailing months the product heatmap shows.
const HeatmapMonths = 12

// flatTrendThreshold: a half-over-half move under 2% of the first half is flat.
var flatTrendThreshold = decimal.NewFromFloat(0.02)

type TrendDirection string

const (
	TrendUp   TrendDirection = "up"
	TrendDown TrendDirection = "down"
	TrendFlat TrendDirection = "flat"
)

// ProductTrendRow is one product across the trailing months.
type ProductTrendRow struct {
	UPC     UPC
	Months  []PeriodKey
	Values  []decimal.Decimal
	Changes []Pct // month over month, null for the first month or a zero base
	Latest  decimal.Decimal
	Average decimal.Decimal
	Trend   TrendDirection
}

// ProductTrendRows builds one row per product sold in the trailing twelve
// months. Products whose total over the window is zero are left out. Rows
// are ordered by UPC.
func ProductTrendRows(series RawSeries, metric Metric) []ProductTrendRow {
	months := SortedKeys(series)
	if len(months) > HeatmapMonths {
		months = months[len(months)-HeatmapMonths:]
	}

	seen := make(map[UPC]bool)
	var upcs []UPC
	for _, k := range months {
		for upc := range series[k] {
			if !seen[upc] {
				seen[upc] = true
				upcs = append(upcs, upc)
			}
		}
	}
	sort.Slice(upcs, func(i, j int) bool { return upcs[i] < upcs[j] })

	rows := []ProductTrendRow{}
	for _, upc := range upcs {
		row := ProductTrendRow{UPC: upc, Months: months}
		total := decimal.Zero
		for i, k := range months {
			v := series[k].Get(upc).Value(metric)
			change := NullPct
			if i > 0 {
				change = PositiveBaseChange(v, row.Values[i-1])
			}
			row.Values = append(row.Values, v)
			row.Changes = append(row.Changes, change)
			total = total.Add(v)
		}
		if total.IsZero() {
			continue
		}
		row.Latest = row.Values[len(row.Values)-1]
		row.Average = total.Div(decimal.NewFromInt(int64(len(months))))
		row.Trend = trendDirection(row.Values)
		rows = append(rows, row)
	}
	return rows
}

// trendDirection compares the averages of the two halves of values.
func trendDirection(values []decimal.Decimal) TrendDirection {
	if len(values) < 2 {
		return TrendFlat
	}
	half := len(values) / 2
	first, second := mean(values[:half]), mean(values[half:])
	diff := second.Sub(first)
	switch {
	case diff.Abs().LessThan(first.Mul(flatTrendThreshold)):
		return TrendFlat
	case diff.IsPositive():
		return TrendUp
	default:
		return TrendDown
	}
}

func mean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(len(values))))
}
