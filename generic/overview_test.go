package generic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/pos-analytics/generic"
)

func twoYearSeries() generic.RawSeries {
	s := generic.RawSeries{}
	for _, mm := range []string{"01", "02", "03", "04", "05", "06", "07", "08", "09", "10", "11", "12"} {
		s[generic.MonthKey("2024", mm)] = generic.PeriodMap{"A": rec(100, 10), "B": rec(50, 5)}
	}
	s["2025-01"] = generic.PeriodMap{"A": rec(150, 15), "B": rec(50, 5)}
	s["2025-02"] = generic.PeriodMap{"A": rec(150, 15), "B": rec(0, 0)}
	return s
}

// =============================================================================
// QUARTER OVERVIEW
// =============================================================================

func TestQuarterOverview_OneEntryPerQuarterWithData(t *testing.T) {
	got := generic.QuarterOverview(twoYearSeries())

	require.Len(t, got, 5)
	assert.Equal(t, "2024-Q1", got[0].Quarter)
	assert.Equal(t, "2025-Q1", got[4].Quarter)
	assert.Equal(t, "Q1 2025", got[4].DisplayLabel)
}

func TestQuarterOverview_PartialQuarter(t *testing.T) {
	// GIVEN: 2025 has Jan and Feb; 2024 is complete
	// WHEN: Building the overview
	// THEN: 2025-Q1 compares Jan+Feb against Jan+Feb and paces against all of Q1 2024
	got := generic.QuarterOverview(twoYearSeries())
	q := got[4]

	assertDecimal(t, 350, q.CurrentTotal)
	assertDecimal(t, 300, q.ComparisonTotal)
	assertDecimal(t, 525, q.QEP)
	assert.Equal(t, 2, q.MonthsWithData)
	assert.False(t, q.IsComplete)
	assert.Equal(t, "2 of 3 months", q.MonthCount)
	assert.Equal(t, 2, q.ProductCount)
	assertPct(t, 16.6666, q.YoYPct)
	assertPct(t, 16.6666, q.PacePct)
}

func TestQuarterOverview_FirstYearHasNoComparison(t *testing.T) {
	got := generic.QuarterOverview(twoYearSeries())

	assert.False(t, got[0].YoYPct.Valid)
	assert.False(t, got[0].PacePct.Valid)
	assert.True(t, got[0].IsComplete)
}

func TestQuarterOverview_Empty(t *testing.T) {
	got := generic.QuarterOverview(nil)

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

// =============================================================================
// PRIOR SEQUENTIAL
// =============================================================================

func TestPriorSequential(t *testing.T) {
	series := generic.Series{
		Periods: twoYearSeries(),
		Weekly: generic.RawSeries{
			"2025-01-04": {"A": rec(1, 1)},
			"2025-01-11": {"A": rec(2, 2)},
		},
	}

	t.Run("monthly previous key", func(t *testing.T) {
		got := generic.PriorSequential(series, generic.GranularityMonthly, "2025-02")
		assert.True(t, got["A"].Equal(rec(150, 15)))
	})

	t.Run("monthly first key", func(t *testing.T) {
		assert.Nil(t, generic.PriorSequential(series, generic.GranularityMonthly, "2024-01"))
	})

	t.Run("monthly absent key", func(t *testing.T) {
		assert.Nil(t, generic.PriorSequential(series, generic.GranularityMonthly, "2026-01"))
	})

	t.Run("quarterly wraps to prior year Q4", func(t *testing.T) {
		got := generic.PriorSequential(series, generic.GranularityQuarterly, "2025-Q1")
		assert.True(t, got["A"].Equal(rec(300, 30)))
	})

	t.Run("quarterly without data", func(t *testing.T) {
		assert.Nil(t, generic.PriorSequential(series, generic.GranularityQuarterly, "2024-Q1"))
	})

	t.Run("weekly", func(t *testing.T) {
		got := generic.PriorSequential(series, generic.GranularityWeekly, "2025-01-11")
		assert.True(t, got["A"].Equal(rec(1, 1)))
	})

	t.Run("ytd has none", func(t *testing.T) {
		assert.Nil(t, generic.PriorSequential(series, generic.GranularityYTD, ""))
	})
}

func TestFullPriorYearProducts(t *testing.T) {
	got := generic.FullPriorYearProducts(twoYearSeries())
	assert.True(t, got["A"].Equal(rec(1200, 120)))
	assert.True(t, got["B"].Equal(rec(600, 60)))

	assert.Nil(t, generic.FullPriorYearProducts(monthlyRun("A", rec(1, 1), "2025-01")))
}

// =============================================================================
// PRODUCT TREND ROWS
// =============================================================================

func TestProductTrendRows(t *testing.T) {
	series := generic.RawSeries{
		"2025-01": {"A": rec(100, 1), "Z": rec(0, 0)},
		"2025-02": {"A": rec(0, 0)},
		"2025-03": {"A": rec(50, 1)},
		"2025-04": {"A": rec(100, 1)},
	}

	rows := generic.ProductTrendRows(series, generic.MetricDollars)

	require.Len(t, rows, 1, "zero-total products are dropped")
	row := rows[0]
	assert.Equal(t, generic.UPC("A"), row.UPC)
	require.Len(t, row.Changes, 4)
	assert.False(t, row.Changes[0].Valid, "first month has no prior")
	assertPct(t, -100, row.Changes[1])
	assert.False(t, row.Changes[2].Valid, "zero base")
	assertPct(t, 100, row.Changes[3])
	assertDecimal(t, 100, row.Latest)
	assertDecimal(t, 62.5, row.Average)
	assert.Equal(t, generic.TrendUp, row.Trend)
}

func TestProductTrendRows_KeepsTrailingTwelveMonths(t *testing.T) {
	rows := generic.ProductTrendRows(twoYearSeries(), generic.MetricUnits)

	require.Len(t, rows, 2)
	assert.Len(t, rows[0].Months, 12)
	assert.Equal(t, generic.PeriodKey("2024-03"), rows[0].Months[0])
	assert.Equal(t, generic.TrendUp, rows[0].Trend)
	assert.Equal(t, generic.TrendDown, rows[1].Trend)
}

func TestProductTrendRows_FlatWithinTwoPercent(t *testing.T) {
	series := generic.RawSeries{
		"2025-01": {"A": rec(100, 1)},
		"2025-02": {"A": rec(101, 1)},
	}

	rows := generic.ProductTrendRows(series, generic.MetricDollars)

	require.Len(t, rows, 1)
	assert.Equal(t, generic.TrendFlat, rows[0].Trend)
}
