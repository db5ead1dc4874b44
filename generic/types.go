/*
Package generic provides the core time-period aggregation engine.

PURPOSE:
  This package contains retailer-agnostic types and algorithms for turning a
  sparse, UPC-keyed time series into windowed aggregates and comparisons.
  Whether the caller is rendering a whole-retailer summary card or a single
  product row, the same engine resolves windows, sums metrics and projects
  year-end pace.

KEY CONCEPTS IN THIS FILE (types.go):
  - MetricRecord: dollars + units for one product in one period
  - PeriodMap: UPC -> MetricRecord for one elementary period
  - RawSeries: PeriodKey -> PeriodMap, the full input time series
  - Series: monthly periods plus the optional weekly periods
  - Totals: scalar reduction of a PeriodMap

DESIGN PRINCIPLES:
  1. Immutability: input series are never modified; every output map is fresh
  2. Precision: uses decimal.Decimal so sums are exact and order independent
  3. Degrade, don't fail: missing data is zero, uncomputable ratios are null
  4. No hidden state: no caches, no locks, safe to call from any goroutine

USAGE:
  series := generic.Series{Periods: posData.Periods, Weekly: posData.WeeklyPeriods}
  slice := generic.ComputeQuarterlySlice(series.Periods, "2025-Q3")
  totals := generic.ReduceToScalar(slice.CurrentData)

SEE ALSO:
  - period.go: period key model
  - aggregate.go: summation over key sets
  - slice.go: the four slice computers
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// METRIC RECORD - Dollars and units for one product in one period
// =============================================================================

// UPC identifies a product.
type UPC string

// MetricRecord is the atomic measured quantity. Missing JSON fields decode to zero.
type MetricRecord struct {
	Dollars decimal.Decimal `json:"dollars"`
	Units   decimal.Decimal `json:"units"`
}

// NewRecord builds a record from float values (test and fixture helper).
func NewRecord(dollars, units float64) MetricRecord {
	return MetricRecord{Dollars: decimal.NewFromFloat(dollars), Units: decimal.NewFromFloat(units)}
}

func (m MetricRecord) Add(o MetricRecord) MetricRecord {
	return MetricRecord{Dollars: m.Dollars.Add(o.Dollars), Units: m.Units.Add(o.Units)}
}

func (m MetricRecord) Equal(o MetricRecord) bool {
	return m.Dollars.Equal(o.Dollars) && m.Units.Equal(o.Units)
}

// IsActive reports whether the product sold anything (dollars or units > 0).
func (m MetricRecord) IsActive() bool {
	return m.Dollars.IsPositive() || m.Units.IsPositive()
}

// Value returns the requested metric.
func (m MetricRecord) Value(metric Metric) decimal.Decimal {
	if metric == MetricUnits {
		return m.Units
	}
	return m.Dollars
}

// =============================================================================
// METRIC - Which measure a retailer reports primarily
// =============================================================================

type Metric string

const (
	MetricDollars Metric = "dollars"
	MetricUnits   Metric = "units"
)

// =============================================================================
// PERIOD MAP / SERIES
// =============================================================================

// PeriodMap is one elementary period's product universe.
// A UPC absent from the map is equivalent to a zero record.
type PeriodMap map[UPC]MetricRecord

// Get returns the record for upc, or a zero record.
func (pm PeriodMap) Get(upc UPC) MetricRecord {
	return pm[upc]
}

// Clone returns an independent copy. A nil map clones to an empty map.
func (pm PeriodMap) Clone() PeriodMap {
	out := make(PeriodMap, len(pm))
	for upc, m := range pm {
		out[upc] = m
	}
	return out
}

// RawSeries is the complete input time series for one retailer, keyed by
// monthly ("YYYY-MM") or weekly ("YYYY-MM-DD") period keys.
type RawSeries map[PeriodKey]PeriodMap

// Has reports whether key is present in the series.
func (rs RawSeries) Has(key PeriodKey) bool {
	_, ok := rs[key]
	return ok
}

// Series bundles the monthly series with the optional weekly one.
type Series struct {
	Periods RawSeries
	Weekly  RawSeries
}

// HasWeekly reports whether any weekly period is present.
func (s Series) HasWeekly() bool {
	return len(s.Weekly) > 0
}

// =============================================================================
// TOTALS - Scalar reduction of a PeriodMap
// =============================================================================

type Totals struct {
	Dollars      decimal.Decimal
	Units        decimal.Decimal
	ProductCount int
}

// Value returns the requested metric.
func (t Totals) Value(metric Metric) decimal.Decimal {
	if metric == MetricUnits {
		return t.Units
	}
	return t.Dollars
}

// Record returns the totals as a MetricRecord.
func (t Totals) Record() MetricRecord {
	return MetricRecord{Dollars: t.Dollars, Units: t.Units}
}
