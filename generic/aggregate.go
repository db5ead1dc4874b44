package generic

import "github.com/shopspring/decimal"

// =============================================================================
// METRIC AGGREGATOR - Sums records across period keys
// =============================================================================

// SumOverKeys accumulates every UPC's dollars/units across the given periods
// into a fresh map. Keys missing from the series contribute nothing. The sum is
// commutative; callers are responsible for not passing a key twice.
func SumOverKeys(series RawSeries, keys []PeriodKey) PeriodMap {
	out := make(PeriodMap)
	for _, k := range keys {
		for upc, m := range series[k] {
			out[upc] = out[upc].Add(m)
		}
	}
	return out
}

// AddPeriodMaps returns the element-wise sum of a and b.
func AddPeriodMaps(a, b PeriodMap) PeriodMap {
	out := a.Clone()
	for upc, m := range b {
		out[upc] = out[upc].Add(m)
	}
	return out
}

// ReduceToScalar totals a period map. ProductCount counts only UPCs with
// positive dollars or units; zero-sales rows are not "active".
func ReduceToScalar(pm PeriodMap) Totals {
	t := Totals{Dollars: decimal.Zero, Units: decimal.Zero}
	for _, m := range pm {
		t.Dollars = t.Dollars.Add(m.Dollars)
		t.Units = t.Units.Add(m.Units)
		if m.IsActive() {
			t.ProductCount++
		}
	}
	return t
}

// RollupBy groups UPC records under the key returned by keyFn (a category,
// a brand, ...). Records for which keyFn returns "" are grouped under "".
func RollupBy(pm PeriodMap, keyFn func(UPC) string) map[string]MetricRecord {
	out := make(map[string]MetricRecord)
	for upc, m := range pm {
		k := keyFn(upc)
		out[k] = out[k].Add(m)
	}
	return out
}

// primaryMetricSample is how many trailing periods DetectPrimaryMetric inspects.
const primaryMetricSample = 3

// DetectPrimaryMetric decides whether a retailer reports dollars or only units
// by summing dollars over the last three periods. This is a heuristic: a
// retailer whose recent periods carry no prices is treated as unit-only.
func DetectPrimaryMetric(series RawSeries) Metric {
	sorted := SortedKeys(series)
	if len(sorted) > primaryMetricSample {
		sorted = sorted[len(sorted)-primaryMetricSample:]
	}
	total := decimal.Zero
	for _, k := range sorted {
		for _, m := range series[k] {
			total = total.Add(m.Dollars)
		}
	}
	if total.IsPositive() {
		return MetricDollars
	}
	return MetricUnits
}
