package generic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/pos-analytics/generic"
)

func TestSumOverKeys_AccumulatesPerUPC(t *testing.T) {
	series := generic.RawSeries{
		"2025-01": {"A": rec(10, 1), "B": rec(5, 2)},
		"2025-02": {"A": rec(20, 3)},
	}

	got := generic.SumOverKeys(series, []generic.PeriodKey{"2025-01", "2025-02", "2025-03"})

	assert.True(t, got["A"].Equal(rec(30, 4)))
	assert.True(t, got["B"].Equal(rec(5, 2)))
}

func TestSumOverKeys_Additive(t *testing.T) {
	// GIVEN: Two disjoint key sets
	// WHEN: Summing their union vs summing each and adding
	// THEN: Results are identical element-wise
	series := generic.RawSeries{
		"2025-01": {"A": rec(10.25, 1), "B": rec(3, 1)},
		"2025-02": {"A": rec(0.5, 2), "C": rec(7, 7)},
		"2025-03": {"B": rec(1.1, 1)},
	}
	keysA := []generic.PeriodKey{"2025-01"}
	keysB := []generic.PeriodKey{"2025-02", "2025-03"}

	union := generic.SumOverKeys(series, append(append([]generic.PeriodKey{}, keysA...), keysB...))
	parts := generic.AddPeriodMaps(generic.SumOverKeys(series, keysA), generic.SumOverKeys(series, keysB))

	assert.Len(t, parts, len(union))
	for upc, m := range union {
		assert.True(t, m.Equal(parts[upc]), "upc %s", upc)
	}
}

func TestSumOverKeys_EmptyInput(t *testing.T) {
	got := generic.SumOverKeys(nil, []generic.PeriodKey{"2025-01"})

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestReduceToScalar_CountsOnlyActiveProducts(t *testing.T) {
	got := generic.ReduceToScalar(generic.PeriodMap{
		"A": rec(0, 0),
		"B": rec(5, 0),
	})

	assert.Equal(t, 1, got.ProductCount)
	assertDecimal(t, 5, got.Dollars)
	assertDecimal(t, 0, got.Units)
}

func TestReduceToScalar_UnitsOnlyProductIsActive(t *testing.T) {
	got := generic.ReduceToScalar(generic.PeriodMap{"A": rec(0, 3)})

	assert.Equal(t, 1, got.ProductCount)
}

func TestReduceToScalar_Nil(t *testing.T) {
	got := generic.ReduceToScalar(nil)

	assert.Equal(t, 0, got.ProductCount)
	assert.True(t, got.Dollars.IsZero())
}

func TestDetectPrimaryMetric(t *testing.T) {
	t.Run("units when recent periods carry no dollars", func(t *testing.T) {
		series := generic.RawSeries{
			"2024-12": {"A": rec(500, 5)},
			"2025-01": {"A": rec(0, 4)},
			"2025-02": {"A": rec(0, 6)},
			"2025-03": {"A": rec(0, 2), "B": rec(0, 1)},
		}
		assert.Equal(t, generic.MetricUnits, generic.DetectPrimaryMetric(series))
	})

	t.Run("dollars when any recent period has dollars", func(t *testing.T) {
		series := generic.RawSeries{
			"2025-01": {"A": rec(0, 4)},
			"2025-02": {"A": rec(1, 6)},
		}
		assert.Equal(t, generic.MetricDollars, generic.DetectPrimaryMetric(series))
	})

	t.Run("empty series is units", func(t *testing.T) {
		assert.Equal(t, generic.MetricUnits, generic.DetectPrimaryMetric(nil))
	})
}

func TestRollupBy(t *testing.T) {
	brands := map[generic.UPC]string{"A": "Acme", "B": "Acme", "C": "Zeta"}
	pm := generic.PeriodMap{"A": rec(1, 1), "B": rec(2, 2), "C": rec(4, 4), "D": rec(8, 8)}

	got := generic.RollupBy(pm, func(u generic.UPC) string { return brands[u] })

	assert.True(t, got["Acme"].Equal(rec(3, 3)))
	assert.True(t, got["Zeta"].Equal(rec(4, 4)))
	assert.True(t, got[""].Equal(rec(8, 8)))
}
