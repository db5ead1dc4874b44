package generic_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/pos-analytics/generic"
)

func TestMultiplierFor(t *testing.T) {
	tests := []struct {
		name        string
		g           generic.Granularity
		months      int
		comparable  int
		want        float64
		approximate bool
	}{
		{"weekly", generic.GranularityWeekly, 1, 1, 52, false},
		{"monthly", generic.GranularityMonthly, 1, 1, 12, false},
		{"quarterly two months", generic.GranularityQuarterly, 2, 0, 6, false},
		{"quarterly full", generic.GranularityQuarterly, 3, 3, 4, false},
		{"quarterly empty", generic.GranularityQuarterly, 0, 0, 4, true},
		{"ytd five months", generic.GranularityYTD, 5, 5, 2.4, false},
		{"ytd empty", generic.GranularityYTD, 0, 0, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := generic.MultiplierFor(tt.g, tt.months, tt.comparable)
			assertDecimal(t, tt.want, m.Decimal())
			assert.Equal(t, tt.approximate, m.Approximate)
		})
	}
}

func TestMultiplier_ApplyKeepsThirdsExact(t *testing.T) {
	// 100 over 3 months annualized: 100 * 12 / 3 = 400, no rounding drift
	m := generic.MultiplierFor(generic.GranularityQuarterly, 3, 0)

	assertDecimal(t, 400, m.Apply(decimal.NewFromInt(100)))
	assert.True(t, m.ApplyRecord(rec(100, 7)).Equal(rec(400, 28)))
}

func TestPacePercent(t *testing.T) {
	assertPct(t, 20, generic.PacePercent(decimal.NewFromInt(120), decimal.NewFromInt(100)))
	assertPct(t, -50, generic.PacePercent(decimal.NewFromInt(50), decimal.NewFromInt(100)))
	assert.False(t, generic.PacePercent(decimal.NewFromInt(50), decimal.Zero).Valid)
}

func TestProjectYear_NoMonthsHasZeroYEPAndNullPace(t *testing.T) {
	p := generic.ProjectYear(generic.Totals{}, generic.Totals{}, 0)

	assert.True(t, p.YEP.Dollars.IsZero())
	assert.True(t, p.Multiplier.Approximate)
	assert.False(t, p.PaceDollarsPct.Valid)
	assert.Nil(t, p.QEP)
}

func TestProjectQuarter_EmptyQuarterHasZeroQEP(t *testing.T) {
	full := generic.Totals{Dollars: decimal.NewFromInt(90), Units: decimal.NewFromInt(9)}

	p := generic.ProjectQuarter(generic.Totals{}, full, 0)

	require.NotNil(t, p.QEP)
	assert.True(t, p.QEPDollars().IsZero())
	assertPct(t, -100, p.PaceDollarsPct)
}

// =============================================================================
// PCT
// =============================================================================

func TestPercentChange_NullOnZeroBase(t *testing.T) {
	p := generic.PercentChange(decimal.NewFromInt(10), decimal.Zero)

	assert.False(t, p.Valid)
	assert.Nil(t, p.Float())
	assert.Equal(t, "n/a", p.String())
}

func TestPercentChange_ZeroIsNotNull(t *testing.T) {
	p := generic.PercentChange(decimal.NewFromInt(10), decimal.NewFromInt(10))

	require.True(t, p.Valid)
	require.NotNil(t, p.Float())
	assert.Equal(t, 0.0, *p.Float())
	assert.Equal(t, "0.0%", p.String())
}

func TestPositiveBaseChange_RejectsNegativeBase(t *testing.T) {
	assert.False(t, generic.PositiveBaseChange(decimal.NewFromInt(1), decimal.NewFromInt(-5)).Valid)
	assert.True(t, generic.PercentChange(decimal.NewFromInt(1), decimal.NewFromInt(-5)).Valid)
}

func TestPct_JSON(t *testing.T) {
	type row struct {
		YoY  generic.Pct `json:"yoy"`
		Pace generic.Pct `json:"pace"`
	}

	data, err := json.Marshal(row{YoY: generic.PctOf(decimal.NewFromFloat(12.5)), Pace: generic.NullPct})
	require.NoError(t, err)
	assert.JSONEq(t, `{"yoy": 12.5, "pace": null}`, string(data))

	var back row
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.YoY.Valid)
	assert.False(t, back.Pace.Valid)
}
