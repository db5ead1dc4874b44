/*
projection.go - Straight-line pace projections

PURPOSE:
  Turns a partial window into an end-of-period estimate and compares it with
  the full prior-year baseline.

MULTIPLIERS (annualization):
  weekly     x52
  monthly    x12
  quarterly  x12/monthsWithData     (empty window: x4, flagged approximate)
  ytd        x12/comparableMonths   (empty window: x1, flagged approximate)

  QEP (quarter-end pace) uses x3/monthsWithData on the quarter's total.

PACE:
  pace% = (projected - fullPrior) / fullPrior * 100, null when fullPrior is 0.

STRAIGHT-LINE:
  Every projection assumes a uniform run-rate across the window. This is an
  approximation, not a seasonal forecast, and is kept as such.

METRIC-SHAPE AGNOSTIC:
  Multiplier.Apply works on any decimal, ApplyRecord on any dollars/units
  pair, so the same engine serves whole-retailer totals and per-product,
  per-category or per-brand rows.

SEE ALSO:
  - slice.go: fills TimeSlice.Projection for quarterly and YTD slices
  - retail/performance.go: applies the multiplier per row
*/
package generic

import "github.com/shopspring/decimal"

// =============================================================================
// MULTIPLIER - Rational annualization factor
// =============================================================================

// Multiplier is Num/Den kept as a fraction so that x*12/3 stays exact.
type Multiplier struct {
	Num int64
	Den int64

	// Approximate is set when the window was empty and a default was used.
	Approximate bool
}

// MultiplierFor returns the annualization multiplier for a granularity.
func MultiplierFor(g Granularity, monthsWithData, comparableMonths int) Multiplier {
	switch g {
	case GranularityWeekly:
		return Multiplier{Num: 52, Den: 1}
	case GranularityMonthly:
		return Multiplier{Num: 12, Den: 1}
	case GranularityQuarterly:
		if monthsWithData > 0 {
			return Multiplier{Num: 12, Den: int64(monthsWithData)}
		}
		return Multiplier{Num: 4, Den: 1, Approximate: true}
	case GranularityYTD:
		if comparableMonths > 0 {
			return Multiplier{Num: 12, Den: int64(comparableMonths)}
		}
		return Multiplier{Num: 1, Den: 1, Approximate: true}
	default:
		return Multiplier{Num: 1, Den: 1, Approximate: true}
	}
}

// Apply scales v by the multiplier.
func (m Multiplier) Apply(v decimal.Decimal) decimal.Decimal {
	if m.Den == 0 {
		return v
	}
	return v.Mul(decimal.NewFromInt(m.Num)).Div(decimal.NewFromInt(m.Den))
}

// ApplyRecord scales both metrics of a record.
func (m Multiplier) ApplyRecord(r MetricRecord) MetricRecord {
	return MetricRecord{Dollars: m.Apply(r.Dollars), Units: m.Apply(r.Units)}
}

// Decimal returns the multiplier as a decimal value.
func (m Multiplier) Decimal() decimal.Decimal {
	if m.Den == 0 {
		return decimal.NewFromInt(m.Num)
	}
	return decimal.NewFromInt(m.Num).Div(decimal.NewFromInt(m.Den))
}

// quarterPace scales a partial quarter to three months.
func quarterPace(monthsWithData int) Multiplier {
	if monthsWithData <= 0 {
		return Multiplier{Num: 0, Den: 1, Approximate: true}
	}
	return Multiplier{Num: 3, Den: int64(monthsWithData)}
}

// =============================================================================
// PROJECTION - Pace figures attached to quarterly and YTD slices
// =============================================================================

// Projection holds the pace figures of a slice.
//
//	QEP is set only for quarterly slices.
//	YEP is the annualized projection (both quarterly and YTD).
//	Pace compares QEP (quarterly) or YEP (YTD) with the full prior window.
type Projection struct {
	Multiplier Multiplier

	QEP *MetricRecord
	YEP MetricRecord

	PaceDollarsPct Pct
	PaceUnitsPct   Pct
}

// QEPDollars returns the quarter-end pace in dollars (zero when absent).
func (p Projection) QEPDollars() decimal.Decimal {
	if p.QEP == nil {
		return decimal.Zero
	}
	return p.QEP.Dollars
}

// QEPUnits returns the quarter-end pace in units (zero when absent).
func (p Projection) QEPUnits() decimal.Decimal {
	if p.QEP == nil {
		return decimal.Zero
	}
	return p.QEP.Units
}

// PacePercent compares a projection with its full prior baseline.
func PacePercent(projected, fullPrior decimal.Decimal) Pct {
	return PositiveBaseChange(projected, fullPrior)
}

// ProjectQuarter computes QEP, YEP and pace for a quarter.
func ProjectQuarter(current, fullPrior Totals, monthsWithData int) *Projection {
	qep := quarterPace(monthsWithData).ApplyRecord(current.Record())
	mult := MultiplierFor(GranularityQuarterly, monthsWithData, 0)
	return &Projection{
		Multiplier:     mult,
		QEP:            &qep,
		YEP:            mult.ApplyRecord(current.Record()),
		PaceDollarsPct: PacePercent(qep.Dollars, fullPrior.Dollars),
		PaceUnitsPct:   PacePercent(qep.Units, fullPrior.Units),
	}
}

// ProjectYear computes YEP and pace for a year-to-date window.
func ProjectYear(current, fullPrior Totals, comparableMonths int) *Projection {
	mult := MultiplierFor(GranularityYTD, 0, comparableMonths)
	yep := MetricRecord{Dollars: decimal.Zero, Units: decimal.Zero}
	if comparableMonths > 0 {
		yep = mult.ApplyRecord(current.Record())
	}
	return &Projection{
		Multiplier:     mult,
		YEP:            yep,
		PaceDollarsPct: PacePercent(yep.Dollars, fullPrior.Dollars),
		PaceUnitsPct:   PacePercent(yep.Units, fullPrior.Units),
	}
}
