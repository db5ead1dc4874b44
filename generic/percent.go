package generic

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PCT - A percentage that may not be computable
// =============================================================================

var hundred = decimal.NewFromInt(100)

// Pct is a percentage change. When Valid is false the value was not
// computable (zero or absent denominator) and must render as "no data",
// which is different from a computed 0%.
type Pct struct {
	Value decimal.Decimal
	Valid bool
}

// NullPct is the "not computable" percentage.
var NullPct = Pct{}

// PctOf wraps a computed value.
func PctOf(v decimal.Decimal) Pct {
	return Pct{Value: v, Valid: true}
}

// PercentChange returns (current - base) / base * 100, or NullPct when base
// is zero. Negative bases are treated as computable.
func PercentChange(current, base decimal.Decimal) Pct {
	if base.IsZero() {
		return NullPct
	}
	return PctOf(current.Sub(base).Mul(hundred).Div(base))
}

// PositiveBaseChange is PercentChange restricted to strictly positive bases,
// the rule used for sequential and pace comparisons.
func PositiveBaseChange(current, base decimal.Decimal) Pct {
	if !base.IsPositive() {
		return NullPct
	}
	return PercentChange(current, base)
}

// Float returns the value as *float64, nil when not computable.
func (p Pct) Float() *float64 {
	if !p.Valid {
		return nil
	}
	f := p.Value.InexactFloat64()
	return &f
}

// Round returns p rounded to places decimals.
func (p Pct) Round(places int32) Pct {
	if !p.Valid {
		return p
	}
	return PctOf(p.Value.Round(places))
}

func (p Pct) String() string {
	if !p.Valid {
		return "n/a"
	}
	return p.Value.StringFixed(1) + "%"
}

func (p Pct) MarshalJSON() ([]byte, error) {
	if !p.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(p.Value.InexactFloat64())
}

func (p *Pct) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = NullPct
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	*p = PctOf(d)
	return nil
}
