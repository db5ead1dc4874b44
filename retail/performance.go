package retail

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/pos-analytics/generic"
)

// =============================================================================
// ANALYSIS - One slice with the baselines rows are compared against
// =============================================================================

// Analysis bundles everything the performance tables need for one selection.
type Analysis struct {
	Slice           generic.TimeSlice
	Metric          generic.Metric
	PriorSequential generic.PeriodMap // nil for ytd or when there is no earlier period
	FullPriorYear   generic.PeriodMap // nil with a single year of data
	Labels          ColumnLabels
	Catalog         *Catalog
}

// Analyze computes the slice for (g, key) and its baselines. An empty key
// selects the latest available period. A malformed key is rejected.
func Analyze(series generic.Series, catalog *Catalog, g generic.Granularity, key string, mode MetricMode) (Analysis, error) {
	if key == "" {
		key = generic.DefaultSelection(series, g)
	}
	if g != generic.GranularityYTD && key != "" {
		if err := generic.ValidateSelection(g, key); err != nil {
			return Analysis{}, err
		}
	}
	slice, err := generic.ComputeSlice(series, g, key)
	if err != nil {
		return Analysis{}, err
	}
	return Analysis{
		Slice:           slice,
		Metric:          mode.Resolve(series.Periods),
		PriorSequential: generic.PriorSequential(series, g, key),
		FullPriorYear:   generic.FullPriorYearProducts(series.Periods),
		Labels:          LabelsFor(g, key, series.Periods),
		Catalog:         catalog,
	}, nil
}

// =============================================================================
// ROWS
// =============================================================================

// Level is the grouping of a performance table.
type Level string

const (
	LevelProduct  Level = "product"
	LevelCategory Level = "category"
	LevelBrand    Level = "brand"
)

// ParseLevel accepts product, category and brand.
func ParseLevel(s string) (Level, error) {
	switch l := Level(s); l {
	case LevelProduct, LevelCategory, LevelBrand:
		return l, nil
	}
	return "", fmt.Errorf("unknown level %q", s)
}

// Row is one line of a performance table, in the analysis metric.
type Row struct {
	Key          string
	Name         string
	Brand        string
	Category     string
	ProductCount int

	Current    decimal.Decimal
	Comparison decimal.Decimal
	Change     decimal.Decimal
	YoYPct     generic.Pct
	SeqPct     generic.Pct

	// PY is nil when the key has no full-prior-year data.
	PY      *decimal.Decimal
	YEP     decimal.Decimal
	PacePct generic.Pct

	SharePct generic.Pct
}

// Rows builds the table for level, largest current value first. Keys with
// neither current nor year-ago sales are skipped.
func (a Analysis) Rows(level Level) []Row {
	keyFn := a.keyFunc(level)
	current := generic.RollupBy(a.Slice.CurrentData, keyFn)
	comparison := generic.RollupBy(a.Slice.ComparisonData, keyFn)

	var seq, py map[string]generic.MetricRecord
	if a.PriorSequential != nil {
		seq = generic.RollupBy(a.PriorSequential, keyFn)
	}
	if a.FullPriorYear != nil {
		py = generic.RollupBy(a.FullPriorYear, keyFn)
	}
	active := countActive(a.Slice.CurrentData, keyFn)

	total := decimal.Zero
	for _, m := range current {
		total = total.Add(m.Value(a.Metric))
	}

	keys := unionKeys(current, comparison)
	mult := a.Slice.Multiplier()
	rows := make([]Row, 0, len(keys))
	for _, k := range keys {
		cur := current[k].Value(a.Metric)
		comp := comparison[k].Value(a.Metric)
		if cur.IsZero() && comp.IsZero() {
			continue
		}
		row := Row{
			Key:          k,
			Name:         k,
			ProductCount: active[k],
			Current:      cur,
			Comparison:   comp,
			Change:       cur.Sub(comp),
			YoYPct:       generic.PositiveBaseChange(cur, comp),
			SeqPct:       generic.NullPct,
			YEP:          mult.Apply(cur),
			PacePct:      generic.NullPct,
			SharePct:     share(cur, total),
		}
		if level == LevelProduct {
			upc := generic.UPC(k)
			row.Name = a.Catalog.Name(upc)
			row.Brand = a.Catalog.Brand(upc)
			row.Category = a.Catalog.Category(upc)
		}
		if seq != nil {
			row.SeqPct = generic.PositiveBaseChange(cur, seq[k].Value(a.Metric))
		}
		if m, ok := py[k]; ok {
			v := m.Value(a.Metric)
			row.PY = &v
			row.PacePct = generic.PacePercent(row.YEP, v)
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if c := rows[i].Current.Cmp(rows[j].Current); c != 0 {
			return c > 0
		}
		return rows[i].Key < rows[j].Key
	})
	return rows
}

func (a Analysis) keyFunc(level Level) func(generic.UPC) string {
	switch level {
	case LevelCategory:
		return a.Catalog.Category
	case LevelBrand:
		return a.Catalog.Brand
	default:
		return func(u generic.UPC) string { return string(u) }
	}
}

func countActive(pm generic.PeriodMap, keyFn func(generic.UPC) string) map[string]int {
	out := make(map[string]int)
	for upc, m := range pm {
		if m.IsActive() {
			out[keyFn(upc)]++
		}
	}
	return out
}

func unionKeys(a, b map[string]generic.MetricRecord) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, m := range []map[string]generic.MetricRecord{a, b} {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	sort.Strings(out)
	return out
}

func share(part, total decimal.Decimal) generic.Pct {
	if !total.IsPositive() {
		return generic.NullPct
	}
	return generic.PctOf(part.Mul(decimal.NewFromInt(100)).Div(total))
}
