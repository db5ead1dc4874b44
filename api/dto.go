/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Engine values are
  decimal and tagged-null; responses carry float64 amounts and *float64
  percentages (null when not computable), which is what the dashboard
  charts consume.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Retailers:   RetailerDTO, RetailerSummaryDTO, PeriodsDTO, LoadRunDTO
  Slices:      SliceDTO, TotalsDTO, ProjectionDTO, TrendPointDTO
  Tables:      PerformanceDTO, MoversDTO, RowDTO, QuartersDTO, HeatmapDTO
  Scenarios:   ScenarioDTO, LoadScenarioRequest

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/pos-analytics/generic"
	"github.com/warp/pos-analytics/loader"
	"github.com/warp/pos-analytics/retail"
)

// =============================================================================
// RETAILERS
// =============================================================================

// RetailerDTO is one entry of the retailer list.
type RetailerDTO struct {
	ID           string           `json:"id"`
	DisplayName  string           `json:"displayName"`
	DateRange    loader.DateRange `json:"dateRange"`
	Features     []string         `json:"features"`
	ProductCount int              `json:"productCount"`
	TimeGrain    string           `json:"timeGrain"`
	HasWeekly    bool             `json:"hasWeekly"`
	Demo         bool             `json:"demo,omitempty"`
}

// RetailerListDTO wraps the list with the manifest timestamp.
type RetailerListDTO struct {
	GeneratedAt string        `json:"generatedAt,omitempty"`
	Retailers   []RetailerDTO `json:"retailers"`
}

// RetailerSummaryDTO describes one loaded snapshot.
type RetailerSummaryDTO struct {
	ID            string    `json:"id"`
	Snapshot      string    `json:"snapshot"`
	LoadedAt      time.Time `json:"loadedAt"`
	ProductCount  int       `json:"productCount"`
	PeriodCount   int       `json:"periodCount"`
	WeekCount     int       `json:"weekCount"`
	TimeGrain     string    `json:"timeGrain"`
	PrimaryMetric string    `json:"primaryMetric"`
	Brands        []string  `json:"brands"`
	Categories    []string  `json:"categories"`
	HasInventory  bool      `json:"hasInventory"`
	HasLTOOS      bool      `json:"hasLtoos"`
	HasForecast   bool      `json:"hasForecast"`
	HasEcommerce  bool      `json:"hasEcommerce"`
}

// PeriodsDTO lists the selectable keys per granularity.
type PeriodsDTO struct {
	Months   []string          `json:"months"`
	Quarters []string          `json:"quarters"`
	Weeks    []string          `json:"weeks"`
	Years    []string          `json:"years"`
	Defaults map[string]string `json:"defaults"`
}

// LoadRunDTO is one recorded snapshot load.
type LoadRunDTO struct {
	ID           string    `json:"id"`
	Retailer     string    `json:"retailer"`
	LoadedAt     time.Time `json:"loadedAt"`
	ProductCount int       `json:"productCount"`
	PeriodCount  int       `json:"periodCount"`
	WeekCount    int       `json:"weekCount"`
}

// =============================================================================
// SLICES
// =============================================================================

type TotalsDTO struct {
	Dollars      float64 `json:"dollars"`
	Units        float64 `json:"units"`
	ProductCount int     `json:"productCount"`
}

type ProjectionDTO struct {
	Multiplier     float64  `json:"multiplier"`
	Approximate    bool     `json:"approximate"`
	QEPDollars     *float64 `json:"qepDollars"`
	QEPUnits       *float64 `json:"qepUnits"`
	YEPDollars     float64  `json:"yepDollars"`
	YEPUnits       float64  `json:"yepUnits"`
	PaceDollarsPct *float64 `json:"paceDollarsPct"`
	PaceUnitsPct   *float64 `json:"paceUnitsPct"`
}

type TrendPointDTO struct {
	Period       string  `json:"period"`
	Label        string  `json:"label"`
	Year         string  `json:"year"`
	Month        string  `json:"month,omitempty"`
	Dollars      float64 `json:"dollars"`
	Units        float64 `json:"units"`
	ProductCount int     `json:"productCount"`
}

// SliceDTO is a TimeSlice with its windows reduced to totals.
type SliceDTO struct {
	Granularity  string              `json:"granularity"`
	SelectionKey string              `json:"selectionKey"`
	PeriodLabel  string              `json:"periodLabel"`
	CurrentYear  string              `json:"currentYear"`
	PriorYear    string              `json:"priorYear"`
	Metric       string              `json:"metric"`
	Labels       retail.ColumnLabels `json:"labels"`

	Current      TotalsDTO `json:"current"`
	Comparison   TotalsDTO `json:"comparison"`
	FullPrevYear TotalsDTO `json:"fullPrevYear"`

	YoYDollarsPct *float64 `json:"yoyDollarsPct"`
	YoYUnitsPct   *float64 `json:"yoyUnitsPct"`
	YoYProductPct *float64 `json:"yoyProductPct"`

	ComparableMonths int  `json:"comparableMonths"`
	MonthsWithData   int  `json:"monthsWithData"`
	IsComplete       bool `json:"isComplete"`

	CurrentPeriods    []string `json:"currentPeriods"`
	ComparisonPeriods []string `json:"comparisonPeriods"`

	Trend      []TrendPointDTO `json:"trend"`
	Projection *ProjectionDTO  `json:"projection"`
}

// =============================================================================
// TABLES
// =============================================================================

type RowDTO struct {
	Key          string   `json:"key"`
	Name         string   `json:"name"`
	Brand        string   `json:"brand,omitempty"`
	Category     string   `json:"category,omitempty"`
	ProductCount int      `json:"productCount"`
	Current      float64  `json:"current"`
	Comparison   float64  `json:"comparison"`
	Change       float64  `json:"change"`
	YoYPct       *float64 `json:"yoyPct"`
	SeqPct       *float64 `json:"seqPct"`
	PY           *float64 `json:"py"`
	YEP          float64  `json:"yep"`
	PacePct      *float64 `json:"pacePct"`
	SharePct     *float64 `json:"sharePct"`
}

type PerformanceDTO struct {
	Level        string              `json:"level"`
	Granularity  string              `json:"granularity"`
	SelectionKey string              `json:"selectionKey"`
	PeriodLabel  string              `json:"periodLabel"`
	Metric       string              `json:"metric"`
	Labels       retail.ColumnLabels `json:"labels"`
	Rows         []RowDTO            `json:"rows"`
}

type MoversDTO struct {
	Granularity  string              `json:"granularity"`
	SelectionKey string              `json:"selectionKey"`
	Metric       string              `json:"metric"`
	Labels       retail.ColumnLabels `json:"labels"`
	Gainers      []RowDTO            `json:"gainers"`
	Decliners    []RowDTO            `json:"decliners"`
}

type QuarterDTO struct {
	Quarter         string   `json:"quarter"`
	DisplayLabel    string   `json:"displayLabel"`
	CurrentTotal    float64  `json:"currentTotal"`
	ComparisonTotal float64  `json:"comparisonTotal"`
	QEP             float64  `json:"qep"`
	MonthsWithData  int      `json:"monthsWithData"`
	IsComplete      bool     `json:"isComplete"`
	YoYPct          *float64 `json:"yoyPct"`
	PacePct         *float64 `json:"pacePct"`
	MonthCount      string   `json:"monthCount"`
	ProductCount    int      `json:"productCount"`
}

type QuartersDTO struct {
	Metric   string       `json:"metric"`
	Quarters []QuarterDTO `json:"quarters"`
}

type HeatmapRowDTO struct {
	UPC     string     `json:"upc"`
	Name    string     `json:"name"`
	Brand   string     `json:"brand"`
	Values  []float64  `json:"values"`
	Changes []*float64 `json:"changes"`
	Latest  float64    `json:"latest"`
	Average float64    `json:"average"`
	Trend   string     `json:"trend"`
}

type HeatmapDTO struct {
	Metric      string          `json:"metric"`
	Months      []string        `json:"months"`
	MonthLabels []string        `json:"monthLabels"`
	Rows        []HeatmapRowDTO `json:"rows"`
}

// =============================================================================
// MISC
// =============================================================================

type HealthDTO struct {
	Status    string    `json:"status"`
	Time      time.Time `json:"time"`
	Snapshots int       `json:"snapshots"`
}

type CacheClearDTO struct {
	Cleared   bool `json:"cleared"`
	Snapshots int  `json:"snapshots"`
}

// ScenarioDTO represents a demo retailer.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"` // "monthly" or "weekly"
	Loaded      bool   `json:"loaded"`
}

// LoadScenarioRequest is the body of POST /api/scenarios/load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func pctPtr(p generic.Pct) *float64 {
	return p.Round(1).Float()
}

func toTotalsDTO(t generic.Totals) TotalsDTO {
	return TotalsDTO{Dollars: money(t.Dollars), Units: money(t.Units), ProductCount: t.ProductCount}
}

func toProjectionDTO(p *generic.Projection) *ProjectionDTO {
	if p == nil {
		return nil
	}
	dto := &ProjectionDTO{
		Multiplier:     p.Multiplier.Decimal().Round(4).InexactFloat64(),
		Approximate:    p.Multiplier.Approximate,
		YEPDollars:     money(p.YEP.Dollars),
		YEPUnits:       money(p.YEP.Units),
		PaceDollarsPct: pctPtr(p.PaceDollarsPct),
		PaceUnitsPct:   pctPtr(p.PaceUnitsPct),
	}
	if p.QEP != nil {
		d, u := money(p.QEP.Dollars), money(p.QEP.Units)
		dto.QEPDollars, dto.QEPUnits = &d, &u
	}
	return dto
}

func toTrendDTOs(points []generic.TrendPoint) []TrendPointDTO {
	out := make([]TrendPointDTO, len(points))
	for i, p := range points {
		out[i] = TrendPointDTO{
			Period:       string(p.Period),
			Label:        p.Label,
			Year:         p.Year,
			Month:        p.Month,
			Dollars:      money(p.Dollars),
			Units:        money(p.Units),
			ProductCount: p.ProductCount,
		}
	}
	return out
}

func keyStrings(keys []generic.PeriodKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}

func toSliceDTO(a retail.Analysis) SliceDTO {
	s := a.Slice
	return SliceDTO{
		Granularity:       string(s.Granularity),
		SelectionKey:      s.SelectionKey,
		PeriodLabel:       s.PeriodLabel,
		CurrentYear:       s.CurrentYear,
		PriorYear:         s.PriorYear,
		Metric:            string(a.Metric),
		Labels:            a.Labels,
		Current:           toTotalsDTO(s.CurrentTotals()),
		Comparison:        toTotalsDTO(s.ComparisonTotals()),
		FullPrevYear:      toTotalsDTO(s.FullPrevYearTotals()),
		YoYDollarsPct:     pctPtr(s.YoY(generic.MetricDollars)),
		YoYUnitsPct:       pctPtr(s.YoY(generic.MetricUnits)),
		YoYProductPct:     pctPtr(productCountChange(s)),
		ComparableMonths:  s.ComparableMonths,
		MonthsWithData:    s.MonthsWithData,
		IsComplete:        s.IsComplete,
		CurrentPeriods:    keyStrings(s.Keys.Current),
		ComparisonPeriods: keyStrings(s.Keys.Comparable),
		Trend:             toTrendDTOs(s.TrendData),
		Projection:        toProjectionDTO(s.Projection),
	}
}

// productCountChange compares active product counts year over year.
func productCountChange(s generic.TimeSlice) generic.Pct {
	cur := decimal.NewFromInt(int64(s.CurrentTotals().ProductCount))
	comp := decimal.NewFromInt(int64(s.ComparisonTotals().ProductCount))
	return generic.PercentChange(cur, comp)
}

func toRowDTO(r retail.Row) RowDTO {
	dto := RowDTO{
		Key:          r.Key,
		Name:         r.Name,
		Brand:        r.Brand,
		Category:     r.Category,
		ProductCount: r.ProductCount,
		Current:      money(r.Current),
		Comparison:   money(r.Comparison),
		Change:       money(r.Change),
		YoYPct:       pctPtr(r.YoYPct),
		SeqPct:       pctPtr(r.SeqPct),
		YEP:          money(r.YEP),
		PacePct:      pctPtr(r.PacePct),
		SharePct:     pctPtr(r.SharePct),
	}
	if r.PY != nil {
		py := money(*r.PY)
		dto.PY = &py
	}
	return dto
}

func toRowDTOs(rows []retail.Row) []RowDTO {
	out := make([]RowDTO, len(rows))
	for i, r := range rows {
		out[i] = toRowDTO(r)
	}
	return out
}

func toQuarterDTO(q generic.QuarterSummary) QuarterDTO {
	return QuarterDTO{
		Quarter:         q.Quarter,
		DisplayLabel:    q.DisplayLabel,
		CurrentTotal:    money(q.CurrentTotal),
		ComparisonTotal: money(q.ComparisonTotal),
		QEP:             money(q.QEP),
		MonthsWithData:  q.MonthsWithData,
		IsComplete:      q.IsComplete,
		YoYPct:          pctPtr(q.YoYPct),
		PacePct:         pctPtr(q.PacePct),
		MonthCount:      q.MonthCount,
		ProductCount:    q.ProductCount,
	}
}
