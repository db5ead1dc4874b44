/*
scenarios.go - Synthetic demo retailers

PURPOSE:
  Provides generated retailers that exercise every path of the engine
  without an ETL run: full two-year history, a partial current year (YTD and
  quarter pace), weekly data, and a units-only retailer.

AVAILABLE SCENARIOS:
  demo-two-year:      24 full months, 12 products, 3 brands
  demo-partial-year:  2024 plus Jan-Aug 2025, a late product launch
  demo-weekly:        2 years of months plus 104 Saturday-ending weeks
  demo-units-only:    dollars are zero, so the primary metric is units

HOW SCENARIOS WORK:
 1. A gofakeit.Faker is seeded from the handler seed plus the scenario index
 2. Products get names, brands, categories, a base level and a growth rate
 3. Each period's value is base * growth^t * seasonality (+ noise)
 4. The result is registered as a retailer under the scenario ID

The same seed always produces the same retailer.

USAGE VIA API:
	POST /api/scenarios/load
	{"scenario_id": "demo-partial-year"}

SEE ALSO:
  - handlers.go: retailer resolution
*/
package api

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/pos-analytics/generic"
	"github.com/warp/pos-analytics/loader"
	"github.com/warp/pos-analytics/retail"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenarioSpec struct {
	firstMonth  time.Time // first month of data
	months      int
	weeks       int // 0 for no weekly data
	products    int
	unitsOnly   bool
	lateLaunch  bool // the last product starts in the final year
	displayName string
}

type scenario struct {
	ScenarioDTO
	spec scenarioSpec
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "demo-two-year",
			Name:        "Two Full Years",
			Description: "24 complete months across 12 products and 3 brands",
			Category:    "monthly",
		},
		spec: scenarioSpec{firstMonth: month(2024, 1), months: 24, products: 12, displayName: "Demo Grocer"},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "demo-partial-year",
			Name:        "Partial Current Year",
			Description: "Full 2024 plus Jan-Aug 2025 with a product launched in 2025",
			Category:    "monthly",
		},
		spec: scenarioSpec{firstMonth: month(2024, 1), months: 20, products: 10, lateLaunch: true, displayName: "Demo Naturals"},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "demo-weekly",
			Name:        "Weekly Retailer",
			Description: "Two years of monthly and weekly data",
			Category:    "weekly",
		},
		spec: scenarioSpec{firstMonth: month(2024, 1), months: 24, weeks: 104, products: 8, displayName: "Demo Market"},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "demo-units-only",
			Name:        "Units Only",
			Description: "A retailer that reports units but no dollars",
			Category:    "monthly",
		},
		spec: scenarioSpec{firstMonth: month(2024, 1), months: 18, products: 6, unitsOnly: true, displayName: "Demo Club"},
	},
}

var demoCategories = []string{"Snacks", "Beverages", "Frozen", "Bakery", "Pantry"}

// firstDemoWeek is a Saturday.
var firstDemoWeek = time.Date(2024, time.January, 6, 0, 0, 0, 0, time.UTC)

func month(year int, m time.Month) time.Time {
	return time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
}

// ScenarioIDs returns the demo retailer IDs in display order.
func ScenarioIDs() []string {
	ids := make([]string, len(scenarios))
	for i, s := range scenarios {
		ids[i] = s.ID
	}
	return ids
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns the available demo retailers.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	out := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		out[i] = s.ScenarioDTO
		_, out[i].Loaded = h.demos[s.ID]
	}
	h.mu.RUnlock()
	writeJSON(w, http.StatusOK, out)
}

// LoadScenario generates a demo retailer and registers it.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	data, err := h.LoadDemo(req.ScenarioID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Unknown scenario", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  fmt.Sprintf("Loaded scenario: %s", req.ScenarioID),
		"retailer": data.Retailer,
		"snapshot": data.ID,
	})
}

// LoadDemo generates the scenario id and registers it as a retailer.
func (h *Handler) LoadDemo(id string) (*loader.RetailerData, error) {
	idx := -1
	for i, s := range scenarios {
		if s.ID == id {
			idx = i
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", loader.ErrRetailerNotFound, id)
	}
	s := scenarios[idx]

	pos, inv := generateScenario(gofakeit.New(h.demoSeed+uint64(idx)), s.spec)
	data := &loader.RetailerData{
		ID:        ulid.Make().String(),
		Retailer:  s.ID,
		LoadedAt:  h.now().UTC(),
		POS:       pos,
		Inventory: inv,
	}

	h.mu.Lock()
	h.demos[s.ID] = data
	h.mu.Unlock()

	h.logger.Info("Demo retailer loaded",
		zap.String("scenario", s.ID),
		zap.Int("products", len(pos.Products)),
		zap.Int("periods", len(pos.Periods)),
		zap.Int("weeks", len(pos.WeeklyPeriods)))
	return data, nil
}

func demoRetailerDTO(id string, d *loader.RetailerData) RetailerDTO {
	dto := RetailerDTO{ID: id, Demo: true, Features: []string{"pos"}}
	if s, ok := findScenario(id); ok {
		dto.DisplayName = s.spec.displayName
	}
	if d.POS == nil {
		return dto
	}
	dto.ProductCount = len(d.POS.Products)
	dto.TimeGrain = d.POS.TimeGrain
	dto.HasWeekly = len(d.POS.WeeklyPeriods) > 0
	if d.Inventory != nil {
		dto.Features = append(dto.Features, "inventory")
	}
	if keys := generic.SortedKeys(d.POS.Periods); len(keys) > 0 {
		dto.DateRange = loader.DateRange{Start: string(keys[0]), End: string(keys[len(keys)-1])}
	}
	return dto
}

// =============================================================================
// GENERATION
// =============================================================================

type demoProduct struct {
	product  retail.Product
	base     float64 // monthly dollars at t=0
	growth   float64 // yearly growth rate
	price    float64
	startIdx int // first month with sales
}

func generateScenario(f *gofakeit.Faker, spec scenarioSpec) (*loader.POSData, *loader.Inventory) {
	brands := []string{f.Company(), f.Company(), f.Company()}

	products := make([]demoProduct, spec.products)
	for i := range products {
		upc := loader.NormalizeUPC(f.Numerify("0##########"))
		p := demoProduct{
			product: retail.Product{
				UPC:         upc,
				ProductName: f.ProductName(),
				Brand:       brands[i%len(brands)],
				Category:    demoCategories[f.IntRange(0, len(demoCategories)-1)],
				SetStatus:   "Active",
				ACV:         math.Round(f.Float64Range(40, 98)*10) / 10,
				StoreCount:  f.IntRange(50, 400),
			},
			base:   f.Float64Range(500, 8000),
			growth: f.Float64Range(-0.25, 0.4),
			price:  f.Float64Range(2, 12),
		}
		if spec.lateLaunch && i == len(products)-1 {
			p.startIdx = spec.months - (spec.months % 12)
			if p.startIdx == spec.months {
				p.startIdx = spec.months - 3
			}
			p.product.SetStatus = "New"
		}
		products[i] = p
	}

	pos := &loader.POSData{
		Periods:   generic.RawSeries{},
		TimeGrain: string(generic.GranularityMonthly),
	}
	for _, p := range products {
		pos.Products = append(pos.Products, p.product)
	}

	for t := 0; t < spec.months; t++ {
		m := spec.firstMonth.AddDate(0, t, 0)
		pm := generic.PeriodMap{}
		for _, p := range products {
			if t < p.startIdx {
				continue
			}
			dollars := p.base * math.Pow(1+p.growth, float64(t)/12) * seasonality(m.Month()) * f.Float64Range(0.92, 1.08)
			pm[p.product.UPC] = demoRecord(dollars, p.price, spec.unitsOnly)
		}
		pos.Periods[generic.PeriodKey(m.Format("2006-01"))] = pm
	}

	if spec.weeks > 0 {
		pos.WeeklyPeriods = generic.RawSeries{}
		pos.TimeGrain = string(generic.GranularityWeekly)
		for t := 0; t < spec.weeks; t++ {
			wk := firstDemoWeek.AddDate(0, 0, 7*t)
			pm := generic.PeriodMap{}
			for _, p := range products {
				weekly := p.base * 12 / 52 * math.Pow(1+p.growth, float64(t)/52) * seasonality(wk.Month()) * f.Float64Range(0.85, 1.15)
				pm[p.product.UPC] = demoRecord(weekly, p.price, spec.unitsOnly)
			}
			pos.WeeklyPeriods[generic.WeekKey(wk)] = pm
		}
	}

	inv := &loader.Inventory{}
	var sum float64
	for _, p := range products {
		inStock := math.Round(f.Float64Range(82, 99.5)*10) / 10
		wos := math.Round(f.Float64Range(1.5, 9)*10) / 10
		onHand := float64(f.IntRange(20, 900))
		inv.Products = append(inv.Products, loader.InventoryItem{
			UPC:           p.product.UPC,
			Name:          p.product.ProductName,
			Brand:         p.product.Brand,
			InStockPct:    &inStock,
			WeeksOfSupply: &wos,
			OnHand:        &onHand,
		})
		sum += inStock
	}
	if len(products) > 0 {
		avg := sum / float64(len(products))
		inv.OverallInStockPct = &avg
	}
	return pos, inv
}

// seasonality peaks in summer and December.
func seasonality(m time.Month) float64 {
	switch m {
	case time.June, time.July, time.August:
		return 1.15
	case time.December:
		return 1.25
	case time.January, time.February:
		return 0.85
	}
	return 1
}

func demoRecord(dollars, price float64, unitsOnly bool) generic.MetricRecord {
	units := decimal.NewFromFloat(math.Round(dollars / price))
	if unitsOnly {
		return generic.MetricRecord{Dollars: decimal.Zero, Units: units}
	}
	return generic.MetricRecord{Dollars: decimal.NewFromFloat(dollars).Round(2), Units: units}
}
