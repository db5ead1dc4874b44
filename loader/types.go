/*
Package loader fetches retailer JSON exports and turns them into engine input.

PURPOSE:
  The aggregation engine works on in-memory series. Something has to read
  data_manifest.json and each retailer's pos_data.json (plus the optional
  inventory, LTOOS, forecast and e-commerce documents), normalize field
  spellings and hand a clean snapshot to the engine. That is this package.

KEY CONCEPTS:
  Source:  where documents come from (directory, HTTP base URL, S3 bucket)
  Cache:   raw-document cache with an explicit Get/Put/Clear lifecycle
  Loader:  Source + Cache + normalization

DOCUMENT LAYOUT:
  data_manifest.json
  <retailer>/pos_data.json          required
  <retailer>/inventory.json         optional
  <retailer>/ltoos_history.json     optional
  <retailer>/forecast_data.json     optional
  <retailer>/ecommerce.json         optional

USAGE:
  l := loader.New(loader.NewDirSource("./public/data"), memory.New(), log)
  data, err := l.LoadRetailer(ctx, "sprouts")
  slice := generic.ComputeYTDSlice(data.POS.Periods)

SEE ALSO:
  - store/memory, store/sqlite, store/redis: Cache implementations
  - normalize.go: canonical product and inventory schema
*/
package loader

import (
	"encoding/json"
	"time"

	"github.com/warp/pos-analytics/generic"
	"github.com/warp/pos-analytics/retail"
)

// Document names.
const (
	ManifestFile  = "data_manifest.json"
	POSDataFile   = "pos_data.json"
	InventoryFile = "inventory.json"
	LTOOSFile     = "ltoos_history.json"
	ForecastFile  = "forecast_data.json"
	EcommerceFile = "ecommerce.json"
)

// =============================================================================
// MANIFEST
// =============================================================================

type Manifest struct {
	GeneratedAt string                   `json:"generated_at"`
	Retailers   map[string]ManifestEntry `json:"retailers"`
}

type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ManifestEntry describes one retailer's export.
type ManifestEntry struct {
	DisplayName  string    `json:"display_name"`
	DataFiles    []string  `json:"data_files"`
	DateRange    DateRange `json:"date_range"`
	Features     []string  `json:"features"`
	ProductCount int       `json:"product_count"`
	TimeGrain    string    `json:"time_grain"`
	HasWeekly    bool      `json:"has_weekly,omitempty"`
}

// HasFeature reports whether the retailer declares feature.
func (e ManifestEntry) HasFeature(feature string) bool {
	for _, f := range e.Features {
		if f == feature {
			return true
		}
	}
	return false
}

// =============================================================================
// POS DATA
// =============================================================================

// POSData is the normalized pos_data.json.
type POSData struct {
	Products      []retail.Product  `json:"products"`
	Periods       generic.RawSeries `json:"periods"`
	WeeklyPeriods generic.RawSeries `json:"weekly_periods,omitempty"`
	TimeGrain     string            `json:"time_grain,omitempty"`
}

// Series returns the engine input.
func (p *POSData) Series() generic.Series {
	if p == nil {
		return generic.Series{}
	}
	return generic.Series{Periods: p.Periods, Weekly: p.WeeklyPeriods}
}

// =============================================================================
// RETAILER DATA
// =============================================================================

// RetailerData is one loaded snapshot of a retailer. Supplemental documents
// are nil when the retailer does not provide them.
type RetailerData struct {
	ID       string    `json:"id"`
	Retailer string    `json:"retailer"`
	LoadedAt time.Time `json:"loadedAt"`

	POS       *POSData   `json:"posData"`
	Inventory *Inventory `json:"inventory,omitempty"`

	LTOOS     json.RawMessage `json:"ltoos,omitempty"`
	Forecast  json.RawMessage `json:"forecast,omitempty"`
	Ecommerce json.RawMessage `json:"ecommerce,omitempty"`
}

// Catalog indexes the retailer's products.
func (d *RetailerData) Catalog() *retail.Catalog {
	if d == nil || d.POS == nil {
		return retail.NewCatalog(nil)
	}
	return retail.NewCatalog(d.POS.Products)
}

// Series returns the engine input.
func (d *RetailerData) Series() generic.Series {
	if d == nil {
		return generic.Series{}
	}
	return d.POS.Series()
}
