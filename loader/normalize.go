package loader

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/warp/pos-analytics/generic"
	"github.com/warp/pos-analytics/retail"
)

// =============================================================================
// NORMALIZATION - One canonical schema at the loading boundary
// =============================================================================
//
// Retailer exports disagree on spellings: product_name vs name, store_count
// vs stores, in_stock_pct vs instock_pct, numeric vs string UPCs. Everything
// past this file sees exactly one spelling.

// upcWidth is the zero-padded UPC length used across exports.
const upcWidth = 13

// NormalizeUPC strips spaces and dashes, drops leading zeros and left-pads
// to 13 digits. An empty input stays empty.
func NormalizeUPC(raw string) generic.UPC {
	s := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	s = strings.TrimLeft(s, "0")
	if s == "" {
		s = "0"
	}
	if len(s) < upcWidth {
		s = strings.Repeat("0", upcWidth-len(s)) + s
	}
	return generic.UPC(s)
}

// upcFromJSON accepts a JSON string or number.
func upcFromJSON(raw json.RawMessage) generic.UPC {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return NormalizeUPC(s)
	}
	return NormalizeUPC(string(raw))
}

// =============================================================================
// POS DATA
// =============================================================================

type rawProduct struct {
	UPC         json.RawMessage `json:"upc"`
	ProductName string          `json:"product_name"`
	Name        string          `json:"name"`
	Brand       string          `json:"brand"`
	Category    string          `json:"category"`
	Subcategory string          `json:"subcategory"`
	SetStatus   string          `json:"set_status"`
	ACV         *float64        `json:"acv"`
	StoreCount  *float64        `json:"store_count"`
	Stores      *float64        `json:"stores"`
}

func (r rawProduct) canonical() retail.Product {
	p := retail.Product{
		UPC:         upcFromJSON(r.UPC),
		ProductName: firstNonEmpty(r.ProductName, r.Name),
		Brand:       strings.TrimSpace(r.Brand),
		Category:    strings.TrimSpace(r.Category),
		Subcategory: strings.TrimSpace(r.Subcategory),
		SetStatus:   strings.TrimSpace(r.SetStatus),
	}
	if r.ACV != nil {
		p.ACV = *r.ACV
	}
	switch {
	case r.StoreCount != nil:
		p.StoreCount = int(*r.StoreCount)
	case r.Stores != nil:
		p.StoreCount = int(*r.Stores)
	}
	return p
}

type rawPOSData struct {
	Products      []rawProduct                                `json:"products"`
	Periods       map[string]map[string]generic.MetricRecord `json:"periods"`
	WeeklyPeriods map[string]map[string]generic.MetricRecord `json:"weekly_periods"`
	TimeGrain     string                                      `json:"time_grain"`
}

// normalizer holds the validator and logger used while decoding one retailer.
type normalizer struct {
	validate *validator.Validate
	logger   *zap.Logger
}

func newNormalizer(logger *zap.Logger) *normalizer {
	return &normalizer{validate: validator.New(), logger: logger}
}

// DecodePOSData parses and normalizes a pos_data.json document.
func DecodePOSData(data []byte, logger *zap.Logger) (*POSData, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return newNormalizer(logger).posData(data)
}

func (n *normalizer) posData(data []byte) (*POSData, error) {
	var raw rawPOSData
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	out := &POSData{
		Periods:       n.series(raw.Periods, generic.GranularityMonthly),
		WeeklyPeriods: n.series(raw.WeeklyPeriods, generic.GranularityWeekly),
		TimeGrain:     raw.TimeGrain,
	}
	if out.TimeGrain == "" {
		out.TimeGrain = string(generic.GranularityMonthly)
	}

	for _, rp := range raw.Products {
		p := rp.canonical()
		if err := n.validate.Struct(p); err != nil {
			n.logger.Warn("Dropping invalid product",
				zap.String("upc", string(p.UPC)),
				zap.Error(err))
			continue
		}
		out.Products = append(out.Products, p)
	}
	return out, nil
}

// series normalizes period keys and UPCs. Keys that are not valid for the
// granularity are dropped; records whose UPCs collide after normalization
// are summed.
func (n *normalizer) series(raw map[string]map[string]generic.MetricRecord, g generic.Granularity) generic.RawSeries {
	if raw == nil {
		return nil
	}
	out := make(generic.RawSeries, len(raw))
	for key, products := range raw {
		if err := generic.ValidateSelection(g, key); err != nil {
			n.logger.Warn("Dropping malformed period", zap.String("period", key), zap.String("granularity", string(g)))
			continue
		}
		pm := make(generic.PeriodMap, len(products))
		for rawUPC, m := range products {
			upc := NormalizeUPC(rawUPC)
			if upc == "" {
				continue
			}
			pm[upc] = pm[upc].Add(m)
		}
		out[generic.PeriodKey(key)] = pm
	}
	return out
}

// =============================================================================
// INVENTORY
// =============================================================================

// InventoryItem is one product's stock position.
type InventoryItem struct {
	UPC           generic.UPC `json:"upc"`
	Name          string      `json:"name"`
	Brand         string      `json:"brand"`
	InStockPct    *float64    `json:"inStockPct"`
	WeeksOfSupply *float64    `json:"weeksOfSupply"`
	OnHand        *float64    `json:"onHand"`
}

// Inventory is the normalized inventory.json.
type Inventory struct {
	Products []InventoryItem `json:"products"`

	// OverallInStockPct averages the products that report an in-stock %.
	OverallInStockPct *float64 `json:"overallInStockPct"`
}

type rawInventoryItem struct {
	UPC           json.RawMessage `json:"upc"`
	ProductName   string          `json:"product_name"`
	Name          string          `json:"name"`
	Brand         string          `json:"brand"`
	InStockPct    *float64        `json:"in_stock_pct"`
	InstockPct    *float64        `json:"instock_pct"`
	WeeksOfSupply *float64        `json:"weeks_of_supply"`
	WOS           *float64        `json:"wos"`
	OnHandQty     *float64        `json:"on_hand_qty"`
	OHQty         *float64        `json:"oh_qty"`
}

// DecodeInventory parses and normalizes an inventory.json document.
func DecodeInventory(data []byte) (*Inventory, error) {
	var raw struct {
		Products []rawInventoryItem `json:"products"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	inv := &Inventory{Products: make([]InventoryItem, 0, len(raw.Products))}
	var sum float64
	var n int
	for _, r := range raw.Products {
		item := InventoryItem{
			UPC:           upcFromJSON(r.UPC),
			Brand:         r.Brand,
			InStockPct:    firstNonNil(r.InStockPct, r.InstockPct),
			WeeksOfSupply: firstNonNil(r.WeeksOfSupply, r.WOS),
			OnHand:        firstNonNil(r.OnHandQty, r.OHQty),
		}
		item.Name = firstNonEmpty(r.ProductName, r.Name, string(item.UPC), retail.Unknown)
		if item.InStockPct != nil {
			sum += *item.InStockPct
			n++
		}
		inv.Products = append(inv.Products, item)
	}
	if n > 0 {
		avg := sum / float64(n)
		inv.OverallInStockPct = &avg
	}
	return inv, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func firstNonNil(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
