/*
Package retail turns engine slices into the rows a retailer dashboard shows.

PURPOSE:
  The generic package knows nothing about product names, brands or
  categories. This package joins slices with the retailer's product catalog
  and produces per-product, per-category and per-brand performance rows,
  top/bottom movers and the column labels that go with them.

KEY CONCEPTS:
  Catalog:      product metadata keyed by UPC
  Analysis:     one slice plus its sequential and full-prior-year baselines
  Row:          current / year-ago / sequential / PY / YEP / pace for one key
  ColumnLabels: "Jan 25", "PY 24", "YEP 25", "MoM%" ...

USAGE:
  a, err := retail.Analyze(series, catalog, generic.GranularityQuarterly, "2025-Q3", retail.MetricAuto)
  rows := a.Rows(retail.LevelBrand)
  movers := a.Movers()

SEE ALSO:
  - generic/slice.go: slice computers
  - api/handlers.go: JSON rendering
*/
package retail

import (
	"sort"

	"github.com/warp/pos-analytics/generic"
)

// Unknown is used when a product has no brand or category.
const Unknown = "Unknown"

// Product is the canonical catalog entry produced by the loader.
type Product struct {
	UPC         generic.UPC `json:"upc" validate:"required"`
	ProductName string      `json:"product_name"`
	Brand       string      `json:"brand"`
	Category    string      `json:"category"`
	Subcategory string      `json:"subcategory"`
	SetStatus   string      `json:"set_status"`
	ACV         float64     `json:"acv" validate:"gte=0"`
	StoreCount  int         `json:"store_count" validate:"gte=0"`
}

// Catalog indexes products by UPC. A nil *Catalog behaves as empty.
type Catalog struct {
	byUPC map[generic.UPC]Product
	order []generic.UPC
}

// NewCatalog builds a catalog. Later duplicates of a UPC replace earlier ones.
func NewCatalog(products []Product) *Catalog {
	c := &Catalog{byUPC: make(map[generic.UPC]Product, len(products))}
	for _, p := range products {
		if _, ok := c.byUPC[p.UPC]; !ok {
			c.order = append(c.order, p.UPC)
		}
		c.byUPC[p.UPC] = p
	}
	return c
}

func (c *Catalog) Lookup(upc generic.UPC) (Product, bool) {
	if c == nil {
		return Product{}, false
	}
	p, ok := c.byUPC[upc]
	return p, ok
}

// Name returns the product name, falling back to the UPC.
func (c *Catalog) Name(upc generic.UPC) string {
	if p, ok := c.Lookup(upc); ok && p.ProductName != "" {
		return p.ProductName
	}
	return string(upc)
}

func (c *Catalog) Brand(upc generic.UPC) string {
	if p, ok := c.Lookup(upc); ok && p.Brand != "" {
		return p.Brand
	}
	return Unknown
}

func (c *Catalog) Category(upc generic.UPC) string {
	if p, ok := c.Lookup(upc); ok && p.Category != "" {
		return p.Category
	}
	return Unknown
}

// Products returns the catalog in load order.
func (c *Catalog) Products() []Product {
	if c == nil {
		return nil
	}
	out := make([]Product, 0, len(c.order))
	for _, upc := range c.order {
		out = append(out, c.byUPC[upc])
	}
	return out
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.byUPC)
}

// Brands returns the distinct brands, sorted.
func (c *Catalog) Brands() []string {
	return c.distinct(c.Brand)
}

// Categories returns the distinct categories, sorted.
func (c *Catalog) Categories() []string {
	return c.distinct(c.Category)
}

func (c *Catalog) distinct(fn func(generic.UPC) string) []string {
	if c == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, upc := range c.order {
		v := fn(upc)
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
