/*
Package export renders an analysis as an Excel workbook.

SHEETS:
  Summary:   selection, window totals, YoY and projection
  Products:  product-level performance rows
  Brands:    brand-level performance rows
  Trend:     the slice's chart series

Percentages are written as numbers (12.5 means 12.5%); null percentages are
left blank.

USAGE:
  a, _ := retail.Analyze(series, catalog, generic.GranularityQuarterly, "2025-Q3", retail.MetricAuto)
  if err := export.WriteWorkbook(w, "Sprouts", a); err != nil { ... }
*/
package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/warp/pos-analytics/generic"
	"github.com/warp/pos-analytics/retail"
)

// Sheet names.
const (
	SheetSummary  = "Summary"
	SheetProducts = "Products"
	SheetBrands   = "Brands"
	SheetTrend    = "Trend"
)

// ContentType is the MIME type of the workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Workbook builds the workbook. The caller must Close it.
func Workbook(retailer string, a retail.Analysis) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, err
	}
	for _, name := range []string{SheetProducts, SheetBrands, SheetTrend} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}

	w := &sheetWriter{f: f, header: bold}
	w.summary(retailer, a)
	w.rows(SheetProducts, a, a.Rows(retail.LevelProduct), true)
	w.rows(SheetBrands, a, a.Rows(retail.LevelBrand), false)
	w.trend(a.Slice.TrendData)
	if w.err != nil {
		f.Close()
		return nil, w.err
	}
	return f, nil
}

// WriteWorkbook builds the workbook and writes it to out.
func WriteWorkbook(out io.Writer, retailer string, a retail.Analysis) error {
	f, err := Workbook(retailer, a)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// =============================================================================
// SHEET WRITER - keeps the first error, like bufio.Writer
// =============================================================================

type sheetWriter struct {
	f      *excelize.File
	header int
	err    error
}

func (w *sheetWriter) row(sheet string, n int, values ...interface{}) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetSheetRow(sheet, cell, &values)
}

func (w *sheetWriter) headerRow(sheet string, n int, values ...interface{}) {
	w.row(sheet, n, values...)
	if w.err == nil {
		w.err = w.f.SetRowStyle(sheet, n, n, w.header)
	}
}

func (w *sheetWriter) summary(retailer string, a retail.Analysis) {
	s := a.Slice
	cur, comp := s.CurrentTotals(), s.ComparisonTotals()

	w.headerRow(SheetSummary, 1, "Field", "Value")
	lines := [][]interface{}{
		{"Retailer", retailer},
		{"Granularity", string(s.Granularity)},
		{"Selection", s.SelectionKey},
		{"Period", s.PeriodLabel},
		{"Metric", string(a.Metric)},
		{a.Labels.Current + " $", num(cur.Dollars)},
		{a.Labels.Current + " Units", num(cur.Units)},
		{a.Labels.YearAgo + " $", num(comp.Dollars)},
		{a.Labels.YearAgo + " Units", num(comp.Units)},
		{"YoY % ($)", pct(s.YoY(generic.MetricDollars))},
		{"YoY % (Units)", pct(s.YoY(generic.MetricUnits))},
		{"Active Products", cur.ProductCount},
		{"Months With Data", s.MonthsWithData},
		{"Comparable Months", s.ComparableMonths},
		{"Complete", s.IsComplete},
	}
	if p := s.Projection; p != nil {
		if p.QEP != nil {
			lines = append(lines,
				[]interface{}{"QEP $", num(p.QEP.Dollars)},
				[]interface{}{"QEP Units", num(p.QEP.Units)},
			)
		}
		lines = append(lines,
			[]interface{}{a.Labels.YEP + " $", num(p.YEP.Dollars)},
			[]interface{}{a.Labels.YEP + " Units", num(p.YEP.Units)},
			[]interface{}{"Pace % ($)", pct(p.PaceDollarsPct)},
			[]interface{}{"Pace % (Units)", pct(p.PaceUnitsPct)},
		)
	}
	for i, l := range lines {
		w.row(SheetSummary, i+2, l...)
	}
	if w.err == nil {
		w.err = w.f.SetColWidth(SheetSummary, "A", "A", 24)
	}
}

func (w *sheetWriter) rows(sheet string, a retail.Analysis, rows []retail.Row, products bool) {
	header := []interface{}{"Key", "Name"}
	if products {
		header = append(header, "Brand", "Category")
	}
	header = append(header,
		a.Labels.Current, a.Labels.YearAgo, "Change", "YoY %",
		a.Labels.PriorYear, a.Labels.YEP, "Pace %", "Share %", "Products")
	if a.Labels.Sequential != "" {
		header = append(header, a.Labels.Sequential)
	}
	w.headerRow(sheet, 1, header...)

	for i, r := range rows {
		line := []interface{}{r.Key, r.Name}
		if products {
			line = append(line, r.Brand, r.Category)
		}
		var py interface{}
		if r.PY != nil {
			py = num(*r.PY)
		}
		line = append(line,
			num(r.Current), num(r.Comparison), num(r.Change), pct(r.YoYPct),
			py, num(r.YEP), pct(r.PacePct), pct(r.SharePct), r.ProductCount)
		if a.Labels.Sequential != "" {
			line = append(line, pct(r.SeqPct))
		}
		w.row(sheet, i+2, line...)
	}
}

func (w *sheetWriter) trend(points []generic.TrendPoint) {
	w.headerRow(SheetTrend, 1, "Period", "Label", "Dollars", "Units", "Products")
	for i, p := range points {
		w.row(SheetTrend, i+2, string(p.Period), p.Label, num(p.Dollars), num(p.Units), p.ProductCount)
	}
}

func num(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// pct returns nil (a blank cell) for null percentages.
func pct(p generic.Pct) interface{} {
	if !p.Valid {
		return nil
	}
	return p.Value.Round(1).InexactFloat64()
}
