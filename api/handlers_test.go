/*
handlers_test.go - HTTP handler tests

Tests run the full router against a temp directory of ETL documents with an
in-memory document cache and an in-memory SQLite load history.
*/
package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/pos-analytics/export"
	"github.com/warp/pos-analytics/loader"
	"github.com/warp/pos-analytics/store/memory"
	"github.com/warp/pos-analytics/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const testManifest = `{
  "generated_at": "2025-06-20T10:00:00Z",
  "retailers": {
    "sprouts": {"display_name": "Sprouts", "features": ["pos", "inventory"], "product_count": 2, "time_grain": "monthly", "has_weekly": true},
    "heb": {"display_name": "H-E-B", "features": ["pos"], "product_count": 1, "time_grain": "monthly"}
  }
}`

// Product 111 grows, product 222 declines. Jan 2025 vs Jan 2024 is +50%.
const testPOS = `{
  "products": [
    {"upc": "111", "product_name": "Oat Bar", "brand": "Acme", "category": "Snacks"},
    {"upc": "222", "name": "Seed Mix", "brand": "Bolt", "category": "Snacks"}
  ],
  "periods": {
    "2024-01": {"111": {"dollars": 100, "units": 10}, "222": {"dollars": 50, "units": 5}},
    "2024-02": {"111": {"dollars": 100, "units": 10}},
    "2025-01": {"111": {"dollars": 180, "units": 18}, "222": {"dollars": 45, "units": 4}},
    "2025-02": {"111": {"dollars": 120, "units": 12}}
  },
  "weekly_periods": {
    "2024-06-15": {"111": {"dollars": 10, "units": 1}},
    "2025-06-14": {"111": {"dollars": 20, "units": 2}}
  }
}`

const testInventory = `{"products": [{"upc": "111", "product_name": "Oat Bar", "instock_pct": 95, "wos": 3}]}`

type testServer struct {
	h      *Handler
	router http.Handler
	runs   *sqlite.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	root := t.TempDir()
	write := func(name, content string) {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	write(loader.ManifestFile, testManifest)
	write("sprouts/"+loader.POSDataFile, testPOS)
	write("sprouts/"+loader.InventoryFile, testInventory)
	write("heb/"+loader.POSDataFile, `{"products": [], "periods": {"2025-01": {"9": {"dollars": 1, "units": 1}}}}`)

	runs, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { runs.Close() })

	h := NewHandler(loader.New(loader.NewDirSource(root), memory.New(), nil), nil)
	h.Runs = runs
	return &testServer{h: h, router: NewRouter(h, RouterConfig{}), runs: runs}
}

func (s *testServer) do(t *testing.T, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) getJSON(t *testing.T, path string, wantStatus int, out any) {
	t.Helper()
	rec := s.do(t, http.MethodGet, path, nil)
	require.Equal(t, wantStatus, rec.Code, rec.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
}

// =============================================================================
// RETAILERS
// =============================================================================

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	var got HealthDTO
	s.getJSON(t, "/health", http.StatusOK, &got)

	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, 0, got.Snapshots)
}

func TestListRetailers(t *testing.T) {
	// GIVEN: A manifest with two retailers and one loaded demo
	s := newTestServer(t)
	_, err := s.h.LoadDemo("demo-two-year")
	require.NoError(t, err)

	// WHEN: Listing retailers
	var got RetailerListDTO
	s.getJSON(t, "/api/retailers", http.StatusOK, &got)

	// THEN: All three come back sorted by ID, the demo flagged
	require.Len(t, got.Retailers, 3)
	assert.Equal(t, "2025-06-20T10:00:00Z", got.GeneratedAt)
	assert.Equal(t, []string{"demo-two-year", "heb", "sprouts"},
		[]string{got.Retailers[0].ID, got.Retailers[1].ID, got.Retailers[2].ID})
	assert.True(t, got.Retailers[0].Demo)
	assert.Equal(t, "2024-01", got.Retailers[0].DateRange.Start)
	assert.True(t, got.Retailers[2].HasWeekly)
}

func TestGetRetailer(t *testing.T) {
	s := newTestServer(t)

	var got RetailerSummaryDTO
	s.getJSON(t, "/api/retailers/sprouts", http.StatusOK, &got)

	assert.Equal(t, "sprouts", got.ID)
	assert.NotEmpty(t, got.Snapshot)
	assert.Equal(t, 2, got.ProductCount)
	assert.Equal(t, 4, got.PeriodCount)
	assert.Equal(t, 2, got.WeekCount)
	assert.Equal(t, "dollars", got.PrimaryMetric)
	assert.Equal(t, []string{"Acme", "Bolt"}, got.Brands)
	assert.True(t, got.HasInventory)
	assert.False(t, got.HasForecast)
}

func TestGetRetailer_NotFound(t *testing.T) {
	s := newTestServer(t)

	var got ErrorResponse
	s.getJSON(t, "/api/retailers/kroger", http.StatusNotFound, &got)

	assert.Equal(t, "Retailer not found", got.Error)
}

func TestGetPeriods(t *testing.T) {
	s := newTestServer(t)

	var got PeriodsDTO
	s.getJSON(t, "/api/retailers/sprouts/periods", http.StatusOK, &got)

	assert.Equal(t, []string{"2024-01", "2024-02", "2025-01", "2025-02"}, got.Months)
	assert.Equal(t, []string{"2024-Q1", "2025-Q1"}, got.Quarters)
	assert.Equal(t, []string{"2024-06-15", "2025-06-14"}, got.Weeks)
	assert.Equal(t, "2025-02", got.Defaults["monthly"])
	assert.Equal(t, "2025-Q1", got.Defaults["quarterly"])
	assert.Equal(t, "2025-06-14", got.Defaults["weekly"])
	assert.Equal(t, "", got.Defaults["ytd"])
}

func TestGetInventory(t *testing.T) {
	s := newTestServer(t)

	var inv loader.Inventory
	s.getJSON(t, "/api/retailers/sprouts/inventory", http.StatusOK, &inv)
	require.Len(t, inv.Products, 1)
	assert.Equal(t, 95.0, *inv.Products[0].InStockPct)
	assert.Equal(t, 3.0, *inv.Products[0].WeeksOfSupply)

	s.getJSON(t, "/api/retailers/heb/inventory", http.StatusNotFound, nil)
}

func TestListLoads(t *testing.T) {
	// GIVEN: A retailer loaded once
	s := newTestServer(t)
	s.getJSON(t, "/api/retailers/sprouts", http.StatusOK, nil)

	// WHEN: Listing its loads
	var got []LoadRunDTO
	s.getJSON(t, "/api/retailers/sprouts/loads", http.StatusOK, &got)

	// THEN: The snapshot is recorded once
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].ProductCount)
	assert.Equal(t, 2, got[0].WeekCount)

	s.getJSON(t, "/api/retailers/sprouts/loads?limit=abc", http.StatusBadRequest, nil)
}

// =============================================================================
// ANALYTICS
// =============================================================================

func TestGetSlice_Monthly(t *testing.T) {
	// GIVEN: Jan 2024 = 150 and Jan 2025 = 225
	s := newTestServer(t)

	// WHEN: Requesting the Jan 2025 monthly slice
	var got SliceDTO
	s.getJSON(t, "/api/retailers/sprouts/slices/monthly?key=2025-01", http.StatusOK, &got)

	// THEN: Comparison is Jan 2024 and YoY is +50%
	assert.Equal(t, "2025-01", got.SelectionKey)
	assert.Equal(t, 225.0, got.Current.Dollars)
	assert.Equal(t, 150.0, got.Comparison.Dollars)
	require.NotNil(t, got.YoYDollarsPct)
	assert.InDelta(t, 50.0, *got.YoYDollarsPct, 0.001)
	assert.Equal(t, []string{"2024-01"}, got.ComparisonPeriods)
	assert.Equal(t, "Jan 25", got.Labels.Current)
	assert.Nil(t, got.Projection)
}

func TestGetSlice_QuarterlyHasProjection(t *testing.T) {
	s := newTestServer(t)

	var got SliceDTO
	s.getJSON(t, "/api/retailers/sprouts/slices/quarterly?key=2025-Q1", http.StatusOK, &got)

	assert.Equal(t, 2, got.MonthsWithData)
	assert.False(t, got.IsComplete)
	require.NotNil(t, got.Projection)
	require.NotNil(t, got.Projection.QEPDollars)
	// (225 + 120) * 3 / 2
	assert.InDelta(t, 517.5, *got.Projection.QEPDollars, 0.001)
}

func TestGetSlice_WeeklyAndYTD(t *testing.T) {
	s := newTestServer(t)

	var weekly SliceDTO
	s.getJSON(t, "/api/retailers/sprouts/slices/weekly", http.StatusOK, &weekly)
	assert.Equal(t, "2025-06-14", weekly.SelectionKey)
	assert.Equal(t, 10.0, weekly.Comparison.Dollars)
	require.NotNil(t, weekly.YoYDollarsPct)
	assert.InDelta(t, 100.0, *weekly.YoYDollarsPct, 0.001)

	var ytd SliceDTO
	s.getJSON(t, "/api/retailers/sprouts/slices/ytd", http.StatusOK, &ytd)
	assert.Equal(t, "2025", ytd.CurrentYear)
	assert.Equal(t, 2, ytd.ComparableMonths)
	assert.Equal(t, 345.0, ytd.Current.Dollars)
	assert.Equal(t, 250.0, ytd.Comparison.Dollars)
}

func TestGetSlice_BadInput(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		path string
	}{
		{"unknown granularity", "/api/retailers/sprouts/slices/daily"},
		{"malformed month", "/api/retailers/sprouts/slices/monthly?key=2025-13"},
		{"malformed quarter", "/api/retailers/sprouts/slices/quarterly?key=2025-Q5"},
		{"unknown metric", "/api/retailers/sprouts/slices/monthly?metric=euros"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.getJSON(t, tt.path, http.StatusBadRequest, nil)
		})
	}
}

func TestGetQuarters(t *testing.T) {
	s := newTestServer(t)

	var got QuartersDTO
	s.getJSON(t, "/api/retailers/sprouts/quarters", http.StatusOK, &got)

	assert.Equal(t, "dollars", got.Metric)
	require.Len(t, got.Quarters, 2)
	assert.Equal(t, "2025-Q1", got.Quarters[1].Quarter)
	assert.Equal(t, "2 of 3 months", got.Quarters[1].MonthCount)
}

func TestGetPerformance(t *testing.T) {
	s := newTestServer(t)

	var got PerformanceDTO
	s.getJSON(t, "/api/retailers/sprouts/performance/brand?granularity=monthly&key=2025-01", http.StatusOK, &got)

	require.Len(t, got.Rows, 2)
	assert.Equal(t, "Acme", got.Rows[0].Key)
	assert.Equal(t, 180.0, got.Rows[0].Current)
	require.NotNil(t, got.Rows[0].YoYPct)
	assert.InDelta(t, 80.0, *got.Rows[0].YoYPct, 0.001)
	assert.Equal(t, "MoM%", got.Labels.Sequential)

	s.getJSON(t, "/api/retailers/sprouts/performance/store", http.StatusBadRequest, nil)
}

func TestGetMovers(t *testing.T) {
	s := newTestServer(t)

	var got MoversDTO
	s.getJSON(t, "/api/retailers/sprouts/movers?key=2025-01", http.StatusOK, &got)

	require.Len(t, got.Gainers, 1)
	require.Len(t, got.Decliners, 1)
	assert.Equal(t, "Oat Bar", got.Gainers[0].Name)
	assert.Equal(t, 80.0, got.Gainers[0].Change)
	assert.Equal(t, "Seed Mix", got.Decliners[0].Name)
	assert.Equal(t, -5.0, got.Decliners[0].Change)
}

func TestGetHeatmap(t *testing.T) {
	s := newTestServer(t)

	var got HeatmapDTO
	s.getJSON(t, "/api/retailers/sprouts/heatmap", http.StatusOK, &got)

	assert.Equal(t, []string{"2024-01", "2024-02", "2025-01", "2025-02"}, got.Months)
	assert.Equal(t, "Jan '24", got.MonthLabels[0])
	require.NotEmpty(t, got.Rows)
	assert.Equal(t, "Oat Bar", got.Rows[0].Name)
	assert.Nil(t, got.Rows[0].Changes[0])
}

func TestExportWorkbook(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/retailers/sprouts/export?granularity=quarterly&key=2025-Q1", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "sprouts_quarterly_2025-Q1.xlsx")
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), export.SheetProducts)
}

// =============================================================================
// CACHE
// =============================================================================

func TestClearCache(t *testing.T) {
	// GIVEN: A loaded retailer and a demo
	s := newTestServer(t)
	var before RetailerSummaryDTO
	s.getJSON(t, "/api/retailers/sprouts", http.StatusOK, &before)
	_, err := s.h.LoadDemo("demo-weekly")
	require.NoError(t, err)

	// WHEN: Clearing the cache
	rec := s.do(t, http.MethodPost, "/api/cache/clear", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got CacheClearDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

	// THEN: The snapshot is reloaded with a new ID and the demo survives
	assert.Equal(t, 1, got.Snapshots)
	var after RetailerSummaryDTO
	s.getJSON(t, "/api/retailers/sprouts", http.StatusOK, &after)
	assert.NotEqual(t, before.Snapshot, after.Snapshot)
	s.getJSON(t, "/api/retailers/demo-weekly", http.StatusOK, nil)
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func TestRateLimit(t *testing.T) {
	s := newTestServer(t)
	router := NewRouter(s.h, RouterConfig{RateLimit: 0.001, Burst: 1})

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/health", nil))
	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.getJSON(t, "/api/retailers/sprouts/slices/monthly?key=2025-01", http.StatusOK, nil)

	rec := s.do(t, http.MethodGet, "/metrics", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, MetricRequestsTotal)
	assert.True(t, strings.Contains(body, `route="/api/retailers/{retailer}/slices/{granularity}"`), body)
	assert.Contains(t, body, MetricSliceDurationSeconds)
	assert.Contains(t, body, `pos_retailer_loads_total{result="ok"} 1`)
}
