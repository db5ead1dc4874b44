/*
handlers.go - HTTP API handlers for the POS analytics engine

PURPOSE:
  Exposes the aggregation engine via REST API. Handles HTTP request/response
  and JSON serialization, and delegates to the loader, the generic engine and
  the retail layer.

ENDPOINTS:
  Retailers:
    GET  /api/retailers                               Manifest + loaded demo retailers
    GET  /api/retailers/{retailer}                    Snapshot summary
    GET  /api/retailers/{retailer}/periods            Selectable keys per granularity
    GET  /api/retailers/{retailer}/slices/{g}         One slice (?key=&metric=)
    GET  /api/retailers/{retailer}/quarters           Quarter overview grid
    GET  /api/retailers/{retailer}/performance/{lvl}  Product/category/brand table
    GET  /api/retailers/{retailer}/movers             Top gainers and decliners
    GET  /api/retailers/{retailer}/heatmap            Trailing 12-month product grid
    GET  /api/retailers/{retailer}/inventory          Normalized inventory
    GET  /api/retailers/{retailer}/loads              Snapshot load history
    GET  /api/retailers/{retailer}/export             xlsx workbook

  Cache:
    POST /api/cache/clear                             Drop documents and snapshots

SELECTION PARAMETERS:
  granularity  weekly | monthly | quarterly | ytd (default monthly)
  key          "2025-06-14" | "2025-06" | "2025-Q2" | ignored for ytd;
               empty selects the latest available period
  metric       auto | dollars | units (default auto)

SNAPSHOTS:
  A retailer is decoded once and kept until the cache is cleared (by the
  API or the refresher). Demo retailers live beside them and survive clears.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed selection, unknown granularity/level/metric
  - 404: Unknown retailer, missing supplemental document
  - 429: Rate limited
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo retailers
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/warp/pos-analytics/export"
	"github.com/warp/pos-analytics/generic"
	"github.com/warp/pos-analytics/loader"
	"github.com/warp/pos-analytics/retail"
	"github.com/warp/pos-analytics/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// LoadRecorder keeps a history of retailer snapshot loads.
type LoadRecorder interface {
	RecordLoad(ctx context.Context, data *loader.RetailerData) error
	LoadRuns(ctx context.Context, retailer string, limit int) ([]sqlite.LoadRun, error)
}

var _ LoadRecorder = (*sqlite.Store)(nil)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Loader *loader.Loader

	// Runs is optional; without it /loads returns an empty list.
	Runs LoadRecorder

	logger   *zap.Logger
	metrics  *Metrics
	validate *validator.Validate
	demoSeed uint64
	now      func() time.Time

	mu        sync.RWMutex
	snapshots map[string]*loader.RetailerData
	demos     map[string]*loader.RetailerData
}

// NewHandler creates a handler. A nil loader serves demo retailers only.
func NewHandler(l *loader.Loader, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Loader:    l,
		logger:    log.Named("api"),
		metrics:   NewMetrics(),
		validate:  validator.New(),
		demoSeed:  42,
		now:       time.Now,
		snapshots: make(map[string]*loader.RetailerData),
		demos:     make(map[string]*loader.RetailerData),
	}
}

// SetDemoSeed sets the seed demo retailers are generated from.
func (h *Handler) SetDemoSeed(seed uint64) {
	h.demoSeed = seed
}

// Metrics returns the handler's Prometheus collectors.
func (h *Handler) Metrics() *Metrics {
	return h.metrics
}

// retailer returns the snapshot for id, loading it on first use.
func (h *Handler) retailer(ctx context.Context, id string) (*loader.RetailerData, error) {
	h.mu.RLock()
	data, ok := h.demos[id]
	if !ok {
		data, ok = h.snapshots[id]
	}
	h.mu.RUnlock()
	if ok {
		return data, nil
	}

	if h.Loader == nil {
		return nil, fmt.Errorf("%w: %s", loader.ErrRetailerNotFound, id)
	}
	data, err := h.Loader.LoadRetailer(ctx, id)
	switch {
	case err == nil:
		h.metrics.retailerLoad("ok")
	case loader.IsNotFound(err):
		h.metrics.retailerLoad("not_found")
		return nil, err
	default:
		h.metrics.retailerLoad("error")
		return nil, err
	}

	if h.Runs != nil {
		if err := h.Runs.RecordLoad(ctx, data); err != nil {
			h.logger.Warn("Failed to record load", zap.String("retailer", id), zap.Error(err))
		}
	}

	h.mu.Lock()
	// another request may have loaded it meanwhile; keep the first
	if existing, ok := h.snapshots[id]; ok {
		data = existing
	} else {
		h.snapshots[id] = data
	}
	h.mu.Unlock()
	return data, nil
}

// clearCache drops cached documents and decoded snapshots.
func (h *Handler) clearCache(ctx context.Context, trigger string) (int, error) {
	h.mu.Lock()
	n := len(h.snapshots)
	h.snapshots = make(map[string]*loader.RetailerData)
	h.mu.Unlock()

	h.metrics.cacheCleared(trigger)
	if h.Loader == nil {
		return n, nil
	}
	return n, h.Loader.Clear(ctx)
}

func (h *Handler) snapshotCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.snapshots) + len(h.demos)
}

// =============================================================================
// RETAILER HANDLERS
// =============================================================================

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthDTO{Status: "ok", Time: h.now().UTC(), Snapshots: h.snapshotCount()})
}

// ListRetailers returns the manifest retailers plus loaded demo retailers,
// sorted by ID. A missing manifest yields only the demos.
func (h *Handler) ListRetailers(w http.ResponseWriter, r *http.Request) {
	out := RetailerListDTO{Retailers: []RetailerDTO{}}

	if h.Loader != nil {
		m, err := h.Loader.LoadManifest(r.Context())
		switch {
		case err == nil:
			out.GeneratedAt = m.GeneratedAt
			for id, e := range m.Retailers {
				out.Retailers = append(out.Retailers, RetailerDTO{
					ID:           id,
					DisplayName:  e.DisplayName,
					DateRange:    e.DateRange,
					Features:     e.Features,
					ProductCount: e.ProductCount,
					TimeGrain:    e.TimeGrain,
					HasWeekly:    e.HasWeekly,
				})
			}
		case loader.IsNotFound(err):
			h.logger.Debug("No manifest, listing demo retailers only")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to load manifest", err)
			return
		}
	}

	h.mu.RLock()
	for id, d := range h.demos {
		out.Retailers = append(out.Retailers, demoRetailerDTO(id, d))
	}
	h.mu.RUnlock()

	sort.Slice(out.Retailers, func(i, j int) bool {
		return out.Retailers[i].ID < out.Retailers[j].ID
	})
	writeJSON(w, http.StatusOK, out)
}

// GetRetailer returns a summary of the retailer's snapshot.
func (h *Handler) GetRetailer(w http.ResponseWriter, r *http.Request) {
	data, ok := h.loadRetailer(w, r)
	if !ok {
		return
	}
	catalog := data.Catalog()
	series := data.Series()
	writeJSON(w, http.StatusOK, RetailerSummaryDTO{
		ID:            data.Retailer,
		Snapshot:      data.ID,
		LoadedAt:      data.LoadedAt,
		ProductCount:  catalog.Len(),
		PeriodCount:   len(series.Periods),
		WeekCount:     len(series.Weekly),
		TimeGrain:     data.POS.TimeGrain,
		PrimaryMetric: string(generic.DetectPrimaryMetric(series.Periods)),
		Brands:        nonNil(catalog.Brands()),
		Categories:    nonNil(catalog.Categories()),
		HasInventory:  data.Inventory != nil,
		HasLTOOS:      data.LTOOS != nil,
		HasForecast:   data.Forecast != nil,
		HasEcommerce:  data.Ecommerce != nil,
	})
}

// GetPeriods lists the selectable keys and the default selection per granularity.
func (h *Handler) GetPeriods(w http.ResponseWriter, r *http.Request) {
	data, ok := h.loadRetailer(w, r)
	if !ok {
		return
	}
	series := data.Series()
	defaults := make(map[string]string, len(generic.Granularities))
	for _, g := range generic.Granularities {
		defaults[string(g)] = generic.DefaultSelection(series, g)
	}
	writeJSON(w, http.StatusOK, PeriodsDTO{
		Months:   keyStrings(generic.AvailableMonths(series.Periods)),
		Quarters: nonNil(generic.AvailableQuarters(series.Periods)),
		Weeks:    keyStrings(generic.AvailableWeeks(series.Weekly)),
		Years:    nonNil(generic.Years(series.Periods)),
		Defaults: defaults,
	})
}

// GetInventory returns the normalized inventory document.
func (h *Handler) GetInventory(w http.ResponseWriter, r *http.Request) {
	data, ok := h.loadRetailer(w, r)
	if !ok {
		return
	}
	if data.Inventory == nil {
		writeError(w, http.StatusNotFound, "Retailer has no inventory data", nil)
		return
	}
	writeJSON(w, http.StatusOK, data.Inventory)
}

// ListLoads returns the retailer's recorded snapshot loads, newest first.
func (h *Handler) ListLoads(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "retailer")
	out := []LoadRunDTO{}
	if h.Runs == nil {
		writeJSON(w, http.StatusOK, out)
		return
	}

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}
	runs, err := h.Runs.LoadRuns(r.Context(), id, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list loads", err)
		return
	}
	for _, run := range runs {
		out = append(out, LoadRunDTO{
			ID:           run.ID,
			Retailer:     run.Retailer,
			LoadedAt:     run.LoadedAt,
			ProductCount: run.ProductCount,
			PeriodCount:  run.PeriodCount,
			WeekCount:    run.WeekCount,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// ANALYTICS HANDLERS
// =============================================================================

// GetSlice computes one slice. The granularity comes from the path.
func (h *Handler) GetSlice(w http.ResponseWriter, r *http.Request) {
	a, ok := h.analyze(w, r, chi.URLParam(r, "granularity"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toSliceDTO(a))
}

// GetQuarters returns the quarter overview in the retailer's primary metric.
func (h *Handler) GetQuarters(w http.ResponseWriter, r *http.Request) {
	data, ok := h.loadRetailer(w, r)
	if !ok {
		return
	}
	periods := data.Series().Periods
	quarters := generic.QuarterOverview(periods)
	out := QuartersDTO{
		Metric:   string(generic.DetectPrimaryMetric(periods)),
		Quarters: make([]QuarterDTO, len(quarters)),
	}
	for i, q := range quarters {
		out.Quarters[i] = toQuarterDTO(q)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetPerformance returns the performance table at the level in the path.
func (h *Handler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	level, err := retail.ParseLevel(chi.URLParam(r, "level"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid level", err)
		return
	}
	a, ok := h.analyze(w, r, r.URL.Query().Get("granularity"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, PerformanceDTO{
		Level:        string(level),
		Granularity:  string(a.Slice.Granularity),
		SelectionKey: a.Slice.SelectionKey,
		PeriodLabel:  a.Slice.PeriodLabel,
		Metric:       string(a.Metric),
		Labels:       a.Labels,
		Rows:         toRowDTOs(a.Rows(level)),
	})
}

// GetMovers returns the top gainers and decliners by absolute change.
func (h *Handler) GetMovers(w http.ResponseWriter, r *http.Request) {
	a, ok := h.analyze(w, r, r.URL.Query().Get("granularity"))
	if !ok {
		return
	}
	m := a.Movers()
	writeJSON(w, http.StatusOK, MoversDTO{
		Granularity:  string(a.Slice.Granularity),
		SelectionKey: a.Slice.SelectionKey,
		Metric:       string(a.Metric),
		Labels:       a.Labels,
		Gainers:      toRowDTOs(m.Gainers),
		Decliners:    toRowDTOs(m.Decliners),
	})
}

// GetHeatmap returns one row per product over the trailing twelve months.
func (h *Handler) GetHeatmap(w http.ResponseWriter, r *http.Request) {
	mode, err := retail.ParseMetricMode(r.URL.Query().Get("metric"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid metric", err)
		return
	}
	data, ok := h.loadRetailer(w, r)
	if !ok {
		return
	}
	periods := data.Series().Periods
	catalog := data.Catalog()
	metric := mode.Resolve(periods)

	months := generic.SortedKeys(periods)
	if len(months) > generic.HeatmapMonths {
		months = months[len(months)-generic.HeatmapMonths:]
	}
	out := HeatmapDTO{
		Metric:      string(metric),
		Months:      keyStrings(months),
		MonthLabels: make([]string, len(months)),
		Rows:        []HeatmapRowDTO{},
	}
	for i, k := range months {
		out.MonthLabels[i] = generic.MonthTrendLabel(k)
	}

	for _, row := range generic.ProductTrendRows(periods, metric) {
		dto := HeatmapRowDTO{
			UPC:     string(row.UPC),
			Name:    catalog.Name(row.UPC),
			Brand:   catalog.Brand(row.UPC),
			Values:  make([]float64, len(row.Values)),
			Changes: make([]*float64, len(row.Changes)),
			Latest:  money(row.Latest),
			Average: money(row.Average),
			Trend:   string(row.Trend),
		}
		for i, v := range row.Values {
			dto.Values[i] = money(v)
		}
		for i, c := range row.Changes {
			dto.Changes[i] = pctPtr(c)
		}
		out.Rows = append(out.Rows, dto)
	}
	writeJSON(w, http.StatusOK, out)
}

// ExportWorkbook streams the analysis as an xlsx workbook.
func (h *Handler) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	a, ok := h.analyze(w, r, r.URL.Query().Get("granularity"))
	if !ok {
		return
	}
	id := chi.URLParam(r, "retailer")
	f, err := export.Workbook(id, a)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build workbook", err)
		return
	}
	defer f.Close()

	key := a.Slice.SelectionKey
	if key == "" {
		key = "latest"
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_%s_%s.xlsx"`, id, a.Slice.Granularity, key))
	w.WriteHeader(http.StatusOK)
	if _, err := f.WriteTo(w); err != nil {
		h.logger.Warn("Workbook write interrupted", zap.String("retailer", id), zap.Error(err))
	}
}

// =============================================================================
// CACHE HANDLERS
// =============================================================================

// ClearCache drops cached documents and decoded snapshots so the next request
// re-reads the ETL output.
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	n, err := h.clearCache(r.Context(), "api")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear cache", err)
		return
	}
	h.logger.Info("Cache cleared via API", zap.Int("snapshots", n))
	writeJSON(w, http.StatusOK, CacheClearDTO{Cleared: true, Snapshots: n})
}

// =============================================================================
// HELPERS
// =============================================================================

// loadRetailer resolves the {retailer} path parameter, writing the error
// response itself when it fails.
func (h *Handler) loadRetailer(w http.ResponseWriter, r *http.Request) (*loader.RetailerData, bool) {
	id := chi.URLParam(r, "retailer")
	data, err := h.retailer(r.Context(), id)
	switch {
	case err == nil:
		return data, true
	case errors.Is(err, loader.ErrInvalidRetailer):
		writeError(w, http.StatusBadRequest, "Invalid retailer", err)
	case loader.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Retailer not found", err)
	default:
		h.logger.Error("Failed to load retailer", zap.String("retailer", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load retailer", err)
	}
	return nil, false
}

// analyze parses the selection parameters and runs the retail analysis.
// An empty granularity means monthly.
func (h *Handler) analyze(w http.ResponseWriter, r *http.Request, granularity string) (retail.Analysis, bool) {
	if granularity == "" {
		granularity = string(generic.GranularityMonthly)
	}
	g, err := generic.ParseGranularity(granularity)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid granularity", err)
		return retail.Analysis{}, false
	}
	q := r.URL.Query()
	mode, err := retail.ParseMetricMode(q.Get("metric"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid metric", err)
		return retail.Analysis{}, false
	}

	data, ok := h.loadRetailer(w, r)
	if !ok {
		return retail.Analysis{}, false
	}

	start := time.Now()
	a, err := retail.Analyze(data.Series(), data.Catalog(), g, q.Get("key"), mode)
	h.metrics.observeSlice(string(g), time.Since(start))
	if err != nil {
		if generic.IsClientError(err) {
			writeError(w, http.StatusBadRequest, "Invalid selection", err)
		} else {
			writeError(w, http.StatusInternalServerError, "Failed to compute slice", err)
		}
		return retail.Analysis{}, false
	}
	return a, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
