/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     zap request log (level by status)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. Metrics:    Prometheus request count + latency by route
  5. RateLimit:  Token bucket shared by all clients (optional)
  6. CORS:       Cross-origin requests for the dashboard

ROUTE GROUPS:
  /health                         Liveness
  /metrics                        Prometheus scrape
  /api/retailers/*                Retailer analytics
  /api/cache/clear                Drop cached documents
  /api/scenarios/*                Demo retailers

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/warp/pos-analytics/logger"
)

// RouterConfig holds the middleware settings.
type RouterConfig struct {
	AllowedOrigins []string

	// RateLimit is requests per second; 0 disables limiting.
	RateLimit float64
	Burst     int
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(logger.RequestLogger(h.logger.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(h.metrics.Middleware)
	if cfg.RateLimit > 0 {
		r.Use(RateLimit(rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst), h.metrics, h.logger))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/retailers", func(r chi.Router) {
			r.Get("/", h.ListRetailers)
			r.Route("/{retailer}", func(r chi.Router) {
				r.Get("/", h.GetRetailer)
				r.Get("/periods", h.GetPeriods)
				r.Get("/slices/{granularity}", h.GetSlice)
				r.Get("/quarters", h.GetQuarters)
				r.Get("/performance/{level}", h.GetPerformance)
				r.Get("/movers", h.GetMovers)
				r.Get("/heatmap", h.GetHeatmap)
				r.Get("/inventory", h.GetInventory)
				r.Get("/loads", h.ListLoads)
				r.Get("/export", h.ExportWorkbook)
			})
		})

		r.Post("/cache/clear", h.ClearCache)

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}

// RateLimit rejects requests with 429 once the shared bucket is empty.
func RateLimit(limiter *rate.Limiter, metrics *Metrics, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				metrics.rateLimited.Inc()
				log.Debug("Rate limited", zap.String("path", r.URL.Path))
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "Too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
