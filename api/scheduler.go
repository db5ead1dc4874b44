/*
scheduler.go - Periodic cache refresh

PURPOSE:
  The ETL rewrites the exported documents a few times a day. The refresher
  clears the document cache and decoded snapshots on an interval so a new
  export is picked up without a restart, and optionally re-warms the
  manifest retailers so the first dashboard request stays fast.

DESIGN:
  - Runs a background goroutine with configurable interval
  - Start/Stop are idempotent
  - Failures are logged; the next tick tries again

USAGE:
  refresher := NewCacheRefresher(handler, 15*time.Minute, logger)
  refresher.Start()
  // ... later
  refresher.Stop()

SEE ALSO:
  - handlers.go: ClearCache endpoint (manual refresh)
*/
package api

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CacheRefresher periodically clears and optionally re-warms the caches.
type CacheRefresher struct {
	Handler  *Handler
	Interval time.Duration
	Warm     bool

	// Timeout bounds one refresh, including warming.
	Timeout time.Duration

	logger *zap.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewCacheRefresher creates a refresher. It does nothing until Start.
func NewCacheRefresher(h *Handler, interval time.Duration, log *zap.Logger) *CacheRefresher {
	if log == nil {
		log = zap.NewNop()
	}
	return &CacheRefresher{
		Handler:  h,
		Interval: interval,
		Warm:     true,
		Timeout:  2 * time.Minute,
		logger:   log.Named("refresher"),
	}
}

// Start begins the refresh loop. A non-positive interval disables it.
func (cr *CacheRefresher) Start() {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if cr.Interval <= 0 {
		cr.logger.Info("Cache refresher disabled")
		return
	}
	if cr.ticker != nil {
		return
	}

	cr.ticker = time.NewTicker(cr.Interval)
	cr.stop = make(chan struct{})
	cr.wg.Add(1)
	go cr.run(cr.ticker, cr.stop)

	cr.logger.Info("Cache refresher started", zap.Duration("interval", cr.Interval))
}

// Stop stops the loop and waits for an in-flight refresh.
func (cr *CacheRefresher) Stop() {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if cr.ticker == nil {
		return
	}
	cr.ticker.Stop()
	close(cr.stop)
	cr.wg.Wait()
	cr.ticker = nil
	cr.logger.Info("Cache refresher stopped")
}

func (cr *CacheRefresher) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer cr.wg.Done()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), cr.Timeout)
			cr.Refresh(ctx)
			cancel()
		case <-stop:
			return
		}
	}
}

// Refresh clears the caches once and, when Warm is set, reloads every
// manifest retailer. It returns the number of retailers warmed.
func (cr *CacheRefresher) Refresh(ctx context.Context) int {
	n, err := cr.Handler.clearCache(ctx, "scheduler")
	if err != nil {
		cr.logger.Error("Cache clear failed", zap.Error(err))
		return 0
	}
	cr.logger.Debug("Cache cleared", zap.Int("snapshots", n))

	if !cr.Warm || cr.Handler.Loader == nil {
		return 0
	}
	m, err := cr.Handler.Loader.LoadManifest(ctx)
	if err != nil {
		cr.logger.Warn("Warm-up skipped, manifest unavailable", zap.Error(err))
		return 0
	}

	ids := make([]string, 0, len(m.Retailers))
	for id := range m.Retailers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	warmed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if _, err := cr.Handler.retailer(ctx, id); err != nil {
			cr.logger.Warn("Warm-up failed", zap.String("retailer", id), zap.Error(err))
			continue
		}
		warmed++
	}
	cr.logger.Info("Cache refreshed", zap.Int("warmed", warmed), zap.Int("retailers", len(ids)))
	return warmed
}
