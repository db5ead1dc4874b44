package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// =============================================================================
// CACHE - Raw documents keyed by path
// =============================================================================

// Cache stores raw documents between loads. Implementations must be safe for
// concurrent use. Only successfully fetched documents are cached, so a
// document that appears later is picked up without clearing.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, data []byte) error
	Clear(ctx context.Context) error
}

// =============================================================================
// LOADER
// =============================================================================

type Loader struct {
	source Source
	cache  Cache
	logger *zap.Logger
	now    func() time.Time
}

// New creates a loader. A nil cache disables caching; a nil logger is a no-op.
func New(source Source, cache Cache, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		source: source,
		cache:  cache,
		logger: logger.Named("loader"),
		now:    time.Now,
	}
}

// LoadManifest reads data_manifest.json.
func (l *Loader) LoadManifest(ctx context.Context) (*Manifest, error) {
	data, err := l.fetch(ctx, ManifestFile)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &DocumentError{Path: ManifestFile, Err: err}
	}
	if m.Retailers == nil {
		m.Retailers = map[string]ManifestEntry{}
	}
	return &m, nil
}

// LoadRetailer loads pos_data.json and whichever supplemental documents the
// retailer provides. A missing pos_data.json is ErrRetailerNotFound; missing
// supplemental documents are simply absent from the result.
func (l *Loader) LoadRetailer(ctx context.Context, retailer string) (*RetailerData, error) {
	if !validRetailerKey(retailer) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRetailer, retailer)
	}
	start := l.now()

	posPath := path.Join(retailer, POSDataFile)
	raw, err := l.fetch(ctx, posPath)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRetailerNotFound, retailer)
	}
	if err != nil {
		return nil, err
	}
	pos, err := DecodePOSData(raw, l.logger.With(zap.String("retailer", retailer)))
	if err != nil {
		return nil, &DocumentError{Path: posPath, Err: err}
	}

	out := &RetailerData{
		ID:       ulid.Make().String(),
		Retailer: retailer,
		LoadedAt: l.now().UTC(),
		POS:      pos,
	}

	supplemental := []string{InventoryFile, LTOOSFile, ForecastFile, EcommerceFile}
	docs := make([][]byte, len(supplemental))
	var wg sync.WaitGroup
	for i, name := range supplemental {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			docs[i] = l.fetchOptional(ctx, path.Join(retailer, name))
		}(i, name)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if docs[0] != nil {
		inv, err := DecodeInventory(docs[0])
		if err != nil {
			l.logger.Warn("Ignoring malformed inventory",
				zap.String("retailer", retailer),
				zap.Error(err))
		} else {
			out.Inventory = inv
		}
	}
	out.LTOOS = rawJSON(docs[1])
	out.Forecast = rawJSON(docs[2])
	out.Ecommerce = rawJSON(docs[3])

	l.logger.Info("Retailer loaded",
		zap.String("retailer", retailer),
		zap.String("snapshot", out.ID),
		zap.Int("products", len(pos.Products)),
		zap.Int("periods", len(pos.Periods)),
		zap.Int("weeks", len(pos.WeeklyPeriods)),
		zap.Duration("took", l.now().Sub(start)))
	return out, nil
}

// Clear empties the document cache.
func (l *Loader) Clear(ctx context.Context) error {
	if l.cache == nil {
		return nil
	}
	if err := l.cache.Clear(ctx); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	l.logger.Info("Document cache cleared")
	return nil
}

// fetch reads through the cache. Cache failures are logged, never fatal.
func (l *Loader) fetch(ctx context.Context, p string) ([]byte, error) {
	if l.cache != nil {
		data, ok, err := l.cache.Get(ctx, p)
		if err != nil {
			l.logger.Warn("Cache read failed", zap.String("path", p), zap.Error(err))
		} else if ok {
			return data, nil
		}
	}

	data, err := l.source.Fetch(ctx, p)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, &DocumentError{Path: p, Err: err}
	}

	if l.cache != nil {
		if err := l.cache.Put(ctx, p, data); err != nil {
			l.logger.Warn("Cache write failed", zap.String("path", p), zap.Error(err))
		}
	}
	return data, nil
}

// fetchOptional returns nil for missing, unreadable or non-JSON documents.
func (l *Loader) fetchOptional(ctx context.Context, p string) []byte {
	data, err := l.fetch(ctx, p)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			l.logger.Warn("Supplemental document unavailable", zap.String("path", p), zap.Error(err))
		}
		return nil
	}
	if !json.Valid(data) {
		l.logger.Warn("Supplemental document is not JSON", zap.String("path", p))
		return nil
	}
	return data
}

func rawJSON(data []byte) json.RawMessage {
	if data == nil {
		return nil
	}
	return json.RawMessage(data)
}

func validRetailerKey(k string) bool {
	return k != "" && k != "." && k != ".." && !strings.ContainsAny(k, `/\`)
}
