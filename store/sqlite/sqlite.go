/*
Package sqlite provides a SQLite-backed document cache.

PURPOSE:
  Implements loader.Cache on SQLite so fetched retailer documents survive a
  server restart. Useful when documents come from S3 or a slow HTTP host and
  the ETL output changes only a few times a day.

KEY TABLES:
  documents:  path -> raw JSON body, size and fetch time
  load_runs:  one row per retailer snapshot served, for auditing

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time

USAGE:
  cache, err := sqlite.New("./data/cache.db")
  if err != nil {
      log.Fatal(err)
  }
  defer cache.Close()

  l := loader.New(source, cache, logger)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - loader/loader.go: Cache interface
  - store/memory: in-process implementation
  - store/redis: shared implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/pos-analytics/loader"
)

var _ loader.Cache = (*Store)(nil)

// Store implements loader.Cache using SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Cached raw documents
	CREATE TABLE IF NOT EXISTS documents (
		path TEXT PRIMARY KEY,
		body BLOB NOT NULL,
		size INTEGER NOT NULL,
		fetched_at TEXT NOT NULL
	);

	-- Retailer snapshots served
	CREATE TABLE IF NOT EXISTS load_runs (
		id TEXT PRIMARY KEY,
		retailer TEXT NOT NULL,
		loaded_at TEXT NOT NULL,
		product_count INTEGER NOT NULL,
		period_count INTEGER NOT NULL,
		week_count INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_load_runs_retailer
		ON load_runs(retailer, loaded_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// DOCUMENT CACHE
// =============================================================================

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE path = ?`, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get document: %w", err)
	}
	return body, true, nil
}

func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (path, body, size, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			body = excluded.body,
			size = excluded.size,
			fetched_at = excluded.fetched_at
	`, key, data, len(data), s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to put document: %w", err)
	}
	return nil
}

// Clear drops every cached document. Load runs are kept.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("failed to clear documents: %w", err)
	}
	return nil
}

// DocumentInfo describes one cached document.
type DocumentInfo struct {
	Path      string
	Size      int
	FetchedAt time.Time
}

// ListDocuments returns cached documents ordered by path.
func (s *Store) ListDocuments(ctx context.Context) ([]DocumentInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT path, size, fetched_at FROM documents ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentInfo
	for rows.Next() {
		var d DocumentInfo
		var fetchedAt string
		if err := rows.Scan(&d.Path, &d.Size, &fetchedAt); err != nil {
			return nil, err
		}
		d.FetchedAt, _ = time.Parse(time.RFC3339, fetchedAt)
		out = append(out, d)
	}
	return out, rows.Err()
}

// =============================================================================
// LOAD RUNS
// =============================================================================

// LoadRun records one retailer snapshot.
type LoadRun struct {
	ID           string
	Retailer     string
	LoadedAt     time.Time
	ProductCount int
	PeriodCount  int
	WeekCount    int
}

// RecordLoad stores a load run for data.
func (s *Store) RecordLoad(ctx context.Context, data *loader.RetailerData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run := LoadRun{ID: data.ID, Retailer: data.Retailer, LoadedAt: data.LoadedAt}
	if data.POS != nil {
		run.ProductCount = len(data.POS.Products)
		run.PeriodCount = len(data.POS.Periods)
		run.WeekCount = len(data.POS.WeeklyPeriods)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO load_runs (id, retailer, loaded_at, product_count, period_count, week_count)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.Retailer, run.LoadedAt.UTC().Format(time.RFC3339Nano),
		run.ProductCount, run.PeriodCount, run.WeekCount)
	if err != nil {
		return fmt.Errorf("failed to record load: %w", err)
	}
	return nil
}

// LoadRuns returns the most recent runs for retailer, newest first.
func (s *Store) LoadRuns(ctx context.Context, retailer string, limit int) ([]LoadRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, retailer, loaded_at, product_count, period_count, week_count
		FROM load_runs WHERE retailer = ?
		ORDER BY loaded_at DESC LIMIT ?
	`, retailer, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query load runs: %w", err)
	}
	defer rows.Close()

	var out []LoadRun
	for rows.Next() {
		var r LoadRun
		var loadedAt string
		if err := rows.Scan(&r.ID, &r.Retailer, &loadedAt, &r.ProductCount, &r.PeriodCount, &r.WeekCount); err != nil {
			return nil, err
		}
		r.LoadedAt, _ = time.Parse(time.RFC3339Nano, loadedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Reset clears all tables (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"documents", "load_runs"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}
