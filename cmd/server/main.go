/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the POS analytics server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env and configuration (defaults < config file < POS_* env)
  2. Build the logger
  3. Pick the document source (dir, http, s3) and cache (none, memory, sqlite, redis)
  4. Create the loader and API handler, preload demo retailers
  5. Configure the HTTP router and start the cache refresher
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Config file path (default: config.* in . or ./config)
  -port    HTTP server port, overrides app.port

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the cache refresher
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close the cache
  5. Exit

EXAMPLES:
  # Serve the ETL output directory
  ./server -port=3000

  # Read from S3, persist documents in SQLite
  POS_DATA_SOURCE=s3 POS_DATA_S3_BUCKET=pos-exports \
  POS_CACHE_BACKEND=sqlite ./server

SEE ALSO:
  - config/config.go: Settings and defaults
  - api/server.go: Router configuration
  - loader/loader.go: Document loading
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/warp/pos-analytics/api"
	"github.com/warp/pos-analytics/config"
	"github.com/warp/pos-analytics/loader"
	"github.com/warp/pos-analytics/logger"
	"github.com/warp/pos-analytics/store/memory"
	"github.com/warp/pos-analytics/store/redis"
	"github.com/warp/pos-analytics/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "Config file path")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.App.Port = *port
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	source, err := newSource(ctx, cfg.Data)
	if err != nil {
		log.Fatal("Failed to initialize data source", zap.Error(err))
	}

	cache, closer, err := newCache(ctx, cfg.Cache, log)
	if err != nil {
		log.Fatal("Failed to initialize cache", zap.Error(err))
	}
	defer closer.Close()

	// Initialize handler
	handler := api.NewHandler(loader.New(source, cache, log), log)
	if runs, ok := cache.(*sqlite.Store); ok {
		handler.Runs = runs
	}
	handler.SetDemoSeed(cfg.Demo.Seed)
	if cfg.Demo.Enabled {
		for _, id := range api.ScenarioIDs() {
			if _, err := handler.LoadDemo(id); err != nil {
				log.Warn("Failed to load demo retailer", zap.String("scenario", id), zap.Error(err))
			}
		}
	}

	// Create router
	routerCfg := api.RouterConfig{AllowedOrigins: cfg.HTTP.CORSAllowOrigins}
	if cfg.HTTP.RateLimitEnabled {
		routerCfg.RateLimit = cfg.HTTP.RateLimitRPS
		routerCfg.Burst = cfg.HTTP.RateLimitBurst
	}
	router := api.NewRouter(handler, routerCfg)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	refresher := api.NewCacheRefresher(handler, cfg.Cache.RefreshInterval, log)
	refresher.Start()

	// Start server in goroutine
	go func() {
		log.Info("Server starting",
			zap.Int("port", cfg.App.Port),
			zap.String("env", cfg.App.Env),
			zap.String("source", cfg.Data.Source),
			zap.String("cache", cfg.Cache.Backend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	refresher.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server stopped")
}

func newSource(ctx context.Context, cfg config.DataConfig) (loader.Source, error) {
	switch cfg.Source {
	case config.SourceHTTP:
		return loader.NewHTTPSource(cfg.BaseURL), nil
	case config.SourceS3:
		return loader.NewS3SourceFromConfig(ctx, loader.S3Config{
			Bucket:       cfg.S3.Bucket,
			Prefix:       cfg.S3.Prefix,
			Region:       cfg.S3.Region,
			Endpoint:     cfg.S3.Endpoint,
			AccessKey:    cfg.S3.AccessKey,
			SecretKey:    cfg.S3.SecretKey,
			UsePathStyle: cfg.S3.UsePathStyle,
		})
	default:
		return loader.NewDirSource(cfg.Dir), nil
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newCache returns the configured cache and whatever must be closed with it.
// The none backend returns a nil cache.
func newCache(ctx context.Context, cfg config.CacheConfig, log *zap.Logger) (loader.Cache, io.Closer, error) {
	switch cfg.Backend {
	case config.CacheNone:
		return nil, nopCloser{}, nil
	case config.CacheSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create cache directory: %w", err)
			}
		}
		store, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case config.CacheRedis:
		c, err := redis.New(ctx, redis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.TTL,
		}, redis.WithLogger(log.Named("redis")))
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	default:
		return memory.New(), nopCloser{}, nil
	}
}
