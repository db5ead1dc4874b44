// Package config loads server configuration from defaults, an optional config
// file and POS_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Data source kinds.
const (
	SourceDir  = "dir"
	SourceHTTP = "http"
	SourceS3   = "s3"
)

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheSQLite = "sqlite"
	CacheRedis  = "redis"
)

// Config holds all server configuration
type Config struct {
	App   AppConfig
	Data  DataConfig
	Cache CacheConfig
	Log   LogConfig
	HTTP  HTTPConfig
	Demo  DemoConfig
}

type AppConfig struct {
	Env  string
	Port int
}

// DataConfig selects where retailer documents come from.
type DataConfig struct {
	Source  string // dir, http, s3
	Dir     string
	BaseURL string
	S3      S3Config
}

type S3Config struct {
	Bucket       string
	Prefix       string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// CacheConfig selects the document cache and how often it is cleared.
type CacheConfig struct {
	Backend         string // none, memory, sqlite, redis
	SQLitePath      string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	TTL             time.Duration
	RefreshInterval time.Duration // 0 disables periodic clearing
}

type LogConfig struct {
	Level  string
	Format string
	Output string
}

type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int
	CORSAllowOrigins []string
}

// DemoConfig controls the synthetic scenario retailers.
type DemoConfig struct {
	Enabled bool
	Seed    uint64
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", 8080)

	v.SetDefault("data.source", SourceDir)
	v.SetDefault("data.dir", "./public/data")
	v.SetDefault("data.base_url", "")
	v.SetDefault("data.s3.bucket", "")
	v.SetDefault("data.s3.prefix", "")
	v.SetDefault("data.s3.region", "us-east-1")
	v.SetDefault("data.s3.endpoint", "")
	v.SetDefault("data.s3.access_key", "")
	v.SetDefault("data.s3.secret_key", "")
	v.SetDefault("data.s3.use_path_style", false)

	v.SetDefault("cache.backend", CacheMemory)
	v.SetDefault("cache.sqlite_path", "./data/cache.db")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.ttl", "0s")
	v.SetDefault("cache.refresh_interval", "15m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("http.read_timeout", "15s")
	v.SetDefault("http.write_timeout", "60s")
	v.SetDefault("http.rate_limit_enabled", true)
	v.SetDefault("http.rate_limit_rps", 50.0)
	v.SetDefault("http.rate_limit_burst", 100)
	v.SetDefault("http.cors_allow_origins", []string{"*"})

	v.SetDefault("demo.enabled", true)
	v.SetDefault("demo.seed", 42)
}

// Load reads configuration. Priority, highest first:
//  1. Environment variables with POS_ prefix (e.g. POS_CACHE_BACKEND)
//  2. The config file at path, or config.{yaml,toml,json} in . and ./config
//  3. Built-in defaults
//
// A missing config file is fine unless path names it explicitly.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("POS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Env:  v.GetString("app.env"),
			Port: v.GetInt("app.port"),
		},
		Data: DataConfig{
			Source:  strings.ToLower(v.GetString("data.source")),
			Dir:     v.GetString("data.dir"),
			BaseURL: v.GetString("data.base_url"),
			S3: S3Config{
				Bucket:       v.GetString("data.s3.bucket"),
				Prefix:       v.GetString("data.s3.prefix"),
				Region:       v.GetString("data.s3.region"),
				Endpoint:     v.GetString("data.s3.endpoint"),
				AccessKey:    v.GetString("data.s3.access_key"),
				SecretKey:    v.GetString("data.s3.secret_key"),
				UsePathStyle: v.GetBool("data.s3.use_path_style"),
			},
		},
		Cache: CacheConfig{
			Backend:         strings.ToLower(v.GetString("cache.backend")),
			SQLitePath:      v.GetString("cache.sqlite_path"),
			RedisAddr:       v.GetString("cache.redis_addr"),
			RedisPassword:   v.GetString("cache.redis_password"),
			RedisDB:         v.GetInt("cache.redis_db"),
			TTL:             v.GetDuration("cache.ttl"),
			RefreshInterval: v.GetDuration("cache.refresh_interval"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			RateLimitEnabled: v.GetBool("http.rate_limit_enabled"),
			RateLimitRPS:     v.GetFloat64("http.rate_limit_rps"),
			RateLimitBurst:   v.GetInt("http.rate_limit_burst"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
		},
		Demo: DemoConfig{
			Enabled: v.GetBool("demo.enabled"),
			Seed:    v.GetUint64("demo.seed"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that would otherwise fail late at startup.
func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.App.Port)
	}
	switch c.Data.Source {
	case SourceDir:
		if c.Data.Dir == "" {
			return errors.New("data.dir is required for the dir source")
		}
	case SourceHTTP:
		if c.Data.BaseURL == "" {
			return errors.New("data.base_url is required for the http source")
		}
	case SourceS3:
		if c.Data.S3.Bucket == "" {
			return errors.New("data.s3.bucket is required for the s3 source")
		}
	default:
		return fmt.Errorf("unknown data source %q", c.Data.Source)
	}
	switch c.Cache.Backend {
	case CacheNone, CacheMemory, CacheRedis:
	case CacheSQLite:
		if c.Cache.SQLitePath == "" {
			return errors.New("cache.sqlite_path is required for the sqlite cache")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.HTTP.RateLimitEnabled && c.HTTP.RateLimitRPS <= 0 {
		return errors.New("http.rate_limit_rps must be positive")
	}
	return nil
}

// IsProduction reports whether the server runs with production defaults.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
