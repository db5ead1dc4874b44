package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// GIVEN: No config file and no overrides (run from an empty dir)
	chdir(t, t.TempDir())

	// WHEN: Loading
	cfg, err := Load("")

	// THEN: Built-in defaults apply
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, SourceDir, cfg.Data.Source)
	assert.Equal(t, "./public/data", cfg.Data.Dir)
	assert.Equal(t, CacheMemory, cfg.Cache.Backend)
	assert.Equal(t, 15*time.Minute, cfg.Cache.RefreshInterval)
	assert.True(t, cfg.HTTP.RateLimitEnabled)
	assert.Equal(t, []string{"*"}, cfg.HTTP.CORSAllowOrigins)
	assert.Equal(t, uint64(42), cfg.Demo.Seed)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_FileAndEnv(t *testing.T) {
	// GIVEN: A YAML file and an env override for one of its keys
	dir := t.TempDir()
	path := filepath.Join(dir, "pos.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  port: 9090
  env: production
cache:
  backend: sqlite
  sqlite_path: /tmp/pos.db
log:
  format: json
`), 0o644))
	t.Setenv("POS_CACHE_BACKEND", "redis")
	t.Setenv("POS_CACHE_REFRESH_INTERVAL", "1h")

	// WHEN: Loading that file
	cfg, err := Load(path)

	// THEN: File values apply and env wins over the file
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.App.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, CacheRedis, cfg.Cache.Backend)
	assert.Equal(t, "/tmp/pos.db", cfg.Cache.SQLitePath)
	assert.Equal(t, time.Hour, cfg.Cache.RefreshInterval)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	chdir(t, t.TempDir())
	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.App.Port = 0 }},
		{"unknown source", func(c *Config) { c.Data.Source = "ftp" }},
		{"http without url", func(c *Config) { c.Data.Source = SourceHTTP }},
		{"s3 without bucket", func(c *Config) { c.Data.Source = SourceS3 }},
		{"unknown cache", func(c *Config) { c.Cache.Backend = "memcached" }},
		{"sqlite without path", func(c *Config) { c.Cache.Backend = CacheSQLite; c.Cache.SQLitePath = "" }},
		{"zero rate", func(c *Config) { c.HTTP.RateLimitRPS = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
