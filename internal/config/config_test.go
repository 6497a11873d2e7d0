package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	InitFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")

	cfg, err := Load(newFlags(t, "--config", path))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "cm-cache-v1", cfg.Worker.CacheVersion)
	assert.Equal(t, "/offline", cfg.Worker.OfflinePath)
	assert.Equal(t, DefaultPrecache, cfg.Worker.Precache)
	assert.Equal(t, "http://localhost:9090", cfg.Worker.Origin)
	assert.Equal(t, "sqlite", cfg.Cache.Driver)
	assert.Equal(t, 30*time.Second, cfg.Network.Timeout)
	assert.True(t, cfg.Worker.Enabled)
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
worker:
  cache_version: cm-cache-v2
  origin: https://civicmatch.example
  precache: ["/", "/offline"]
cache:
  driver: memory
network:
  upstream: http://127.0.0.1:3000
  passthrough_hosts: ["api.example.com"]
  headers:
    X-Forwarded-By: civic-match
`)

	cfg, err := Load(newFlags(t, "--config", path))
	require.NoError(t, err)

	assert.Equal(t, "cm-cache-v2", cfg.Worker.CacheVersion)
	assert.Equal(t, "https://civicmatch.example", cfg.Worker.Origin)
	assert.Equal(t, []string{"/", "/offline"}, cfg.Worker.Precache)
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, "http://127.0.0.1:3000", cfg.Network.Upstream)
	assert.Equal(t, []string{"api.example.com"}, cfg.Network.PassthroughHosts)
	assert.Equal(t, "civic-match", cfg.Network.Headers["x-forwarded-by"])
}

func TestLoad_EnvAndFlagOverride(t *testing.T) {
	path := writeConfig(t, "worker:\n  cache_version: cm-cache-v1\n")
	t.Setenv("CIVIC_MATCH_WORKER_CACHE_VERSION", "cm-cache-env")

	cfg, err := Load(newFlags(t, "--config", path))
	require.NoError(t, err)
	assert.Equal(t, "cm-cache-env", cfg.Worker.CacheVersion)

	cfg, err = Load(newFlags(t, "--config", path, "--worker.cache_version", "cm-cache-flag"))
	require.NoError(t, err)
	assert.Equal(t, "cm-cache-flag", cfg.Worker.CacheVersion)
}

func TestLoad_InvalidCacheDriver(t *testing.T) {
	path := writeConfig(t, "cache:\n  driver: redis\n")

	_, err := Load(newFlags(t, "--config", path))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported cache driver")
}

func TestGetVersionInfo(t *testing.T) {
	assert.Contains(t, GetVersionInfo(), "civic-match version dev")
}
