package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadRequiresCredentials(t *testing.T) {
	t.Setenv("AIRTABLE_APP_ID", "")
	t.Setenv("AIRTABLE_API_KEY", "")

	_, err := LoadFrom(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLoadWithConfigFile(t *testing.T) {
	t.Setenv("AIRTABLE_APP_ID", "")
	t.Setenv("AIRTABLE_API_KEY", "")
	dir := t.TempDir()
	writeFile(t, dir, FileName, `
app_id: appTEST
api_key: keyTEST
timeout: 5s
cache:
  backend: memory
log:
  level: debug
`)

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "appTEST", cfg.AppID)
	assert.Equal(t, "keyTEST", cfg.APIKey)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, BackendMemory, cfg.Cache.Backend)
	assert.Equal(t, "debug", cfg.Log.Level)

	// defaults
	assert.Equal(t, "https://api.airtable.com/v0", cfg.BaseURL)
	assert.Equal(t, "localhost:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, "airtable:", cfg.Cache.Redis.Prefix)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, FileName, "app_id: appFILE\napi_key: keyFILE\n")
	t.Setenv("AIRTABLE_APP_ID", "")
	t.Setenv("AIRTABLE_API_KEY", "keyENV")
	t.Setenv("AIRTABLE_CACHE_BACKEND", "memory")

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, "appFILE", cfg.AppID)
	assert.Equal(t, "keyENV", cfg.APIKey)
	assert.Equal(t, BackendMemory, cfg.Cache.Backend)
}

func TestLoadDotEnv(t *testing.T) {
	// registers restoration of anything godotenv sets
	t.Setenv("AIRTABLE_APP_ID", "")
	t.Setenv("AIRTABLE_API_KEY", "")
	os.Unsetenv("AIRTABLE_APP_ID")
	os.Unsetenv("AIRTABLE_API_KEY")

	dir := t.TempDir()
	writeFile(t, dir, ".env", "AIRTABLE_APP_ID=appDOTENV\nAIRTABLE_API_KEY=keyDOTENV\n")

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, "appDOTENV", cfg.AppID)
	assert.Equal(t, "keyDOTENV", cfg.APIKey)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			AppID:   "app",
			APIKey:  "key",
			BaseURL: "https://api.airtable.com/v0",
			Timeout: time.Second,
			Cache:   CacheConfig{Backend: BackendFile},
			Log:     LogConfig{Level: "info"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "disk" }, true},
		{"redis without addr", func(c *Config) { c.Cache.Backend = BackendRedis }, true},
		{"redis with addr", func(c *Config) {
			c.Cache.Backend = BackendRedis
			c.Cache.Redis.Addr = "localhost:6379"
		}, false},
		{"bad base url", func(c *Config) { c.BaseURL = "not a url" }, true},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, true},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWriteThenLoad(t *testing.T) {
	t.Setenv("AIRTABLE_APP_ID", "")
	t.Setenv("AIRTABLE_API_KEY", "")
	dir := t.TempDir()

	path, err := Write(dir, &Config{
		AppID:   "appWRITTEN",
		APIKey:  "keyWRITTEN",
		BaseURL: "https://example.test/v0",
		Timeout: 10 * time.Second,
		Cache:   CacheConfig{Backend: BackendFile, Dir: filepath.Join(dir, "cache")},
	}, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FileName), path)

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, "appWRITTEN", cfg.AppID)
	assert.Equal(t, "keyWRITTEN", cfg.APIKey)
	assert.Equal(t, "https://example.test/v0", cfg.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, filepath.Join(dir, "cache"), cfg.Cache.Dir)

	_, err = Write(dir, cfg, false)
	assert.Error(t, err, "existing file must not be overwritten")

	_, err = Write(dir, cfg, true)
	assert.NoError(t, err)
}

func TestClientConfig(t *testing.T) {
	cfg := &Config{AppID: "app", APIKey: "key", BaseURL: "http://x", Timeout: time.Second, Cache: CacheConfig{Dir: "/tmp/c"}}
	client := cfg.Client()
	assert.Equal(t, "app", client.AppID)
	assert.Equal(t, "key", client.APIKey)
	assert.Equal(t, "http://x", client.BaseURL)
	assert.Equal(t, "/tmp/c", client.CacheDir)
	assert.Equal(t, time.Second, client.Timeout)
}
