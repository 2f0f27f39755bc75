package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test in an empty directory with no ytscribe variables set.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "YTSCRIBE_") || key == "YOUTUBE_API_KEY" {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, SourceAuto, cfg.Source)
	assert.Equal(t, "en", cfg.Language)
	assert.Equal(t, 5, cfg.DefaultLimit)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.InitialBackoff.Std())
	assert.Equal(t, 30*time.Second, cfg.MaxBackoff.Std())
	assert.Equal(t, filepath.Join("var", "logs", "app.log"), cfg.LogFile)
	assert.Equal(t, SourceInnertube, cfg.ResolvedSource())
}

func TestLoad_Precedence(t *testing.T) {
	dir := isolate(t)

	file := `{"language": "de", "output_dir": "from-file", "max_backoff": "45s", "default_limit": 20}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ytscribe.json"), []byte(file), 0644))

	dotenv := "YTSCRIBE_OUTPUT_DIR=from-dotenv\nYOUTUBE_API_KEY=dotenv-key\nYTSCRIBE_DEFAULT_LIMIT=7\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(dotenv), 0644))

	t.Setenv("YTSCRIBE_DEFAULT_LIMIT", "-1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "de", cfg.Language, "file beats default")
	assert.Equal(t, 45*time.Second, cfg.MaxBackoff.Std())
	assert.Equal(t, "from-dotenv", cfg.OutputDir, ".env beats file")
	assert.Equal(t, -1, cfg.DefaultLimit, "environment beats .env")
	assert.Equal(t, "dotenv-key", cfg.APIKey)
	assert.Equal(t, SourceAPI, cfg.ResolvedSource())

	// .env values must not leak into the process environment
	_, leaked := os.LookupEnv("YTSCRIBE_OUTPUT_DIR")
	assert.False(t, leaked)
}

func TestLoad_HomeConfig(t *testing.T) {
	dir := isolate(t)
	home := filepath.Join(dir, ".config", "ytscribe")
	require.NoError(t, os.MkdirAll(home, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(home, "ytscribe.json"), []byte(`{"source":"rss"}`), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, SourceRSS, cfg.Source)
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ytscribe.json"), []byte("{"), 0644))

	_, err := Load()
	assert.ErrorContains(t, err, "parse ytscribe.json")
}

func TestLoad_MalformedEnv(t *testing.T) {
	isolate(t)
	t.Setenv("YTSCRIBE_MAX_RETRIES", "many")
	t.Setenv("YTSCRIBE_INITIAL_BACKOFF", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YTSCRIBE_MAX_RETRIES")
	assert.Contains(t, err.Error(), "YTSCRIBE_INITIAL_BACKOFF")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"source case folded", func(c *Config) { c.Source = " RSS " }, ""},
		{"unknown source", func(c *Config) { c.Source = "scrape" }, "source must be one of"},
		{"api without key", func(c *Config) { c.Source = SourceAPI }, "requires an API key"},
		{"api with key", func(c *Config) { c.Source = SourceAPI; c.APIKey = "k" }, ""},
		{"empty language", func(c *Config) { c.Language = "" }, "language"},
		{"limit below -1", func(c *Config) { c.DefaultLimit = -2 }, "default_limit"},
		{"zero rps", func(c *Config) { c.RateLimitRPS = 0 }, "rate_limit_rps"},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, "max_retries"},
		{"backoff order", func(c *Config) { c.MaxBackoff = Duration(time.Millisecond) }, "max_backoff must be >="},
		{"multiplier", func(c *Config) { c.BackoffMultiplier = 1 }, "backoff_multiplier"},
		{"timeout", func(c *Config) { c.RequestTimeout = 0 }, "request_timeout"},
		{"log size", func(c *Config) { c.LogMaxSizeMB = 0 }, "log_max_size_mb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestDuration_JSON(t *testing.T) {
	var v struct {
		A Duration `json:"a"`
		B Duration `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"1m30s","b":2.5}`), &v))
	assert.Equal(t, 90*time.Second, v.A.Std())
	assert.Equal(t, 2500*time.Millisecond, v.B.Std())

	out, err := json.Marshal(Duration(5 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, `"5s"`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"a":"later"}`), &v))
	assert.Error(t, json.Unmarshal([]byte(`{"a":true}`), &v))
}
