package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadFile verifies that file values survive and unset fields get defaults.
func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "webscraper.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
output:
  dir: /tmp/reports
fetch:
  timeout: 5s
browser:
  headless: false
  resource_blocking: [images, fonts]
generate:
  format: csv
  max_items: 20
catalog:
  disabled: true
`), 0o644))

	t.Setenv("WEBSCRAPER_OUTPUT_DIR", "")
	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/reports", cfg.Output.Dir)
	assert.Equal(t, 5*time.Second, cfg.Fetch.Timeout)
	assert.False(t, cfg.IsHeadless())
	assert.Equal(t, []string{"images", "fonts"}, cfg.Browser.ResourceBlocking)
	assert.Equal(t, "csv", cfg.Generate.Format)
	assert.Equal(t, 20, cfg.Generate.MaxItems)
	assert.Empty(t, cfg.Catalog.Path)

	assert.Equal(t, DefaultUserAgent, cfg.Fetch.UserAgent)
	assert.Equal(t, int64(10<<20), cfg.Fetch.MaxBytes)
	assert.Equal(t, 3*time.Second, cfg.Browser.Settle)
	assert.Equal(t, "*", cfg.Policy.UserAgent)
	assert.Equal(t, DefaultDataDir, cfg.Generate.DataDir)
	assert.True(t, cfg.WantScreenshot())
}

// TestApplyEnv verifies that WEBSCRAPER_* variables override file values.
func TestApplyEnv(t *testing.T) {
	cfg := Config{Output: OutputConfig{Dir: "from-file"}}
	env := map[string]string{
		"WEBSCRAPER_OUTPUT_DIR":     "/env/out",
		"WEBSCRAPER_DATA_DIR":       "/env/data",
		"WEBSCRAPER_USER_AGENT":     "test-agent",
		"WEBSCRAPER_BROWSER_REMOTE": "ws://127.0.0.1:9222",
		"WEBSCRAPER_HEADLESS":       "false",
	}
	cfg.ApplyEnv(func(k string) string { return env[k] })
	cfg.ApplyDefaults()

	assert.Equal(t, "/env/out", cfg.Output.Dir)
	assert.Equal(t, "/env/data", cfg.Generate.DataDir)
	assert.Equal(t, "test-agent", cfg.Fetch.UserAgent)
	assert.Equal(t, "ws://127.0.0.1:9222", cfg.Browser.Remote)
	assert.False(t, cfg.IsHeadless())
	assert.Equal(t, "webscraper.db", cfg.Catalog.Path)
}

// TestLoadFile_Missing verifies a missing file is reported, not defaulted.
func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
