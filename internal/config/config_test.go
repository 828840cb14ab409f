package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleYAML = `
data_dir: /var/lib/harvester
http:
  timeout_seconds: 8
  max_retries: 2
renderer:
  enabled: false
portals:
  bbc_bangla:
    rss: ["https://feeds.bbci.co.uk/bengali/rss.xml"]
    enabled: true
    scrape_mode: simple
    language: bangla
    country: international
  samakal:
    rss: ["https://samakal.com/feed"]
    enabled: true
    scrape_mode: hybrid
    hard_domains: ["samakal.com"]
    language: bangla
    country: bd
  parked:
    rss: []
    enabled: false
    scrape_mode: rss_only
`

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func TestLoadSample(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	require.Equal(t, "/var/lib/harvester", cfg.DataDir)
	require.Equal(t, 8, cfg.HTTP.TimeoutSeconds)
	require.Equal(t, 2, cfg.HTTP.MaxRetries)
	require.False(t, cfg.Renderer.Enabled)

	// Untouched knobs keep their defaults.
	require.Equal(t, 1.5, cfg.HTTP.MinDelaySeconds)
	require.Equal(t, 2000, cfg.Hybrid.MinHTMLBytes)
	require.Equal(t, 1, cfg.Search.NearDistance)

	require.Len(t, cfg.Portals, 3)
	require.Equal(t, ModeHybrid, cfg.Portals["samakal"].ScrapeMode)
	require.Equal(t, []string{"samakal.com"}, cfg.Portals["samakal"].HardDomains)
}

func TestLoadDefaultsOnly(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "data", cfg.DataDir)
	require.Equal(t, 3, cfg.HTTP.MaxRetries)
	require.True(t, cfg.Renderer.Enabled)
	require.Empty(t, cfg.Portals)
}

func TestValidateRejectsBadMode(t *testing.T) {
	bad := sampleYAML + `
  broken:
    rss: ["https://example.com/feed"]
    enabled: true
    scrape_mode: teleport
`
	_, err := Load(writeConfig(t, bad))
	require.Error(t, err)
	require.Contains(t, err.Error(), "scrape_mode")
}

func TestValidateRejectsMissingRSS(t *testing.T) {
	bad := `
portals:
  broken:
    enabled: true
    scrape_mode: simple
`
	_, err := Load(writeConfig(t, bad))
	require.Error(t, err)
	require.Contains(t, err.Error(), "rss")
}

func TestValidateRejectsBadDelayWindow(t *testing.T) {
	bad := `
http:
  min_delay_seconds: 5.0
  max_delay_seconds: 2.0
`
	_, err := Load(writeConfig(t, bad))
	require.Error(t, err)
}

func TestEnabledPortalsSorted(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	require.Equal(t, []string{"bbc_bangla", "samakal"}, cfg.EnabledPortals())
}

func TestPaths(t *testing.T) {
	cfg := Config{DataDir: "data"}
	require.Equal(t, filepath.Join("data", "news.db"), cfg.DBPath())
	require.Equal(t, filepath.Join("data", "seen.json"), cfg.SeenPath())
}
