// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// Portal describes one configured news source: its feeds, fetch policy and
// optional language/country tags.
type Portal struct {
	RSS         []string `mapstructure:"rss"`
	Enabled     bool     `mapstructure:"enabled"`
	ScrapeMode  string   `mapstructure:"scrape_mode"`
	HardDomains []string `mapstructure:"hard_domains"`
	Language    string   `mapstructure:"language"`
	Country     string   `mapstructure:"country"`
	Notes       string   `mapstructure:"notes"`
}

// Recognized scrape modes. "rss_only" never fetches article HTML, "simple"
// uses the plain HTTP fetcher, "browser" the rendering fetcher, and "hybrid"
// escalates from simple to browser on block signals.
const (
	ModeRSSOnly = "rss_only"
	ModeSimple  = "simple"
	ModeBrowser = "browser"
	ModeHybrid  = "hybrid"
)

var allowedModes = map[string]struct{}{
	ModeRSSOnly: {},
	ModeSimple:  {},
	ModeBrowser: {},
	ModeHybrid:  {},
}

// HTTPConfig controls the polite HTTP fetcher.
type HTTPConfig struct {
	TimeoutSeconds  int     `mapstructure:"timeout_seconds"`
	MaxRetries      int     `mapstructure:"max_retries"`
	MinDelaySeconds float64 `mapstructure:"min_delay_seconds"`
	MaxDelaySeconds float64 `mapstructure:"max_delay_seconds"`
}

// RendererConfig controls the headless rendering fetcher.
type RendererConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	NavTimeoutSeconds int     `mapstructure:"nav_timeout_seconds"`
	MaxRetries        int     `mapstructure:"max_retries"`
	MinDelaySeconds   float64 `mapstructure:"min_delay_seconds"`
	MaxDelaySeconds   float64 `mapstructure:"max_delay_seconds"`
	Scroll            bool    `mapstructure:"scroll"`
}

// FeedConfig controls feed collection.
type FeedConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// HybridConfig tunes the block classification used by the coordinator.
type HybridConfig struct {
	MinHTMLBytes int `mapstructure:"min_html_bytes"`
}

// SearchConfig tunes full-text search behavior.
type SearchConfig struct {
	NearDistance int `mapstructure:"near_distance"`
}

// MetricsConfig controls the optional Prometheus listener in loop mode.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	DataDir  string            `mapstructure:"data_dir"`
	HTTP     HTTPConfig        `mapstructure:"http"`
	Renderer RendererConfig    `mapstructure:"renderer"`
	Feeds    FeedConfig        `mapstructure:"feeds"`
	Hybrid   HybridConfig      `mapstructure:"hybrid"`
	Search   SearchConfig      `mapstructure:"search"`
	Metrics  MetricsConfig     `mapstructure:"metrics"`
	Logging  LoggingConfig     `mapstructure:"logging"`
	Portals  map[string]Portal `mapstructure:"portals"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HARVESTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "data")
	v.SetDefault("http.timeout_seconds", 10)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.min_delay_seconds", 1.5)
	v.SetDefault("http.max_delay_seconds", 4.0)
	v.SetDefault("renderer.enabled", true)
	v.SetDefault("renderer.nav_timeout_seconds", 15)
	v.SetDefault("renderer.max_retries", 2)
	v.SetDefault("renderer.min_delay_seconds", 3.0)
	v.SetDefault("renderer.max_delay_seconds", 7.0)
	v.SetDefault("renderer.scroll", true)
	v.SetDefault("feeds.timeout_seconds", 15)
	v.SetDefault("hybrid.min_html_bytes", 2000)
	v.SetDefault("search.near_distance", 1)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values. Bad portal entries abort startup rather
// than failing mid-run.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must be set")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxRetries <= 0 {
		return fmt.Errorf("http.max_retries must be > 0")
	}
	if c.HTTP.MinDelaySeconds < 0 || c.HTTP.MaxDelaySeconds < c.HTTP.MinDelaySeconds {
		return fmt.Errorf("http delay window is invalid")
	}
	if c.Renderer.MaxRetries <= 0 {
		return fmt.Errorf("renderer.max_retries must be > 0")
	}
	if c.Hybrid.MinHTMLBytes < 0 {
		return fmt.Errorf("hybrid.min_html_bytes must be >= 0")
	}
	if c.Search.NearDistance <= 0 {
		return fmt.Errorf("search.near_distance must be > 0")
	}
	for id, p := range c.Portals {
		if _, ok := allowedModes[p.ScrapeMode]; !ok {
			return fmt.Errorf("portal %q has invalid scrape_mode %q", id, p.ScrapeMode)
		}
		if p.RSS == nil {
			return fmt.Errorf("portal %q is missing its rss list", id)
		}
	}
	return nil
}

// DBPath returns the SQLite database file location.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "news.db")
}

// SeenPath returns the seen-URL registry file location.
func (c Config) SeenPath() string {
	return filepath.Join(c.DataDir, "seen.json")
}

// EnabledPortals returns ids of enabled portals in stable order.
func (c Config) EnabledPortals() []string {
	ids := make([]string, 0, len(c.Portals))
	for id, p := range c.Portals {
		if p.Enabled {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
