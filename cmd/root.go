// Package cmd wires the newsharvester CLI. Each subcommand builds only the
// services it needs: read-only commands skip fetcher and browser setup.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"newsharvester/internal/collect"
	"newsharvester/internal/config"
	"newsharvester/internal/extract"
	"newsharvester/internal/fetcher"
	"newsharvester/internal/fetcher/headless"
	"newsharvester/internal/logging"
	"newsharvester/internal/pipeline"
	"newsharvester/internal/state"
	"newsharvester/internal/store"
)

var configPath string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "newsharvester",
		Short:         "Polite news portal harvester with full-text search",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "config file path")

	cmd.AddCommand(
		newRunCmd(),
		newLoopCmd(),
		newSearchCmd(),
		newLatestCmd(),
		newKeywordsCmd(),
		newBackfillCmd(),
		newStatsCmd(),
	)
	return cmd
}

// Execute is the CLI entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app bundles everything a command needs, wired from configuration.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	store     *store.Store
	renderers *fetcher.RendererSource
	pipe      *pipeline.Pipeline
}

func (a *app) close() {
	if a.renderers != nil {
		a.renderers.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
	if a.logger != nil {
		a.logger.Sync()
	}
}

// newApp wires the full harvesting pipeline.
func newApp() (*app, error) {
	cfg, logger, st, err := loadCore()
	if err != nil {
		return nil, err
	}

	registry := state.Open(cfg.SeenPath(), logger)

	httpFetcher := fetcher.NewPolite(fetcher.PoliteConfig{
		Timeout:    time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second,
		MinDelay:   secs(cfg.HTTP.MinDelaySeconds),
		MaxDelay:   secs(cfg.HTTP.MaxDelaySeconds),
		MaxRetries: cfg.HTTP.MaxRetries,
	}, logger)

	var startRenderer func() (fetcher.RenderSession, error)
	if cfg.Renderer.Enabled {
		rcfg := headless.Config{
			NavTimeout: time.Duration(cfg.Renderer.NavTimeoutSeconds) * time.Second,
			MinDelay:   secs(cfg.Renderer.MinDelaySeconds),
			MaxDelay:   secs(cfg.Renderer.MaxDelaySeconds),
			MaxRetries: cfg.Renderer.MaxRetries,
			Scroll:     cfg.Renderer.Scroll,
		}
		startRenderer = func() (fetcher.RenderSession, error) {
			return headless.New(rcfg, logger)
		}
	}
	renderers := fetcher.NewRendererSource(startRenderer, logger)

	policies := make(map[string]fetcher.Policy, len(cfg.Portals))
	sources := make([]collect.Source, 0, len(cfg.Portals))
	enabled := make(map[string]config.Portal)
	for _, id := range cfg.EnabledPortals() {
		p := cfg.Portals[id]
		policies[id] = fetcher.Policy{Mode: p.ScrapeMode, HardDomains: p.HardDomains}
		sources = append(sources, collect.Source{Portal: id, URLs: p.RSS})
		enabled[id] = p
	}

	coord := fetcher.NewCoordinator(policies, httpFetcher, renderers,
		cfg.Hybrid.MinHTMLBytes, logger)
	collector := collect.New(sources, registry,
		time.Duration(cfg.Feeds.TimeoutSeconds)*time.Second, logger)
	extractors := extract.DefaultRegistry(logger)

	pipe := pipeline.New(collector, coord, extractors, st, enabled, logger)

	return &app{cfg: cfg, logger: logger, store: st, renderers: renderers, pipe: pipe}, nil
}

// newStoreApp wires only the database, for query commands.
func newStoreApp() (*app, error) {
	cfg, logger, st, err := loadCore()
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, store: st}, nil
}

func loadCore() (config.Config, *zap.Logger, *store.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	st, err := store.Open(cfg.DBPath(), logger)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	return cfg, logger, st, nil
}

func secs(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printArticles(arts []store.Article) {
	if len(arts) == 0 {
		fmt.Println("no results")
		return
	}
	for _, a := range arts {
		title := "(untitled)"
		if a.Title != nil && *a.Title != "" {
			title = *a.Title
		}
		topic := ""
		if a.Topic != nil {
			topic = *a.Topic
		}
		fmt.Printf("[%d] %s\n      portal=%s topic=%s\n      %s\n",
			a.ID, title, a.Portal, topic, a.URL)
	}
}
