// Package pipeline drives one harvest cycle end to end: collect feed
// candidates, fetch and extract article pages, classify, and store.
package pipeline

import (
	"context"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"newsharvester/internal/classify"
	"newsharvester/internal/collect"
	"newsharvester/internal/config"
	"newsharvester/internal/extract"
	"newsharvester/internal/fetcher"
	"newsharvester/internal/metrics"
	"newsharvester/internal/store"
)

// Stats tallies one portal's outcomes within a cycle.
type Stats struct {
	Total   int
	Saved   int
	Skipped int
}

// Pipeline wires the collector, fetch coordinator, extractors, classifier,
// and store into a single processing loop.
type Pipeline struct {
	collector  *collect.Collector
	coord      *fetcher.Coordinator
	extractors *extract.Registry
	store      *store.Store
	portals    map[string]config.Portal
	logger     *zap.Logger
}

// New builds a Pipeline.
func New(
	collector *collect.Collector,
	coord *fetcher.Coordinator,
	extractors *extract.Registry,
	st *store.Store,
	portals map[string]config.Portal,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		collector:  collector,
		coord:      coord,
		extractors: extractors,
		store:      st,
		portals:    portals,
		logger:     logger,
	}
}

// RunCycle executes one full harvest pass and returns per-portal stats.
func (p *Pipeline) RunCycle(ctx context.Context) map[string]Stats {
	runID := uuid.NewString()
	log := p.logger.With(zap.String("run_id", runID))
	log.Info("harvest cycle starting")

	candidates := p.collector.Collect(ctx)
	stats := make(map[string]Stats)

	for _, cand := range candidates {
		if ctx.Err() != nil {
			log.Warn("cycle interrupted", zap.Error(ctx.Err()))
			break
		}
		st := stats[cand.Portal]
		st.Total++
		if p.processItem(ctx, log, cand) {
			st.Saved++
		} else {
			st.Skipped++
		}
		stats[cand.Portal] = st
	}

	for portal, st := range stats {
		log.Info("portal summary",
			zap.String("portal", portal),
			zap.Int("total", st.Total),
			zap.Int("saved", st.Saved),
			zap.Int("skipped", st.Skipped))
	}
	log.Info("harvest cycle finished")
	return stats
}

// processItem fetches, extracts, classifies, and stores one candidate.
// Returns true when a new row was written.
func (p *Pipeline) processItem(ctx context.Context, log *zap.Logger, cand collect.Candidate) bool {
	title := cand.Title
	body := ""

	doc := p.coord.Resolve(ctx, cand.Portal, cand.URL)
	if doc != nil {
		ext := p.extractors.Lookup(cand.Portal).Extract(doc)
		if ext.Title != "" {
			title = ext.Title
		}
		body = ext.Body
	}

	// rss_only portals and failed fetches still yield a feed-derived row.
	if title == "" {
		title = deriveTitle(cand)
	}
	if body == "" {
		body = strings.TrimSpace(cand.Summary)
	}
	if title == "" && body == "" {
		log.Debug("no usable text, skipping", zap.String("url", cand.URL))
		return false
	}

	topic := classify.Classify(cand.Portal, cand.URL, title, body)

	saved, err := p.store.InsertArticle(cand.Portal, cand.URL, title, body, topic, cand.Published)
	if err != nil {
		log.Error("store failed", zap.String("url", cand.URL), zap.Error(err))
		return false
	}
	if saved {
		metrics.TotalArticlesSaved.Inc()
	} else {
		metrics.TotalDuplicates.Inc()
	}
	return saved
}

// deriveTitle recovers a headline when neither the page nor the feed offers
// one: summary first, then a beautified URL slug.
func deriveTitle(cand collect.Candidate) string {
	if s := strings.TrimSpace(cand.Summary); s != "" {
		if r := []rune(s); len(r) > 120 {
			return string(r[:120])
		}
		return s
	}
	return titleFromSlug(cand.URL)
}

func titleFromSlug(rawURL string) string {
	trimmed := strings.TrimRight(rawURL, "/")
	slug := trimmed[strings.LastIndex(trimmed, "/")+1:]
	if i := strings.IndexAny(slug, "?#"); i >= 0 {
		slug = slug[:i]
	}
	slug = strings.TrimSuffix(slug, ".html")
	slug = strings.NewReplacer("-", " ", "_", " ").Replace(slug)
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return ""
	}

	words := strings.Fields(slug)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
