package fetcher

import (
	"context"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"newsharvester/internal/metrics"
)

// Policy is the per-portal fetch policy consumed by the Coordinator.
type Policy struct {
	Mode        string
	HardDomains []string
}

// Policy modes, mirroring the portal configuration.
const (
	ModeRSSOnly = "rss_only"
	ModeSimple  = "simple"
	ModeBrowser = "browser"
	ModeHybrid  = "hybrid"
)

// Statuses that usually indicate blocking, a WAF, or a struggling backend.
var blockStatuses = map[int]struct{}{
	403: {}, 429: {}, 503: {}, 520: {}, 521: {}, 522: {},
}

// RendererSource resolves the rendering fetcher lazily, exactly once. The
// capability has three states: not yet checked, unavailable (start failed,
// cached), and ready. Unavailability is logged a single time.
type RendererSource struct {
	start  func() (RenderSession, error)
	logger *zap.Logger

	mu       sync.Mutex
	checked  bool
	session  RenderSession
	warnOnce sync.Once
}

// NewRendererSource wraps a renderer constructor. A nil start func means
// rendering is disabled by configuration.
func NewRendererSource(start func() (RenderSession, error), logger *zap.Logger) *RendererSource {
	return &RendererSource{start: start, logger: logger}
}

// Get returns the rendering fetcher, starting it on first call. ok is false
// when rendering is disabled or the engine failed to start.
func (s *RendererSource) Get() (PageFetcher, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.checked {
		s.checked = true
		if s.start != nil {
			session, err := s.start()
			if err != nil {
				s.warnOnce.Do(func() {
					s.logger.Warn("rendering engine unavailable, degrading to HTTP-only fetching",
						zap.Error(err))
				})
			} else {
				s.session = session
			}
		}
	}
	if s.session == nil {
		return nil, false
	}
	return s.session, true
}

// Close tears down the rendering session if one was started. Safe to call
// multiple times; the session's own Close is idempotent.
func (s *RendererSource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		s.session.Close()
	}
}

// Coordinator picks a fetch strategy per request based on portal policy and
// live block signals, escalating one way from HTTP to rendering.
type Coordinator struct {
	policies     map[string]Policy
	httpFetcher  PageFetcher
	renderers    *RendererSource
	minHTMLBytes int
	logger       *zap.Logger
}

// NewCoordinator builds a Coordinator over the given policy table.
func NewCoordinator(
	policies map[string]Policy,
	httpFetcher PageFetcher,
	renderers *RendererSource,
	minHTMLBytes int,
	logger *zap.Logger,
) *Coordinator {
	if minHTMLBytes <= 0 {
		minHTMLBytes = 2000
	}
	return &Coordinator{
		policies:     policies,
		httpFetcher:  httpFetcher,
		renderers:    renderers,
		minHTMLBytes: minHTMLBytes,
		logger:       logger,
	}
}

// Resolve fetches rawURL according to the portal's policy and returns the
// parsed document, or nil when the policy skips fetching or every strategy
// came back empty. Fetch failure is "no content", never an error.
func (c *Coordinator) Resolve(ctx context.Context, portalID, rawURL string) *goquery.Document {
	pol, ok := c.policies[portalID]
	if !ok {
		c.logger.Error("unknown portal", zap.String("portal", portalID))
		return nil
	}

	switch pol.Mode {
	case ModeRSSOnly:
		return nil

	case ModeSimple:
		res := c.httpFetcher.Fetch(ctx, rawURL)
		if res.Blocked || res.HTML == "" {
			return nil
		}
		return parseDoc(res.HTML, c.logger)
	}

	renderer, haveRenderer := c.renderers.Get()

	if pol.Mode == ModeBrowser {
		if !haveRenderer {
			// Degraded: browser-only portals fall back to plain HTTP rather
			// than stalling the whole pipeline.
			res := c.httpFetcher.Fetch(ctx, rawURL)
			return parseDoc(res.HTML, c.logger)
		}
		res := renderer.Fetch(ctx, rawURL)
		return parseDoc(res.HTML, c.logger)
	}

	// Hybrid. Known-hard domains skip the HTTP attempt outright.
	if haveRenderer && isHardDomain(pol.HardDomains, hostOf(rawURL)) {
		c.logger.Info("hard domain, using renderer directly",
			zap.String("portal", portalID), zap.String("url", rawURL))
		res := renderer.Fetch(ctx, rawURL)
		return parseDoc(res.HTML, c.logger)
	}

	res := c.httpFetcher.Fetch(ctx, rawURL)
	if !c.looksBlocked(res) {
		return parseDoc(res.HTML, c.logger)
	}

	if haveRenderer {
		metrics.TotalEscalations.Inc()
		c.logger.Info("escalating to renderer",
			zap.String("url", rawURL), zap.Int("status", res.StatusCode))
		rres := renderer.Fetch(ctx, rawURL)
		// Partial content beats none, even when the renderer also reports
		// blocking.
		return parseDoc(rres.HTML, c.logger)
	}

	// No renderer configured: hand back the suspicious HTTP result anyway.
	return parseDoc(res.HTML, c.logger)
}

// looksBlocked classifies a hybrid-mode HTTP attempt. Short pages are
// disproportionately error or challenge placeholders.
func (c *Coordinator) looksBlocked(res Result) bool {
	if res.Blocked {
		return true
	}
	if _, ok := blockStatuses[res.StatusCode]; ok {
		return true
	}
	if res.StatusCode != 200 {
		return true
	}
	return len(res.HTML) < c.minHTMLBytes
}

func isHardDomain(hard []string, host string) bool {
	for _, d := range hard {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func parseDoc(html string, logger *zap.Logger) *goquery.Document {
	if html == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		logger.Warn("html parse failed", zap.Error(err))
		return nil
	}
	return doc
}
