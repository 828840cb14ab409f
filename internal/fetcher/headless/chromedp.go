// Package headless implements the rendering fetcher on top of chromedp and
// headless Chrome. The browser session is created once and reused for the
// life of the process; per-request work happens in short-lived tabs.
package headless

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	fetchproto "github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"newsharvester/internal/fetcher"
)

// Resource types aborted at the network layer. Dropping them cuts page load
// time and bandwidth without touching article markup.
var blockedResources = map[network.ResourceType]struct{}{
	network.ResourceTypeImage:      {},
	network.ResourceTypeMedia:      {},
	network.ResourceTypeFont:       {},
	network.ResourceTypeStylesheet: {},
}

// Config controls the rendering fetcher.
type Config struct {
	NavTimeout time.Duration
	MinDelay   time.Duration
	MaxDelay   time.Duration
	MaxRetries int
	Scroll     bool
}

// Renderer fetches pages through a shared headless browser session.
type Renderer struct {
	cfg       Config
	userAgent string

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	pacer    *fetcher.Pacer
	detector *fetcher.BlockDetector
	logger   *zap.Logger

	closeOnce sync.Once
	backoff   func(time.Duration)
}

// New launches the browser session and verifies it is usable. Startup cost
// is paid once here, not per request.
func New(cfg Config, logger *zap.Logger) (*Renderer, error) {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 15 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	logger.Info("headless browser session started")
	return &Renderer{
		cfg:           cfg,
		userAgent:     renderUserAgents[rand.Intn(len(renderUserAgents))],
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		pacer:         fetcher.NewPacer(cfg.MinDelay, cfg.MaxDelay),
		detector:      fetcher.NewBrowserBlockDetector(),
		logger:        logger,
		backoff:       time.Sleep,
	}, nil
}

// Close tears down the browser session. Idempotent; registered for process
// shutdown.
func (r *Renderer) Close() {
	r.closeOnce.Do(func() {
		r.logger.Info("shutting down headless browser")
		r.browserCancel()
		r.allocCancel()
	})
}

// Fetch navigates rawURL in a fresh tab, waits for the page to settle,
// optionally scrolls to trigger lazy-loaded content, and snapshots the DOM.
// Exhausting retries returns Result{Blocked: true}.
func (r *Renderer) Fetch(ctx context.Context, rawURL string) fetcher.Result {
	host := hostOf(rawURL)
	r.pacer.Wait(host)

	for n := 1; n <= r.cfg.MaxRetries; n++ {
		if ctx.Err() != nil {
			break
		}
		r.logger.Info("browser GET",
			zap.String("url", rawURL),
			zap.Int("attempt", n),
			zap.Int("max", r.cfg.MaxRetries))

		res, err := r.navigate(rawURL)
		r.pacer.Touch(host)
		if err != nil {
			r.logger.Warn("render failed", zap.String("url", rawURL), zap.Error(err))
			r.backoff(time.Duration(2*n) * time.Second)
			continue
		}

		if r.detector.Hit(res.HTML) {
			r.logger.Warn("browser detected block page", zap.String("url", rawURL))
			r.backoff(time.Duration(3*n) * time.Second)
			continue
		}
		return res
	}

	r.logger.Error("browser giving up",
		zap.String("url", rawURL), zap.Int("attempts", r.cfg.MaxRetries))
	return fetcher.Result{FinalURL: rawURL, Blocked: true}
}

func (r *Renderer) navigate(rawURL string) (fetcher.Result, error) {
	tabCtx, cancelTab := chromedp.NewContext(r.browserCtx)
	defer cancelTab()

	taskCtx, cancelTask := context.WithTimeout(tabCtx, r.cfg.NavTimeout)
	defer cancelTask()

	meta := newResponseMeta()
	chromedp.ListenTarget(tabCtx, func(ev any) {
		switch e := ev.(type) {
		case *fetchproto.EventRequestPaused:
			go r.routeRequest(tabCtx, e)
		case *network.EventResponseReceived:
			meta.capture(e)
		}
	})

	var (
		html     string
		finalURL string
	)
	actions := []chromedp.Action{
		chromedp.ActionFunc(func(ctx context.Context) error {
			if err := network.Enable().Do(ctx); err != nil {
				return fmt.Errorf("enable network domain: %w", err)
			}
			if err := fetchproto.Enable().Do(ctx); err != nil {
				return fmt.Errorf("enable fetch domain: %w", err)
			}
			if err := emulation.SetUserAgentOverride(r.userAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
			return nil
		}),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500 * time.Millisecond),
	}
	if r.cfg.Scroll {
		actions = append(actions,
			chromedp.Evaluate(`window.scrollBy(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(time.Second),
		)
	}
	actions = append(actions,
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)

	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return fetcher.Result{}, fmt.Errorf("chromedp run: %w", err)
	}

	status := meta.status()
	if status == 0 {
		status = 200
	}
	if finalURL == "" {
		finalURL = rawURL
	}
	return fetcher.Result{HTML: html, StatusCode: status, FinalURL: finalURL}, nil
}

// routeRequest aborts non-essential resource loads and continues the rest.
func (r *Renderer) routeRequest(tabCtx context.Context, ev *fetchproto.EventRequestPaused) {
	c := chromedp.FromContext(tabCtx)
	execCtx := cdp.WithExecutor(tabCtx, c.Target)
	if _, blocked := blockedResources[ev.ResourceType]; blocked {
		_ = fetchproto.FailRequest(ev.RequestID, network.ErrorReasonBlockedByClient).Do(execCtx)
		return
	}
	_ = fetchproto.ContinueRequest(ev.RequestID).Do(execCtx)
}

// responseMeta records the main document response status from CDP events.
type responseMeta struct {
	mu         sync.Mutex
	statusCode int
}

func newResponseMeta() *responseMeta {
	return &responseMeta{}
}

func (m *responseMeta) capture(ev *network.EventResponseReceived) {
	if ev.Type != network.ResourceTypeDocument || ev.Response == nil {
		return
	}
	m.mu.Lock()
	m.statusCode = int(ev.Response.Status)
	m.mu.Unlock()
}

func (m *responseMeta) status() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusCode
}

var renderUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0) AppleWebKit/605.1.15 " +
		"(KHTML, like Gecko) Version/17.3 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
