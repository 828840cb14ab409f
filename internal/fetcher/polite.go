package fetcher

import (
	"context"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"newsharvester/internal/metrics"
)

// Rotating User-Agent pool. A fresh agent is drawn per attempt so repeated
// requests do not present a consistent fingerprint.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 " +
		"(KHTML, like Gecko) Version/17.0 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/118.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:119.0) Gecko/20100101 Firefox/119.0",
}

// PoliteConfig controls the HTTP fetcher.
type PoliteConfig struct {
	Timeout    time.Duration
	MinDelay   time.Duration
	MaxDelay   time.Duration
	MaxRetries int
}

// Polite is a single-site-at-a-time HTTP fetcher built on Colly. It paces
// requests per domain, rotates User-Agents, retries transient failures with
// backoff, and recognizes block pages. It never fails loudly: exhausting
// retries yields Result{Blocked: true}.
type Polite struct {
	cfg      PoliteConfig
	base     *colly.Collector
	pacer    *Pacer
	detector *BlockDetector
	logger   *zap.Logger

	pickUA  func(n int) int
	backoff func(time.Duration)
}

// NewPolite constructs a configured HTTP fetcher.
func NewPolite(cfg PoliteConfig, logger *zap.Logger) *Polite {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	base := colly.NewCollector(colly.Async(false))
	base.AllowURLRevisit = true
	base.IgnoreRobotsTxt = true
	base.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		// Connect and read budgets are separate; header timeout covers read.
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		MaxIdleConns:          64,
		IdleConnTimeout:       90 * time.Second,
	})
	base.SetRequestTimeout(cfg.Timeout)

	return &Polite{
		cfg:      cfg,
		base:     base,
		pacer:    NewPacer(cfg.MinDelay, cfg.MaxDelay),
		detector: NewBlockDetector(),
		logger:   logger,
		pickUA:   rand.Intn,
		backoff:  time.Sleep,
	}
}

type attempt struct {
	status     int
	body       string
	finalURL   string
	retryAfter string
	err        error
}

// Fetch retrieves rawURL, retrying up to the configured maximum. Redirect
// statuses are returned as-is; the underlying client already follows
// redirects, so one surfacing here is the caller's decision to make.
func (f *Polite) Fetch(ctx context.Context, rawURL string) Result {
	host := hostOf(rawURL)
	f.pacer.Wait(host)

	lastStatus := 0
	for n := 1; n <= f.cfg.MaxRetries; n++ {
		if ctx.Err() != nil {
			break
		}

		f.logger.Info("GET",
			zap.String("url", rawURL),
			zap.Int("attempt", n),
			zap.Int("max", f.cfg.MaxRetries))
		metrics.TotalRequests.Inc()

		at := f.doAttempt(rawURL)
		f.pacer.Touch(host)

		if at.err != nil {
			metrics.TotalRequestErrors.Inc()
			f.logger.Warn("request error", zap.String("url", rawURL), zap.Error(at.err))
			f.backoff(time.Duration(2*n) * time.Second)
			continue
		}
		lastStatus = at.status

		switch {
		case at.status >= 300 && at.status < 400:
			return Result{HTML: at.body, StatusCode: at.status, FinalURL: at.finalURL}

		case at.status == http.StatusOK:
			if f.detector.Hit(at.body) {
				metrics.TotalBlockPages.Inc()
				f.logger.Warn("suspected block page", zap.String("url", rawURL))
				return Result{StatusCode: at.status, FinalURL: at.finalURL, Blocked: true}
			}
			return Result{HTML: at.body, StatusCode: at.status, FinalURL: at.finalURL}

		case at.status == http.StatusForbidden || at.status == http.StatusTooManyRequests:
			if at.status == http.StatusForbidden {
				metrics.TotalForbiddenHits.Inc()
			} else {
				metrics.TotalRateLimitHits.Inc()
			}
			if secs, err := strconv.Atoi(at.retryAfter); err == nil && secs > 0 {
				f.logger.Warn("honoring Retry-After",
					zap.Int("seconds", secs), zap.String("url", rawURL))
				f.backoff(time.Duration(secs) * time.Second)
			} else {
				f.backoff(time.Duration(5*n) * time.Second)
			}

		default:
			f.logger.Warn("unexpected status, retrying",
				zap.Int("status", at.status), zap.String("url", rawURL))
			f.backoff(time.Duration(2*n) * time.Second)
		}
	}

	f.logger.Error("giving up",
		zap.String("url", rawURL), zap.Int("attempts", f.cfg.MaxRetries))
	return Result{StatusCode: lastStatus, FinalURL: rawURL, Blocked: true}
}

func (f *Polite) doAttempt(rawURL string) attempt {
	c := f.base.Clone()
	c.AllowURLRevisit = true
	c.IgnoreRobotsTxt = true
	c.SetRequestTimeout(f.cfg.Timeout)

	var at attempt
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", userAgents[f.pickUA(len(userAgents))])
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.5")
	})
	c.OnResponse(func(r *colly.Response) {
		at = attempt{
			status:   r.StatusCode,
			body:     string(r.Body),
			finalURL: r.Request.URL.String(),
		}
		if r.Headers != nil {
			at.retryAfter = r.Headers.Get("Retry-After")
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		// Colly routes non-2xx responses here; the response still carries
		// the status we need for retry and escalation decisions.
		if r != nil && r.StatusCode != 0 {
			at = attempt{
				status:   r.StatusCode,
				body:     string(r.Body),
				finalURL: r.Request.URL.String(),
			}
			if r.Headers != nil {
				at.retryAfter = r.Headers.Get("Retry-After")
			}
			return
		}
		at.err = err
	})

	if err := c.Visit(rawURL); err != nil && at.status == 0 && at.err == nil {
		at.err = err
	}
	c.Wait()
	return at
}
