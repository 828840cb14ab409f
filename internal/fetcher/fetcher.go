// Package fetcher implements the layered article fetching strategy: a polite
// HTTP fetcher, an escalation coordinator, and the shared pacing and
// block-detection helpers both fetch paths rely on.
package fetcher

import (
	"context"
	"net/url"
	"strings"
)

// Result is the outcome of a fetch. Blocked reports that the target refused
// to serve real content (anti-bot page, block status, or retry exhaustion);
// it never accompanies usable HTML from the HTTP path, but the rendering
// path may return partial HTML alongside it.
type Result struct {
	HTML       string
	StatusCode int
	FinalURL   string
	Blocked    bool
}

// PageFetcher fetches one URL and reports the outcome. Implementations never
// return an error: every failure degrades to Result{Blocked: true}.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) Result
}

// RenderSession is a PageFetcher backed by a long-lived browser session.
// Close tears the session down and must be safe to call more than once.
type RenderSession interface {
	PageFetcher
	Close()
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
