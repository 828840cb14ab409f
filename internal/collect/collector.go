// Package collect pulls configured RSS/Atom feeds, normalizes their entries,
// and yields candidate articles not seen in any previous run.
package collect

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"newsharvester/internal/state"
)

const feedUserAgent = "newsharvester/1.0 (news aggregator)"

// Candidate is a feed entry that survived deduplication and is ready for
// article fetching.
type Candidate struct {
	Portal    string
	URL       string
	Title     string
	Summary   string
	Published string // RFC 3339 when parseable, else the raw feed value
}

// Entry is a normalized feed item before deduplication.
type Entry struct {
	Link      string
	Title     string
	Summary   string
	Published string
}

// Source names a portal and its feed URLs.
type Source struct {
	Portal string
	URLs   []string
}

// Collector fetches and parses feeds. Feeds are not article HTML: they get
// their own plain HTTP client and no block-page heuristics.
type Collector struct {
	sources  []Source
	registry *state.Registry
	client   *http.Client
	parser   *gofeed.Parser
	logger   *zap.Logger
}

// New builds a Collector over the given sources.
func New(sources []Source, registry *state.Registry, timeout time.Duration, logger *zap.Logger) *Collector {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Collector{
		sources:  sources,
		registry: registry,
		client:   &http.Client{Timeout: timeout},
		parser:   gofeed.NewParser(),
		logger:   logger,
	}
}

// Collect runs one pass over every configured feed and returns the new
// candidates. A URL is marked seen the moment it is yielded; items that fail
// downstream are not retried on the next pass.
func (c *Collector) Collect(ctx context.Context) []Candidate {
	var results []Candidate

	for _, src := range c.sources {
		if len(src.URLs) == 0 {
			c.logger.Info("skipping portal with no feeds", zap.String("portal", src.Portal))
			continue
		}
		for _, feedURL := range src.URLs {
			entries, err := c.FetchFeed(ctx, feedURL)
			if err != nil {
				c.logger.Error("feed failed, skipping",
					zap.String("portal", src.Portal),
					zap.String("feed", feedURL),
					zap.Error(err))
				continue
			}
			if len(entries) == 0 {
				c.logger.Warn("feed returned no entries", zap.String("feed", feedURL))
			}
			for _, e := range entries {
				if c.registry.Seen(e.Link) {
					continue
				}
				c.registry.Mark(e.Link)
				results = append(results, Candidate{
					Portal:    src.Portal,
					URL:       e.Link,
					Title:     e.Title,
					Summary:   e.Summary,
					Published: e.Published,
				})
			}
		}
	}

	c.logger.Info("feed collection finished", zap.Int("new_items", len(results)))
	return results
}

// FetchFeed downloads and parses a single feed. Malformed feeds return an
// error for the caller to log and skip.
func (c *Collector) FetchFeed(ctx context.Context, feedURL string) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("User-Agent", feedUserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch feed: unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read feed body: %w", err)
	}

	feed, err := c.parser.ParseString(cleanFeedText(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	entries := make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		link := strings.TrimSpace(item.Link)
		if link == "" {
			link = strings.TrimSpace(item.GUID)
		}
		if link == "" {
			continue
		}
		entries = append(entries, Entry{
			Link:      link,
			Title:     strings.TrimSpace(item.Title),
			Summary:   strings.TrimSpace(item.Description),
			Published: resolveDate(item),
		})
	}
	return entries, nil
}

// resolveDate prefers structured timestamps, then raw text fields.
func resolveDate(item *gofeed.Item) string {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.Format(time.RFC3339)
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.Format(time.RFC3339)
	}
	if item.Published != "" {
		return item.Published
	}
	return item.Updated
}

// Broken HTML entities that commonly leak into feed XML and break parsers.
var entityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&ensp;", " ",
	"&emsp;", " ",
	"&mdash;", "-",
	"&ndash;", "-",
	"&lsquo;", "'",
	"&rsquo;", "'",
	"&ldquo;", `"`,
	"&rdquo;", `"`,
)

func cleanFeedText(text string) string {
	return entityReplacer.Replace(text)
}
