package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"newsharvester/internal/store"
)

// KeywordFilter selects portals and matches feed entries for a keyword run.
type KeywordFilter struct {
	Keywords []string
	Language string
	Country  string
}

// NormalizeKeywords splits a raw query on commas, or treats the whole
// trimmed input as a single phrase when no comma is present.
func NormalizeKeywords(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if !strings.Contains(raw, ",") {
		return []string{raw}
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizeLang(lang string) string {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "en", "eng", "english":
		return "english"
	case "bn", "bengali", "bangla":
		return "bangla"
	default:
		return strings.ToLower(strings.TrimSpace(lang))
	}
}

func normalizeCountry(country string) string {
	switch strings.ToLower(strings.TrimSpace(country)) {
	case "bd", "bangladesh":
		return "bd"
	case "intl", "international", "world":
		return "international"
	default:
		return strings.ToLower(strings.TrimSpace(country))
	}
}

// FetchByKeywords scans the configured feeds for entries matching any of the
// filter's keywords in title or summary and stores the matches in one batch.
// It bypasses the seen registry: a keyword run is a point-in-time query, not
// part of the harvest cadence.
func (p *Pipeline) FetchByKeywords(ctx context.Context, filter KeywordFilter) (int, error) {
	wantLang := normalizeLang(filter.Language)
	wantCountry := normalizeCountry(filter.Country)

	var batch []store.Incoming
	for portalID, portal := range p.portals {
		if wantLang != "" && normalizeLang(portal.Language) != wantLang {
			continue
		}
		if wantCountry != "" && normalizeCountry(portal.Country) != wantCountry {
			continue
		}
		for _, feedURL := range portal.RSS {
			entries, err := p.collector.FetchFeed(ctx, feedURL)
			if err != nil {
				p.logger.Warn("keyword scan: feed failed",
					zap.String("feed", feedURL), zap.Error(err))
				continue
			}
			for _, e := range entries {
				kw, ok := matchKeyword(filter.Keywords, e.Title, e.Summary)
				if !ok {
					continue
				}
				batch = append(batch, store.Incoming{
					URL:        e.Link,
					Title:      e.Title,
					Summary:    e.Summary,
					Source:     portalID,
					Keyword:    kw,
					PubDateRaw: e.Published,
				})
			}
		}
	}

	inserted, err := p.store.InsertBatch(batch)
	if err != nil {
		return 0, err
	}
	p.logger.Info("keyword fetch finished",
		zap.Strings("keywords", filter.Keywords),
		zap.Int("matched", len(batch)),
		zap.Int("inserted", inserted))
	return inserted, nil
}

func matchKeyword(keywords []string, title, summary string) (string, bool) {
	lowTitle := strings.ToLower(title)
	lowSummary := strings.ToLower(summary)
	for _, kw := range keywords {
		low := strings.ToLower(kw)
		if strings.Contains(lowTitle, low) || strings.Contains(lowSummary, low) {
			return kw, true
		}
	}
	return "", false
}
