// Package extract turns fetched documents into article titles and body text.
// Portals with known markup get dedicated selector extractors; everything
// else goes through readability.
package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"
)

// Extraction is the text pulled from one article page.
type Extraction struct {
	Title string
	Body  string
}

// Extractor pulls article text from a parsed document.
type Extractor interface {
	Extract(doc *goquery.Document) Extraction
}

// Registry maps portal ids to their extractors.
type Registry struct {
	extractors map[string]Extractor
	fallback   Extractor
}

// NewRegistry builds a registry whose Lookup falls back to readability for
// portals without a dedicated extractor.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		extractors: make(map[string]Extractor),
		fallback:   &ReadabilityExtractor{logger: logger},
	}
}

// Register binds an extractor to a portal id.
func (r *Registry) Register(portal string, ex Extractor) {
	r.extractors[portal] = ex
}

// Has reports whether a dedicated extractor exists for portal. Used at
// startup to cross-check the portal registry.
func (r *Registry) Has(portal string) bool {
	_, ok := r.extractors[portal]
	return ok
}

// Lookup returns the extractor for portal, or the readability fallback.
func (r *Registry) Lookup(portal string) Extractor {
	if ex, ok := r.extractors[portal]; ok {
		return ex
	}
	return r.fallback
}

// minBodyRunes is the floor below which extracted text is treated as noise.
const minBodyRunes = 100

// SelectorExtractor pulls text using portal-specific CSS selectors. Strip
// removes portal chrome before the body candidates are tried in order.
type SelectorExtractor struct {
	Strip          string
	BodyCandidates []string
}

func (e *SelectorExtractor) Extract(doc *goquery.Document) Extraction {
	doc.Find("script, style, noscript, iframe").Remove()
	if e.Strip != "" {
		doc.Find(e.Strip).Remove()
	}

	var out Extraction
	for _, sel := range []string{"h1", "h2", "h3", "title"} {
		if t := strings.TrimSpace(doc.Find(sel).First().Text()); t != "" {
			out.Title = t
			break
		}
	}

	for _, sel := range e.BodyCandidates {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		var parts []string
		node.Find("p").Each(func(_ int, p *goquery.Selection) {
			if t := strings.TrimSpace(p.Text()); t != "" {
				parts = append(parts, t)
			}
		})
		body := strings.Join(parts, "\n\n")
		if body == "" {
			body = strings.TrimSpace(node.Text())
		}
		if len([]rune(body)) >= minBodyRunes {
			out.Body = body
			break
		}
	}
	return out
}

// ReadabilityExtractor is the generic fallback built on go-readability.
type ReadabilityExtractor struct {
	logger *zap.Logger
}

func (e *ReadabilityExtractor) Extract(doc *goquery.Document) Extraction {
	html, err := doc.Html()
	if err != nil {
		e.logger.Warn("serialize document for readability", zap.Error(err))
		return Extraction{}
	}

	pageURL := doc.Url
	if pageURL == nil {
		pageURL, _ = url.Parse("https://localhost/")
	}
	article, err := readability.FromReader(strings.NewReader(html), pageURL)
	if err != nil {
		e.logger.Debug("readability gave up", zap.Error(err))
		return Extraction{}
	}

	out := Extraction{Title: strings.TrimSpace(article.Title)}
	body := strings.TrimSpace(article.TextContent)
	if len([]rune(body)) >= minBodyRunes {
		out.Body = body
	}
	return out
}
