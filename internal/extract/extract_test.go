package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func docFrom(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func paragraphs(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString("<p>A reasonably long paragraph of article text for testing purposes.</p>")
	}
	return b.String()
}

func TestSelectorExtractorBasic(t *testing.T) {
	html := `<html><head><title>Page Title</title></head><body>
		<h1>Real Headline</h1>
		<script>var x = 1;</script>
		<div class="article-content">` + paragraphs(3) + `</div>
	</body></html>`

	ex := &SelectorExtractor{BodyCandidates: []string{"div.article-content"}}
	got := ex.Extract(docFrom(t, html))

	require.Equal(t, "Real Headline", got.Title)
	require.Contains(t, got.Body, "reasonably long paragraph")
	require.NotContains(t, got.Body, "var x")
	// Paragraphs are joined with blank lines.
	require.Equal(t, 2, strings.Count(got.Body, "\n\n"))
}

func TestSelectorExtractorTitleFallbackChain(t *testing.T) {
	ex := &SelectorExtractor{BodyCandidates: []string{"article"}}

	got := ex.Extract(docFrom(t, `<html><head><title>Tab Title</title></head>
		<body><h3>Sub Headline</h3><article>`+paragraphs(2)+`</article></body></html>`))
	require.Equal(t, "Sub Headline", got.Title)

	got = ex.Extract(docFrom(t, `<html><head><title>Tab Title</title></head>
		<body><article>`+paragraphs(2)+`</article></body></html>`))
	require.Equal(t, "Tab Title", got.Title)
}

func TestSelectorExtractorStripRemovesChrome(t *testing.T) {
	html := `<html><body><h1>H</h1><div class="content">
		<div class="related">` + paragraphs(5) + `</div>` + paragraphs(3) + `
	</div></body></html>`

	ex := &SelectorExtractor{
		Strip:          ".related",
		BodyCandidates: []string{"div.content"},
	}
	got := ex.Extract(docFrom(t, html))
	require.Equal(t, 2, strings.Count(got.Body, "\n\n"))
}

func TestSelectorExtractorCandidateOrder(t *testing.T) {
	html := `<html><body><h1>H</h1>
		<div class="primary"><p>too short</p></div>
		<div class="secondary">` + paragraphs(3) + `</div>
	</body></html>`

	ex := &SelectorExtractor{BodyCandidates: []string{"div.primary", "div.secondary"}}
	got := ex.Extract(docFrom(t, html))
	require.Contains(t, got.Body, "reasonably long paragraph")
}

func TestSelectorExtractorShortBodyDropped(t *testing.T) {
	html := `<html><body><h1>H</h1><div class="content"><p>tiny</p></div></body></html>`

	ex := &SelectorExtractor{BodyCandidates: []string{"div.content"}}
	got := ex.Extract(docFrom(t, html))
	require.Equal(t, "H", got.Title)
	require.Empty(t, got.Body)
}

func TestRegistryLookupFallsBack(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	dedicated := &SelectorExtractor{BodyCandidates: []string{"article"}}
	r.Register("known", dedicated)

	require.True(t, r.Has("known"))
	require.False(t, r.Has("unknown"))
	require.Same(t, Extractor(dedicated), r.Lookup("known"))

	_, isFallback := r.Lookup("unknown").(*ReadabilityExtractor)
	require.True(t, isFallback)
}

func TestDefaultRegistryCoversKnownPortals(t *testing.T) {
	r := DefaultRegistry(zap.NewNop())
	for _, portal := range []string{
		"risingbd", "deshrupantor", "ittefaq", "samakal",
		"banglatribune", "bbc_bangla", "jagonews24",
	} {
		require.True(t, r.Has(portal), portal)
	}
}

func TestReadabilityExtractor(t *testing.T) {
	html := `<html><head><title>Fallback Story</title></head><body>
		<nav>menu menu menu</nav>
		<article><h1>Fallback Story</h1>` + paragraphs(8) + `</article>
		<footer>copyright</footer>
	</body></html>`

	ex := &ReadabilityExtractor{logger: zap.NewNop()}
	got := ex.Extract(docFrom(t, html))
	require.NotEmpty(t, got.Title)
	require.Contains(t, got.Body, "reasonably long paragraph")
}
