package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"newsharvester/internal/collect"
	"newsharvester/internal/config"
	"newsharvester/internal/extract"
	"newsharvester/internal/fetcher"
	"newsharvester/internal/state"
	"newsharvester/internal/store"
)

type stubFetcher struct {
	pages map[string]string
	calls int
}

func (s *stubFetcher) Fetch(_ context.Context, rawURL string) fetcher.Result {
	s.calls++
	html, ok := s.pages[rawURL]
	if !ok {
		return fetcher.Result{StatusCode: 404, FinalURL: rawURL, Blocked: true}
	}
	return fetcher.Result{HTML: html, StatusCode: 200, FinalURL: rawURL}
}

func articleHTML(headline string) string {
	var b strings.Builder
	b.WriteString("<html><body><h1>" + headline + "</h1><div class=\"content\">")
	for i := 0; i < 4; i++ {
		b.WriteString("<p>The committee discussed the matter at length and reached a decision.</p>")
	}
	b.WriteString("</div></body></html>")
	return b.String()
}

func feedXML(items ...[2]string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel><title>t</title>`)
	for _, it := range items {
		fmt.Fprintf(&b,
			`<item><title>%s</title><link>%s</link><description>Feed summary for %s.</description></item>`,
			it[0], it[1], it[0])
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

type testEnv struct {
	pipe  *Pipeline
	store *store.Store
	http  *stubFetcher
}

func newTestEnv(t *testing.T, mode string, feed string, pages map[string]string) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	dir := t.TempDir()

	feedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feed))
	}))
	t.Cleanup(feedSrv.Close)

	st, err := store.Open(filepath.Join(dir, "news.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	registry := state.Open(filepath.Join(dir, "seen.json"), logger)
	collector := collect.New(
		[]collect.Source{{Portal: "testportal", URLs: []string{feedSrv.URL}}},
		registry, 5*time.Second, logger)

	httpF := &stubFetcher{pages: pages}
	coord := fetcher.NewCoordinator(
		map[string]fetcher.Policy{"testportal": {Mode: mode}},
		httpF, fetcher.NewRendererSource(nil, logger), 10, logger)

	extractors := extract.NewRegistry(logger)
	extractors.Register("testportal", &extract.SelectorExtractor{
		BodyCandidates: []string{"div.content"},
	})

	portals := map[string]config.Portal{
		"testportal": {
			RSS:        []string{feedSrv.URL},
			Enabled:    true,
			ScrapeMode: mode,
			Language:   "english",
			Country:    "bd",
		},
	}

	pipe := New(collector, coord, extractors, st, portals, logger)
	return &testEnv{pipe: pipe, store: st, http: httpF}
}

func TestRunCycleStoresArticles(t *testing.T) {
	feed := feedXML(
		[2]string{"Budget approved", "https://example.com/politics/budget"},
		[2]string{"Cricket series win", "https://example.com/sports/cricket"},
	)
	env := newTestEnv(t, fetcher.ModeSimple, feed, map[string]string{
		"https://example.com/politics/budget": articleHTML("Budget approved by parliament"),
		"https://example.com/sports/cricket":  articleHTML("Cricket series sealed"),
	})

	stats := env.pipe.RunCycle(context.Background())
	require.Equal(t, Stats{Total: 2, Saved: 2, Skipped: 0}, stats["testportal"])
	require.Equal(t, 2, env.http.calls)

	a, err := env.store.GetByURL("https://example.com/politics/budget")
	require.NoError(t, err)
	require.NotNil(t, a)
	// Extracted page title beats the feed title.
	require.Equal(t, "Budget approved by parliament", *a.Title)
	require.Contains(t, *a.Content, "committee discussed")
	// URL section decides the topic.
	require.Equal(t, "politics", *a.Topic)
	require.Equal(t, "testportal", a.Portal)
}

func TestRunCycleSecondPassSavesNothing(t *testing.T) {
	feed := feedXML([2]string{"One story", "https://example.com/news/one"})
	env := newTestEnv(t, fetcher.ModeSimple, feed, map[string]string{
		"https://example.com/news/one": articleHTML("One story"),
	})

	stats := env.pipe.RunCycle(context.Background())
	require.Equal(t, 1, stats["testportal"].Saved)

	stats = env.pipe.RunCycle(context.Background())
	require.Zero(t, stats["testportal"].Total)
}

func TestRunCycleRSSOnlyStoresFeedData(t *testing.T) {
	feed := feedXML([2]string{"Feed headline", "https://example.com/news/feed-item"})
	env := newTestEnv(t, fetcher.ModeRSSOnly, feed, nil)

	stats := env.pipe.RunCycle(context.Background())
	require.Equal(t, 1, stats["testportal"].Saved)
	require.Zero(t, env.http.calls)

	a, err := env.store.GetByURL("https://example.com/news/feed-item")
	require.NoError(t, err)
	require.Equal(t, "Feed headline", *a.Title)
	require.Contains(t, *a.Content, "Feed summary")
}

func TestRunCycleFailedFetchFallsBackToFeed(t *testing.T) {
	feed := feedXML([2]string{"Unreachable story", "https://example.com/news/gone"})
	env := newTestEnv(t, fetcher.ModeSimple, feed, nil) // fetcher knows no pages

	stats := env.pipe.RunCycle(context.Background())
	require.Equal(t, 1, stats["testportal"].Saved)

	a, err := env.store.GetByURL("https://example.com/news/gone")
	require.NoError(t, err)
	require.Equal(t, "Unreachable story", *a.Title)
}

func TestBackfillTopics(t *testing.T) {
	env := newTestEnv(t, fetcher.ModeRSSOnly, feedXML(), nil)

	_, err := env.store.InsertArticle("p", "https://example.com/sports/game",
		"Final match tonight", "", "", "")
	require.NoError(t, err)
	_, err = env.store.InsertArticle("p", "https://example.com/misc",
		"Mystery item", "", "", "")
	require.NoError(t, err)

	n, err := env.pipe.BackfillTopics(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)

	a, err := env.store.GetByURL("https://example.com/sports/game")
	require.NoError(t, err)
	require.Equal(t, "sports", *a.Topic)

	b, err := env.store.GetByURL("https://example.com/misc")
	require.NoError(t, err)
	require.Equal(t, "other", *b.Topic)

	// Nothing left to label.
	n, err = env.pipe.BackfillTopics(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestTitleFromSlug(t *testing.T) {
	cases := []struct {
		url, want string
	}{
		{"https://example.com/news/budget-approved-today", "Budget Approved Today"},
		{"https://example.com/news/big_story.html", "Big Story"},
		{"https://example.com/news/story-one?ref=home", "Story One"},
		{"https://example.com/", ""},
	}
	for _, c := range cases {
		require.Equal(t, c.want, titleFromSlug(c.url), c.url)
	}
}

func TestDeriveTitlePrefersSummary(t *testing.T) {
	got := deriveTitle(collect.Candidate{
		URL:     "https://example.com/news/some-slug",
		Summary: "A short summary headline.",
	})
	require.Equal(t, "A short summary headline.", got)

	got = deriveTitle(collect.Candidate{URL: "https://example.com/news/some-slug"})
	require.Equal(t, "Some Slug", got)
}

func TestDeriveTitleTruncatesLongSummary(t *testing.T) {
	long := strings.Repeat("word ", 50)
	got := deriveTitle(collect.Candidate{URL: "https://example.com/a", Summary: long})
	require.Len(t, []rune(got), 120)
}
