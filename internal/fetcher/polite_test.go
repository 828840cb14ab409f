package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestPolite(t *testing.T) (*Polite, *[]time.Duration) {
	t.Helper()
	f := NewPolite(PoliteConfig{
		Timeout:    2 * time.Second,
		MaxRetries: 3,
	}, zap.NewNop())

	var backoffs []time.Duration
	f.backoff = func(d time.Duration) { backoffs = append(backoffs, d) }
	f.pacer.sleep = func(time.Duration) {}
	return f, &backoffs
}

func TestPoliteFetchSuccess(t *testing.T) {
	page := "<html><body><h1>Headline</h1><p>Body text.</p></body></html>"
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(page))
	}))
	defer srv.Close()

	f, backoffs := newTestPolite(t)
	res := f.Fetch(context.Background(), srv.URL+"/article")

	require.False(t, res.Blocked)
	require.Equal(t, 200, res.StatusCode)
	require.Equal(t, page, res.HTML)
	require.Empty(t, *backoffs)
	require.Contains(t, gotUA, "Mozilla/5.0")
	require.Contains(t, gotAccept, "text/html")
}

func TestPoliteFetchRotatesUserAgents(t *testing.T) {
	var agents []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents = append(agents, r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f, _ := newTestPolite(t)
	next := 0
	f.pickUA = func(n int) int {
		i := next % n
		next++
		return i
	}

	res := f.Fetch(context.Background(), srv.URL)
	require.True(t, res.Blocked)
	require.Len(t, agents, 3)
	require.NotEqual(t, agents[0], agents[1])
	require.NotEqual(t, agents[1], agents[2])
}

func TestPoliteFetchRetriesForbiddenThenGivesUp(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f, backoffs := newTestPolite(t)
	res := f.Fetch(context.Background(), srv.URL)

	require.True(t, res.Blocked)
	require.Equal(t, http.StatusForbidden, res.StatusCode)
	require.Equal(t, 3, hits)
	// 5s, 10s, 15s: the 403 ladder.
	require.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second, 15 * time.Second}, *backoffs)
}

func TestPoliteFetchHonorsRetryAfter(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("<html><body>fine now</body></html>"))
	}))
	defer srv.Close()

	f, backoffs := newTestPolite(t)
	res := f.Fetch(context.Background(), srv.URL)

	require.False(t, res.Blocked)
	require.Equal(t, 200, res.StatusCode)
	require.Equal(t, []time.Duration{7 * time.Second}, *backoffs)
}

func TestPoliteFetchBlockPageStopsImmediately(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("<html><title>Just a moment...</title></html>"))
	}))
	defer srv.Close()

	f, backoffs := newTestPolite(t)
	res := f.Fetch(context.Background(), srv.URL)

	require.True(t, res.Blocked)
	require.Equal(t, 200, res.StatusCode)
	require.Empty(t, res.HTML)
	require.Equal(t, 1, hits)
	require.Empty(t, *backoffs)
}

func TestPoliteFetchRetriesServerErrors(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("<html><body>recovered</body></html>"))
	}))
	defer srv.Close()

	f, backoffs := newTestPolite(t)
	res := f.Fetch(context.Background(), srv.URL)

	require.False(t, res.Blocked)
	require.True(t, strings.Contains(res.HTML, "recovered"))
	// 2s, 4s: the generic ladder.
	require.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, *backoffs)
}

func TestPoliteFetchCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("never reached"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f, _ := newTestPolite(t)
	res := f.Fetch(ctx, srv.URL)
	require.True(t, res.Blocked)
}
