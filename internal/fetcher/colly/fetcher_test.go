package collyfetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/webscout/webscout/internal/clock/system"
	"github.com/webscout/webscout/internal/scout"
)

func newTestFetcher() *Fetcher {
	return New(Config{UserAgent: "scout-test/1.0"}, nil, system.New())
}

func TestFetch_ReturnsBodyAndSendsUserAgent(t *testing.T) {
	t.Parallel()

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("<html>hello</html>"))
	}))
	defer srv.Close()

	f := newTestFetcher()
	res, err := f.Fetch(context.Background(), scout.FetchRequest{URL: srv.URL, Timeout: 2 * time.Second})
	require.NoError(t, err)
	require.True(t, res.StatusOK)
	require.Equal(t, "<html>hello</html>", res.Body)
	require.Equal(t, "scout-test/1.0", gotUA)
	require.False(t, res.FetchedAt.IsZero())
}

func TestFetch_StatusErrorKind(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := newTestFetcher()
	_, err := f.Fetch(context.Background(), scout.FetchRequest{URL: srv.URL, Timeout: 2 * time.Second})
	require.Error(t, err)

	var fe *scout.FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, scout.KindStatus, fe.Kind)
	require.Equal(t, http.StatusNotFound, fe.StatusCode)
}

func TestFetch_NetworkErrorKind(t *testing.T) {
	t.Parallel()

	f := newTestFetcher()
	_, err := f.Fetch(context.Background(), scout.FetchRequest{
		URL:     "http://127.0.0.1:1/unreachable",
		Timeout: 2 * time.Second,
	})
	require.Error(t, err)

	var fe *scout.FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, scout.KindNetwork, fe.Kind)
}

func TestFetch_TimeoutKind(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(3 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	f := newTestFetcher()
	start := time.Now()
	_, err := f.Fetch(context.Background(), scout.FetchRequest{URL: srv.URL, Timeout: 200 * time.Millisecond})
	require.Error(t, err)
	require.Less(t, time.Since(start), 2*time.Second, "timeout must abort the in-flight request")

	var fe *scout.FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, scout.KindTimeout, fe.Kind)
}

func TestHTTPFallbackURL(t *testing.T) {
	t.Parallel()

	fallback, ok := httpFallbackURL("https://example.com/deep/path?q=1")
	require.True(t, ok)
	require.Equal(t, "http://example.com", fallback)

	_, ok = httpFallbackURL("http://example.com/")
	require.False(t, ok, "http URLs get no fallback")

	_, ok = httpFallbackURL("not a url")
	require.False(t, ok)
}
