package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/webscout/webscout/internal/cache"
	"github.com/webscout/webscout/internal/enrich"
	"github.com/webscout/webscout/internal/hash/sha256"
	"github.com/webscout/webscout/internal/preview"
	"github.com/webscout/webscout/internal/proxy"
	"github.com/webscout/webscout/internal/scout"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type fixedIDs struct{ id string }

func (g fixedIDs) NewID() (string, error) { return g.id, nil }

type fakeCrawler struct {
	results map[string]scout.EnrichmentResult
	errs    map[string]error
}

func (c *fakeCrawler) Crawl(_ context.Context, seedURL string) (scout.EnrichmentResult, error) {
	if err, ok := c.errs[seedURL]; ok {
		result := c.results[seedURL]
		return result, err
	}
	if result, ok := c.results[seedURL]; ok {
		return result, nil
	}
	return scout.EnrichmentResult{
		Domain:  scout.Hostname(seedURL),
		Emails:  []string{},
		Socials: []scout.SocialLink{},
		Status:  scout.StatusNone,
	}, nil
}

type fakeFetcher struct {
	pages map[string]string
}

func (f *fakeFetcher) Fetch(_ context.Context, request scout.FetchRequest) (scout.FetchResult, error) {
	body, ok := f.pages[request.URL]
	if !ok {
		return scout.FetchResult{}, scout.NewFetchError(scout.KindNetwork, request.URL, fmt.Errorf("no route"))
	}
	return scout.FetchResult{URL: request.URL, StatusOK: true, Body: body}, nil
}

func newTestServer(crawler Crawler, fetcher scout.Fetcher) *Server {
	clock := fixedClock{now: time.Unix(1700000000, 0).UTC()}
	if fetcher == nil {
		fetcher = &fakeFetcher{}
	}
	pages := cache.New[string](5*time.Minute, clock)
	proxySvc := proxy.New(proxy.Config{Timeout: 12 * time.Second, ProxyPath: "/proxy"}, fetcher, pages, sha256.New(), zap.NewNop())

	var enrichCrawler enrich.Crawler
	if ec, ok := crawler.(enrich.Crawler); ok {
		enrichCrawler = ec
	} else {
		enrichCrawler = &fakeCrawler{}
	}
	orchestrator := enrich.New(enrich.Config{Workers: 2, LightWorkers: 2, LightTimeout: time.Second}, enrichCrawler, fetcher, nil, zap.NewNop())

	return NewServer(
		preview.NewMemoryStore(),
		proxySvc,
		crawler,
		orchestrator,
		fixedIDs{id: "generated-id"},
		clock,
		Config{RequestTimeout: 30 * time.Second, MaxBatchInputs: 500, MaxLightInputs: 50},
		zap.NewNop(),
	)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeCrawler{}, nil)
	rec := doJSON(t, s.Handler(), http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestPreviewLifecycle(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeCrawler{}, nil)
	h := s.Handler()

	rec := doJSON(t, h, http.MethodPost, "/create-preview", map[string]string{
		"website_url":    "https://ex.com",
		"chatbot_script": "<script>x</script>",
		"name":           "Demo",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "generated-id", created["id"])

	rec = doJSON(t, h, http.MethodGet, "/preview/generated-id", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var record preview.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	require.Equal(t, "https://ex.com", record.WebsiteURL)
	require.Equal(t, preview.DefaultCategory, record.Category)

	rec = doJSON(t, h, http.MethodGet, "/previews", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "generated-id")

	rec = doJSON(t, h, http.MethodDelete, "/preview/generated-id", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/preview/generated-id", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreatePreviewValidation(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeCrawler{}, nil)
	rec := doJSON(t, s.Handler(), http.MethodPost, "/create-preview", map[string]string{
		"website_url":    "not-a-url",
		"chatbot_script": "x",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProxyRequiresURL(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeCrawler{}, nil)
	rec := doJSON(t, s.Handler(), http.MethodGet, "/proxy", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProxyRendersWithCachingHeaders(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]string{
		"https://ex.com/": `<head></head><a href="/contact">c</a>`,
	}}
	s := newTestServer(&fakeCrawler{}, fetcher)
	h := s.Handler()

	rec := doJSON(t, h, http.MethodGet, "/proxy?url=https%3A%2F%2Fex.com%2F", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "public, s-maxage=300, stale-while-revalidate=60", rec.Header().Get("Cache-Control"))
	etag := rec.Header().Get("ETag")
	require.True(t, strings.HasPrefix(etag, `W/"`))
	require.Contains(t, rec.Body.String(), `/proxy?url=https%3A%2F%2Fex.com%2Fcontact`)

	req := httptest.NewRequest(http.MethodGet, "/proxy?url=https%3A%2F%2Fex.com%2F", nil)
	req.Header.Set("If-None-Match", etag)
	conditional := httptest.NewRecorder()
	h.ServeHTTP(conditional, req)
	require.Equal(t, http.StatusNotModified, conditional.Code)
	require.Empty(t, conditional.Body.String())
}

func TestScrapeEmailsFound(t *testing.T) {
	t.Parallel()

	crawler := &fakeCrawler{results: map[string]scout.EnrichmentResult{
		"https://ex.com": {
			Domain:  "ex.com",
			Emails:  []string{"hello@ex.com"},
			Socials: []scout.SocialLink{},
			Status:  scout.StatusFound,
		},
	}}
	s := newTestServer(crawler, nil)

	rec := doJSON(t, s.Handler(), http.MethodGet, "/scrape-emails?url=ex.com", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var result scout.EnrichmentResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, scout.StatusFound, result.Status)
	require.Equal(t, []string{"hello@ex.com"}, result.Emails)
}

func TestScrapeEmailsInvalidDomainDegradesTo200(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeCrawler{}, nil)
	rec := doJSON(t, s.Handler(), http.MethodGet, "/scrape-emails?url=192.168.0.1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var result scout.EnrichmentResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, scout.StatusError, result.Status)
	require.NotEmpty(t, result.Error)
}

func TestScrapeEmailsBudgetExceededMapsTo429(t *testing.T) {
	t.Parallel()

	crawler := &fakeCrawler{
		errs: map[string]error{
			"https://slow.com": fmt.Errorf("crawl: %w", scout.ErrBudgetExceeded),
		},
	}
	s := newTestServer(crawler, nil)

	rec := doJSON(t, s.Handler(), http.MethodGet, "/scrape-emails?url=slow.com", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "5", rec.Header().Get("Retry-After"))
}

func TestScrapeEmailsBatchValidation(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeCrawler{}, nil)
	h := s.Handler()

	rec := doJSON(t, h, http.MethodPost, "/scrape-emails/batch", map[string]any{"urls": []string{}})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	urls := make([]string, 51)
	for i := range urls {
		urls[i] = fmt.Sprintf("site-%d.com", i)
	}
	rec = doJSON(t, h, http.MethodPost, "/scrape-emails/batch", map[string]any{"urls": urls})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScrapeEmailsBatchResultsInInputOrder(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]string{
		"https://a.com": `mailto:hi@a.com`,
		"https://b.com": `<p>nothing</p>`,
	}}
	s := newTestServer(&fakeCrawler{}, fetcher)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/scrape-emails/batch", map[string]any{"urls": []string{"a.com", "b.com"}})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Results []scout.BatchItem `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	require.Equal(t, "a.com", resp.Results[0].Input)
	require.Equal(t, scout.StatusFound, resp.Results[0].Result.Status)
	require.Equal(t, scout.StatusNone, resp.Results[1].Result.Status)
}

func TestScoutBatchStreamsNDJSON(t *testing.T) {
	t.Parallel()

	crawler := &fakeCrawler{results: map[string]scout.EnrichmentResult{
		"https://a.com": {Domain: "a.com", Emails: []string{"hi@a.com"}, Socials: []scout.SocialLink{}, Status: scout.StatusFound},
		"https://b.com": {Domain: "b.com", Emails: []string{}, Socials: []scout.SocialLink{}, Status: scout.StatusNone},
	}}
	s := newTestServer(crawler, nil)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/scout/batch", map[string]any{
		"inputs": []string{"a.com", "b.com"},
		"mode":   "domains",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))

	var lines int
	scanner := bufio.NewScanner(rec.Body)
	for scanner.Scan() {
		var item scout.BatchItem
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &item))
		lines++
	}
	require.Equal(t, 2, lines)
}

func TestScoutBatchValidation(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeCrawler{}, nil)
	h := s.Handler()

	rec := doJSON(t, h, http.MethodPost, "/scout/batch", map[string]any{"inputs": []string{}})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/scout/batch", map[string]any{"inputs": []string{"a.com"}, "mode": "bogus"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
