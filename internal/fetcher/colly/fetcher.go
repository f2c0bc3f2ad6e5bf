// Package collyfetcher implements scout.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/webscout/webscout/internal/metrics"
	"github.com/webscout/webscout/internal/scout"
)

// Waiter gates outbound requests, typically a per-host rate limiter.
type Waiter interface {
	Wait(ctx context.Context, url string) error
}

// Config controls collector behavior.
type Config struct {
	UserAgent      string
	DefaultTimeout time.Duration
}

// Fetcher performs single bounded GETs through a Colly collector. Sites often
// reject default client user agents, so a realistic browser UA is always
// sent. A failed https fetch earns exactly one fallback attempt against the
// bare http origin; there are no other retries.
type Fetcher struct {
	cfg           Config
	limiter       Waiter
	clock         scout.Clock
	baseCollector *colly.Collector
}

// New builds a Fetcher. limiter may be nil to disable traffic shaping.
func New(cfg Config, limiter Waiter, clock scout.Clock) *Fetcher {
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.WithTransport(newHTTPTransport())
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 12 * time.Second
	}
	return &Fetcher{
		cfg:           cfg,
		limiter:       limiter,
		clock:         clock,
		baseCollector: c,
	}
}

// Fetch executes a single HTTP GET with the request's hard timeout. On an
// https failure it retries once against http://host before reporting the
// original error.
func (f *Fetcher) Fetch(ctx context.Context, request scout.FetchRequest) (scout.FetchResult, error) {
	timeout := request.Timeout
	if timeout <= 0 {
		timeout = f.cfg.DefaultTimeout
	}
	purpose := request.Purpose
	if purpose == "" {
		purpose = "fetch"
	}

	start := time.Now()
	result, err := f.attempt(ctx, request.URL, timeout)
	if err != nil {
		if fallback, ok := httpFallbackURL(request.URL); ok {
			if fbResult, fbErr := f.attempt(ctx, fallback, timeout); fbErr == nil {
				metrics.ObserveFetch(purpose, "ok", time.Since(start))
				return fbResult, nil
			}
		}
		metrics.ObserveFetch(purpose, outcome(err), time.Since(start))
		return scout.FetchResult{}, err
	}
	metrics.ObserveFetch(purpose, "ok", time.Since(start))
	return result, nil
}

func (f *Fetcher) attempt(ctx context.Context, rawURL string, timeout time.Duration) (scout.FetchResult, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return scout.FetchResult{}, scout.NewFetchError(scout.KindTimeout, rawURL, err)
		}
	}

	var (
		body       []byte
		statusCode int
		fetchErr   error
	)
	collector := f.baseCollector.Clone()
	collector.IgnoreRobotsTxt = true
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(timeout)

	collector.OnResponse(func(r *colly.Response) {
		statusCode = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			statusCode = r.StatusCode
		}
		fetchErr = err
	})

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-attemptCtx.Done():
		return scout.FetchResult{}, scout.NewFetchError(scout.KindTimeout, rawURL, attemptCtx.Err())
	case visitErr := <-done:
		if visitErr == nil && fetchErr == nil {
			return scout.FetchResult{
				URL:       rawURL,
				StatusOK:  statusCode >= 200 && statusCode < 300,
				Body:      string(body),
				FetchedAt: f.clock.Now(),
			}, nil
		}
		err := fetchErr
		if err == nil {
			err = visitErr
		}
		return scout.FetchResult{}, classify(rawURL, err, statusCode)
	}
}

// httpFallbackURL derives the bare http origin for a failed https URL.
func httpFallbackURL(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || !strings.EqualFold(u.Scheme, "https") || u.Host == "" {
		return "", false
	}
	return fmt.Sprintf("http://%s", u.Host), true
}

func classify(rawURL string, err error, statusCode int) *scout.FetchError {
	if statusCode >= 400 {
		return &scout.FetchError{Kind: scout.KindStatus, URL: rawURL, StatusCode: statusCode, Err: err}
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return scout.NewFetchError(scout.KindTimeout, rawURL, err)
	}
	return scout.NewFetchError(scout.KindNetwork, rawURL, err)
}

func outcome(err error) string {
	var fe *scout.FetchError
	if errors.As(err, &fe) {
		return string(fe.Kind)
	}
	return "network"
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
