package proxy

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/webscout/webscout/internal/cache"
	"github.com/webscout/webscout/internal/metrics"
	"github.com/webscout/webscout/internal/scout"
)

// Config controls fetch and rewrite behavior.
type Config struct {
	Timeout   time.Duration
	ProxyPath string
}

// Service fetches, transforms, and caches proxied pages. Each cache entry's
// validator is the sha256 of the transformed HTML, used as the ETag.
type Service struct {
	cfg     Config
	fetcher scout.Fetcher
	pages   *cache.Cache[string]
	hasher  scout.Hasher
	logger  *zap.Logger
}

// New builds a proxy Service.
func New(cfg Config, fetcher scout.Fetcher, pages *cache.Cache[string], hasher scout.Hasher, logger *zap.Logger) *Service {
	if cfg.ProxyPath == "" {
		cfg.ProxyPath = "/proxy"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 12 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:     cfg,
		fetcher: fetcher,
		pages:   pages,
		hasher:  hasher,
		logger:  logger,
	}
}

// Render returns the transformed HTML for rawURL with its validator. fast
// serves any cached copy immediately, stale or not, and only fetches on a
// complete miss; the normal path refetches once the entry expires.
func (s *Service) Render(ctx context.Context, rawURL string, fast bool) (html string, validator string, err error) {
	key, err := scout.Canonicalize(rawURL)
	if err != nil {
		return "", "", err
	}

	if fast {
		if entry, ok := s.pages.GetStale(key); ok {
			metrics.ObserveCache("proxy", "stale_hit")
			return entry.Value, entry.Validator, nil
		}
	} else if entry, ok := s.pages.Get(key); ok {
		metrics.ObserveCache("proxy", "hit")
		return entry.Value, entry.Validator, nil
	}
	metrics.ObserveCache("proxy", "miss")

	page, err := s.fetcher.Fetch(ctx, scout.FetchRequest{
		URL:     rawURL,
		Timeout: s.cfg.Timeout,
		Purpose: "proxy",
	})
	if err != nil {
		return "", "", err
	}

	transformed := Transform(page.Body, page.URL, s.cfg.ProxyPath)
	digest, err := s.hasher.Hash([]byte(transformed))
	if err != nil {
		return "", "", err
	}
	s.pages.Put(key, transformed, digest)
	s.logger.Debug("proxy page rendered", zap.String("url", rawURL), zap.Int("bytes", len(transformed)))
	return transformed, digest, nil
}

// NotModified reports whether the caller-supplied validator still matches the
// fresh cache entry, allowing a 304 without rebuilding the body.
func (s *Service) NotModified(rawURL, validator string) bool {
	key, err := scout.Canonicalize(rawURL)
	if err != nil {
		return false
	}
	if s.pages.Match(key, validator) {
		metrics.ObserveCache("proxy", "not_modified")
		return true
	}
	return false
}
