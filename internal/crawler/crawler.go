// Package crawler turns one seed URL into an EnrichmentResult: fetch the seed
// page, discover a bounded set of same-origin candidate subpages, fetch those
// concurrently, and merge the extracted signals under a wall-clock budget.
package crawler

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/webscout/webscout/internal/archive"
	"github.com/webscout/webscout/internal/cache"
	"github.com/webscout/webscout/internal/extract"
	"github.com/webscout/webscout/internal/metrics"
	"github.com/webscout/webscout/internal/scout"
)

// candidateKeywords mark links likely to carry contact or social signals.
// Matched case-insensitively against both the link path and the anchor text.
var candidateKeywords = []string{
	"contact", "support", "about", "team", "social", "follow",
	"instagram", "twitter", "facebook", "linkedin", "tiktok", "youtube",
	"pinterest", "threads", "snapchat", "reddit", "whatsapp", "telegram",
	"discord", "linktree",
}

var anchorPattern = regexp.MustCompile(`(?is)<a\b[^>]*href\s*=\s*["']([^"']+)["'][^>]*>(.*?)</a>`)

// Config bounds a single crawl.
type Config struct {
	SeedTimeout      time.Duration
	CandidateTimeout time.Duration
	Budget           time.Duration
	MaxCandidates    int
	MaxFetches       int
	Concurrency      int
	ArchivePrefix    string
}

// Crawler runs the per-seed pipeline. Results carrying at least one signal are
// cached under the seed's scheme://host; the optional blob store receives a
// snapshot of the seed HTML.
type Crawler struct {
	cfg     Config
	fetcher scout.Fetcher
	cache   *cache.Cache[scout.EnrichmentResult]
	hasher  scout.Hasher
	clock   scout.Clock
	store   scout.BlobStore
	logger  *zap.Logger
}

// New builds a Crawler. store may be nil to disable snapshot archiving.
func New(cfg Config, fetcher scout.Fetcher, resultCache *cache.Cache[scout.EnrichmentResult], hasher scout.Hasher, clock scout.Clock, store scout.BlobStore, logger *zap.Logger) *Crawler {
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = 10
	}
	if cfg.MaxFetches <= 0 {
		cfg.MaxFetches = 5
	}
	if cfg.MaxFetches > cfg.MaxCandidates {
		cfg.MaxFetches = cfg.MaxCandidates
	}
	if cfg.Concurrency <= 0 || cfg.Concurrency > cfg.MaxFetches {
		cfg.Concurrency = cfg.MaxFetches
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Crawler{
		cfg:     cfg,
		fetcher: fetcher,
		cache:   resultCache,
		hasher:  hasher,
		clock:   clock,
		store:   store,
		logger:  logger,
	}
}

// Crawl enriches one normalized seed URL (scheme://host[/path]). A fresh
// cached result short-circuits the crawl. A seed fetch failure yields an
// error-status result plus the fetch error; a budget overrun yields the
// partial seed-only result plus scout.ErrBudgetExceeded.
func (c *Crawler) Crawl(ctx context.Context, seedURL string) (scout.EnrichmentResult, error) {
	host := scout.Hostname(seedURL)
	key := cacheKey(seedURL)

	if entry, ok := c.cache.Get(key); ok {
		metrics.ObserveCache("enrich", "hit")
		return entry.Value, nil
	}
	metrics.ObserveCache("enrich", "miss")

	start := c.clock.Now()
	seed, err := c.fetcher.Fetch(ctx, scout.FetchRequest{
		URL:     seedURL,
		Timeout: c.cfg.SeedTimeout,
		Purpose: "seed",
	})
	if err != nil {
		c.logger.Warn("seed fetch failed", zap.String("url", seedURL), zap.Error(err))
		return scout.EnrichmentResult{
			Domain:  host,
			Emails:  []string{},
			Socials: []scout.SocialLink{},
			Status:  scout.StatusError,
			Error:   err.Error(),
		}, err
	}

	c.snapshot(ctx, host, seed.Body)

	result := scout.EnrichmentResult{
		Domain:  host,
		Emails:  extract.Emails(seed.Body),
		Socials: extract.Socials(seed.Body),
	}

	candidates := c.discoverCandidates(seed.URL, seed.Body)

	if c.clock.Now().Sub(start) >= c.cfg.Budget {
		metrics.ObserveBudgetExceeded()
		c.logger.Warn("crawl budget exceeded before candidate fetches",
			zap.String("url", seedURL),
			zap.Duration("budget", c.cfg.Budget))
		finalize(&result)
		return result, fmt.Errorf("crawl %s: %w", seedURL, scout.ErrBudgetExceeded)
	}

	if len(candidates) > c.cfg.MaxFetches {
		candidates = candidates[:c.cfg.MaxFetches]
	}
	bodies := make([]string, len(candidates))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(c.cfg.Concurrency)
	for i, candidate := range candidates {
		group.Go(func() error {
			page, fetchErr := c.fetcher.Fetch(groupCtx, scout.FetchRequest{
				URL:     candidate,
				Timeout: c.cfg.CandidateTimeout,
				Purpose: "candidate",
			})
			if fetchErr != nil {
				c.logger.Debug("candidate fetch dropped", zap.String("url", candidate), zap.Error(fetchErr))
				return nil
			}
			bodies[i] = page.Body
			return nil
		})
	}
	_ = group.Wait()

	for _, body := range bodies {
		if body == "" {
			continue
		}
		result.Emails = mergeEmails(result.Emails, extract.Emails(body))
		result.Socials = mergeSocials(result.Socials, extract.Socials(body))
	}

	finalize(&result)
	if result.Status == scout.StatusFound {
		c.cache.Put(key, result, c.validator(result))
	}
	c.logger.Info("crawl complete",
		zap.String("url", seedURL),
		zap.Int("emails", len(result.Emails)),
		zap.Int("socials", len(result.Socials)),
		zap.Int("candidates_fetched", len(candidates)))
	return result, nil
}

// discoverCandidates scans the seed HTML for same-origin links whose path or
// anchor text hits a keyword. The bare origin root is always a candidate when
// the seed itself was a subpage.
func (c *Crawler) discoverCandidates(seedURL, html string) []string {
	base, err := url.Parse(seedURL)
	if err != nil || base.Host == "" {
		return nil
	}
	origin := base.Scheme + "://" + base.Host

	seen := map[string]struct{}{}
	var out []string
	add := func(candidate string) {
		if candidate == seedURL {
			return
		}
		if _, dup := seen[candidate]; dup {
			return
		}
		seen[candidate] = struct{}{}
		out = append(out, candidate)
	}

	if base.Path != "" && base.Path != "/" {
		add(origin + "/")
	}

	for _, m := range anchorPattern.FindAllStringSubmatch(html, -1) {
		if len(out) >= c.cfg.MaxCandidates {
			break
		}
		href, text := m[1], m[2]
		ref, refErr := base.Parse(href)
		if refErr != nil {
			continue
		}
		if ref.Scheme != "http" && ref.Scheme != "https" {
			continue
		}
		if !strings.EqualFold(ref.Host, base.Host) {
			continue
		}
		if !matchesKeyword(ref.Path) && !matchesKeyword(text) {
			continue
		}
		ref.Fragment = ""
		add(ref.String())
	}
	if len(out) > c.cfg.MaxCandidates {
		out = out[:c.cfg.MaxCandidates]
	}
	return out
}

func (c *Crawler) snapshot(ctx context.Context, host, body string) {
	if c.store == nil || body == "" {
		return
	}
	digest, err := c.hasher.Hash([]byte(body))
	if err != nil {
		return
	}
	path := archive.SnapshotPath(c.cfg.ArchivePrefix, host, digest)
	uri, err := c.store.PutObject(ctx, path, "text/html; charset=utf-8", []byte(body))
	if err != nil {
		c.logger.Warn("snapshot archive failed", zap.String("host", host), zap.Error(err))
		return
	}
	c.logger.Debug("snapshot archived", zap.String("uri", uri))
}

func (c *Crawler) validator(result scout.EnrichmentResult) string {
	var sb strings.Builder
	sb.WriteString(result.Domain)
	for _, email := range result.Emails {
		sb.WriteByte('\n')
		sb.WriteString(email)
	}
	for _, social := range result.Socials {
		sb.WriteByte('\n')
		sb.WriteString(social.URL)
	}
	digest, err := c.hasher.Hash([]byte(sb.String()))
	if err != nil {
		return ""
	}
	return digest
}

func matchesKeyword(s string) bool {
	l := strings.ToLower(s)
	for _, keyword := range candidateKeywords {
		if strings.Contains(l, keyword) {
			return true
		}
	}
	return false
}

// cacheKey reduces a seed URL to its scheme://host origin so subpage seeds of
// the same site share one cached result.
func cacheKey(seedURL string) string {
	if origin, err := scout.Origin(seedURL); err == nil {
		return origin
	}
	return seedURL
}

// finalize pins the terminal status and guarantees non-nil slices so JSON
// renders [] instead of null.
func finalize(result *scout.EnrichmentResult) {
	if result.Emails == nil {
		result.Emails = []string{}
	}
	if result.Socials == nil {
		result.Socials = []scout.SocialLink{}
	}
	if len(result.Emails) > 0 || len(result.Socials) > 0 {
		result.Status = scout.StatusFound
	} else {
		result.Status = scout.StatusNone
	}
}

func mergeEmails(existing, found []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, email := range existing {
		seen[email] = struct{}{}
	}
	for _, email := range found {
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		existing = append(existing, email)
	}
	return existing
}

func mergeSocials(existing, found []scout.SocialLink) []scout.SocialLink {
	seen := make(map[string]struct{}, len(existing))
	for _, link := range existing {
		seen[link.URL] = struct{}{}
	}
	for _, link := range found {
		if _, dup := seen[link.URL]; dup {
			continue
		}
		seen[link.URL] = struct{}{}
		existing = append(existing, link)
	}
	return existing
}
