// Package enrich runs enrichment over batches of inputs with a fixed worker
// pool. Workers claim input indices from a shared counter and stream terminal
// items as they complete; item order on the channel is unspecified but every
// item carries its original input index.
package enrich

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/webscout/webscout/internal/extract"
	"github.com/webscout/webscout/internal/metrics"
	"github.com/webscout/webscout/internal/scout"
)

// Mode selects how batch inputs are interpreted.
type Mode string

// Batch modes: full-domain crawls or email-derived domain crawls.
const (
	ModeDomains Mode = "domains"
	ModeEmails  Mode = "emails"
)

// Crawler is the per-seed pipeline the orchestrator dispatches to.
type Crawler interface {
	Crawl(ctx context.Context, seedURL string) (scout.EnrichmentResult, error)
}

// Config bounds the worker pools.
type Config struct {
	Workers      int
	LightWorkers int
	LightTimeout time.Duration
	EventTopic   string
}

// Orchestrator fans batch inputs out over crawl workers. The optional
// publisher receives one completion event per terminal item.
type Orchestrator struct {
	cfg       Config
	crawler   Crawler
	fetcher   scout.Fetcher
	publisher scout.Publisher
	logger    *zap.Logger
}

// New builds an Orchestrator. fetcher serves the light single-fetch variant;
// publisher may be nil to disable completion events.
func New(cfg Config, crawler Crawler, fetcher scout.Fetcher, publisher scout.Publisher, logger *zap.Logger) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 6
	}
	if cfg.LightWorkers <= 0 {
		cfg.LightWorkers = 8
	}
	if cfg.EventTopic == "" {
		cfg.EventTopic = "enrichment.completed"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:       cfg,
		crawler:   crawler,
		fetcher:   fetcher,
		publisher: publisher,
		logger:    logger,
	}
}

// Run enriches inputs with the full crawl pipeline. The returned channel
// closes once every input has reached a terminal state.
func (o *Orchestrator) Run(ctx context.Context, inputs []string, mode Mode) <-chan scout.BatchItem {
	return o.dispatch(ctx, inputs, o.cfg.Workers, func(ctx context.Context, index int, input string) scout.BatchItem {
		switch mode {
		case ModeEmails:
			return o.enrichEmail(ctx, index, input)
		default:
			return o.enrichDomain(ctx, index, input)
		}
	})
}

// RunLight enriches URLs with a single fetch each, no subpage crawl. Meant
// for small interactive batches where latency beats recall.
func (o *Orchestrator) RunLight(ctx context.Context, inputs []string) <-chan scout.BatchItem {
	return o.dispatch(ctx, inputs, o.cfg.LightWorkers, o.enrichLight)
}

// Gather drains items into a slice ordered by input index.
func Gather(items <-chan scout.BatchItem, n int) []scout.BatchItem {
	out := make([]scout.BatchItem, n)
	for item := range items {
		if item.Index >= 0 && item.Index < n {
			out[item.Index] = item
		}
	}
	return out
}

type itemFunc func(ctx context.Context, index int, input string) scout.BatchItem

func (o *Orchestrator) dispatch(ctx context.Context, inputs []string, workers int, work itemFunc) <-chan scout.BatchItem {
	out := make(chan scout.BatchItem)
	if len(inputs) == 0 {
		close(out)
		return out
	}
	if workers > len(inputs) {
		workers = len(inputs)
	}

	var next atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			metrics.WorkerStarted()
			defer metrics.WorkerStopped()
			for {
				index := int(next.Add(1)) - 1
				if index >= len(inputs) {
					return
				}
				item := work(ctx, index, strings.TrimSpace(inputs[index]))
				metrics.ObserveBatchItem(string(item.Result.Status))
				o.publishCompletion(ctx, item)
				select {
				case out <- item:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

func (o *Orchestrator) enrichDomain(ctx context.Context, index int, input string) scout.BatchItem {
	normalized, err := scout.NormalizeDomain(input)
	if err != nil {
		return errorItem(index, input, scout.Hostname(input), err)
	}
	result, _ := o.crawler.Crawl(ctx, normalized)
	decorate(&result)
	return scout.BatchItem{Index: index, Input: input, NormalizedURL: normalized, Result: result}
}

// enrichEmail crawls the domain behind an email address. The caller's email
// is authoritative and is never replaced by a scraped one.
func (o *Orchestrator) enrichEmail(ctx context.Context, index int, input string) scout.BatchItem {
	email := strings.ToLower(extract.CleanEmail(input))
	if !extract.ValidEmail(email) {
		return errorItem(index, input, input, scout.NewValidationError(input, "not an email address"))
	}
	host := email[strings.IndexByte(email, '@')+1:]

	firstName, ok := extract.DeriveFirstName(email)
	if !ok {
		firstName = extract.DeriveBrandName(host)
	}

	normalized, err := scout.NormalizeDomain(host)
	if err != nil {
		// Free-mail and placeholder hosts cannot be crawled; the contact
		// identity alone is still a usable result.
		return scout.BatchItem{Index: index, Input: input, Result: scout.EnrichmentResult{
			Domain:    host,
			Emails:    []string{},
			Socials:   []scout.SocialLink{},
			Email:     email,
			FirstName: firstName,
			Status:    scout.StatusFound,
		}}
	}

	result, _ := o.crawler.Crawl(ctx, normalized)
	result.Email = email
	result.FirstName = firstName
	return scout.BatchItem{Index: index, Input: input, NormalizedURL: normalized, Result: result}
}

func (o *Orchestrator) enrichLight(ctx context.Context, index int, input string) scout.BatchItem {
	normalized, err := scout.NormalizeDomain(input)
	if err != nil {
		return errorItem(index, input, scout.Hostname(input), err)
	}
	page, err := o.fetcher.Fetch(ctx, scout.FetchRequest{
		URL:     normalized,
		Timeout: o.cfg.LightTimeout,
		Purpose: "light",
	})
	if err != nil {
		return errorItem(index, input, scout.Hostname(normalized), err)
	}
	result := scout.EnrichmentResult{
		Domain:  scout.Hostname(normalized),
		Emails:  extract.Emails(page.Body),
		Socials: extract.Socials(page.Body),
	}
	if result.Socials == nil {
		result.Socials = []scout.SocialLink{}
	}
	if result.Emails == nil {
		result.Emails = []string{}
	}
	if len(result.Emails) > 0 || len(result.Socials) > 0 {
		result.Status = scout.StatusFound
	} else {
		result.Status = scout.StatusNone
	}
	decorate(&result)
	return scout.BatchItem{Index: index, Input: input, NormalizedURL: normalized, Result: result}
}

func (o *Orchestrator) publishCompletion(ctx context.Context, item scout.BatchItem) {
	if o.publisher == nil {
		return
	}
	if _, err := o.publisher.Publish(ctx, o.cfg.EventTopic, item); err != nil {
		o.logger.Warn("completion event publish failed",
			zap.String("input", item.Input),
			zap.Error(err))
	}
}

// decorate fills the best-contact fields from the scraped email list.
func decorate(result *scout.EnrichmentResult) {
	if result.Email != "" || len(result.Emails) == 0 {
		return
	}
	best, ok := extract.PickBestEmail(result.Emails)
	if !ok {
		return
	}
	result.Email = best
	if firstName, ok := extract.DeriveFirstName(best); ok {
		result.FirstName = firstName
	} else {
		result.FirstName = extract.DeriveBrandName(result.Domain)
	}
}

func errorItem(index int, input, domain string, err error) scout.BatchItem {
	return scout.BatchItem{Index: index, Input: input, Result: scout.EnrichmentResult{
		Domain:  domain,
		Emails:  []string{},
		Socials: []scout.SocialLink{},
		Status:  scout.StatusError,
		Error:   err.Error(),
	}}
}
