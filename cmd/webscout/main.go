// Package main wires together the enrichment service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/webscout/webscout/internal/api"
	archivegcs "github.com/webscout/webscout/internal/archive/gcs"
	archivememory "github.com/webscout/webscout/internal/archive/memory"
	"github.com/webscout/webscout/internal/cache"
	"github.com/webscout/webscout/internal/clock/system"
	"github.com/webscout/webscout/internal/config"
	"github.com/webscout/webscout/internal/crawler"
	"github.com/webscout/webscout/internal/enrich"
	collyfetcher "github.com/webscout/webscout/internal/fetcher/colly"
	"github.com/webscout/webscout/internal/hash/sha256"
	"github.com/webscout/webscout/internal/id/uuid"
	"github.com/webscout/webscout/internal/logging"
	"github.com/webscout/webscout/internal/policy/ratelimit"
	"github.com/webscout/webscout/internal/preview"
	"github.com/webscout/webscout/internal/proxy"
	pubsubpublisher "github.com/webscout/webscout/internal/publisher/pubsub"
	"github.com/webscout/webscout/internal/scout"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := system.New()
	hasher := sha256.New()
	idGen := uuid.New()

	limiter := ratelimit.New(ratelimit.Config{
		DefaultRPS:   cfg.RateLimit.RPS,
		DefaultBurst: cfg.RateLimit.Burst,
	})
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:      cfg.Crawler.UserAgent,
		DefaultTimeout: cfg.LightTimeout(),
	}, limiter, clock)

	pages := cache.New[string](cfg.ProxyTTL(), clock)
	results := cache.New[scout.EnrichmentResult](cfg.EnrichTTL(), clock)

	var blobStore scout.BlobStore
	switch cfg.Archive.Provider {
	case "memory":
		blobStore = archivememory.NewBlobStore()
	case "gcs":
		gcsClient, err := storage.NewClient(ctx)
		if err != nil {
			logger.Fatal("gcs client init failed", zap.Error(err))
		}
		defer func() {
			if closeErr := gcsClient.Close(); closeErr != nil {
				logger.Warn("gcs client close failed", zap.Error(closeErr))
			}
		}()
		blobStore, err = archivegcs.New(gcsClient, archivegcs.Config{Bucket: cfg.Archive.Bucket})
		if err != nil {
			logger.Fatal("gcs archive init failed", zap.Error(err))
		}
	}

	var publisher scout.Publisher
	if cfg.PubSub.ProjectID != "" && cfg.PubSub.TopicName != "" {
		pub, err := pubsubpublisher.Connect(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicName)
		if err != nil {
			logger.Fatal("pubsub publisher init failed", zap.Error(err))
		}
		publisher = pub
	}

	var previews preview.Store
	if cfg.DB.DSN != "" {
		store, err := preview.Connect(ctx, cfg.DB.DSN)
		if err != nil {
			logger.Fatal("preview store init failed", zap.Error(err))
		}
		if err := store.EnsureSchema(ctx); err != nil {
			logger.Fatal("preview schema init failed", zap.Error(err))
		}
		previews = store
	} else {
		previews = preview.NewMemoryStore()
	}

	crawl := crawler.New(crawler.Config{
		SeedTimeout:      cfg.SeedTimeout(),
		CandidateTimeout: cfg.CandidateTimeout(),
		Budget:           cfg.CrawlBudget(),
		MaxCandidates:    cfg.Crawler.MaxCandidates,
		MaxFetches:       cfg.Crawler.MaxCandidateFetches,
		Concurrency:      cfg.Crawler.Concurrency,
		ArchivePrefix:    cfg.Archive.Prefix,
	}, fetcher, results, hasher, clock, blobStore, logger.Named("crawler"))

	orchestrator := enrich.New(enrich.Config{
		Workers:      cfg.Batch.Workers,
		LightWorkers: cfg.Batch.LightWorkers,
		LightTimeout: cfg.LightTimeout(),
		EventTopic:   cfg.PubSub.TopicName,
	}, crawl, fetcher, publisher, logger.Named("enrich"))

	proxySvc := proxy.New(proxy.Config{
		Timeout:   cfg.ProxyTimeout(),
		ProxyPath: "/proxy",
	}, fetcher, pages, hasher, logger.Named("proxy"))

	apiServer := api.NewServer(previews, proxySvc, crawl, orchestrator, idGen, clock, api.Config{
		MaxBatchInputs: cfg.Batch.MaxItems,
		MaxLightInputs: cfg.Batch.LightMaxItems,
	}, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second,
	)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
