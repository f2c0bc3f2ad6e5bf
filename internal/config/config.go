// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	Batch     BatchConfig     `mapstructure:"batch"`
	Proxy     ProxyConfig     `mapstructure:"proxy"`
	Enrich    EnrichConfig    `mapstructure:"enrich"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	DB        DBConfig        `mapstructure:"db"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                   int `mapstructure:"port"`
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds"`
}

// CrawlerConfig governs the per-seed crawl pipeline.
type CrawlerConfig struct {
	UserAgent           string `mapstructure:"user_agent"`
	SeedTimeoutMs       int    `mapstructure:"seed_timeout_ms"`
	CandidateTimeoutMs  int    `mapstructure:"candidate_timeout_ms"`
	BudgetMs            int    `mapstructure:"budget_ms"`
	MaxCandidates       int    `mapstructure:"max_candidates"`
	MaxCandidateFetches int    `mapstructure:"max_candidate_fetches"`
	Concurrency         int    `mapstructure:"concurrency"`
}

// BatchConfig governs the batch orchestrator.
type BatchConfig struct {
	Workers        int `mapstructure:"workers"`
	MaxItems       int `mapstructure:"max_items"`
	LightWorkers   int `mapstructure:"light_workers"`
	LightMaxItems  int `mapstructure:"light_max_items"`
	LightTimeoutMs int `mapstructure:"light_timeout_ms"`
}

// ProxyConfig governs the embedding proxy.
type ProxyConfig struct {
	TimeoutMs  int `mapstructure:"timeout_ms"`
	TTLSeconds int `mapstructure:"ttl_seconds"`
}

// EnrichConfig governs the enrichment result cache.
type EnrichConfig struct {
	TTLSeconds int `mapstructure:"ttl_seconds"`
}

// RateLimitConfig shapes outbound fetch traffic per host.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// DBConfig controls the optional Postgres preview store.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int    `mapstructure:"max_conns"`
}

// PubSubConfig holds metadata for completion-event publishing.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// ArchiveConfig selects the HTML snapshot store.
type ArchiveConfig struct {
	Provider string `mapstructure:"provider"`
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WEBSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("crawler.user_agent",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	v.SetDefault("crawler.seed_timeout_ms", 4000)
	v.SetDefault("crawler.candidate_timeout_ms", 3500)
	v.SetDefault("crawler.budget_ms", 6000)
	v.SetDefault("crawler.max_candidates", 10)
	v.SetDefault("crawler.max_candidate_fetches", 5)
	v.SetDefault("crawler.concurrency", 5)
	v.SetDefault("batch.workers", 6)
	v.SetDefault("batch.max_items", 500)
	v.SetDefault("batch.light_workers", 8)
	v.SetDefault("batch.light_max_items", 50)
	v.SetDefault("batch.light_timeout_ms", 12000)
	v.SetDefault("proxy.timeout_ms", 12000)
	v.SetDefault("proxy.ttl_seconds", 300)
	v.SetDefault("enrich.ttl_seconds", 600)
	v.SetDefault("ratelimit.rps", 4)
	v.SetDefault("ratelimit.burst", 2)
	v.SetDefault("archive.provider", "none")
	v.SetDefault("archive.prefix", "snapshots")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawler.SeedTimeoutMs <= 0 || c.Crawler.CandidateTimeoutMs <= 0 {
		return fmt.Errorf("crawler timeouts must be > 0")
	}
	if c.Crawler.BudgetMs <= 0 {
		return fmt.Errorf("crawler.budget_ms must be > 0")
	}
	if c.Crawler.MaxCandidateFetches > c.Crawler.MaxCandidates {
		return fmt.Errorf("crawler.max_candidate_fetches must not exceed crawler.max_candidates")
	}
	if c.Batch.Workers <= 0 || c.Batch.LightWorkers <= 0 {
		return fmt.Errorf("batch worker counts must be > 0")
	}
	if c.Batch.MaxItems <= 0 || c.Batch.LightMaxItems <= 0 {
		return fmt.Errorf("batch item caps must be > 0")
	}
	if c.Proxy.TTLSeconds <= 0 || c.Enrich.TTLSeconds <= 0 {
		return fmt.Errorf("cache TTLs must be > 0")
	}
	switch c.Archive.Provider {
	case "none", "memory":
	case "gcs":
		if c.Archive.Bucket == "" {
			return fmt.Errorf("archive.bucket must be set when archive.provider is gcs")
		}
	default:
		return fmt.Errorf("unknown archive.provider %q", c.Archive.Provider)
	}
	return nil
}

// SeedTimeout returns the seed fetch timeout as a duration.
func (c Config) SeedTimeout() time.Duration {
	return time.Duration(c.Crawler.SeedTimeoutMs) * time.Millisecond
}

// CandidateTimeout returns the candidate fetch timeout as a duration.
func (c Config) CandidateTimeout() time.Duration {
	return time.Duration(c.Crawler.CandidateTimeoutMs) * time.Millisecond
}

// CrawlBudget returns the per-seed wall-clock budget as a duration.
func (c Config) CrawlBudget() time.Duration {
	return time.Duration(c.Crawler.BudgetMs) * time.Millisecond
}

// LightTimeout returns the light batch fetch timeout as a duration.
func (c Config) LightTimeout() time.Duration {
	return time.Duration(c.Batch.LightTimeoutMs) * time.Millisecond
}

// ProxyTimeout returns the proxy fetch timeout as a duration.
func (c Config) ProxyTimeout() time.Duration {
	return time.Duration(c.Proxy.TimeoutMs) * time.Millisecond
}

// ProxyTTL returns the proxy cache TTL as a duration.
func (c Config) ProxyTTL() time.Duration {
	return time.Duration(c.Proxy.TTLSeconds) * time.Second
}

// EnrichTTL returns the enrichment cache TTL as a duration.
func (c Config) EnrichTTL() time.Duration {
	return time.Duration(c.Enrich.TTLSeconds) * time.Second
}
