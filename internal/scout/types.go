// Package scout defines core types shared across the enrichment pipeline.
package scout

import "time"

// Platform identifies a social network recognized by the extractor.
type Platform string

// Platforms recognized by the social link extractor, in match priority order.
const (
	PlatformInstagram Platform = "instagram"
	PlatformTwitter   Platform = "twitter"
	PlatformFacebook  Platform = "facebook"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformTikTok    Platform = "tiktok"
	PlatformYouTube   Platform = "youtube"
	PlatformPinterest Platform = "pinterest"
	PlatformThreads   Platform = "threads"
	PlatformSnapchat  Platform = "snapchat"
	PlatformReddit    Platform = "reddit"
	PlatformWhatsApp  Platform = "whatsapp"
	PlatformTelegram  Platform = "telegram"
	PlatformDiscord   Platform = "discord"
	PlatformLinktree  Platform = "linktree"
)

// SocialLink is a normalized social profile URL found on a page.
// URL is always absolute, reduced to scheme+host+path with query and
// fragment stripped. Uniqueness within a result set is by URL.
type SocialLink struct {
	Platform Platform `json:"platform"`
	URL      string   `json:"url"`
}

// Status is the terminal outcome of enriching one seed.
type Status string

// Enrichment outcomes. Pending exists only while a batch item awaits a worker.
const (
	StatusPending Status = "pending"
	StatusFound   Status = "found"
	StatusNone    Status = "none"
	StatusError   Status = "error"
)

// EnrichmentResult is the immutable outcome of crawling one seed URL/domain.
type EnrichmentResult struct {
	Domain    string       `json:"domain"`
	Emails    []string     `json:"emails"`
	Socials   []SocialLink `json:"socials"`
	Email     string       `json:"email,omitempty"`
	FirstName string       `json:"first_name,omitempty"`
	Status    Status       `json:"status"`
	Error     string       `json:"error,omitempty"`
}

// BatchItem tracks one orchestrator input from submission to terminal state.
// Index matches the position of Input in the submitted list regardless of
// completion order. Once Result reaches a terminal status it is never
// mutated again.
type BatchItem struct {
	Index         int              `json:"index"`
	Input         string           `json:"input"`
	NormalizedURL string           `json:"normalized_url,omitempty"`
	Result        EnrichmentResult `json:"result"`
}

// FetchRequest captures everything needed to fetch a single URL.
// Purpose labels the fetch for metrics (seed, candidate, proxy, light).
type FetchRequest struct {
	URL     string
	Timeout time.Duration
	Purpose string
}

// FetchResult is the ephemeral outcome of one HTTP GET. It is not retained
// beyond the call that requested it; caches store derived artifacts instead.
type FetchResult struct {
	URL       string
	StatusOK  bool
	Body      string
	FetchedAt time.Time
}
