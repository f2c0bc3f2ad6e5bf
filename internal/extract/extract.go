// Package extract holds the pure signal-extraction functions of the pipeline:
// email and social-link extraction plus contact-name heuristics. Everything
// here is stateless and operates on raw HTML strings; parsing is deliberately
// regex-driven so the per-platform matching rules stay declarative.
package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/webscout/webscout/internal/scout"
)

var (
	mailtoPattern    = regexp.MustCompile(`(?i)mailto:([A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,})`)
	textEmailPattern = regexp.MustCompile(`(?i)\b[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}\b`)
	emailPattern     = regexp.MustCompile(`(?i)^[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}$`)
)

// socialPattern pairs a platform with the URL shapes that identify it. The
// table order is the match priority order; earlier platforms claim a URL
// before later ones see it.
type socialPattern struct {
	platform scout.Platform
	pattern  *regexp.Regexp
}

var socialPatterns = []socialPattern{
	{scout.PlatformInstagram, regexp.MustCompile(`(?i)https?://(?:www\.)?instagram\.com/[A-Za-z0-9._-]+`)},
	{scout.PlatformTwitter, regexp.MustCompile(`(?i)https?://(?:www\.)?(?:twitter|x)\.com/[A-Za-z0-9._-]+`)},
	{scout.PlatformFacebook, regexp.MustCompile(`(?i)https?://(?:www\.)?facebook\.com/[A-Za-z0-9._-]+`)},
	{scout.PlatformLinkedIn, regexp.MustCompile(`(?i)https?://(?:www\.)?linkedin\.com/(?:company|in|school)/[A-Za-z0-9._-]+`)},
	{scout.PlatformTikTok, regexp.MustCompile(`(?i)https?://(?:www\.)?tiktok\.com/@[A-Za-z0-9._-]+`)},
	{scout.PlatformYouTube, regexp.MustCompile(`(?i)https?://(?:www\.)?(?:youtube\.com/(?:channel|c|user|@)[A-Za-z0-9._-]+|youtu\.be/[A-Za-z0-9_-]+)`)},
	{scout.PlatformPinterest, regexp.MustCompile(`(?i)https?://(?:www\.)?pinterest\.com/[A-Za-z0-9._-]+`)},
	{scout.PlatformThreads, regexp.MustCompile(`(?i)https?://(?:www\.)?threads\.net/@?[A-Za-z0-9._-]+`)},
	{scout.PlatformSnapchat, regexp.MustCompile(`(?i)https?://(?:www\.)?snapchat\.com/add/[A-Za-z0-9._-]+`)},
	{scout.PlatformReddit, regexp.MustCompile(`(?i)https?://(?:www\.)?reddit\.com/(?:r|user|u)/[A-Za-z0-9._-]+`)},
	{scout.PlatformWhatsApp, regexp.MustCompile(`(?i)https?://(?:www\.)?(?:wa\.me/[0-9+]+|api\.whatsapp\.com/send[^\s"'<>]*)`)},
	{scout.PlatformTelegram, regexp.MustCompile(`(?i)https?://(?:www\.)?(?:t\.me|telegram\.me)/[A-Za-z0-9._-]+`)},
	{scout.PlatformDiscord, regexp.MustCompile(`(?i)https?://(?:www\.)?(?:discord\.gg/[A-Za-z0-9-]+|discord\.com/invite/[A-Za-z0-9-]+)`)},
	{scout.PlatformLinktree, regexp.MustCompile(`(?i)https?://(?:www\.)?linktr\.ee/[A-Za-z0-9._-]+`)},
}

// Emails scans html for mailto: targets and free-text email patterns and
// returns the union, lowercased and deduplicated, in first-seen order.
// Lowercasing is the canonical casing rule: Foo@Bar.com and foo@bar.com
// collapse to one entry.
func Emails(html string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(raw string) {
		email := strings.ToLower(raw)
		if _, dup := seen[email]; dup {
			return
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}
	for _, m := range mailtoPattern.FindAllStringSubmatch(html, -1) {
		add(m[1])
	}
	for _, m := range textEmailPattern.FindAllString(html, -1) {
		add(m)
	}
	return out
}

// Socials applies the ordered per-platform pattern table to html. Each match
// is normalized to scheme+host+path (query and fragment stripped); the first
// occurrence per normalized URL wins, so the output is stable and the
// function is idempotent on pages containing only its own output.
func Socials(html string) []scout.SocialLink {
	seen := make(map[string]struct{})
	var out []scout.SocialLink
	for _, sp := range socialPatterns {
		for _, match := range sp.pattern.FindAllString(html, -1) {
			normalized, ok := normalizeSocialURL(match)
			if !ok {
				continue
			}
			if _, dup := seen[normalized]; dup {
				continue
			}
			seen[normalized] = struct{}{}
			out = append(out, scout.SocialLink{Platform: sp.platform, URL: normalized})
		}
	}
	return out
}

func normalizeSocialURL(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + u.Path, true
}

// ValidEmail reports whether s is a syntactically plausible email address
// (local@host.tld with an alphabetic TLD of at least two characters).
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// CleanEmail strips a mailto: prefix and surrounding quote/bracket noise from
// a pasted email token.
func CleanEmail(s string) string {
	out := strings.TrimSpace(s)
	if len(out) >= 7 && strings.EqualFold(out[:7], "mailto:") {
		out = out[7:]
	}
	return strings.Trim(out, "\"'`<>()[]")
}
