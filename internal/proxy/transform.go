// Package proxy rewrites third-party pages so they render inside the preview
// iframe: relative assets resolve through an injected <base>, restrictive CSP
// meta tags are dropped, and navigation stays on the proxy endpoint.
package proxy

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	headPattern       = regexp.MustCompile(`(?i)<head[^>]*>`)
	cspMetaPattern    = regexp.MustCompile(`(?i)<meta[^>]+http-equiv\s*=\s*["']?content-security-policy["']?[^>]*/?>`)
	anchorHrefPattern = regexp.MustCompile(`(?is)(<a\b[^>]*?\bhref\s*=\s*)(["'])(.*?)(["'])`)
	formActionPattern = regexp.MustCompile(`(?is)(<form\b[^>]*?\baction\s*=\s*)(["'])(.*?)(["'])`)
)

// Transform runs the full rewrite pipeline for a page fetched from pageURL.
// proxyPath is the local endpoint navigation is routed through.
func Transform(html, pageURL, proxyPath string) string {
	out := InjectBase(html, pageURL)
	out = StripCSP(out)
	out = RewriteLinks(out, pageURL, proxyPath)
	return out
}

// InjectBase inserts <base href="{origin}/"> directly after the opening
// <head> tag so the page's relative asset URLs resolve against the original
// site instead of the proxy.
func InjectBase(html, pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return html
	}
	base := `<base href="` + u.Scheme + `://` + u.Host + `/">`
	if loc := headPattern.FindStringIndex(html); loc != nil {
		return html[:loc[1]] + base + html[loc[1]:]
	}
	return base + html
}

// StripCSP removes <meta http-equiv="Content-Security-Policy"> tags, which
// would otherwise block the injected base and rewritten links.
func StripCSP(html string) string {
	return cspMetaPattern.ReplaceAllString(html, "")
}

// RewriteLinks routes every <a href> and <form action> through the proxy
// endpoint with the absolute target URL-encoded in the url parameter.
// Fragment-only, javascript:, data:, other non-http schemes, and empty
// targets are left untouched.
func RewriteLinks(html, pageURL, proxyPath string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return html
	}
	rewrite := func(match string, pattern *regexp.Regexp) string {
		parts := pattern.FindStringSubmatch(match)
		target, ok := rewriteTarget(base, parts[3], proxyPath)
		if !ok {
			return match
		}
		return parts[1] + parts[2] + target + parts[4]
	}
	html = anchorHrefPattern.ReplaceAllStringFunc(html, func(m string) string {
		return rewrite(m, anchorHrefPattern)
	})
	html = formActionPattern.ReplaceAllStringFunc(html, func(m string) string {
		return rewrite(m, formActionPattern)
	})
	return html
}

func rewriteTarget(base *url.URL, href, proxyPath string) (string, bool) {
	trimmed := strings.TrimSpace(href)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", false
	}
	ref, err := url.Parse(trimmed)
	if err != nil {
		return "", false
	}
	if ref.Scheme != "" && ref.Scheme != "http" && ref.Scheme != "https" {
		return "", false
	}
	absolute := base.ResolveReference(ref)
	if absolute.Host == "" {
		return "", false
	}
	return proxyPath + "?url=" + url.QueryEscape(absolute.String()), true
}
