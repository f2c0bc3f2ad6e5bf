package scout

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	ipv4Pattern = regexp.MustCompile(`^\d{1,3}(?:\.\d{1,3}){3}$`)
	tldPattern  = regexp.MustCompile(`^[a-z]{2,24}$`)
)

// hostDenylist rejects placeholder tokens and free-mail provider roots that
// show up as noise in pasted lead lists.
var hostDenylist = map[string]struct{}{
	"domain_url":    {},
	"emails":        {},
	"products_sold": {},
	"gmail.com":     {},
	"outlook.com":   {},
	"hotmail.com":   {},
}

// ValidHost reports whether hostname looks like a crawlable public site:
// no spaces or underscores, not a raw IPv4 literal, at least two labels with
// a plausible alphabetic TLD, and not on the placeholder/free-mail denylist.
func ValidHost(hostname string) bool {
	if hostname == "" {
		return false
	}
	host := strings.ToLower(hostname)
	if strings.ContainsAny(host, " _") {
		return false
	}
	if ipv4Pattern.MatchString(host) {
		return false
	}
	labels := strings.FieldsFunc(host, func(r rune) bool { return r == '.' })
	if len(labels) < 2 {
		return false
	}
	if !tldPattern.MatchString(labels[len(labels)-1]) {
		return false
	}
	if _, denied := hostDenylist[host]; denied {
		return false
	}
	return true
}

// NormalizeDomain reduces a raw domain or URL to scheme://host, defaulting to
// https when no scheme was supplied. It returns a ValidationError when the
// input cannot yield a crawlable host.
func NormalizeDomain(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", NewValidationError(input, "empty")
	}
	if !strings.HasPrefix(strings.ToLower(s), "http://") && !strings.HasPrefix(strings.ToLower(s), "https://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", NewValidationError(input, "unparseable URL")
	}
	host := strings.ToLower(u.Hostname())
	if !ValidHost(host) {
		return "", NewValidationError(input, "not a crawlable host")
	}
	return fmt.Sprintf("%s://%s", strings.ToLower(u.Scheme), host), nil
}

// Canonicalize standardizes a URL for use as a cache key: lowercased scheme
// and host, default ports and fragment removed, query parameters sorted.
func Canonicalize(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}
	u.Fragment = ""
	u.RawQuery = u.Query().Encode()
	return u.String(), nil
}

// Origin returns scheme://host for an absolute URL.
func Origin(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q has no origin", rawURL)
	}
	return fmt.Sprintf("%s://%s", u.Scheme, u.Host), nil
}

// Hostname extracts the host from a URL, falling back to the raw input when
// parsing fails. Error results still want a recognizable domain label.
func Hostname(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return rawURL
}
