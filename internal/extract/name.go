package extract

import (
	"regexp"
	"sort"
	"strings"
)

// genericTokens are role-account words that make an email local part a poor
// personal contact candidate.
var genericTokens = []string{
	"info", "support", "sales", "hello", "contact", "admin", "service", "help", "team",
}

// storefrontSuffixes are hosted-platform domains whose own labels carry no
// brand signal; the label to their left is the storefront name.
var storefrontSuffixes = []string{
	"myshopify.com",
	"shopify.com",
	"shopifycloud.com",
	"wixsite.com",
	"webflow.io",
	"square.site",
	"squarespace.com",
	"weebly.com",
	"bigcartel.com",
}

var (
	alphaSegment   = regexp.MustCompile(`^[a-zA-Z]{2,}$`)
	localSeparator = regexp.MustCompile(`[._\-+]`)
	labelSeparator = regexp.MustCompile(`[-_]+`)
)

// LooksGeneric reports whether an email local part contains any role-account
// token (info, support, sales, ...).
func LooksGeneric(local string) bool {
	l := strings.ToLower(local)
	for _, token := range genericTokens {
		if strings.Contains(l, token) {
			return true
		}
	}
	return false
}

// PickBestEmail orders emails with non-generic local parts first (original
// order breaks ties) and returns the winner. ok is false for an empty list.
func PickBestEmail(emails []string) (best string, ok bool) {
	if len(emails) == 0 {
		return "", false
	}
	sorted := make([]string, len(emails))
	copy(sorted, emails)
	sort.SliceStable(sorted, func(i, j int) bool {
		return !LooksGeneric(localPart(sorted[i])) && LooksGeneric(localPart(sorted[j]))
	})
	return sorted[0], true
}

// DeriveFirstName guesses a personal first name from an email address: the
// local part is split on `. _ - +` and the first alphabetic segment of at
// least two letters that is not generic wins, title-cased. A purely
// alphabetic local part is the fallback; otherwise no name is derived.
func DeriveFirstName(email string) (string, bool) {
	local := localPart(email)
	if local == "" {
		return "", false
	}
	for _, part := range localSeparator.Split(local, -1) {
		if part == "" {
			continue
		}
		if alphaSegment.MatchString(part) && !LooksGeneric(part) {
			return titleCase(part), true
		}
	}
	if alphaSegment.MatchString(local) {
		return titleCase(local), true
	}
	return "", false
}

// DeriveBrandName turns a hostname into a display-ready brand name: strip a
// leading www., strip a known storefront-platform suffix, keep the leftmost
// remaining label, then title-case its hyphen/underscore-separated tokens.
func DeriveBrandName(hostname string) string {
	if hostname == "" {
		return ""
	}
	host := strings.ToLower(hostname)
	host = strings.TrimPrefix(host, "www.")
	for _, suffix := range storefrontSuffixes {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			labels := strings.Split(host, ".")
			suffixLabels := strings.Count(suffix, ".") + 1
			if idx := len(labels) - suffixLabels - 1; idx >= 0 {
				host = labels[idx]
			}
			break
		}
	}
	if i := strings.IndexByte(host, '.'); i >= 0 {
		host = host[:i]
	}
	var tokens []string
	for _, token := range labelSeparator.Split(host, -1) {
		if token != "" {
			tokens = append(tokens, titleCase(token))
		}
	}
	if len(tokens) == 0 {
		return titleCase(host)
	}
	return strings.Join(tokens, " ")
}

func localPart(email string) string {
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}

func titleCase(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
}
