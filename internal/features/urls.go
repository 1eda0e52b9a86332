package features

import (
	"net"
	"net/url"
	"strings"

	"github.com/mikey/llm-phishing-detector/internal/core"
)

// Known URL shortening services
var urlShorteners = []string{
	"bit.ly", "tinyurl.com", "goo.gl", "ow.ly",
	"short.link", "rebrand.ly", "t.co", "buff.ly",
	"is.gd", "adf.ly", "bl.ink", "lnkd.in",
}

// TLDs disproportionately used by throwaway phishing domains
var suspiciousTLDs = []string{
	".tk", ".ml", ".ga", ".cf", ".click", ".download",
	".review", ".country", ".kim", ".science", ".work",
}

// Tracking parameters stripped during normalization so that otherwise
// identical links compare equal
var trackingParams = map[string]bool{
	"utm_source":   true,
	"utm_medium":   true,
	"utm_campaign": true,
	"utm_term":     true,
	"utm_content":  true,
	"fbclid":       true,
	"gclid":        true,
	"mc_eid":       true,
	"mkt_tok":      true,
}

// Query parameters whose stacking indicates a redirect chain
var redirectParams = []string{"url", "redirect", "goto", "dest", "target"}

// normalizeURL parses a raw URL into a URLEntry with all suspicion flags
// set. Unparseable URLs are flagged rather than rejected.
func normalizeURL(raw string) core.URLEntry {
	entry := core.URLEntry{Raw: raw}

	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Host == "" {
		// A link that cannot be parsed is itself a signal
		entry.HomographRisk = true
		return entry
	}

	host := strings.ToLower(parsed.Hostname())
	entry.Domain = host
	entry.Path = parsed.EscapedPath()

	// Strip tracking parameters
	query := parsed.Query()
	for param := range query {
		if trackingParams[strings.ToLower(param)] {
			query.Del(param)
		}
	}
	parsed.RawQuery = query.Encode()
	entry.Normalized = parsed.String()

	for _, shortener := range urlShorteners {
		if host == shortener || strings.HasSuffix(host, "."+shortener) {
			entry.Shortened = true
			break
		}
	}

	if net.ParseIP(host) != nil {
		entry.IPLiteral = true
	}

	for _, tld := range suspiciousTLDs {
		if strings.HasSuffix(host, tld) {
			entry.SuspiciousTLD = true
			break
		}
	}

	if brand := spoofedBrand(host); brand != "" {
		entry.HomographRisk = true
		entry.SpoofedBrand = brand
	} else if brand := subdomainSpoofedBrand(host); brand != "" {
		entry.HomographRisk = true
		entry.SpoofedBrand = brand
	}

	redirects := 0
	for param := range query {
		for _, rp := range redirectParams {
			if strings.EqualFold(param, rp) {
				redirects++
			}
		}
	}
	entry.RedirectChain = redirects >= 2

	return entry
}

// subdomainSpoofedBrand catches links like paypal.com.evil.example where a
// protected brand appears in the subdomain of an unrelated registrable domain
func subdomainSpoofedBrand(host string) string {
	parts := strings.Split(host, ".")
	if len(parts) <= 2 {
		return ""
	}
	subdomains := strings.Join(parts[:len(parts)-2], ".")
	for brand := range protectedBrands {
		if strings.Contains(subdomains, brand) && !isBrandDomain(host, brand) {
			return brand
		}
	}
	return ""
}
