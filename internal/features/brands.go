package features

import (
	"strings"
)

// protectedBrands maps frequently impersonated organizations to the domains
// they legitimately send from. Used for spoofing and homograph detection.
var protectedBrands = map[string][]string{
	"amazon":    {"amazon.com", "amazon.co.uk", "amazon.de"},
	"paypal":    {"paypal.com", "paypal.me"},
	"microsoft": {"microsoft.com", "outlook.com", "live.com"},
	"google":    {"google.com", "gmail.com", "googleapis.com"},
	"apple":     {"apple.com", "icloud.com"},
	"facebook":  {"facebook.com", "fb.com"},
	"netflix":   {"netflix.com"},
	"ebay":      {"ebay.com"},
	"linkedin":  {"linkedin.com", "lnkd.in"},
	"twitter":   {"twitter.com", "x.com"},
}

// homographReplacer undoes the common look-alike character substitutions
// attackers use to imitate a trusted name (digit-for-letter and similar)
var homographReplacer = strings.NewReplacer(
	"0", "o",
	"1", "l",
	"3", "e",
	"5", "s",
	"@", "a",
	"rn", "m",
	"vv", "w",
)

// normalizeHomographs resolves look-alike substitutions so that e.g.
// "amaz0n" compares equal to "amazon"
func normalizeHomographs(s string) string {
	return homographReplacer.Replace(strings.ToLower(s))
}

// isBrandDomain reports whether the domain (or a parent of it) is one the
// brand legitimately sends from
func isBrandDomain(domain, brand string) bool {
	for _, legit := range protectedBrands[brand] {
		if domain == legit || strings.HasSuffix(domain, "."+legit) {
			return true
		}
	}
	return false
}

// spoofedBrand returns the protected brand a domain appears to imitate, or
// an empty string. A domain imitates a brand when its homograph-normalized
// form contains the brand name while the domain itself is not one of the
// brand's legitimate domains.
func spoofedBrand(domain string) string {
	domain = strings.ToLower(domain)
	normalized := normalizeHomographs(domain)
	for brand := range protectedBrands {
		if !strings.Contains(normalized, brand) {
			continue
		}
		if isBrandDomain(domain, brand) {
			continue
		}
		return brand
	}

	// Typosquats that survive normalization: one edit away from a protected
	// registrable domain (micros0ft.com handled above, amazn.com here)
	label := registrableLabel(domain)
	if label == "" {
		return ""
	}
	for brand, domains := range protectedBrands {
		for _, legit := range domains {
			legitLabel := registrableLabel(legit)
			if label != legitLabel && levenshteinDistance(label, legitLabel) == 1 {
				return brand
			}
		}
	}
	return ""
}

// registrableLabel returns the label directly left of the TLD ("amazon" for
// "mail.amazon.com")
func registrableLabel(domain string) string {
	parts := strings.Split(domain, ".")
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-2]
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(s2)]
}
