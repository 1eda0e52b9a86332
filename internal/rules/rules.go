package rules

import (
	"fmt"
	"strings"

	"github.com/mikey/llm-phishing-detector/internal/core"
)

// Rule maps a feature condition to a fixed weight and threat label. The
// weight is the rule's static maximum contribution; a rule either matches
// with its full weight or not at all.
type Rule struct {
	ID     string
	Label  string
	Weight int

	// Condition reports whether the rule matches and, if so, the evidence
	// span backing the finding
	Condition func(f *core.ExtractedFeatures) (bool, string)
}

// Catalog is the full ordered rule set. Evaluation order never affects
// which rules match; the matcher re-sorts findings for determinism.
var Catalog = []Rule{
	{
		ID:     "sender_brand_spoof",
		Label:  "suspicious_sender_domain",
		Weight: 20,
		Condition: func(f *core.ExtractedFeatures) (bool, string) {
			if !f.SenderBrandMismatch {
				return false, ""
			}
			return true, fmt.Sprintf("sender domain %q imitates %s", f.SenderDomain, f.MismatchedBrand)
		},
	},
	{
		ID:     "url_homograph",
		Label:  "lookalike_url",
		Weight: 25,
		Condition: func(f *core.ExtractedFeatures) (bool, string) {
			for _, u := range f.URLs {
				if u.HomographRisk {
					return true, fmt.Sprintf("link %q resembles %s", u.Domain, u.SpoofedBrand)
				}
			}
			return false, ""
		},
	},
	{
		ID:     "url_shortener",
		Label:  "shortened_url",
		Weight: 15,
		Condition: func(f *core.ExtractedFeatures) (bool, string) {
			for _, u := range f.URLs {
				if u.Shortened {
					return true, fmt.Sprintf("shortened link via %s", u.Domain)
				}
			}
			return false, ""
		},
	},
	{
		ID:     "url_ip_literal",
		Label:  "ip_address_url",
		Weight: 20,
		Condition: func(f *core.ExtractedFeatures) (bool, string) {
			for _, u := range f.URLs {
				if u.IPLiteral {
					return true, fmt.Sprintf("link addresses raw IP %s", u.Domain)
				}
			}
			return false, ""
		},
	},
	{
		ID:     "url_suspicious_tld",
		Label:  "suspicious_tld",
		Weight: 10,
		Condition: func(f *core.ExtractedFeatures) (bool, string) {
			for _, u := range f.URLs {
				if u.SuspiciousTLD {
					return true, fmt.Sprintf("link on distrusted extension: %s", u.Domain)
				}
			}
			return false, ""
		},
	},
	{
		ID:     "url_redirect_chain",
		Label:  "redirect_chain",
		Weight: 10,
		Condition: func(f *core.ExtractedFeatures) (bool, string) {
			for _, u := range f.URLs {
				if u.RedirectChain {
					return true, fmt.Sprintf("link %q stacks redirect parameters", u.Domain)
				}
			}
			return false, ""
		},
	},
	{
		ID:     "urgency_language",
		Label:  "urgency_language",
		Weight: 10,
		Condition: func(f *core.ExtractedFeatures) (bool, string) {
			if f.UrgencyHits < 2 {
				return false, ""
			}
			return true, fmt.Sprintf("%d urgency keywords", f.UrgencyHits)
		},
	},
	{
		ID:     "credential_harvesting",
		Label:  "credential_harvesting",
		Weight: 20,
		Condition: func(f *core.ExtractedFeatures) (bool, string) {
			if f.CredentialHits < 3 {
				return false, ""
			}
			return true, fmt.Sprintf("%d credential keywords", f.CredentialHits)
		},
	},
	{
		ID:     "financial_lure",
		Label:  "financial_lure",
		Weight: 15,
		Condition: func(f *core.ExtractedFeatures) (bool, string) {
			if f.FinancialHits < 3 || f.UrgencyHits == 0 {
				return false, ""
			}
			return true, fmt.Sprintf("%d financial keywords with urgency", f.FinancialHits)
		},
	},
	{
		ID:     "suspicious_phrases",
		Label:  "suspicious_phrasing",
		Weight: 15,
		Condition: func(f *core.ExtractedFeatures) (bool, string) {
			if len(f.SuspiciousPhrases) < 2 {
				return false, ""
			}
			return true, strings.Join(f.SuspiciousPhrases, "; ")
		},
	},
	{
		ID:     "misleading_display_name",
		Label:  "misleading_display_name",
		Weight: 15,
		Condition: func(f *core.ExtractedFeatures) (bool, string) {
			if !f.MisleadingDisplayName {
				return false, ""
			}
			return true, "display name contains an email address"
		},
	},
	{
		ID:     "suspicious_noreply",
		Label:  "suspicious_sender_address",
		Weight: 10,
		Condition: func(f *core.ExtractedFeatures) (bool, string) {
			if !f.SuspiciousNoReply {
				return false, ""
			}
			return true, "no-reply sender posing as a security alert"
		},
	},
	{
		ID:     "risky_attachment",
		Label:  "dangerous_attachment",
		Weight: 20,
		Condition: func(f *core.ExtractedFeatures) (bool, string) {
			if len(f.RiskyAttachments) == 0 {
				return false, ""
			}
			return true, strings.Join(f.RiskyAttachments, ", ")
		},
	},
	{
		ID:     "subject_all_caps",
		Label:  "excessive_capitalization",
		Weight: 5,
		Condition: func(f *core.ExtractedFeatures) (bool, string) {
			if !f.SubjectAllCaps {
				return false, ""
			}
			return true, "subject written entirely in capitals"
		},
	},
	{
		ID:     "subject_punctuation",
		Label:  "excessive_punctuation",
		Weight: 5,
		Condition: func(f *core.ExtractedFeatures) (bool, string) {
			if !f.SubjectExcessPunct {
				return false, ""
			}
			return true, "subject stacked with ! or $ characters"
		},
	},
}
