package features

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mikey/llm-phishing-detector/internal/core"
	"go.uber.org/zap"
)

// Extractor derives normalized phishing signals from a parsed email. It
// performs no network access; every signal is computed locally from the
// record's fields.
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor creates a new feature extractor
func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract computes an ExtractedFeatures snapshot for the email. It fails
// only when the required fields (sender, body) are missing or empty.
func (e *Extractor) Extract(email *core.EmailRecord) (*core.ExtractedFeatures, error) {
	if email == nil || strings.TrimSpace(email.Sender) == "" {
		return nil, fmt.Errorf("%w: sender is required", core.ErrMalformedInput)
	}
	if strings.TrimSpace(email.Body) == "" {
		return nil, fmt.Errorf("%w: body is required", core.ErrMalformedInput)
	}

	features := &core.ExtractedFeatures{
		SenderDomain: extractDomain(email.Sender),
	}

	e.extractSenderSignals(email, features)
	e.extractURLSignals(email, features)
	e.extractKeywordSignals(email, features)
	e.extractSubjectSignals(email, features)
	e.extractAttachmentSignals(email, features)

	e.logger.Debug("Extracted features",
		zap.String("sender_domain", features.SenderDomain),
		zap.Int("urls", len(features.URLs)),
		zap.Int("urgency_hits", features.UrgencyHits),
		zap.Int("credential_hits", features.CredentialHits))

	return features, nil
}

func (e *Extractor) extractSenderSignals(email *core.EmailRecord, features *core.ExtractedFeatures) {
	sender := strings.ToLower(email.Sender)

	// The sending domain itself imitating a protected brand
	if brand := spoofedBrand(features.SenderDomain); brand != "" {
		features.SenderBrandMismatch = true
		features.MismatchedBrand = brand
	}

	// Display name claiming an organization the sending domain doesn't match
	if !features.SenderBrandMismatch && email.DisplayName != "" {
		display := normalizeHomographs(email.DisplayName)
		for brand := range protectedBrands {
			if strings.Contains(display, brand) && !isBrandDomain(features.SenderDomain, brand) {
				features.SenderBrandMismatch = true
				features.MismatchedBrand = brand
				break
			}
		}
	}

	// A display name that itself looks like an address hides the real sender
	if strings.Contains(email.DisplayName, "@") {
		features.MisleadingDisplayName = true
	}

	if strings.Contains(sender, "no-reply") || strings.Contains(sender, "noreply") {
		for _, word := range []string{"security", "alert", "verify"} {
			if strings.Contains(sender, word) {
				features.SuspiciousNoReply = true
				break
			}
		}
	}
}

func (e *Extractor) extractURLSignals(email *core.EmailRecord, features *core.ExtractedFeatures) {
	seen := make(map[string]bool)
	for _, raw := range email.URLs {
		if raw == "" || seen[raw] {
			continue
		}
		seen[raw] = true
		features.URLs = append(features.URLs, normalizeURL(raw))
	}
	// Deterministic order regardless of how the parser encountered the links
	sort.Slice(features.URLs, func(i, j int) bool {
		return features.URLs[i].Raw < features.URLs[j].Raw
	})
}

func (e *Extractor) extractKeywordSignals(email *core.EmailRecord, features *core.ExtractedFeatures) {
	text := strings.ToLower(email.Subject + " " + email.Body)

	features.UrgencyHits = countKeywords(text, urgencyKeywords)
	features.CredentialHits = countKeywords(text, credentialKeywords)
	features.FinancialHits = countKeywords(text, financialKeywords)

	for _, phrase := range suspiciousPhrases {
		if strings.Contains(text, phrase) {
			features.SuspiciousPhrases = append(features.SuspiciousPhrases, phrase)
		}
	}
}

func (e *Extractor) extractSubjectSignals(email *core.EmailRecord, features *core.ExtractedFeatures) {
	subject := email.Subject

	if len(subject) > 10 && subject == strings.ToUpper(subject) && subject != strings.ToLower(subject) {
		features.SubjectAllCaps = true
	}
	if strings.Count(subject, "!") > 2 || strings.Count(subject, "$") > 1 {
		features.SubjectExcessPunct = true
	}
}

func (e *Extractor) extractAttachmentSignals(email *core.EmailRecord, features *core.ExtractedFeatures) {
	for _, attachment := range email.Attachments {
		name := strings.ToLower(attachment.Filename)
		for _, ext := range dangerousExtensions {
			if strings.HasSuffix(name, ext) {
				features.RiskyAttachments = append(features.RiskyAttachments, attachment.Filename)
				break
			}
		}
	}
}

// countKeywords counts how many distinct keywords appear in the text,
// capped so repetition cannot inflate downstream scores
func countKeywords(text string, keywords []string) int {
	count := 0
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			count++
		}
	}
	if count > maxKeywordHits {
		count = maxKeywordHits
	}
	return count
}

// extractDomain extracts the lowercased domain from an email address
func extractDomain(address string) string {
	parts := strings.Split(address, "@")
	if len(parts) != 2 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(parts[1]))
}
