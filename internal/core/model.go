package core

import (
	"time"
)

// Attachment represents a single email attachment as reported by the parser
type Attachment struct {
	Filename string
	MimeType string
	Size     int64
}

// EmailRecord represents a parsed email message, the immutable input to analysis
type EmailRecord struct {
	Sender      string
	DisplayName string
	Subject     string
	Body        string
	Attachments []Attachment
	URLs        []string
}

// URLEntry is a normalized view of a URL found in an email body
type URLEntry struct {
	Raw           string
	Normalized    string
	Domain        string
	Path          string
	Shortened     bool
	HomographRisk bool
	IPLiteral     bool
	SuspiciousTLD bool
	RedirectChain bool
	SpoofedBrand  string
}

// ExtractedFeatures is the derived, immutable snapshot of phishing signals
// computed from a single EmailRecord
type ExtractedFeatures struct {
	SenderDomain          string
	SenderBrandMismatch   bool
	MismatchedBrand       string
	SuspiciousNoReply     bool
	MisleadingDisplayName bool

	URLs []URLEntry

	UrgencyHits       int
	CredentialHits    int
	FinancialHits     int
	SuspiciousPhrases []string

	SubjectAllCaps     bool
	SubjectExcessPunct bool

	RiskyAttachments []string
}

// RuleFinding is a single matched pattern rule with its bounded weight
type RuleFinding struct {
	RuleID   string
	Weight   int
	Label    string
	Evidence string
}

// FlaggedSpan is a span of email text the model flagged as suspicious
type FlaggedSpan struct {
	Text     string
	Category string
}

// ModelVerdict is the structured judgment returned by the language model.
// Exactly one is produced per analysis, or none at all in degraded mode.
type ModelVerdict struct {
	Probability  float64
	Confidence   float64
	Rationale    string
	FlaggedSpans []FlaggedSpan
	ModelUsed    string
	ProcessingID string
}

// RiskLevel is the categorical risk tier assigned to a final score
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Threat is a labeled finding surfaced to the caller, either a matched rule
// or a model flagged span mapped into the same shape
type Threat struct {
	Label    string
	Evidence string
	Weight   int
}

// AnalysisResult is the final verdict for one email. It is a pure function
// of the rule findings and the model verdict, so repeated analysis of the
// same input yields an identical result.
type AnalysisResult struct {
	Score     int
	RiskLevel RiskLevel
	Threats   []Threat
	Degraded  bool
}

// CacheEntry wraps a cached AnalysisResult keyed by content fingerprint
type CacheEntry struct {
	Fingerprint string
	Result      *AnalysisResult
	CreatedAt   time.Time
	ExpiresAt   time.Time
}
