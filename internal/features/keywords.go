package features

// Curated phrase sets used by the keyword extractors. Matching is
// case-insensitive substring matching; counts are capped so a repeated
// keyword cannot dominate the score.

// maxKeywordHits caps any single keyword counter
const maxKeywordHits = 10

var urgencyKeywords = []string{
	"urgent", "immediate", "expire", "suspend", "limit",
	"act now", "verify now", "confirm now", "deadline",
}

var credentialKeywords = []string{
	"password", "username", "login", "verify", "confirm",
	"update", "secure", "authentication", "credentials",
}

var financialKeywords = []string{
	"invoice", "payment", "refund", "tax", "irs", "bank",
	"credit card", "account", "billing", "charge",
}

var suspiciousPhrases = []string{
	"click here immediately",
	"verify your account",
	"suspicious activity",
	"your account will be",
	"confirm your identity",
	"you have won",
	"congratulations you",
	"claim your prize",
	"limited time offer",
}

// dangerousExtensions flag attachments that commonly carry payloads
var dangerousExtensions = []string{
	".exe", ".scr", ".vbs", ".js", ".bat", ".cmd", ".jar", ".zip",
}
