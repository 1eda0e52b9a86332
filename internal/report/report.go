package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mikey/llm-phishing-detector/internal/core"
)

// reportDocument is the serialized form handed to downstream consumers
type reportDocument struct {
	Score           int            `json:"score"`
	RiskLevel       core.RiskLevel `json:"risk_level"`
	Degraded        bool           `json:"degraded"`
	Threats         []threatEntry  `json:"threats"`
	Recommendations []string       `json:"recommendations"`
}

type threatEntry struct {
	Label    string `json:"label"`
	Evidence string `json:"evidence"`
	Weight   int    `json:"weight"`
}

// Recommendations derives security advice from the final score and threats
func Recommendations(result *core.AnalysisResult) []string {
	var recommendations []string

	if result.Score > 60 {
		recommendations = append(recommendations,
			"Do not click any links in this email",
			"Verify sender through official channels")
	}

	for _, threat := range result.Threats {
		if strings.Contains(threat.Label, "url") || threat.Label == "shortened_url" {
			recommendations = append(recommendations, "Hover over links to verify destinations")
			break
		}
	}

	if result.Score > 80 {
		recommendations = append(recommendations,
			"Report this email to your security team",
			"Delete this email immediately")
	}

	if result.Degraded {
		recommendations = append(recommendations,
			"Model analysis was unavailable; this verdict relies on pattern rules alone")
	}

	if len(recommendations) == 0 {
		recommendations = append(recommendations, "Email appears safe but remain vigilant")
	}

	return recommendations
}

// Render formats an analysis result as "json" or "text"
func Render(result *core.AnalysisResult, format string) (string, error) {
	doc := reportDocument{
		Score:           result.Score,
		RiskLevel:       result.RiskLevel,
		Degraded:        result.Degraded,
		Threats:         make([]threatEntry, 0, len(result.Threats)),
		Recommendations: Recommendations(result),
	}
	for _, threat := range result.Threats {
		doc.Threats = append(doc.Threats, threatEntry(threat))
	}

	switch format {
	case "json":
		encoded, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode report: %w", err)
		}
		return string(encoded), nil
	case "text":
		return renderText(doc), nil
	default:
		return "", fmt.Errorf("unsupported report format: %s", format)
	}
}

func renderText(doc reportDocument) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Score: %d/100\n", doc.Score)
	fmt.Fprintf(&sb, "Risk level: %s\n", doc.RiskLevel)
	if doc.Degraded {
		sb.WriteString("Degraded: model verdict unavailable\n")
	}

	sb.WriteString("\nThreats detected:\n")
	if len(doc.Threats) == 0 {
		sb.WriteString("  (none)\n")
	}
	for _, threat := range doc.Threats {
		fmt.Fprintf(&sb, "  - [%d] %s: %s\n", threat.Weight, threat.Label, threat.Evidence)
	}

	sb.WriteString("\nRecommendations:\n")
	for _, recommendation := range doc.Recommendations {
		fmt.Fprintf(&sb, "  - %s\n", recommendation)
	}

	return sb.String()
}
