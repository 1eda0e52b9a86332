package fusion

import (
	"testing"

	"github.com/mikey/llm-phishing-detector/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newScorer(t *testing.T) *Scorer {
	t.Helper()
	return NewScorer(core.DefaultAnalysisConfig(), zap.NewNop())
}

func TestFuseNoSignals(t *testing.T) {
	result := newScorer(t).Fuse(nil, nil)

	assert.Equal(t, 0, result.Score)
	assert.Equal(t, core.RiskLow, result.RiskLevel)
	assert.True(t, result.Degraded)
	assert.Empty(t, result.Threats)
}

func TestFuseBlendsModelProbability(t *testing.T) {
	findings := []core.RuleFinding{
		{RuleID: "sender_brand_spoof", Label: "suspicious_sender_domain", Weight: 20, Evidence: "spoofed sender"},
		{RuleID: "url_shortener", Label: "shortened_url", Weight: 15, Evidence: "shortened link"},
		{RuleID: "urgency_language", Label: "urgency_language", Weight: 10, Evidence: "3 urgency keywords"},
	}
	verdict := &core.ModelVerdict{Probability: 0.9, Confidence: 0.9}

	result := newScorer(t).Fuse(findings, verdict)

	// 0.6*90 + 0.4*45 = 72
	assert.Equal(t, 72, result.Score)
	assert.Equal(t, core.RiskHigh, result.RiskLevel)
	assert.False(t, result.Degraded)
}

func TestFuseLowConfidenceVerdictIgnored(t *testing.T) {
	findings := []core.RuleFinding{
		{RuleID: "url_shortener", Label: "shortened_url", Weight: 15},
	}
	verdict := &core.ModelVerdict{Probability: 0.99, Confidence: 0.4}

	result := newScorer(t).Fuse(findings, verdict)

	// Model contributes nothing below the confidence floor
	assert.Equal(t, 15, result.Score)
	assert.False(t, result.Degraded)
}

func TestFuseMissingVerdictDegrades(t *testing.T) {
	findings := []core.RuleFinding{
		{RuleID: "credential_harvesting", Label: "credential_harvesting", Weight: 20},
		{RuleID: "url_homograph", Label: "lookalike_url", Weight: 25},
	}

	result := newScorer(t).Fuse(findings, nil)

	assert.Equal(t, 45, result.Score)
	assert.Equal(t, core.RiskMedium, result.RiskLevel)
	assert.True(t, result.Degraded)
}

func TestFuseBaseScoreCappedAt100(t *testing.T) {
	findings := make([]core.RuleFinding, 0, 6)
	for i := 0; i < 6; i++ {
		findings = append(findings, core.RuleFinding{
			RuleID: string(rune('a' + i)),
			Label:  string(rune('a' + i)),
			Weight: 25,
		})
	}

	result := newScorer(t).Fuse(findings, nil)
	assert.Equal(t, 100, result.Score)
	assert.Equal(t, core.RiskHigh, result.RiskLevel)
}

func TestFuseRiskTiers(t *testing.T) {
	tests := []struct {
		weight   int
		expected core.RiskLevel
	}{
		{0, core.RiskLow},
		{29, core.RiskLow},
		{30, core.RiskMedium},
		{59, core.RiskMedium},
		{60, core.RiskHigh},
		{85, core.RiskHigh},
		{100, core.RiskHigh},
	}

	for _, tt := range tests {
		findings := []core.RuleFinding{{RuleID: "r", Label: "r", Weight: tt.weight}}
		if tt.weight == 0 {
			findings = nil
		}
		result := newScorer(t).Fuse(findings, nil)
		assert.Equal(t, tt.expected, result.RiskLevel, "score %d", tt.weight)
	}
}

func TestFuseMonotonic(t *testing.T) {
	scorer := newScorer(t)

	t.Run("rising rule weight never lowers the score", func(t *testing.T) {
		verdict := &core.ModelVerdict{Probability: 0.5, Confidence: 0.9}
		previous := -1
		for weight := 0; weight <= 100; weight += 5 {
			findings := []core.RuleFinding{{RuleID: "r", Label: "r", Weight: weight}}
			score := scorer.Fuse(findings, verdict).Score
			assert.GreaterOrEqual(t, score, previous, "weight %d", weight)
			previous = score
		}
	})

	t.Run("rising model probability never lowers the score", func(t *testing.T) {
		findings := []core.RuleFinding{{RuleID: "r", Label: "r", Weight: 30}}
		previous := -1
		for p := 0.0; p <= 1.0; p += 0.05 {
			verdict := &core.ModelVerdict{Probability: p, Confidence: 0.9}
			score := scorer.Fuse(findings, verdict).Score
			assert.GreaterOrEqual(t, score, previous, "probability %.2f", p)
			previous = score
		}
	})
}

func TestFuseMergesAndDeduplicatesThreats(t *testing.T) {
	findings := []core.RuleFinding{
		{RuleID: "url_shortener", Label: "shortened_url", Weight: 15, Evidence: "shortened link via bit.ly"},
	}
	verdict := &core.ModelVerdict{
		Probability: 0.8,
		Confidence:  0.9,
		FlaggedSpans: []core.FlaggedSpan{
			{Text: "verify your account immediately", Category: "urgency_language"},
			{Text: "shortened link via bit.ly", Category: "shortened_url"},
		},
	}

	result := newScorer(t).Fuse(findings, verdict)

	// The duplicate (label, evidence) pair collapses, keeping the span's
	// confidence-derived weight of 90 over the rule's 15
	require.Len(t, result.Threats, 2)
	assert.Equal(t, core.Threat{Label: "shortened_url", Evidence: "shortened link via bit.ly", Weight: 90}, result.Threats[0])
	assert.Equal(t, core.Threat{Label: "urgency_language", Evidence: "verify your account immediately", Weight: 90}, result.Threats[1])
}

func TestFuseThreatListCapped(t *testing.T) {
	cfg := core.DefaultAnalysisConfig()
	cfg.MaxThreats = 2
	scorer := NewScorer(cfg, zap.NewNop())

	findings := []core.RuleFinding{
		{RuleID: "a", Label: "a", Weight: 5, Evidence: "a"},
		{RuleID: "b", Label: "b", Weight: 10, Evidence: "b"},
		{RuleID: "c", Label: "c", Weight: 15, Evidence: "c"},
	}

	result := scorer.Fuse(findings, nil)
	require.Len(t, result.Threats, 2)
	assert.Equal(t, "c", result.Threats[0].Label)
	assert.Equal(t, "b", result.Threats[1].Label)
}

func TestFuseDeterministicThreatOrder(t *testing.T) {
	findings := []core.RuleFinding{
		{RuleID: "b", Label: "beta", Weight: 10, Evidence: "x"},
		{RuleID: "a", Label: "alpha", Weight: 10, Evidence: "x"},
	}

	first := newScorer(t).Fuse(findings, nil)
	second := newScorer(t).Fuse(findings, nil)

	assert.Equal(t, first, second)
	assert.Equal(t, "alpha", first.Threats[0].Label)
	assert.Equal(t, "beta", first.Threats[1].Label)
}
