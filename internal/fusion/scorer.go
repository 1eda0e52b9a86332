package fusion

import (
	"math"
	"sort"

	"github.com/mikey/llm-phishing-detector/internal/core"
	"go.uber.org/zap"
)

// Scorer merges rule findings and the model verdict into one composite
// score and risk tier. All arithmetic is deterministic: identical inputs
// always produce an identical AnalysisResult.
type Scorer struct {
	cfg    core.AnalysisConfig
	logger *zap.Logger
}

// NewScorer creates a scorer from an immutable configuration snapshot
func NewScorer(cfg core.AnalysisConfig, logger *zap.Logger) *Scorer {
	return &Scorer{cfg: cfg, logger: logger}
}

// Fuse combines the deterministic rule score with the model probability.
//
// The rule base score is min(100, sum of matched weights). When a verdict
// is present and confident enough, the final score blends the model
// probability with the base score; below the confidence floor the model
// contributes nothing. Without a verdict the analysis is degraded and the
// base score stands alone.
func (s *Scorer) Fuse(findings []core.RuleFinding, verdict *core.ModelVerdict) *core.AnalysisResult {
	base := 0
	for _, finding := range findings {
		base += finding.Weight
	}
	if base > 100 {
		base = 100
	}

	score := base
	degraded := verdict == nil

	if verdict != nil && verdict.Confidence >= s.cfg.MinModelConfidence {
		w := s.cfg.BlendWeight
		score = int(math.Round(w*verdict.Probability*100 + (1-w)*float64(base)))
	}

	result := &core.AnalysisResult{
		Score:     score,
		RiskLevel: s.riskLevel(score),
		Threats:   s.mergeThreats(findings, verdict),
		Degraded:  degraded,
	}

	s.logger.Debug("Fused analysis signals",
		zap.Int("base_score", base),
		zap.Int("final_score", score),
		zap.Bool("degraded", degraded),
		zap.String("risk_level", string(result.RiskLevel)))

	return result
}

// riskLevel assigns the categorical tier by fixed threshold comparison
func (s *Scorer) riskLevel(score int) core.RiskLevel {
	t := s.cfg.Thresholds
	switch {
	case score < t.Low:
		return core.RiskLow
	case score < t.Medium:
		return core.RiskMedium
	default:
		// Scores at or beyond the high threshold share the top tier
		return core.RiskHigh
	}
}

// mergeThreats folds rule findings and model flagged spans into one
// deduplicated list, highest weight first, capped to the configured maximum
func (s *Scorer) mergeThreats(findings []core.RuleFinding, verdict *core.ModelVerdict) []core.Threat {
	threats := make([]core.Threat, 0, len(findings))

	for _, finding := range findings {
		threats = append(threats, core.Threat{
			Label:    finding.Label,
			Evidence: finding.Evidence,
			Weight:   finding.Weight,
		})
	}

	if verdict != nil {
		// Flagged spans carry the verdict's confidence as their weight so
		// they sort against rule findings on one scale
		spanWeight := int(math.Round(verdict.Confidence * 100))
		for _, span := range verdict.FlaggedSpans {
			threats = append(threats, core.Threat{
				Label:    span.Category,
				Evidence: span.Text,
				Weight:   spanWeight,
			})
		}
	}

	// Deduplicate by (label, evidence) pair, keeping the heavier entry
	seen := make(map[[2]string]int, len(threats))
	deduped := make([]core.Threat, 0, len(threats))
	for _, threat := range threats {
		key := [2]string{threat.Label, threat.Evidence}
		if idx, ok := seen[key]; ok {
			if threat.Weight > deduped[idx].Weight {
				deduped[idx].Weight = threat.Weight
			}
			continue
		}
		seen[key] = len(deduped)
		deduped = append(deduped, threat)
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		if deduped[i].Weight != deduped[j].Weight {
			return deduped[i].Weight > deduped[j].Weight
		}
		if deduped[i].Label != deduped[j].Label {
			return deduped[i].Label < deduped[j].Label
		}
		return deduped[i].Evidence < deduped[j].Evidence
	})

	if len(deduped) > s.cfg.MaxThreats {
		deduped = deduped[:s.cfg.MaxThreats]
	}

	return deduped
}
