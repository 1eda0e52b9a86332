package rules

import (
	"sort"

	"github.com/mikey/llm-phishing-detector/internal/core"
	"go.uber.org/zap"
)

// Matcher evaluates the rule catalog against extracted features. Rules are
// independent of each other, so the matcher never fails; no matches simply
// yields an empty list.
type Matcher struct {
	rules  []Rule
	logger *zap.Logger
}

// NewMatcher creates a matcher over the standard rule catalog
func NewMatcher(logger *zap.Logger) *Matcher {
	return NewMatcherWithRules(Catalog, logger)
}

// NewMatcherWithRules creates a matcher over a custom rule set
func NewMatcherWithRules(rules []Rule, logger *zap.Logger) *Matcher {
	return &Matcher{rules: rules, logger: logger}
}

// Match returns the findings for every rule whose condition holds, sorted
// by weight descending (rule ID breaks ties) so output order is stable
// regardless of catalog order.
func (m *Matcher) Match(features *core.ExtractedFeatures) []core.RuleFinding {
	findings := make([]core.RuleFinding, 0)

	for _, rule := range m.rules {
		matched, evidence := rule.Condition(features)
		if !matched {
			continue
		}
		findings = append(findings, core.RuleFinding{
			RuleID:   rule.ID,
			Weight:   rule.Weight,
			Label:    rule.Label,
			Evidence: evidence,
		})
	}

	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Weight != findings[j].Weight {
			return findings[i].Weight > findings[j].Weight
		}
		return findings[i].RuleID < findings[j].RuleID
	})

	if len(findings) > 0 {
		m.logger.Debug("Pattern rules matched", zap.Int("findings", len(findings)))
	}

	return findings
}
