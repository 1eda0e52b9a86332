package openai

import (
	"testing"

	"github.com/mikey/llm-phishing-detector/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVerdict(t *testing.T) {
	t.Run("complete verdict", func(t *testing.T) {
		verdict, err := parseVerdict(`{
			"probability": 0.92,
			"confidence": 0.85,
			"rationale": "spoofed sender and credential lure",
			"flagged_spans": [
				{"text": "verify your account immediately", "category": "urgency_language"}
			]
		}`)
		require.NoError(t, err)

		assert.Equal(t, 0.92, verdict.Probability)
		assert.Equal(t, 0.85, verdict.Confidence)
		assert.Equal(t, "spoofed sender and credential lure", verdict.Rationale)
		require.Len(t, verdict.FlaggedSpans, 1)
		assert.Equal(t, core.FlaggedSpan{
			Text:     "verify your account immediately",
			Category: "urgency_language",
		}, verdict.FlaggedSpans[0])
	})

	t.Run("json wrapped in prose", func(t *testing.T) {
		verdict, err := parseVerdict("Here is my assessment:\n```json\n{\"probability\": 0.1, \"confidence\": 0.9, \"rationale\": \"benign\"}\n```\n")
		require.NoError(t, err)
		assert.Equal(t, 0.1, verdict.Probability)
	})

	t.Run("schema violations", func(t *testing.T) {
		tests := []struct {
			name     string
			response string
		}{
			{"no json at all", "I cannot assess this email."},
			{"invalid json", "{probability: oops}"},
			{"missing probability", `{"confidence": 0.9}`},
			{"missing confidence", `{"probability": 0.5}`},
			{"probability out of range", `{"probability": 1.5, "confidence": 0.9}`},
			{"confidence out of range", `{"probability": 0.5, "confidence": -0.1}`},
			{"span without category", `{"probability": 0.5, "confidence": 0.9, "flagged_spans": [{"text": "x"}]}`},
			{"span without text", `{"probability": 0.5, "confidence": 0.9, "flagged_spans": [{"category": "x"}]}`},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := parseVerdict(tt.response)
				assert.ErrorIs(t, err, core.ErrModelSchema)
			})
		}
	})

	t.Run("explicit zero probability accepted", func(t *testing.T) {
		verdict, err := parseVerdict(`{"probability": 0, "confidence": 1}`)
		require.NoError(t, err)
		assert.Equal(t, 0.0, verdict.Probability)
		assert.Equal(t, 1.0, verdict.Confidence)
	})
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		ok       bool
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`, true},
		{"fenced object", "```json\n{\"a\": 1}\n```", `{"a": 1}`, true},
		{"prose around object", `sure: {"a": 1} hope that helps`, `{"a": 1}`, true},
		{"no object", "nothing here", "", false},
		{"unbalanced", "} {", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractJSON(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}
