package batch

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mikey/llm-phishing-detector/internal/analyzer"
	"github.com/mikey/llm-phishing-detector/internal/core"
	"github.com/mikey/llm-phishing-detector/internal/features"
	"github.com/mikey/llm-phishing-detector/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type scriptedJudge struct {
	fn func(ctx context.Context, email *core.EmailRecord) (*core.ModelVerdict, error)
}

func (s *scriptedJudge) JudgeEmail(ctx context.Context, email *core.EmailRecord) (*core.ModelVerdict, error) {
	return s.fn(ctx, email)
}

func newBatchService(t *testing.T, judge core.ModelJudge) *analyzer.Service {
	t.Helper()
	service, err := analyzer.NewService(
		features.NewExtractor(zap.NewNop()),
		rules.NewMatcher(zap.NewNop()),
		judge,
		nil,
		false,
		time.Second,
		core.DefaultAnalysisConfig(),
		zap.NewNop(),
	)
	require.NoError(t, err)
	return service
}

func batchEmail(i int) *core.EmailRecord {
	return &core.EmailRecord{
		Sender:  fmt.Sprintf("sender%d@example.com", i),
		Subject: fmt.Sprintf("message %d", i),
		Body:    fmt.Sprintf("body of message %d", i),
	}
}

func TestAnalyzeAllPreservesOrderAndIsolatesFailures(t *testing.T) {
	judge := &scriptedJudge{fn: func(context.Context, *core.EmailRecord) (*core.ModelVerdict, error) {
		return &core.ModelVerdict{Probability: 0.1, Confidence: 0.9}, nil
	}}
	coordinator := NewCoordinator(newBatchService(t, judge), zap.NewNop())

	emails := []*core.EmailRecord{
		batchEmail(0),
		batchEmail(1),
		{Sender: "broken@example.com"}, // no body
		batchEmail(3),
		batchEmail(4),
	}

	results := coordinator.AnalyzeAll(context.Background(), emails)
	require.Len(t, results, len(emails))

	for i, item := range results {
		assert.Equal(t, i, item.Index)
		if i == 2 {
			assert.ErrorIs(t, item.Err, core.ErrMalformedInput)
			assert.Nil(t, item.Result)
			continue
		}
		require.NoError(t, item.Err)
		require.NotNil(t, item.Result)
	}
}

func TestAnalyzeAllEmptyInput(t *testing.T) {
	judge := &scriptedJudge{fn: func(context.Context, *core.EmailRecord) (*core.ModelVerdict, error) {
		return &core.ModelVerdict{Probability: 0.1, Confidence: 0.9}, nil
	}}
	coordinator := NewCoordinator(newBatchService(t, judge), zap.NewNop())

	results := coordinator.AnalyzeAll(context.Background(), nil)
	assert.Empty(t, results)
}

func TestAnalyzeAllCancelledContext(t *testing.T) {
	judge := &scriptedJudge{fn: func(context.Context, *core.EmailRecord) (*core.ModelVerdict, error) {
		return &core.ModelVerdict{Probability: 0.1, Confidence: 0.9}, nil
	}}
	coordinator := NewCoordinator(newBatchService(t, judge), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := coordinator.AnalyzeAll(ctx, []*core.EmailRecord{batchEmail(0), batchEmail(1)})
	require.Len(t, results, 2)
	for _, item := range results {
		assert.ErrorIs(t, item.Err, context.Canceled)
		assert.Nil(t, item.Result)
	}
}

func TestAnalyzeAllIndependentEmailsScoreIndependently(t *testing.T) {
	judge := &scriptedJudge{fn: func(_ context.Context, email *core.EmailRecord) (*core.ModelVerdict, error) {
		// Only the spoofed sender draws a high probability
		if email.Sender == "support@amaz0n-security.com" {
			return &core.ModelVerdict{Probability: 0.9, Confidence: 0.9}, nil
		}
		return &core.ModelVerdict{Probability: 0.05, Confidence: 0.9}, nil
	}}
	coordinator := NewCoordinator(newBatchService(t, judge), zap.NewNop())

	emails := []*core.EmailRecord{
		batchEmail(0),
		{
			Sender:  "support@amaz0n-security.com",
			Subject: "Urgent: Account Suspended",
			Body:    "Please verify your account immediately: https://bit.ly/3xYz",
			URLs:    []string{"https://bit.ly/3xYz"},
		},
	}

	results := coordinator.AnalyzeAll(context.Background(), emails)
	require.Len(t, results, 2)
	require.NoError(t, results[0].Err)
	require.NoError(t, results[1].Err)

	assert.Equal(t, core.RiskLow, results[0].Result.RiskLevel)
	assert.Equal(t, 72, results[1].Result.Score)
	assert.Equal(t, core.RiskHigh, results[1].Result.RiskLevel)
}
