package analyzer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mikey/llm-phishing-detector/internal/cache"
	"github.com/mikey/llm-phishing-detector/internal/core"
	"github.com/mikey/llm-phishing-detector/internal/features"
	"github.com/mikey/llm-phishing-detector/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubJudge is a scripted ModelJudge that counts its invocations
type stubJudge struct {
	calls int64
	fn    func(ctx context.Context, email *core.EmailRecord) (*core.ModelVerdict, error)
}

func (s *stubJudge) JudgeEmail(ctx context.Context, email *core.EmailRecord) (*core.ModelVerdict, error) {
	atomic.AddInt64(&s.calls, 1)
	return s.fn(ctx, email)
}

func (s *stubJudge) callCount() int64 {
	return atomic.LoadInt64(&s.calls)
}

func confidentVerdict(probability float64) *core.ModelVerdict {
	return &core.ModelVerdict{
		Probability: probability,
		Confidence:  0.9,
		Rationale:   "scripted verdict",
		ModelUsed:   "stub",
	}
}

func newTestService(t *testing.T, judge core.ModelJudge, resultCache core.ResultCache, cacheEnabled bool) *Service {
	t.Helper()
	service, err := NewService(
		features.NewExtractor(zap.NewNop()),
		rules.NewMatcher(zap.NewNop()),
		judge,
		resultCache,
		cacheEnabled,
		time.Second,
		core.DefaultAnalysisConfig(),
		zap.NewNop(),
	)
	require.NoError(t, err)
	return service
}

// spoofedEmail trips the brand spoof, shortener and urgency rules for a
// deterministic rule base score of 45
func spoofedEmail() *core.EmailRecord {
	return &core.EmailRecord{
		Sender:  "support@amaz0n-security.com",
		Subject: "Urgent: Account Suspended",
		Body:    "Please verify your account immediately: https://bit.ly/3xYz",
		URLs:    []string{"https://bit.ly/3xYz"},
	}
}

func TestNewServiceRejectsInvalidConfig(t *testing.T) {
	cfg := core.DefaultAnalysisConfig()
	cfg.BlendWeight = 1.5

	_, err := NewService(
		features.NewExtractor(zap.NewNop()),
		rules.NewMatcher(zap.NewNop()),
		&stubJudge{fn: func(context.Context, *core.EmailRecord) (*core.ModelVerdict, error) { return nil, nil }},
		nil,
		false,
		time.Second,
		cfg,
		zap.NewNop(),
	)
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestAnalyzeEmailMalformedInput(t *testing.T) {
	judge := &stubJudge{fn: func(context.Context, *core.EmailRecord) (*core.ModelVerdict, error) {
		return confidentVerdict(0.5), nil
	}}
	service := newTestService(t, judge, nil, false)

	_, err := service.AnalyzeEmail(context.Background(), &core.EmailRecord{Sender: "a@example.com"})
	assert.ErrorIs(t, err, core.ErrMalformedInput)
	assert.EqualValues(t, 0, judge.callCount())
}

func TestAnalyzeEmailBlendsVerdict(t *testing.T) {
	judge := &stubJudge{fn: func(context.Context, *core.EmailRecord) (*core.ModelVerdict, error) {
		return confidentVerdict(0.9), nil
	}}
	service := newTestService(t, judge, nil, false)

	result, err := service.AnalyzeEmail(context.Background(), spoofedEmail())
	require.NoError(t, err)

	// 0.6*90 + 0.4*45
	assert.Equal(t, 72, result.Score)
	assert.Equal(t, core.RiskHigh, result.RiskLevel)
	assert.False(t, result.Degraded)
	assert.NotEmpty(t, result.Threats)
}

func TestAnalyzeEmailDegradesOnJudgeFailure(t *testing.T) {
	judge := &stubJudge{fn: func(context.Context, *core.EmailRecord) (*core.ModelVerdict, error) {
		return nil, core.ErrModelSchema
	}}
	service := newTestService(t, judge, nil, false)

	result, err := service.AnalyzeEmail(context.Background(), spoofedEmail())
	require.NoError(t, err)

	// Rule base score stands alone
	assert.Equal(t, 45, result.Score)
	assert.Equal(t, core.RiskMedium, result.RiskLevel)
	assert.True(t, result.Degraded)
	// Schema violations are not retried
	assert.EqualValues(t, 1, judge.callCount())
}

func TestAnalyzeEmailTimeoutNotRetried(t *testing.T) {
	judge := &stubJudge{fn: func(ctx context.Context, _ *core.EmailRecord) (*core.ModelVerdict, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}

	service, err := NewService(
		features.NewExtractor(zap.NewNop()),
		rules.NewMatcher(zap.NewNop()),
		judge,
		nil,
		false,
		10*time.Millisecond,
		core.DefaultAnalysisConfig(),
		zap.NewNop(),
	)
	require.NoError(t, err)

	result, err := service.AnalyzeEmail(context.Background(), spoofedEmail())
	require.NoError(t, err)

	assert.True(t, result.Degraded)
	assert.Equal(t, 45, result.Score)
	assert.EqualValues(t, 1, judge.callCount())
}

func TestAnalyzeEmailRetriesTransientFailureOnce(t *testing.T) {
	judge := &stubJudge{}
	judge.fn = func(context.Context, *core.EmailRecord) (*core.ModelVerdict, error) {
		if judge.callCount() == 1 {
			return nil, errors.New("connection reset")
		}
		return confidentVerdict(0.9), nil
	}
	service := newTestService(t, judge, nil, false)

	result, err := service.AnalyzeEmail(context.Background(), spoofedEmail())
	require.NoError(t, err)

	assert.False(t, result.Degraded)
	assert.Equal(t, 72, result.Score)
	assert.EqualValues(t, 2, judge.callCount())
}

func TestAnalyzeEmailPersistentTransientFailureDegrades(t *testing.T) {
	judge := &stubJudge{fn: func(context.Context, *core.EmailRecord) (*core.ModelVerdict, error) {
		return nil, errors.New("connection reset")
	}}
	service := newTestService(t, judge, nil, false)

	result, err := service.AnalyzeEmail(context.Background(), spoofedEmail())
	require.NoError(t, err)

	assert.True(t, result.Degraded)
	// One retry only
	assert.EqualValues(t, 2, judge.callCount())
}

func TestAnalyzeEmailCacheHitSkipsJudge(t *testing.T) {
	judge := &stubJudge{fn: func(context.Context, *core.EmailRecord) (*core.ModelVerdict, error) {
		return confidentVerdict(0.9), nil
	}}
	memCache, err := cache.NewMemoryCache(16, time.Minute, 0, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(memCache.Stop)

	service := newTestService(t, judge, memCache, true)
	ctx := context.Background()

	first, err := service.AnalyzeEmail(ctx, spoofedEmail())
	require.NoError(t, err)

	second, err := service.AnalyzeEmail(ctx, spoofedEmail())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, judge.callCount())
}

func TestAnalyzeEmailDeterministic(t *testing.T) {
	judge := &stubJudge{fn: func(context.Context, *core.EmailRecord) (*core.ModelVerdict, error) {
		return confidentVerdict(0.9), nil
	}}
	service := newTestService(t, judge, nil, false)
	ctx := context.Background()

	first, err := service.AnalyzeEmail(ctx, spoofedEmail())
	require.NoError(t, err)
	second, err := service.AnalyzeEmail(ctx, spoofedEmail())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAnalyzeEmailCollapsesConcurrentDuplicates(t *testing.T) {
	release := make(chan struct{})
	judge := &stubJudge{fn: func(ctx context.Context, _ *core.EmailRecord) (*core.ModelVerdict, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return confidentVerdict(0.9), nil
	}}
	service := newTestService(t, judge, nil, false)

	const callers = 5
	results := make([]*core.AnalysisResult, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = service.AnalyzeEmail(context.Background(), spoofedEmail())
		}(i)
	}

	// Give every caller time to join the in-flight analysis, then let the
	// single judge call finish
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, judge.callCount())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0], results[i])
	}
}
