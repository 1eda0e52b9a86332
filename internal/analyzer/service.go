package analyzer

import (
	"context"
	"errors"
	"time"

	"github.com/mikey/llm-phishing-detector/internal/cache"
	"github.com/mikey/llm-phishing-detector/internal/core"
	"github.com/mikey/llm-phishing-detector/internal/features"
	"github.com/mikey/llm-phishing-detector/internal/fusion"
	"github.com/mikey/llm-phishing-detector/internal/rules"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Service is the phishing analysis engine. It drives one email through
// feature extraction, concurrent pattern matching and model judgment,
// score fusion and the result cache.
type Service struct {
	extractor    *features.Extractor
	matcher      *rules.Matcher
	judge        core.ModelJudge
	cache        core.ResultCache
	cacheEnabled bool
	judgeTimeout time.Duration
	cfg          core.AnalysisConfig
	logger       *zap.Logger

	// flight collapses concurrent analyses of identical emails so one
	// fingerprint has at most one model call in flight
	flight singleflight.Group
}

// NewService creates a new analysis service. The configuration snapshot is
// validated up front; an invalid snapshot is fatal.
func NewService(
	extractor *features.Extractor,
	matcher *rules.Matcher,
	judge core.ModelJudge,
	resultCache core.ResultCache,
	cacheEnabled bool,
	judgeTimeout time.Duration,
	cfg core.AnalysisConfig,
	logger *zap.Logger,
) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Service{
		extractor:    extractor,
		matcher:      matcher,
		judge:        judge,
		cache:        resultCache,
		cacheEnabled: cacheEnabled && resultCache != nil,
		judgeTimeout: judgeTimeout,
		cfg:          cfg,
		logger:       logger,
	}, nil
}

// AnalyzeEmail analyzes one email with the service's default configuration
func (s *Service) AnalyzeEmail(ctx context.Context, email *core.EmailRecord) (*core.AnalysisResult, error) {
	return s.AnalyzeEmailWithConfig(ctx, email, s.cfg)
}

// AnalyzeEmailWithConfig analyzes one email against an explicit immutable
// configuration snapshot, so concurrent batches can run with different
// settings without sharing mutable state
func (s *Service) AnalyzeEmailWithConfig(ctx context.Context, email *core.EmailRecord, cfg core.AnalysisConfig) (*core.AnalysisResult, error) {
	extracted, err := s.extractor.Extract(email)
	if err != nil {
		return nil, err
	}

	fingerprint := cache.Fingerprint(email)

	if result := s.cacheLookup(ctx, fingerprint); result != nil {
		s.logger.Debug("Cache hit", zap.String("fingerprint", fingerprint))
		return result, nil
	}

	value, err, shared := s.flight.Do(fingerprint, func() (interface{}, error) {
		// A concurrent analysis of the same email may have completed while
		// this caller waited on the flight group
		if result := s.cacheLookup(ctx, fingerprint); result != nil {
			return result, nil
		}

		result := s.analyze(ctx, email, extracted, cfg)

		if s.cacheEnabled {
			if err := s.cache.Set(ctx, fingerprint, result); err != nil {
				s.logger.Error("Failed to update cache", zap.Error(err))
			}
		}

		return result, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("Shared in-flight analysis", zap.String("fingerprint", fingerprint))
	}

	return value.(*core.AnalysisResult), nil
}

// cacheLookup returns a cached result or nil. Cache failures are logged
// and treated as misses; the engine re-scores rather than erroring out.
func (s *Service) cacheLookup(ctx context.Context, fingerprint string) *core.AnalysisResult {
	if !s.cacheEnabled {
		return nil
	}

	result, err := s.cache.Get(ctx, fingerprint)
	if err != nil {
		if !errors.Is(err, core.ErrCacheMiss) {
			s.logger.Warn("Cache unavailable, proceeding without it", zap.Error(err))
		}
		return nil
	}
	return result
}

// analyze runs the pattern matcher and the model judge concurrently (they
// are independent) and fuses their outputs
func (s *Service) analyze(ctx context.Context, email *core.EmailRecord, extracted *core.ExtractedFeatures, cfg core.AnalysisConfig) *core.AnalysisResult {
	type judgeOutcome struct {
		verdict *core.ModelVerdict
		err     error
	}

	judgeCh := make(chan judgeOutcome, 1)
	go func() {
		verdict, err := s.callJudge(ctx, email)
		judgeCh <- judgeOutcome{verdict: verdict, err: err}
	}()

	findings := s.matcher.Match(extracted)

	outcome := <-judgeCh
	if outcome.err != nil {
		// Degraded mode: score on rules alone, never substitute a guessed
		// probability for the missing verdict
		s.logger.Warn("Model judgment unavailable, falling back to rule score",
			zap.Error(outcome.err),
			zap.String("sender", email.Sender))
		outcome.verdict = nil
	}

	return fusion.NewScorer(cfg, s.logger).Fuse(findings, outcome.verdict)
}

// callJudge enforces the timeout and retry discipline around the model
// call: at most one retry, and only for transient transport failures.
// Timeouts and schema violations surface immediately as degraded mode.
func (s *Service) callJudge(ctx context.Context, email *core.EmailRecord) (*core.ModelVerdict, error) {
	if s.judge == nil {
		return nil, errors.New("no model judge configured")
	}

	verdict, err := s.judgeOnce(ctx, email)
	if err == nil {
		return verdict, nil
	}
	if errors.Is(err, core.ErrModelTimeout) || errors.Is(err, core.ErrModelSchema) || ctx.Err() != nil {
		return nil, err
	}

	s.logger.Warn("Retrying model call after transport failure", zap.Error(err))
	return s.judgeOnce(ctx, email)
}

func (s *Service) judgeOnce(ctx context.Context, email *core.EmailRecord) (*core.ModelVerdict, error) {
	judgeCtx := ctx
	if s.judgeTimeout > 0 {
		var cancel context.CancelFunc
		judgeCtx, cancel = context.WithTimeout(ctx, s.judgeTimeout)
		defer cancel()
	}

	verdict, err := s.judge.JudgeEmail(judgeCtx, email)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(judgeCtx.Err(), context.DeadlineExceeded) {
			return nil, core.ErrModelTimeout
		}
		return nil, err
	}
	return verdict, nil
}
