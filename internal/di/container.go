package di

import (
	"fmt"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-phishing-detector/internal/analyzer"
	"github.com/mikey/llm-phishing-detector/internal/batch"
	"github.com/mikey/llm-phishing-detector/internal/config"
	"github.com/mikey/llm-phishing-detector/internal/core"
	"github.com/mikey/llm-phishing-detector/internal/factory"
	"github.com/mikey/llm-phishing-detector/internal/features"
	"github.com/mikey/llm-phishing-detector/internal/logging"
	"github.com/mikey/llm-phishing-detector/internal/rules"
	"github.com/mikey/llm-phishing-detector/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() (*config.Config, error) {
		cfg, err := config.New()
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register model judge, bounded for batch use
	if err := container.Provide(func(f *factory.LLMFactory, cfg *config.Config) (core.ModelJudge, error) {
		judge, err := f.CreateJudge()
		if err != nil {
			return nil, err
		}
		return batch.NewLimitedJudge(judge, int64(cfg.GetInt("batch.concurrency_limit"))), nil
	}); err != nil {
		return nil, err
	}

	// Register result cache
	if err := container.Provide(func(f *factory.CacheFactory) (core.ResultCache, error) {
		return f.CreateResultCache()
	}); err != nil {
		return nil, err
	}

	// Register extractor and matcher
	if err := container.Provide(features.NewExtractor); err != nil {
		return nil, err
	}
	if err := container.Provide(rules.NewMatcher); err != nil {
		return nil, err
	}

	// Register analysis service
	if err := container.Provide(func(
		extractor *features.Extractor,
		matcher *rules.Matcher,
		judge core.ModelJudge,
		resultCache core.ResultCache,
		cfg *config.Config,
		cacheFactory *factory.CacheFactory,
		logger *zap.Logger,
	) (*analyzer.Service, error) {
		timeout, err := cfg.GetDuration("llm.timeout")
		if err != nil {
			return nil, fmt.Errorf("%w: invalid llm.timeout: %v", core.ErrConfiguration, err)
		}
		return analyzer.NewService(
			extractor,
			matcher,
			judge,
			resultCache,
			cacheFactory.IsCacheEnabled(),
			timeout,
			cfg.GetAnalysis(),
			logger,
		)
	}); err != nil {
		return nil, err
	}

	// Register batch coordinator
	if err := container.Provide(batch.NewCoordinator); err != nil {
		return nil, err
	}

	return container, nil
}
