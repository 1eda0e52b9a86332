package factory

import (
	"fmt"

	"github.com/mikey/llm-phishing-detector/internal/adapters/bedrock"
	"github.com/mikey/llm-phishing-detector/internal/adapters/gemini"
	"github.com/mikey/llm-phishing-detector/internal/adapters/openai"
	"github.com/mikey/llm-phishing-detector/internal/config"
	"github.com/mikey/llm-phishing-detector/internal/core"
	"github.com/mikey/llm-phishing-detector/internal/utils"
	"go.uber.org/zap"
)

// LLMFactory creates model judges
type LLMFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *LLMFactory {
	return &LLMFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateJudge creates a new model judge based on the configuration
func (f *LLMFactory) CreateJudge() (core.ModelJudge, error) {
	llmConfig := f.cfg.GetLLM()

	switch llmConfig.Provider {
	case "openai":
		return openai.NewFactory(f.cfg, f.logger, f.textProcessor).CreateJudge()
	case "gemini":
		return gemini.NewFactory(f.cfg, f.logger, f.textProcessor).CreateJudge()
	case "bedrock":
		return bedrock.NewFactory(f.cfg, f.logger, f.textProcessor).CreateJudge()
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}
}
