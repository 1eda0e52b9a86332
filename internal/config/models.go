package config

import (
	"fmt"

	"github.com/mikey/llm-phishing-detector/internal/core"
)

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetAnalysis returns the immutable scoring snapshot derived from the
// configuration
func (c *Config) GetAnalysis() core.AnalysisConfig {
	return core.AnalysisConfig{
		BlendWeight:        c.GetFloat64("scoring.blend_weight"),
		MinModelConfidence: c.GetFloat64("scoring.min_model_confidence"),
		Thresholds: core.RiskThresholds{
			Low:    c.GetInt("scoring.risk_thresholds.low"),
			Medium: c.GetInt("scoring.risk_thresholds.medium"),
			High:   c.GetInt("scoring.risk_thresholds.high"),
		},
		MaxThreats: c.GetInt("scoring.max_threats"),
	}
}

// Validate checks the loaded configuration for values that would make the
// engine misbehave. Violations are fatal at startup.
func (c *Config) Validate() error {
	if err := c.GetAnalysis().Validate(); err != nil {
		return err
	}

	for _, section := range []string{"openai", "gemini", "bedrock"} {
		temperature := c.GetFloat64(section + ".temperature")
		if temperature < 0 || temperature > 1 {
			return fmt.Errorf("%w: %s.temperature %.2f out of range [0,1]", core.ErrConfiguration, section, temperature)
		}
		if c.GetInt(section+".max_tokens") <= 0 {
			return fmt.Errorf("%w: %s.max_tokens must be positive", core.ErrConfiguration, section)
		}
	}

	if c.GetInt("cache.capacity") <= 0 {
		return fmt.Errorf("%w: cache.capacity must be positive", core.ErrConfiguration)
	}
	if c.GetInt("batch.concurrency_limit") <= 0 {
		return fmt.Errorf("%w: batch.concurrency_limit must be positive", core.ErrConfiguration)
	}

	return nil
}
