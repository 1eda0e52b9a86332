package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"github.com/mikey/llm-phishing-detector/internal/core"
	"github.com/mikey/llm-phishing-detector/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GeminiClient is an implementation of the ModelJudge interface using Google Gemini
type GeminiClient struct {
	client        *genai.Client
	model         *genai.GenerativeModel
	modelName     string
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	promptFormat  string
}

// verdictResponse represents the structured response the model must return
type verdictResponse struct {
	Probability  *float64 `json:"probability"`
	Confidence   *float64 `json:"confidence"`
	Rationale    string   `json:"rationale"`
	FlaggedSpans []struct {
		Text     string `json:"text"`
		Category string `json:"category"`
	} `json:"flagged_spans"`
}

// NewGeminiClient creates a new Gemini judge
func NewGeminiClient(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) (*GeminiClient, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))

	return &GeminiClient{
		client:        client,
		model:         model,
		modelName:     modelName,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
		promptFormat: `You are an email security analyst. Assess whether the following email is a phishing attempt.
Respond with a JSON object containing:
- probability: number between 0 and 1 (likelihood the email is phishing)
- confidence: number between 0 and 1 (how certain you are of that judgment)
- rationale: string (brief explanation of your judgment)
- flagged_spans: array of {"text": string, "category": string} for the specific passages that look malicious

Email:
From: %s (%s)
Subject: %s
Body:
%s

Respond only with the JSON object and nothing else.`,
	}, nil
}

// JudgeEmail issues one classification request and parses the verdict
func (c *GeminiClient) JudgeEmail(ctx context.Context, email *core.EmailRecord) (*core.ModelVerdict, error) {
	body := c.textProcessor.ProcessText(email.Body, c.maxBodySize)
	prompt := fmt.Sprintf(c.promptFormat, email.Sender, email.DisplayName, email.Subject, body)

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("%w: empty response from Gemini", core.ErrModelSchema)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	verdict, err := parseVerdict(sb.String())
	if err != nil {
		return nil, err
	}
	verdict.ModelUsed = c.modelName
	verdict.ProcessingID = uuid.NewString()

	return verdict, nil
}

// Close releases the underlying API client
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

// parseVerdict validates the model response against the verdict schema
func parseVerdict(responseText string) (*core.ModelVerdict, error) {
	jsonStr, ok := extractJSON(responseText)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object in response", core.ErrModelSchema)
	}

	var parsed verdictResponse
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrModelSchema, err)
	}

	if parsed.Probability == nil || *parsed.Probability < 0 || *parsed.Probability > 1 {
		return nil, fmt.Errorf("%w: probability missing or out of range", core.ErrModelSchema)
	}
	if parsed.Confidence == nil || *parsed.Confidence < 0 || *parsed.Confidence > 1 {
		return nil, fmt.Errorf("%w: confidence missing or out of range", core.ErrModelSchema)
	}

	verdict := &core.ModelVerdict{
		Probability: *parsed.Probability,
		Confidence:  *parsed.Confidence,
		Rationale:   parsed.Rationale,
	}
	for _, span := range parsed.FlaggedSpans {
		if span.Text == "" || span.Category == "" {
			return nil, fmt.Errorf("%w: flagged span missing text or category", core.ErrModelSchema)
		}
		verdict.FlaggedSpans = append(verdict.FlaggedSpans, core.FlaggedSpan{
			Text:     span.Text,
			Category: span.Category,
		})
	}

	return verdict, nil
}

// extractJSON pulls the outermost JSON object out of a response that may
// wrap it in prose
func extractJSON(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}
