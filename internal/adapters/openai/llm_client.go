package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mikey/llm-phishing-detector/internal/core"
	"github.com/mikey/llm-phishing-detector/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient is an implementation of the ModelJudge interface using OpenAI
type OpenAIClient struct {
	client        *openai.Client
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	promptFormat  string
}

// verdictResponse represents the structured response the model must return.
// Probability and confidence are pointers so a missing field is
// distinguishable from an explicit zero.
type verdictResponse struct {
	Probability  *float64 `json:"probability"`
	Confidence   *float64 `json:"confidence"`
	Rationale    string   `json:"rationale"`
	FlaggedSpans []struct {
		Text     string `json:"text"`
		Category string `json:"category"`
	} `json:"flagged_spans"`
}

// NewOpenAIClient creates a new OpenAI judge
func NewOpenAIClient(
	client *openai.Client,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *OpenAIClient {
	return &OpenAIClient{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
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
	}
}

// JudgeEmail issues one classification request and parses the verdict
func (c *OpenAIClient) JudgeEmail(ctx context.Context, email *core.EmailRecord) (*core.ModelVerdict, error) {
	body := c.textProcessor.ProcessText(email.Body, c.maxBodySize)
	prompt := fmt.Sprintf(c.promptFormat, email.Sender, email.DisplayName, email.Subject, body)

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an email security analyst. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
	}
	req.ResponseFormat = &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response from OpenAI", core.ErrModelSchema)
	}

	verdict, err := parseVerdict(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	verdict.ModelUsed = c.modelName
	verdict.ProcessingID = resp.ID

	return verdict, nil
}

// parseVerdict validates the model response against the verdict schema.
// Anything that does not satisfy the schema is rejected, never patched up
// with guessed values.
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
	start := -1
	for i := 0; i < len(text); i++ {
		if text[i] == '{' {
			start = i
			break
		}
	}
	end := -1
	for i := len(text) - 1; i >= 0; i-- {
		if text[i] == '}' {
			end = i + 1
			break
		}
	}
	if start < 0 || end <= start {
		return "", false
	}
	return text[start:end], true
}
