package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/google/uuid"
	"github.com/mikey/llm-phishing-detector/internal/core"
	"github.com/mikey/llm-phishing-detector/internal/utils"
	"go.uber.org/zap"
)

// BedrockClient is an implementation of the ModelJudge interface using Amazon Bedrock
type BedrockClient struct {
	client        *bedrockruntime.Client
	modelID       string
	maxTokens     int
	temperature   float32
	topP          float32
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

// anthropicRequest is the Bedrock invoke payload for Anthropic models
type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	Temperature      float32            `json:"temperature"`
	TopP             float32            `json:"top_p"`
	Messages         []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// NewBedrockClient creates a new Bedrock judge
func NewBedrockClient(
	client *bedrockruntime.Client,
	modelID string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *BedrockClient {
	return &BedrockClient{
		client:        client,
		modelID:       modelID,
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
func (c *BedrockClient) JudgeEmail(ctx context.Context, email *core.EmailRecord) (*core.ModelVerdict, error) {
	body := c.textProcessor.ProcessText(email.Body, c.maxBodySize)
	prompt := fmt.Sprintf(c.promptFormat, email.Sender, email.DisplayName, email.Subject, body)

	payload, err := json.Marshal(anthropicRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        c.maxTokens,
		Temperature:      c.temperature,
		TopP:             c.topP,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal Bedrock request: %w", err)
	}

	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	var decoded anthropicResponse
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrModelSchema, err)
	}

	var sb strings.Builder
	for _, block := range decoded.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	verdict, err := parseVerdict(sb.String())
	if err != nil {
		return nil, err
	}
	verdict.ModelUsed = c.modelID
	verdict.ProcessingID = uuid.NewString()

	return verdict, nil
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
