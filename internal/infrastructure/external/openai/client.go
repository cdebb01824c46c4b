package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/garyjia/invoice-insights/internal/application/port"
	"github.com/garyjia/invoice-insights/internal/domain/entity"
)

// ErrEmptyResponse is returned when the API answers without choices
var ErrEmptyResponse = errors.New("no response from OpenAI")

// Config holds OpenAI client settings
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string // text extraction and generation
	VisionModel string // image extraction; defaults to Model
}

// Client implements port.AIExtractor and port.TextGenerator with the
// OpenAI chat completions API.
type Client struct {
	client      *openai.Client
	model       string
	visionModel string
	prompts     *PromptConfig
	logger      *zap.Logger
}

// NewClient creates a new OpenAI client. A nil prompts uses the built-in set.
func NewClient(cfg Config, prompts *PromptConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if prompts == nil {
		var err error
		if prompts, err = LoadPrompts(""); err != nil {
			return nil, err
		}
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	vision := cfg.VisionModel
	if vision == "" {
		vision = model
	}

	return &Client{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		visionModel: vision,
		prompts:     prompts,
		logger:      logger,
	}, nil
}

type extractionTemplateData struct {
	Text       string
	Categories string
}

func newTemplateData(text string) extractionTemplateData {
	return extractionTemplateData{
		Text:       text,
		Categories: strings.Join(entity.ReportCategories, ", "),
	}
}

// ExtractFromImage extracts invoice fields from an image with the vision model
func (c *Client) ExtractFromImage(ctx context.Context, image []byte, mimeType string) (*port.ExtractionResult, error) {
	c.logger.Info("Extracting invoice data with Vision API",
		zap.String("mime_type", mimeType),
		zap.Int("size", len(image)))

	p := c.prompts.InvoiceExtraction
	prompt, err := renderTemplate(p.UserTemplate, newTemplateData(""))
	if err != nil {
		return nil, err
	}

	content, err := c.complete(ctx, openai.ChatCompletionRequest{
		Model:       c.visionModel,
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.System},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image)),
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, err
	}

	return c.parseExtraction(content)
}

// ExtractFromText extracts invoice fields from document text
func (c *Client) ExtractFromText(ctx context.Context, text string) (*port.ExtractionResult, error) {
	c.logger.Info("Extracting invoice data from text", zap.Int("length", len(text)))

	p := c.prompts.TextExtraction
	prompt, err := renderTemplate(p.UserTemplate, newTemplateData(text))
	if err != nil {
		return nil, err
	}

	content, err := c.complete(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.System},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, err
	}

	return c.parseExtraction(content)
}

// GenerateText answers a free-form prompt
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	p := c.prompts.TextGeneration
	return c.complete(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.System},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
}

// Ping checks that the API key is accepted by listing models
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}
	return nil
}

func (c *Client) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logger.Error("OpenAI API call failed",
			zap.String("model", req.Model),
			zap.Error(err))
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	c.logger.Debug("OpenAI API call completed",
		zap.String("model", req.Model),
		zap.Int("total_tokens", resp.Usage.TotalTokens))
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) parseExtraction(content string) (*port.ExtractionResult, error) {
	fields, err := parseFields(content)
	if err != nil {
		c.logger.Error("Failed to parse extraction response",
			zap.Error(err),
			zap.String("content", content))
		return nil, err
	}
	return &port.ExtractionResult{Fields: *fields, Raw: content}, nil
}

// parseFields decodes the model output, falling back to the first JSON
// object embedded in surrounding text.
func parseFields(content string) (*entity.RawInvoice, error) {
	var fields entity.RawInvoice
	err := json.Unmarshal([]byte(content), &fields)
	if err == nil {
		return &fields, nil
	}

	if jsonStr := extractJSON(content); jsonStr != "" {
		if err2 := json.Unmarshal([]byte(jsonStr), &fields); err2 == nil {
			return &fields, nil
		}
	}
	return nil, fmt.Errorf("failed to parse response: %w", err)
}

var (
	_ port.AIExtractor   = (*Client)(nil)
	_ port.TextGenerator = (*Client)(nil)
)
