// Package gigachat provides a text generator backed by the Sber GigaChat API
package gigachat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Role1776/gigago"
	"go.uber.org/zap"

	"github.com/garyjia/invoice-insights/internal/application/port"
)

// DefaultModel is used when Config.Model is empty
const DefaultModel = "GigaChat"

const systemInstruction = "You are a financial analyst for a small business. " +
	"You give specific, actionable advice grounded in the invoice data you are shown."

// Config holds GigaChat client settings
type Config struct {
	APIKey             string
	Scope              string
	Model              string
	InsecureSkipVerify bool
}

// Generator implements port.TextGenerator
type Generator struct {
	client *gigago.Client
	model  *gigago.GenerativeModel
	logger *zap.Logger
}

// NewGenerator authenticates against GigaChat and prepares the model
func NewGenerator(ctx context.Context, cfg Config, logger *zap.Logger) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gigachat api key is required")
	}

	opts := []gigago.Option{}
	if cfg.Scope != "" {
		opts = append(opts, gigago.WithCustomScope(cfg.Scope))
	}
	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	client, err := gigago.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GigaChat client: %w", err)
	}

	name := cfg.Model
	if name == "" {
		name = DefaultModel
	}
	model := client.GenerativeModel(name)
	model.SystemInstruction = systemInstruction
	model.Temperature = 0.3

	return &Generator{client: client, model: model, logger: logger}, nil
}

// GenerateText answers a free-form prompt
func (g *Generator) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.Generate(ctx, []gigago.Message{
		{Role: gigago.RoleUser, Content: prompt},
	})
	if err != nil {
		g.logger.Error("GigaChat request failed", zap.Error(err))
		return "", fmt.Errorf("failed to generate response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from GigaChat")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Close releases the underlying client
func (g *Generator) Close() error {
	g.client.Close()
	return nil
}

var _ port.TextGenerator = (*Generator)(nil)
