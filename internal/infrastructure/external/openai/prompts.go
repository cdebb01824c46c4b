package openai

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// PromptSet is one prompt with its model parameters
type PromptSet struct {
	Temperature  float32 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
	System       string  `yaml:"system"`
	UserTemplate string  `yaml:"user_template"`
}

// PromptConfig holds the prompts used by the OpenAI client
type PromptConfig struct {
	InvoiceExtraction PromptSet `yaml:"invoice_extraction"`
	TextExtraction    PromptSet `yaml:"text_extraction"`
	TextGeneration    PromptSet `yaml:"text_generation"`
}

// LoadPrompts loads prompt configuration from a YAML file. An empty path
// returns the built-in prompts. Sections missing from the file keep their
// built-in values.
func LoadPrompts(promptsPath string) (*PromptConfig, error) {
	var prompts PromptConfig
	if err := yaml.Unmarshal(defaultPrompts, &prompts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal built-in prompts: %w", err)
	}
	if promptsPath == "" {
		return &prompts, nil
	}

	data, err := os.ReadFile(promptsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}
	if err := yaml.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prompts: %w", err)
	}

	return &prompts, nil
}

// renderTemplate renders a template with provided data
func renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("prompt").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
