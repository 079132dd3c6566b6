// Package gemini adapts the Google GenAI API to the engine's Completer
// capability.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/recruiter-solutions/match-engine/internal/ai"
)

const defaultModel = "gemini-2.5-flash"

// Client wraps the Google GenAI client to provide simple prompt-based
// interactions.
type Client struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// New creates a Client configured for the Gemini API backend.
func New(ctx context.Context, apiKey, model string, logger *zap.Logger) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	return &Client{client: client, model: model, logger: logger}, nil
}

// Complete sends the prompt to Gemini and returns the first textual response.
// All failures collapse to ai.ErrUnavailable.
func (c *Client) Complete(ctx context.Context, prompt, system string) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("%w: gemini client is not initialized", ai.ErrUnavailable)
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("%w: empty prompt", ai.ErrUnavailable)
	}

	var config *genai.GenerateContentConfig
	if system = strings.TrimSpace(system); system != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		c.logger.Warn("gemini completion failed", zap.String("model", c.model), zap.Error(err))
		return "", fmt.Errorf("%w: completion request failed", ai.ErrUnavailable)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", fmt.Errorf("%w: empty completion response", ai.ErrUnavailable)
	}

	return output, nil
}

// Model reports the configured model name.
func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}
