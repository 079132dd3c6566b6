// Package anthropic adapts the Anthropic Messages API to the engine's
// Completer capability.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/recruiter-solutions/match-engine/internal/ai"
)

const (
	defaultModel     = "claude-3-5-haiku-latest"
	defaultMaxTokens = 1024
)

// Client wraps the official Anthropic SDK.
type Client struct {
	client anthropic.Client
	model  string
	logger *zap.Logger
}

// New creates a Client. The API key is required.
func New(apiKey, model string, logger *zap.Logger) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("anthropic api key is required")
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	return &Client{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		logger: logger,
	}, nil
}

// Complete sends the prompt as a single user message and concatenates the
// text blocks of the response. All failures collapse to ai.ErrUnavailable.
func (c *Client) Complete(ctx context.Context, prompt, system string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("%w: empty prompt", ai.ErrUnavailable)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: defaultMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system = strings.TrimSpace(system); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		c.logger.Warn("anthropic completion failed", zap.String("model", c.model), zap.Error(err))
		return "", fmt.Errorf("%w: completion request failed", ai.ErrUnavailable)
	}

	var builder strings.Builder
	for _, block := range resp.Content {
		if text := strings.TrimSpace(block.Text); text != "" {
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
