// Package openai adapts the OpenAI API to the engine's Completer and
// Embedder capabilities.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"

	"github.com/recruiter-solutions/match-engine/internal/ai"
	"github.com/recruiter-solutions/match-engine/internal/model"
)

const (
	defaultModel          = "gpt-4o-mini"
	defaultEmbeddingModel = openai.EmbeddingModelTextEmbedding3Small

	completionTemperature = 0.2
)

// Client wraps the official OpenAI SDK. It implements both ai.Completer and
// ai.Embedder since the provider serves both capabilities.
type Client struct {
	client         openai.Client
	model          string
	embeddingModel string
	logger         *zap.Logger
}

// New creates a Client. The API key is required; model names fall back to the
// engine defaults when empty.
func New(apiKey, chatModel string, logger *zap.Logger) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	if chatModel = strings.TrimSpace(chatModel); chatModel == "" {
		chatModel = defaultModel
	}

	return &Client{
		client:         openai.NewClient(option.WithAPIKey(apiKey)),
		model:          chatModel,
		embeddingModel: defaultEmbeddingModel,
		logger:         logger,
	}, nil
}

// Complete sends the prompt as a single user message and returns the first
// choice's content. All failures collapse to ai.ErrUnavailable.
func (c *Client) Complete(ctx context.Context, prompt, system string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("%w: empty prompt", ai.ErrUnavailable)
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if system = strings.TrimSpace(system); system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(prompt))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(c.model),
		Messages:    messages,
		Temperature: openai.Float(completionTemperature),
	})
	if err != nil {
		c.logger.Warn("openai completion failed", zap.String("model", c.model), zap.Error(err))
		return "", fmt.Errorf("%w: %s", ai.ErrUnavailable, "completion request failed")
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion response", ai.ErrUnavailable)
	}

	output := strings.TrimSpace(resp.Choices[0].Message.Content)
	if output == "" {
		return "", fmt.Errorf("%w: empty completion response", ai.ErrUnavailable)
	}

	return output, nil
}

// Embed returns the embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty embedding input", ai.ErrUnavailable)
	}

	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: c.embeddingModel,
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
	})
	if err != nil {
		c.logger.Warn("openai embedding failed", zap.String("model", c.embeddingModel), zap.Error(err))
		return nil, fmt.Errorf("%w: embedding request failed", ai.ErrUnavailable)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) != model.EmbeddingDimensions {
		return nil, fmt.Errorf("%w: malformed embedding response", ai.ErrUnavailable)
	}

	vector := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vector[i] = float32(v)
	}

	return vector, nil
}

// Dimensions reports the fixed length of vectors produced by Embed.
func (c *Client) Dimensions() int {
	return model.EmbeddingDimensions
}
