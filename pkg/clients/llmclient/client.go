package llmclient

import (
	"context"
	"fmt"
	"os"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/jakechorley/shift-planner/internal/config"
	"github.com/jakechorley/shift-planner/pkg/core/model"
)

// APIKeyEnv is the environment variable holding the endpoint's API key
const APIKeyEnv = "OPENAI_API_KEY"

// placeholderKey is sent to local endpoints (e.g. Ollama) that ignore authentication
const placeholderKey = "not-needed"

const systemPrompt = "You are a workforce scheduling assistant. Reply with a single JSON object and nothing else."

// Client requests candidate schedules from an OpenAI-compatible chat completion endpoint.
// It implements proposal.Source; the reply is returned verbatim and never trusted.
type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

// NewClient creates a client for the configured endpoint. The API key is read from
// OPENAI_API_KEY and may be empty for local endpoints.
func NewClient(cfg *config.LLMConfig, logger *zap.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("llm config is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("llm model is required")
	}

	apiKey := os.Getenv(APIKeyEnv)
	if apiKey == "" {
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("%s environment variable not set", APIKeyEnv)
		}
		apiKey = placeholderKey
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	logger.Debug("Initializing LLM proposal client",
		zap.String("model", cfg.Model),
		zap.String("base_url", clientCfg.BaseURL))

	return &Client{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}, nil
}

// Propose implements proposal.Source
func (c *Client) Propose(ctx context.Context, m *model.Model) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(m)},
		},
		Temperature: c.temperature,
	}
	if c.maxTokens > 0 {
		req.MaxCompletionTokens = c.maxTokens
	}

	c.logger.Debug("Requesting schedule proposal", zap.String("model", c.model))

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	c.logger.Debug("Received schedule proposal",
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))

	return resp.Choices[0].Message.Content, nil
}
