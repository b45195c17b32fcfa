// Package openai answers questions with an OpenAI-compatible chat
// model conditioned on retrieved context.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"docrag/internal/answer"
	"docrag/internal/domain"
)

var _ answer.Answerer = (*Client)(nil)

// Default configuration values.
const (
	DefaultModel     = "gpt-4o-mini"
	DefaultAPIKeyEnv = "OPENAI_API_KEY"
	DefaultTimeout   = 60 * time.Second
	DefaultMaxTokens = 512
)

const answerPrompt = `Answer the question using only the provided context. If the context does not contain the answer, say so.

Context:
%s

Question: %s

Answer:`

// Config configures the chat answerer.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
	MaxTokens int
}

// Client generates answers via the chat completions API.
type Client struct {
	client    *goopenai.Client
	model     string
	timeout   time.Duration
	maxTokens int
}

// NewClient creates a new answerer using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = DefaultAPIKeyEnv
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: missing API key in env %s", domain.ErrInvalidConfiguration, cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	clientCfg := goopenai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &Client{
		client:    goopenai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		timeout:   cfg.Timeout,
		maxTokens: cfg.MaxTokens,
	}, nil
}

// Answer asks the model once, bounded by the configured timeout.
func (c *Client) Answer(ctx context.Context, question string, contexts []string) (string, error) {
	prompt := fmt.Sprintf(answerPrompt, strings.Join(contexts, "\n\n---\n\n"), question)
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.client.CreateChatCompletion(callCtx, goopenai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return "", fmt.Errorf("%w: answer request exceeded %s", domain.ErrTimeout, c.timeout)
		}
		return "", fmt.Errorf("answer generation: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("answer generation: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
