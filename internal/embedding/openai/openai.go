// Package openai adapts the OpenAI embeddings API (and compatible
// endpoints) to the embedder port.
package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"docrag/internal/domain"
	"docrag/internal/embedding"
)

var _ embedding.Embedder = (*Client)(nil)

// Default configuration values.
const (
	DefaultModel      = "text-embedding-3-small"
	DefaultAPIKeyEnv  = "OPENAI_API_KEY"
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 5
)

// Known dimensionalities per model; unknown models resolve the
// dimension from the first response.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config configures the embeddings client.
type Config struct {
	BaseURL    string
	APIKeyEnv  string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// Client is an embeddings client for OpenAI-compatible APIs.
type Client struct {
	client     *goopenai.Client
	model      string
	timeout    time.Duration
	maxRetries int
	dimension  int
}

// NewClient creates a new embeddings client using the provided
// configuration. The API key is read from the configured environment
// variable.
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
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	clientCfg := goopenai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &Client{
		client:     goopenai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		dimension:  modelDimensions[cfg.Model],
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai" }

// Dimension returns the model's vector dimensionality, or 0 until the
// first successful call for models not in the known table.
func (c *Client) Dimension() int { return c.dimension }

// Embed returns an embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds all texts in one request. Results are reordered by
// the response index so they align positionally with the inputs.
// Transient failures (rate limits, 5xx, transport errors) are retried
// with capped exponential backoff.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	req := goopenai.EmbeddingRequest{
		Input: texts,
		Model: goopenai.EmbeddingModel(c.model),
	}
	var resp goopenai.EmbeddingResponse
	for attempt := 0; ; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		var err error
		resp, err = c.client.CreateEmbeddings(callCtx, req)
		cancel()
		if err == nil {
			break
		}
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: embedding request exceeded %s", domain.ErrTimeout, c.timeout)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt < c.maxRetries && retryable(err) {
			select {
			case <-time.After(retryDelay(attempt)):
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	return c.collect(resp, len(texts))
}

// collect validates the response and orders vectors by input position.
func (c *Client) collect(resp goopenai.EmbeddingResponse, n int) ([][]float32, error) {
	if len(resp.Data) != n {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", domain.ErrEmbeddingUnavailable, n, len(resp.Data))
	}
	vectors := make([][]float32, n)
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= n || vectors[data.Index] != nil {
			return nil, fmt.Errorf("%w: response index %d out of range", domain.ErrEmbeddingUnavailable, data.Index)
		}
		vec := data.Embedding
		if len(vec) == 0 {
			return nil, fmt.Errorf("%w: empty embedding returned", domain.ErrEmbeddingUnavailable)
		}
		for _, v := range vec {
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				return nil, fmt.Errorf("%w: non-finite value in embedding", domain.ErrEmbeddingUnavailable)
			}
		}
		if c.dimension == 0 {
			c.dimension = len(vec)
		}
		if len(vec) != c.dimension {
			return nil, &domain.DimensionMismatchError{Expected: c.dimension, Actual: len(vec)}
		}
		vectors[data.Index] = vec
	}
	return vectors, nil
}

func retryable(err error) bool {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	// Transport-level failures are treated as transient.
	return true
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
