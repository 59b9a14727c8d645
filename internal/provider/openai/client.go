// Package openai relays embedding and chat completion requests to an
// OpenAI-compatible API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/holyai/holyai/internal/domain"
	"github.com/holyai/holyai/internal/metrics"
)

const (
	providerName = "openai"

	defaultEmbedModel  = "text-embedding-3-small"
	defaultChatModel   = "gpt-4o-mini"
	defaultBatchSize   = 96
	defaultTemperature = float32(0.2)

	apiKeyEnv = "OPENAI_API_KEY"
)

// Config holds the provider settings
type Config struct {
	APIKey     string
	BaseURL    string
	EmbedModel string
	ChatModel  string
	BatchSize  int
	HTTPClient *http.Client
}

// Client implements the embedding and chat completion gateways
type Client struct {
	api        *goopenai.Client
	embedModel string
	chatModel  string
	batchSize  int
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// NewClient creates a client. A missing API key is not an error here: every
// call fails with a configuration error instead.
func NewClient(cfg Config, logger *zap.Logger, m *metrics.Metrics) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		embedModel: cfg.EmbedModel,
		chatModel:  cfg.ChatModel,
		batchSize:  cfg.BatchSize,
		logger:     logger.Named(providerName),
		metrics:    m,
	}
	if c.embedModel == "" {
		c.embedModel = defaultEmbedModel
	}
	if c.chatModel == "" {
		c.chatModel = defaultChatModel
	}
	if c.batchSize <= 0 {
		c.batchSize = defaultBatchSize
	}

	if cfg.APIKey != "" {
		apiCfg := goopenai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
		}
		if cfg.HTTPClient != nil {
			apiCfg.HTTPClient = cfg.HTTPClient
		}
		c.api = goopenai.NewClientWithConfig(apiCfg)
	}
	return c
}

// Configured reports whether an API key was supplied
func (c *Client) Configured() bool {
	return c.api != nil
}

// Embed returns one vector per text, in input order. Texts are sent in
// sequential batches of at most the configured batch size.
func (c *Client) Embed(ctx context.Context, texts []string, model string) ([][]float32, error) {
	if c.api == nil {
		return nil, &domain.EmbeddingError{Err: &domain.ConfigError{Key: apiKeyEnv}}
	}
	if model == "" {
		model = c.embedModel
	}

	c.logger.Debug("Embedding texts",
		zap.Int("count", len(texts)),
		zap.String("model", model),
		zap.Int("batch_size", c.batchSize),
	)

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		batch, err := c.embedBatch(ctx, texts[start:end], model)
		if err != nil {
			return nil, &domain.EmbeddingError{Err: err}
		}
		vectors = append(vectors, batch...)
	}

	if len(vectors) > 0 {
		c.logger.Debug("Generated embeddings",
			zap.Int("count", len(vectors)),
			zap.Int("dimension", len(vectors[0])),
		)
	}
	return vectors, nil
}

func (c *Client) embedBatch(ctx context.Context, batch []string, model string) ([][]float32, error) {
	start := time.Now()
	resp, err := c.api.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input: batch,
		Model: goopenai.EmbeddingModel(model),
	})
	if err == nil && len(resp.Data) != len(batch) {
		err = &domain.UpstreamError{
			Provider:   providerName,
			StatusCode: http.StatusOK,
			Message:    fmt.Sprintf("returned %d embeddings for %d inputs", len(resp.Data), len(batch)),
		}
	}
	c.metrics.ObserveUpstream(providerName, "embeddings", start, err)
	if err != nil {
		return nil, upstreamError(err)
	}

	// The provider tags each vector with its input position
	out := make([][]float32, len(batch))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) || out[d.Index] != nil {
			return nil, &domain.UpstreamError{
				Provider:   providerName,
				StatusCode: http.StatusOK,
				Message:    fmt.Sprintf("malformed embedding index %d", d.Index),
			}
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// Complete sends the full message list and returns the trimmed text of the
// first choice, or "" when the provider returned none. A nil temperature
// uses the default of 0.2.
func (c *Client) Complete(ctx context.Context, messages []domain.ChatMessage, model string, temperature *float32) (string, error) {
	if c.api == nil {
		return "", &domain.CompletionError{Err: &domain.ConfigError{Key: apiKeyEnv}}
	}
	if model == "" {
		model = c.chatModel
	}
	temp := defaultTemperature
	if temperature != nil {
		temp = *temperature
	}
	// go-openai drops a zero temperature from the request body
	wireTemp := temp
	if wireTemp == 0 {
		wireTemp = math.SmallestNonzeroFloat32
	}

	req := goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    make([]goopenai.ChatCompletionMessage, len(messages)),
		Temperature: wireTemp,
	}
	for i, m := range messages {
		req.Messages[i] = goopenai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	c.logger.Debug("Calling chat completion",
		zap.Int("messages", len(messages)),
		zap.String("model", model),
		zap.Float32("temperature", temp),
	)

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	c.metrics.ObserveUpstream(providerName, "chat", start, err)
	if err != nil {
		return "", &domain.CompletionError{Err: upstreamError(err)}
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// upstreamError folds the SDK's error types into a domain.UpstreamError.
// Transport and context errors pass through unchanged.
func upstreamError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return &domain.UpstreamError{
			Provider:   providerName,
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
		}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		msg := ""
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return &domain.UpstreamError{
			Provider:   providerName,
			StatusCode: reqErr.HTTPStatusCode,
			Message:    msg,
		}
	}
	return err
}
