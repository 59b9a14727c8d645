// Package qdrant relays point searches to a hosted Qdrant instance over its
// REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/holyai/holyai/internal/domain"
	"github.com/holyai/holyai/internal/metrics"
)

const providerName = "qdrant"

// Config holds the provider settings
type Config struct {
	URL        string
	APIKey     string
	HTTPClient *http.Client
}

// SearchRequest is the body sent to the points search endpoint
type SearchRequest struct {
	Collection     string    `json:"-"`
	Vector         []float32 `json:"vector"`
	Limit          int       `json:"limit"`
	WithPayload    bool      `json:"with_payload"`
	ScoreThreshold float64   `json:"score_threshold"`
}

// Client implements the vector search gateway
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// NewClient creates a client. Missing settings surface as configuration
// errors at call time.
func NewClient(cfg Config, logger *zap.Logger, m *metrics.Metrics) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		logger:     logger.Named(providerName),
		metrics:    m,
	}
}

// Configured reports whether both URL and API key were supplied
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

// Search runs one point search and maps the matches, keeping the provider's
// order.
func (c *Client) Search(ctx context.Context, collection string, vector []float32, limit int, scoreThreshold float64) ([]domain.RetrievedContext, error) {
	raw, err := c.SearchRaw(ctx, SearchRequest{
		Collection:     collection,
		Vector:         vector,
		Limit:          limit,
		WithPayload:    true,
		ScoreThreshold: scoreThreshold,
	})
	if err != nil {
		return nil, err
	}

	contexts := ParseContexts(raw)
	c.logger.Debug("Search returned results",
		zap.String("collection", collection),
		zap.Int("count", len(contexts)),
	)
	return contexts, nil
}

// SearchRaw runs one point search and returns the provider's body verbatim
func (c *Client) SearchRaw(ctx context.Context, req SearchRequest) (json.RawMessage, error) {
	if c.baseURL == "" {
		return nil, &domain.SearchError{Err: &domain.ConfigError{Key: "QDRANT_URL"}}
	}
	if c.apiKey == "" {
		return nil, &domain.SearchError{Err: &domain.ConfigError{Key: "QDRANT_API_KEY"}}
	}

	c.logger.Debug("Qdrant search",
		zap.String("collection", req.Collection),
		zap.Int("limit", req.Limit),
		zap.Float64("score_threshold", req.ScoreThreshold),
		zap.Int("vector_dim", len(req.Vector)),
	)

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, &domain.SearchError{Err: fmt.Errorf("error marshaling request: %w", err)}
	}

	endpoint := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, url.PathEscape(req.Collection))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, &domain.SearchError{Err: fmt.Errorf("error creating request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", c.apiKey)

	start := time.Now()
	body, status, err := c.do(httpReq)
	c.metrics.ObserveUpstream(providerName, "search", start, err)
	if err != nil {
		return nil, &domain.SearchError{StatusCode: status, Body: string(body), Err: err}
	}
	return body, nil
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("Qdrant API error",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body),
		)
		return body, resp.StatusCode, &domain.UpstreamError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
		}
	}
	if !gjson.ValidBytes(body) {
		return body, resp.StatusCode, &domain.UpstreamError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Message:    "malformed response body",
		}
	}
	return body, resp.StatusCode, nil
}

// ParseContexts maps a search response's result list. Missing scores become
// 0, missing text becomes "", and point ids are rendered as strings.
func ParseContexts(body []byte) []domain.RetrievedContext {
	results := gjson.GetBytes(body, "result").Array()
	contexts := make([]domain.RetrievedContext, 0, len(results))
	for _, point := range results {
		payload := point.Get("payload")
		ctx := domain.RetrievedContext{
			Text:     payload.Get("text").String(),
			Score:    point.Get("score").Float(),
			Source:   optionalString(payload.Get("source")),
			FileName: optionalString(payload.Get("file_name")),
			PointID:  optionalString(point.Get("id")),
		}
		contexts = append(contexts, ctx)
	}
	return contexts
}

func optionalString(r gjson.Result) *string {
	if !r.Exists() || r.Type == gjson.Null {
		return nil
	}
	s := r.String()
	return &s
}
