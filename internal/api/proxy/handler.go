// Package proxy relays the browser's embedding, chat and vector search calls
// to the upstream providers so provider keys stay on the server.
package proxy

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/holyai/holyai/internal/api/response"
	"github.com/holyai/holyai/internal/domain"
	"github.com/holyai/holyai/internal/provider/qdrant"
)

const (
	defaultSearchLimit    = 5
	defaultScoreThreshold = 0.1
)

// Embedder turns texts into vectors
type Embedder interface {
	Embed(ctx context.Context, texts []string, model string) ([][]float32, error)
}

// Completer generates a chat answer
type Completer interface {
	Complete(ctx context.Context, messages []domain.ChatMessage, model string, temperature *float32) (string, error)
}

// RawSearcher runs a vector search and returns the provider body untouched
type RawSearcher interface {
	SearchRaw(ctx context.Context, req qdrant.SearchRequest) (json.RawMessage, error)
}

// EmbeddingsRequest is the body of POST /api/openai/embeddings
type EmbeddingsRequest struct {
	Texts []string `json:"texts" binding:"required"`
	Model string   `json:"model"`
}

// ChatRequest is the body of POST /api/openai/chat
type ChatRequest struct {
	Messages    []domain.ChatMessage `json:"messages" binding:"required"`
	Model       string               `json:"model"`
	Temperature *float32             `json:"temperature"`
}

// SearchRequest is the body of POST /api/qdrant/search
type SearchRequest struct {
	Collection     string    `json:"collection" binding:"required"`
	Vector         []float32 `json:"vector" binding:"required"`
	Limit          *int      `json:"limit"`
	ScoreThreshold *float64  `json:"score_threshold"`
}

// Handler handles provider passthrough requests
type Handler struct {
	embedder  Embedder
	completer Completer
	searcher  RawSearcher
	logger    *zap.Logger
}

// NewHandler creates a new proxy handler
func NewHandler(embedder Embedder, completer Completer, searcher RawSearcher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		embedder:  embedder,
		completer: completer,
		searcher:  searcher,
		logger:    logger.Named("proxy"),
	}
}

// RegisterRoutes registers proxy routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/openai/embeddings", h.Embeddings)
	r.POST("/openai/chat", h.Chat)
	r.POST("/qdrant/search", h.Search)
}

// Embeddings embeds a list of texts
func (h *Handler) Embeddings(c *gin.Context) {
	var req EmbeddingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "texts must be an array of strings")
		return
	}

	h.logger.Debug("embedding texts", zap.Int("count", len(req.Texts)), zap.String("model", req.Model))
	vectors, err := h.embedder.Embed(c.Request.Context(), req.Texts, req.Model)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"embeddings": vectors})
}

// Chat runs one chat completion
func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "messages must be an array")
		return
	}

	h.logger.Debug("chat completion", zap.Int("messages", len(req.Messages)), zap.String("model", req.Model))
	answer, err := h.completer.Complete(c.Request.Context(), req.Messages, req.Model, req.Temperature)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"response": answer})
}

// Search forwards a vector search and returns the provider body as is
func (h *Handler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "collection and vector are required")
		return
	}

	search := qdrant.SearchRequest{
		Collection:     req.Collection,
		Vector:         req.Vector,
		Limit:          defaultSearchLimit,
		WithPayload:    true,
		ScoreThreshold: defaultScoreThreshold,
	}
	if req.Limit != nil {
		search.Limit = *req.Limit
	}
	if req.ScoreThreshold != nil {
		search.ScoreThreshold = *req.ScoreThreshold
	}

	h.logger.Debug("vector search",
		zap.String("collection", search.Collection),
		zap.Int("limit", search.Limit),
		zap.Float64("score_threshold", search.ScoreThreshold),
		zap.Int("vector_dim", len(search.Vector)),
	)
	body, err := h.searcher.SearchRaw(c.Request.Context(), search)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}
