package chat

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/holyai/holyai/internal/api/response"
	"github.com/holyai/holyai/internal/domain"
)

// Asker answers ask requests
type Asker interface {
	Ask(ctx context.Context, req *domain.AskRequest) (*domain.AnswerResult, error)
}

// Handler handles chat API requests
type Handler struct {
	asker Asker
}

// NewHandler creates a new chat handler
func NewHandler(asker Asker) *Handler {
	return &Handler{asker: asker}
}

// RegisterRoutes registers chat routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/ask", h.Ask)
}

// Ask answers one question with retrieved context
func (h *Handler) Ask(c *gin.Context) {
	var req domain.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	res, err := h.asker.Ask(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
