package service

import (
	"context"
	"strings"

	"github.com/samber/mo"

	"github.com/holyai/holyai/internal/domain"
)

// Answerer answers one question
type Answerer interface {
	Answer(ctx context.Context, q domain.Question, opts AnswerOptions) (*domain.AnswerResult, error)
}

// ChatService turns ask requests into orchestrator runs
type ChatService struct {
	answerer Answerer
}

// NewChatService creates a new chat service
func NewChatService(answerer Answerer) *ChatService {
	return &ChatService{answerer: answerer}
}

// Ask handles an ask request
func (s *ChatService) Ask(ctx context.Context, req *domain.AskRequest) (*domain.AnswerResult, error) {
	userID := strings.TrimSpace(req.UserID)
	question := strings.TrimSpace(req.Question)
	if userID == "" {
		return nil, domain.Invalid("user_id is required")
	}
	if question == "" {
		return nil, domain.Invalid("question is required")
	}
	if req.K < 0 {
		return nil, domain.Invalid("k must be positive")
	}

	q := domain.Question{
		UserID:     userID,
		Text:       question,
		Collection: strings.TrimSpace(req.Collection),
	}
	if id := strings.TrimSpace(req.ConversationID); id != "" {
		q.ConversationID = mo.Some(id)
	}

	opts := AnswerOptions{
		TopK:       req.K,
		EmbedModel: req.EmbedModel,
		ChatModel:  req.ChatModel,
	}
	if req.ScoreThreshold != nil {
		opts.ScoreThreshold = mo.Some(*req.ScoreThreshold)
	}

	return s.answerer.Answer(ctx, q, opts)
}
