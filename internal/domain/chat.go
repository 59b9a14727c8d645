package domain

import "github.com/samber/mo"

// Chat roles accepted by the completion provider
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ValidRole reports whether role is one the completion provider understands
func ValidRole(role string) bool {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Question is a single user submission to the answer pipeline
type Question struct {
	UserID         string
	Text           string
	Collection     string
	ConversationID mo.Option[string]
}

// RetrievedContext is one matched vector-database point
type RetrievedContext struct {
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
	Source   *string `json:"source,omitempty"`
	FileName *string `json:"file_name,omitempty"`
	PointID  *string `json:"point_id"`
}

// ChatMessage is a role-tagged prompt entry
type ChatMessage struct {
	Role    string `json:"role" db:"role"`
	Content string `json:"content" db:"content"`
}

// AnswerResult is the outcome of one answer pipeline run
type AnswerResult struct {
	Answer         string             `json:"answer"`
	Contexts       []RetrievedContext `json:"contexts"`
	Messages       []ChatMessage      `json:"messages"`
	ConversationID mo.Option[string]  `json:"conversation_id"`
}

// AskRequest is the request to answer a question
type AskRequest struct {
	UserID         string   `json:"user_id" binding:"required"`
	Question       string   `json:"question" binding:"required"`
	Collection     string   `json:"collection,omitempty"`
	ConversationID string   `json:"conversation_id,omitempty"`
	K              int      `json:"k,omitempty" binding:"omitempty,min=1,max=100"`
	ScoreThreshold *float64 `json:"score_threshold,omitempty"`
	EmbedModel     string   `json:"embed_model,omitempty"`
	ChatModel      string   `json:"chat_model,omitempty"`
}
