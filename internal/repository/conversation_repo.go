package repository

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/holyai/holyai/internal/domain"
)

// ConversationRepository handles conversation and message persistence
type ConversationRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *sqlx.DB) *ConversationRepository {
	return &ConversationRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// FetchHistory returns the most recent limit messages of the conversation,
// or of the user when conversationID is empty, oldest first.
func (r *ConversationRepository) FetchHistory(ctx context.Context, userID, conversationID string, limit int) ([]domain.ChatMessage, error) {
	column, key := "user_id", userID
	if conversationID != "" {
		column, key = "conversation_id", conversationID
	}

	var history []domain.ChatMessage
	query := fmt.Sprintf(`
		SELECT role, content
		FROM messages WHERE %s = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, column)
	if err := r.db.SelectContext(ctx, &history, r.db.Rebind(query), key, limit); err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}

	slices.Reverse(history)
	return history, nil
}

// PersistTurn stores one question and its answer. When conversationID is
// empty a new conversation is created; an unknown id is created on first
// use. Returns the conversation id.
func (r *ConversationRepository) PersistTurn(ctx context.Context, userID, question, answer, conversationID string) (string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := r.now()
	if conversationID == "" {
		conversationID = uuid.New().String()
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO conversations (id, user_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`), conversationID, userID, now)
	if err != nil {
		return "", fmt.Errorf("failed to create conversation: %w", err)
	}

	// The answer row sorts after its question
	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO messages (id, conversation_id, user_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?), (?, ?, ?, ?, ?, ?)
	`),
		uuid.New().String(), conversationID, userID, domain.RoleUser, question, now,
		uuid.New().String(), conversationID, userID, domain.RoleAssistant, answer, now.Add(time.Millisecond),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create messages: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit turn: %w", err)
	}
	return conversationID, nil
}

// Ping checks the database connection
func (r *ConversationRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
