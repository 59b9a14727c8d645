package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/holyai/holyai/internal/domain"
)

// askResponse mirrors the /api/chat/ask body
type askResponse struct {
	Answer         string                    `json:"answer"`
	Contexts       []domain.RetrievedContext `json:"contexts"`
	ConversationID *string                   `json:"conversation_id"`
}

// client talks to a running Holy AI server
type client struct {
	baseURL        string
	httpClient     *http.Client
	userID         string
	collection     string
	conversationID string
}

func newClient(baseURL, userID, collection string) *client {
	return &client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		userID:     userID,
		collection: collection,
	}
}

// ask sends one question and remembers the conversation id for the next
func (c *client) ask(ctx context.Context, question string) (*askResponse, error) {
	body, err := json.Marshal(domain.AskRequest{
		UserID:         c.userID,
		Question:       question,
		Collection:     c.collection,
		ConversationID: c.conversationID,
	})
	if err != nil {
		return nil, err
	}

	raw, err := c.post(ctx, "/api/chat/ask", body)
	if err != nil {
		return nil, err
	}

	var res askResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("failed to decode answer: %w", err)
	}
	if res.ConversationID != nil {
		c.conversationID = *res.ConversationID
	}
	return &res, nil
}

// synthesize fetches spoken audio for text
func (c *client) synthesize(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, err
	}
	return c.post(ctx, "/api/speech/synthesize", body)
}

func (c *client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(raw, "error").String()
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, msg)
	}
	return raw, nil
}
