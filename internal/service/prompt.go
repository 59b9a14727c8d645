package service

import (
	"fmt"
	"strings"

	"github.com/holyai/holyai/internal/domain"
)

// MaxHistoryMessages is the number of prior messages sent to the chat model
const MaxHistoryMessages = 10

// SystemPrompt is the persona every answer is generated under
const SystemPrompt = "You are Holy.AI, an AI-powered voice-based mentor that provides ancient wisdom for modern answers.\n\n" +
	"Your role is to act like a warm, trusted guru, guiding users with practical, conversational insights drawn from Indian scriptures and stories, while keeping responses simple, approachable, and deeply relevant to the user's situation.\n\n" +
	"Always reply in the chosen voice style + with a text transcript.\n\n" +
	"The response must feel personal and conversational, not like a generic chatbot.\n\n" +
	"Connect the wisdom to the user's modern situation (e.g., exams, stress, purpose, relationships).\n\n" +
	"Provide a clickable link/button that takes the user to the exact or most relevant verse.\n\n" +
	"After answering, always suggest next steps such as:\n" +
	"- 'Would you like me to explain this in more detail?'\n" +
	"- 'Do you want to read the exact verse this comes from?'\n" +
	"- 'Would you like a related story?'\n" +
	"- 'Would you like to save this to your wisdom library?'\n\n" +
	"This keeps the conversation natural and continuous.\n\n" +
	"Use the provided context chunks from the knowledge base to support your responses. " +
	"If the answer is not in the context, say you don't know succinctly but still offer to help in other ways."

// FormatContexts renders retrieved passages as numbered blocks
func FormatContexts(contexts []domain.RetrievedContext) string {
	blocks := make([]string, len(contexts))
	for i, c := range contexts {
		blocks[i] = fmt.Sprintf("[ctx %d | score=%.3f]\n%s", i+1, c.Score, c.Text)
	}
	return strings.Join(blocks, "\n\n")
}

// BuildMessages assembles the completion request: the persona, the last
// MaxHistoryMessages history entries with a known role, and the question
// wrapped with its retrieved context.
func BuildMessages(userID, question string, contexts []domain.RetrievedContext, history []domain.ChatMessage) []domain.ChatMessage {
	if len(history) > MaxHistoryMessages {
		history = history[len(history)-MaxHistoryMessages:]
	}

	messages := make([]domain.ChatMessage, 0, len(history)+2)
	messages = append(messages, domain.ChatMessage{Role: domain.RoleSystem, Content: SystemPrompt})
	for _, m := range history {
		if !domain.ValidRole(m.Role) {
			continue
		}
		messages = append(messages, m)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<user_id>%s</user_id>\n", userID)
	fmt.Fprintf(&b, "<question>%s</question>\n", question)
	fmt.Fprintf(&b, "<context>\n%s\n</context>\n", FormatContexts(contexts))
	b.WriteString("Answer the question using the context above when possible.")

	return append(messages, domain.ChatMessage{Role: domain.RoleUser, Content: b.String()})
}
