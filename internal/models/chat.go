package models

import (
	"time"

	"ragchatbot/internal/rag/schema"
)

// Chat role values as stored in message records.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// maxTitleRunes bounds the auto-generated chat title.
const maxTitleRunes = 60

// Chat is a persistent conversation owned by a single user.
type Chat struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	Title     string    `bson:"title" json:"title"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Message is one turn inside a chat. Assistant messages carry the source
// references used to ground the reply; user messages leave them empty.
type Message struct {
	ID      string             `bson:"_id" json:"id"`
	ChatID  string             `bson:"chat_id" json:"chat_id"`
	Role    string             `bson:"role" json:"role"`
	Content string             `bson:"content" json:"content"`
	Sources []schema.SourceRef `bson:"sources,omitempty" json:"sources,omitempty"`

	// PromptTemplateID records which persona template the user selected for
	// this turn, when any.
	PromptTemplateID string `bson:"prompt_template_id,omitempty" json:"prompt_template_id,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// TitleFromMessage derives a chat title from the first user message,
// truncating to 60 runes with an ellipsis.
func TitleFromMessage(content string) string {
	runes := []rune(content)
	if len(runes) <= maxTitleRunes {
		return content
	}
	return string(runes[:maxTitleRunes]) + "..."
}
