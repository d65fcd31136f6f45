package assistantports

import (
	"context"
	"time"
)

// Role tags the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a conversation transcript. Immutable once appended.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"ts"`
}

// Conversation is a persisted, ordered transcript.
type Conversation struct {
	ID        string    `json:"id"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MemoryItem is a single long-term fact about the user.
type MemoryItem struct {
	Text string    `json:"text"`
	Date time.Time `json:"date"`
}

// Memory is the global, append-only list of facts.
type Memory struct {
	Items []MemoryItem `json:"items"`
}

// Settings is the user-scoped configuration record.
type Settings struct {
	OpenAIKey            string `json:"openai_key,omitempty"`
	ActiveConversationID string `json:"active_conversation_id,omitempty"`
}

// ConversationStore persists transcripts keyed by conversation id.
// Put is a whole-record upsert; concurrent writers from different processes race
// and the last save wins.
type ConversationStore interface {
	Get(ctx context.Context, id string) (*Conversation, bool, error)
	Put(ctx context.Context, conversation *Conversation) error
	List(ctx context.Context) ([]*Conversation, error)
}

// MemoryStore persists the global memory list.
type MemoryStore interface {
	Load(ctx context.Context) (Memory, error)
	Append(ctx context.Context, item MemoryItem) error
}

// SettingsStore persists the user settings record.
type SettingsStore interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, settings Settings) error
}
