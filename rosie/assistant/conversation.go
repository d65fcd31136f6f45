package assistant

import (
	"context"
	"fmt"
	"time"

	ports "github.com/ZanzyTHEbar/rosie-cli/rosie/assistant/ports"
	"github.com/google/uuid"
)

// ConversationManager owns the id -> transcript mapping.
//
// Writes are whole-record upserts with no locking; two processes appending to the
// same store concurrently race and the last save wins.
type ConversationManager struct {
	store        ports.ConversationStore
	memory       ports.MemoryStore
	instructions string
	now          func() time.Time
}

// NewConversationManager seeds new conversations with instructions and the memory snapshot.
func NewConversationManager(store ports.ConversationStore, memory ports.MemoryStore, instructions string) *ConversationManager {
	return &ConversationManager{
		store:        store,
		memory:       memory,
		instructions: instructions,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// GetOrCreate returns the stored conversation unchanged, or creates and persists a
// seeded one. An empty id gets a generated one.
func (m *ConversationManager) GetOrCreate(ctx context.Context, id string) (*ports.Conversation, error) {
	if id != "" {
		conv, ok, err := m.store.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load conversation %s: %w", id, err)
		}
		if ok {
			return conv, nil
		}
	} else {
		id = uuid.NewString()
	}

	mem, err := m.memory.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load memory: %w", err)
	}
	memoryPrompt, err := MemoryPrompt(mem)
	if err != nil {
		return nil, err
	}

	now := m.now()
	conv := &ports.Conversation{
		ID: id,
		Messages: []ports.Message{
			{Role: ports.RoleSystem, Content: m.instructions, Timestamp: now},
			{Role: ports.RoleSystem, Content: memoryPrompt, Timestamp: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := m.store.Put(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to save conversation %s: %w", id, err)
	}
	return conv, nil
}

// Append replaces the stored transcript of id with messages.
func (m *ConversationManager) Append(ctx context.Context, id string, messages []ports.Message) error {
	conv, ok, err := m.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load conversation %s: %w", id, err)
	}

	now := m.now()
	if !ok {
		conv = &ports.Conversation{ID: id, CreatedAt: now}
	}
	conv.Messages = messages
	conv.UpdatedAt = now

	if err := m.store.Put(ctx, conv); err != nil {
		return fmt.Errorf("failed to save conversation %s: %w", id, err)
	}
	return nil
}

// CreateEmpty persists a conversation with no messages. Seeding happens lazily on first use
// only for unknown ids, so an empty record stays unseeded. An existing conversation with
// the same id is returned untouched.
func (m *ConversationManager) CreateEmpty(ctx context.Context, id string) (*ports.Conversation, error) {
	if id == "" {
		id = uuid.NewString()
	}

	existing, ok, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation %s: %w", id, err)
	}
	if ok {
		return existing, nil
	}

	now := m.now()
	conv := &ports.Conversation{ID: id, Messages: []ports.Message{}, CreatedAt: now, UpdatedAt: now}

	if err := m.store.Put(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to save conversation %s: %w", id, err)
	}
	return conv, nil
}

// List returns every stored conversation.
func (m *ConversationManager) List(ctx context.Context) ([]*ports.Conversation, error) {
	convs, err := m.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return convs, nil
}

// Get returns a stored conversation without creating it.
func (m *ConversationManager) Get(ctx context.Context, id string) (*ports.Conversation, bool, error) {
	return m.store.Get(ctx, id)
}
