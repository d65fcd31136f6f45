package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	ports "github.com/ZanzyTHEbar/rosie-cli/rosie/assistant/ports"
)

// FileStore persists a single JSON document at a fixed path. The file is created with
// the default value when it does not exist yet.
type FileStore[T any] struct {
	path     string
	fallback func() T
}

// NewFileStore creates the store and writes the default document if the file is missing.
func NewFileStore[T any](path string, fallback func() T) (*FileStore[T], error) {
	s := &FileStore[T]{path: path, fallback: fallback}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := s.Save(fallback()); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	return s, nil
}

// Path returns the backing file.
func (s *FileStore[T]) Path() string { return s.path }

// Load reads the whole document.
func (s *FileStore[T]) Load() (T, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return s.fallback(), nil
	}
	if err != nil {
		var zero T
		return zero, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	value := s.fallback()
	// A literal null would decode maps and slices to nil.
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return value, nil
	}
	if err := json.Unmarshal(data, &value); err != nil {
		var zero T
		return zero, fmt.Errorf("failed to decode %s: %w", s.path, err)
	}
	return value, nil
}

// Save replaces the whole document. The write goes through a temp file in the same
// directory so a crash never leaves a truncated file behind.
func (s *FileStore[T]) Save(value T) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", s.path, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}

// JSONConversationStore keeps every conversation in one JSON object keyed by id.
type JSONConversationStore struct {
	file *FileStore[map[string]*ports.Conversation]
}

// NewJSONConversationStore opens (or creates) the conversation file.
func NewJSONConversationStore(path string) (*JSONConversationStore, error) {
	file, err := NewFileStore(path, func() map[string]*ports.Conversation {
		return map[string]*ports.Conversation{}
	})
	if err != nil {
		return nil, err
	}
	return &JSONConversationStore{file: file}, nil
}

func (s *JSONConversationStore) Get(ctx context.Context, id string) (*ports.Conversation, bool, error) {
	all, err := s.file.Load()
	if err != nil {
		return nil, false, err
	}
	conv, ok := all[id]
	if !ok || conv == nil {
		return nil, false, nil
	}
	return conv, true, nil
}

// Put loads every conversation, replaces the one with the same id and saves them all.
func (s *JSONConversationStore) Put(ctx context.Context, conversation *ports.Conversation) error {
	if conversation == nil || conversation.ID == "" {
		return errors.New("conversation id is required")
	}

	all, err := s.file.Load()
	if err != nil {
		return err
	}
	all[conversation.ID] = conversation

	return s.file.Save(all)
}

// List returns conversations ordered by creation time.
func (s *JSONConversationStore) List(ctx context.Context) ([]*ports.Conversation, error) {
	all, err := s.file.Load()
	if err != nil {
		return nil, err
	}

	out := make([]*ports.Conversation, 0, len(all))
	for id, conv := range all {
		if conv == nil {
			continue
		}
		if conv.ID == "" {
			conv.ID = id
		}
		out = append(out, conv)
	}
	sortConversations(out)
	return out, nil
}

func sortConversations(convs []*ports.Conversation) {
	sort.Slice(convs, func(i, j int) bool {
		if convs[i].CreatedAt.Equal(convs[j].CreatedAt) {
			return convs[i].ID < convs[j].ID
		}
		return convs[i].CreatedAt.Before(convs[j].CreatedAt)
	})
}

// JSONMemoryStore keeps the memory list in a single JSON document.
type JSONMemoryStore struct {
	file *FileStore[ports.Memory]
}

// NewJSONMemoryStore opens (or creates) the memory file.
func NewJSONMemoryStore(path string) (*JSONMemoryStore, error) {
	file, err := NewFileStore(path, func() ports.Memory {
		return ports.Memory{Items: []ports.MemoryItem{}}
	})
	if err != nil {
		return nil, err
	}
	return &JSONMemoryStore{file: file}, nil
}

func (s *JSONMemoryStore) Load(ctx context.Context) (ports.Memory, error) {
	mem, err := s.file.Load()
	if err != nil {
		return ports.Memory{}, err
	}
	if mem.Items == nil {
		mem.Items = []ports.MemoryItem{}
	}
	return mem, nil
}

func (s *JSONMemoryStore) Append(ctx context.Context, item ports.MemoryItem) error {
	mem, err := s.Load(ctx)
	if err != nil {
		return err
	}
	mem.Items = append(mem.Items, item)
	return s.file.Save(mem)
}

// JSONSettingsStore keeps the user settings record.
type JSONSettingsStore struct {
	file *FileStore[ports.Settings]
}

// NewJSONSettingsStore opens (or creates) the settings file.
func NewJSONSettingsStore(path string) (*JSONSettingsStore, error) {
	file, err := NewFileStore(path, func() ports.Settings { return ports.Settings{} })
	if err != nil {
		return nil, err
	}
	return &JSONSettingsStore{file: file}, nil
}

func (s *JSONSettingsStore) Load(ctx context.Context) (ports.Settings, error) {
	return s.file.Load()
}

func (s *JSONSettingsStore) Save(ctx context.Context, settings ports.Settings) error {
	return s.file.Save(settings)
}

var (
	_ ports.ConversationStore = (*JSONConversationStore)(nil)
	_ ports.MemoryStore       = (*JSONMemoryStore)(nil)
	_ ports.SettingsStore     = (*JSONSettingsStore)(nil)
)
