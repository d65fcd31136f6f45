package adapters

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	ports "github.com/ZanzyTHEbar/rosie-cli/rosie/assistant/ports"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// MigrateLibSQL brings the schema up to date.
func MigrateLibSQL(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// LibSQLConversationStore implements ConversationStore on an embedded libSQL database.
type LibSQLConversationStore struct {
	db *sql.DB
}

// NewLibSQLConversationStore creates a new LibSQL conversation store.
func NewLibSQLConversationStore(db *sql.DB) *LibSQLConversationStore {
	return &LibSQLConversationStore{db: db}
}

func (s *LibSQLConversationStore) Get(ctx context.Context, id string) (*ports.Conversation, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, messages, created_at, updated_at FROM conversations WHERE id = ?`, id)

	conv, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return conv, true, nil
}

// Put inserts or replaces the whole record.
func (s *LibSQLConversationStore) Put(ctx context.Context, conversation *ports.Conversation) error {
	if conversation == nil || conversation.ID == "" {
		return errors.New("conversation id is required")
	}

	messages := conversation.Messages
	if messages == nil {
		messages = []ports.Message{}
	}
	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	query := `
		INSERT INTO conversations (id, messages, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET messages = excluded.messages, updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		conversation.ID,
		string(payload),
		conversation.CreatedAt.UTC().Format(time.RFC3339Nano),
		conversation.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

func (s *LibSQLConversationStore) List(ctx context.Context) ([]*ports.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, messages, created_at, updated_at FROM conversations ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var out []*ports.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*ports.Conversation, error) {
	var (
		conv                 ports.Conversation
		payload              string
		createdAt, updatedAt string
	)
	if err := row.Scan(&conv.ID, &payload, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan conversation: %w", err)
	}

	if err := json.Unmarshal([]byte(payload), &conv.Messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal messages of %s: %w", conv.ID, err)
	}

	var err error
	if conv.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at for %s: %w", conv.ID, err)
	}
	if conv.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("invalid updated_at for %s: %w", conv.ID, err)
	}
	return &conv, nil
}

// LibSQLMemoryStore implements MemoryStore on the same database.
type LibSQLMemoryStore struct {
	db *sql.DB
}

// NewLibSQLMemoryStore creates a new LibSQL memory store.
func NewLibSQLMemoryStore(db *sql.DB) *LibSQLMemoryStore {
	return &LibSQLMemoryStore{db: db}
}

// Load returns every item in insertion order.
func (s *LibSQLMemoryStore) Load(ctx context.Context) (ports.Memory, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT text, date FROM memory_items ORDER BY id`)
	if err != nil {
		return ports.Memory{}, fmt.Errorf("failed to query memory: %w", err)
	}
	defer rows.Close()

	mem := ports.Memory{Items: []ports.MemoryItem{}}
	for rows.Next() {
		var text, date string
		if err := rows.Scan(&text, &date); err != nil {
			return ports.Memory{}, fmt.Errorf("failed to scan memory item: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, date)
		if err != nil {
			return ports.Memory{}, fmt.Errorf("invalid memory date %q: %w", date, err)
		}
		mem.Items = append(mem.Items, ports.MemoryItem{Text: text, Date: ts})
	}
	if err := rows.Err(); err != nil {
		return ports.Memory{}, fmt.Errorf("error iterating memory: %w", err)
	}
	return mem, nil
}

func (s *LibSQLMemoryStore) Append(ctx context.Context, item ports.MemoryItem) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memory_items (text, date) VALUES (?, ?)`,
		item.Text, item.Date.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save memory item: %w", err)
	}
	return nil
}

var (
	_ ports.ConversationStore = (*LibSQLConversationStore)(nil)
	_ ports.MemoryStore       = (*LibSQLMemoryStore)(nil)
)
