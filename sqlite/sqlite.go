// Package sqlite implements drip.ConversationStore on SQLite using the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fwojciec/drip"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var _ drip.ConversationStore = (*Store)(nil)

// Store persists conversations and their messages.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and migrates the schema.
// Use ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes
	// writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS conversations (
			id                   TEXT PRIMARY KEY,
			model                TEXT NOT NULL DEFAULT '',
			discard_token_limits INTEGER NOT NULL DEFAULT 0,
			created_at           TEXT NOT NULL,
			updated_at           TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS messages (
			id              TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			prompt          TEXT NOT NULL,
			response        TEXT NOT NULL,
			created_at      TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_messages_conversation
			ON messages(conversation_id, created_at);
	`)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateConversation inserts a new empty conversation.
func (s *Store) CreateConversation(ctx context.Context, model string) (*drip.Conversation, error) {
	now := s.now()
	conv := &drip.Conversation{
		ID:        uuid.NewString(),
		Model:     model,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO conversations (id, model, discard_token_limits, created_at, updated_at) VALUES (?, ?, 0, ?, ?)",
		conv.ID, conv.Model, formatTime(now), formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: create conversation: %w", err)
	}
	return conv, nil
}

// Conversation loads the conversation id with its messages oldest first.
func (s *Store) Conversation(ctx context.Context, id string) (*drip.Conversation, error) {
	var (
		conv               drip.Conversation
		discard            int
		createdAt, updated string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, model, discard_token_limits, created_at, updated_at FROM conversations WHERE id = ?", id,
	).Scan(&conv.ID, &conv.Model, &discard, &createdAt, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite: conversation %q: %w", id, drip.ErrConversationNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: load conversation: %w", err)
	}
	conv.DiscardTokenLimits = discard != 0
	conv.CreatedAt = parseTime(createdAt)
	conv.UpdatedAt = parseTime(updated)

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, prompt, response, created_at FROM messages WHERE conversation_id = ? ORDER BY created_at, rowid", id,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: load messages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m drip.Message
		var ts string
		if err := rows.Scan(&m.ID, &m.Prompt, &m.Response, &ts); err != nil {
			return nil, fmt.Errorf("sqlite: scan message: %w", err)
		}
		m.Timestamp = parseTime(ts)
		conv.Messages = append(conv.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: load messages: %w", err)
	}
	return &conv, nil
}

// SaveMessage stores text as the response to params.Message. The
// conversation row is created if it does not exist yet. Saving the same
// message ID twice replaces the earlier response.
func (s *Store) SaveMessage(ctx context.Context, text string, params drip.CompletionParams) error {
	if params.Conversation == nil || params.Conversation.ID == "" {
		return fmt.Errorf("sqlite: save message: conversation id required: %w", drip.ErrValidation)
	}
	conv := params.Conversation
	msgID := params.Message.ID
	if msgID == "" {
		msgID = uuid.NewString()
	}
	ts := params.Message.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	now := formatTime(s.now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO conversations (id, model, discard_token_limits, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		conv.ID, conv.Model, boolInt(conv.DiscardTokenLimits), now, now,
	); err != nil {
		return fmt.Errorf("sqlite: upsert conversation: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, prompt, response, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET response = excluded.response`,
		msgID, conv.ID, params.Message.Prompt, text, formatTime(ts),
	); err != nil {
		return fmt.Errorf("sqlite: insert message: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// DiscardTokenLimits exempts the conversation from the token limit check.
func (s *Store) DiscardTokenLimits(ctx context.Context, conv *drip.Conversation) error {
	if conv == nil || conv.ID == "" {
		return fmt.Errorf("sqlite: discard token limits: conversation id required: %w", drip.ErrValidation)
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE conversations SET discard_token_limits = 1, updated_at = ? WHERE id = ?",
		formatTime(s.now()), conv.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: discard token limits: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: discard token limits: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("sqlite: conversation %q: %w", conv.ID, drip.ErrConversationNotFound)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
