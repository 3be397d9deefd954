package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/taskflow-ai/taskflow/internal/idgen"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Conversation struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

func (s *Store) CreateConversation(ctx context.Context, ownerID string) (Conversation, error) {
	id := idgen.ConversationID()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `INSERT INTO conversations (id, owner_id, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		id, ownerID, now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	if err != nil {
		return Conversation{}, fmt.Errorf("insert conversation: %w", err)
	}
	return Conversation{ID: id, OwnerID: ownerID, CreatedAt: now, UpdatedAt: now}, nil
}

// GetConversation fetches a conversation by id, scoped to ownerID the same
// way task lookups are.
func (s *Store) GetConversation(ctx context.Context, ownerID, id string) (Conversation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, owner_id, created_at, updated_at FROM conversations WHERE id = ? AND owner_id = ?`, id, ownerID)
	var conv Conversation
	var createdAtStr, updatedAtStr string
	err := row.Scan(&conv.ID, &conv.OwnerID, &createdAtStr, &updatedAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return Conversation{}, ErrNotFound
	}
	if err != nil {
		return Conversation{}, fmt.Errorf("get conversation: %w", err)
	}
	conv.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAtStr)
	conv.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAtStr)
	return conv, nil
}

func (s *Store) TouchConversation(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE conversations SET updated_at = ? WHERE id = ?`, at.UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

func (s *Store) AppendMessage(ctx context.Context, conversationID, role, content string) (Message, error) {
	id := idgen.MessageID()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `INSERT INTO messages (id, conversation_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, conversationID, role, content, now.Format(time.RFC3339Nano))
	if err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}
	return Message{ID: id, ConversationID: conversationID, Role: role, Content: content, CreatedAt: now}, nil
}

// ListMessages returns a conversation's messages ordered oldest first.
// Message ids are ULIDs, so the id tiebreak preserves append order even when
// two messages land on the same timestamp.
func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, conversation_id, role, content, created_at FROM messages WHERE conversation_id = ? ORDER BY created_at ASC, id ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var msg Message
		var createdAtStr string
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAtStr)
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return out, nil
}
