package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mikeboe/finance-assistant/pkg/database"
)

// PostgresStore persists transcripts in the conversations and messages tables.
type PostgresStore struct {
	db    *database.PostgresDB
	limit int
}

func NewPostgresStore(db *database.PostgresDB, limit int) *PostgresStore {
	if limit <= 0 {
		limit = 50
	}
	return &PostgresStore{db: db, limit: limit}
}

func (s *PostgresStore) CreateConversation(ctx context.Context) (*Conversation, error) {
	var conv Conversation
	query := `INSERT INTO conversations (id) VALUES ($1) RETURNING id, title, created_at, updated_at`
	err := s.db.Pool.QueryRow(ctx, query, uuid.New()).Scan(&conv.ID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return &conv, nil
}

func (s *PostgresStore) GetConversation(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	var conv Conversation
	query := `SELECT id, title, created_at, updated_at FROM conversations WHERE id = $1`
	err := s.db.Pool.QueryRow(ctx, query, id).Scan(&conv.ID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &conv, nil
}

func (s *PostgresStore) ListConversations(ctx context.Context) ([]Conversation, error) {
	query := `SELECT id, title, created_at, updated_at FROM conversations ORDER BY updated_at DESC`
	rows, err := s.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	convs := []Conversation{}
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

func (s *PostgresStore) SetTitle(ctx context.Context, id uuid.UUID, title string) error {
	tag, err := s.db.Pool.Exec(ctx, `UPDATE conversations SET title = $2 WHERE id = $1`, id, title)
	if err != nil {
		return fmt.Errorf("failed to update conversation title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// Append inserts the message and trims the conversation to the newest
// limit messages in one transaction.
func (s *PostgresStore) Append(ctx context.Context, msg Message) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE conversations SET updated_at = NOW() WHERE id = $1`, msg.ConversationID)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConversationNotFound
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO messages (id, conversation_id, role, content) VALUES ($1, $2, $3, $4)`,
		msg.ID, msg.ConversationID, msg.Role, msg.Content)
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}

	_, err = tx.Exec(ctx, `
		DELETE FROM messages
		WHERE conversation_id = $1 AND id NOT IN (
			SELECT id FROM messages WHERE conversation_id = $1 ORDER BY seq DESC LIMIT $2
		)`, msg.ConversationID, s.limit)
	if err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit message: %w", err)
	}
	return nil
}

func (s *PostgresStore) History(ctx context.Context, id uuid.UUID) ([]Message, error) {
	if _, err := s.GetConversation(ctx, id); err != nil {
		return nil, err
	}

	query := `SELECT id, conversation_id, role, content, created_at FROM messages WHERE conversation_id = $1 ORDER BY seq ASC`
	rows, err := s.db.Pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	msgs := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (s *PostgresStore) Clear(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetConversation(ctx, id); err != nil {
		return err
	}
	if _, err := s.db.Pool.Exec(ctx, `DELETE FROM messages WHERE conversation_id = $1`, id); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}
