package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/docsearch-labs/document-search-platform/internal/history"
	"github.com/docsearch-labs/document-search-platform/pkg/postgres"
)

const chatSchema = `
CREATE TABLE IF NOT EXISTS chat_history (
    chat_id TEXT PRIMARY KEY,
    title   TEXT NOT NULL,
    ts      BIGINT NOT NULL
)`

// PostgresStore persists the snapshot in a single table. Replace deletes
// and re-inserts every row inside one transaction, so readers never observe
// a partial snapshot.
type PostgresStore struct {
	client *postgres.Client
	logger *slog.Logger
}

// NewPostgresStore ensures the chat_history table exists and returns the
// store.
func NewPostgresStore(ctx context.Context, client *postgres.Client) (*PostgresStore, error) {
	if _, err := client.DB.ExecContext(ctx, chatSchema); err != nil {
		return nil, fmt.Errorf("creating chat_history table: %w", err)
	}
	return &PostgresStore{
		client: client,
		logger: slog.Default().With("component", "chat-pgstore"),
	}, nil
}

// Load reads every chat row in id order.
func (ps *PostgresStore) Load(ctx context.Context) ([]history.Chat, error) {
	rows, err := ps.client.DB.QueryContext(ctx,
		`SELECT chat_id, title, ts FROM chat_history ORDER BY chat_id`)
	if err != nil {
		return nil, fmt.Errorf("querying chat_history: %w", err)
	}
	defer rows.Close()

	var chats []history.Chat
	for rows.Next() {
		var chat history.Chat
		if err := rows.Scan(&chat.ID, &chat.Title, &chat.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning chat row: %w", err)
		}
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chat rows: %w", err)
	}
	return chats, nil
}

// Replace swaps the whole table contents transactionally.
func (ps *PostgresStore) Replace(ctx context.Context, chats []history.Chat) error {
	err := ps.client.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chat_history`); err != nil {
			return fmt.Errorf("clearing chat_history: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO chat_history (chat_id, title, ts) VALUES ($1, $2, $3)`)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()
		for _, chat := range chats {
			if _, err := stmt.ExecContext(ctx, chat.ID, chat.Title, chat.Timestamp); err != nil {
				return fmt.Errorf("inserting chat %s: %w", chat.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	ps.logger.Debug("chat snapshot replaced", "chats", len(chats))
	return nil
}
