// Package store provides the chat snapshot backends: a JSON file replaced
// atomically on every mutation, and a PostgreSQL table replaced inside a
// transaction. Both implement history.SnapshotStore.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/docsearch-labs/document-search-platform/internal/history"
	apperrors "github.com/docsearch-labs/document-search-platform/pkg/errors"
	"github.com/google/renameio"
)

// snapshot is the on-disk shape: a flat ordered collection of chat records.
type snapshot struct {
	Chats []history.Chat `json:"chats"`
}

// FileStore persists the snapshot as a single JSON file. Replace writes to
// a temp file and renames it over the old one, so a crash mid-write leaves
// the prior snapshot intact.
type FileStore struct {
	path   string
	logger *slog.Logger
}

// NewFileStore creates a FileStore at the given path. The file need not
// exist yet; a missing file loads as an empty snapshot.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:   path,
		logger: slog.Default().With("component", "chat-filestore", "path", path),
	}
}

// Load reads and parses the snapshot file. Parse failures surface as
// integrity errors so the caller can refuse to start.
func (fs *FileStore) Load(ctx context.Context) ([]history.Chat, error) {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			fs.logger.Info("no chat snapshot found, starting empty")
			return nil, nil
		}
		return nil, fmt.Errorf("reading snapshot file: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: parsing snapshot file %s: %v", apperrors.ErrIntegrity, fs.path, err)
	}
	return snap.Chats, nil
}

// Replace atomically rewrites the whole snapshot.
func (fs *FileStore) Replace(ctx context.Context, chats []history.Chat) error {
	if chats == nil {
		chats = []history.Chat{}
	}
	data, err := json.Marshal(snapshot{Chats: chats})
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if dir := filepath.Dir(fs.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating snapshot directory: %w", err)
		}
	}
	if err := renameio.WriteFile(fs.path, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot file: %w", err)
	}
	fs.logger.Debug("chat snapshot replaced", "chats", len(chats), "bytes", len(data))
	return nil
}
