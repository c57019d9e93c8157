package history

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	apperrors "github.com/docsearch-labs/document-search-platform/pkg/errors"
)

// SnapshotStore is the persistence contract: the full flat snapshot is
// loaded once before first use and rewritten in full after every mutation.
// Replace must be atomic — a crash mid-replace leaves the prior snapshot
// intact. Implementations live in the store subpackage.
type SnapshotStore interface {
	Load(ctx context.Context) ([]Chat, error)
	Replace(ctx context.Context, chats []Chat) error
}

// Service wraps the splay tree with the single-writer lock and the snapshot
// store. All mutating operations persist the new snapshot before returning.
type Service struct {
	mu     sync.Mutex
	tree   *Tree
	store  SnapshotStore
	logger *slog.Logger
}

// NewService creates a Service over the given store. Call Load before
// serving requests.
func NewService(store SnapshotStore) *Service {
	return &Service{
		tree:   NewTree(),
		store:  store,
		logger: slog.Default().With("component", "chat-history"),
	}
}

// Load reads the persisted snapshot and rebuilds the tree. A snapshot that
// fails to parse or violates the id-uniqueness invariant is rejected: the
// service refuses to start rather than silently resetting to empty.
func (s *Service) Load(ctx context.Context) error {
	chats, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading chat snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.Clear()
	seen := make(map[string]struct{}, len(chats))
	for _, chat := range chats {
		if strings.TrimSpace(chat.ID) == "" {
			return fmt.Errorf("%w: snapshot contains a chat with an empty id", apperrors.ErrIntegrity)
		}
		if _, dup := seen[chat.ID]; dup {
			return fmt.Errorf("%w: snapshot contains duplicate chat id %q", apperrors.ErrIntegrity, chat.ID)
		}
		seen[chat.ID] = struct{}{}
		s.tree.Insert(chat.ID, chat.Title, chat.Timestamp)
	}
	s.logger.Info("chat history loaded", "chats", s.tree.Len())
	return nil
}

// Add inserts or updates a chat and persists the snapshot. A zero timestamp
// defaults to the current time.
func (s *Service) Add(ctx context.Context, id, title string, timestamp int64) (Chat, error) {
	if strings.TrimSpace(id) == "" {
		return Chat{}, apperrors.Validation("chat id is required")
	}
	if strings.TrimSpace(title) == "" {
		return Chat{}, apperrors.Validation("chat title is required")
	}
	if timestamp == 0 {
		timestamp = time.Now().Unix()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	chat := s.tree.Insert(id, title, timestamp)
	if err := s.persist(ctx); err != nil {
		return Chat{}, err
	}
	return chat, nil
}

// Access looks up a chat, splaying it to the root on a hit. A miss is a
// normal negative result, not an error. The splay mutates the tree shape,
// so the snapshot is rewritten even though its flat content is unchanged.
func (s *Service) Access(ctx context.Context, id string) (Chat, bool, error) {
	if strings.TrimSpace(id) == "" {
		return Chat{}, false, apperrors.Validation("chat id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	chat, found := s.tree.Access(id)
	if !found {
		return Chat{}, false, nil
	}
	if err := s.persist(ctx); err != nil {
		return Chat{}, false, err
	}
	return chat, true, nil
}

// List returns every chat sorted by timestamp descending.
func (s *Service) List(ctx context.Context) []Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.List()
}

// Delete removes a chat by id and persists the snapshot, reporting whether
// the chat existed.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, apperrors.Validation("chat id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tree.Delete(id) {
		return false, nil
	}
	if err := s.persist(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Clear discards every chat and persists the empty snapshot.
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.Clear()
	return s.persist(ctx)
}

// Len is the number of cached chats.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Len()
}

// Root returns the most recently inserted or accessed chat.
func (s *Service) Root() (Chat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Root()
}

func (s *Service) persist(ctx context.Context) error {
	if err := s.store.Replace(ctx, s.tree.InOrder()); err != nil {
		s.logger.Error("chat snapshot replace failed", "error", err)
		return fmt.Errorf("replacing chat snapshot: %w", err)
	}
	return nil
}
