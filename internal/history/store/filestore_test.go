package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/docsearch-labs/document-search-platform/internal/history"
	apperrors "github.com/docsearch-labs/document-search-platform/pkg/errors"
)

func TestFileStoreMissingFileLoadsEmpty(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "missing.json"))
	chats, err := fs.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(chats) != 0 {
		t.Errorf("Load returned %d chats, want 0", len(chats))
	}
}

func TestFileStoreReplaceThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "chats.json")
	fs := NewFileStore(path)
	ctx := context.Background()

	want := []history.Chat{
		{ID: "c1", Title: "first", Timestamp: 100},
		{ID: "c2", Title: "second", Timestamp: 200},
	}
	if err := fs.Replace(ctx, want); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	got, err := fs.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Load returned %d chats, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chat %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestFileStoreReplaceOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chats.json")
	fs := NewFileStore(path)
	ctx := context.Background()

	if err := fs.Replace(ctx, []history.Chat{{ID: "c1", Title: "one", Timestamp: 1}}); err != nil {
		t.Fatalf("first Replace failed: %v", err)
	}
	if err := fs.Replace(ctx, []history.Chat{{ID: "c2", Title: "two", Timestamp: 2}}); err != nil {
		t.Fatalf("second Replace failed: %v", err)
	}

	chats, err := fs.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(chats) != 1 || chats[0].ID != "c2" {
		t.Errorf("Load returned %+v, want only c2", chats)
	}
}

func TestFileStoreReplaceNilWritesEmptySnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chats.json")
	fs := NewFileStore(path)
	ctx := context.Background()

	if err := fs.Replace(ctx, nil); err != nil {
		t.Fatalf("Replace(nil) failed: %v", err)
	}
	chats, err := fs.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(chats) != 0 {
		t.Errorf("Load returned %d chats, want 0", len(chats))
	}
}

func TestFileStoreMalformedSnapshot(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"truncated json", `{"chats":[{"id":"c1"`},
		{"wrong shape", `[1, 2, 3]`},
		{"plain garbage", `not json at all`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "chats.json")
			if err := os.WriteFile(path, []byte(tt.data), 0o644); err != nil {
				t.Fatal(err)
			}
			fs := NewFileStore(path)
			_, err := fs.Load(context.Background())
			if !errors.Is(err, apperrors.ErrIntegrity) {
				t.Errorf("Load error = %v, want integrity", err)
			}
		})
	}
}
