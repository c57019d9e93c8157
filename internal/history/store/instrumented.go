package store

import (
	"context"

	"github.com/docsearch-labs/document-search-platform/internal/history"
	"github.com/docsearch-labs/document-search-platform/pkg/metrics"
)

// Instrumented decorates a SnapshotStore with a write counter labelled by
// outcome.
type Instrumented struct {
	inner history.SnapshotStore
	m     *metrics.Metrics
}

// NewInstrumented wraps inner so every snapshot replace is counted.
func NewInstrumented(inner history.SnapshotStore, m *metrics.Metrics) *Instrumented {
	return &Instrumented{inner: inner, m: m}
}

func (is *Instrumented) Load(ctx context.Context) ([]history.Chat, error) {
	return is.inner.Load(ctx)
}

func (is *Instrumented) Replace(ctx context.Context, chats []history.Chat) error {
	err := is.inner.Replace(ctx, chats)
	status := "ok"
	if err != nil {
		status = "error"
	}
	is.m.SnapshotWritesTotal.WithLabelValues(status).Inc()
	return err
}
