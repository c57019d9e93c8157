// Package analytics tracks search, ingestion, and chat events and ships
// them to Kafka through a buffered, non-blocking collector.
package analytics

import "time"

type EventType string

const (
	EventSearch   EventType = "search"
	EventIndexDoc EventType = "index_document"
	EventChatOp   EventType = "chat_operation"
)

// SearchEvent describes one executed search query.
type SearchEvent struct {
	Type       EventType `json:"type"`
	SearchType string    `json:"search_type"`
	Query      string    `json:"query"`
	Results    int       `json:"results"`
	LatencyMs  int64     `json:"latency_ms"`
	CacheHit   bool      `json:"cache_hit"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id"`
}

// IndexEvent describes one ingested document.
type IndexEvent struct {
	Type         EventType `json:"type"`
	DocID        int       `json:"doc_id"`
	DocName      string    `json:"doc_name"`
	WordsIndexed int       `json:"words_indexed"`
	UniqueWords  int       `json:"unique_words"`
	Timestamp    time.Time `json:"timestamp"`
	RequestID    string    `json:"request_id"`
}

// ChatEvent describes one chat cache operation.
type ChatEvent struct {
	Type      EventType `json:"type"`
	Op        string    `json:"op"`
	ChatID    string    `json:"chat_id,omitempty"`
	Found     bool      `json:"found"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}
