package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
)

// latencyWindow bounds the number of retained latency samples.
const latencyWindow = 10000

// Aggregator consumes analytics events and folds them into in-memory
// counters for the dashboard API. It is fed by a Kafka consumer in the
// analytics binary.
type Aggregator struct {
	mu sync.Mutex

	searchesByType map[string]int64
	cacheHits      int64
	cacheMisses    int64
	latencies      []int64
	latencyPos     int
	queryCounts    map[string]int64

	docsIndexed  int64
	wordsIndexed int64

	chatOps map[string]int64

	decodeFailures int64
	logger         *slog.Logger
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		searchesByType: make(map[string]int64),
		latencies:      make([]int64, 0, latencyWindow),
		queryCounts:    make(map[string]int64),
		chatOps:        make(map[string]int64),
		logger:         slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleMessage decodes one Kafka message and applies it. It satisfies the
// consumer's MessageHandler signature. Undecodable payloads are counted and
// dropped; returning an error would only redeliver garbage.
func (a *Aggregator) HandleMessage(ctx context.Context, key, value []byte) error {
	var envelope struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(value, &envelope); err != nil {
		a.recordDecodeFailure(err)
		return nil
	}

	switch envelope.Type {
	case EventSearch:
		var event SearchEvent
		if err := json.Unmarshal(value, &event); err != nil {
			a.recordDecodeFailure(err)
			return nil
		}
		a.applySearch(event)
	case EventIndexDoc:
		var event IndexEvent
		if err := json.Unmarshal(value, &event); err != nil {
			a.recordDecodeFailure(err)
			return nil
		}
		a.applyIndex(event)
	case EventChatOp:
		var event ChatEvent
		if err := json.Unmarshal(value, &event); err != nil {
			a.recordDecodeFailure(err)
			return nil
		}
		a.applyChat(event)
	default:
		a.logger.Warn("unknown event type", "type", envelope.Type)
	}
	return nil
}

func (a *Aggregator) applySearch(event SearchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.searchesByType[event.SearchType]++
	if event.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
	if len(a.latencies) < latencyWindow {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.latencyPos] = event.LatencyMs
		a.latencyPos = (a.latencyPos + 1) % latencyWindow
	}
	a.queryCounts[event.Query]++
}

func (a *Aggregator) applyIndex(event IndexEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.docsIndexed++
	a.wordsIndexed += int64(event.WordsIndexed)
}

func (a *Aggregator) applyChat(event ChatEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.chatOps[event.Op]++
}

func (a *Aggregator) recordDecodeFailure(err error) {
	a.mu.Lock()
	a.decodeFailures++
	a.mu.Unlock()
	a.logger.Error("failed to decode event", "error", err)
}

// QueryCount is one entry of the top-queries leaderboard.
type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Summary is the dashboard snapshot assembled from all consumed events.
type Summary struct {
	TotalSearches  int64            `json:"total_searches"`
	SearchesByType map[string]int64 `json:"searches_by_type"`
	CacheHits      int64            `json:"cache_hits"`
	CacheMisses    int64            `json:"cache_misses"`
	CacheHitRate   string           `json:"cache_hit_rate"`
	LatencyP50Ms   int64            `json:"latency_p50_ms"`
	LatencyP95Ms   int64            `json:"latency_p95_ms"`
	LatencyP99Ms   int64            `json:"latency_p99_ms"`
	TopQueries     []QueryCount     `json:"top_queries"`
	DocsIndexed    int64            `json:"docs_indexed"`
	WordsIndexed   int64            `json:"words_indexed"`
	ChatOps        map[string]int64 `json:"chat_ops"`
	DecodeFailures int64            `json:"decode_failures"`
}

// Snapshot assembles the current Summary. Maps and slices are copied so the
// caller can serialize without holding the lock.
func (a *Aggregator) Snapshot() Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	summary := Summary{
		SearchesByType: make(map[string]int64, len(a.searchesByType)),
		CacheHits:      a.cacheHits,
		CacheMisses:    a.cacheMisses,
		DocsIndexed:    a.docsIndexed,
		WordsIndexed:   a.wordsIndexed,
		ChatOps:        make(map[string]int64, len(a.chatOps)),
		DecodeFailures: a.decodeFailures,
	}
	for typ, count := range a.searchesByType {
		summary.SearchesByType[typ] = count
		summary.TotalSearches += count
	}
	for op, count := range a.chatOps {
		summary.ChatOps[op] = count
	}
	if total := a.cacheHits + a.cacheMisses; total > 0 {
		summary.CacheHitRate = fmt.Sprintf("%.1f%%", float64(a.cacheHits)/float64(total)*100)
	} else {
		summary.CacheHitRate = "n/a"
	}

	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		summary.LatencyP50Ms = sorted[len(sorted)*50/100]
		summary.LatencyP95Ms = sorted[len(sorted)*95/100]
		summary.LatencyP99Ms = sorted[len(sorted)*99/100]
	}

	summary.TopQueries = topQueries(a.queryCounts, 10)
	return summary
}

// ServeSummary is the HTTP handler for the dashboard snapshot.
func (a *Aggregator) ServeSummary(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(a.Snapshot()); err != nil {
		a.logger.Error("failed to write summary", "error", err)
	}
}

func topQueries(counts map[string]int64, n int) []QueryCount {
	ranked := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		ranked = append(ranked, QueryCount{Query: query, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Query < ranked[j].Query
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
