// Package server is the HTTP transport adapter over the search engine and
// chat history cores. It owns the locking the cores deliberately omit:
// engine mutations run under an exclusive lock, queries under a shared one.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/docsearch-labs/document-search-platform/internal/analytics"
	"github.com/docsearch-labs/document-search-platform/internal/engine"
	"github.com/docsearch-labs/document-search-platform/internal/history"
	"github.com/docsearch-labs/document-search-platform/internal/searchcache"
	"github.com/docsearch-labs/document-search-platform/pkg/config"
	apperrors "github.com/docsearch-labs/document-search-platform/pkg/errors"
	"github.com/docsearch-labs/document-search-platform/pkg/logger"
	"github.com/docsearch-labs/document-search-platform/pkg/metrics"
)

// Handler serves the operation table over HTTP. Cache, collector, and
// metrics are optional; a nil collaborator disables that concern.
type Handler struct {
	engineMu  sync.RWMutex
	engine    *engine.Engine
	history   *history.Service
	cache     *searchcache.Cache
	collector *analytics.Collector
	metrics   *metrics.Metrics
	limits    config.EngineConfig
	logger    *slog.Logger
}

// New wires a Handler over the two cores and the optional collaborators.
func New(
	eng *engine.Engine,
	hist *history.Service,
	cache *searchcache.Cache,
	collector *analytics.Collector,
	m *metrics.Metrics,
	limits config.EngineConfig,
) *Handler {
	return &Handler{
		engine:    eng,
		history:   hist,
		cache:     cache,
		collector: collector,
		metrics:   m,
		limits:    limits,
		logger:    slog.Default().With("component", "http-handler"),
	}
}

// Routes registers every API route on a fresh mux. Health endpoints are
// registered by the caller alongside these.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/documents", h.IngestDocument)
	mux.HandleFunc("GET /api/v1/documents", h.ListDocuments)
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/topk", h.TopK)
	mux.HandleFunc("POST /api/v1/replace", h.Replace)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("POST /api/v1/chats", h.ChatAdd)
	mux.HandleFunc("GET /api/v1/chats", h.ChatList)
	mux.HandleFunc("POST /api/v1/chats/{id}/access", h.ChatAccess)
	mux.HandleFunc("DELETE /api/v1/chats/{id}", h.ChatDelete)
	mux.HandleFunc("DELETE /api/v1/chats", h.ChatClear)
	return mux
}

type ingestRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// IngestDocument indexes one document and invalidates the query cache.
func (h *Handler) IngestDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Name) > h.limits.MaxNameLength {
		h.writeError(w, http.StatusBadRequest,
			fmt.Sprintf("name must be at most %d bytes", h.limits.MaxNameLength))
		return
	}
	if len(req.Content) > h.limits.MaxContentBytes {
		h.writeError(w, http.StatusBadRequest,
			fmt.Sprintf("content must be at most %d bytes", h.limits.MaxContentBytes))
		return
	}

	h.engineMu.Lock()
	result, err := h.engine.IndexDocument(req.Name, req.Content)
	var uniqueTerms int
	if err == nil {
		uniqueTerms = h.engine.UniqueTerms()
	}
	h.engineMu.Unlock()
	if err != nil {
		h.writeAppError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.DocsIndexedTotal.Inc()
		h.metrics.TokensIndexedTotal.Add(float64(result.WordsIndexed))
		h.metrics.UniqueTerms.Set(float64(uniqueTerms))
	}
	if h.cache != nil {
		if err := h.cache.Invalidate(ctx); err != nil {
			log.Error("search cache invalidation failed", "error", err)
		}
	}
	if h.collector != nil {
		h.collector.Track(analytics.IndexEvent{
			Type:         analytics.EventIndexDoc,
			DocID:        result.DocID,
			DocName:      req.Name,
			WordsIndexed: result.WordsIndexed,
			UniqueWords:  result.UniqueWords,
			Timestamp:    time.Now().UTC(),
			RequestID:    logger.RequestID(ctx),
		})
	}
	log.Info("document ingested",
		"doc_id", result.DocID,
		"name", req.Name,
		"words_indexed", result.WordsIndexed,
		"unique_words", result.UniqueWords,
	)
	h.writeJSON(w, http.StatusCreated, map[string]any{
		"success":       true,
		"doc_id":        result.DocID,
		"name":          req.Name,
		"words_indexed": result.WordsIndexed,
		"unique_words":  result.UniqueWords,
	})
}

// ListDocuments returns the full corpus in id order.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	h.engineMu.RLock()
	docs := h.engine.Documents()
	h.engineMu.RUnlock()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"count":     len(docs),
		"documents": docs,
	})
}

type keywordResponse struct {
	Type string `json:"type"`
	*engine.KeywordResult
}

type prefixResponse struct {
	Type string `json:"type"`
	*engine.PrefixResult
}

type multiResponse struct {
	Type string `json:"type"`
	*engine.MultiResult
}

// Search dispatches to the keyword, prefix, or multi-keyword query
// operation according to the type parameter.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	searchType := r.URL.Query().Get("type")
	if searchType == "" {
		searchType = "keyword"
	}

	var compute func() (any, error)
	var resultCount func(any) int
	switch searchType {
	case "keyword":
		compute = func() (any, error) {
			h.engineMu.RLock()
			defer h.engineMu.RUnlock()
			result, err := h.engine.SearchKeyword(query)
			if err != nil {
				return nil, err
			}
			return &keywordResponse{Type: "keyword", KeywordResult: result}, nil
		}
		resultCount = func(v any) int { return len(v.(*keywordResponse).Results) }
	case "prefix":
		compute = func() (any, error) {
			h.engineMu.RLock()
			defer h.engineMu.RUnlock()
			result, err := h.engine.SearchPrefix(query)
			if err != nil {
				return nil, err
			}
			return &prefixResponse{Type: "prefix", PrefixResult: result}, nil
		}
		resultCount = func(v any) int { return len(v.(*prefixResponse).Results) }
	case "multi":
		compute = func() (any, error) {
			h.engineMu.RLock()
			defer h.engineMu.RUnlock()
			result, err := h.engine.SearchMulti(query)
			if err != nil {
				return nil, err
			}
			return &multiResponse{Type: "multi", MultiResult: result}, nil
		}
		resultCount = func(v any) int { return len(v.(*multiResponse).Results) }
	default:
		h.writeError(w, http.StatusBadRequest, "type must be keyword, prefix, or multi")
		return
	}

	cacheHit := false
	results := 0
	if h.cache != nil {
		payload, hit, err := h.cache.GetOrCompute(ctx, searchType, query, compute)
		if err != nil {
			h.writeAppError(w, err)
			return
		}
		cacheHit = hit
		results = countResults(payload)
		h.writeRaw(w, http.StatusOK, payload)
	} else {
		value, err := compute()
		if err != nil {
			h.writeAppError(w, err)
			return
		}
		results = resultCount(value)
		h.writeJSON(w, http.StatusOK, value)
	}

	latencyMs := time.Since(start).Milliseconds()
	if h.metrics != nil {
		h.metrics.SearchQueriesTotal.WithLabelValues(searchType).Inc()
		h.metrics.SearchLatency.WithLabelValues(searchType).Observe(time.Since(start).Seconds())
		if h.cache != nil {
			if cacheHit {
				h.metrics.CacheHitsTotal.Inc()
			} else {
				h.metrics.CacheMissesTotal.Inc()
			}
		}
	}
	if h.collector != nil {
		h.collector.Track(analytics.SearchEvent{
			Type:       analytics.EventSearch,
			SearchType: searchType,
			Query:      query,
			Results:    results,
			LatencyMs:  latencyMs,
			CacheHit:   cacheHit,
			Timestamp:  time.Now().UTC(),
			RequestID:  logger.RequestID(ctx),
		})
	}
	log.Info("search completed",
		"type", searchType,
		"query", query,
		"cache_hit", cacheHit,
		"latency_ms", latencyMs,
	)
}

// TopK returns the k most frequent terms across the corpus.
func (h *Handler) TopK(w http.ResponseWriter, r *http.Request) {
	k := 10
	if kStr := r.URL.Query().Get("k"); kStr != "" {
		parsed, err := strconv.Atoi(kStr)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "k must be an integer")
			return
		}
		k = parsed
	}

	compute := func() (any, error) {
		h.engineMu.RLock()
		defer h.engineMu.RUnlock()
		return h.engine.TopK(k)
	}

	if h.cache != nil {
		payload, _, err := h.cache.GetOrCompute(r.Context(), "topk", strconv.Itoa(k), compute)
		if err != nil {
			h.writeAppError(w, err)
			return
		}
		h.writeRaw(w, http.StatusOK, payload)
		return
	}
	value, err := compute()
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, value)
}

type replaceRequest struct {
	Content string `json:"content"`
	Find    string `json:"find"`
	Replace string `json:"replace"`
}

// Replace runs the pure find/replace text transform. It reads no engine
// state, so no lock is taken.
func (h *Handler) Replace(w http.ResponseWriter, r *http.Request) {
	var req replaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := h.engine.Replace(req.Content, req.Find, req.Replace)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// Stats reports corpus-level statistics.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.engineMu.RLock()
	stats := h.engine.Stats()
	h.engineMu.RUnlock()
	h.writeJSON(w, http.StatusOK, stats)
}

// CacheStats reports query-cache hit/miss counters.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

// CacheInvalidate drops every cached search response.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

type chatAddRequest struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Timestamp int64  `json:"timestamp"`
}

// ChatAdd inserts or updates a chat session and splays it to the root.
func (h *Handler) ChatAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req chatAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	chat, err := h.history.Add(ctx, req.ID, req.Title, req.Timestamp)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.trackChat(ctx, "add", chat.ID, true)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "chat saved",
		"chat":    chat,
	})
}

// ChatAccess looks up a chat by id. A miss is a normal negative result.
func (h *Handler) ChatAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	chat, found, err := h.history.Access(ctx, id)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.trackChat(ctx, "access", id, found)
	if !found {
		h.writeJSON(w, http.StatusOK, map[string]any{"found": false})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"found": true,
		"chat":  chat,
	})
}

// ChatList returns every chat sorted by timestamp descending.
func (h *Handler) ChatList(w http.ResponseWriter, r *http.Request) {
	chats := h.history.List(r.Context())
	h.trackChat(r.Context(), "list", "", true)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"count": len(chats),
		"chats": chats,
	})
}

// ChatDelete removes one chat by id.
func (h *Handler) ChatDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	deleted, err := h.history.Delete(ctx, id)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.trackChat(ctx, "delete", id, deleted)
	if !deleted {
		h.writeError(w, http.StatusNotFound, "chat not found")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "chat deleted",
	})
}

// ChatClear discards every chat session.
func (h *Handler) ChatClear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.history.Clear(ctx); err != nil {
		h.writeAppError(w, err)
		return
	}
	h.trackChat(ctx, "clear", "", true)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "all chats cleared",
	})
}

// countResults reads the length of the results array out of a serialized
// search response. Every search response type carries a top-level
// "results" field, so the cached path can report counts without decoding
// the full payload.
func countResults(payload []byte) int {
	var envelope struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return 0
	}
	return len(envelope.Results)
}

func (h *Handler) trackChat(ctx context.Context, op, id string, found bool) {
	if h.metrics != nil {
		h.metrics.ChatOpsTotal.WithLabelValues(op).Inc()
		h.metrics.ChatTreeSize.Set(float64(h.history.Len()))
	}
	if h.collector != nil {
		h.collector.Track(analytics.ChatEvent{
			Type:      analytics.EventChatOp,
			Op:        op,
			ChatID:    id,
			Found:     found,
			Timestamp: time.Now().UTC(),
			RequestID: logger.RequestID(ctx),
		})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeRaw(w http.ResponseWriter, status int, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	var appErr *apperrors.AppError
	message := "internal error"
	if errors.As(err, &appErr) {
		message = appErr.Message
	} else if status != http.StatusInternalServerError {
		message = err.Error()
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
	}
	h.writeError(w, status, message)
}
