package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/docsearch-labs/document-search-platform/internal/engine"
	"github.com/docsearch-labs/document-search-platform/internal/history"
	"github.com/docsearch-labs/document-search-platform/internal/history/store"
	"github.com/docsearch-labs/document-search-platform/pkg/config"
)

// newTestServer wires the handler with a real engine and a file-backed chat
// history; Redis, Kafka, and Prometheus stay disabled.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	snapshotPath := filepath.Join(t.TempDir(), "chats.json")
	hist := history.NewService(store.NewFileStore(snapshotPath))
	if err := hist.Load(t.Context()); err != nil {
		t.Fatalf("loading empty history: %v", err)
	}
	limits := config.EngineConfig{MaxNameLength: 64, MaxContentBytes: 4096}
	h := New(engine.New(), hist, nil, nil, nil, limits)
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func ingest(t *testing.T, srv *httptest.Server, name, content string) {
	t.Helper()
	resp := postJSON(t, srv.URL+"/api/v1/documents", map[string]string{
		"name":    name,
		"content": content,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("ingest %s: status %d", name, resp.StatusCode)
	}
}

func TestIngestDocument(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/documents", map[string]string{
		"name":    "a.txt",
		"content": "the cat sat on the mat",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	var body struct {
		Success      bool   `json:"success"`
		DocID        int    `json:"doc_id"`
		Name         string `json:"name"`
		WordsIndexed int    `json:"words_indexed"`
		UniqueWords  int    `json:"unique_words"`
	}
	decodeBody(t, resp, &body)
	if !body.Success || body.DocID != 0 || body.WordsIndexed != 6 || body.UniqueWords != 5 {
		t.Errorf("body = %+v", body)
	}
}

func TestIngestDocumentRejectsBadInput(t *testing.T) {
	srv := newTestServer(t)

	for _, tc := range []map[string]string{
		{"name": "a.txt", "content": ""},
		{"name": "", "content": "some words"},
	} {
		resp := postJSON(t, srv.URL+"/api/v1/documents", tc)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("ingest %v: status = %d, want 400", tc, resp.StatusCode)
		}
	}
}

func TestIngestDocumentEnforcesLimits(t *testing.T) {
	srv := newTestServer(t)

	longName := make([]byte, 65)
	for i := range longName {
		longName[i] = 'x'
	}
	resp := postJSON(t, srv.URL+"/api/v1/documents", map[string]string{
		"name":    string(longName),
		"content": "words",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("oversized name: status = %d, want 400", resp.StatusCode)
	}

	longContent := make([]byte, 4097)
	for i := range longContent {
		longContent[i] = 'y'
	}
	resp = postJSON(t, srv.URL+"/api/v1/documents", map[string]string{
		"name":    "a.txt",
		"content": string(longContent),
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("oversized content: status = %d, want 400", resp.StatusCode)
	}
}

func TestListDocuments(t *testing.T) {
	srv := newTestServer(t)
	ingest(t, srv, "a.txt", "the cat sat on the mat")
	ingest(t, srv, "b.txt", "a cat ran fast")

	resp, err := http.Get(srv.URL + "/api/v1/documents")
	if err != nil {
		t.Fatal(err)
	}
	var body struct {
		Count     int               `json:"count"`
		Documents []engine.Document `json:"documents"`
	}
	decodeBody(t, resp, &body)
	if body.Count != 2 || len(body.Documents) != 2 {
		t.Fatalf("body = %+v, want 2 documents", body)
	}
	if body.Documents[0].Name != "a.txt" || body.Documents[1].Name != "b.txt" {
		t.Errorf("documents out of order: %+v", body.Documents)
	}
}

func TestSearchKeywordEndpoint(t *testing.T) {
	srv := newTestServer(t)
	ingest(t, srv, "a.txt", "the cat sat on the mat")
	ingest(t, srv, "b.txt", "a cat ran fast")

	resp, err := http.Get(srv.URL + "/api/v1/search?q=cat&type=keyword")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Type             string                `json:"type"`
		Query            string                `json:"query"`
		Results          []engine.KeywordMatch `json:"results"`
		TotalOccurrences int                   `json:"total_occurrences"`
	}
	decodeBody(t, resp, &body)
	if body.Type != "keyword" || len(body.Results) != 2 || body.TotalOccurrences != 2 {
		t.Errorf("body = %+v", body)
	}
}

func TestSearchDefaultsToKeyword(t *testing.T) {
	srv := newTestServer(t)
	ingest(t, srv, "a.txt", "the cat sat")

	resp, err := http.Get(srv.URL + "/api/v1/search?q=cat")
	if err != nil {
		t.Fatal(err)
	}
	var body struct {
		Type string `json:"type"`
	}
	decodeBody(t, resp, &body)
	if body.Type != "keyword" {
		t.Errorf("type = %q, want keyword", body.Type)
	}
}

func TestSearchPrefixEndpoint(t *testing.T) {
	srv := newTestServer(t)
	ingest(t, srv, "a.txt", "the cat sat on the mat")
	ingest(t, srv, "b.txt", "a cat ran fast")

	resp, err := http.Get(srv.URL + "/api/v1/search?q=ca&type=prefix")
	if err != nil {
		t.Fatal(err)
	}
	var body struct {
		Type    string               `json:"type"`
		Results []engine.PrefixMatch `json:"results"`
	}
	decodeBody(t, resp, &body)
	if len(body.Results) != 1 {
		t.Fatalf("results = %+v, want one", body.Results)
	}
	if m := body.Results[0]; m.Word != "cat" || m.Frequency != 2 || m.DocCount != 2 {
		t.Errorf("match = %+v, want {cat 2 2}", m)
	}
}

func TestSearchMultiEndpoint(t *testing.T) {
	srv := newTestServer(t)
	ingest(t, srv, "a.txt", "the cat sat on the mat")
	ingest(t, srv, "b.txt", "a cat ran fast")

	resp, err := http.Get(srv.URL + "/api/v1/search?q=cat+the&type=multi")
	if err != nil {
		t.Fatal(err)
	}
	var body struct {
		Type    string              `json:"type"`
		Results []engine.MultiMatch `json:"results"`
	}
	decodeBody(t, resp, &body)
	if len(body.Results) != 1 || body.Results[0].DocName != "a.txt" {
		t.Errorf("results = %+v, want only a.txt", body.Results)
	}
}

func TestSearchRejectsBadRequests(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{
		"/api/v1/search",
		"/api/v1/search?q=cat&type=fuzzy",
	} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("GET %s: status = %d, want 400", path, resp.StatusCode)
		}
	}
}

func TestTopKEndpoint(t *testing.T) {
	srv := newTestServer(t)
	ingest(t, srv, "a.txt", "the cat sat on the mat")

	resp, err := http.Get(srv.URL + "/api/v1/topk?k=1")
	if err != nil {
		t.Fatal(err)
	}
	var body engine.TopKResult
	decodeBody(t, resp, &body)
	if len(body.TopWords) != 1 || body.TopWords[0].Word != "the" || body.TopWords[0].Frequency != 2 {
		t.Errorf("body = %+v, want top word the x2", body)
	}

	resp, err = http.Get(srv.URL + "/api/v1/topk?k=-1")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("k=-1: status = %d, want 400", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/v1/topk?k=abc")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("k=abc: status = %d, want 400", resp.StatusCode)
	}
}

func TestReplaceEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/replace", map[string]string{
		"content": "the cat sat",
		"find":    "cat",
		"replace": "dog",
	})
	var body engine.ReplaceResult
	decodeBody(t, resp, &body)
	if body.ModifiedText != "the dog sat" || body.OccurrencesReplaced != 1 {
		t.Errorf("body = %+v", body)
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	ingest(t, srv, "a.txt", "the cat sat on the mat")
	ingest(t, srv, "b.txt", "a cat ran fast")

	resp, err := http.Get(srv.URL + "/api/v1/stats")
	if err != nil {
		t.Fatal(err)
	}
	var body engine.Stats
	decodeBody(t, resp, &body)
	if body.TotalDocs != 2 || body.UniqueWords != 7 || body.TotalIndexed != 9 {
		t.Errorf("body = %+v", body)
	}
}

func TestChatLifecycle(t *testing.T) {
	srv := newTestServer(t)

	// Add two chats.
	for i, id := range []string{"c1", "c2"} {
		resp := postJSON(t, srv.URL+"/api/v1/chats", map[string]any{
			"id":        id,
			"title":     fmt.Sprintf("session %s", id),
			"timestamp": 100 * (i + 1),
		})
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("add %s: status %d", id, resp.StatusCode)
		}
	}

	// List newest first.
	resp, err := http.Get(srv.URL + "/api/v1/chats")
	if err != nil {
		t.Fatal(err)
	}
	var listBody struct {
		Count int            `json:"count"`
		Chats []history.Chat `json:"chats"`
	}
	decodeBody(t, resp, &listBody)
	if listBody.Count != 2 || listBody.Chats[0].ID != "c2" {
		t.Errorf("list = %+v, want c2 first", listBody)
	}

	// Access hit.
	resp = postJSON(t, srv.URL+"/api/v1/chats/c1/access", nil)
	var accessBody struct {
		Found bool         `json:"found"`
		Chat  history.Chat `json:"chat"`
	}
	decodeBody(t, resp, &accessBody)
	if !accessBody.Found || accessBody.Chat.ID != "c1" {
		t.Errorf("access body = %+v", accessBody)
	}

	// Access miss is a 200 with found=false.
	resp = postJSON(t, srv.URL+"/api/v1/chats/nope/access", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("access miss: status = %d, want 200", resp.StatusCode)
	}
	accessBody = struct {
		Found bool         `json:"found"`
		Chat  history.Chat `json:"chat"`
	}{}
	decodeBody(t, resp, &accessBody)
	if accessBody.Found {
		t.Error("access miss reported found=true")
	}

	// Delete hit then miss.
	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/chats/c1", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("delete c1: status = %d, want 200", resp.StatusCode)
	}
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second delete c1: status = %d, want 404", resp.StatusCode)
	}

	// Clear.
	req, _ = http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/chats", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("clear: status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/v1/chats")
	if err != nil {
		t.Fatal(err)
	}
	listBody = struct {
		Count int            `json:"count"`
		Chats []history.Chat `json:"chats"`
	}{}
	decodeBody(t, resp, &listBody)
	if listBody.Count != 0 {
		t.Errorf("count after clear = %d, want 0", listBody.Count)
	}
}

func TestChatAddValidation(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/chats", map[string]any{"id": "", "title": "x"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty id: status = %d, want 400", resp.StatusCode)
	}
}

func TestCacheEndpointsWhenDisabled(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/cache/stats")
	if err != nil {
		t.Fatal(err)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["status"] != "disabled" {
		t.Errorf("cache stats = %v, want disabled", body)
	}

	resp = postJSON(t, srv.URL+"/api/v1/cache/invalidate", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("invalidate: status = %d, want 503", resp.StatusCode)
	}
}

func TestCountResultsFromCachedPayload(t *testing.T) {
	keyword := &keywordResponse{
		Type: "keyword",
		KeywordResult: &engine.KeywordResult{
			Query: "cat",
			Results: []engine.KeywordMatch{
				{DocID: 0, DocName: "a.txt", Frequency: 1},
				{DocID: 1, DocName: "b.txt", Frequency: 1},
			},
		},
	}
	prefix := &prefixResponse{
		Type: "prefix",
		PrefixResult: &engine.PrefixResult{
			Query:   "ca",
			Results: []engine.PrefixMatch{{Word: "cat", Frequency: 2}},
		},
	}
	multi := &multiResponse{
		Type:        "multi",
		MultiResult: &engine.MultiResult{Query: "cat the", Results: []engine.MultiMatch{}},
	}

	tests := []struct {
		name  string
		value any
		want  int
	}{
		{"keyword", keyword, 2},
		{"prefix", prefix, 1},
		{"multi empty", multi, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := json.Marshal(tt.value)
			if err != nil {
				t.Fatal(err)
			}
			if got := countResults(payload); got != tt.want {
				t.Errorf("countResults(%s) = %d, want %d", payload, got, tt.want)
			}
		})
	}

	if got := countResults([]byte("not json")); got != 0 {
		t.Errorf("countResults(garbage) = %d, want 0", got)
	}
}
