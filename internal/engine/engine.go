// Package engine implements the in-memory full-text search core: a trie
// over normalized terms, a chained hash index accelerating exact lookups,
// and per-term postings lists, composed into ingestion and the five query
// operations.
//
// The engine performs no locking and no I/O. It assumes a single logical
// writer at a time; callers serving concurrent requests must serialize
// mutations (the HTTP layer holds an RWMutex around it).
package engine

import (
	"log/slog"
	"sort"
	"strings"
	"unicode"

	"github.com/docsearch-labs/document-search-platform/internal/engine/hashindex"
	"github.com/docsearch-labs/document-search-platform/internal/engine/normalizer"
	"github.com/docsearch-labs/document-search-platform/internal/engine/postings"
	"github.com/docsearch-labs/document-search-platform/internal/engine/trie"
	apperrors "github.com/docsearch-labs/document-search-platform/pkg/errors"
)

// Engine composes the trie, hash index, and document registry.
type Engine struct {
	docs        []Document
	terms       *trie.Trie
	exact       *hashindex.Index
	totalTokens int
	logger      *slog.Logger
}

// New returns an empty engine.
func New() *Engine {
	return &Engine{
		terms:  trie.New(),
		exact:  hashindex.New(),
		logger: slog.Default().With("component", "search-engine"),
	}
}

// IndexDocument tokenizes content, records every surviving token in the
// trie, and registers newly created terminal nodes in the hash index.
// The assigned document id is sequential and never reused.
func (e *Engine) IndexDocument(name, content string) (*IndexResult, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.Validation("document name is required")
	}
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.Validation("document content is required")
	}

	docID := len(e.docs)
	tokens := normalizer.Tokenize(content)
	unique := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		idx, created := e.terms.Insert(token, docID)
		if created {
			e.exact.Put(token, idx)
		}
		unique[token] = struct{}{}
	}
	e.totalTokens += len(tokens)

	e.docs = append(e.docs, Document{
		ID:        docID,
		Name:      name,
		Content:   content,
		WordCount: len(strings.Fields(content)),
	})

	e.logger.Debug("document indexed",
		"doc_id", docID,
		"name", name,
		"words_indexed", len(tokens),
		"unique_words", len(unique),
	)
	return &IndexResult{
		DocID:        docID,
		WordsIndexed: len(tokens),
		UniqueWords:  len(unique),
	}, nil
}

// SearchKeyword performs an exact single-term search. A query that
// normalizes to nothing yields an empty result; an empty query is a
// validation failure.
func (e *Engine) SearchKeyword(query string) (*KeywordResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.Validation("query is required")
	}
	result := &KeywordResult{Query: query, Results: []KeywordMatch{}}

	term, ok := normalizer.Normalize(query)
	if !ok {
		return result, nil
	}
	list := e.postingsFor(term)
	if list == nil {
		return result, nil
	}
	for _, entry := range list.Entries() {
		doc := e.docs[entry.DocID]
		result.Results = append(result.Results, KeywordMatch{
			DocID:      doc.ID,
			DocName:    doc.Name,
			Frequency:  entry.Frequency,
			TotalWords: doc.WordCount,
		})
		result.TotalOccurrences += entry.Frequency
	}
	return result, nil
}

// SearchPrefix collects every indexed term starting with the folded query.
// Prefix search is defined on any alphabetic string, so no minimum length
// applies here. Results are sorted by frequency descending, then word
// ascending for a deterministic order.
func (e *Engine) SearchPrefix(query string) (*PrefixResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.Validation("query is required")
	}
	prefix := normalizer.Fold(query)

	collected := e.terms.CollectPrefix(prefix)
	result := &PrefixResult{Query: query, Results: make([]PrefixMatch, 0, len(collected))}
	for _, tp := range collected {
		result.Results = append(result.Results, PrefixMatch{
			Word:      tp.Term,
			Frequency: tp.List.TotalOccurrences(),
			DocCount:  tp.List.DocCount(),
		})
	}
	sort.Slice(result.Results, func(i, j int) bool {
		if result.Results[i].Frequency != result.Results[j].Frequency {
			return result.Results[i].Frequency > result.Results[j].Frequency
		}
		return result.Results[i].Word < result.Results[j].Word
	})
	return result, nil
}

// SearchMulti performs a logical-AND search across the normalized keywords
// of the query. A document matches only if every keyword's postings list
// contains it; its score is the summed per-keyword frequency. Results are
// sorted by score descending, then document id ascending.
func (e *Engine) SearchMulti(query string) (*MultiResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.Validation("query is required")
	}
	keywords := normalizer.Tokenize(query)
	result := &MultiResult{Query: query, Keywords: keywords, Results: []MultiMatch{}}
	if len(keywords) == 0 {
		result.Keywords = []string{}
		return result, nil
	}

	lists := make([]*postings.List, len(keywords))
	for i, kw := range keywords {
		lists[i] = e.postingsFor(kw)
		if lists[i] == nil {
			return result, nil
		}
	}

	for _, candidate := range lists[0].Entries() {
		score := candidate.Frequency
		matchesAll := true
		for _, list := range lists[1:] {
			freq, ok := list.Frequency(candidate.DocID)
			if !ok {
				matchesAll = false
				break
			}
			score += freq
		}
		if !matchesAll {
			continue
		}
		doc := e.docs[candidate.DocID]
		result.Results = append(result.Results, MultiMatch{
			DocID:      doc.ID,
			DocName:    doc.Name,
			Score:      score,
			TotalWords: doc.WordCount,
		})
	}
	sort.Slice(result.Results, func(i, j int) bool {
		if result.Results[i].Score != result.Results[j].Score {
			return result.Results[i].Score > result.Results[j].Score
		}
		return result.Results[i].DocID < result.Results[j].DocID
	})
	return result, nil
}

// TopK aggregates corpus-wide occurrence counts per term and returns the k
// most frequent. Ties break toward the term that first appeared earlier in
// ingestion order. k = 0 yields an empty list; k beyond the vocabulary
// returns every term.
func (e *Engine) TopK(k int) (*TopKResult, error) {
	if k < 0 {
		return nil, apperrors.Validation("k must not be negative")
	}
	result := &TopKResult{
		TotalUniqueWords: e.terms.TermCount(),
		TopWords:         []TermFrequency{},
	}
	if k == 0 {
		return result, nil
	}

	type rankedTerm struct {
		word  string
		freq  int
		order int
	}
	collected := e.terms.CollectPrefix("")
	ranked := make([]rankedTerm, 0, len(collected))
	for _, tp := range collected {
		ranked = append(ranked, rankedTerm{
			word:  tp.Term,
			freq:  tp.List.TotalOccurrences(),
			order: tp.Order,
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].freq != ranked[j].freq {
			return ranked[i].freq > ranked[j].freq
		}
		return ranked[i].order < ranked[j].order
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	for _, r := range ranked {
		result.TopWords = append(result.TopWords, TermFrequency{Word: r.word, Frequency: r.freq})
	}
	return result, nil
}

// Replace substitutes every whitespace-delimited word whose normalized form
// equals the normalized find-term with the replacement, verbatim. It is a
// pure text transform: the index and stored documents are never touched.
// Whitespace runs are preserved exactly.
func (e *Engine) Replace(content, findWord, replaceWord string) (*ReplaceResult, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.Validation("content is required")
	}
	if strings.TrimSpace(findWord) == "" {
		return nil, apperrors.Validation("find word is required")
	}

	target, ok := normalizer.Normalize(findWord)
	if !ok {
		// Nothing indexable can match a find-term that normalizes away.
		return &ReplaceResult{ModifiedText: content}, nil
	}

	var out strings.Builder
	out.Grow(len(content))
	var word strings.Builder
	replaced := 0
	flush := func() {
		if word.Len() == 0 {
			return
		}
		w := word.String()
		if normalized, ok := normalizer.Normalize(w); ok && normalized == target {
			out.WriteString(replaceWord)
			replaced++
		} else {
			out.WriteString(w)
		}
		word.Reset()
	}
	for _, r := range content {
		if unicode.IsSpace(r) {
			flush()
			out.WriteRune(r)
		} else {
			word.WriteRune(r)
		}
	}
	flush()

	return &ReplaceResult{
		ModifiedText:        out.String(),
		OccurrencesReplaced: replaced,
	}, nil
}

// Documents returns the corpus in id order. The slice is a copy; the
// documents themselves are immutable.
func (e *Engine) Documents() []Document {
	docs := make([]Document, len(e.docs))
	copy(docs, e.docs)
	return docs
}

// Document returns the document with the given id.
func (e *Engine) Document(id int) (Document, bool) {
	if id < 0 || id >= len(e.docs) {
		return Document{}, false
	}
	return e.docs[id], true
}

// Stats summarises the corpus: document count, distinct terms, and total
// tokens recorded.
func (e *Engine) Stats() Stats {
	return Stats{
		TotalDocs:    len(e.docs),
		UniqueWords:  e.terms.TermCount(),
		TotalIndexed: e.totalTokens,
	}
}

// DocCount is the number of ingested documents.
func (e *Engine) DocCount() int {
	return len(e.docs)
}

// UniqueTerms is the number of distinct indexed terms.
func (e *Engine) UniqueTerms() int {
	return e.terms.TermCount()
}

// postingsFor resolves a term through the hash index first and falls back
// to a trie walk. The trie is authoritative; the hash index is purely an
// acceleration path.
func (e *Engine) postingsFor(term string) *postings.List {
	if idx, ok := e.exact.Get(term); ok {
		return e.terms.PostingsAt(idx)
	}
	if idx, ok := e.terms.Lookup(term); ok {
		return e.terms.PostingsAt(idx)
	}
	return nil
}
