// Package benchmark holds micro-benchmarks for the search engine core.
//
// Run with:
//
//	go test -bench=. -benchmem ./test/benchmark/...
package benchmark

import (
	"fmt"
	"strings"
	"testing"

	"github.com/docsearch-labs/document-search-platform/internal/engine"
)

var sampleDocs = map[string]string{
	"short": "the quick brown fox jumps over the lazy dog",
	"medium": `full text search engines normalize every word before indexing it
        the trie maps each normalized term to a postings list recording which
        documents contain the term and how often a separate hash index gives
        exact lookups a direct path to the terminal node while the trie stays
        authoritative for prefix walks and corpus wide aggregation`,
	"long": strings.Repeat(`document ingestion tokenizes content on whitespace
        strips punctuation lowercases the remainder and drops words shorter
        than two letters each surviving token lands in the trie where terminal
        nodes own postings lists keyword search resolves a single term prefix
        search collects a subtree multi keyword search intersects postings
        lists and the top k query aggregates frequencies across the corpus `, 10),
}

func seededEngine(b *testing.B, docs int) *engine.Engine {
	b.Helper()
	e := engine.New()
	for i := 0; i < docs; i++ {
		content := sampleDocs["medium"] + fmt.Sprintf(" marker%d", i)
		if _, err := e.IndexDocument(fmt.Sprintf("doc%d.txt", i), content); err != nil {
			b.Fatalf("seeding doc %d: %v", i, err)
		}
	}
	return e
}

func BenchmarkIndexDocument(b *testing.B) {
	for name, content := range sampleDocs {
		b.Run(name, func(b *testing.B) {
			e := engine.New()
			b.ReportAllocs()
			b.SetBytes(int64(len(content)))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := e.IndexDocument(fmt.Sprintf("doc%d.txt", i), content); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkSearchKeyword(b *testing.B) {
	e := seededEngine(b, 100)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		result, err := e.SearchKeyword("postings")
		if err != nil {
			b.Fatal(err)
		}
		_ = result
	}
}

func BenchmarkSearchPrefix(b *testing.B) {
	e := seededEngine(b, 100)
	prefixes := []string{"t", "te", "ter", "term"}
	for _, prefix := range prefixes {
		b.Run(fmt.Sprintf("len_%d", len(prefix)), func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				result, err := e.SearchPrefix(prefix)
				if err != nil {
					b.Fatal(err)
				}
				_ = result
			}
		})
	}
}

func BenchmarkSearchMulti(b *testing.B) {
	e := seededEngine(b, 100)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		result, err := e.SearchMulti("trie postings term")
		if err != nil {
			b.Fatal(err)
		}
		_ = result
	}
}

func BenchmarkTopK(b *testing.B) {
	e := seededEngine(b, 100)
	for _, k := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("k_%d", k), func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				result, err := e.TopK(k)
				if err != nil {
					b.Fatal(err)
				}
				_ = result
			}
		})
	}
}

func BenchmarkSearchKeywordParallel(b *testing.B) {
	e := seededEngine(b, 100)
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			result, err := e.SearchKeyword("document")
			if err != nil {
				b.Fatal(err)
			}
			_ = result
		}
	})
}
