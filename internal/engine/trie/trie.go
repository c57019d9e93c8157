// Package trie implements the prefix tree over normalized terms. Nodes live
// in an arena addressed by stable int32 indices; child and parent relations
// are index fields, so the structure never holds Go pointers between nodes.
// Terminal nodes own the postings list for their term.
package trie

import (
	"github.com/docsearch-labs/document-search-platform/internal/engine/postings"
)

// rootIdx is the untyped root node, always present at slot 0.
const rootIdx int32 = 0

// TermPostings pairs a complete term with its postings list, as collected
// by a prefix walk. Order is the term's creation rank: 0 for the first
// distinct term ever inserted, 1 for the second, and so on.
type TermPostings struct {
	Term  string
	List  *postings.List
	Order int
}

type node struct {
	children map[byte]int32
	terminal bool
	order    int
	postings *postings.List
}

// Trie is the arena-backed prefix tree. The zero value is not usable;
// construct with New.
type Trie struct {
	nodes []node
	terms int
}

// New returns an empty trie holding only the root node.
func New() *Trie {
	return &Trie{
		nodes: []node{{children: make(map[byte]int32)}},
	}
}

// Insert walks or creates the node path for term and records docID in the
// terminal node's postings list. It returns the terminal node index and
// whether this call created the terminal (the caller registers the term in
// the hash index exactly once, on creation).
func (t *Trie) Insert(term string, docID int) (int32, bool) {
	cur := rootIdx
	for i := 0; i < len(term); i++ {
		c := term[i]
		next, ok := t.nodes[cur].children[c]
		if !ok {
			next = int32(len(t.nodes))
			t.nodes = append(t.nodes, node{children: make(map[byte]int32)})
			t.nodes[cur].children[c] = next
		}
		cur = next
	}
	created := !t.nodes[cur].terminal
	if created {
		t.nodes[cur].terminal = true
		t.nodes[cur].order = t.terms
		t.nodes[cur].postings = &postings.List{}
		t.terms++
	}
	t.nodes[cur].postings.Record(docID)
	return cur, created
}

// Lookup walks the path for term and returns its terminal node index.
// A missing path or a non-terminal end node is a miss, not an error.
func (t *Trie) Lookup(term string) (int32, bool) {
	cur, ok := t.walk(term)
	if !ok || !t.nodes[cur].terminal {
		return 0, false
	}
	return cur, true
}

// PostingsAt returns the postings list owned by the terminal node at idx,
// or nil when the node is not terminal.
func (t *Trie) PostingsAt(idx int32) *postings.List {
	return t.nodes[idx].postings
}

// CollectPrefix gathers every term starting with prefix together with its
// postings list. A missing prefix path yields an empty result. The walk is
// an explicit-stack depth-first traversal, so recursion depth never depends
// on term length. Collection order is unspecified; callers sort.
func (t *Trie) CollectPrefix(prefix string) []TermPostings {
	start, ok := t.walk(prefix)
	if !ok {
		return nil
	}

	type frame struct {
		idx  int32
		word string
	}
	var collected []TermPostings
	stack := []frame{{idx: start, word: prefix}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[f.idx]
		if n.terminal {
			collected = append(collected, TermPostings{Term: f.word, List: n.postings, Order: n.order})
		}
		for c, child := range n.children {
			stack = append(stack, frame{idx: child, word: f.word + string([]byte{c})})
		}
	}
	return collected
}

// TermCount is the number of terminal nodes, i.e. distinct indexed terms.
func (t *Trie) TermCount() int {
	return t.terms
}

// NodeCount is the total number of arena slots including the root.
func (t *Trie) NodeCount() int {
	return len(t.nodes)
}

func (t *Trie) walk(path string) (int32, bool) {
	cur := rootIdx
	for i := 0; i < len(path); i++ {
		next, ok := t.nodes[cur].children[path[i]]
		if !ok {
			return 0, false
		}
		cur = next
	}
	return cur, true
}
