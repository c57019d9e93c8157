// Package hashindex maps a normalized term directly to its trie terminal
// node, skipping the root-to-leaf walk for exact lookups. The table is a
// fixed array of buckets with collision chains; it never resizes, so chains
// lengthen gracefully as the vocabulary grows. The trie stays authoritative.
package hashindex

// NumBuckets is fixed for the lifetime of the index.
const NumBuckets = 1000

type entry struct {
	term string
	node int32
	next *entry
}

// Index is the chained hash table from term to trie node index.
type Index struct {
	buckets [NumBuckets]*entry
	size    int
}

// New returns an empty index.
func New() *Index {
	return &Index{}
}

// Put registers term at the given trie node, updating the existing chain
// entry when the term is already present.
func (ix *Index) Put(term string, node int32) {
	b := hashTerm(term)
	for e := ix.buckets[b]; e != nil; e = e.next {
		if e.term == term {
			e.node = node
			return
		}
	}
	ix.buckets[b] = &entry{term: term, node: node, next: ix.buckets[b]}
	ix.size++
}

// Get returns the trie node index registered for term.
func (ix *Index) Get(term string) (int32, bool) {
	for e := ix.buckets[hashTerm(term)]; e != nil; e = e.next {
		if e.term == term {
			return e.node, true
		}
	}
	return 0, false
}

// Len is the number of distinct terms in the index.
func (ix *Index) Len() int {
	return ix.size
}

// hashTerm sums the byte codes of the term modulo the bucket count.
func hashTerm(term string) int {
	sum := 0
	for i := 0; i < len(term); i++ {
		sum += int(term[i])
	}
	return sum % NumBuckets
}
