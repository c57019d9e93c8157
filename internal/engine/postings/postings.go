// Package postings implements the per-term postings list: an ordered record
// of which documents contain a term and how often.
package postings

// Entry pairs a document id with the number of term occurrences in it.
// Within a List, document ids are unique.
type Entry struct {
	DocID     int `json:"doc_id"`
	Frequency int `json:"frequency"`
}

// List is an append-ordered postings list. Document ids are assigned
// monotonically during ingestion, so entries stay sorted by id.
type List struct {
	entries []Entry
}

// Record increments the frequency for docID, appending a new entry with
// frequency 1 when the document is not yet present. Ingestion processes one
// document at a time, so the matching entry is almost always the last one;
// the scan runs backwards to exploit that.
func (l *List) Record(docID int) {
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].DocID == docID {
			l.entries[i].Frequency++
			return
		}
	}
	l.entries = append(l.entries, Entry{DocID: docID, Frequency: 1})
}

// Frequency returns the term frequency for docID and whether the document
// is present at all.
func (l *List) Frequency(docID int) (int, bool) {
	for i := range l.entries {
		if l.entries[i].DocID == docID {
			return l.entries[i].Frequency, true
		}
	}
	return 0, false
}

// TotalOccurrences is the sum of all frequencies across documents.
func (l *List) TotalOccurrences() int {
	total := 0
	for i := range l.entries {
		total += l.entries[i].Frequency
	}
	return total
}

// DocCount is the number of distinct documents containing the term.
func (l *List) DocCount() int {
	return len(l.entries)
}

// Entries exposes the underlying entries in document-id order. Callers must
// not mutate the returned slice.
func (l *List) Entries() []Entry {
	return l.entries
}
