package engine

// Document is an ingested plaintext document. Ids are assigned sequentially
// from 0, never reused, and immutable once assigned. WordCount is the raw
// whitespace word count, before normalization.
type Document struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Content   string `json:"content"`
	WordCount int    `json:"word_count"`
}

// IndexResult reports what a single ingestion recorded.
type IndexResult struct {
	DocID        int `json:"doc_id"`
	WordsIndexed int `json:"words_indexed"`
	UniqueWords  int `json:"unique_words"`
}

// KeywordMatch is one document hit for an exact keyword search.
type KeywordMatch struct {
	DocID      int    `json:"doc_id"`
	DocName    string `json:"doc_name"`
	Frequency  int    `json:"frequency"`
	TotalWords int    `json:"total_words"`
}

// KeywordResult is the outcome of an exact keyword search.
type KeywordResult struct {
	Query            string         `json:"query"`
	Results          []KeywordMatch `json:"results"`
	TotalOccurrences int            `json:"total_occurrences"`
}

// PrefixMatch is one collected term for a prefix search.
type PrefixMatch struct {
	Word      string `json:"word"`
	Frequency int    `json:"frequency"`
	DocCount  int    `json:"doc_count"`
}

// PrefixResult is the outcome of a prefix search, sorted by frequency
// descending with lexicographic tie-break.
type PrefixResult struct {
	Query   string        `json:"query"`
	Results []PrefixMatch `json:"results"`
}

// MultiMatch is one document hit for a multi-keyword AND search.
type MultiMatch struct {
	DocID      int    `json:"doc_id"`
	DocName    string `json:"doc_name"`
	Score      int    `json:"score"`
	TotalWords int    `json:"total_words"`
}

// MultiResult is the outcome of a multi-keyword AND search.
type MultiResult struct {
	Query    string       `json:"query"`
	Keywords []string     `json:"keywords"`
	Results  []MultiMatch `json:"results"`
}

// TermFrequency pairs a term with its corpus-wide occurrence count.
type TermFrequency struct {
	Word      string `json:"word"`
	Frequency int    `json:"frequency"`
}

// TopKResult is the outcome of a top-K frequent-words query.
type TopKResult struct {
	TotalUniqueWords int             `json:"total_unique_words"`
	TopWords         []TermFrequency `json:"top_words"`
}

// ReplaceResult is the outcome of a find-and-replace text transform.
type ReplaceResult struct {
	ModifiedText        string `json:"modified_text"`
	OccurrencesReplaced int    `json:"occurrences_replaced"`
}

// Stats summarises the indexed corpus.
type Stats struct {
	TotalDocs    int `json:"total_docs"`
	UniqueWords  int `json:"unique_words"`
	TotalIndexed int `json:"total_indexed"`
}
