package domain

// ChunkPayload is the non-vector metadata persisted alongside each
// embedded chunk. ChunkID is deterministic ("{documentID}:{index}") so
// re-ingesting the same document overwrites instead of duplicating.
type ChunkPayload struct {
	ChunkID    string
	DocumentID string
	Source     string
	SourceURL  string
	Title      string
	Section    string
	Symbol     string
	Text       string
}

// IngestResult reports the outcome of a single document ingest.
type IngestResult struct {
	ChunksUpserted int
	DocumentID     string
	Collection     string
	Status         string
}

// RetrievalHit is a search result normalized for callers: TextPreview
// is the truncated display form, Text is the full chunk body used for
// prompt assembly and stripped before responses leave the service.
type RetrievalHit struct {
	ChunkID     string
	DocumentID  string
	Source      string
	SourceURL   string
	Title       string
	Section     string
	Symbol      string
	Score       float32
	Text        string
	TextPreview string
}

// ContextPart is a caller-supplied context item for the
// answer-with-context flow. List order defines citation numbering
// (1-based in the prompt, 0-based in UsedSources).
type ContextPart struct {
	SourceType string
	SourceID   string
	Title      string
	URL        string
	Excerpt    string
}
