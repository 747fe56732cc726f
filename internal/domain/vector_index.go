package domain

import "context"

// SearchFilter narrows a similarity search. Empty fields are ignored;
// non-empty fields must all match (AND semantics).
type SearchFilter struct {
	DocumentID string
	Source     string
	Symbol     string
}

// SearchHit is a raw nearest-neighbor match from the index.
type SearchHit struct {
	Payload ChunkPayload
	Score   float32
}

// VectorIndex stores (id, vector, payload) triples in a named
// collection and answers filtered nearest-neighbor queries.
//
// The collection is provisioned lazily: EnsureCollection is idempotent
// and keyed off the embedding dimensionality of the first write.
// Search against a collection that does not exist yet returns an empty
// result, not an error.
type VectorIndex interface {
	// EnsureCollection creates the collection if absent, with the
	// given vector size and cosine distance.
	EnsureCollection(ctx context.Context, vectorSize int) error

	// UpsertChunks writes payloads and vectors 1:1 by position,
	// keyed by payload.ChunkID (insert-or-replace).
	UpsertChunks(ctx context.Context, documentID, source string, payloads []ChunkPayload, vectors [][]float32) error

	// Search returns the topK most similar chunks under the filter,
	// highest score first.
	Search(ctx context.Context, queryVector []float32, topK int, filter SearchFilter) ([]SearchHit, error)

	// DeleteDocument removes every chunk of the document and returns
	// the number removed. Unknown documents delete zero chunks
	// without error.
	DeleteDocument(ctx context.Context, documentID string) (int, error)

	// CollectionName reports the logical collection this index
	// writes to.
	CollectionName() string
}
