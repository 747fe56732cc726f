package domain

import "errors"

// Sentinel errors for the capability boundaries. Adapters wrap the
// underlying cause with fmt.Errorf("...: %w", Err...) so callers can
// branch with errors.Is while operators still see the root cause.
var (
	// ErrInvalidChunkParams is returned when a caller requests
	// chunk_overlap >= chunk_size. Surfaced as a client error.
	ErrInvalidChunkParams = errors.New("chunk overlap must be smaller than chunk size")

	// ErrEmbedding indicates the embedding capability failed.
	ErrEmbedding = errors.New("embedding failed")

	// ErrIndex indicates the vector index is unreachable or an
	// operation on it failed. A reachable index with an empty or
	// missing collection is a normal empty result, not this error.
	ErrIndex = errors.New("vector index operation failed")

	// ErrLLM indicates text generation failed.
	ErrLLM = errors.New("llm generation failed")

	// ErrLLMQuotaExceeded is a distinguishable subtype of ErrLLM for
	// rate-limit/quota failures, so HTTP boundaries can degrade
	// differently (503 vs 502).
	ErrLLMQuotaExceeded = errors.New("llm quota exceeded")
)
