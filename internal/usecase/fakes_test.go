package usecase_test

import (
	"context"
	"strings"

	"stock-rag/internal/domain"
)

// fakeEncoder produces small deterministic vectors derived from the
// text, so identical inputs embed identically across calls.
type fakeEncoder struct {
	encodeCalls int
	failWith    error
}

func (f *fakeEncoder) Encode(_ context.Context, texts []string) ([][]float32, error) {
	f.encodeCalls++
	if f.failWith != nil {
		return nil, f.failWith
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = []float32{float32(len(text)), float32(strings.Count(text, " ")), 1}
	}
	return vectors, nil
}

func (f *fakeEncoder) Version() string { return "fake-embedder" }

// fakeIndex keeps points in memory keyed by chunk id, mirroring the
// upsert-by-id semantics of the real store.
type fakeIndex struct {
	points      map[string]domain.ChunkPayload
	searchHits  []domain.SearchHit
	ensuredSize int
	upsertCalls int
	searchErr   error
	upsertErr   error
	deleteErr   error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{points: make(map[string]domain.ChunkPayload)}
}

func (f *fakeIndex) EnsureCollection(_ context.Context, vectorSize int) error {
	f.ensuredSize = vectorSize
	return nil
}

func (f *fakeIndex) UpsertChunks(_ context.Context, _, _ string, payloads []domain.ChunkPayload, vectors [][]float32) error {
	f.upsertCalls++
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for _, p := range payloads {
		f.points[p.ChunkID] = p
	}
	_ = vectors
	return nil
}

func (f *fakeIndex) Search(_ context.Context, _ []float32, topK int, _ domain.SearchFilter) ([]domain.SearchHit, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	hits := f.searchHits
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (f *fakeIndex) DeleteDocument(_ context.Context, documentID string) (int, error) {
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	deleted := 0
	for id, p := range f.points {
		if p.DocumentID == documentID {
			delete(f.points, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeIndex) CollectionName() string { return "stock_documents" }

// fakeLLM replays a canned answer and records the prompts it saw.
type fakeLLM struct {
	response      string
	failWith      error
	generateCalls int
	lastSystem    string
	lastPrompt    string
}

func (f *fakeLLM) Generate(_ context.Context, system, prompt string, _ int) (*domain.LLMResponse, error) {
	f.generateCalls++
	f.lastSystem = system
	f.lastPrompt = prompt
	if f.failWith != nil {
		return nil, f.failWith
	}
	return &domain.LLMResponse{Text: f.response, Done: true}, nil
}
