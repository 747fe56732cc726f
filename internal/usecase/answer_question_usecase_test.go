package usecase_test

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"stock-rag/internal/domain"
	"stock-rag/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAnswerFixture(opts ...usecase.AnswerQuestionOption) (*fakeEncoder, *fakeIndex, *fakeLLM, usecase.AnswerQuestionUsecase) {
	encoder := &fakeEncoder{}
	index := newFakeIndex()
	llm := &fakeLLM{response: "Grounded answer [1]."}
	uc := usecase.NewAnswerQuestionUsecase(
		encoder, index, llm, usecase.NewPromptBuilder(), 768, slog.New(slog.DiscardHandler), opts...)
	return encoder, index, llm, uc
}

func hit(chunkID string, score float32, text string) domain.SearchHit {
	return domain.SearchHit{
		Payload: domain.ChunkPayload{
			ChunkID:    chunkID,
			DocumentID: strings.SplitN(chunkID, ":", 2)[0],
			Source:     "analysis_report",
			Title:      "Report",
			Text:       text,
		},
		Score: score,
	}
}

func TestAnswerQuestionUsecase_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("Rejects an empty question", func(t *testing.T) {
		_, _, _, uc := newAnswerFixture()
		_, err := uc.Execute(ctx, usecase.AnswerQuestionInput{Question: "  "})
		require.ErrorIs(t, err, usecase.ErrEmptyQuestion)
	})

	t.Run("Returns answer with preview-only sources", func(t *testing.T) {
		_, index, _, uc := newAnswerFixture()
		long := strings.Repeat("a", 500)
		index.searchHits = []domain.SearchHit{hit("doc-1:0", 0.9, long)}

		out, err := uc.Execute(ctx, usecase.AnswerQuestionInput{Question: "How did revenue develop?"})

		require.NoError(t, err)
		assert.NotEmpty(t, out.Answer)
		require.Len(t, out.Sources, 1)
		assert.Empty(t, out.Sources[0].Text)
		assert.Len(t, out.Sources[0].TextPreview, 350)
	})

	t.Run("Re-sorts results by descending score and truncates to top-k", func(t *testing.T) {
		_, index, _, uc := newAnswerFixture()
		index.searchHits = []domain.SearchHit{
			hit("doc-1:0", 0.2, "low"),
			hit("doc-1:1", 0.9, "high"),
			hit("doc-1:2", 0.5, "mid"),
		}

		out, err := uc.Execute(ctx, usecase.AnswerQuestionInput{Question: "q", TopK: 2})

		require.NoError(t, err)
		require.Len(t, out.Sources, 2)
		assert.Equal(t, "doc-1:1", out.Sources[0].ChunkID)
		assert.Equal(t, "doc-1:2", out.Sources[1].ChunkID)
	})

	t.Run("Degrades to base context when the index fails", func(t *testing.T) {
		_, index, llm, uc := newAnswerFixture()
		index.searchErr = fmt.Errorf("dial tcp: %w", domain.ErrIndex)

		out, err := uc.Execute(ctx, usecase.AnswerQuestionInput{
			Question:    "What happened?",
			BaseContext: "VNM announced a dividend.",
		})

		require.NoError(t, err)
		assert.NotEmpty(t, out.Answer)
		assert.Empty(t, out.Sources)
		assert.Contains(t, llm.lastPrompt, "VNM announced a dividend.")
	})

	t.Run("Degrades when question embedding fails", func(t *testing.T) {
		encoder, _, _, uc := newAnswerFixture()
		encoder.failWith = fmt.Errorf("model offline: %w", domain.ErrEmbedding)

		out, err := uc.Execute(ctx, usecase.AnswerQuestionInput{
			Question:    "What happened?",
			BaseContext: "Some context.",
		})

		require.NoError(t, err)
		assert.Empty(t, out.Sources)
	})

	t.Run("Renders retrieved chunks as numbered context", func(t *testing.T) {
		_, index, llm, uc := newAnswerFixture()
		index.searchHits = []domain.SearchHit{
			hit("doc-1:0", 0.9, "chunk one text"),
			hit("doc-1:1", 0.8, "chunk two text"),
		}

		_, err := uc.Execute(ctx, usecase.AnswerQuestionInput{Question: "q"})

		require.NoError(t, err)
		assert.Contains(t, llm.lastPrompt, "[1] Report")
		assert.Contains(t, llm.lastPrompt, "[2] Report")
		assert.Contains(t, llm.lastPrompt, "chunk one text")
		assert.Contains(t, llm.lastPrompt, "(null)")
	})

	t.Run("LLM failure propagates", func(t *testing.T) {
		_, _, llm, uc := newAnswerFixture()
		llm.failWith = fmt.Errorf("upstream 500: %w", domain.ErrLLM)

		_, err := uc.Execute(ctx, usecase.AnswerQuestionInput{Question: "q"})
		require.ErrorIs(t, err, domain.ErrLLM)
	})

	t.Run("Quota failure stays distinguishable", func(t *testing.T) {
		_, _, llm, uc := newAnswerFixture()
		llm.failWith = fmt.Errorf("upstream 429: %w", domain.ErrLLMQuotaExceeded)

		_, err := uc.Execute(ctx, usecase.AnswerQuestionInput{Question: "q"})
		require.ErrorIs(t, err, domain.ErrLLMQuotaExceeded)
	})

	t.Run("Cache serves repeated questions without regenerating", func(t *testing.T) {
		_, index, llm, uc := newAnswerFixture(usecase.WithAnswerCache(16, time.Minute))
		index.searchHits = []domain.SearchHit{hit("doc-1:0", 0.9, "text")}

		input := usecase.AnswerQuestionInput{Question: "repeated?", Symbol: "VNM"}
		_, err := uc.Execute(ctx, input)
		require.NoError(t, err)
		_, err = uc.Execute(ctx, input)
		require.NoError(t, err)

		assert.Equal(t, 1, llm.generateCalls)
	})

	t.Run("Missing title falls back to Unknown", func(t *testing.T) {
		_, index, _, uc := newAnswerFixture()
		h := hit("doc-1:0", 0.9, "text")
		h.Payload.Title = ""
		index.searchHits = []domain.SearchHit{h}

		out, err := uc.Execute(ctx, usecase.AnswerQuestionInput{Question: "q"})
		require.NoError(t, err)
		assert.Equal(t, "Unknown", out.Sources[0].Title)
	})
}
