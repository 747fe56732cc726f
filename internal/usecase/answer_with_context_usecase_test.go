package usecase_test

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"stock-rag/internal/domain"
	"stock-rag/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContextFixture(llm *fakeLLM) usecase.AnswerWithContextUsecase {
	return usecase.NewAnswerWithContextUsecase(llm, usecase.NewPromptBuilder(), 768, slog.New(slog.DiscardHandler))
}

func sampleParts() []domain.ContextPart {
	return []domain.ContextPart{
		{SourceType: "analysis_report", SourceID: "r-1", Title: "Q2 Analysis", URL: "https://example.com/r1", Excerpt: "Revenue grew 12%."},
		{SourceType: "news", SourceID: "n-1", Title: "Dividend News", Excerpt: "Dividend announced."},
		{SourceType: "news", SourceID: "n-2", Title: "Guidance", Excerpt: "Guidance raised."},
	}
}

func TestAnswerWithContextUsecase_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("Rejects empty context parts", func(t *testing.T) {
		uc := newContextFixture(&fakeLLM{response: "x"})
		_, err := uc.Execute(ctx, "question?", nil)
		require.ErrorIs(t, err, usecase.ErrNoContextParts)
	})

	t.Run("Rejects empty question", func(t *testing.T) {
		uc := newContextFixture(&fakeLLM{response: "x"})
		_, err := uc.Execute(ctx, " ", sampleParts())
		require.ErrorIs(t, err, usecase.ErrEmptyQuestion)
	})

	t.Run("Maps citations to the cited parts", func(t *testing.T) {
		llm := &fakeLLM{response: "Revenue grew [1] and guidance was raised [3]."}
		uc := newContextFixture(llm)

		out, err := uc.Execute(ctx, "How is the company doing?", sampleParts())

		require.NoError(t, err)
		assert.Equal(t, []int{0, 2}, out.UsedSources)
		require.Len(t, out.Sources, 2)
		assert.Equal(t, "Q2 Analysis", out.Sources[0].Title)
		assert.Equal(t, "Guidance", out.Sources[1].Title)
	})

	t.Run("Uncited answer is attributed to the first part", func(t *testing.T) {
		llm := &fakeLLM{response: "The company is doing fine."}
		uc := newContextFixture(llm)

		out, err := uc.Execute(ctx, "How is the company doing?", sampleParts())

		require.NoError(t, err)
		assert.Equal(t, []int{0}, out.UsedSources)
		require.Len(t, out.Sources, 1)
		assert.Equal(t, "Q2 Analysis", out.Sources[0].Title)
	})

	t.Run("Numbers parts 1-based in the prompt", func(t *testing.T) {
		llm := &fakeLLM{response: "ok [1]"}
		uc := newContextFixture(llm)

		_, err := uc.Execute(ctx, "q?", sampleParts())

		require.NoError(t, err)
		assert.Contains(t, llm.lastPrompt, "[1] Q2 Analysis")
		assert.Contains(t, llm.lastPrompt, "[2] Dividend News")
		assert.Contains(t, llm.lastPrompt, "[3] Guidance")
		assert.Contains(t, llm.lastPrompt, "URL: https://example.com/r1")
		assert.Contains(t, llm.lastSystem, "[1], [2], [3]")
	})

	t.Run("LLM failure propagates", func(t *testing.T) {
		llm := &fakeLLM{failWith: fmt.Errorf("boom: %w", domain.ErrLLM)}
		uc := newContextFixture(llm)

		_, err := uc.Execute(ctx, "q?", sampleParts())
		require.ErrorIs(t, err, domain.ErrLLM)
	})
}
