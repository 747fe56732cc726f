package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"stock-rag/internal/domain"
)

// ErrNoContextParts marks an answer-with-context request without any
// context to ground the answer in.
var ErrNoContextParts = errors.New("context parts cannot be empty")

// AnswerWithContextOutput pairs the answer with the 0-based indices of
// the context parts it cited, plus the cited parts themselves.
type AnswerWithContextOutput struct {
	Answer      string
	UsedSources []int
	Sources     []domain.ContextPart
}

// AnswerWithContextUsecase answers a question from caller-supplied
// context parts only; nothing is retrieved from the index. Citation
// extraction never fails: an uncited answer is attributed to the first
// part as a deliberate precision/recall tradeoff.
type AnswerWithContextUsecase interface {
	Execute(ctx context.Context, question string, parts []domain.ContextPart) (*AnswerWithContextOutput, error)
}

type answerWithContextUsecase struct {
	llmClient     domain.LLMClient
	promptBuilder PromptBuilder
	logger        *slog.Logger
	maxTokens     int
}

// NewAnswerWithContextUsecase wires the context-grounded answer flow.
func NewAnswerWithContextUsecase(
	llmClient domain.LLMClient,
	promptBuilder PromptBuilder,
	maxTokens int,
	logger *slog.Logger,
) AnswerWithContextUsecase {
	return &answerWithContextUsecase{
		llmClient:     llmClient,
		promptBuilder: promptBuilder,
		logger:        logger,
		maxTokens:     maxTokens,
	}
}

func (u *answerWithContextUsecase) Execute(ctx context.Context, question string, parts []domain.ContextPart) (*AnswerWithContextOutput, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}
	if len(parts) == 0 {
		return nil, ErrNoContextParts
	}

	system, prompt := u.promptBuilder.BuildContextPrompt(question, parts)

	resp, err := u.llmClient.Generate(ctx, system, prompt, u.maxTokens)
	if err != nil {
		return nil, fmt.Errorf("answer with context: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return nil, fmt.Errorf("answer with context: empty response: %w", domain.ErrLLM)
	}

	answer := strings.TrimSpace(resp.Text)
	used := ExtractCitations(answer, len(parts))

	sources := make([]domain.ContextPart, 0, len(used))
	for _, idx := range used {
		sources = append(sources, parts[idx])
	}

	u.logger.Info("context_question_answered",
		slog.Int("context_count", len(parts)),
		slog.Int("citation_count", len(used)))

	return &AnswerWithContextOutput{
		Answer:      answer,
		UsedSources: used,
		Sources:     sources,
	}, nil
}
