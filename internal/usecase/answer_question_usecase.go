package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"stock-rag/internal/domain"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultTopK bounds the number of retrieved chunks per question.
	DefaultTopK = 6
	// previewLength is the display truncation for source previews.
	previewLength = 350
)

// ErrEmptyQuestion marks a request without a usable question.
var ErrEmptyQuestion = errors.New("question is required")

// AnswerQuestionInput drives one retrieval-augmented answer request.
// DocumentID, Source and Symbol narrow the search when non-empty.
type AnswerQuestionInput struct {
	Question    string
	BaseContext string
	TopK        int
	DocumentID  string
	Source      string
	Symbol      string
}

// AnswerQuestionOutput carries the generated answer plus the retrieved
// sources. Sources expose TextPreview only; the full chunk text used
// for prompting is stripped before the output leaves the usecase.
type AnswerQuestionOutput struct {
	Answer  string
	Sources []domain.RetrievalHit
}

// AnswerQuestionUsecase answers natural-language questions grounded in
// retrieved chunks. A failing index degrades to answering from the
// caller-supplied base context instead of failing the request.
type AnswerQuestionUsecase interface {
	Execute(ctx context.Context, input AnswerQuestionInput) (*AnswerQuestionOutput, error)
}

type answerQuestionUsecase struct {
	encoder       domain.VectorEncoder
	index         domain.VectorIndex
	llmClient     domain.LLMClient
	promptBuilder PromptBuilder
	logger        *slog.Logger
	maxTokens     int
	cache         *expirable.LRU[string, *AnswerQuestionOutput]
}

// AnswerQuestionOption configures optional behavior.
type AnswerQuestionOption func(*answerQuestionUsecase)

// WithAnswerCache enables an expirable LRU over full answer outputs.
func WithAnswerCache(size int, ttl time.Duration) AnswerQuestionOption {
	return func(u *answerQuestionUsecase) {
		if size > 0 {
			u.cache = expirable.NewLRU[string, *AnswerQuestionOutput](size, nil, ttl)
		}
	}
}

// NewAnswerQuestionUsecase wires the retrieval pipeline.
func NewAnswerQuestionUsecase(
	encoder domain.VectorEncoder,
	index domain.VectorIndex,
	llmClient domain.LLMClient,
	promptBuilder PromptBuilder,
	maxTokens int,
	logger *slog.Logger,
	opts ...AnswerQuestionOption,
) AnswerQuestionUsecase {
	u := &answerQuestionUsecase{
		encoder:       encoder,
		index:         index,
		llmClient:     llmClient,
		promptBuilder: promptBuilder,
		logger:        logger,
		maxTokens:     maxTokens,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *answerQuestionUsecase) Execute(ctx context.Context, input AnswerQuestionInput) (*AnswerQuestionOutput, error) {
	if strings.TrimSpace(input.Question) == "" {
		return nil, ErrEmptyQuestion
	}

	topK := input.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	cacheKey := answerCacheKey(input, topK)
	if u.cache != nil {
		if cached, ok := u.cache.Get(cacheKey); ok {
			return cached, nil
		}
	}

	answerID := uuid.NewString()
	hits := u.retrieve(ctx, answerID, input, topK)

	system, prompt := u.promptBuilder.BuildAnswerPrompt(input.Question, input.BaseContext, hits)

	resp, err := u.llmClient.Generate(ctx, system, prompt, u.maxTokens)
	if err != nil {
		return nil, fmt.Errorf("answer %s: %w", answerID, err)
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return nil, fmt.Errorf("answer %s: empty response: %w", answerID, domain.ErrLLM)
	}

	sources := make([]domain.RetrievalHit, len(hits))
	for i, hit := range hits {
		hit.Text = ""
		sources[i] = hit
	}

	output := &AnswerQuestionOutput{
		Answer:  strings.TrimSpace(resp.Text),
		Sources: sources,
	}

	u.logger.Info("question_answered",
		slog.String("answer_id", answerID),
		slog.Int("source_count", len(sources)))

	if u.cache != nil {
		u.cache.Add(cacheKey, output)
	}
	return output, nil
}

// retrieve embeds the question and searches the index. Any failure
// here degrades to an empty hit set: losing retrieval context is
// preferable to a hard outage, since the answer can still be generated
// from the base context.
func (u *answerQuestionUsecase) retrieve(ctx context.Context, answerID string, input AnswerQuestionInput, topK int) []domain.RetrievalHit {
	embeddings, err := u.encoder.Encode(ctx, []string{input.Question})
	if err != nil || len(embeddings) == 0 {
		u.logger.Warn("retrieval_degraded",
			slog.String("answer_id", answerID),
			slog.String("stage", "embed"),
			slog.Any("error", err))
		return nil
	}

	filter := domain.SearchFilter{
		DocumentID: input.DocumentID,
		Source:     input.Source,
		Symbol:     input.Symbol,
	}

	results, err := u.index.Search(ctx, embeddings[0], topK, filter)
	if err != nil {
		u.logger.Warn("retrieval_degraded",
			slog.String("answer_id", answerID),
			slog.String("stage", "search"),
			slog.String("error", err.Error()))
		return nil
	}

	// The index returns results pre-sorted; re-sort defensively.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}

	hits := make([]domain.RetrievalHit, len(results))
	for i, res := range results {
		title := res.Payload.Title
		if title == "" {
			title = defaultTitle
		}
		hits[i] = domain.RetrievalHit{
			ChunkID:     res.Payload.ChunkID,
			DocumentID:  res.Payload.DocumentID,
			Source:      res.Payload.Source,
			SourceURL:   res.Payload.SourceURL,
			Title:       title,
			Section:     res.Payload.Section,
			Symbol:      res.Payload.Symbol,
			Score:       res.Score,
			Text:        res.Payload.Text,
			TextPreview: preview(res.Payload.Text, previewLength),
		}
	}
	return hits
}

func preview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

func answerCacheKey(input AnswerQuestionInput, topK int) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s|%d",
		input.Question, input.BaseContext, input.DocumentID, input.Source, input.Symbol, topK)
	return hex.EncodeToString(h.Sum(nil))
}
