package di

import (
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"stock-rag/internal/adapter/embedding"
	"stock-rag/internal/adapter/httpapi"
	"stock-rag/internal/adapter/llm"
	"stock-rag/internal/adapter/repository"
	"stock-rag/internal/domain"
	"stock-rag/internal/infra/config"
	"stock-rag/internal/infra/httpclient"
	"stock-rag/internal/usecase"
)

// ApplicationComponents holds all wired dependencies for the service.
type ApplicationComponents struct {
	VectorIndex domain.VectorIndex
	Encoder     domain.VectorEncoder
	Generator   domain.LLMClient

	IngestUsecase  usecase.IngestDocumentUsecase
	AnswerUsecase  usecase.AnswerQuestionUsecase
	ContextUsecase usecase.AnswerWithContextUsecase

	Handler *httpapi.Handler
}

// NewApplicationComponents wires all dependencies from config and the
// database pool.
func NewApplicationComponents(cfg *config.Config, pool *pgxpool.Pool, log *slog.Logger) *ApplicationComponents {
	// Shared HTTP clients with connection pooling
	embedderHTTP := httpclient.NewPooledClient(time.Duration(cfg.EmbedderTimeout) * time.Second)
	llmHTTP := httpclient.NewPooledClient(time.Duration(cfg.LLMTimeout) * time.Second)

	// External clients
	encoder := embedding.NewOllamaEmbedder(cfg.EmbedderURL, cfg.EmbeddingModel, embedderHTTP, cfg.EmbedderRPS)
	generator := llm.NewOllamaGenerator(cfg.LLMURL, cfg.LLMModel, llmHTTP, log)

	// Storage
	index := repository.NewPgVectorIndex(pool, cfg.Collection, cfg.EmbeddingDimension, log)

	// Domain services
	chunker := domain.NewChunker()
	promptBuilder := usecase.NewPromptBuilder()

	// Usecases
	ingestUsecase := usecase.NewIngestDocumentUsecase(chunker, encoder, index, log)

	var answerOpts []usecase.AnswerQuestionOption
	if cfg.CacheSize > 0 {
		answerOpts = append(answerOpts,
			usecase.WithAnswerCache(cfg.CacheSize, time.Duration(cfg.CacheTTLMinutes)*time.Minute))
		log.Info("answer_cache_enabled",
			slog.Int("size", cfg.CacheSize),
			slog.Int("ttl_minutes", cfg.CacheTTLMinutes))
	}
	answerUsecase := usecase.NewAnswerQuestionUsecase(
		encoder, index, generator, promptBuilder, cfg.AnswerMaxTokens, log, answerOpts...)
	contextUsecase := usecase.NewAnswerWithContextUsecase(generator, promptBuilder, cfg.AnswerMaxTokens, log)

	handler := httpapi.NewHandler(ingestUsecase, answerUsecase, contextUsecase, log)

	return &ApplicationComponents{
		VectorIndex:    index,
		Encoder:        encoder,
		Generator:      generator,
		IngestUsecase:  ingestUsecase,
		AnswerUsecase:  answerUsecase,
		ContextUsecase: contextUsecase,
		Handler:        handler,
	}
}
