package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"stock-rag/internal/domain"
	"stock-rag/internal/usecase"

	"github.com/labstack/echo/v4"
)

// Handler exposes the ingestion, deletion and answer pipelines over
// HTTP. Transport-level shapes live here; the usecases stay wire-free.
type Handler struct {
	ingestUsecase  usecase.IngestDocumentUsecase
	answerUsecase  usecase.AnswerQuestionUsecase
	contextUsecase usecase.AnswerWithContextUsecase
	logger         *slog.Logger
}

func NewHandler(
	ingestUsecase usecase.IngestDocumentUsecase,
	answerUsecase usecase.AnswerQuestionUsecase,
	contextUsecase usecase.AnswerWithContextUsecase,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		ingestUsecase:  ingestUsecase,
		answerUsecase:  answerUsecase,
		contextUsecase: contextUsecase,
		logger:         logger,
	}
}

// Register wires the routes. internalOnly guards the write endpoints.
func (h *Handler) Register(e *echo.Echo, internalOnly echo.MiddlewareFunc) {
	e.POST("/v1/rag/ingest", h.Ingest, internalOnly)
	e.DELETE("/v1/rag/doc/:document_id", h.DeleteDocument, internalOnly)
	e.POST("/v1/rag/answer", h.Answer)
	e.POST("/v1/rag/answer-context", h.AnswerWithContext)
}

type metadataDTO struct {
	Symbol    string `json:"symbol"`
	Title     string `json:"title"`
	SourceURL string `json:"sourceUrl"`
	Section   string `json:"section"`
}

type ingestRequest struct {
	DocumentID   string      `json:"document_id"`
	Source       string      `json:"source"`
	Text         string      `json:"text"`
	Metadata     metadataDTO `json:"metadata"`
	ChunkSize    *int        `json:"chunk_size"`
	ChunkOverlap *int        `json:"chunk_overlap"`
}

type ingestResponse struct {
	ChunksUpserted int    `json:"chunksUpserted"`
	DocumentID     string `json:"documentId"`
	Collection     string `json:"collection"`
	Status         string `json:"status"`
}

// Ingest chunks, embeds and indexes one document.
// (POST /v1/rag/ingest)
func (h *Handler) Ingest(ctx echo.Context) error {
	var req ingestRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorBody("invalid request"))
	}
	if req.DocumentID == "" || req.Source == "" {
		return ctx.JSON(http.StatusBadRequest, errorBody("document_id and source are required"))
	}

	result, err := h.ingestUsecase.Ingest(ctx.Request().Context(), usecase.IngestDocumentInput{
		DocumentID: req.DocumentID,
		Source:     req.Source,
		Text:       req.Text,
		Metadata: usecase.DocumentMetadata{
			Symbol:    req.Metadata.Symbol,
			Title:     req.Metadata.Title,
			SourceURL: req.Metadata.SourceURL,
			Section:   req.Metadata.Section,
		},
		ChunkSize:    req.ChunkSize,
		ChunkOverlap: req.ChunkOverlap,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidChunkParams) {
			return ctx.JSON(http.StatusBadRequest, errorBody(err.Error()))
		}
		h.logger.Error("ingest_failed",
			slog.String("document_id", req.DocumentID),
			slog.String("error", err.Error()))
		// Ingestion failures surface the cause for operator diagnosis.
		return ctx.JSON(http.StatusInternalServerError, errorBody(err.Error()))
	}

	return ctx.JSON(http.StatusOK, ingestResponse{
		ChunksUpserted: result.ChunksUpserted,
		DocumentID:     result.DocumentID,
		Collection:     result.Collection,
		Status:         result.Status,
	})
}

type deleteResponse struct {
	DocumentID string `json:"documentId"`
	Deleted    int    `json:"deleted"`
	Status     string `json:"status"`
}

// DeleteDocument removes all chunks of a document.
// (DELETE /v1/rag/doc/:document_id)
func (h *Handler) DeleteDocument(ctx echo.Context) error {
	documentID := ctx.Param("document_id")
	if documentID == "" {
		return ctx.JSON(http.StatusBadRequest, errorBody("document_id is required"))
	}

	deleted, err := h.ingestUsecase.DeleteDocument(ctx.Request().Context(), documentID)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, errorBody(err.Error()))
	}

	return ctx.JSON(http.StatusOK, deleteResponse{
		DocumentID: documentID,
		Deleted:    deleted,
		Status:     "ok",
	})
}

type answerRequest struct {
	Question   string `json:"question"`
	Context    string `json:"context"`
	TopK       int    `json:"top_k"`
	DocumentID string `json:"document_id"`
	Source     string `json:"source"`
	Symbol     string `json:"symbol"`
}

type sourceDTO struct {
	DocumentID  string  `json:"documentId"`
	Source      string  `json:"source"`
	SourceURL   *string `json:"sourceUrl"`
	Title       string  `json:"title"`
	Section     string  `json:"section"`
	Symbol      string  `json:"symbol"`
	ChunkID     string  `json:"chunkId"`
	Score       float32 `json:"score"`
	TextPreview string  `json:"textPreview"`
}

type answerResponse struct {
	Answer  string      `json:"answer"`
	Sources []sourceDTO `json:"sources"`
}

// Answer generates a retrieval-grounded answer.
// (POST /v1/rag/answer)
func (h *Handler) Answer(ctx echo.Context) error {
	var req answerRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorBody("invalid request"))
	}

	output, err := h.answerUsecase.Execute(ctx.Request().Context(), usecase.AnswerQuestionInput{
		Question:    req.Question,
		BaseContext: req.Context,
		TopK:        req.TopK,
		DocumentID:  req.DocumentID,
		Source:      req.Source,
		Symbol:      req.Symbol,
	})
	if err != nil {
		return h.answerError(ctx, err)
	}

	sources := make([]sourceDTO, len(output.Sources))
	for i, src := range output.Sources {
		var url *string
		if src.SourceURL != "" {
			u := src.SourceURL
			url = &u
		}
		sources[i] = sourceDTO{
			DocumentID:  src.DocumentID,
			Source:      src.Source,
			SourceURL:   url,
			Title:       src.Title,
			Section:     src.Section,
			Symbol:      src.Symbol,
			ChunkID:     src.ChunkID,
			Score:       src.Score,
			TextPreview: src.TextPreview,
		}
	}

	return ctx.JSON(http.StatusOK, answerResponse{
		Answer:  output.Answer,
		Sources: sources,
	})
}

type contextPartDTO struct {
	SourceType string `json:"source_type"`
	SourceID   string `json:"source_id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Excerpt    string `json:"excerpt"`
}

type answerContextRequest struct {
	Question     string           `json:"question"`
	ContextParts []contextPartDTO `json:"context_parts"`
}

type answerContextResponse struct {
	Answer      string           `json:"answer"`
	UsedSources []int            `json:"used_sources"`
	Sources     []contextPartDTO `json:"sources"`
}

// AnswerWithContext answers from caller-supplied context parts.
// (POST /v1/rag/answer-context)
func (h *Handler) AnswerWithContext(ctx echo.Context) error {
	var req answerContextRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorBody("invalid request"))
	}

	parts := make([]domain.ContextPart, len(req.ContextParts))
	for i, p := range req.ContextParts {
		parts[i] = domain.ContextPart{
			SourceType: p.SourceType,
			SourceID:   p.SourceID,
			Title:      p.Title,
			URL:        p.URL,
			Excerpt:    p.Excerpt,
		}
	}

	output, err := h.contextUsecase.Execute(ctx.Request().Context(), req.Question, parts)
	if err != nil {
		return h.answerError(ctx, err)
	}

	sources := make([]contextPartDTO, len(output.Sources))
	for i, src := range output.Sources {
		sources[i] = contextPartDTO{
			SourceType: src.SourceType,
			SourceID:   src.SourceID,
			Title:      src.Title,
			URL:        src.URL,
			Excerpt:    src.Excerpt,
		}
	}

	return ctx.JSON(http.StatusOK, answerContextResponse{
		Answer:      output.Answer,
		UsedSources: output.UsedSources,
		Sources:     sources,
	})
}

// answerError maps pipeline failures to transport responses. LLM
// failures hide the internal cause behind a retry hint; quota errors
// get their own status so clients can back off differently.
func (h *Handler) answerError(ctx echo.Context, err error) error {
	switch {
	case errors.Is(err, usecase.ErrEmptyQuestion), errors.Is(err, usecase.ErrNoContextParts):
		return ctx.JSON(http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, domain.ErrLLMQuotaExceeded):
		h.logger.Warn("answer_quota_exceeded", slog.String("error", err.Error()))
		return ctx.JSON(http.StatusServiceUnavailable, errorBody("AI provider is over capacity, please try again later"))
	default:
		h.logger.Error("answer_failed", slog.String("error", err.Error()))
		return ctx.JSON(http.StatusBadGateway, errorBody("answer generation is temporarily unavailable, please try again later"))
	}
}

func errorBody(message string) map[string]string {
	return map[string]string{"error": message}
}
