package usecase

import (
	"fmt"
	"strings"

	"stock-rag/internal/domain"
)

// PromptBuilder renders the system framing and user prompt for both
// answer flows. Context items are numbered 1-based; the citation
// extractor depends on that numbering.
type PromptBuilder interface {
	BuildAnswerPrompt(question, baseContext string, hits []domain.RetrievalHit) (system, user string)
	BuildContextPrompt(question string, parts []domain.ContextPart) (system, user string)
}

type promptBuilder struct{}

// NewPromptBuilder creates the default prompt builder.
func NewPromptBuilder() PromptBuilder {
	return &promptBuilder{}
}

const answerSystemPrompt = `You are a financial analysis assistant.
Answer the question using ONLY the provided context.
Cite sources inline using EXACTLY this format: [1], [2], [3], etc.
- Square brackets with a single number per bracket
- Separate multiple citations with spaces: [1] [2] (never [1,2] or [1-2])
- ALWAYS cite at least one source for factual claims
- Place citations at the end of sentences
- Do NOT put years in brackets like [2024]
Quote concrete figures from the context where relevant.
If the context is insufficient, say so explicitly.`

func (b *promptBuilder) BuildAnswerPrompt(question, baseContext string, hits []domain.RetrievalHit) (string, string) {
	var sb strings.Builder

	if strings.TrimSpace(baseContext) != "" {
		sb.WriteString("Background:\n")
		sb.WriteString(strings.TrimSpace(baseContext))
		sb.WriteString("\n\n")
	}

	if len(hits) > 0 {
		sb.WriteString("Context:\n")
		for i, hit := range hits {
			url := hit.SourceURL
			if url == "" {
				url = "null"
			}
			section := hit.Section
			if section == "" {
				section = "-"
			}
			sb.WriteString(fmt.Sprintf("[%d] %s - %s (%s)\n", i+1, hit.Title, section, url))
			sb.WriteString(hit.Text)
			sb.WriteString("\n\n")
		}
	}

	sb.WriteString("Question: ")
	sb.WriteString(strings.TrimSpace(question))
	sb.WriteString("\n\nAnswer the question and cite sources using [1], [2] notation.")

	return answerSystemPrompt, sb.String()
}

func (b *promptBuilder) BuildContextPrompt(question string, parts []domain.ContextPart) (string, string) {
	var sb strings.Builder

	sb.WriteString("Context:\n")
	for i, part := range parts {
		title := part.Title
		if title == "" {
			title = "Untitled"
		}
		sourceType := part.SourceType
		if sourceType == "" {
			sourceType = "unknown"
		}
		sb.WriteString(fmt.Sprintf("\n[%d] %s\n", i+1, title))
		sb.WriteString(fmt.Sprintf("Source: %s\n", sourceType))
		if part.URL != "" {
			sb.WriteString(fmt.Sprintf("URL: %s\n", part.URL))
		}
		sb.WriteString(fmt.Sprintf("Content: %s\n", part.Excerpt))
		sb.WriteString(strings.Repeat("-", 50))
		sb.WriteString("\n")
	}

	sb.WriteString("\nQuestion: ")
	sb.WriteString(strings.TrimSpace(question))
	sb.WriteString("\n\nAnswer the question and cite sources using [1], [2] notation.")

	return answerSystemPrompt, sb.String()
}
