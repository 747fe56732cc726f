package domain

import (
	"regexp"
	"strings"
)

const (
	// DefaultChunkSize is the target chunk length in characters.
	DefaultChunkSize = 1200
	// DefaultChunkOverlap is the number of trailing characters carried
	// into the next chunk when a flush or hard split occurs.
	DefaultChunkOverlap = 200
)

// Chunker splits a document body into retrieval-sized pieces.
// Chunking is pure: malformed parameters are normalized, never rejected
// here (caller-facing validation happens in the ingest usecase).
type Chunker interface {
	Chunk(text string, chunkSize, chunkOverlap int) []string
}

var blankLine = regexp.MustCompile(`\n\s*\n`)

type paragraphChunker struct{}

// NewChunker creates the paragraph-preserving chunker. Paragraphs are
// greedily merged up to chunkSize; oversized runs fall back to a
// fixed-window hard split with overlap.
func NewChunker() Chunker {
	return &paragraphChunker{}
}

func (c *paragraphChunker) Chunk(text string, chunkSize, chunkOverlap int) []string {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize - 1
	}

	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	normalized = strings.TrimSpace(normalized)
	if normalized == "" {
		return nil
	}

	var paragraphs []string
	for _, part := range blankLine.Split(normalized, -1) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}

	var chunks []string
	current := ""

	for _, paragraph := range paragraphs {
		candidate := paragraph
		if current != "" {
			candidate = current + "\n\n" + paragraph
		}
		if runeLen(candidate) <= chunkSize {
			current = candidate
			continue
		}

		if current != "" {
			chunks = append(chunks, current)
			if chunkOverlap > 0 {
				current = tail(current, chunkOverlap) + "\n\n" + paragraph
			} else {
				current = paragraph
			}
		} else {
			current = paragraph
		}

		if runeLen(current) > chunkSize {
			chunks = append(chunks, hardSplit(current, chunkSize, chunkOverlap)...)
			current = ""
		}
	}
	if current != "" {
		chunks = append(chunks, current)
	}

	result := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if trimmed := strings.TrimSpace(chunk); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// hardSplit walks the text in windows of chunkSize runes, advancing by
// chunkSize-chunkOverlap each step. The window start never regresses,
// even for degenerate overlap values.
func hardSplit(text string, chunkSize, chunkOverlap int) []string {
	runes := []rune(text)
	var chunks []string

	start := 0
	for start < len(runes) {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			chunks = append(chunks, piece)
		}
		if end >= len(runes) {
			break
		}
		next := end - chunkOverlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// Chunk lengths are measured in runes, not bytes, so multi-byte text
// is never split mid-character.
func runeLen(s string) int {
	return len([]rune(s))
}

func tail(s string, n int) string {
	runes := []rune(s)
	if n >= len(runes) {
		return s
	}
	return string(runes[len(runes)-n:])
}
