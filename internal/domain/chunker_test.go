package domain_test

import (
	"strings"
	"testing"

	"stock-rag/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunker_Chunk(t *testing.T) {
	chunker := domain.NewChunker()

	t.Run("Single short paragraph yields one chunk", func(t *testing.T) {
		chunks := chunker.Chunk("Just one small paragraph.", 1200, 200)
		require.Len(t, chunks, 1)
		assert.Equal(t, "Just one small paragraph.", chunks[0])
	})

	t.Run("Empty and whitespace input yield no chunks", func(t *testing.T) {
		assert.Empty(t, chunker.Chunk("", 1200, 200))
		assert.Empty(t, chunker.Chunk("   \n\n\t  \n ", 1200, 200))
	})

	t.Run("Merges paragraphs under the size limit", func(t *testing.T) {
		body := "Para one.\n\nPara two.\n\nPara three."
		chunks := chunker.Chunk(body, 1200, 200)
		require.Len(t, chunks, 1)
		assert.Equal(t, body, chunks[0])
	})

	t.Run("Normalizes CRLF line endings", func(t *testing.T) {
		chunks := chunker.Chunk("Para one.\r\n\r\nPara two.", 1200, 200)
		require.Len(t, chunks, 1)
		assert.Equal(t, "Para one.\n\nPara two.", chunks[0])
	})

	t.Run("Flushes when the next paragraph would overflow", func(t *testing.T) {
		a := strings.Repeat("a", 60)
		b := strings.Repeat("b", 60)
		chunks := chunker.Chunk(a+"\n\n"+b, 100, 0)
		require.Len(t, chunks, 2)
		assert.Equal(t, a, chunks[0])
		assert.Equal(t, b, chunks[1])
	})

	t.Run("Seeds the next chunk with the overlap tail", func(t *testing.T) {
		a := strings.Repeat("a", 60)
		b := strings.Repeat("b", 30)
		chunks := chunker.Chunk(a+"\n\n"+b, 80, 10)
		require.Len(t, chunks, 2)
		assert.Equal(t, a, chunks[0])
		assert.Equal(t, strings.Repeat("a", 10)+"\n\n"+b, chunks[1])
	})

	t.Run("Hard-splits an oversized single paragraph", func(t *testing.T) {
		body := strings.Repeat("x", 3000)
		chunks := chunker.Chunk(body, 1200, 200)
		require.Len(t, chunks, 3)
		for _, chunk := range chunks {
			assert.LessOrEqual(t, len(chunk), 1200)
		}
		assert.Equal(t, chunks[0][len(chunks[0])-200:], chunks[1][:200])
		assert.Equal(t, chunks[1][len(chunks[1])-200:], chunks[2][:200])
	})

	t.Run("Hard-split covers the full text with no gaps", func(t *testing.T) {
		// Distinct positions so coverage gaps would be visible.
		var sb strings.Builder
		for sb.Len() < 2500 {
			sb.WriteString("0123456789")
		}
		body := sb.String()
		chunks := chunker.Chunk(body, 1000, 100)

		reconstructed := chunks[0]
		for _, chunk := range chunks[1:] {
			reconstructed += chunk[100:]
		}
		assert.Equal(t, body, reconstructed)
	})

	t.Run("Chunk size invariant holds for paragraph documents", func(t *testing.T) {
		paragraphs := []string{
			strings.Repeat("alpha ", 40),
			strings.Repeat("beta ", 80),
			strings.Repeat("gamma ", 120),
			strings.Repeat("delta ", 30),
		}
		body := strings.Join(paragraphs, "\n\n")
		for _, chunk := range chunker.Chunk(body, 400, 50) {
			assert.LessOrEqual(t, len([]rune(chunk)), 400)
		}
	})

	t.Run("Falls back to defaults for non-positive size", func(t *testing.T) {
		body := strings.Repeat("y", 3000)
		chunks := chunker.Chunk(body, 0, 200)
		require.Len(t, chunks, 3)
	})

	t.Run("Clamps overlap greater than or equal to size", func(t *testing.T) {
		body := strings.Repeat("z", 50)
		// Degenerate params must not loop or regress the window.
		chunks := chunker.Chunk(body, 10, 10)
		assert.NotEmpty(t, chunks)
		total := 0
		for _, chunk := range chunks {
			total += len(chunk)
		}
		assert.GreaterOrEqual(t, total, 50)
	})

	t.Run("Deterministic across runs", func(t *testing.T) {
		body := strings.Repeat("Para.\n\n", 300)
		first := chunker.Chunk(body, 300, 60)
		second := chunker.Chunk(body, 300, 60)
		assert.Equal(t, first, second)
	})

	t.Run("Never splits multi-byte runes", func(t *testing.T) {
		body := strings.Repeat("cổ phiếu tăng giá ", 200)
		for _, chunk := range chunker.Chunk(body, 500, 100) {
			assert.True(t, strings.ToValidUTF8(chunk, "") == chunk)
		}
	})
}
