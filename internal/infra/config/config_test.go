package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"stock-rag/internal/infra/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := config.Load()

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "stock_documents", cfg.Collection)
	assert.Equal(t, 384, cfg.EmbeddingDimension)
	assert.Equal(t, 6, cfg.AnswerTopK)
	assert.Equal(t, 768, cfg.AnswerMaxTokens)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RAG_COLLECTION", "other_docs")
	t.Setenv("RAG_DEFAULT_TOP_K", "12")
	t.Setenv("EMBEDDER_REQUESTS_PER_SECOND", "2.5")

	cfg := config.Load()

	assert.Equal(t, "other_docs", cfg.Collection)
	assert.Equal(t, 12, cfg.AnswerTopK)
	assert.Equal(t, 2.5, cfg.EmbedderRPS)
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	t.Setenv("RAG_DEFAULT_TOP_K", "not-a-number")
	cfg := config.Load()
	assert.Equal(t, 6, cfg.AnswerTopK)
}

func TestLoad_SecretFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db_password")
	require.NoError(t, os.WriteFile(path, []byte("s3cret\n"), 0o600))

	t.Setenv("DB_PASSWORD_FILE", path)
	cfg := config.Load()
	assert.Equal(t, "s3cret", cfg.DBPassword)
}

func TestDatabaseURL(t *testing.T) {
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_USER", "u")
	t.Setenv("DB_PASSWORD", "p")
	t.Setenv("DB_NAME", "d")

	cfg := config.Load()
	assert.Equal(t, "postgres://u:p@localhost:5433/d?sslmode=disable", cfg.DatabaseURL())
}
