package config

import (
	"os"
	"strconv"
	"strings"
)

// Config is built once at process start and injected into components;
// nothing in the core reads the environment directly.
type Config struct {
	Env  string
	Port string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	Collection         string
	EmbeddingDimension int

	EmbedderURL     string
	EmbeddingModel  string
	EmbedderTimeout int
	EmbedderRPS     float64

	LLMURL     string
	LLMModel   string
	LLMTimeout int

	AnswerTopK      int
	AnswerMaxTokens int
	CacheSize       int
	CacheTTLMinutes int

	InternalAPIKey string
	OTelEnabled    bool
}

func Load() *Config {
	return &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "9020"),

		DBHost:     getEnv("DB_HOST", "rag-db"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "rag_user"),
		DBPassword: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "rag_password"),
		DBName:     getEnv("DB_NAME", "rag_db"),

		Collection:         getEnv("RAG_COLLECTION", "stock_documents"),
		EmbeddingDimension: getEnvInt("EMBEDDING_DIMENSION", 384),

		EmbedderURL:     getEnv("EMBEDDER_URL", "http://ollama:11434"),
		EmbeddingModel:  getEnv("EMBEDDING_MODEL", "all-minilm"),
		EmbedderTimeout: getEnvInt("EMBEDDER_TIMEOUT_SECONDS", 30),
		EmbedderRPS:     getEnvFloat("EMBEDDER_REQUESTS_PER_SECOND", 0),

		LLMURL:     getEnv("LLM_URL", "http://ollama:11434"),
		LLMModel:   getEnv("LLM_MODEL", "llama3.1:8b"),
		LLMTimeout: getEnvInt("LLM_TIMEOUT_SECONDS", 120),

		AnswerTopK:      getEnvInt("RAG_DEFAULT_TOP_K", 6),
		AnswerMaxTokens: getEnvInt("RAG_DEFAULT_MAX_TOKENS", 768),
		CacheSize:       getEnvInt("RAG_ANSWER_CACHE_SIZE", 0),
		CacheTTLMinutes: getEnvInt("RAG_ANSWER_CACHE_TTL_MINUTES", 10),

		InternalAPIKey: getSecret("INTERNAL_API_KEY", "INTERNAL_API_KEY_FILE", ""),
		OTelEnabled:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "",
	}
}

func (c *Config) DatabaseURL() string {
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName + "?sslmode=disable"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// getSecret resolves a value from the environment or, failing that,
// from a file whose path is named by fileEnvKey (docker secrets).
func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		if content, err := os.ReadFile(filePath); err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
