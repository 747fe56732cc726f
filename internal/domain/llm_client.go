package domain

import "context"

// LLMResponse carries the generated text plus completion state.
type LLMResponse struct {
	Text string
	Done bool
}

// LLMClient is the generation capability consumed by the answer
// pipelines. Retry policy, if any, belongs to implementations.
type LLMClient interface {
	// Generate produces a completion for the prompt. system may be
	// empty. maxTokens <= 0 leaves the model default in place.
	Generate(ctx context.Context, system, prompt string, maxTokens int) (*LLMResponse, error)
}
