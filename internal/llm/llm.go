// Package llm provides the generative clients used for digest generation:
// a synchronous Gemini generator and an Anthropic-compatible generator that
// also supports asynchronous batch submission with polling.
package llm

import "context"

// Generator produces digest prose from a system prompt and a user prompt.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// Options configure a generator.
type Options struct {
	Model     string
	MaxTokens int
}
