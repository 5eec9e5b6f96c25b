package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiGenerator is the synchronous generation path: one blocking call per
// digest.
type GeminiGenerator struct {
	client *genai.Client
	opts   Options
}

var _ Generator = (*GeminiGenerator)(nil)

// NewGemini builds a Gemini-backed generator.
func NewGemini(ctx context.Context, apiKey string, opts Options) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if opts.Model == "" {
		opts.Model = "gemini-1.5-flash-latest"
	}
	return &GeminiGenerator{client: client, opts: opts}, nil
}

// Generate sends one blocking generation request and returns the full text.
func (g *GeminiGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	model := g.client.GenerativeModel(g.opts.Model)
	if g.opts.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(g.opts.MaxTokens))
	}
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("gemini returned no text parts")
	}
	return b.String(), nil
}

// Close releases the underlying connection.
func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}
