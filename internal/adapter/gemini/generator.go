package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
)

// Generator is the language-model boundary: single-shot, stateless prompt
// completion. All conversational state lives in the caller.
type Generator struct {
	client *Client
	model  string
}

func NewGenerator(client *Client, model string) *Generator {
	return &Generator{client: client, model: model}
}

func (g *Generator) Complete(ctx context.Context, prompt string) (string, error) {
	slog.DebugContext(ctx, "generating completion", "model", g.model, "prompt_length", len(prompt))

	gm := g.client.genai.GenerativeModel(g.model)
	resp, err := gm.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		slog.ErrorContext(ctx, "generation failed", "error", err)
		return "", err
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("model %s returned no candidates", g.model)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	out := b.String()
	if out == "" {
		return "", fmt.Errorf("model %s returned no text parts", g.model)
	}
	return out, nil
}
