package gemini

import (
	"context"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Client owns the shared genai connection. One client backs both the
// embedder and the generator so index-time and query-time embeddings always
// come from the same model endpoint.
type Client struct {
	genai *genai.Client
}

func NewClient(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Client, error) {
	all := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	c, err := genai.NewClient(ctx, all...)
	if err != nil {
		return nil, err
	}
	return &Client{genai: c}, nil
}

func (c *Client) Close() error {
	return c.genai.Close()
}
