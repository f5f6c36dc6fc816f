package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lexibot/internal/adapter/chromem"
	"lexibot/internal/middleware"
)

// ErrEmbedding marks an embedding-service failure during retrieval. Callers
// are expected to degrade to empty-context answering rather than fail the
// turn.
var ErrEmbedding = errors.New("embedding service failed")

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Index interface {
	Query(ctx context.Context, vector []float32, k int) ([]chromem.Hit, error)
}

// Service retrieves the chunks most relevant to a query. The query is
// embedded with the same embedder used at index time and matched against the
// index under cosine similarity.
type Service struct {
	embedder Embedder
	index    Index
	logger   *QueryLogger
}

func NewService(e Embedder, idx Index, l *QueryLogger) *Service {
	return &Service{embedder: e, index: idx, logger: l}
}

// Search returns up to k chunk texts, closest first. An empty index yields
// an empty result; an embedding failure yields ErrEmbedding.
func (s *Service) Search(ctx context.Context, query string, k int) ([]string, error) {
	start := time.Now()

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}

	hits, err := s.index.Query(ctx, vec, k)
	if err != nil {
		return nil, err
	}

	chunks := make([]string, len(hits))
	for i, h := range hits {
		chunks[i] = h.Content
	}

	if s.logger != nil {
		s.logger.Log(QueryLogEntry{
			Query:         query,
			NumResults:    len(chunks),
			Duration:      time.Since(start),
			CorrelationID: middleware.GetCorrelationID(ctx),
		})
	}
	return chunks, nil
}
