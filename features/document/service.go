package document

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"lexibot/internal/adapter/chromem"
	"lexibot/internal/text"
)

type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type Index interface {
	Add(ctx context.Context, docs []chromem.Document) error
}

// Service turns documents into indexed chunks: split into paragraphs,
// batch-embed, store. Embeddings for a document are computed in full before
// anything is written, so a partial embedding failure never leaves chunks
// reachable by query.
type Service struct {
	embedder    Embedder
	index       Index
	concurrency int

	mu      sync.Mutex
	sources map[string]struct{}
}

func NewService(e Embedder, idx Index, concurrency int) *Service {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Service{
		embedder:    e,
		index:       idx,
		concurrency: concurrency,
		sources:     make(map[string]struct{}),
	}
}

// Ingest chunks, embeds, and indexes one document. A whitespace-only
// document is a no-op. Duplicate source IDs are rejected; two racing
// ingests of the same source ID cannot both index.
func (s *Service) Ingest(ctx context.Context, doc Document) error {
	if err := s.reserve(doc.SourceID); err != nil {
		return err
	}

	chunks := text.SplitParagraphs(doc.Text)
	if len(chunks) == 0 {
		slog.InfoContext(ctx, "document has no content, nothing indexed", "source_id", doc.SourceID)
		return nil
	}

	vectors, err := s.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		s.release(doc.SourceID)
		return fmt.Errorf("%w: %v", ErrEmbedding, err)
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:        fmt.Sprintf("%s_%d", doc.SourceID, i),
			Content:   chunk,
			Metadata:  map[string]string{"source_id": doc.SourceID},
			Embedding: vectors[i],
		}
	}

	if err := s.index.Add(ctx, docs); err != nil {
		s.release(doc.SourceID)
		return err
	}

	slog.InfoContext(ctx, "document indexed", "source_id", doc.SourceID, "chunks", len(chunks))
	return nil
}

// IngestAll ingests a batch concurrently, one worker slot per document up to
// the configured cap. Results come back in input order, one status per
// document; failures never abort sibling documents.
func (s *Service) IngestAll(ctx context.Context, docs []Document) []Status {
	statuses := make([]Status, len(docs))
	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup

	for i, doc := range docs {
		wg.Add(1)
		go func(i int, doc Document) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := s.Ingest(ctx, doc); err != nil {
				statuses[i] = Status{Filename: doc.SourceID, Status: StatusError, Message: err.Error()}
				return
			}
			statuses[i] = Status{Filename: doc.SourceID, Status: StatusSuccess}
		}(i, doc)
	}

	wg.Wait()
	return statuses
}

// Count reports how many sources have been ingested.
func (s *Service) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sources)
}

func (s *Service) reserve(sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sources[sourceID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateSource, sourceID)
	}
	s.sources[sourceID] = struct{}{}
	return nil
}

func (s *Service) release(sourceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sources, sourceID)
}
