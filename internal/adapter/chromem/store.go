package chromem

import (
	"context"
	"fmt"
	"runtime"

	chromemgo "github.com/philippgille/chromem-go"
)

const collectionName = "document_chunks"

// Document is one indexed chunk: stable ID, paragraph text, and its
// precomputed embedding. Embeddings are always supplied by the caller, never
// computed inside the store, so index-time and query-time vectors are
// guaranteed to come from the same embedder.
type Document struct {
	ID        string
	Content   string
	Metadata  map[string]string
	Embedding []float32
}

// Hit is one retrieval result, ranked by cosine similarity.
type Hit struct {
	ID         string
	Content    string
	Similarity float32
}

// Store wraps an embedded chromem-go collection as the system's embedding
// index. Append-only: no update or delete paths are exposed.
type Store struct {
	db         *chromemgo.DB
	collection *chromemgo.Collection
}

// NewStore opens a persistent index rooted at dir.
func NewStore(dir string) (*Store, error) {
	db, err := chromemgo.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector database: %w", err)
	}
	return newStore(db)
}

// NewMemoryStore builds a volatile index, used in tests and when persistence
// is disabled.
func NewMemoryStore() (*Store, error) {
	return newStore(chromemgo.NewDB())
}

func newStore(db *chromemgo.DB) (*Store, error) {
	// The embedding func is never used: documents and queries always carry
	// precomputed vectors.
	c, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	return &Store{db: db, collection: c}, nil
}

// Add stores a batch of chunk documents. Callers batch-embed before calling,
// so a failed embedding step indexes nothing.
func (s *Store) Add(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	cdocs := make([]chromemgo.Document, len(docs))
	for i, d := range docs {
		if len(d.Embedding) == 0 {
			return fmt.Errorf("document %s has no embedding", d.ID)
		}
		cdocs[i] = chromemgo.Document{
			ID:        d.ID,
			Content:   d.Content,
			Metadata:  d.Metadata,
			Embedding: d.Embedding,
		}
	}

	if err := s.collection.AddDocuments(ctx, cdocs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// Query returns up to k hits for the query vector, most similar first.
// Querying an empty index returns an empty result, never an error; k is
// clamped to the collection size.
func (s *Store) Query(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	count := s.collection.Count()
	if count == 0 || k <= 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := s.collection.QueryEmbedding(ctx, vector, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = Hit{ID: r.ID, Content: r.Content, Similarity: r.Similarity}
	}
	return hits, nil
}

// Count reports how many chunks are indexed.
func (s *Store) Count() int {
	return s.collection.Count()
}
