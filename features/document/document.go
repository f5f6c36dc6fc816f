package document

import "errors"

// Document is a unit of ingestion: extracted text plus the caller-chosen
// source identifier (the uploaded filename). Documents are not retained
// after chunking; only derived chunks persist in the index.
type Document struct {
	SourceID string
	Text     string
}

// Status reports one document's ingestion outcome. Batch ingestion is a
// partial-failure operation: each document succeeds or fails on its own.
type Status struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var (
	// ErrDuplicateSource rejects re-ingestion of an already-indexed source
	// identifier: silently re-indexing would collide chunk identifiers.
	ErrDuplicateSource = errors.New("source already ingested")

	// ErrEmbedding marks an embedding-service failure; the affected
	// document indexes nothing.
	ErrEmbedding = errors.New("embedding service failed")
)
