// Package vectorstore provides the storage engine handles behind the
// named memory collections.
//
// Each engine implements the Store interface: the embedded in-memory
// engine (chromem-go) plus adapters for Qdrant, Milvus, Chroma, and
// Pinecone. Adapters are thin: one construction equals one connection
// attempt, and anything beyond connection lifecycle plus basic
// upsert/query mapping belongs to the engine itself.
package vectorstore

import (
	"context"
	"errors"

	"github.com/fathomworks/memvault/internal/config"
)

// Sentinel errors for storage engine operations.
var (
	// ErrInvalidConfig indicates an unusable backend configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConnectionFailed indicates the engine could not be reached.
	ErrConnectionFailed = errors.New("failed to connect to vector store")

	// ErrStoreFull is returned by the in-memory engine once the
	// configured maxVectors cap is reached.
	ErrStoreFull = errors.New("vector store is full")

	// ErrEmptyDocuments indicates empty or nil documents.
	ErrEmptyDocuments = errors.New("empty or nil documents")

	// ErrDimensionMismatch indicates a vector whose length does not
	// match the configured dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Document is a vector with its text content and metadata. Vectors are
// precomputed by the embedding pipeline before they reach this layer.
type Document struct {
	// ID uniquely identifies the document. Assigned when empty.
	ID string

	// Content is the original text.
	Content string

	// Vector is the embedding. Its length must match the store's
	// configured dimension.
	Vector []float32

	// Metadata holds filterable key/value pairs.
	Metadata map[string]string
}

// SearchResult is a single similarity search hit.
type SearchResult struct {
	ID       string
	Content  string
	Score    float32
	Metadata map[string]string
}

// Store is a connected handle to one collection on one storage engine.
//
// Implementations must tolerate Close being called unconditionally,
// including after a failed construction path, so orchestrator cleanup
// never has to guard it.
type Store interface {
	// Backend identifies the engine variant behind this handle.
	Backend() config.BackendType

	// Collection returns the collection name this handle is bound to.
	Collection() string

	// Upsert inserts or replaces documents, returning their IDs.
	Upsert(ctx context.Context, docs []Document) ([]string, error)

	// Query returns up to k results most similar to the vector,
	// ordered by descending similarity.
	Query(ctx context.Context, vector []float32, k int) ([]SearchResult, error)

	// Count returns the number of vectors in the collection.
	Count(ctx context.Context) (int, error)

	// Ping verifies the engine is reachable.
	Ping(ctx context.Context) error

	// Close releases the connection. Safe to call more than once.
	Close() error
}
