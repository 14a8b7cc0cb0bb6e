package vectorstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/fathomworks/memvault/internal/config"
)

// MemoryStore is the embedded in-memory engine backed by chromem-go.
//
// It enforces the configured MaxVectors hard cap: upserts that would
// push the collection past the cap fail with ErrStoreFull. There is
// no eviction.
type MemoryStore struct {
	db     *chromem.DB
	coll   *chromem.Collection
	cfg    config.BackendConfig
	logger *zap.Logger

	mu sync.Mutex // serializes cap check against insert
}

// NewMemoryStore creates an in-memory store for the configured
// collection.
func NewMemoryStore(cfg config.BackendConfig, logger *zap.Logger) (*MemoryStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive", ErrInvalidConfig)
	}
	if cfg.MaxVectors <= 0 {
		return nil, fmt.Errorf("%w: maxVectors must be positive", ErrInvalidConfig)
	}

	db := chromem.NewDB()

	// Documents always arrive with precomputed vectors; the embedding
	// func only fires if one is missing, which is a caller bug.
	coll, err := db.GetOrCreateCollection(cfg.CollectionName, nil, rejectEmbedding)
	if err != nil {
		return nil, fmt.Errorf("creating collection %s: %w", cfg.CollectionName, err)
	}

	logger.Info("in-memory store initialized",
		zap.String("collection", cfg.CollectionName),
		zap.Int("dimension", cfg.Dimension),
		zap.Int("max_vectors", cfg.MaxVectors),
		zap.String("fallback_from", string(cfg.FallbackFrom)),
	)

	return &MemoryStore{
		db:     db,
		coll:   coll,
		cfg:    cfg,
		logger: logger.Named("memory"),
	}, nil
}

func rejectEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("document has no precomputed vector")
}

// Backend implements Store.
func (s *MemoryStore) Backend() config.BackendType { return config.BackendInMemory }

// Collection implements Store.
func (s *MemoryStore) Collection() string { return s.cfg.CollectionName }

// Upsert implements Store.
func (s *MemoryStore) Upsert(ctx context.Context, docs []Document) ([]string, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyDocuments
	}

	chromemDocs := make([]chromem.Document, len(docs))
	ids := make([]string, len(docs))
	for i, doc := range docs {
		if len(doc.Vector) != s.cfg.Dimension {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(doc.Vector), s.cfg.Dimension)
		}
		id := doc.ID
		if id == "" {
			id = uuid.New().String()
		}
		ids[i] = id
		chromemDocs[i] = chromem.Document{
			ID:        id,
			Content:   doc.Content,
			Embedding: doc.Vector,
			Metadata:  doc.Metadata,
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.coll.Count()+len(docs) > s.cfg.MaxVectors {
		return nil, fmt.Errorf("%w: cap %d", ErrStoreFull, s.cfg.MaxVectors)
	}
	if err := s.coll.AddDocuments(ctx, chromemDocs, 1); err != nil {
		return nil, fmt.Errorf("adding documents: %w", err)
	}

	return ids, nil
}

// Query implements Store.
func (s *MemoryStore) Query(ctx context.Context, vector []float32, k int) ([]SearchResult, error) {
	if len(vector) != s.cfg.Dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), s.cfg.Dimension)
	}

	// chromem rejects nResults larger than the collection.
	if count := s.coll.Count(); k > count {
		k = count
	}
	if k <= 0 {
		return nil, nil
	}

	results, err := s.coll.QueryEmbedding(ctx, vector, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection %s: %w", s.cfg.CollectionName, err)
	}

	searchResults := make([]SearchResult, len(results))
	for i, res := range results {
		searchResults[i] = SearchResult{
			ID:       res.ID,
			Content:  res.Content,
			Score:    res.Similarity,
			Metadata: res.Metadata,
		}
	}
	return searchResults, nil
}

// Count implements Store.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	return s.coll.Count(), nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.logger.Debug("in-memory store closed", zap.String("collection", s.cfg.CollectionName))
	return nil
}

var _ Store = (*MemoryStore)(nil)
