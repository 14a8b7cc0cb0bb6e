package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pinecone-io/go-pinecone/v2/pinecone"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/fathomworks/memvault/internal/config"
)

// PineconeStore is a Store adapter over the Pinecone managed service.
// The collection name maps to a Pinecone index, which must already
// exist; Pinecone index provisioning is asynchronous and does not
// belong in a connection path.
type PineconeStore struct {
	conn   *pinecone.IndexConnection
	cfg    config.BackendConfig
	logger *zap.Logger
}

// NewPineconeStore resolves the index through the control plane and
// opens a data-plane connection in the configured namespace.
func NewPineconeStore(ctx context.Context, cfg config.BackendConfig, logger *zap.Logger) (*PineconeStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pc, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	hctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	idx, err := pc.DescribeIndex(hctx, cfg.CollectionName)
	if err != nil {
		return nil, fmt.Errorf("describing index %s: %w", cfg.CollectionName, err)
	}
	// Dimension is zero for indexes with integrated embedding.
	if idx.Dimension != 0 && int(idx.Dimension) != cfg.Dimension {
		return nil, fmt.Errorf("%w: index %s has dimension %d, configured %d",
			ErrDimensionMismatch, cfg.CollectionName, idx.Dimension, cfg.Dimension)
	}

	conn, err := pc.Index(pinecone.NewIndexConnParams{
		Host:      idx.Host,
		Namespace: cfg.Namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	store := &PineconeStore{
		conn:   conn,
		cfg:    cfg,
		logger: logger.Named("pinecone"),
	}

	store.logger.Info("pinecone store connected",
		zap.String("index", cfg.CollectionName),
		zap.String("namespace", cfg.Namespace),
		zap.Int("dimension", cfg.Dimension),
	)

	return store, nil
}

// Backend implements Store.
func (s *PineconeStore) Backend() config.BackendType { return config.BackendPinecone }

// Collection implements Store.
func (s *PineconeStore) Collection() string { return s.cfg.CollectionName }

// Upsert implements Store.
func (s *PineconeStore) Upsert(ctx context.Context, docs []Document) ([]string, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyDocuments
	}

	vectors, ids, err := buildPineconeVectors(docs, s.cfg.Dimension)
	if err != nil {
		return nil, err
	}

	if _, err := s.conn.UpsertVectors(ctx, vectors); err != nil {
		return nil, fmt.Errorf("upserting to %s: %w", s.cfg.CollectionName, err)
	}
	return ids, nil
}

// buildPineconeVectors maps documents onto wire vectors, assigning IDs
// where absent and flattening metadata with the content alongside.
func buildPineconeVectors(docs []Document, dimension int) ([]*pinecone.Vector, []string, error) {
	vectors := make([]*pinecone.Vector, len(docs))
	ids := make([]string, len(docs))
	for i, doc := range docs {
		if len(doc.Vector) != dimension {
			return nil, nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(doc.Vector), dimension)
		}
		id := doc.ID
		if id == "" {
			id = uuid.New().String()
		}
		ids[i] = id

		fields := map[string]any{"content": doc.Content}
		for k, v := range doc.Metadata {
			fields[k] = v
		}
		metadata, err := structpb.NewStruct(fields)
		if err != nil {
			return nil, nil, fmt.Errorf("encoding metadata: %w", err)
		}

		vectors[i] = &pinecone.Vector{
			Id:       id,
			Values:   doc.Vector,
			Metadata: metadata,
		}
	}
	return vectors, ids, nil
}

// Query implements Store.
func (s *PineconeStore) Query(ctx context.Context, vector []float32, k int) ([]SearchResult, error) {
	if len(vector) != s.cfg.Dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), s.cfg.Dimension)
	}

	res, err := s.conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(k),
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", s.cfg.CollectionName, err)
	}

	results := make([]SearchResult, 0, len(res.Matches))
	for _, match := range res.Matches {
		if match.Vector == nil {
			continue
		}
		result := SearchResult{
			ID:    match.Vector.Id,
			Score: match.Score,
		}
		if match.Vector.Metadata != nil {
			result.Metadata = make(map[string]string)
			for key, value := range match.Vector.Metadata.GetFields() {
				sv := value.GetStringValue()
				if key == "content" {
					result.Content = sv
					continue
				}
				result.Metadata[key] = sv
			}
		}
		results = append(results, result)
	}
	return results, nil
}

// Count implements Store.
func (s *PineconeStore) Count(ctx context.Context) (int, error) {
	stats, err := s.conn.DescribeIndexStats(ctx)
	if err != nil {
		return 0, fmt.Errorf("describing index stats: %w", err)
	}
	return int(stats.TotalVectorCount), nil
}

// Ping implements Store.
func (s *PineconeStore) Ping(ctx context.Context) error {
	if _, err := s.conn.DescribeIndexStats(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return nil
}

// Close implements Store.
func (s *PineconeStore) Close() error {
	return s.conn.Close()
}

var _ Store = (*PineconeStore)(nil)
