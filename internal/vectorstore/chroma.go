package vectorstore

import (
	"context"
	"fmt"

	chromago "github.com/amikos-tech/chroma-go"
	"github.com/amikos-tech/chroma-go/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fathomworks/memvault/internal/config"
)

// ChromaStore is a Store adapter over the Chroma HTTP API.
type ChromaStore struct {
	client *chromago.Client
	coll   *chromago.Collection
	cfg    config.BackendConfig
	logger *zap.Logger
}

// NewChromaStore connects to a Chroma server and binds the configured
// collection, creating it when absent.
func NewChromaStore(ctx context.Context, cfg config.BackendConfig, logger *zap.Logger) (*ChromaStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	base := cfg.URL
	if base == "" {
		base = fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port)
	}

	client, err := chromago.NewClient(base)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	store := &ChromaStore{
		client: client,
		cfg:    cfg,
		logger: logger.Named("chroma"),
	}

	hctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := store.Ping(hctx); err != nil {
		return nil, err
	}

	coll, err := client.CreateCollection(ctx, cfg.CollectionName, nil, true, nil, chromaDistance(cfg.Distance))
	if err != nil {
		return nil, fmt.Errorf("getting collection %s: %w", cfg.CollectionName, err)
	}
	store.coll = coll

	store.logger.Info("chroma store connected",
		zap.String("base", base),
		zap.String("collection", cfg.CollectionName),
		zap.Int("dimension", cfg.Dimension),
	)

	return store, nil
}

func chromaDistance(d config.Distance) types.DistanceFunction {
	switch d {
	case config.DistanceEuclidean:
		return types.L2
	case config.DistanceDot:
		return types.IP
	default:
		return types.COSINE
	}
}

// Backend implements Store.
func (s *ChromaStore) Backend() config.BackendType { return config.BackendChroma }

// Collection implements Store.
func (s *ChromaStore) Collection() string { return s.cfg.CollectionName }

// Upsert implements Store.
func (s *ChromaStore) Upsert(ctx context.Context, docs []Document) ([]string, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyDocuments
	}

	ids := make([]string, len(docs))
	embeddings := make([]*types.Embedding, len(docs))
	metadatas := make([]map[string]interface{}, len(docs))
	contents := make([]string, len(docs))
	for i, doc := range docs {
		if len(doc.Vector) != s.cfg.Dimension {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(doc.Vector), s.cfg.Dimension)
		}
		id := doc.ID
		if id == "" {
			id = uuid.New().String()
		}
		ids[i] = id
		embeddings[i] = types.NewEmbeddingFromFloat32(doc.Vector)
		contents[i] = doc.Content
		metadata := make(map[string]interface{}, len(doc.Metadata))
		for k, v := range doc.Metadata {
			metadata[k] = v
		}
		metadatas[i] = metadata
	}

	if _, err := s.coll.Add(ctx, embeddings, metadatas, contents, ids); err != nil {
		return nil, fmt.Errorf("adding documents to %s: %w", s.cfg.CollectionName, err)
	}
	return ids, nil
}

// Query implements Store.
func (s *ChromaStore) Query(ctx context.Context, vector []float32, k int) ([]SearchResult, error) {
	if len(vector) != s.cfg.Dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), s.cfg.Dimension)
	}

	qr, err := s.coll.QueryWithOptions(ctx,
		types.WithQueryEmbeddings([]*types.Embedding{types.NewEmbeddingFromFloat32(vector)}),
		types.WithNResults(int32(k)),
	)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", s.cfg.CollectionName, err)
	}

	var results []SearchResult
	if len(qr.Ids) > 0 {
		for i, id := range qr.Ids[0] {
			result := SearchResult{ID: id}
			if len(qr.Documents) > 0 && i < len(qr.Documents[0]) {
				result.Content = qr.Documents[0][i]
			}
			if len(qr.Distances) > 0 && i < len(qr.Distances[0]) {
				// Chroma reports distances; invert so higher still
				// means more similar.
				result.Score = 1 - qr.Distances[0][i]
			}
			if len(qr.Metadatas) > 0 && i < len(qr.Metadatas[0]) {
				result.Metadata = make(map[string]string)
				for k, v := range qr.Metadatas[0][i] {
					if sv, ok := v.(string); ok {
						result.Metadata[k] = sv
					}
				}
			}
			results = append(results, result)
		}
	}
	return results, nil
}

// Count implements Store.
func (s *ChromaStore) Count(ctx context.Context) (int, error) {
	count, err := s.coll.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", s.cfg.CollectionName, err)
	}
	return int(count), nil
}

// Ping implements Store.
func (s *ChromaStore) Ping(ctx context.Context) error {
	if _, err := s.client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return nil
}

// Close implements Store.
func (s *ChromaStore) Close() error {
	// The HTTP client holds no persistent connection.
	return nil
}

var _ Store = (*ChromaStore)(nil)
