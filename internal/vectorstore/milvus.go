package vectorstore

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/fathomworks/memvault/internal/config"
)

const (
	milvusIDField      = "id"
	milvusContentField = "content"
	milvusVectorField  = "vector"

	milvusMaxIDLength      = 64
	milvusMaxContentLength = 65535
)

// MilvusStore is a Store adapter over the Milvus Go SDK.
type MilvusStore struct {
	client client.Client
	cfg    config.BackendConfig
	logger *zap.Logger
}

// NewMilvusStore connects to Milvus and ensures the configured
// collection exists, is indexed, and is loaded.
func NewMilvusStore(ctx context.Context, cfg config.BackendConfig, logger *zap.Logger) (*MilvusStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	addr := cfg.Addr()

	c, err := client.NewClient(ctx, client.Config{
		Address:  addr,
		Username: cfg.Username,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	store := &MilvusStore{
		client: c,
		cfg:    cfg,
		logger: logger.Named("milvus"),
	}

	if err := store.ensureCollection(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}

	store.logger.Info("milvus store connected",
		zap.String("address", addr),
		zap.String("collection", cfg.CollectionName),
		zap.Int("dimension", cfg.Dimension),
	)

	return store, nil
}

func (s *MilvusStore) ensureCollection(ctx context.Context) error {
	name := s.cfg.CollectionName

	has, err := s.client.HasCollection(ctx, name)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", name, err)
	}

	if !has {
		schema := entity.NewSchema().WithName(name).
			WithField(entity.NewField().
				WithName(milvusIDField).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(milvusMaxIDLength).
				WithIsPrimaryKey(true)).
			WithField(entity.NewField().
				WithName(milvusContentField).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(milvusMaxContentLength)).
			WithField(entity.NewField().
				WithName(milvusVectorField).
				WithDataType(entity.FieldTypeFloatVector).
				WithDim(int64(s.cfg.Dimension)))

		if err := s.client.CreateCollection(ctx, schema, 1); err != nil {
			return fmt.Errorf("creating collection %s: %w", name, err)
		}

		idx, err := entity.NewIndexAUTOINDEX(s.metricType())
		if err != nil {
			return fmt.Errorf("building index: %w", err)
		}
		if err := s.client.CreateIndex(ctx, name, milvusVectorField, idx, false); err != nil {
			return fmt.Errorf("creating index on %s: %w", name, err)
		}
	}

	if err := s.client.LoadCollection(ctx, name, false); err != nil {
		return fmt.Errorf("loading collection %s: %w", name, err)
	}
	return nil
}

func (s *MilvusStore) metricType() entity.MetricType {
	switch s.cfg.Distance {
	case config.DistanceEuclidean:
		return entity.L2
	case config.DistanceDot:
		return entity.IP
	default:
		return entity.COSINE
	}
}

// Backend implements Store.
func (s *MilvusStore) Backend() config.BackendType { return config.BackendMilvus }

// Collection implements Store.
func (s *MilvusStore) Collection() string { return s.cfg.CollectionName }

// Upsert implements Store.
func (s *MilvusStore) Upsert(ctx context.Context, docs []Document) ([]string, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyDocuments
	}

	ids := make([]string, len(docs))
	contents := make([]string, len(docs))
	vectors := make([][]float32, len(docs))
	for i, doc := range docs {
		if len(doc.Vector) != s.cfg.Dimension {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(doc.Vector), s.cfg.Dimension)
		}
		id := doc.ID
		if id == "" {
			id = uuid.New().String()
		}
		ids[i] = id
		contents[i] = doc.Content
		vectors[i] = doc.Vector
	}

	_, err := s.client.Upsert(ctx, s.cfg.CollectionName, "",
		entity.NewColumnVarChar(milvusIDField, ids),
		entity.NewColumnVarChar(milvusContentField, contents),
		entity.NewColumnFloatVector(milvusVectorField, s.cfg.Dimension, vectors),
	)
	if err != nil {
		return nil, fmt.Errorf("upserting to %s: %w", s.cfg.CollectionName, err)
	}
	return ids, nil
}

// Query implements Store.
func (s *MilvusStore) Query(ctx context.Context, vector []float32, k int) ([]SearchResult, error) {
	if len(vector) != s.cfg.Dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), s.cfg.Dimension)
	}

	sp, err := entity.NewIndexAUTOINDEXSearchParam(1)
	if err != nil {
		return nil, fmt.Errorf("building search params: %w", err)
	}

	res, err := s.client.Search(ctx, s.cfg.CollectionName, nil, "",
		[]string{milvusIDField, milvusContentField},
		[]entity.Vector{entity.FloatVector(vector)},
		milvusVectorField, s.metricType(), k, sp,
	)
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", s.cfg.CollectionName, err)
	}

	var results []SearchResult
	for _, hits := range res {
		idCol, _ := hits.IDs.(*entity.ColumnVarChar)
		var contentCol *entity.ColumnVarChar
		for _, field := range hits.Fields {
			if field.Name() == milvusContentField {
				contentCol, _ = field.(*entity.ColumnVarChar)
			}
		}

		for i := 0; i < hits.ResultCount; i++ {
			result := SearchResult{Score: hits.Scores[i]}
			if idCol != nil {
				if v, err := idCol.ValueByIdx(i); err == nil {
					result.ID = v
				}
			}
			if contentCol != nil {
				if v, err := contentCol.ValueByIdx(i); err == nil {
					result.Content = v
				}
			}
			results = append(results, result)
		}
	}
	return results, nil
}

// Count implements Store.
func (s *MilvusStore) Count(ctx context.Context) (int, error) {
	stats, err := s.client.GetCollectionStatistics(ctx, s.cfg.CollectionName)
	if err != nil {
		return 0, fmt.Errorf("getting statistics for %s: %w", s.cfg.CollectionName, err)
	}
	n, err := strconv.Atoi(stats["row_count"])
	if err != nil {
		return 0, fmt.Errorf("parsing row count: %w", err)
	}
	return n, nil
}

// Ping implements Store.
func (s *MilvusStore) Ping(ctx context.Context) error {
	if _, err := s.client.HasCollection(ctx, s.cfg.CollectionName); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return nil
}

// Close implements Store.
func (s *MilvusStore) Close() error {
	return s.client.Close()
}

var _ Store = (*MilvusStore)(nil)
