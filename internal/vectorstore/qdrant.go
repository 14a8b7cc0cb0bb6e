package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/fathomworks/memvault/internal/config"
)

// qdrantMaxMessageSize caps gRPC messages to handle large batches.
const qdrantMaxMessageSize = 50 * 1024 * 1024

// connectTimeout bounds the construction-time health check.
const connectTimeout = 5 * time.Second

// QdrantStore is a Store adapter over Qdrant's native gRPC client.
type QdrantStore struct {
	client *qdrant.Client
	cfg    config.BackendConfig
	logger *zap.Logger
}

// NewQdrantStore connects to Qdrant, verifies reachability, and
// ensures the configured collection exists.
func NewQdrantStore(ctx context.Context, cfg config.BackendConfig, logger *zap.Logger) (*QdrantStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	host, port, useTLS, err := qdrantEndpoint(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		UseTLS: useTLS,
		// Qdrant authenticates with a single API key; the password
		// slot carries it.
		APIKey: cfg.Password,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(qdrantMaxMessageSize),
				grpc.MaxCallSendMsgSize(qdrantMaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	store := &QdrantStore{
		client: client,
		cfg:    cfg,
		logger: logger.Named("qdrant"),
	}

	hctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := store.Ping(hctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("health check failed: %w", err)
	}

	if err := store.ensureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	store.logger.Info("qdrant store connected",
		zap.String("host", host),
		zap.Int("port", port),
		zap.String("collection", cfg.CollectionName),
		zap.Int("dimension", cfg.Dimension),
	)

	return store, nil
}

// qdrantEndpoint derives host/port/TLS from URL when set, falling back
// to the host and port fields.
func qdrantEndpoint(cfg config.BackendConfig) (string, int, bool, error) {
	if cfg.URL == "" {
		return cfg.Host, cfg.Port, false, nil
	}

	u, err := url.Parse(cfg.URL)
	if err != nil {
		return "", 0, false, fmt.Errorf("parsing url %q: %w", cfg.URL, err)
	}

	// A scheme-less host:port parses as Scheme:Opaque.
	if u.Opaque != "" {
		port := config.DefaultQdrantPort
		if n, err := strconv.Atoi(u.Opaque); err == nil {
			port = n
		}
		return u.Scheme, port, false, nil
	}

	port := config.DefaultQdrantPort
	if p := u.Port(); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			port = n
		}
	}
	host := u.Hostname()
	if host == "" {
		// A bare host without scheme or port parses into Path.
		host = u.Path
	}
	return host, port, u.Scheme == "https", nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.cfg.CollectionName)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", s.cfg.CollectionName, err)
	}
	if exists {
		return nil
	}

	params := &qdrant.VectorParams{
		Size:     uint64(s.cfg.Dimension),
		Distance: qdrantDistance(s.cfg.Distance),
	}
	if s.cfg.OnDisk {
		params.OnDisk = qdrant.PtrOf(true)
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.cfg.CollectionName,
		VectorsConfig:  qdrant.NewVectorsConfig(params),
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", s.cfg.CollectionName, err)
	}
	return nil
}

func qdrantDistance(d config.Distance) qdrant.Distance {
	switch d {
	case config.DistanceEuclidean:
		return qdrant.Distance_Euclid
	case config.DistanceDot:
		return qdrant.Distance_Dot
	default:
		return qdrant.Distance_Cosine
	}
}

// Backend implements Store.
func (s *QdrantStore) Backend() config.BackendType { return config.BackendQdrant }

// Collection implements Store.
func (s *QdrantStore) Collection() string { return s.cfg.CollectionName }

// Upsert implements Store.
func (s *QdrantStore) Upsert(ctx context.Context, docs []Document) ([]string, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyDocuments
	}

	points := make([]*qdrant.PointStruct, len(docs))
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

		payload := map[string]any{"content": doc.Content}
		for k, v := range doc.Metadata {
			payload[k] = v
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(id),
			Vectors: qdrant.NewVectors(doc.Vector...),
			Payload: qdrant.NewValueMap(payload),
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cfg.CollectionName,
		Points:         points,
	})
	if err != nil {
		return nil, fmt.Errorf("upserting to %s: %w", s.cfg.CollectionName, err)
	}
	return ids, nil
}

// Query implements Store.
func (s *QdrantStore) Query(ctx context.Context, vector []float32, k int) ([]SearchResult, error) {
	if len(vector) != s.cfg.Dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), s.cfg.Dimension)
	}

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.CollectionName,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", s.cfg.CollectionName, err)
	}

	results := make([]SearchResult, len(points))
	for i, point := range points {
		result := SearchResult{
			ID:    point.Id.GetUuid(),
			Score: point.Score,
		}
		if point.Payload != nil {
			result.Metadata = make(map[string]string)
			for k, v := range point.Payload {
				sv := v.GetStringValue()
				if k == "content" {
					result.Content = sv
					continue
				}
				result.Metadata[k] = sv
			}
		}
		results[i] = result
	}
	return results, nil
}

// Count implements Store.
func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	info, err := s.client.GetCollectionInfo(ctx, s.cfg.CollectionName)
	if err != nil {
		return 0, fmt.Errorf("getting collection info for %s: %w", s.cfg.CollectionName, err)
	}
	return int(info.GetPointsCount()), nil
}

// Ping implements Store.
func (s *QdrantStore) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return nil
}

// Close implements Store.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

var _ Store = (*QdrantStore)(nil)
