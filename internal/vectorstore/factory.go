package vectorstore

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fathomworks/memvault/internal/config"
)

// Factory constructs connected storage engine handles from resolved
// backend configurations.
//
// One Create call is exactly one connection attempt: the factory never
// retries, and a failed attempt leaves nothing behind. Disconnect
// never fails, so orchestration cleanup paths can call it
// unconditionally.
type Factory struct {
	logger *zap.Logger
}

// NewFactory creates a Factory. A nil logger disables diagnostics.
func NewFactory(logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{logger: logger.Named("vectorstore")}
}

// Create builds a connected Store for the configuration's backend
// type. The configuration is expected to have passed config.Validate.
func (f *Factory) Create(ctx context.Context, cfg config.BackendConfig) (Store, error) {
	if cfg.IsFallback() {
		FallbackSubstitutionsTotal.WithLabelValues(string(cfg.FallbackFrom)).Inc()
	}

	var store Store
	var err error

	switch cfg.Type {
	case config.BackendInMemory:
		store, err = NewMemoryStore(cfg, f.logger)
	case config.BackendQdrant:
		store, err = NewQdrantStore(ctx, cfg, f.logger)
	case config.BackendMilvus:
		store, err = NewMilvusStore(ctx, cfg, f.logger)
	case config.BackendChroma:
		store, err = NewChromaStore(ctx, cfg, f.logger)
	case config.BackendPinecone:
		store, err = NewPineconeStore(ctx, cfg, f.logger)
	default:
		return nil, fmt.Errorf("%w: unsupported backend type %q", ErrInvalidConfig, cfg.Type)
	}

	if err != nil {
		ConstructionsTotal.WithLabelValues(string(cfg.Type), "error").Inc()
		return nil, err
	}

	ConstructionsTotal.WithLabelValues(string(cfg.Type), "success").Inc()
	OpenStores.WithLabelValues(string(cfg.Type)).Inc()
	return store, nil
}

// Disconnect closes a store handle. Failures are logged and swallowed;
// a nil store is a no-op.
func (f *Factory) Disconnect(store Store) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		f.logger.Warn("failed to close store",
			zap.String("backend", string(store.Backend())),
			zap.String("collection", store.Collection()),
			zap.Error(err),
		)
	}
	OpenStores.WithLabelValues(string(store.Backend())).Dec()
}
