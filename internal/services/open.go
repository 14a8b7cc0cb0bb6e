package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fathomworks/memvault/internal/config"
	"github.com/fathomworks/memvault/internal/memory"
	"github.com/fathomworks/memvault/internal/vectorstore"
)

// OpenOptions carries the collaborators for Open. Zero values get
// sensible defaults; only Source-derived state varies per call.
type OpenOptions struct {
	Resolver       *config.Resolver
	Factory        memory.StoreFactory
	Logger         *zap.Logger
	ResolveOptions []config.ResolveOption
}

// Open resolves the full multi-collection configuration from src,
// validates it, and returns the cached connected manager for it,
// constructing one through the cache on first use. Validation errors
// surface before any connection attempt and are never cached.
func Open(ctx context.Context, cache *Cache, src config.Source, opts OpenOptions) (*memory.Manager, error) {
	if cache == nil {
		return nil, fmt.Errorf("%w: cache is required", vectorstore.ErrInvalidConfig)
	}
	if src == nil {
		return nil, fmt.Errorf("%w: source is required", vectorstore.ErrInvalidConfig)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = config.NewResolver(logger)
	}

	knowledge := resolver.Resolve(src, opts.ResolveOptions...)
	if err := config.Validate(knowledge); err != nil {
		return nil, fmt.Errorf("knowledge collection: %w", err)
	}

	reflection := config.ReflectionCollection(src)
	if reflection != "" {
		cfg := knowledge
		cfg.CollectionName = reflection
		if err := config.Validate(cfg); err != nil {
			return nil, fmt.Errorf("reflection collection: %w", err)
		}
	}

	var workspace config.BackendConfig
	workspaceEnabled := config.WorkspaceEnabled(src)
	if workspaceEnabled {
		workspace = resolver.ResolveWorkspace(src, opts.ResolveOptions...)
		if err := config.Validate(workspace); err != nil {
			return nil, fmt.Errorf("workspace collection: %w", err)
		}
	}

	key := Key(knowledge, reflection, workspaceEnabled, workspace)

	return cache.GetOrCreate(ctx, key, func(ctx context.Context) (*memory.Manager, error) {
		mgr, err := memory.NewManager(memory.Options{
			Source:         src,
			Resolver:       resolver,
			Factory:        opts.Factory,
			ResolveOptions: opts.ResolveOptions,
			Logger:         logger,
		})
		if err != nil {
			return nil, err
		}
		if err := mgr.Connect(ctx); err != nil {
			return nil, err
		}
		return mgr, nil
	})
}
