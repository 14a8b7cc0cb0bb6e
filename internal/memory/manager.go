// Package memory coordinates the named vector collections behind the
// memory subsystem: knowledge (always), reflection (when a reflection
// collection is configured), and workspace (when workspace memory is
// enabled).
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/fathomworks/memvault/internal/config"
	"github.com/fathomworks/memvault/internal/vectorstore"
)

// Collection slot names exposed through Store.
const (
	CollectionKnowledge  = "knowledge"
	CollectionReflection = "reflection"
	CollectionWorkspace  = "workspace"
)

// ErrNotConnected is returned by operations that need a prior
// successful Connect.
var ErrNotConnected = errors.New("memory manager not connected")

// StoreFactory constructs and tears down storage engine handles.
// *vectorstore.Factory is the production implementation.
type StoreFactory interface {
	Create(ctx context.Context, cfg config.BackendConfig) (vectorstore.Store, error)
	Disconnect(store vectorstore.Store)
}

// Options configures a Manager.
type Options struct {
	// Source supplies the configuration variables. Required.
	Source config.Source

	// Resolver resolves backend configurations. Defaults to a
	// resolver with the manager's logger.
	Resolver *config.Resolver

	// Factory constructs storage engine handles. Defaults to a
	// vectorstore.Factory with the manager's logger.
	Factory StoreFactory

	// ResolveOptions are applied to every resolution call, typically
	// a dimension override from the embedding pipeline.
	ResolveOptions []config.ResolveOption

	// Logger defaults to a nop logger.
	Logger *zap.Logger
}

// Manager owns up to three independently configured collection
// handles. Connect is all-or-nothing: either every enabled collection
// comes up, or everything already constructed is torn down and the
// failure propagates. The manager performs no retries.
type Manager struct {
	src      config.Source
	resolver *config.Resolver
	factory  StoreFactory
	resolve  []config.ResolveOption
	logger   *zap.Logger

	mu         sync.RWMutex
	knowledge  vectorstore.Store
	reflection vectorstore.Store
	workspace  vectorstore.Store
	connected  bool
}

// NewManager creates a Manager. It performs no I/O; connection happens
// in Connect.
func NewManager(opts Options) (*Manager, error) {
	if opts.Source == nil {
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
	factory := opts.Factory
	if factory == nil {
		factory = vectorstore.NewFactory(logger)
	}

	return &Manager{
		src:      opts.Source,
		resolver: resolver,
		factory:  factory,
		resolve:  opts.ResolveOptions,
		logger:   logger.Named("memory"),
	}, nil
}

// Connect resolves and validates every enabled collection, then
// constructs them in a fixed order: knowledge, reflection, workspace.
// Validation errors surface before any connection attempt. Any
// construction failure tears down the collections already built in
// this call (best effort) and propagates. Connect on an already
// connected manager is a no-op.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return nil
	}

	plan, err := m.plan()
	if err != nil {
		return err
	}

	var built []vectorstore.Store
	teardown := func() {
		for _, store := range built {
			m.factory.Disconnect(store)
		}
	}

	knowledge, err := m.factory.Create(ctx, plan.knowledge)
	if err != nil {
		return fmt.Errorf("connecting knowledge collection: %w", err)
	}
	built = append(built, knowledge)

	var reflection vectorstore.Store
	if plan.reflectionEnabled {
		reflection, err = m.factory.Create(ctx, plan.reflection)
		if err != nil {
			teardown()
			return fmt.Errorf("connecting reflection collection: %w", err)
		}
		built = append(built, reflection)
	}

	var workspace vectorstore.Store
	if plan.workspaceEnabled {
		workspace, err = m.factory.Create(ctx, plan.workspace)
		if err != nil {
			teardown()
			return fmt.Errorf("connecting workspace collection: %w", err)
		}
	}

	m.knowledge = knowledge
	m.reflection = reflection
	m.workspace = workspace
	m.connected = true

	m.logger.Info("memory collections connected",
		zap.String("backend", string(plan.knowledge.Type)),
		zap.Bool("reflection", plan.reflectionEnabled),
		zap.Bool("workspace", plan.workspaceEnabled),
	)
	return nil
}

// connectPlan holds the fully resolved, validated configurations for
// one Connect call.
type connectPlan struct {
	knowledge         config.BackendConfig
	reflection        config.BackendConfig
	reflectionEnabled bool
	workspace         config.BackendConfig
	workspaceEnabled  bool
}

// plan resolves and validates all enabled collection configurations
// up front, so no connection is attempted when any of them is invalid.
func (m *Manager) plan() (*connectPlan, error) {
	plan := &connectPlan{
		knowledge: m.resolver.Resolve(m.src, m.resolve...),
	}
	if err := config.Validate(plan.knowledge); err != nil {
		return nil, fmt.Errorf("knowledge collection: %w", err)
	}

	// The reflection collection shares the knowledge backend; only the
	// collection name differs. Blank or absent means disabled, which
	// is the normal path, not a degraded one.
	if name := config.ReflectionCollection(m.src); name != "" {
		plan.reflectionEnabled = true
		plan.reflection = plan.knowledge
		plan.reflection.CollectionName = name
		if err := config.Validate(plan.reflection); err != nil {
			return nil, fmt.Errorf("reflection collection: %w", err)
		}
	}

	// The workspace collection resolves independently and may use a
	// different backend, dimension, or credentials.
	if config.WorkspaceEnabled(m.src) {
		plan.workspaceEnabled = true
		plan.workspace = m.resolver.ResolveWorkspace(m.src, m.resolve...)
		if err := config.Validate(plan.workspace); err != nil {
			return nil, fmt.Errorf("workspace collection: %w", err)
		}
	}

	return plan, nil
}

// Store returns the handle for a named collection slot, or nil when
// the slot is disabled, unknown, or the manager is not connected.
func (m *Manager) Store(name string) vectorstore.Store {
	m.mu.RLock()
	defer m.mu.RUnlock()

	switch name {
	case CollectionKnowledge:
		return m.knowledge
	case CollectionReflection:
		return m.reflection
	case CollectionWorkspace:
		return m.workspace
	default:
		return nil
	}
}

// Knowledge returns the knowledge collection handle, or nil before
// Connect.
func (m *Manager) Knowledge() vectorstore.Store { return m.Store(CollectionKnowledge) }

// Reflection returns the reflection collection handle, or nil when
// disabled.
func (m *Manager) Reflection() vectorstore.Store { return m.Store(CollectionReflection) }

// Workspace returns the workspace collection handle, or nil when
// disabled.
func (m *Manager) Workspace() vectorstore.Store { return m.Store(CollectionWorkspace) }

// Connected reports whether Connect has completed successfully.
func (m *Manager) Connected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Disconnect closes every open collection handle. Close failures are
// swallowed by the factory. Safe to call on a never-connected manager.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, store := range []vectorstore.Store{m.workspace, m.reflection, m.knowledge} {
		if store != nil {
			m.factory.Disconnect(store)
		}
	}
	m.knowledge = nil
	m.reflection = nil
	m.workspace = nil
	m.connected = false
}
