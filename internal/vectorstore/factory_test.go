package vectorstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fathomworks/memvault/internal/config"
	"github.com/fathomworks/memvault/internal/vectorstore"
)

func TestFactory_CreateInMemory(t *testing.T) {
	f := vectorstore.NewFactory(zap.NewNop())

	store, err := f.Create(context.Background(), config.BackendConfig{
		Type:           config.BackendInMemory,
		CollectionName: "knowledge",
		Dimension:      3,
		MaxVectors:     10,
	})
	require.NoError(t, err)
	defer f.Disconnect(store)

	assert.Equal(t, config.BackendInMemory, store.Backend())
	assert.Equal(t, "knowledge", store.Collection())
}

func TestFactory_CreateFallbackConfig(t *testing.T) {
	f := vectorstore.NewFactory(zap.NewNop())

	// A fallback-substituted config constructs the in-memory engine;
	// the origin tag changes observability, never behavior.
	store, err := f.Create(context.Background(), config.BackendConfig{
		Type:           config.BackendInMemory,
		CollectionName: "knowledge",
		Dimension:      3,
		MaxVectors:     10,
		FallbackFrom:   config.BackendQdrant,
	})
	require.NoError(t, err)
	defer f.Disconnect(store)

	assert.Equal(t, config.BackendInMemory, store.Backend())
}

func TestFactory_UnsupportedType(t *testing.T) {
	f := vectorstore.NewFactory(zap.NewNop())

	_, err := f.Create(context.Background(), config.BackendConfig{
		Type:           config.BackendType("weaviate"),
		CollectionName: "knowledge",
		Dimension:      3,
	})
	assert.ErrorIs(t, err, vectorstore.ErrInvalidConfig)
}

func TestFactory_DisconnectNil(t *testing.T) {
	f := vectorstore.NewFactory(zap.NewNop())
	assert.NotPanics(t, func() { f.Disconnect(nil) })
}

// erroringStore fails on Close so Disconnect's swallow path is
// observable.
type erroringStore struct {
	vectorstore.Store
	closed bool
}

func (s *erroringStore) Backend() config.BackendType { return config.BackendInMemory }
func (s *erroringStore) Collection() string          { return "test" }
func (s *erroringStore) Close() error {
	s.closed = true
	return errors.New("close failed")
}

func TestFactory_DisconnectSwallowsCloseErrors(t *testing.T) {
	f := vectorstore.NewFactory(zap.NewNop())
	store := &erroringStore{}

	assert.NotPanics(t, func() { f.Disconnect(store) })
	assert.True(t, store.closed)
}
