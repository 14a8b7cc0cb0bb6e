package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fathomworks/memvault/internal/config"
	"github.com/fathomworks/memvault/internal/memory"
	"github.com/fathomworks/memvault/internal/vectorstore"
)

// fakeStore is a minimal Store recording whether it was closed.
type fakeStore struct {
	cfg    config.BackendConfig
	closed bool
}

func (s *fakeStore) Backend() config.BackendType { return s.cfg.Type }
func (s *fakeStore) Collection() string          { return s.cfg.CollectionName }
func (s *fakeStore) Upsert(ctx context.Context, docs []vectorstore.Document) ([]string, error) {
	return nil, nil
}
func (s *fakeStore) Query(ctx context.Context, vector []float32, k int) ([]vectorstore.SearchResult, error) {
	return nil, nil
}
func (s *fakeStore) Count(ctx context.Context) (int, error) { return 0, nil }
func (s *fakeStore) Ping(ctx context.Context) error         { return nil }
func (s *fakeStore) Close() error                           { s.closed = true; return nil }

// fakeFactory constructs fakeStores and can be told to fail for a
// specific collection name.
type fakeFactory struct {
	failOn  string
	created []*fakeStore
}

func (f *fakeFactory) Create(ctx context.Context, cfg config.BackendConfig) (vectorstore.Store, error) {
	if cfg.CollectionName == f.failOn {
		return nil, errors.New("backend unavailable")
	}
	store := &fakeStore{cfg: cfg}
	f.created = append(f.created, store)
	return store, nil
}

func (f *fakeFactory) Disconnect(store vectorstore.Store) {
	if store != nil {
		_ = store.Close()
	}
}

func newManager(t *testing.T, src config.Source, factory memory.StoreFactory) *memory.Manager {
	t.Helper()
	m, err := memory.NewManager(memory.Options{
		Source:  src,
		Factory: factory,
		Logger:  zap.NewNop(),
	})
	require.NoError(t, err)
	return m
}

func TestNewManager_RequiresSource(t *testing.T) {
	_, err := memory.NewManager(memory.Options{})
	assert.Error(t, err)
}

func TestConnect_KnowledgeOnly(t *testing.T) {
	f := &fakeFactory{}
	m := newManager(t, config.MapSource{}, f)

	require.NoError(t, m.Connect(context.Background()))
	defer m.Disconnect()

	require.NotNil(t, m.Knowledge())
	assert.Equal(t, config.DefaultCollection, m.Knowledge().Collection())
	assert.Nil(t, m.Reflection())
	assert.Nil(t, m.Workspace())
	assert.True(t, m.Connected())
}

func TestConnect_ReflectionEnabled(t *testing.T) {
	f := &fakeFactory{}
	m := newManager(t, config.MapSource{
		config.KeyReflectionCollection: "reflections",
	}, f)

	require.NoError(t, m.Connect(context.Background()))
	defer m.Disconnect()

	require.NotNil(t, m.Reflection())
	assert.Equal(t, "reflections", m.Reflection().Collection())
	// Reflection shares the knowledge backend.
	assert.Equal(t, m.Knowledge().Backend(), m.Reflection().Backend())
}

func TestConnect_BlankReflectionIsDisabled(t *testing.T) {
	f := &fakeFactory{}
	m := newManager(t, config.MapSource{
		config.KeyReflectionCollection: "   ",
	}, f)

	require.NoError(t, m.Connect(context.Background()))
	defer m.Disconnect()

	assert.Nil(t, m.Reflection())
	// No construction was attempted for the blank slot.
	assert.Len(t, f.created, 1)
}

func TestConnect_WorkspaceEnabled(t *testing.T) {
	f := &fakeFactory{}
	m := newManager(t, config.MapSource{
		config.KeyUseWorkspaceMemory: "true",
	}, f)

	require.NoError(t, m.Connect(context.Background()))
	defer m.Disconnect()

	require.NotNil(t, m.Workspace())
	assert.Equal(t, config.DefaultWorkspaceCollection, m.Workspace().Collection())
}

func TestConnect_WorkspaceMayUseDifferentBackend(t *testing.T) {
	f := &fakeFactory{}
	m := newManager(t, config.MapSource{
		config.KeyType:                  "qdrant",
		config.KeyHost:                  "qdrant.internal",
		config.KeyUseWorkspaceMemory:    "true",
		"WORKSPACE_" + config.KeyType:   "pinecone",
		"WORKSPACE_" + config.KeyAPIKey: "pc-secret",
	}, f)

	require.NoError(t, m.Connect(context.Background()))
	defer m.Disconnect()

	assert.Equal(t, config.BackendQdrant, m.Knowledge().Backend())
	assert.Equal(t, config.BackendPinecone, m.Workspace().Backend())
}

func TestConnect_KnowledgeFailureIsFatal(t *testing.T) {
	f := &fakeFactory{failOn: config.DefaultCollection}
	m := newManager(t, config.MapSource{}, f)

	err := m.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "knowledge")
	assert.False(t, m.Connected())
	assert.Nil(t, m.Knowledge())
}

func TestConnect_ReflectionFailureTearsDownKnowledge(t *testing.T) {
	f := &fakeFactory{failOn: "reflections"}
	m := newManager(t, config.MapSource{
		config.KeyReflectionCollection: "reflections",
	}, f)

	err := m.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reflection")

	// All-or-nothing: the knowledge handle built earlier in this call
	// was disconnected during cleanup.
	require.Len(t, f.created, 1)
	assert.True(t, f.created[0].closed)
	assert.Nil(t, m.Knowledge())
	assert.False(t, m.Connected())
}

func TestConnect_WorkspaceFailureTearsDownEarlierCollections(t *testing.T) {
	f := &fakeFactory{failOn: config.DefaultWorkspaceCollection}
	m := newManager(t, config.MapSource{
		config.KeyReflectionCollection: "reflections",
		config.KeyUseWorkspaceMemory:   "true",
	}, f)

	err := m.Connect(context.Background())
	require.Error(t, err)

	require.Len(t, f.created, 2)
	for _, store := range f.created {
		assert.True(t, store.closed, "collection %s should be torn down", store.Collection())
	}
}

func TestConnect_ValidationErrorBeforeAnyConnection(t *testing.T) {
	f := &fakeFactory{}
	m := newManager(t, config.MapSource{
		config.KeyReflectionCollection: "bad name!",
	}, f)

	err := m.Connect(context.Background())
	require.Error(t, err)

	var verrs config.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
	assert.Empty(t, f.created)
}

func TestConnect_Idempotent(t *testing.T) {
	f := &fakeFactory{}
	m := newManager(t, config.MapSource{}, f)

	require.NoError(t, m.Connect(context.Background()))
	require.NoError(t, m.Connect(context.Background()))
	defer m.Disconnect()

	assert.Len(t, f.created, 1)
}

func TestDisconnect_ClosesAllHandles(t *testing.T) {
	f := &fakeFactory{}
	m := newManager(t, config.MapSource{
		config.KeyReflectionCollection: "reflections",
		config.KeyUseWorkspaceMemory:   "true",
	}, f)

	require.NoError(t, m.Connect(context.Background()))
	m.Disconnect()

	require.Len(t, f.created, 3)
	for _, store := range f.created {
		assert.True(t, store.closed)
	}
	assert.False(t, m.Connected())
	assert.Nil(t, m.Knowledge())
}

func TestDisconnect_NeverConnected(t *testing.T) {
	m := newManager(t, config.MapSource{}, &fakeFactory{})
	assert.NotPanics(t, m.Disconnect)
}

func TestStore_UnknownName(t *testing.T) {
	f := &fakeFactory{}
	m := newManager(t, config.MapSource{}, f)
	require.NoError(t, m.Connect(context.Background()))
	defer m.Disconnect()

	assert.Nil(t, m.Store("sessions"))
}

func TestConnect_DimensionOverridePropagates(t *testing.T) {
	f := &fakeFactory{}
	m, err := memory.NewManager(memory.Options{
		Source:         config.MapSource{config.KeyDimension: "768"},
		Factory:        f,
		ResolveOptions: []config.ResolveOption{config.WithDimensionOverride(384)},
		Logger:         zap.NewNop(),
	})
	require.NoError(t, err)

	require.NoError(t, m.Connect(context.Background()))
	defer m.Disconnect()

	require.Len(t, f.created, 1)
	assert.Equal(t, 384, f.created[0].cfg.Dimension)
}
