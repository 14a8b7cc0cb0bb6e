package services_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fathomworks/memvault/internal/config"
	"github.com/fathomworks/memvault/internal/memory"
	"github.com/fathomworks/memvault/internal/services"
	"github.com/fathomworks/memvault/internal/vectorstore"
)

func newTestManager(t *testing.T) *memory.Manager {
	t.Helper()
	mgr, err := memory.NewManager(memory.Options{
		Source: config.MapSource{},
		Logger: zap.NewNop(),
	})
	require.NoError(t, err)
	return mgr
}

func TestGetOrCreate_MemoizesSuccess(t *testing.T) {
	cache := services.NewCache(zap.NewNop())
	mgr := newTestManager(t)

	var calls atomic.Int32
	build := func(ctx context.Context) (*memory.Manager, error) {
		calls.Add(1)
		return mgr, nil
	}

	first, err := cache.GetOrCreate(context.Background(), "k", build)
	require.NoError(t, err)
	second, err := cache.GetOrCreate(context.Background(), "k", build)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, cache.Len())
}

func TestGetOrCreate_DistinctKeysBuildSeparately(t *testing.T) {
	cache := services.NewCache(zap.NewNop())

	var calls atomic.Int32
	build := func(ctx context.Context) (*memory.Manager, error) {
		calls.Add(1)
		return newTestManager(t), nil
	}

	a, err := cache.GetOrCreate(context.Background(), "a", build)
	require.NoError(t, err)
	b, err := cache.GetOrCreate(context.Background(), "b", build)
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 2, cache.Len())
}

func TestGetOrCreate_SingleFlight(t *testing.T) {
	cache := services.NewCache(zap.NewNop())
	mgr := newTestManager(t)

	var calls atomic.Int32
	build := func(ctx context.Context) (*memory.Manager, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return mgr, nil
	}

	const n = 16
	results := make([]*memory.Manager, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := cache.GetOrCreate(context.Background(), "same", build)
			assert.NoError(t, err)
			results[i] = got
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, got := range results {
		assert.Same(t, mgr, got)
	}
}

func TestGetOrCreate_FailureIsNotCached(t *testing.T) {
	cache := services.NewCache(zap.NewNop())
	mgr := newTestManager(t)

	var calls atomic.Int32
	build := func(ctx context.Context) (*memory.Manager, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("backend unavailable")
		}
		return mgr, nil
	}

	_, err := cache.GetOrCreate(context.Background(), "k", build)
	require.Error(t, err)
	assert.Equal(t, 0, cache.Len())

	got, err := cache.GetOrCreate(context.Background(), "k", build)
	require.NoError(t, err)
	assert.Same(t, mgr, got)
	assert.Equal(t, int32(2), calls.Load())
}

// trackingStore counts Close calls.
type trackingStore struct {
	cfg    config.BackendConfig
	closes int
}

func (s *trackingStore) Backend() config.BackendType { return s.cfg.Type }
func (s *trackingStore) Collection() string          { return s.cfg.CollectionName }
func (s *trackingStore) Upsert(ctx context.Context, docs []vectorstore.Document) ([]string, error) {
	return nil, nil
}
func (s *trackingStore) Query(ctx context.Context, vector []float32, k int) ([]vectorstore.SearchResult, error) {
	return nil, nil
}
func (s *trackingStore) Count(ctx context.Context) (int, error) { return 0, nil }
func (s *trackingStore) Ping(ctx context.Context) error         { return nil }
func (s *trackingStore) Close() error                           { s.closes++; return nil }

// trackingFactory hands out trackingStores across every manager built
// through it.
type trackingFactory struct {
	created []*trackingStore
}

func (f *trackingFactory) Create(ctx context.Context, cfg config.BackendConfig) (vectorstore.Store, error) {
	store := &trackingStore{cfg: cfg}
	f.created = append(f.created, store)
	return store, nil
}

func (f *trackingFactory) Disconnect(store vectorstore.Store) {
	if store != nil {
		_ = store.Close()
	}
}

func TestClose_DisconnectsEveryCachedManager(t *testing.T) {
	cache := services.NewCache(zap.NewNop())
	factory := &trackingFactory{}

	for _, key := range []string{"a", "b"} {
		_, err := cache.GetOrCreate(context.Background(), key, func(ctx context.Context) (*memory.Manager, error) {
			mgr, err := memory.NewManager(memory.Options{
				Source:  config.MapSource{},
				Factory: factory,
				Logger:  zap.NewNop(),
			})
			if err != nil {
				return nil, err
			}
			if err := mgr.Connect(ctx); err != nil {
				return nil, err
			}
			return mgr, nil
		})
		require.NoError(t, err)
	}
	require.Equal(t, 2, cache.Len())
	require.Len(t, factory.created, 2)

	cache.Close()
	// A second Close finds an empty cache and must not re-close.
	cache.Close()

	assert.Equal(t, 0, cache.Len())
	for _, store := range factory.created {
		assert.Equal(t, 1, store.closes, "collection %s", store.Collection())
	}
}
