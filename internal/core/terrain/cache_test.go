package terrain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/hexkernel/internal/core/errs"
	"github.com/zeusync/hexkernel/internal/core/hex"
)

type fakeStore struct {
	mx      sync.Mutex
	blobs   map[ChunkCoord][]byte
	saves   int
	failing bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{blobs: make(map[ChunkCoord][]byte)}
}

func (s *fakeStore) Load(_ context.Context, x, y int) ([]byte, bool, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	b, ok := s.blobs[ChunkCoord{X: x, Y: y}]
	return b, ok, nil
}

func (s *fakeStore) Save(_ context.Context, x, y int, blob []byte) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.failing {
		return errors.New("disk full")
	}
	s.saves++
	s.blobs[ChunkCoord{X: x, Y: y}] = append([]byte(nil), blob...)
	return nil
}

func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) has(cc ChunkCoord) bool {
	s.mx.Lock()
	defer s.mx.Unlock()
	_, ok := s.blobs[cc]
	return ok
}

func (s *fakeStore) setFailing(v bool) {
	s.mx.Lock()
	s.failing = v
	s.mx.Unlock()
}

// tileIn returns the origin tile of chunk (cx, 0).
func tileIn(cx int) (int, int) {
	return cx * ChunkSize, 0
}

// flip loads the tile's chunk and writes a value that differs from the
// current one, so the chunk is dirty afterwards.
func flip(t *testing.T, c *Cache, x, y int) Type {
	t.Helper()
	cc, _ := Locate(x, y)
	require.NoError(t, c.Preload(context.Background(), cc))
	next := Water
	if c.Get(x, y) == Water {
		next = Land
	}
	require.NoError(t, c.Set(context.Background(), x, y, next))
	return next
}

func TestCache_GetAfterSet(t *testing.T) {
	ctx := context.Background()
	c := NewCache(Options{Seed: 7, Capacity: 4}, newFakeStore(), nil)

	require.NoError(t, c.Set(ctx, 100, 200, Water))
	assert.Equal(t, Water, c.Get(100, 200))
	require.NoError(t, c.Set(ctx, 100, 200, Land))
	assert.Equal(t, Land, c.Get(100, 200))
	assert.Equal(t, Land, c.GetCoord(hex.New(100, 200)))
}

func TestCache_Bounds(t *testing.T) {
	ctx := context.Background()
	c := NewCache(Options{}, newFakeStore(), nil)

	assert.Equal(t, Obstacle, c.Get(-1, 0))
	assert.Equal(t, Obstacle, c.Get(0, hex.MapSize))
	require.ErrorIs(t, c.Set(ctx, hex.MapSize, 0, Land), errs.ErrValidation)
	require.ErrorIs(t, c.Set(ctx, 0, 0, Type(9)), errs.ErrValidation)
	require.ErrorIs(t, c.Preload(ctx, ChunkCoord{X: ChunksPerSide}), errs.ErrValidation)
}

func TestCache_GetNeverLoads(t *testing.T) {
	c := NewCache(Options{Seed: 1}, newFakeStore(), nil)

	assert.Equal(t, Obstacle, c.Get(10, 10))
	assert.Zero(t, c.Len())
	assert.False(t, c.IsHot(ChunkCoord{}))
}

func TestCache_CapacityBound(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	c := NewCache(Options{Seed: 3, Capacity: 2}, store, nil)

	for cx := 0; cx < 5; cx++ {
		x, y := tileIn(cx)
		require.NoError(t, c.Set(ctx, x, y, Water))
		assert.LessOrEqual(t, c.Len(), 2)
	}

	// least recently loaded chunks went first
	assert.False(t, c.IsHot(ChunkCoord{X: 0}))
	assert.False(t, c.IsHot(ChunkCoord{X: 2}))
	assert.True(t, c.IsHot(ChunkCoord{X: 3}))
	assert.True(t, c.IsHot(ChunkCoord{X: 4}))

	st := c.Stats()
	assert.Equal(t, uint64(3), st.Evictions)
	assert.Equal(t, 2, st.Hot)
	assert.Equal(t, 2, st.Capacity)
}

func TestCache_EvictionPersists(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	c := NewCache(Options{Seed: 3, Capacity: 1}, store, nil)

	want := flip(t, c, 5, 5)
	x, y := tileIn(1)
	require.NoError(t, c.Set(ctx, x, y, Land))

	require.True(t, store.has(ChunkCoord{}))
	assert.Equal(t, Obstacle, c.Get(5, 5))

	require.NoError(t, c.Preload(ctx, ChunkCoord{}))
	assert.Equal(t, want, c.Get(5, 5))
	assert.Equal(t, uint64(1), c.Stats().Loads)
}

func TestCache_CleanEvictionSkipsStore(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	c := NewCache(Options{Seed: 3, Capacity: 1}, store, nil)

	require.NoError(t, c.Preload(ctx, ChunkCoord{}))
	require.NoError(t, c.Preload(ctx, ChunkCoord{X: 1}))

	assert.False(t, store.has(ChunkCoord{}))
	assert.Equal(t, uint64(2), c.Stats().Generations)
}

func TestCache_PersistFailureKeepsEdits(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.setFailing(true)
	c := NewCache(Options{Seed: 3, Capacity: 1}, store, nil)

	want := flip(t, c, 1, 1)
	require.NoError(t, c.Preload(ctx, ChunkCoord{X: 1}))

	st := c.Stats()
	assert.Equal(t, 1, st.PendingWrites)
	assert.Equal(t, uint64(1), st.PersistFailures)

	// served from the write-back buffer while the store is down
	require.NoError(t, c.Preload(ctx, ChunkCoord{}))
	assert.Equal(t, want, c.Get(1, 1))

	store.setFailing(false)
	require.NoError(t, c.Flush(ctx))
	assert.True(t, store.has(ChunkCoord{}))
	assert.Zero(t, c.Stats().PendingWrites)
}

func TestCache_CorruptBlobRegenerates(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	cc := ChunkCoord{X: 2, Y: 3}

	blob := Encode(cc, &Tiles{})
	blob[20] ^= 0xFF
	store.blobs[cc] = blob

	c := NewCache(Options{Seed: 11}, store, nil)
	require.NoError(t, c.Preload(ctx, cc))

	want := NewGenerator(DefaultMountainThreshold).Generate(11, cc)
	ox, oy := cc.Origin()
	for i := 0; i < ChunkArea; i += 97 {
		assert.Equal(t, want[i], c.Get(ox+i%ChunkSize, oy+i/ChunkSize))
	}
	st := c.Stats()
	assert.Equal(t, uint64(1), st.Corrupt)
	assert.Equal(t, uint64(1), st.Generations)
}

func TestCache_ColdStoreErrorFailsLoad(t *testing.T) {
	c := NewCache(Options{}, errStore{}, nil)
	err := c.Set(context.Background(), 0, 0, Land)
	require.Error(t, err)
	assert.Zero(t, c.Len())
}

type errStore struct{}

func (errStore) Load(context.Context, int, int) ([]byte, bool, error) {
	return nil, false, errors.New("connection reset")
}
func (errStore) Save(context.Context, int, int, []byte) error { return nil }
func (errStore) Close() error                                 { return nil }

func TestCache_Flush(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	c := NewCache(Options{Seed: 5}, store, nil)

	flip(t, c, 40, 40)
	require.NoError(t, c.Preload(ctx, ChunkCoord{X: 3}))
	require.NoError(t, c.Flush(ctx))

	cc, _ := Locate(40, 40)
	assert.True(t, store.has(cc))
	assert.False(t, store.has(ChunkCoord{X: 3}))
	assert.True(t, c.IsHot(cc))

	saves := store.saves
	require.NoError(t, c.Flush(ctx))
	assert.Equal(t, saves, store.saves, "clean chunks are not saved twice")
}

func TestCache_AsyncEviction(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := newFakeStore()
	c := NewCache(Options{Seed: 5, Capacity: 1, AsyncEviction: true}, store, nil)

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	flip(t, c, 0, 0)
	x, y := tileIn(1)
	flip(t, c, x, y)

	require.Eventually(t, func() bool { return store.has(ChunkCoord{}) }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.True(t, store.has(ChunkCoord{X: 1}), "final flush saves hot chunks")
}

func TestCache_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewCache(Options{Seed: 9, Capacity: 3}, newFakeStore(), nil)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				x := ((w + i) % 6) * ChunkSize
				if err := c.Set(ctx, x, w, Land); err != nil && !errors.Is(err, errs.ErrResourceExhausted) {
					t.Error(fmt.Errorf("worker %d: %w", w, err))
					return
				}
				_ = c.Get(x, w)
				assert.LessOrEqual(t, c.Len(), 3)
			}
		}(w)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 3)
}
