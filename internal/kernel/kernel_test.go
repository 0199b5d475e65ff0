package kernel

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/hexkernel/internal/core/economy"
	"github.com/zeusync/hexkernel/internal/core/errs"
	"github.com/zeusync/hexkernel/internal/core/hex"
	"github.com/zeusync/hexkernel/internal/core/message"
	"github.com/zeusync/hexkernel/internal/core/observability/log"
	"github.com/zeusync/hexkernel/internal/core/storage"
	"github.com/zeusync/hexkernel/internal/core/terrain"
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.Terrain = terrain.Options{Seed: 21, Capacity: 32}
	opts.PreloadRadius = 1
	opts.Pathfinding.Workers = 2
	return opts
}

// start runs k in the background and returns a stop function that waits for
// Run to return.
func start(t *testing.T, k *Kernel) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- k.Run(ctx) }()
	require.Eventually(t, k.Running, time.Second, time.Millisecond)

	return func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("kernel did not stop")
			return nil
		}
	}
}

// waitFor drains events until match accepts one.
func waitFor[E message.Event](t *testing.T, k *Kernel, match func(E) bool) E {
	t.Helper()
	var found E
	require.Eventually(t, func() bool {
		for {
			ev, ok := k.Events().TryRecv()
			if !ok {
				return false
			}
			if e, ok := ev.(E); ok && match(e) {
				found = e
				return true
			}
		}
	}, 2*time.Second, 2*time.Millisecond)
	return found
}

func TestNew_Validation(t *testing.T) {
	opts := testOptions()
	opts.SpawnCenter = hex.New(-1, 0)
	_, err := New(context.Background(), opts, log.NewNop())
	require.ErrorIs(t, err, errs.ErrValidation)

	opts = testOptions()
	opts.Storage.Driver = "cassandra"
	_, err = New(context.Background(), opts, log.NewNop())
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestKernel_PreloadsSpawnArea(t *testing.T) {
	k, err := New(context.Background(), testOptions(), log.NewNop())
	require.NoError(t, err)
	defer func() { require.NoError(t, k.Close()) }()

	cc, _ := terrain.Locate(hex.MapSize/2, hex.MapSize/2)
	assert.True(t, k.Cache().IsHot(cc))
	assert.Equal(t, 9, k.Cache().Len())
}

func TestKernel_SpawnAndPath(t *testing.T) {
	ctx := context.Background()
	k, err := New(ctx, testOptions(), log.NewNop())
	require.NoError(t, err)

	from, to := hex.New(512, 512), hex.New(516, 512)
	for q := from.Q; q <= to.Q; q++ {
		require.NoError(t, k.Cache().Set(ctx, q, from.R, terrain.Land))
	}

	stop := start(t, k)
	require.NoError(t, k.Submit(message.SpawnEntity{EntityType: "unit", Terrain: terrain.Land, Preferred: &from}))
	spawned := waitFor(t, k, func(message.EntitySpawned) bool { return true })
	assert.Equal(t, from, spawned.Position)

	require.NoError(t, k.Submit(message.RequestPath{ID: spawned.ID, Terrain: terrain.Land, Start: from, Goal: to}))
	found := waitFor(t, k, func(e message.PathFound) bool { return e.ID == spawned.ID })
	assert.Equal(t, from, found.Path[0])
	assert.Equal(t, to, found.Path[len(found.Path)-1])
	assert.Equal(t, len(found.Path)-1, found.Cost)

	require.NoError(t, stop())

	require.ErrorIs(t, k.Submit(message.RemoveEntity{ID: spawned.ID}), errs.ErrChannelClosed)
	require.ErrorIs(t, k.Run(ctx), ErrClosed)
}

func TestKernel_InitialResources(t *testing.T) {
	opts := testOptions()
	opts.Actor.InitialResources = decimal.NewFromInt(250)
	k, err := New(context.Background(), opts, log.NewNop())
	require.NoError(t, err)
	stop := start(t, k)
	defer func() { require.NoError(t, stop()) }()

	seen := map[economy.Resource]bool{}
	for range economy.ResourceCount {
		ev := waitFor(t, k, func(e message.ResourceChanged) bool { return !seen[e.Resource] })
		seen[ev.Resource] = true
		assert.Equal(t, "250", ev.Current.String())
	}
	assert.Len(t, seen, int(economy.ResourceCount))
}

func TestKernel_ShutdownPersistsTerrain(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "terrain.db")

	opts := testOptions()
	opts.Storage = storage.Config{Driver: storage.DriverBolt, Path: path}
	opts.Terrain.AsyncEviction = true

	k, err := New(ctx, opts, log.NewNop())
	require.NoError(t, err)
	stop := start(t, k)

	require.NoError(t, k.Cache().Set(ctx, 512, 512, terrain.Water))
	require.NoError(t, k.Cache().Set(ctx, 513, 512, terrain.Land))
	require.NoError(t, stop())

	store, err := storage.OpenBolt(path)
	require.NoError(t, err)
	defer store.Close()

	cc, idx := terrain.Locate(512, 512)
	blob, ok, err := store.Load(ctx, cc.X, cc.Y)
	require.NoError(t, err)
	require.True(t, ok)

	tiles, err := terrain.Decode(cc, blob)
	require.NoError(t, err)
	assert.Equal(t, terrain.Water, tiles[idx])
	assert.Equal(t, terrain.Land, tiles[idx+1])
}
