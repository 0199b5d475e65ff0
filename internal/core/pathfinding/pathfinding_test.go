package pathfinding

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/hexkernel/internal/core/entity"
	"github.com/zeusync/hexkernel/internal/core/errs"
	"github.com/zeusync/hexkernel/internal/core/hex"
	"github.com/zeusync/hexkernel/internal/core/observability/log"
	"github.com/zeusync/hexkernel/internal/core/queue"
	"github.com/zeusync/hexkernel/internal/core/terrain"
	"github.com/zeusync/hexkernel/internal/core/terrain/terraintest"
)

func requireContiguous(t *testing.T, path []hex.Coord) {
	t.Helper()
	for i := 1; i < len(path); i++ {
		require.Equal(t, 1, hex.Distance(path[i-1], path[i]), "step %d: %s -> %s", i, path[i-1], path[i])
	}
}

func TestFindPath(t *testing.T) {
	t.Run("Open Field", func(t *testing.T) {
		grid := terraintest.NewGrid(terrain.Land)
		start, goal := hex.New(10, 10), hex.New(16, 7)

		path, err := FindPath(grid, Query{Start: start, Goal: goal, Affinity: terrain.Land}, SearchOptions{})
		require.NoError(t, err)
		assert.Equal(t, start, path[0])
		assert.Equal(t, goal, path[len(path)-1])
		assert.Len(t, path, hex.Distance(start, goal)+1)
		requireContiguous(t, path)
	})

	t.Run("Water Start For Land Searcher", func(t *testing.T) {
		grid := terraintest.NewGrid(terrain.Land).Set(hex.New(10, 10), terrain.Water)
		_, err := FindPath(grid, Query{Start: hex.New(10, 10), Goal: hex.New(12, 10), Affinity: terrain.Land}, SearchOptions{})
		require.ErrorIs(t, err, errs.ErrResourceExhausted)
	})

	t.Run("Obstacle Goal", func(t *testing.T) {
		grid := terraintest.NewGrid(terrain.Land).Set(hex.New(12, 10), terrain.Obstacle)
		_, err := FindPath(grid, Query{Start: hex.New(10, 10), Goal: hex.New(12, 10), Affinity: terrain.Land}, SearchOptions{})
		require.ErrorIs(t, err, errs.ErrResourceExhausted)
	})

	t.Run("Off Map", func(t *testing.T) {
		grid := terraintest.NewGrid(terrain.Land)
		_, err := FindPath(grid, Query{Start: hex.New(-1, 0), Goal: hex.New(1, 0), Affinity: terrain.Land}, SearchOptions{})
		require.ErrorIs(t, err, errs.ErrValidation)
	})

	t.Run("Same Tile", func(t *testing.T) {
		grid := terraintest.NewGrid(terrain.Water)
		path, err := FindPath(grid, Query{Start: hex.New(3, 3), Goal: hex.New(3, 3), Affinity: terrain.Water}, SearchOptions{})
		require.NoError(t, err)
		assert.Equal(t, []hex.Coord{hex.New(3, 3)}, path)
	})

	t.Run("Around A Wall", func(t *testing.T) {
		grid := terraintest.NewGrid(terrain.Land)
		for r := 0; r < 20; r++ {
			grid.Set(hex.New(20, r), terrain.Obstacle)
		}
		start, goal := hex.New(15, 5), hex.New(25, 5)

		path, err := FindPath(grid, Query{Start: start, Goal: goal, Affinity: terrain.Land}, SearchOptions{})
		require.NoError(t, err)
		requireContiguous(t, path)
		for _, c := range path {
			assert.NotEqual(t, terrain.Obstacle, grid.GetCoord(c))
		}
		assert.Greater(t, len(path)-1, hex.Distance(start, goal))
	})

	t.Run("Dynamic Obstacles Exclude Start", func(t *testing.T) {
		grid := terraintest.NewGrid(terrain.Land)
		start, goal := hex.New(5, 5), hex.New(7, 5)
		blocked := map[hex.Coord]struct{}{start: {}, hex.New(6, 5): {}}

		path, err := FindPath(grid, Query{Start: start, Goal: goal, Affinity: terrain.Land, Obstacles: blocked}, SearchOptions{})
		require.NoError(t, err)
		assert.NotContains(t, path, hex.New(6, 5))
		assert.Len(t, path, 4)
	})

	t.Run("Expansion Limit", func(t *testing.T) {
		grid := terraintest.NewGrid(terrain.Land)
		_, err := FindPath(grid, Query{Start: hex.New(0, 0), Goal: hex.New(900, 900), Affinity: terrain.Land}, SearchOptions{ExpansionLimit: 50})
		require.ErrorIs(t, err, errs.ErrResourceExhausted)
		assert.Contains(t, err.Error(), "expansion limit")
	})

	t.Run("No Corner Cutting", func(t *testing.T) {
		start := hex.New(10, 10)
		next := start.Add(hex.Directions[0])
		flankers, ok := hex.Flankers(start, next)
		require.True(t, ok)

		grid := terraintest.NewGrid(terrain.Land).Fill(terrain.Obstacle, flankers[0], flankers[1])

		path, err := FindPath(grid, Query{Start: start, Goal: next, Affinity: terrain.Land}, SearchOptions{})
		require.NoError(t, err)
		assert.Len(t, path, 2)

		path, err = FindPath(grid, Query{Start: start, Goal: next, Affinity: terrain.Land}, SearchOptions{NoCornerCutting: true})
		require.NoError(t, err)
		assert.Greater(t, len(path), 2)
		requireContiguous(t, path)
	})

	t.Run("Deterministic Ties", func(t *testing.T) {
		grid := terraintest.NewGrid(terrain.Land)
		q := Query{Start: hex.New(50, 50), Goal: hex.New(58, 46), Affinity: terrain.Land}
		a, err := FindPath(grid, q, SearchOptions{})
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			b, err := FindPath(grid, q, SearchOptions{})
			require.NoError(t, err)
			require.Equal(t, a, b)
		}
	})
}

func TestRandomDestination(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	start := hex.New(500, 500)

	t.Run("Within Bounds And Terrain", func(t *testing.T) {
		grid := terraintest.NewGrid(terrain.Water)
		for i := 0; i < 100; i++ {
			dest, ok := RandomDestination(grid, DestinationQuery{
				Start: start, Affinity: terrain.Water, MinDistance: 3, MaxDistance: 9,
			}, 10, rng)
			require.True(t, ok)
			d := hex.Distance(start, dest)
			// the sideways jitter may pull the tile slightly inside MinDistance
			assert.GreaterOrEqual(t, d, 2)
			assert.LessOrEqual(t, d, 12)
		}
	})

	t.Run("Zero Minimum Never Returns Start", func(t *testing.T) {
		grid := terraintest.NewGrid(terrain.Land)
		for i := 0; i < 50; i++ {
			dest, ok := RandomDestination(grid, DestinationQuery{Start: start, Affinity: terrain.Land, MaxDistance: 1}, 10, rng)
			require.True(t, ok)
			assert.Equal(t, 1, hex.Distance(start, dest))
		}
	})

	t.Run("Nothing Matches", func(t *testing.T) {
		grid := terraintest.NewGrid(terrain.Land)
		_, ok := RandomDestination(grid, DestinationQuery{Start: start, Affinity: terrain.Water, MinDistance: 1, MaxDistance: 5}, 10, rng)
		assert.False(t, ok)
	})

	t.Run("Occupied Rejected", func(t *testing.T) {
		grid := terraintest.NewGrid(terrain.Land)
		occupied := map[hex.Coord]struct{}{}
		for _, c := range hex.Ring(start, 1) {
			occupied[c] = struct{}{}
		}
		_, ok := RandomDestination(grid, DestinationQuery{Start: start, Affinity: terrain.Land, MinDistance: 1, MaxDistance: 1, Occupied: occupied}, 10, rng)
		assert.False(t, ok)
	})
}

func TestPool(t *testing.T) {
	work, results := queue.New[Work](), queue.New[Result]()
	grid := terraintest.NewGrid(terrain.Land)
	p := NewPool(work, results, grid, Options{Workers: 3, Seed: 7}, log.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	id := entity.NewID()
	const n = 20
	for i := 0; i < n; i++ {
		require.NoError(t, work.Send(Work{Kind: KindPath, ID: id, Terrain: terrain.Land, Start: hex.New(1, 1), Goal: hex.New(1+i, 1)}))
	}
	require.NoError(t, work.Send(Work{Kind: KindRandomDest, ID: id, Terrain: terrain.Land, Start: hex.New(100, 100), MinDistance: 2, MaxDistance: 4}))
	require.NoError(t, work.Send(Work{Kind: KindPath, ID: id, Terrain: terrain.Water, Start: hex.New(1, 1), Goal: hex.New(3, 1)}))

	costs := map[int]bool{}
	var dest, failed int
	for i := 0; i < n+2; i++ {
		res, err := results.Recv(context.Background())
		require.NoError(t, err)
		switch {
		case res.Kind == KindRandomDest:
			assert.True(t, res.Found)
			dest++
		case res.Reason != "":
			failed++
		default:
			assert.Equal(t, len(res.Path)-1, res.Cost)
			costs[res.Cost] = true
		}
	}
	assert.Len(t, costs, n)
	assert.Equal(t, 1, dest)
	assert.Equal(t, 1, failed)

	cancel()
	require.NoError(t, <-done)
}
