// Package terraintest provides in-memory terrain readers for tests.
package terraintest

import (
	"sync"

	"github.com/zeusync/hexkernel/internal/core/hex"
	"github.com/zeusync/hexkernel/internal/core/terrain"
)

// Grid is a terrain.Reader where every in-bounds tile has a fill type unless
// overridden. Out-of-bounds tiles read as Obstacle.
type Grid struct {
	mx    sync.RWMutex
	fill  terrain.Type
	tiles map[hex.Coord]terrain.Type
}

func NewGrid(fill terrain.Type) *Grid {
	return &Grid{fill: fill, tiles: make(map[hex.Coord]terrain.Type)}
}

func (g *Grid) Set(c hex.Coord, t terrain.Type) *Grid {
	g.mx.Lock()
	g.tiles[c] = t
	g.mx.Unlock()
	return g
}

// Fill sets every tile of the given coordinates.
func (g *Grid) Fill(t terrain.Type, coords ...hex.Coord) *Grid {
	for _, c := range coords {
		g.Set(c, t)
	}
	return g
}

func (g *Grid) GetCoord(c hex.Coord) terrain.Type {
	if !c.InBounds() {
		return terrain.Obstacle
	}
	g.mx.RLock()
	defer g.mx.RUnlock()
	if t, ok := g.tiles[c]; ok {
		return t
	}
	return g.fill
}
