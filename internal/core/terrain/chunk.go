package terrain

import (
	"fmt"
	"sync/atomic"

	"github.com/zeusync/hexkernel/internal/core/hex"
)

const (
	ChunkSize     = 32
	ChunkArea     = ChunkSize * ChunkSize
	ChunksPerSide = hex.MapSize / ChunkSize
)

// ChunkCoord addresses a chunk; tile (x, y) lives in chunk (x/32, y/32).
type ChunkCoord struct {
	X int `json:"x" yaml:"x" toml:"x"`
	Y int `json:"y" yaml:"y" toml:"y"`
}

func (c ChunkCoord) String() string {
	return fmt.Sprintf("chunk(%d,%d)", c.X, c.Y)
}

// InBounds reports whether the chunk lies on the world map.
func (c ChunkCoord) InBounds() bool {
	return c.X >= 0 && c.X < ChunksPerSide && c.Y >= 0 && c.Y < ChunksPerSide
}

// Origin is the tile coordinate of the chunk's first cell.
func (c ChunkCoord) Origin() (x, y int) {
	return c.X * ChunkSize, c.Y * ChunkSize
}

// Locate splits an in-bounds tile coordinate into its chunk and row-major
// cell index.
func Locate(x, y int) (ChunkCoord, int) {
	cc := ChunkCoord{X: floorDiv(x, ChunkSize), Y: floorDiv(y, ChunkSize)}
	lx := x - cc.X*ChunkSize
	ly := y - cc.Y*ChunkSize
	return cc, ly*ChunkSize + lx
}

// Tiles is the plain value form of a chunk.
type Tiles [ChunkArea]Type

// Chunk is a hot chunk. Cells are atomics so readers never lock against
// in-place writes.
type Chunk struct {
	coord ChunkCoord
	cells [ChunkArea]atomic.Uint32
	dirty atomic.Bool
}

func newChunk(coord ChunkCoord, tiles *Tiles) *Chunk {
	ch := &Chunk{coord: coord}
	for i, t := range tiles {
		ch.cells[i].Store(uint32(t))
	}
	return ch
}

func (c *Chunk) Coord() ChunkCoord {
	return c.coord
}

func (c *Chunk) get(idx int) Type {
	return Type(c.cells[idx].Load())
}

func (c *Chunk) set(idx int, t Type) {
	if Type(c.cells[idx].Swap(uint32(t))) != t {
		c.dirty.Store(true)
	}
}

// Tiles copies the chunk's cells.
func (c *Chunk) Tiles() Tiles {
	var out Tiles
	for i := range c.cells {
		out[i] = Type(c.cells[i].Load())
	}
	return out
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
