// Package hex implements axial hex-grid geometry for the bounded world map.
package hex

import "fmt"

const (
	// MapSize is the edge length of the square world, in tiles.
	MapSize = 1024
)

// Coord is an axial (q, r) hex coordinate.
type Coord struct {
	Q int `json:"q" yaml:"q" toml:"q"`
	R int `json:"r" yaml:"r" toml:"r"`
}

// Directions lists the six axial neighbour offsets: E, NE, NW, W, SW, SE.
var Directions = [6]Coord{
	{Q: 1, R: 0}, {Q: 1, R: -1}, {Q: 0, R: -1},
	{Q: -1, R: 0}, {Q: -1, R: 1}, {Q: 0, R: 1},
}

func New(q, r int) Coord {
	return Coord{Q: q, R: r}
}

// S returns the implicit third cube coordinate.
func (c Coord) S() int {
	return -c.Q - c.R
}

func (c Coord) Add(o Coord) Coord {
	return Coord{Q: c.Q + o.Q, R: c.R + o.R}
}

func (c Coord) Sub(o Coord) Coord {
	return Coord{Q: c.Q - o.Q, R: c.R - o.R}
}

func (c Coord) Scale(k int) Coord {
	return Coord{Q: c.Q * k, R: c.R * k}
}

// Neighbors returns the six adjacent coordinates in Directions order.
func (c Coord) Neighbors() [6]Coord {
	var out [6]Coord
	for i, d := range Directions {
		out[i] = c.Add(d)
	}
	return out
}

// InBounds reports whether c lies on the world map.
func (c Coord) InBounds() bool {
	return c.Q >= 0 && c.Q < MapSize && c.R >= 0 && c.R < MapSize
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.Q, c.R)
}

// Distance is the cube distance between a and b.
func Distance(a, b Coord) int {
	dq := abs(a.Q - b.Q)
	dr := abs(a.R - b.R)
	ds := abs(a.S() - b.S())
	return max(dq, dr, ds)
}

// Ring returns the coordinates exactly radius steps from center, walking
// counter-clockwise from the south-west corner. Radius 0 yields center alone.
func Ring(center Coord, radius int) []Coord {
	if radius <= 0 {
		return []Coord{center}
	}
	out := make([]Coord, 0, 6*radius)
	cur := center.Add(Directions[4].Scale(radius))
	for side := 0; side < 6; side++ {
		for step := 0; step < radius; step++ {
			out = append(out, cur)
			cur = cur.Add(Directions[side])
		}
	}
	return out
}

// Flankers returns the two tiles adjacent to both from and to, when the two
// are neighbours.
func Flankers(from, to Coord) ([2]Coord, bool) {
	d := to.Sub(from)
	for i, dir := range Directions {
		if dir != d {
			continue
		}
		prev := Directions[(i+5)%6]
		next := Directions[(i+1)%6]
		return [2]Coord{from.Add(prev), from.Add(next)}, true
	}
	return [2]Coord{}, false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
