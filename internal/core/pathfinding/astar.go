// Package pathfinding runs A* searches and random destination picks on a pool
// of workers that share one work queue.
package pathfinding

import (
	"fmt"

	"github.com/zeusync/hexkernel/internal/core/errs"
	"github.com/zeusync/hexkernel/internal/core/hex"
	"github.com/zeusync/hexkernel/internal/core/terrain"
	"github.com/zeusync/hexkernel/pkg/generic"
	"github.com/zeusync/hexkernel/pkg/sequence"
)

const DefaultExpansionLimit = 10000

type SearchOptions struct {
	// ExpansionLimit bounds the number of closed nodes before giving up.
	ExpansionLimit int
	// NoCornerCutting refuses a step whose two flanking tiles are both
	// impassable.
	NoCornerCutting bool
}

type Query struct {
	Start, Goal hex.Coord
	Affinity    terrain.Type
	// Obstacles are tiles held by other entities. The start tile is never
	// treated as one.
	Obstacles map[hex.Coord]struct{}
}

// search is the reusable scratch state of one A* run.
type search struct {
	open   *sequence.PriorityQueue[hex.Coord]
	g      map[hex.Coord]int
	from   map[hex.Coord]hex.Coord
	closed map[hex.Coord]struct{}
}

var searches = generic.NewPool(
	func() *search {
		return &search{
			open:   sequence.NewPriorityQueue[hex.Coord](),
			g:      make(map[hex.Coord]int),
			from:   make(map[hex.Coord]hex.Coord),
			closed: make(map[hex.Coord]struct{}),
		}
	},
	func(s *search) {
		s.open.Reset()
		clear(s.g)
		clear(s.from)
		clear(s.closed)
	},
)

// FindPath returns the tiles from q.Start to q.Goal inclusive. The cost of the
// path is len(path)-1.
func FindPath(tr terrain.Reader, q Query, opts SearchOptions) ([]hex.Coord, error) {
	if !q.Start.InBounds() || !q.Goal.InBounds() {
		return nil, fmt.Errorf("%w: path %s -> %s leaves the map", errs.ErrValidation, q.Start, q.Goal)
	}

	walkable := func(c hex.Coord) bool {
		return c.InBounds() && tr.GetCoord(c).Walkable(q.Affinity)
	}
	passable := func(c hex.Coord) bool {
		if !walkable(c) {
			return false
		}
		if c == q.Start {
			return true
		}
		_, blocked := q.Obstacles[c]
		return !blocked
	}

	if !walkable(q.Start) {
		return nil, fmt.Errorf("%w: start %s is %s, not %s", errs.ErrResourceExhausted, q.Start, tr.GetCoord(q.Start), q.Affinity)
	}
	if !walkable(q.Goal) {
		return nil, fmt.Errorf("%w: goal %s is %s, not %s", errs.ErrResourceExhausted, q.Goal, tr.GetCoord(q.Goal), q.Affinity)
	}
	if q.Start == q.Goal {
		return []hex.Coord{q.Start}, nil
	}

	limit := opts.ExpansionLimit
	if limit <= 0 {
		limit = DefaultExpansionLimit
	}

	s := searches.Get()
	defer searches.Put(s)

	s.g[q.Start] = 0
	s.open.Enqueue(q.Start, hex.Distance(q.Start, q.Goal))

	for expanded := 0; !s.open.IsEmpty(); {
		cur, _ := s.open.Dequeue()
		if cur == q.Goal {
			return s.path(q.Start, cur), nil
		}
		if _, done := s.closed[cur]; done {
			continue
		}
		s.closed[cur] = struct{}{}
		if expanded++; expanded > limit {
			return nil, fmt.Errorf("%w: expansion limit %d reached", errs.ErrResourceExhausted, limit)
		}

		for _, next := range cur.Neighbors() {
			if _, done := s.closed[next]; done || !passable(next) {
				continue
			}
			if opts.NoCornerCutting {
				if f, ok := hex.Flankers(cur, next); ok && !passable(f[0]) && !passable(f[1]) {
					continue
				}
			}
			g := s.g[cur] + 1
			if old, seen := s.g[next]; seen && g >= old {
				continue
			}
			s.g[next] = g
			s.from[next] = cur
			s.open.Enqueue(next, g+hex.Distance(next, q.Goal))
		}
	}
	return nil, fmt.Errorf("%w: no path %s -> %s", errs.ErrResourceExhausted, q.Start, q.Goal)
}

func (s *search) path(start, goal hex.Coord) []hex.Coord {
	n := s.g[goal] + 1
	out := make([]hex.Coord, n)
	for i, c := n-1, goal; i >= 0; i-- {
		out[i] = c
		if c == start {
			break
		}
		c = s.from[c]
	}
	return out
}
