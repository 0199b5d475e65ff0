package pathfinding

import (
	"math/rand/v2"

	"github.com/zeusync/hexkernel/internal/core/hex"
	"github.com/zeusync/hexkernel/internal/core/terrain"
)

const DefaultRandomAttempts = 10

type DestinationQuery struct {
	Start                    hex.Coord
	Affinity                 terrain.Type
	MinDistance, MaxDistance int
	Occupied                 map[hex.Coord]struct{}
}

// RandomDestination samples up to attempts tiles roughly between MinDistance
// and MaxDistance from Start along one of the six axes, with a sideways jitter
// of up to a third of the distance. A MinDistance below 1 counts as 1, so
// Start itself is never returned.
func RandomDestination(tr terrain.Reader, q DestinationQuery, attempts int, rng *rand.Rand) (hex.Coord, bool) {
	if attempts <= 0 {
		attempts = DefaultRandomAttempts
	}
	lo, hi := max(q.MinDistance, 1), q.MaxDistance
	if hi < lo {
		hi = lo
	}

	for i := 0; i < attempts; i++ {
		d := lo + rng.IntN(hi-lo+1)
		dir := hex.Directions[rng.IntN(len(hex.Directions))]
		o := 0
		if span := d / 3; span > 0 {
			o = rng.IntN(2*span+1) - span
		}

		dest := q.Start.Add(dir.Scale(d)).Add(hex.New(o, -o))
		if !dest.InBounds() || !tr.GetCoord(dest).Walkable(q.Affinity) {
			continue
		}
		if _, taken := q.Occupied[dest]; taken {
			continue
		}
		return dest, true
	}
	return hex.Coord{}, false
}
