package spawn

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/zeusync/hexkernel/internal/core/entity"
	"github.com/zeusync/hexkernel/internal/core/errs"
	"github.com/zeusync/hexkernel/internal/core/hex"
	"github.com/zeusync/hexkernel/internal/core/observability/log"
	"github.com/zeusync/hexkernel/internal/core/queue"
	"github.com/zeusync/hexkernel/internal/core/terrain"
)

type Work struct {
	EntityType   string
	Terrain      terrain.Type
	Preferred    *hex.Coord
	SearchRadius int
	// Occupied is the set of live entity positions when the work was queued.
	Occupied map[hex.Coord]struct{}
}

// Result is either a reserved position (OK) or a failure reason. A successful
// result owns its reservation until the actor releases it.
type Result struct {
	OK         bool
	ID         entity.ID
	Coord      hex.Coord
	EntityType string
	Terrain    terrain.Type
	Reason     string
}

// MaxSearchRadius bounds SearchRadius. No two in-bounds tiles are farther
// apart than this, so a larger radius would only walk off-map rings.
const MaxSearchRadius = 2 * hex.MapSize

type Options struct {
	Center hex.Coord
	Seed   uint64
}

type Worker struct {
	work    *queue.Unbounded[Work]
	results *queue.Unbounded[Result]
	pending *PendingSet
	terrain terrain.Reader
	center  hex.Coord
	rng     *rand.Rand
	logger  log.Log
}

func NewWorker(
	work *queue.Unbounded[Work],
	results *queue.Unbounded[Result],
	pending *PendingSet,
	tr terrain.Reader,
	opts Options,
	logger log.Log,
) *Worker {
	return &Worker{
		work:    work,
		results: results,
		pending: pending,
		terrain: tr,
		center:  opts.Center,
		rng:     rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
		logger:  logger.With(log.String("component", "spawn")),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	err := queue.Serve(ctx, w.work, w.results, func(_ context.Context, work Work) Result {
		return w.Find(work)
	})
	if errors.Is(err, errs.ErrChannelClosed) {
		w.logger.Info("spawn queue closed, worker exiting")
		return nil
	}
	return err
}

// Find reserves a spawn position for work. It only touches the worker's own
// random source, so it must not be called concurrently with Run.
func (w *Worker) Find(work Work) Result {
	coord, err := w.locate(work)
	if err != nil {
		w.logger.Debug("spawn failed", log.String("entity_type", work.EntityType), log.Error(err))
		return Result{EntityType: work.EntityType, Terrain: work.Terrain, Reason: err.Error()}
	}
	return Result{
		OK:         true,
		ID:         entity.NewID(),
		Coord:      coord,
		EntityType: work.EntityType,
		Terrain:    work.Terrain,
	}
}

func (w *Worker) locate(work Work) (hex.Coord, error) {
	if !work.Terrain.Valid() || work.Terrain == terrain.Obstacle {
		return hex.Coord{}, fmt.Errorf("%w: cannot spawn on %s", errs.ErrValidation, work.Terrain)
	}
	if work.SearchRadius < 0 || work.SearchRadius > MaxSearchRadius {
		return hex.Coord{}, fmt.Errorf("%w: search radius %d outside [0, %d]", errs.ErrValidation, work.SearchRadius, MaxSearchRadius)
	}

	center := w.center
	if work.Preferred != nil {
		center = *work.Preferred
		if w.claim(work, center) {
			return center, nil
		}
	}

	for radius := 1; radius <= work.SearchRadius; radius++ {
		for _, c := range hex.Ring(center, radius) {
			if w.claim(work, c) {
				return c, nil
			}
		}
	}

	if work.Preferred == nil {
		var candidates []hex.Coord
		for radius := 0; radius <= work.SearchRadius; radius++ {
			for _, c := range hex.Ring(center, radius) {
				if w.valid(work, c) {
					candidates = append(candidates, c)
				}
			}
		}
		w.rng.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
		for _, c := range candidates {
			if w.pending.TryReserve(c) {
				return c, nil
			}
		}
	}

	return hex.Coord{}, fmt.Errorf("%w: no free %s tile within %d of %s",
		errs.ErrResourceExhausted, work.Terrain, work.SearchRadius, center)
}

func (w *Worker) claim(work Work, c hex.Coord) bool {
	return w.valid(work, c) && w.pending.TryReserve(c)
}

func (w *Worker) valid(work Work, c hex.Coord) bool {
	if !c.InBounds() {
		return false
	}
	if !w.terrain.GetCoord(c).Walkable(work.Terrain) {
		return false
	}
	if _, taken := work.Occupied[c]; taken {
		return false
	}
	return !w.pending.Contains(c)
}
