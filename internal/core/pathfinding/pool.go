package pathfinding

import (
	"context"
	"errors"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"

	"github.com/zeusync/hexkernel/internal/core/entity"
	"github.com/zeusync/hexkernel/internal/core/errs"
	"github.com/zeusync/hexkernel/internal/core/hex"
	"github.com/zeusync/hexkernel/internal/core/observability/log"
	"github.com/zeusync/hexkernel/internal/core/queue"
	"github.com/zeusync/hexkernel/internal/core/terrain"
)

const DefaultWorkers = 4

type Kind uint8

const (
	KindPath Kind = iota
	KindRandomDest
)

type Work struct {
	Kind    Kind
	ID      entity.ID
	Terrain terrain.Type
	Start   hex.Coord
	Goal    hex.Coord

	MinDistance, MaxDistance int

	// Blocked holds the positions of other entities: obstacles for a path,
	// occupied tiles for a destination.
	Blocked map[hex.Coord]struct{}
}

type Result struct {
	Kind Kind
	ID   entity.ID

	Path   []hex.Coord
	Cost   int
	Reason string

	Destination hex.Coord
	Found       bool
}

type Options struct {
	Workers        int
	RandomAttempts int
	Seed           uint64
	Search         SearchOptions
}

// Pool runs Options.Workers goroutines over one shared work queue.
type Pool struct {
	work    *queue.Unbounded[Work]
	results *queue.Unbounded[Result]
	terrain terrain.Reader
	opts    Options
	logger  log.Log
}

func NewPool(work *queue.Unbounded[Work], results *queue.Unbounded[Result], tr terrain.Reader, opts Options, logger log.Log) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	return &Pool{
		work:    work,
		results: results,
		terrain: tr,
		opts:    opts,
		logger:  logger.With(log.String("component", "pathfinding")),
	}
}

func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.opts.Workers; i++ {
		rng := rand.New(rand.NewPCG(p.opts.Seed, uint64(i)))
		logger := p.logger.With(log.Int("worker", i))
		g.Go(func() error {
			err := queue.Serve(ctx, p.work, p.results, func(_ context.Context, w Work) Result {
				return p.Handle(w, rng)
			})
			if errors.Is(err, errs.ErrChannelClosed) {
				logger.Info("pathfinding queue closed, worker exiting")
				return nil
			}
			return err
		})
	}
	return g.Wait()
}

// Handle resolves one work item with the given random source.
func (p *Pool) Handle(w Work, rng *rand.Rand) Result {
	switch w.Kind {
	case KindRandomDest:
		dest, ok := RandomDestination(p.terrain, DestinationQuery{
			Start:       w.Start,
			Affinity:    w.Terrain,
			MinDistance: w.MinDistance,
			MaxDistance: w.MaxDistance,
			Occupied:    w.Blocked,
		}, p.opts.RandomAttempts, rng)
		return Result{Kind: KindRandomDest, ID: w.ID, Destination: dest, Found: ok}
	default:
		path, err := FindPath(p.terrain, Query{
			Start:     w.Start,
			Goal:      w.Goal,
			Affinity:  w.Terrain,
			Obstacles: w.Blocked,
		}, p.opts.Search)
		if err != nil {
			p.logger.Debug("path failed", log.Stringer("id", w.ID), log.Error(err))
			return Result{Kind: KindPath, ID: w.ID, Reason: err.Error()}
		}
		return Result{Kind: KindPath, ID: w.ID, Path: path, Cost: len(path) - 1}
	}
}
