// Package kernel wires the actor, its workers, the terrain cache and the cold
// store into one runnable unit.
package kernel

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zeusync/hexkernel/internal/core/actor"
	"github.com/zeusync/hexkernel/internal/core/combat"
	"github.com/zeusync/hexkernel/internal/core/economy"
	"github.com/zeusync/hexkernel/internal/core/errs"
	"github.com/zeusync/hexkernel/internal/core/hex"
	"github.com/zeusync/hexkernel/internal/core/message"
	"github.com/zeusync/hexkernel/internal/core/observability/log"
	"github.com/zeusync/hexkernel/internal/core/pathfinding"
	"github.com/zeusync/hexkernel/internal/core/queue"
	"github.com/zeusync/hexkernel/internal/core/spawn"
	"github.com/zeusync/hexkernel/internal/core/storage"
	"github.com/zeusync/hexkernel/internal/core/terrain"
)

const shutdownFlushTimeout = 5 * time.Second

var (
	ErrAlreadyRunning = errors.New("kernel is already running")
	ErrClosed         = errors.New("kernel is closed")
)

type Options struct {
	Actor       actor.Options
	Terrain     terrain.Options
	Storage     storage.Config
	Pathfinding pathfinding.Options

	// SpawnCenter is searched around when a spawn request has no preferred
	// coordinate. The terrain around it is loaded at startup.
	SpawnCenter   hex.Coord
	SpawnSeed     uint64
	PreloadRadius int
}

func DefaultOptions() Options {
	return Options{
		Pathfinding:   pathfinding.Options{Workers: pathfinding.DefaultWorkers},
		SpawnCenter:   hex.New(hex.MapSize/2, hex.MapSize/2),
		SpawnSeed:     1,
		PreloadRadius: 2,
	}
}

type Kernel struct {
	opts   Options
	logger log.Log

	store   terrain.ColdStore
	cache   *terrain.Cache
	queues  actor.Queues
	pending *spawn.PendingSet

	actor   *actor.Actor
	spawner *spawn.Worker
	paths   *pathfinding.Pool
	combat  *combat.Worker
	economy *economy.Worker

	running atomic.Bool
	closed  atomic.Bool
}

// New opens the cold store, warms the terrain around the spawn centre and
// builds every component. Nothing runs until Run is called.
func New(ctx context.Context, opts Options, logger log.Log) (*Kernel, error) {
	if logger == nil {
		logger = log.NewNop()
	}
	if !opts.SpawnCenter.InBounds() {
		return nil, fmt.Errorf("%w: spawn center %s", errs.ErrValidation, opts.SpawnCenter)
	}

	store, err := storage.Open(ctx, opts.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("open cold store: %w", err)
	}

	cache := terrain.NewCache(opts.Terrain, store, logger)
	loaded, err := cache.PreloadAround(ctx, opts.SpawnCenter, opts.PreloadRadius)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("preload terrain: %w", err), store.Close())
	}

	q := actor.NewQueues()
	pending := spawn.NewPendingSet()
	k := &Kernel{
		opts:    opts,
		logger:  logger.With(log.String("component", "kernel")),
		store:   store,
		cache:   cache,
		queues:  q,
		pending: pending,
		actor:   actor.New(opts.Actor, q, pending, logger),
		spawner: spawn.NewWorker(q.SpawnWork, q.SpawnResults, pending, cache,
			spawn.Options{Center: opts.SpawnCenter, Seed: opts.SpawnSeed}, logger),
		paths:   pathfinding.NewPool(q.PathWork, q.PathResults, cache, opts.Pathfinding, logger),
		combat:  combat.NewWorker(q.CombatWork, q.CombatResults, logger),
		economy: economy.NewWorker(q.EconomyWork, q.EconomyResults, logger),
	}

	k.logger.Info("kernel created",
		log.Int64("seed", cache.Seed()),
		log.Stringer("spawn_center", opts.SpawnCenter),
		log.Int("preloaded_chunks", loaded),
		log.String("storage", string(opts.Storage.Driver)))
	return k, nil
}

// Run blocks until ctx is cancelled or a component fails. On return every
// queue is closed, hot terrain is flushed and the cold store is closed; a
// kernel cannot be run twice.
func (k *Kernel) Run(ctx context.Context) error {
	if k.closed.Load() {
		return ErrClosed
	}
	if !k.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return k.actor.Run(gctx) })
	g.Go(func() error { return k.spawner.Run(gctx) })
	g.Go(func() error { return k.paths.Run(gctx) })
	g.Go(func() error { return k.combat.Run(gctx) })
	g.Go(func() error { return k.economy.Run(gctx) })
	if k.opts.Terrain.AsyncEviction {
		g.Go(func() error { return k.cache.Run(gctx) })
	}

	k.logger.Info("kernel running")
	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		k.logger.Error("kernel component failed", log.Error(err))
	} else {
		err = nil
	}
	return errors.Join(err, k.shutdown(ctx))
}

func (k *Kernel) shutdown(ctx context.Context) error {
	if !k.closed.CompareAndSwap(false, true) {
		return nil
	}
	k.queues.Close()

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownFlushTimeout)
	defer cancel()

	var errList []error
	if err := k.cache.Flush(flushCtx); err != nil {
		errList = append(errList, fmt.Errorf("flush terrain: %w", err))
	}
	if err := k.store.Close(); err != nil {
		errList = append(errList, fmt.Errorf("close cold store: %w", err))
	}

	st := k.cache.Stats()
	k.logger.Info("kernel stopped",
		log.Uint64("persisted", st.Persisted),
		log.Int("pending_writes", st.PendingWrites))
	return errors.Join(errList...)
}

// Close releases the store of a kernel that was never run.
func (k *Kernel) Close() error {
	if k.running.Load() {
		return nil
	}
	return k.shutdown(context.Background())
}

// Submit queues one request for the actor's next tick.
func (k *Kernel) Submit(req message.Request) error {
	if req == nil {
		return fmt.Errorf("%w: nil request", errs.ErrValidation)
	}
	return k.queues.Requests.Send(req)
}

// Events is the outbound event stream. It has a single intended consumer.
func (k *Kernel) Events() *queue.Unbounded[message.Event] {
	return k.queues.Events
}

func (k *Kernel) Cache() *terrain.Cache {
	return k.cache
}

// StoreStats reports cold-store statistics when the backend exposes them.
func (k *Kernel) StoreStats(ctx context.Context) (storage.Statistics, bool) {
	switch s := k.store.(type) {
	case interface{ Statistics() storage.Statistics }:
		return s.Statistics(), true
	case interface {
		Statistics(context.Context) (storage.Statistics, error)
	}:
		st, err := s.Statistics(ctx)
		if err != nil {
			k.logger.Warn("store statistics failed", log.Error(err))
			return storage.Statistics{}, false
		}
		return st, true
	default:
		return storage.Statistics{}, false
	}
}

func (k *Kernel) Running() bool {
	return k.running.Load() && !k.closed.Load()
}
