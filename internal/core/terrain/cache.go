package terrain

import (
	"container/list"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"github.com/zeusync/hexkernel/internal/core/errs"
	"github.com/zeusync/hexkernel/internal/core/hex"
	"github.com/zeusync/hexkernel/internal/core/observability/log"
)

const (
	DefaultCapacity      = 256
	DefaultShards        = 16
	DefaultFlushInterval = time.Second

	// a Set that keeps losing its freshly loaded chunk to concurrent evictions
	// gives up after this many loads
	maxSetAttempts = 8
)

// ColdStore persists evicted chunks as opaque blobs keyed by chunk coordinate.
type ColdStore interface {
	Load(ctx context.Context, x, y int) (blob []byte, found bool, err error)
	Save(ctx context.Context, x, y int, blob []byte) error
	Close() error
}

// Reader is the read side of the cache used by workers.
type Reader interface {
	GetCoord(c hex.Coord) Type
}

type Options struct {
	Seed              int64
	Capacity          int
	Shards            int
	AsyncEviction     bool
	MountainThreshold float64
	FlushInterval     time.Duration
}

func (o Options) withDefaults() Options {
	if o.Capacity <= 0 {
		o.Capacity = DefaultCapacity
	}
	if o.Shards <= 0 {
		o.Shards = DefaultShards
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = DefaultFlushInterval
	}
	if o.MountainThreshold <= 0 {
		o.MountainThreshold = DefaultMountainThreshold
	}
	return o
}

type Stats struct {
	Hot             int    `json:"hot"`
	Capacity        int    `json:"capacity"`
	PendingWrites   int    `json:"pending_writes"`
	Loads           uint64 `json:"loads"`
	Generations     uint64 `json:"generations"`
	Evictions       uint64 `json:"evictions"`
	Persisted       uint64 `json:"persisted"`
	PersistFailures uint64 `json:"persist_failures"`
	Corrupt         uint64 `json:"corrupt"`
}

type counters struct {
	loads, generations, evictions, persisted, persistFailures, corrupt atomic.Uint64
}

type shard struct {
	mx     sync.RWMutex
	chunks map[ChunkCoord]*Chunk
}

// Cache is the TerrainCache. Reads and in-place writes on hot chunks only take
// a shard read lock. Loading and evicting take lruMx first and the shard write
// lock second.
type Cache struct {
	opts   Options
	store  ColdStore
	gen    *Generator
	logger log.Log

	shards []*shard

	lruMx    sync.Mutex
	lru      *list.List
	lruIndex map[ChunkCoord]*list.Element

	loads   singleflight.Group
	wb      *writeback
	flushMx sync.Mutex
	wake    chan struct{}

	stats counters
}

func NewCache(opts Options, store ColdStore, logger log.Log) *Cache {
	opts = opts.withDefaults()
	if logger == nil {
		logger = log.NewNop()
	}

	c := &Cache{
		opts:     opts,
		store:    store,
		gen:      NewGenerator(opts.MountainThreshold),
		logger:   logger.With(log.String("component", "terrain")),
		shards:   make([]*shard, opts.Shards),
		lru:      list.New(),
		lruIndex: make(map[ChunkCoord]*list.Element, opts.Capacity),
		wb:       newWriteback(),
		wake:     make(chan struct{}, 1),
	}
	for i := range c.shards {
		c.shards[i] = &shard{chunks: make(map[ChunkCoord]*Chunk)}
	}
	return c
}

func (c *Cache) Seed() int64 {
	return c.opts.Seed
}

func (c *Cache) Capacity() int {
	return c.opts.Capacity
}

// Get returns the tile at (x, y). Out-of-bounds tiles and tiles of chunks that
// are not hot read as Obstacle; Get never loads.
func (c *Cache) Get(x, y int) Type {
	if !hex.New(x, y).InBounds() {
		return Obstacle
	}
	cc, idx := Locate(x, y)
	sh := c.shardFor(cc)

	sh.mx.RLock()
	defer sh.mx.RUnlock()
	if ch, ok := sh.chunks[cc]; ok {
		return ch.get(idx)
	}
	return Obstacle
}

func (c *Cache) GetCoord(h hex.Coord) Type {
	return c.Get(h.Q, h.R)
}

// Set writes the tile at (x, y), loading its chunk first when it is not hot.
func (c *Cache) Set(ctx context.Context, x, y int, t Type) error {
	if !hex.New(x, y).InBounds() {
		return fmt.Errorf("%w: tile (%d,%d) out of bounds", errs.ErrValidation, x, y)
	}
	if !t.Valid() {
		return fmt.Errorf("%w: invalid terrain %d", errs.ErrValidation, uint8(t))
	}

	cc, idx := Locate(x, y)
	for attempt := 0; attempt < maxSetAttempts; attempt++ {
		if c.writeHot(cc, idx, t) {
			return nil
		}
		if err := c.ensure(ctx, cc); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: %s evicted before it could be written", errs.ErrResourceExhausted, cc)
}

// Preload makes cc hot without writing to it.
func (c *Cache) Preload(ctx context.Context, cc ChunkCoord) error {
	if !cc.InBounds() {
		return fmt.Errorf("%w: %s out of bounds", errs.ErrValidation, cc)
	}
	return c.ensure(ctx, cc)
}

// PreloadAround warms the square of chunks within radius of the chunk holding
// center, stopping early once the hot set is full.
func (c *Cache) PreloadAround(ctx context.Context, center hex.Coord, radius int) (int, error) {
	origin, _ := Locate(center.Q, center.R)
	loaded := 0
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			cc := ChunkCoord{X: origin.X + dx, Y: origin.Y + dy}
			if !cc.InBounds() {
				continue
			}
			if loaded >= c.opts.Capacity {
				return loaded, nil
			}
			if err := c.Preload(ctx, cc); err != nil {
				return loaded, err
			}
			loaded++
		}
	}
	return loaded, nil
}

func (c *Cache) IsHot(cc ChunkCoord) bool {
	sh := c.shardFor(cc)
	sh.mx.RLock()
	defer sh.mx.RUnlock()
	_, ok := sh.chunks[cc]
	return ok
}

func (c *Cache) Len() int {
	c.lruMx.Lock()
	defer c.lruMx.Unlock()
	return c.lru.Len()
}

func (c *Cache) Stats() Stats {
	return Stats{
		Hot:             c.Len(),
		Capacity:        c.opts.Capacity,
		PendingWrites:   c.wb.len(),
		Loads:           c.stats.loads.Load(),
		Generations:     c.stats.generations.Load(),
		Evictions:       c.stats.evictions.Load(),
		Persisted:       c.stats.persisted.Load(),
		PersistFailures: c.stats.persistFailures.Load(),
		Corrupt:         c.stats.corrupt.Load(),
	}
}

// Flush encodes every dirty hot chunk and saves everything pending in the
// write-back buffer. Chunks stay hot.
func (c *Cache) Flush(ctx context.Context) error {
	for _, sh := range c.shards {
		sh.mx.RLock()
		for cc, ch := range sh.chunks {
			if !ch.dirty.Swap(false) {
				continue
			}
			tiles := ch.Tiles()
			c.wb.put(cc, Encode(cc, &tiles))
		}
		sh.mx.RUnlock()
	}
	return c.flushWriteback(ctx)
}

// Run is the eviction writer used when AsyncEviction is on. It saves pending
// blobs when woken by an eviction and retries failed saves on FlushInterval.
// On shutdown it makes a final Flush.
func (c *Cache) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.opts.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := c.Flush(final); err != nil {
				c.logger.Error("final terrain flush failed", log.Error(err))
			}
			return nil
		case <-c.wake:
			_ = c.flushWriteback(ctx)
		case <-ticker.C:
			if c.wb.len() > 0 {
				_ = c.flushWriteback(ctx)
			}
		}
	}
}

func (c *Cache) writeHot(cc ChunkCoord, idx int, t Type) bool {
	sh := c.shardFor(cc)
	sh.mx.RLock()
	defer sh.mx.RUnlock()
	ch, ok := sh.chunks[cc]
	if !ok {
		return false
	}
	ch.set(idx, t)
	return true
}

func (c *Cache) ensure(ctx context.Context, cc ChunkCoord) error {
	_, err, _ := c.loads.Do(cc.String(), func() (any, error) {
		if c.IsHot(cc) {
			return nil, nil
		}
		tiles, err := c.fetch(ctx, cc)
		if err != nil {
			return nil, err
		}
		c.admit(ctx, cc, tiles)
		return nil, nil
	})
	return err
}

// fetch resolves a chunk from the write-back buffer, the cold store or the
// generator, in that order. Corrupt blobs count as a miss.
func (c *Cache) fetch(ctx context.Context, cc ChunkCoord) (*Tiles, error) {
	if blob, ok := c.wb.get(cc); ok {
		if tiles, err := Decode(cc, blob); err == nil {
			c.stats.loads.Add(1)
			return tiles, nil
		}
	}

	if c.store != nil {
		blob, found, err := c.store.Load(ctx, cc.X, cc.Y)
		if err != nil {
			c.logger.Error("cold store load failed", log.Stringer("chunk", cc), log.Error(err))
			return nil, fmt.Errorf("load %s: %w", cc, err)
		}
		if found {
			tiles, err := Decode(cc, blob)
			if err == nil {
				c.stats.loads.Add(1)
				return tiles, nil
			}
			c.stats.corrupt.Add(1)
			c.logger.Warn("corrupt chunk blob, regenerating", log.Stringer("chunk", cc), log.Error(err))
		}
	}

	c.stats.generations.Add(1)
	return c.gen.Generate(c.opts.Seed, cc), nil
}

func (c *Cache) admit(ctx context.Context, cc ChunkCoord, tiles *Tiles) {
	c.lruMx.Lock()
	if _, ok := c.lruIndex[cc]; ok {
		c.lruMx.Unlock()
		return
	}

	persisted := false
	for c.lru.Len() >= c.opts.Capacity {
		back := c.lru.Back()
		victim := back.Value.(ChunkCoord)
		c.lru.Remove(back)
		delete(c.lruIndex, victim)
		if c.evictLocked(victim) {
			persisted = true
		}
	}

	sh := c.shardFor(cc)
	sh.mx.Lock()
	sh.chunks[cc] = newChunk(cc, tiles)
	sh.mx.Unlock()
	c.lruIndex[cc] = c.lru.PushFront(cc)
	c.lruMx.Unlock()

	if !persisted {
		return
	}
	if c.opts.AsyncEviction {
		select {
		case c.wake <- struct{}{}:
		default:
		}
		return
	}
	_ = c.flushWriteback(ctx)
}

// evictLocked drops victim from its shard and queues it for saving when it
// carries edits. Caller holds lruMx.
func (c *Cache) evictLocked(victim ChunkCoord) (queued bool) {
	sh := c.shardFor(victim)
	sh.mx.Lock()
	defer sh.mx.Unlock()

	ch, ok := sh.chunks[victim]
	if !ok {
		return false
	}
	delete(sh.chunks, victim)
	c.stats.evictions.Add(1)

	if !ch.dirty.Load() {
		return false
	}
	tiles := ch.Tiles()
	c.wb.put(victim, Encode(victim, &tiles))
	c.logger.Debug("chunk evicted", log.Stringer("chunk", victim))
	return true
}

func (c *Cache) flushWriteback(ctx context.Context) error {
	c.flushMx.Lock()
	defer c.flushMx.Unlock()

	if c.store == nil {
		return nil
	}

	var failures []error
	for _, p := range c.wb.snapshot() {
		if err := c.store.Save(ctx, p.coord.X, p.coord.Y, p.blob); err != nil {
			c.stats.persistFailures.Add(1)
			c.logger.Error("chunk persist failed", log.Stringer("chunk", p.coord), log.Error(err))
			failures = append(failures, fmt.Errorf("save %s: %w", p.coord, err))
			continue
		}
		c.wb.ack(p.coord, p.seq)
		c.stats.persisted.Add(1)
	}
	return errors.Join(failures...)
}

func (c *Cache) shardFor(cc ChunkCoord) *shard {
	var key [8]byte
	binary.BigEndian.PutUint32(key[:4], uint32(int32(cc.X)))
	binary.BigEndian.PutUint32(key[4:], uint32(int32(cc.Y)))
	return c.shards[xxhash.Sum64(key[:])%uint64(len(c.shards))]
}
