// Package actor implements the single-writer coordinator that owns every
// entity record and resource bucket. It never blocks: requests and worker
// results are drained with non-blocking receives once per tick.
package actor

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zeusync/hexkernel/internal/core/combat"
	"github.com/zeusync/hexkernel/internal/core/economy"
	"github.com/zeusync/hexkernel/internal/core/entity"
	"github.com/zeusync/hexkernel/internal/core/message"
	"github.com/zeusync/hexkernel/internal/core/observability/log"
	"github.com/zeusync/hexkernel/internal/core/pathfinding"
	"github.com/zeusync/hexkernel/internal/core/queue"
	"github.com/zeusync/hexkernel/internal/core/spawn"
)

const (
	DefaultTickInterval    = time.Second / 60
	DefaultCombatInterval  = 500 * time.Millisecond
	DefaultEconomyInterval = time.Second
)

// Queues are the channels between the host, the actor and the workers.
type Queues struct {
	Requests *queue.Unbounded[message.Request]
	Events   *queue.Unbounded[message.Event]

	SpawnWork      *queue.Unbounded[spawn.Work]
	SpawnResults   *queue.Unbounded[spawn.Result]
	PathWork       *queue.Unbounded[pathfinding.Work]
	PathResults    *queue.Unbounded[pathfinding.Result]
	CombatWork     *queue.Unbounded[combat.Work]
	CombatResults  *queue.Unbounded[combat.Result]
	EconomyWork    *queue.Unbounded[economy.Work]
	EconomyResults *queue.Unbounded[economy.Result]
}

func NewQueues() Queues {
	return Queues{
		Requests:       queue.New[message.Request](),
		Events:         queue.New[message.Event](),
		SpawnWork:      queue.New[spawn.Work](),
		SpawnResults:   queue.New[spawn.Result](),
		PathWork:       queue.New[pathfinding.Work](),
		PathResults:    queue.New[pathfinding.Result](),
		CombatWork:     queue.New[combat.Work](),
		CombatResults:  queue.New[combat.Result](),
		EconomyWork:    queue.New[economy.Work](),
		EconomyResults: queue.New[economy.Result](),
	}
}

// Close closes every queue so workers blocked in Recv exit.
func (q Queues) Close() {
	q.Requests.Close()
	q.Events.Close()
	q.SpawnWork.Close()
	q.SpawnResults.Close()
	q.PathWork.Close()
	q.PathResults.Close()
	q.CombatWork.Close()
	q.CombatResults.Close()
	q.EconomyWork.Close()
	q.EconomyResults.Close()
}

type Options struct {
	TickInterval    time.Duration
	CombatInterval  time.Duration
	EconomyInterval time.Duration
	AttackInterval  time.Duration

	InitialResources decimal.Decimal
	ResourceCap      decimal.Decimal

	// Clock defaults to time.Now.
	Clock func() time.Time
}

func (o Options) withDefaults() Options {
	if o.TickInterval <= 0 {
		o.TickInterval = DefaultTickInterval
	}
	if o.CombatInterval <= 0 {
		o.CombatInterval = DefaultCombatInterval
	}
	if o.EconomyInterval <= 0 {
		o.EconomyInterval = DefaultEconomyInterval
	}
	if o.AttackInterval <= 0 {
		o.AttackInterval = entity.DefaultAttackInterval
	}
	if o.ResourceCap.IsZero() {
		o.ResourceCap = decimal.NewFromInt(10000)
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

type Actor struct {
	opts    Options
	q       Queues
	pending *spawn.PendingSet
	logger  log.Log

	records   map[entity.ID]*entity.Record
	retired   map[entity.ID]struct{}  // removed or dead, never recreated
	engaged   map[entity.ID]entity.ID // announced attacker -> defender
	ledger    *economy.Ledger
	producers map[entity.ID]economy.Registration
	consumers map[entity.ID]economy.Registration

	lastCombat  time.Time
	lastEconomy time.Time
}

// New builds the actor and emits the starting value of every resource bucket.
func New(opts Options, q Queues, pending *spawn.PendingSet, logger log.Log) *Actor {
	opts = opts.withDefaults()
	now := opts.Clock()

	a := &Actor{
		opts:        opts,
		q:           q,
		pending:     pending,
		logger:      logger.With(log.String("component", "actor")),
		records:     make(map[entity.ID]*entity.Record),
		retired:     make(map[entity.ID]struct{}),
		engaged:     make(map[entity.ID]entity.ID),
		ledger:      economy.NewLedger(opts.InitialResources, opts.ResourceCap),
		producers:   make(map[entity.ID]economy.Registration),
		consumers:   make(map[entity.ID]economy.Registration),
		lastCombat:  now,
		lastEconomy: now,
	}
	for r := economy.Resource(0); r < economy.ResourceCount; r++ {
		a.emitResource(r)
	}
	return a
}

// Run ticks until ctx is cancelled.
func (a *Actor) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.opts.TickInterval)
	defer ticker.Stop()

	a.logger.Info("actor started", log.Duration("tick", a.opts.TickInterval))
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("actor stopped", log.Int("entities", len(a.records)))
			return nil
		case <-ticker.C:
			a.Tick(a.opts.Clock())
		}
	}
}

// Tick runs one actor step at now. Callers other than Run must not overlap
// with it.
func (a *Actor) Tick(now time.Time) {
	for _, req := range a.q.Requests.Drain() {
		a.apply(req)
	}

	for _, res := range a.q.SpawnResults.Drain() {
		a.applySpawn(res)
	}
	for _, res := range a.q.PathResults.Drain() {
		a.applyPath(res)
	}
	for _, res := range a.q.CombatResults.Drain() {
		a.applyCombat(res)
	}
	for _, res := range a.q.EconomyResults.Drain() {
		a.applyEconomy(res)
	}

	if now.Sub(a.lastCombat) >= a.opts.CombatInterval {
		a.lastCombat = now
		a.send("combat", a.q.CombatWork.Send(combat.Work{At: now, Snapshot: a.combatSnapshot()}))
	}
	if dt := now.Sub(a.lastEconomy); dt >= a.opts.EconomyInterval {
		a.lastEconomy = now
		a.send("economy", a.q.EconomyWork.Send(a.economyWork(dt)))
	}
}

// Record returns a copy of an entity record. Like Tick, it must not overlap
// with a running actor.
func (a *Actor) Record(id entity.ID) (entity.Record, bool) {
	rec, ok := a.records[id]
	if !ok {
		return entity.Record{}, false
	}
	return *rec, true
}

func (a *Actor) Len() int {
	return len(a.records)
}

func (a *Actor) Bucket(r economy.Resource) economy.Bucket {
	return a.ledger.Bucket(r)
}

func (a *Actor) emit(ev message.Event) {
	if err := a.q.Events.Send(ev); err != nil {
		a.logger.Warn("event dropped", log.String("kind", ev.Kind()), log.Error(err))
	}
}

// send logs a failed hand-off to a worker. The request stays unresolved.
func (a *Actor) send(worker string, err error) {
	if err != nil {
		a.logger.Error("work item dropped", log.String("worker", worker), log.Error(err))
	}
}

func (a *Actor) emitResource(r economy.Resource) {
	b := a.ledger.Bucket(r)
	a.emit(message.ResourceChanged{Resource: r, Current: b.Current, Cap: b.Cap, Rate: a.ledger.Rate(r)})
}
