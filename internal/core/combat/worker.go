// Package combat pairs nearby enemies and resolves their attacks once per
// combat tick. The worker owns the pairings; the actor owns hit points.
package combat

import (
	"bytes"
	"context"
	"errors"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/zeusync/hexkernel/internal/core/entity"
	"github.com/zeusync/hexkernel/internal/core/errs"
	"github.com/zeusync/hexkernel/internal/core/hex"
	"github.com/zeusync/hexkernel/internal/core/message"
	"github.com/zeusync/hexkernel/internal/core/observability/log"
	"github.com/zeusync/hexkernel/internal/core/queue"
)

// Work is one combat tick. Snapshot is ordered by entity id.
type Work struct {
	At       time.Time
	Snapshot []entity.Combatant
}

// Result lists CombatStarted, CombatEnded, DamageDealt, SpawnProjectile and
// EntityDied events in the order they occurred.
type Result struct {
	Events []message.Event
}

type pairing struct {
	defender   entity.ID
	nextAttack time.Time
}

type Worker struct {
	work    *queue.Unbounded[Work]
	results *queue.Unbounded[Result]
	logger  log.Log

	pairs map[entity.ID]*pairing
}

func NewWorker(work *queue.Unbounded[Work], results *queue.Unbounded[Result], logger log.Log) *Worker {
	return &Worker{
		work:    work,
		results: results,
		logger:  logger.With(log.String("component", "combat")),
		pairs:   make(map[entity.ID]*pairing),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	err := queue.Serve(ctx, w.work, w.results, func(_ context.Context, work Work) Result {
		return w.Process(work)
	})
	if errors.Is(err, errs.ErrChannelClosed) {
		w.logger.Info("combat queue closed, worker exiting")
		return nil
	}
	return err
}

// Active reports the number of ongoing pairings.
func (w *Worker) Active() int {
	return len(w.pairs)
}

// Process advances every pairing by one tick. It is not safe for concurrent
// use; Run is its only caller in a running kernel.
func (w *Worker) Process(work Work) Result {
	var res Result
	index := make(map[entity.ID]int, len(work.Snapshot))
	for i, c := range work.Snapshot {
		index[c.ID] = i
		if c.HP <= 0 && !c.Dead {
			res.Events = append(res.Events, message.EntityDied{ID: c.ID})
		}
	}
	lookup := func(id entity.ID) (entity.Combatant, bool) {
		i, ok := index[id]
		if !ok {
			return entity.Combatant{}, false
		}
		return work.Snapshot[i], true
	}

	// pairings whose attacker left the world (removed or died and removed)
	var gone []entity.ID
	for id := range w.pairs {
		if _, ok := index[id]; !ok {
			gone = append(gone, id)
		}
	}
	slices.SortFunc(gone, func(a, b entity.ID) int { return bytes.Compare(a[:], b[:]) })
	for _, id := range gone {
		p := w.pairs[id]
		winner := uuid.Nil
		if d, ok := lookup(p.defender); ok && alive(d) {
			winner = d.ID
		}
		res.Events = append(res.Events, message.CombatEnded{Attacker: id, Defender: p.defender, Winner: winner})
		delete(w.pairs, id)
	}

	for _, a := range work.Snapshot {
		if p, ok := w.pairs[a.ID]; ok {
			if ev, ok := w.advance(work.At, a, p, lookup); ok {
				res.Events = append(res.Events, ev)
			}
			continue
		}
		if !alive(a) {
			continue
		}
		if target, ok := nearestEnemy(a, work.Snapshot); ok {
			res.Events = append(res.Events, message.CombatStarted{Attacker: a.ID, Defender: target.ID})
			w.pairs[a.ID] = &pairing{defender: target.ID, nextAttack: work.At.Add(a.AttackInterval)}
		}
	}
	return res
}

func (w *Worker) advance(now time.Time, a entity.Combatant, p *pairing, lookup func(entity.ID) (entity.Combatant, bool)) (message.Event, bool) {
	d, found := lookup(p.defender)
	if !alive(a) || !found || !alive(d) || a.Team == d.Team || hex.Distance(a.Position, d.Position) > a.Range {
		delete(w.pairs, a.ID)
		return message.CombatEnded{Attacker: a.ID, Defender: p.defender, Winner: winner(a, d, found)}, true
	}
	if now.Before(p.nextAttack) {
		return nil, false
	}
	p.nextAttack = now.Add(a.AttackInterval)

	damage := math.Max(1, a.Attack-d.Defense/2)
	if a.Style == entity.Ranged {
		return message.SpawnProjectile{Attacker: a.ID, Defender: d.ID, From: a.Position, To: d.Position, Damage: damage}, true
	}
	return message.DamageDealt{Attacker: a.ID, Defender: d.ID, Damage: damage}, true
}

// nearestEnemy picks the closest living non-teammate within range; ties go to
// the first in snapshot order.
func nearestEnemy(a entity.Combatant, snapshot []entity.Combatant) (entity.Combatant, bool) {
	var best entity.Combatant
	bestDist := math.MaxInt
	for _, c := range snapshot {
		if c.ID == a.ID || !alive(c) || c.Team == a.Team {
			continue
		}
		if d := hex.Distance(a.Position, c.Position); d <= a.Range && d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist != math.MaxInt
}

func winner(a, d entity.Combatant, defenderFound bool) entity.ID {
	aAlive := alive(a)
	dAlive := defenderFound && alive(d)
	switch {
	case aAlive && !dAlive:
		return a.ID
	case dAlive && !aAlive:
		return d.ID
	default:
		return uuid.Nil
	}
}

func alive(c entity.Combatant) bool {
	return !c.Dead && c.HP > 0
}
