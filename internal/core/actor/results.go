package actor

import (
	"github.com/zeusync/hexkernel/internal/core/combat"
	"github.com/zeusync/hexkernel/internal/core/economy"
	"github.com/zeusync/hexkernel/internal/core/entity"
	"github.com/zeusync/hexkernel/internal/core/message"
	"github.com/zeusync/hexkernel/internal/core/observability/log"
	"github.com/zeusync/hexkernel/internal/core/pathfinding"
	"github.com/zeusync/hexkernel/internal/core/spawn"
)

func (a *Actor) applySpawn(res spawn.Result) {
	if !res.OK {
		a.emit(message.SpawnFailed{EntityType: res.EntityType, Reason: res.Reason})
		return
	}
	defer a.pending.Release(res.Coord)

	// the tile was free when the worker scanned it, but entities may have
	// moved there since the work item was queued
	if a.occupied(res.Coord) {
		a.emit(message.SpawnFailed{EntityType: res.EntityType, Reason: "position " + res.Coord.String() + " became occupied"})
		return
	}
	a.records[res.ID] = &entity.Record{
		ID:       res.ID,
		Type:     res.EntityType,
		Position: res.Coord,
		Terrain:  res.Terrain,
		State:    entity.StateIdle,
	}
	a.emit(message.EntitySpawned{ID: res.ID, EntityType: res.EntityType, Terrain: res.Terrain, Position: res.Coord})
}

func (a *Actor) applyPath(res pathfinding.Result) {
	rec, ok := a.records[res.ID]
	if !ok {
		a.logger.Debug("path result for removed entity", log.Stringer("id", res.ID))
		return
	}

	switch res.Kind {
	case pathfinding.KindRandomDest:
		a.emit(message.RandomDestFound{ID: res.ID, Destination: res.Destination, Found: res.Found})
	default:
		rec.State = rec.State.Without(entity.StatePathfinding)
		if res.Path == nil {
			rec.State = rec.State.With(entity.StateBlocked)
			a.emit(message.PathFailed{ID: res.ID, Reason: res.Reason})
			return
		}
		rec.State = rec.State.Without(entity.StateBlocked)
		a.emit(message.PathFound{ID: res.ID, Path: res.Path, Cost: res.Cost})
	}
}

func (a *Actor) applyCombat(res combat.Result) {
	for _, ev := range res.Events {
		switch e := ev.(type) {
		case message.CombatStarted:
			attacker, ok := a.records[e.Attacker]
			if !ok {
				continue
			}
			// the defender may have been removed by a request in this drain;
			// the worker ends the pairing on its next pass
			defender, ok := a.records[e.Defender]
			if !ok {
				continue
			}
			attacker.State = attacker.State.With(entity.StateInCombat | entity.StateAttacking)
			defender.State = defender.State.With(entity.StateInCombat)
			a.engaged[e.Attacker] = e.Defender
			a.emit(e)

		case message.CombatEnded:
			if d, ok := a.engaged[e.Attacker]; !ok || d != e.Defender {
				continue
			}
			delete(a.engaged, e.Attacker)
			if attacker, ok := a.records[e.Attacker]; ok {
				attacker.State = attacker.State.Without(entity.StateInCombat | entity.StateAttacking)
			}
			// a defender fighting its own pairing stays in combat
			if defender, ok := a.records[e.Defender]; ok && !defender.State.Has(entity.StateAttacking) {
				defender.State = defender.State.Without(entity.StateInCombat)
			}
			a.emit(e)

		case message.DamageDealt:
			defender, err := a.lookupLiving(e.Defender)
			if err != nil {
				continue
			}
			a.hit(e.Attacker, defender, e.Damage)

		case message.SpawnProjectile:
			// resolved later by the host through ProjectileHit
			a.emit(e)

		case message.EntityDied:
			if rec, ok := a.records[e.ID]; ok && !rec.State.Has(entity.StateDead) {
				a.kill(rec)
			}

		default:
			a.logger.Warn("unexpected combat event", log.String("kind", ev.Kind()))
		}
	}
}

func (a *Actor) applyEconomy(res economy.Result) {
	for _, c := range res.Changes {
		a.ledger.Apply(c)
		a.emitResource(c.Resource)
	}
}
