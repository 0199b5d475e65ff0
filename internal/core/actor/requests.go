package actor

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zeusync/hexkernel/internal/core/economy"
	"github.com/zeusync/hexkernel/internal/core/entity"
	"github.com/zeusync/hexkernel/internal/core/errs"
	"github.com/zeusync/hexkernel/internal/core/message"
	"github.com/zeusync/hexkernel/internal/core/observability/log"
	"github.com/zeusync/hexkernel/internal/core/pathfinding"
	"github.com/zeusync/hexkernel/internal/core/spawn"
	"github.com/zeusync/hexkernel/internal/core/terrain"
)

func (a *Actor) apply(req message.Request) {
	if err := a.handle(req); err != nil {
		a.logger.Debug("request dropped", log.String("kind", req.Kind()), log.Error(err))
	}
}

// handle applies one request. Errors are only reported to the log: updates on
// absent entities are no-ops by contract.
func (a *Actor) handle(req message.Request) error {
	switch r := req.(type) {
	case message.SpawnEntity:
		return a.spawnEntity(r)
	case message.RequestPath:
		return a.requestPath(r)
	case message.RequestRandomDest:
		return a.requestRandomDest(r)

	case message.UpdateEntityPosition:
		rec, err := a.lookup(r.ID)
		if err != nil {
			return err
		}
		if !r.Position.InBounds() {
			return fmt.Errorf("%w: position %s", errs.ErrValidation, r.Position)
		}
		rec.Position = r.Position
	case message.UpdateEntityState:
		rec, err := a.lookup(r.ID)
		if err != nil {
			return err
		}
		// death only comes from hit points
		rec.State = r.State.Without(entity.StateDead) | rec.State&entity.StateDead
	case message.RemoveEntity:
		if _, err := a.lookup(r.ID); err != nil {
			return err
		}
		a.remove(r.ID)

	case message.RegisterEntityStats:
		return a.registerStats(r)
	case message.SetStat:
		rec, err := a.lookupRegistered(r.ID)
		if err != nil {
			return err
		}
		if !r.Stat.Valid() {
			return fmt.Errorf("%w: %s", errs.ErrValidation, r.Stat)
		}
		rec.Stats.Set(r.Stat, r.Value)
		a.emit(message.StatChanged{ID: rec.ID, Stat: r.Stat, Value: r.Value})
		if r.Stat == entity.StatHP {
			a.checkDeath(rec)
		}
	case message.TakeDamage:
		rec, err := a.lookupLiving(r.ID)
		if err != nil {
			return err
		}
		dealt := rec.Stats.TakeDamage(r.Damage)
		a.damaged(rec, dealt)
	case message.Heal:
		rec, err := a.lookupLiving(r.ID)
		if err != nil {
			return err
		}
		healed := rec.Stats.Heal(r.Amount)
		hp := rec.Stats.Get(entity.StatHP)
		a.emit(message.EntityHealed{ID: rec.ID, Amount: healed, HP: hp})
		a.emit(message.StatChanged{ID: rec.ID, Stat: entity.StatHP, Value: hp})
	case message.ProjectileHit:
		rec, err := a.lookupLiving(r.Defender)
		if err != nil {
			return err
		}
		a.hit(r.Attacker, rec, r.Damage)

	case message.SpendResources:
		return a.spend(r)
	case message.AddResources:
		if !r.Resource.Valid() {
			return fmt.Errorf("%w: %s", errs.ErrValidation, r.Resource)
		}
		a.ledger.Add(r.Resource, r.Amount)
		a.emitResource(r.Resource)
	case message.ProcessTurnConsumption:
		living := 0
		for _, rec := range a.records {
			if rec.Registered && rec.Alive() {
				living++
			}
		}
		a.ledger.Add(economy.Food, decimal.NewFromInt(int64(-living)))
		a.emitResource(economy.Food)
	case message.RegisterProducer:
		return a.register(a.producers, r.ID, r.Resource, r.RatePerSec, r.Active)
	case message.RegisterConsumer:
		return a.register(a.consumers, r.ID, r.Resource, r.RatePerSec, r.Active)
	case message.RemoveProducer:
		delete(a.producers, r.ID)
	case message.RemoveConsumer:
		delete(a.consumers, r.ID)

	default:
		return fmt.Errorf("%w: unsupported request %T", errs.ErrValidation, req)
	}
	return nil
}

func (a *Actor) spawnEntity(r message.SpawnEntity) error {
	if r.SearchRadius < 0 || r.SearchRadius > spawn.MaxSearchRadius {
		return fmt.Errorf("%w: search radius %d outside [0, %d]", errs.ErrValidation, r.SearchRadius, spawn.MaxSearchRadius)
	}
	work := spawn.Work{
		EntityType:   r.EntityType,
		Terrain:      r.Terrain,
		SearchRadius: r.SearchRadius,
		Occupied:     a.occupancy(uuid.Nil),
	}
	if r.Preferred != nil {
		p := *r.Preferred
		work.Preferred = &p
	}
	a.send("spawn", a.q.SpawnWork.Send(work))
	return nil
}

func (a *Actor) requestPath(r message.RequestPath) error {
	rec, err := a.lookupLiving(r.ID)
	if err != nil {
		return err
	}
	if !r.Start.InBounds() || !r.Goal.InBounds() {
		return fmt.Errorf("%w: path %s -> %s", errs.ErrValidation, r.Start, r.Goal)
	}
	work := pathfinding.Work{Kind: pathfinding.KindPath, ID: r.ID, Terrain: r.Terrain, Start: r.Start, Goal: r.Goal}
	if r.AvoidEntities {
		work.Blocked = a.occupancy(r.ID)
	}
	rec.State = rec.State.With(entity.StatePathfinding)
	a.send("pathfinding", a.q.PathWork.Send(work))
	return nil
}

func (a *Actor) requestRandomDest(r message.RequestRandomDest) error {
	if _, err := a.lookupLiving(r.ID); err != nil {
		return err
	}
	if !r.Start.InBounds() || r.MinDistance < 0 || r.MaxDistance < max(r.MinDistance, 1) {
		return fmt.Errorf("%w: random destination from %s in [%d, %d]", errs.ErrValidation, r.Start, r.MinDistance, r.MaxDistance)
	}
	a.send("pathfinding", a.q.PathWork.Send(pathfinding.Work{
		Kind:        pathfinding.KindRandomDest,
		ID:          r.ID,
		Terrain:     r.Terrain,
		Start:       r.Start,
		MinDistance: r.MinDistance,
		MaxDistance: r.MaxDistance,
		Blocked:     a.occupancy(r.ID),
	}))
	return nil
}

func (a *Actor) registerStats(r message.RegisterEntityStats) error {
	if r.ID == uuid.Nil {
		return fmt.Errorf("%w: nil entity id", errs.ErrValidation)
	}
	if !r.Position.InBounds() {
		return fmt.Errorf("%w: position %s", errs.ErrValidation, r.Position)
	}
	if !r.Terrain.Valid() || r.Terrain == terrain.Obstacle {
		return fmt.Errorf("%w: terrain %s", errs.ErrValidation, r.Terrain)
	}

	if _, gone := a.retired[r.ID]; gone {
		return fmt.Errorf("%w: entity %s was removed", errs.ErrNotFound, r.ID)
	}
	rec, ok := a.records[r.ID]
	if !ok {
		rec = &entity.Record{ID: r.ID, State: entity.StateIdle}
		a.records[r.ID] = rec
	}
	rec.Type = r.EntityType
	rec.Terrain = r.Terrain
	rec.Team = r.Team
	rec.Position = r.Position
	rec.Style = r.Style
	rec.AttackInterval = r.AttackInterval
	if rec.AttackInterval <= 0 {
		rec.AttackInterval = a.opts.AttackInterval
	}
	rec.Stats = entity.Preset(r.EntityType, r.Terrain)
	rec.Registered = true

	for s := entity.StatType(0); s < entity.StatCount; s++ {
		a.emit(message.StatChanged{ID: rec.ID, Stat: s, Value: rec.Stats.Get(s)})
	}
	return nil
}

func (a *Actor) spend(r message.SpendResources) error {
	if err := a.ledger.Spend(r.Cost); err != nil {
		a.emit(message.SpendRejected{Cost: r.Cost, Reason: err.Error()})
		return nil
	}
	changed := make([]economy.Resource, 0, len(r.Cost))
	for res := range r.Cost {
		changed = append(changed, res)
	}
	slices.Sort(changed)
	for _, res := range changed {
		a.emitResource(res)
	}
	return nil
}

func (a *Actor) register(into map[entity.ID]economy.Registration, id entity.ID, res economy.Resource, rate decimal.Decimal, active bool) error {
	if id == uuid.Nil || !res.Valid() {
		return fmt.Errorf("%w: registration %s for %s", errs.ErrValidation, id, res)
	}
	into[id] = economy.Registration{ID: id, Resource: res, RatePerSec: rate, Active: active}
	return nil
}

// damaged reports HP loss and runs the death check.
func (a *Actor) damaged(rec *entity.Record, dealt float64) {
	hp := rec.Stats.Get(entity.StatHP)
	rec.State = rec.State.With(entity.StateHurt)
	a.emit(message.EntityDamaged{ID: rec.ID, Damage: dealt, HP: hp})
	a.emit(message.StatChanged{ID: rec.ID, Stat: entity.StatHP, Value: hp})
	a.checkDeath(rec)
}

// hit applies already-resolved attack damage to a defender.
func (a *Actor) hit(attacker entity.ID, defender *entity.Record, damage float64) {
	dealt := defender.Stats.ApplyRaw(damage)
	a.emit(message.DamageDealt{Attacker: attacker, Defender: defender.ID, Damage: dealt})
	a.damaged(defender, dealt)
}

func (a *Actor) checkDeath(rec *entity.Record) {
	if rec.Registered && !rec.State.Has(entity.StateDead) && !rec.Stats.Alive() {
		a.kill(rec)
	}
}

// kill reports the death once and removes the entity with its registrations.
func (a *Actor) kill(rec *entity.Record) {
	rec.State = entity.StateDead
	a.emit(message.EntityDied{ID: rec.ID})
	a.remove(rec.ID)
}

func (a *Actor) remove(id entity.ID) {
	a.retired[id] = struct{}{}
	delete(a.records, id)
	delete(a.producers, id)
	delete(a.consumers, id)
}

func (a *Actor) lookup(id entity.ID) (*entity.Record, error) {
	rec, ok := a.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: entity %s", errs.ErrNotFound, id)
	}
	return rec, nil
}

func (a *Actor) lookupLiving(id entity.ID) (*entity.Record, error) {
	rec, err := a.lookup(id)
	if err != nil {
		return nil, err
	}
	if !rec.Alive() {
		return nil, fmt.Errorf("%w: entity %s is dead", errs.ErrNotFound, id)
	}
	return rec, nil
}

func (a *Actor) lookupRegistered(id entity.ID) (*entity.Record, error) {
	rec, err := a.lookup(id)
	if err != nil {
		return nil, err
	}
	if !rec.Registered {
		return nil, fmt.Errorf("%w: entity %s has no stats", errs.ErrNotFound, id)
	}
	return rec, nil
}

