package actor

import (
	"bytes"
	"slices"
	"time"

	"github.com/zeusync/hexkernel/internal/core/economy"
	"github.com/zeusync/hexkernel/internal/core/entity"
	"github.com/zeusync/hexkernel/internal/core/hex"
)

func compareIDs(a, b entity.ID) int {
	return bytes.Compare(a[:], b[:])
}

// occupancy returns the positions of every live entity except skip.
func (a *Actor) occupancy(skip entity.ID) map[hex.Coord]struct{} {
	occ := make(map[hex.Coord]struct{}, len(a.records))
	for id, rec := range a.records {
		if id == skip || !rec.Alive() {
			continue
		}
		occ[rec.Position] = struct{}{}
	}
	return occ
}

func (a *Actor) occupied(c hex.Coord) bool {
	for _, rec := range a.records {
		if rec.Position == c && rec.Alive() {
			return true
		}
	}
	return false
}

// combatSnapshot copies every living, stat-registered entity, ordered by id.
func (a *Actor) combatSnapshot() []entity.Combatant {
	snap := make([]entity.Combatant, 0, len(a.records))
	for _, rec := range a.records {
		if !rec.Registered || rec.State.Has(entity.StateDead) {
			continue
		}
		snap = append(snap, rec.Combatant())
	}
	slices.SortFunc(snap, func(x, y entity.Combatant) int { return compareIDs(x.ID, y.ID) })
	return snap
}

func (a *Actor) economyWork(dt time.Duration) economy.Work {
	return economy.Work{
		Producers: sortedRegistrations(a.producers),
		Consumers: sortedRegistrations(a.consumers),
		Buckets:   a.ledger.Buckets(),
		DT:        dt,
	}
}

func sortedRegistrations(m map[entity.ID]economy.Registration) []economy.Registration {
	out := make([]economy.Registration, 0, len(m))
	for _, r := range m {
		out = append(out, r)
	}
	slices.SortFunc(out, func(x, y economy.Registration) int { return compareIDs(x.ID, y.ID) })
	return out
}
