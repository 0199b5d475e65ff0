package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/zeusync/hexkernel/internal/core/hex"
	"github.com/zeusync/hexkernel/internal/core/terrain"
)

const DefaultAttackInterval = 1500 * time.Millisecond

type CombatStyle uint8

const (
	Melee CombatStyle = iota
	Ranged
)

func (c CombatStyle) String() string {
	if c == Ranged {
		return "ranged"
	}
	return "melee"
}

func ParseCombatStyle(s string) (CombatStyle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "melee":
		return Melee, nil
	case "ranged":
		return Ranged, nil
	default:
		return Melee, fmt.Errorf("unknown combat style %q", s)
	}
}

func (c CombatStyle) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *CombatStyle) UnmarshalText(b []byte) error {
	v, err := ParseCombatStyle(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Record is the authoritative state of one entity. Only the actor goroutine
// reads or writes records.
type Record struct {
	ID             ID
	Type           string
	Position       hex.Coord
	Terrain        terrain.Type
	Team           Team
	State          State
	Style          CombatStyle
	AttackInterval time.Duration

	// Stats are meaningful only once registered; unregistered entities never
	// fight and are never counted for consumption.
	Stats      Stats
	Registered bool
}

func (r *Record) Alive() bool {
	return !r.State.Has(StateDead) && (!r.Registered || r.Stats.Alive())
}

// Combatant is the read-only view of a record handed to the combat worker.
type Combatant struct {
	ID             ID
	Team           Team
	Position       hex.Coord
	Style          CombatStyle
	AttackInterval time.Duration
	HP             float64
	Attack         float64
	Defense        float64
	Range          int
	Dead           bool
}

func (r *Record) Combatant() Combatant {
	interval := r.AttackInterval
	if interval <= 0 {
		interval = DefaultAttackInterval
	}
	return Combatant{
		ID:             r.ID,
		Team:           r.Team,
		Position:       r.Position,
		Style:          r.Style,
		AttackInterval: interval,
		HP:             r.Stats[StatHP],
		Attack:         r.Stats[StatAttack],
		Defense:        r.Stats[StatDefense],
		Range:          int(r.Stats[StatRange]),
		Dead:           r.State.Has(StateDead),
	}
}
