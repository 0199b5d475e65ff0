package entity

import (
	"fmt"
	"math"

	"github.com/zeusync/hexkernel/internal/core/terrain"
)

type StatType uint8

const (
	StatHP StatType = iota
	StatMaxHP
	StatAttack
	StatDefense
	StatSpeed
	StatMana
	StatMaxMana
	StatRange
	StatMorale
	StatExperience
	StatLevel
	StatProductionRate
	StatStorageCapacity
	StatLuck
	StatEvasion

	StatCount
)

var statNames = [StatCount]string{
	"hp", "max_hp", "attack", "defense", "speed", "mana", "max_mana", "range",
	"morale", "experience", "level", "production_rate", "storage_capacity",
	"luck", "evasion",
}

func (s StatType) Valid() bool {
	return s < StatCount
}

func (s StatType) String() string {
	if !s.Valid() {
		return fmt.Sprintf("stat(%d)", uint8(s))
	}
	return statNames[s]
}

// Stats is indexed by StatType; index order is also the display order.
type Stats [StatCount]float64

func (s *Stats) Get(t StatType) float64 {
	return s[t]
}

func (s *Stats) Set(t StatType, v float64) {
	s[t] = v
}

func (s *Stats) Alive() bool {
	return s[StatHP] > 0
}

// TakeDamage reduces HP by max(damage - defense/2, 1), never below zero, and
// returns the damage dealt.
func (s *Stats) TakeDamage(damage float64) float64 {
	actual := math.Max(damage-s[StatDefense]*0.5, 1)
	s[StatHP] = math.Max(s[StatHP]-actual, 0)
	return actual
}

// ApplyRaw reduces HP by exactly damage, clamped at zero.
func (s *Stats) ApplyRaw(damage float64) float64 {
	actual := math.Min(math.Max(damage, 0), s[StatHP])
	s[StatHP] -= actual
	return actual
}

// Heal raises HP up to MaxHP and returns the amount healed.
func (s *Stats) Heal(amount float64) float64 {
	actual := math.Max(math.Min(amount, s[StatMaxHP]-s[StatHP]), 0)
	s[StatHP] += actual
	return actual
}

// Preset returns the starting stats for a new entity. Buildings have their own
// table; everything else is chosen by terrain affinity.
func Preset(entityType string, affinity terrain.Type) Stats {
	var s Stats
	if entityType == "building" {
		s[StatHP], s[StatMaxHP] = 200, 200
		s[StatDefense] = 10
		s[StatProductionRate] = 1
		s[StatStorageCapacity] = 100
		return s
	}

	s[StatMana], s[StatMaxMana] = 100, 100
	s[StatMorale] = 100
	s[StatLevel] = 1
	switch affinity {
	case terrain.Water:
		s[StatHP], s[StatMaxHP] = 100, 100
		s[StatAttack] = 10
		s[StatDefense] = 5
		s[StatRange] = 3
		s[StatSpeed] = 1
	default:
		s[StatHP], s[StatMaxHP] = 50, 50
		s[StatAttack] = 5
		s[StatDefense] = 2
		s[StatRange] = 1
		s[StatSpeed] = 1.5
	}
	return s
}
