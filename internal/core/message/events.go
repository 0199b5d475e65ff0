package message

import (
	"github.com/shopspring/decimal"

	"github.com/zeusync/hexkernel/internal/core/economy"
	"github.com/zeusync/hexkernel/internal/core/entity"
	"github.com/zeusync/hexkernel/internal/core/hex"
	"github.com/zeusync/hexkernel/internal/core/terrain"
)

// Event is anything the kernel emits on the event channel.
type Event interface {
	Kind() string
}

type EntitySpawned struct {
	ID         entity.ID    `json:"id"`
	EntityType string       `json:"entity_type"`
	Terrain    terrain.Type `json:"terrain"`
	Position   hex.Coord    `json:"position"`
}

type SpawnFailed struct {
	EntityType string `json:"entity_type"`
	Reason     string `json:"reason"`
}

type PathFound struct {
	ID   entity.ID   `json:"id"`
	Path []hex.Coord `json:"path"`
	Cost int         `json:"cost"`
}

type PathFailed struct {
	ID     entity.ID `json:"id"`
	Reason string    `json:"reason"`
}

type RandomDestFound struct {
	ID          entity.ID `json:"id"`
	Destination hex.Coord `json:"destination"`
	Found       bool      `json:"found"`
}

type CombatStarted struct {
	Attacker entity.ID `json:"attacker"`
	Defender entity.ID `json:"defender"`
}

// CombatEnded carries the surviving participant, or the nil id when neither
// or both survived.
type CombatEnded struct {
	Attacker entity.ID `json:"attacker"`
	Defender entity.ID `json:"defender"`
	Winner   entity.ID `json:"winner"`
}

type DamageDealt struct {
	Attacker entity.ID `json:"attacker"`
	Defender entity.ID `json:"defender"`
	Damage   float64   `json:"damage"`
}

type SpawnProjectile struct {
	Attacker entity.ID `json:"attacker"`
	Defender entity.ID `json:"defender"`
	From     hex.Coord `json:"from"`
	To       hex.Coord `json:"to"`
	Damage   float64   `json:"damage"`
}

type EntityDamaged struct {
	ID     entity.ID `json:"id"`
	Damage float64   `json:"damage"`
	HP     float64   `json:"hp"`
}

type EntityHealed struct {
	ID     entity.ID `json:"id"`
	Amount float64   `json:"amount"`
	HP     float64   `json:"hp"`
}

type EntityDied struct {
	ID entity.ID `json:"id"`
}

type StatChanged struct {
	ID    entity.ID       `json:"id"`
	Stat  entity.StatType `json:"stat"`
	Value float64         `json:"value"`
}

type ResourceChanged struct {
	Resource economy.Resource `json:"resource"`
	Current  decimal.Decimal  `json:"current"`
	Cap      decimal.Decimal  `json:"cap"`
	Rate     decimal.Decimal  `json:"rate"`
}

type SpendRejected struct {
	Cost   map[economy.Resource]decimal.Decimal `json:"cost"`
	Reason string                               `json:"reason"`
}

func (EntitySpawned) Kind() string   { return "entity_spawned" }
func (SpawnFailed) Kind() string     { return "spawn_failed" }
func (PathFound) Kind() string       { return "path_found" }
func (PathFailed) Kind() string      { return "path_failed" }
func (RandomDestFound) Kind() string { return "random_dest_found" }
func (CombatStarted) Kind() string   { return "combat_started" }
func (CombatEnded) Kind() string     { return "combat_ended" }
func (DamageDealt) Kind() string     { return "damage_dealt" }
func (SpawnProjectile) Kind() string { return "spawn_projectile" }
func (EntityDamaged) Kind() string   { return "entity_damaged" }
func (EntityHealed) Kind() string    { return "entity_healed" }
func (EntityDied) Kind() string      { return "entity_died" }
func (StatChanged) Kind() string     { return "stat_changed" }
func (ResourceChanged) Kind() string { return "resource_changed" }
func (SpendRejected) Kind() string   { return "spend_rejected" }
