// Package message defines the requests a host sends to the kernel and the
// events the kernel emits back, together with their JSON envelope.
package message

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/zeusync/hexkernel/internal/core/economy"
	"github.com/zeusync/hexkernel/internal/core/entity"
	"github.com/zeusync/hexkernel/internal/core/hex"
	"github.com/zeusync/hexkernel/internal/core/terrain"
)

// Request is anything a host may submit on the request channel.
type Request interface {
	Kind() string
}

type SpawnEntity struct {
	EntityType   string       `json:"entity_type"`
	Terrain      terrain.Type `json:"terrain"`
	Preferred    *hex.Coord   `json:"preferred,omitempty"`
	SearchRadius int          `json:"search_radius"`
}

type RequestPath struct {
	ID            entity.ID    `json:"id"`
	Terrain       terrain.Type `json:"terrain"`
	Start         hex.Coord    `json:"start"`
	Goal          hex.Coord    `json:"goal"`
	AvoidEntities bool         `json:"avoid_entities"`
}

type RequestRandomDest struct {
	ID          entity.ID    `json:"id"`
	Terrain     terrain.Type `json:"terrain"`
	Start       hex.Coord    `json:"start"`
	MinDistance int          `json:"min_distance"`
	MaxDistance int          `json:"max_distance"`
}

type UpdateEntityPosition struct {
	ID       entity.ID `json:"id"`
	Position hex.Coord `json:"position"`
}

type UpdateEntityState struct {
	ID    entity.ID    `json:"id"`
	State entity.State `json:"state"`
}

type RemoveEntity struct {
	ID entity.ID `json:"id"`
}

type RegisterEntityStats struct {
	ID             entity.ID          `json:"id"`
	Team           entity.Team        `json:"team"`
	EntityType     string             `json:"entity_type"`
	Terrain        terrain.Type       `json:"terrain"`
	Position       hex.Coord          `json:"position"`
	Style          entity.CombatStyle `json:"style"`
	AttackInterval time.Duration      `json:"attack_interval,omitempty"`
}

type SetStat struct {
	ID    entity.ID       `json:"id"`
	Stat  entity.StatType `json:"stat"`
	Value float64         `json:"value"`
}

type TakeDamage struct {
	ID     entity.ID `json:"id"`
	Damage float64   `json:"damage"`
}

type Heal struct {
	ID     entity.ID `json:"id"`
	Amount float64   `json:"amount"`
}

// ProjectileHit reports that a projectile announced by SpawnProjectile reached
// its target.
type ProjectileHit struct {
	Attacker entity.ID `json:"attacker"`
	Defender entity.ID `json:"defender"`
	Damage   float64   `json:"damage"`
}

type SpendResources struct {
	Cost map[economy.Resource]decimal.Decimal `json:"cost"`
}

type AddResources struct {
	Resource economy.Resource `json:"resource"`
	Amount   decimal.Decimal  `json:"amount"`
}

type ProcessTurnConsumption struct{}

type RegisterProducer struct {
	ID         entity.ID        `json:"id"`
	Resource   economy.Resource `json:"resource"`
	RatePerSec decimal.Decimal  `json:"rate_per_sec"`
	Active     bool             `json:"active"`
}

type RegisterConsumer struct {
	ID         entity.ID        `json:"id"`
	Resource   economy.Resource `json:"resource"`
	RatePerSec decimal.Decimal  `json:"rate_per_sec"`
	Active     bool             `json:"active"`
}

type RemoveProducer struct {
	ID entity.ID `json:"id"`
}

type RemoveConsumer struct {
	ID entity.ID `json:"id"`
}

func (*SpawnEntity) requiredFields() []string         { return []string{"terrain"} }
func (*RequestPath) requiredFields() []string         { return []string{"id", "terrain", "start", "goal"} }
func (*RequestRandomDest) requiredFields() []string   { return []string{"id", "terrain", "start"} }
func (*RegisterEntityStats) requiredFields() []string { return []string{"id", "terrain", "position"} }

func (SpawnEntity) Kind() string            { return "spawn_entity" }
func (RequestPath) Kind() string            { return "request_path" }
func (RequestRandomDest) Kind() string      { return "request_random_dest" }
func (UpdateEntityPosition) Kind() string   { return "update_entity_position" }
func (UpdateEntityState) Kind() string      { return "update_entity_state" }
func (RemoveEntity) Kind() string           { return "remove_entity" }
func (RegisterEntityStats) Kind() string    { return "register_entity_stats" }
func (SetStat) Kind() string                { return "set_stat" }
func (TakeDamage) Kind() string             { return "take_damage" }
func (Heal) Kind() string                   { return "heal" }
func (ProjectileHit) Kind() string          { return "projectile_hit" }
func (SpendResources) Kind() string         { return "spend_resources" }
func (AddResources) Kind() string           { return "add_resources" }
func (ProcessTurnConsumption) Kind() string { return "process_turn_consumption" }
func (RegisterProducer) Kind() string       { return "register_producer" }
func (RegisterConsumer) Kind() string       { return "register_consumer" }
func (RemoveProducer) Kind() string         { return "remove_producer" }
func (RemoveConsumer) Kind() string         { return "remove_consumer" }
