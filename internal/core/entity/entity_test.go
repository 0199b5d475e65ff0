package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/hexkernel/internal/core/errs"
	"github.com/zeusync/hexkernel/internal/core/hex"
	"github.com/zeusync/hexkernel/internal/core/terrain"
)

func TestID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.NotEqual(t, a, b)
	assert.Equal(t, uuid.Version(7), a.Version())

	got, err := ParseID(a.String())
	require.NoError(t, err)
	assert.Equal(t, a, got)

	_, err = ParseID("not-an-id")
	require.ErrorIs(t, err, errs.ErrValidation)
	_, err = ParseID(uuid.Nil.String())
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestState(t *testing.T) {
	s := StateIdle.With(StateInCombat | StateAttacking)
	assert.True(t, s.Has(StateInCombat))
	assert.True(t, s.Has(StateInCombat|StateAttacking))
	assert.False(t, s.Has(StateDead))
	assert.Equal(t, "idle|in_combat|attacking", s.String())

	s = s.Without(StateAttacking)
	assert.False(t, s.Has(StateAttacking))
	assert.Equal(t, "none", State(0).String())
	assert.Equal(t, State(32), StateDead)
	assert.Equal(t, State(256), StateHurt)
}

func TestStats(t *testing.T) {
	t.Run("Presets", func(t *testing.T) {
		water := Preset("ship", terrain.Water)
		assert.Equal(t, 100.0, water.Get(StatHP))
		assert.Equal(t, 10.0, water.Get(StatAttack))
		assert.Equal(t, 3.0, water.Get(StatRange))

		land := Preset("npc", terrain.Land)
		assert.Equal(t, 50.0, land.Get(StatMaxHP))
		assert.Equal(t, 1.5, land.Get(StatSpeed))
		assert.Equal(t, 100.0, land.Get(StatMana))

		building := Preset("building", terrain.Land)
		assert.Equal(t, 200.0, building.Get(StatHP))
		assert.Zero(t, building.Get(StatAttack))
	})

	t.Run("Take Damage", func(t *testing.T) {
		s := Preset("npc", terrain.Land)
		assert.Equal(t, 9.0, s.TakeDamage(10))
		assert.Equal(t, 41.0, s.Get(StatHP))

		// never less than one
		assert.Equal(t, 1.0, s.TakeDamage(0.5))

		assert.Equal(t, 999.0, s.TakeDamage(1000))
		assert.Zero(t, s.Get(StatHP))
		assert.False(t, s.Alive())
	})

	t.Run("Heal", func(t *testing.T) {
		s := Preset("npc", terrain.Land)
		s.Set(StatHP, 45)
		assert.Equal(t, 5.0, s.Heal(20))
		assert.Equal(t, 50.0, s.Get(StatHP))
		assert.Zero(t, s.Heal(5))
	})

	t.Run("Raw", func(t *testing.T) {
		s := Preset("npc", terrain.Land)
		assert.Equal(t, 8.0, s.ApplyRaw(8))
		assert.Equal(t, 42.0, s.ApplyRaw(100))
		assert.Zero(t, s.Get(StatHP))
	})

	assert.Equal(t, "max_mana", StatMaxMana.String())
	assert.False(t, StatType(15).Valid())
}

func TestRecord_Combatant(t *testing.T) {
	r := Record{
		ID:         NewID(),
		Position:   hex.New(3, 4),
		Stats:      Preset("ship", terrain.Water),
		Registered: true,
		Style:      Ranged,
	}
	c := r.Combatant()
	assert.Equal(t, DefaultAttackInterval, c.AttackInterval)
	assert.Equal(t, 3, c.Range)
	assert.Equal(t, 10.0, c.Attack)
	assert.True(t, r.Alive())

	r.AttackInterval = time.Second
	assert.Equal(t, time.Second, r.Combatant().AttackInterval)

	r.State = r.State.With(StateDead)
	assert.False(t, r.Alive())
	assert.True(t, r.Combatant().Dead)

	style, err := ParseCombatStyle("Ranged")
	require.NoError(t, err)
	assert.Equal(t, Ranged, style)
	_, err = ParseCombatStyle("siege")
	require.Error(t, err)
}
