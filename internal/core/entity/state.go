package entity

import "strings"

// State is a set of composable entity flags.
type State uint32

const (
	StateIdle State = 1 << iota
	StateMoving
	StatePathfinding
	StateBlocked
	StateInteracting
	StateDead
	StateInCombat
	StateAttacking
	StateHurt
)

var stateNames = []struct {
	flag State
	name string
}{
	{StateIdle, "idle"},
	{StateMoving, "moving"},
	{StatePathfinding, "pathfinding"},
	{StateBlocked, "blocked"},
	{StateInteracting, "interacting"},
	{StateDead, "dead"},
	{StateInCombat, "in_combat"},
	{StateAttacking, "attacking"},
	{StateHurt, "hurt"},
}

func (s State) Has(flag State) bool {
	return s&flag == flag
}

func (s State) With(flags State) State {
	return s | flags
}

func (s State) Without(flags State) State {
	return s &^ flags
}

func (s State) String() string {
	if s == 0 {
		return "none"
	}
	var parts []string
	for _, n := range stateNames {
		if s.Has(n.flag) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}
