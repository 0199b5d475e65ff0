// Package terrain holds the chunked terrain cache shared by every worker: a
// bounded hot set of 32x32 chunks, a cold store for evicted chunks and a
// deterministic generator for chunks that have never been stored.
package terrain

import (
	"fmt"
	"strings"
)

// Type classifies a tile. Obstacle doubles as "not loaded".
type Type uint8

const (
	Water Type = iota
	Land
	Obstacle

	typeCount
)

func (t Type) String() string {
	switch t {
	case Water:
		return "water"
	case Land:
		return "land"
	case Obstacle:
		return "obstacle"
	default:
		return fmt.Sprintf("terrain(%d)", uint8(t))
	}
}

// Valid reports whether t is one of the known terrain types.
func (t Type) Valid() bool {
	return t < typeCount
}

// Walkable reports whether an entity with the given affinity may stand on t.
func (t Type) Walkable(affinity Type) bool {
	return t != Obstacle && t == affinity
}

func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "water":
		return Water, nil
	case "land":
		return Land, nil
	case "obstacle":
		return Obstacle, nil
	default:
		return Obstacle, fmt.Errorf("unknown terrain %q", s)
	}
}

func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid terrain %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	v, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
