// Package entity defines the authoritative entity record held by the actor,
// its state flags and its combat stats.
package entity

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/zeusync/hexkernel/internal/core/errs"
)

// ID identifies an entity. IDs are time-ordered UUIDv7 values and are never
// reused.
type ID = uuid.UUID

// Team groups allied entities. NoTeam is the AI team.
type Team = uuid.UUID

var NoTeam = uuid.Nil

func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

func ParseID(s string) (ID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: entity id %q: %v", errs.ErrValidation, s, err)
	}
	if id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: nil entity id", errs.ErrValidation)
	}
	return id, nil
}
