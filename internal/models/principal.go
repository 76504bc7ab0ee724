package models

import (
	"time"

	"github.com/google/uuid"
)

// Principal represents an already authenticated identity acting on the system.
// Credential verification happens upstream; only the ID and email are persisted.
type Principal struct {
	PrincipalID uuid.UUID // UUIDv7
	Email       string

	// Authenticated is set by the caller once the identity has been verified.
	// It is never persisted.
	Authenticated bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *Principal) ID() uuid.UUID { return p.PrincipalID }

// IsAnonymous returns true if the principal is missing or unverified.
func (p *Principal) IsAnonymous() bool {
	return p == nil || !p.Authenticated || p.PrincipalID == uuid.Nil
}
