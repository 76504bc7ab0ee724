package models

import "github.com/google/uuid"

// Identified is implemented by every persisted entity.
type Identified interface {
	ID() uuid.UUID
}

// OrganizationScoped is implemented by entities whose authorization is decided
// by an organization's policy.
type OrganizationScoped interface {
	Identified
	OrganizationID() uuid.UUID
}

// Leveled is implemented by entities carrying a permission level.
type Leveled interface {
	OrganizationScoped
	Level() PermissionLevel
}

var (
	_ OrganizationScoped = (*Organization)(nil)
	_ Leveled            = (*Member)(nil)
	_ Leveled            = (*Invitation)(nil)
	_ Identified         = (*Principal)(nil)
)
