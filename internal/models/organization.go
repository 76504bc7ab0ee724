package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Organization represents a tenant boundary in the system.
// Each organization owns members, invitations and a permissions policy, and may
// sit below one parent ("super") organization.
type Organization struct {
	OrgID            uuid.UUID  // UUIDv7
	OwnerPrincipalID uuid.UUID  // FK to principals, must hold an owner-level member row
	SuperOrgID       *uuid.UUID // FK to organizations, nil for top-level organizations

	// PermissionsPolicy is the raw versioned policy document, see the policy package.
	PermissionsPolicy json.RawMessage

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (o *Organization) ID() uuid.UUID { return o.OrgID }

// OrganizationID returns the organization's own ID; an organization is its own scope.
func (o *Organization) OrganizationID() uuid.UUID { return o.OrgID }

// IsTopLevel returns true if the organization has no parent.
func (o *Organization) IsTopLevel() bool {
	return o.SuperOrgID == nil
}
