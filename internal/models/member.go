package models

import (
	"time"

	"github.com/google/uuid"
)

// PermissionLevel grades a member's privileges within an organization.
// Higher values are more privileged. Only PermissionLevelOwner has meaning to
// the default policy, every other value is compared numerically.
type PermissionLevel int

const (
	PermissionLevelNone   PermissionLevel = 0
	PermissionLevelMember PermissionLevel = 1   // default level granted by invitations
	PermissionLevelOwner  PermissionLevel = 100 // maximum recognized level
)

// Valid returns true if the level lies within the recognized range.
func (l PermissionLevel) Valid() bool {
	return l >= PermissionLevelNone && l <= PermissionLevelOwner
}

// IsOwner returns true for owner-level permissions.
func (l PermissionLevel) IsOwner() bool {
	return l >= PermissionLevelOwner
}

// Member represents a principal's graded membership in one organization.
type Member struct {
	MemberID        uuid.UUID // UUIDv7
	OrgID           uuid.UUID // FK to organizations
	PrincipalID     uuid.UUID // FK to principals
	PermissionLevel PermissionLevel

	// InvitationID links back to the invitation that produced this member.
	// It is nil for founding owners.
	InvitationID *uuid.UUID

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (m *Member) ID() uuid.UUID             { return m.MemberID }
func (m *Member) OrganizationID() uuid.UUID { return m.OrgID }
func (m *Member) Level() PermissionLevel    { return m.PermissionLevel }

// IsOwnerOf returns true if the member is the recorded owner of org.
func (m *Member) IsOwnerOf(org *Organization) bool {
	return m.OrgID == org.OrgID &&
		m.PrincipalID == org.OwnerPrincipalID &&
		m.PermissionLevel.IsOwner()
}
