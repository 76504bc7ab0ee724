package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// InvitationStatus represents the lifecycle status of an invitation.
type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
	InvitationStatusDeclined InvitationStatus = "declined"
	InvitationStatusCanceled InvitationStatus = "canceled"
	InvitationStatusExpired  InvitationStatus = "expired"
)

// IsTerminal returns true once the invitation has left the pending state.
// No transition is valid from a terminal status.
func (s InvitationStatus) IsTerminal() bool {
	return s != InvitationStatusPending
}

// ParseInvitationStatus converts a status label to an InvitationStatus.
func ParseInvitationStatus(label string) (InvitationStatus, error) {
	switch status := InvitationStatus(strings.ToLower(strings.TrimSpace(label))); status {
	case InvitationStatusPending,
		InvitationStatusAccepted,
		InvitationStatusDeclined,
		InvitationStatusCanceled,
		InvitationStatusExpired:
		return status, nil
	default:
		return "", fmt.Errorf("unknown invitation status %q", label)
	}
}

// Invitation represents a time-bounded offer of membership addressed by email.
type Invitation struct {
	InvitationID       uuid.UUID // UUIDv7
	OrgID              uuid.UUID // FK to organizations
	InviterPrincipalID uuid.UUID // FK to principals
	Email              string    // normalized (trimmed, lower case)
	PermissionLevel    PermissionLevel
	Status             InvitationStatus
	ExpiresAt          time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (i *Invitation) ID() uuid.UUID             { return i.InvitationID }
func (i *Invitation) OrganizationID() uuid.UUID { return i.OrgID }
func (i *Invitation) Level() PermissionLevel    { return i.PermissionLevel }

// IsExpired returns true if the invitation can no longer be accepted at now.
func (i *Invitation) IsExpired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// IsActionable returns true if the invitation is pending and unexpired at now.
func (i *Invitation) IsActionable(now time.Time) bool {
	return i.Status == InvitationStatusPending && !i.IsExpired(now)
}

// NormalizeEmail trims and lower-cases an email address for storage and matching.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
