package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgs/internal/models"
)

// Sentinel errors for invitation store operations
var (
	ErrInvitationNotFound       = errors.New("invitation not found")
	ErrInvitationAlreadyPending = errors.New("invitation already pending for email")
	ErrInvitationNotPending     = errors.New("invitation is not pending")
	ErrInvitationExpired        = errors.New("invitation has expired")
)

// ListInvitationsOptions filters an invitation listing. Zero values match everything.
type ListInvitationsOptions struct {
	OrgID  uuid.UUID               // Filter by organization (uuid.Nil = all)
	Email  string                  // Filter by normalized email (empty = all)
	Status models.InvitationStatus // Filter by status (empty = all)

	// ActiveAt keeps only invitations expiring after this instant (zero = no filter).
	ActiveAt time.Time
}

// InvitationPatch lists the invitation fields a single Update may change.
type InvitationPatch struct {
	PermissionLevel models.Field[models.PermissionLevel]
	Status          models.Field[models.InvitationStatus]
}

// InvitationStore defines the interface for invitation storage operations.
// At most one pending invitation exists per organization and email.
type InvitationStore interface {
	// Create inserts a pending invitation.
	// Returns ErrInvitationAlreadyPending if a pending invitation for the same
	// organization and email already exists.
	Create(ctx context.Context, inv *models.Invitation) error

	// Get retrieves an invitation by ID regardless of status.
	// Returns ErrInvitationNotFound if the invitation doesn't exist.
	Get(ctx context.Context, invitationID uuid.UUID) (*models.Invitation, error)

	// List returns invitations matching the options, oldest first.
	List(ctx context.Context, opts ListInvitationsOptions) ([]*models.Invitation, error)

	// Update applies the patch to a pending invitation and returns the result.
	// Returns ErrInvitationNotPending if the invitation has left the pending state.
	Update(ctx context.Context, invitationID uuid.UUID, patch InvitationPatch) (*models.Invitation, error)

	// Accept marks a pending, unexpired invitation accepted and inserts member in
	// the same transaction. OrgID, PermissionLevel and InvitationID of member are
	// taken from the locked invitation row.
	// Returns ErrInvitationNotPending, ErrInvitationExpired or ErrMemberAlreadyExists,
	// in which case the invitation stays pending.
	Accept(ctx context.Context, invitationID uuid.UUID, member *models.Member, now time.Time) (*models.Invitation, error)

	// ExpirePending transitions every pending invitation whose expiry is before
	// now to expired and returns how many rows changed.
	ExpirePending(ctx context.Context, now time.Time) (int64, error)
}
