package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgs/internal/models"
)

// Sentinel errors for member store operations
var (
	ErrMemberNotFound      = errors.New("member not found")
	ErrMemberAlreadyExists = errors.New("member already exists")

	// ErrOwnerTransferRequired is returned when the organization owner is
	// demoted without naming a new owner.
	ErrOwnerTransferRequired = errors.New("owner demotion requires a new owner")

	// ErrNewOwnerNotEligible is returned when the named new owner does not
	// already hold an owner-level member row in the same organization.
	ErrNewOwnerNotEligible = errors.New("new owner must already be an owner-level member")
)

// ListMembersOptions filters a member listing. Zero values match everything.
type ListMembersOptions struct {
	OrgID       uuid.UUID // Filter by organization (uuid.Nil = all)
	PrincipalID uuid.UUID // Filter by principal (uuid.Nil = all)
}

// MemberStore defines the interface for member storage operations.
// A principal holds at most one member row per organization.
type MemberStore interface {
	// Create inserts a member.
	// Returns ErrMemberAlreadyExists if the principal is already a member of the organization.
	Create(ctx context.Context, member *models.Member) error

	// Get retrieves a member by ID.
	// Returns ErrMemberNotFound if the member doesn't exist.
	Get(ctx context.Context, memberID uuid.UUID) (*models.Member, error)

	// GetByPrincipal retrieves the member row for a principal in an organization.
	// Returns ErrMemberNotFound if the principal is not a member.
	GetByPrincipal(ctx context.Context, orgID, principalID uuid.UUID) (*models.Member, error)

	// GetByEmail retrieves the member whose principal has the given (normalized) email.
	// Returns ErrMemberNotFound if no such member exists.
	GetByEmail(ctx context.Context, orgID uuid.UUID, email string) (*models.Member, error)

	// List returns members matching the options, oldest first.
	List(ctx context.Context, opts ListMembersOptions) ([]*models.Member, error)

	// UpdatePermission sets a member's permission level.
	//
	// When the member is the organization's owner, newOwner must name another
	// principal that already holds an owner-level member row in the organization;
	// the organization's owner is then reassigned in the same transaction as the
	// level change. Returns ErrOwnerTransferRequired when newOwner is nil and
	// ErrNewOwnerNotEligible when the named principal doesn't qualify, leaving
	// both rows unchanged. newOwner is ignored for any other member.
	// transferred reports whether the organization's owner was reassigned.
	UpdatePermission(ctx context.Context, memberID uuid.UUID, level models.PermissionLevel, newOwner *uuid.UUID) (member *models.Member, transferred bool, err error)
}
