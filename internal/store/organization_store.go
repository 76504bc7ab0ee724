package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgs/internal/models"
)

// Sentinel errors for organization store operations
var (
	ErrOrganizationNotFound      = errors.New("organization not found")
	ErrOrganizationAlreadyExists = errors.New("organization already exists")
	ErrOrganizationHasChildren   = errors.New("organization has sub-organizations")
	ErrOrganizationCycle         = errors.New("organization cannot be its own ancestor")
)

// OrganizationPatch lists the organization fields a single Update may change.
// Unset fields are left untouched. The owner is only changed through
// MemberStore.UpdatePermission so it always moves together with a member level.
type OrganizationPatch struct {
	PermissionsPolicy models.Field[json.RawMessage]

	// SuperOrgID re-parents the organization; Null detaches it to the top level.
	SuperOrgID models.Field[uuid.UUID]
}

// IsEmpty returns true if the patch changes nothing.
func (p OrganizationPatch) IsEmpty() bool {
	return !p.PermissionsPolicy.IsSet() && !p.SuperOrgID.IsSet()
}

// OrganizationStore defines the interface for organization storage operations.
// Organizations form a tree through SuperOrgID; children are found by reverse lookup.
type OrganizationStore interface {
	// Create inserts the organization and its founding owner member in one transaction.
	// Returns ErrOrganizationAlreadyExists if an organization with the same ID already exists,
	// ErrOrganizationNotFound if the parent doesn't exist and ErrPrincipalNotFound if the
	// owner principal is unknown.
	Create(ctx context.Context, org *models.Organization, owner *models.Member) error

	// Get retrieves an organization by ID.
	// Returns ErrOrganizationNotFound if the organization doesn't exist.
	Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error)

	// Update applies the patch and returns the updated organization.
	// Setting SuperOrgID returns ErrOrganizationCycle if the new parent is the
	// organization itself or one of its descendants; the check runs in the same
	// transaction as the write.
	// Returns ErrOrganizationNotFound if the organization (or new parent) doesn't exist.
	Update(ctx context.Context, orgID uuid.UUID, patch OrganizationPatch) (*models.Organization, error)

	// Delete deletes an organization by ID, removing its members and invitations.
	// Returns ErrOrganizationHasChildren while sub-organizations still reference it.
	// Returns ErrOrganizationNotFound if the organization doesn't exist.
	Delete(ctx context.Context, orgID uuid.UUID) error

	// ListChildren returns the direct sub-organizations of an organization.
	ListChildren(ctx context.Context, orgID uuid.UUID) ([]*models.Organization, error)

	// ListByMember returns all organizations where the principal holds a member row.
	ListByMember(ctx context.Context, principalID uuid.UUID) ([]*models.Organization, error)
}
