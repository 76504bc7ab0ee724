package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgs/internal/models"
	"github.com/wolfeidau/orgs/internal/store"
)

// OrganizationStore implements store.OrganizationStore using in-memory storage.
type OrganizationStore struct {
	db *database
}

// Create creates a new organization and its founding owner in memory.
func (s *OrganizationStore) Create(ctx context.Context, org *models.Organization, owner *models.Member) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	// Check if organization already exists
	if _, exists := s.db.organizations[org.OrgID]; exists {
		return store.ErrOrganizationAlreadyExists
	}

	if org.SuperOrgID != nil {
		if _, exists := s.db.organizations[*org.SuperOrgID]; !exists {
			return store.ErrOrganizationNotFound
		}
	}

	if _, exists := s.db.principals[org.OwnerPrincipalID]; !exists {
		return store.ErrPrincipalNotFound
	}

	if _, exists := s.db.members[owner.MemberID]; exists {
		return store.ErrMemberAlreadyExists
	}

	// Clone to avoid external modifications
	s.db.organizations[org.OrgID] = cloneOrganization(org)
	s.db.members[owner.MemberID] = cloneMember(owner)

	return nil
}

// Get retrieves an organization by ID.
func (s *OrganizationStore) Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	org, exists := s.db.organizations[orgID]
	if !exists {
		return nil, store.ErrOrganizationNotFound
	}

	return cloneOrganization(org), nil
}

// Update applies a patch to an existing organization.
func (s *OrganizationStore) Update(ctx context.Context, orgID uuid.UUID, patch store.OrganizationPatch) (*models.Organization, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	org, exists := s.db.organizations[orgID]
	if !exists {
		return nil, store.ErrOrganizationNotFound
	}

	if parentID, ok := patch.SuperOrgID.Get(); ok {
		if err := s.checkParent(orgID, parentID); err != nil {
			return nil, err
		}
	}

	updated := cloneOrganization(org)
	if policy, ok := patch.PermissionsPolicy.Get(); ok {
		updated.PermissionsPolicy = policy
	}
	if patch.SuperOrgID.IsSet() {
		updated.SuperOrgID = patch.SuperOrgID.Ptr()
	}
	updated.UpdatedAt = time.Now()

	s.db.organizations[orgID] = cloneOrganization(updated)

	return updated, nil
}

// checkParent walks up from parentID and rejects the move if it reaches orgID.
func (s *OrganizationStore) checkParent(orgID, parentID uuid.UUID) error {
	for id := parentID; ; {
		if id == orgID {
			return store.ErrOrganizationCycle
		}
		current, exists := s.db.organizations[id]
		if !exists {
			return store.ErrOrganizationNotFound
		}
		if current.SuperOrgID == nil {
			return nil
		}
		id = *current.SuperOrgID
	}
}

// Delete deletes an organization with its members and invitations.
func (s *OrganizationStore) Delete(ctx context.Context, orgID uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, exists := s.db.organizations[orgID]; !exists {
		return store.ErrOrganizationNotFound
	}

	for _, org := range s.db.organizations {
		if org.SuperOrgID != nil && *org.SuperOrgID == orgID {
			return store.ErrOrganizationHasChildren
		}
	}

	for id, m := range s.db.members {
		if m.OrgID == orgID {
			delete(s.db.members, id)
		}
	}
	for id, inv := range s.db.invitations {
		if inv.OrgID == orgID {
			delete(s.db.invitations, id)
		}
	}
	delete(s.db.organizations, orgID)

	return nil
}

// ListChildren returns the direct sub-organizations of an organization.
func (s *OrganizationStore) ListChildren(ctx context.Context, orgID uuid.UUID) ([]*models.Organization, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var result []*models.Organization
	for _, org := range s.db.organizations {
		if org.SuperOrgID != nil && *org.SuperOrgID == orgID {
			result = append(result, cloneOrganization(org))
		}
	}
	sortOrganizations(result)

	return result, nil
}

// ListByMember returns all organizations where the principal holds a member row.
func (s *OrganizationStore) ListByMember(ctx context.Context, principalID uuid.UUID) ([]*models.Organization, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var result []*models.Organization
	for _, m := range s.db.members {
		if m.PrincipalID != principalID {
			continue
		}
		if org, exists := s.db.organizations[m.OrgID]; exists {
			result = append(result, cloneOrganization(org))
		}
	}
	sortOrganizations(result)

	return result, nil
}
