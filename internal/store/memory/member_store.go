package memory

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgs/internal/models"
	"github.com/wolfeidau/orgs/internal/store"
)

// MemberStore implements store.MemberStore using in-memory storage.
type MemberStore struct {
	db *database
}

// Create creates a new member in memory.
func (s *MemberStore) Create(ctx context.Context, member *models.Member) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	return s.db.insertMember(member)
}

// insertMember enforces the member constraints. Caller holds the write lock.
func (db *database) insertMember(member *models.Member) error {
	if _, exists := db.members[member.MemberID]; exists {
		return store.ErrMemberAlreadyExists
	}
	if db.memberOf(member.OrgID, member.PrincipalID) != nil {
		return store.ErrMemberAlreadyExists
	}
	if _, exists := db.organizations[member.OrgID]; !exists {
		return store.ErrOrganizationNotFound
	}
	if _, exists := db.principals[member.PrincipalID]; !exists {
		return store.ErrPrincipalNotFound
	}

	db.members[member.MemberID] = cloneMember(member)
	return nil
}

// Get retrieves a member by ID.
func (s *MemberStore) Get(ctx context.Context, memberID uuid.UUID) (*models.Member, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	m, exists := s.db.members[memberID]
	if !exists {
		return nil, store.ErrMemberNotFound
	}

	return cloneMember(m), nil
}

// GetByPrincipal retrieves the member row for a principal in an organization.
func (s *MemberStore) GetByPrincipal(ctx context.Context, orgID, principalID uuid.UUID) (*models.Member, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	m := s.db.memberOf(orgID, principalID)
	if m == nil {
		return nil, store.ErrMemberNotFound
	}

	return cloneMember(m), nil
}

// GetByEmail retrieves the member whose principal has the given email.
func (s *MemberStore) GetByEmail(ctx context.Context, orgID uuid.UUID, email string) (*models.Member, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, m := range s.db.members {
		if m.OrgID != orgID {
			continue
		}
		if p, exists := s.db.principals[m.PrincipalID]; exists && p.Email == email {
			return cloneMember(m), nil
		}
	}

	return nil, store.ErrMemberNotFound
}

// List returns members matching the options, oldest first.
func (s *MemberStore) List(ctx context.Context, opts store.ListMembersOptions) ([]*models.Member, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var result []*models.Member
	for _, m := range s.db.members {
		if opts.OrgID != uuid.Nil && m.OrgID != opts.OrgID {
			continue
		}
		if opts.PrincipalID != uuid.Nil && m.PrincipalID != opts.PrincipalID {
			continue
		}
		result = append(result, cloneMember(m))
	}

	slices.SortFunc(result, func(a, b *models.Member) int {
		return compareCreated(a.CreatedAt, a.MemberID, b.CreatedAt, b.MemberID)
	})

	return result, nil
}

// UpdatePermission sets a member's level, transferring ownership when the owner is demoted.
func (s *MemberStore) UpdatePermission(ctx context.Context, memberID uuid.UUID, level models.PermissionLevel, newOwner *uuid.UUID) (*models.Member, bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	m, exists := s.db.members[memberID]
	if !exists {
		return nil, false, store.ErrMemberNotFound
	}

	org, exists := s.db.organizations[m.OrgID]
	if !exists {
		return nil, false, store.ErrOrganizationNotFound
	}

	now := time.Now()
	transferred := false

	if m.IsOwnerOf(org) && !level.IsOwner() {
		if newOwner == nil {
			return nil, false, store.ErrOwnerTransferRequired
		}
		if *newOwner == m.PrincipalID {
			return nil, false, store.ErrNewOwnerNotEligible
		}
		successor := s.db.memberOf(org.OrgID, *newOwner)
		if successor == nil || !successor.PermissionLevel.IsOwner() {
			return nil, false, store.ErrNewOwnerNotEligible
		}

		org.OwnerPrincipalID = *newOwner
		org.UpdatedAt = now
		transferred = true
	}

	m.PermissionLevel = level
	m.UpdatedAt = now

	return cloneMember(m), transferred, nil
}
