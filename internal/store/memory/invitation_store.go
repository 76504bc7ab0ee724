package memory

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgs/internal/models"
	"github.com/wolfeidau/orgs/internal/store"
)

// InvitationStore implements store.InvitationStore using in-memory storage.
type InvitationStore struct {
	db *database
}

// Create creates a new pending invitation in memory.
func (s *InvitationStore) Create(ctx context.Context, inv *models.Invitation) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, exists := s.db.organizations[inv.OrgID]; !exists {
		return store.ErrOrganizationNotFound
	}
	if _, exists := s.db.principals[inv.InviterPrincipalID]; !exists {
		return store.ErrPrincipalNotFound
	}

	for _, existing := range s.db.invitations {
		if existing.InvitationID == inv.InvitationID {
			return store.ErrInvitationAlreadyPending
		}
		if existing.OrgID == inv.OrgID &&
			existing.Email == inv.Email &&
			existing.Status == models.InvitationStatusPending {
			return store.ErrInvitationAlreadyPending
		}
	}

	s.db.invitations[inv.InvitationID] = cloneInvitation(inv)

	return nil
}

// Get retrieves an invitation by ID.
func (s *InvitationStore) Get(ctx context.Context, invitationID uuid.UUID) (*models.Invitation, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	inv, exists := s.db.invitations[invitationID]
	if !exists {
		return nil, store.ErrInvitationNotFound
	}

	return cloneInvitation(inv), nil
}

// List returns invitations matching the options, oldest first.
func (s *InvitationStore) List(ctx context.Context, opts store.ListInvitationsOptions) ([]*models.Invitation, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var result []*models.Invitation
	for _, inv := range s.db.invitations {
		if opts.OrgID != uuid.Nil && inv.OrgID != opts.OrgID {
			continue
		}
		if opts.Email != "" && inv.Email != opts.Email {
			continue
		}
		if opts.Status != "" && inv.Status != opts.Status {
			continue
		}
		if !opts.ActiveAt.IsZero() && !inv.ExpiresAt.After(opts.ActiveAt) {
			continue
		}
		result = append(result, cloneInvitation(inv))
	}

	slices.SortFunc(result, func(a, b *models.Invitation) int {
		return compareCreated(a.CreatedAt, a.InvitationID, b.CreatedAt, b.InvitationID)
	})

	return result, nil
}

// Update applies a patch to a pending invitation.
func (s *InvitationStore) Update(ctx context.Context, invitationID uuid.UUID, patch store.InvitationPatch) (*models.Invitation, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	inv, exists := s.db.invitations[invitationID]
	if !exists {
		return nil, store.ErrInvitationNotFound
	}
	if inv.Status != models.InvitationStatusPending {
		return nil, store.ErrInvitationNotPending
	}

	if level, ok := patch.PermissionLevel.Get(); ok {
		inv.PermissionLevel = level
	}
	if status, ok := patch.Status.Get(); ok {
		inv.Status = status
	}
	inv.UpdatedAt = time.Now()

	return cloneInvitation(inv), nil
}

// Accept accepts a pending invitation and creates the member in one step.
func (s *InvitationStore) Accept(ctx context.Context, invitationID uuid.UUID, member *models.Member, now time.Time) (*models.Invitation, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	inv, exists := s.db.invitations[invitationID]
	if !exists {
		return nil, store.ErrInvitationNotFound
	}
	if inv.Status != models.InvitationStatusPending {
		return nil, store.ErrInvitationNotPending
	}
	if inv.IsExpired(now) {
		return nil, store.ErrInvitationExpired
	}

	member.OrgID = inv.OrgID
	member.PermissionLevel = inv.PermissionLevel
	acceptedID := inv.InvitationID
	member.InvitationID = &acceptedID

	if err := s.db.insertMember(member); err != nil {
		return nil, err
	}

	inv.Status = models.InvitationStatusAccepted
	inv.UpdatedAt = now

	return cloneInvitation(inv), nil
}

// ExpirePending marks every overdue pending invitation expired.
func (s *InvitationStore) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var count int64
	for _, inv := range s.db.invitations {
		if inv.Status == models.InvitationStatusPending && inv.ExpiresAt.Before(now) {
			inv.Status = models.InvitationStatusExpired
			inv.UpdatedAt = now
			count++
		}
	}

	return count, nil
}
