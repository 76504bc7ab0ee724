package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgs/internal/models"
	"github.com/wolfeidau/orgs/internal/store"
)

// PrincipalStore implements store.PrincipalStore using in-memory storage.
type PrincipalStore struct {
	db *database
}

// Upsert inserts a principal or refreshes its email.
func (s *PrincipalStore) Upsert(ctx context.Context, principal *models.Principal) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	now := time.Now()

	if existing, exists := s.db.principals[principal.PrincipalID]; exists {
		existing.Email = principal.Email
		existing.UpdatedAt = now
		return nil
	}

	clone := *principal
	clone.Authenticated = false
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = now
	}
	clone.UpdatedAt = now
	s.db.principals[principal.PrincipalID] = &clone

	return nil
}

// Get retrieves a principal by ID.
func (s *PrincipalStore) Get(ctx context.Context, principalID uuid.UUID) (*models.Principal, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	principal, exists := s.db.principals[principalID]
	if !exists {
		return nil, store.ErrPrincipalNotFound
	}

	// Clone to avoid external modifications
	clone := *principal
	return &clone, nil
}
