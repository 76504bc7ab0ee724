package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgs/internal/models"
)

// Errors
var (
	ErrPrincipalNotFound = errors.New("principal not found")
)

// PrincipalStore keeps the identities referenced by organizations, members and invitations.
type PrincipalStore interface {
	// Upsert inserts the principal or refreshes its email.
	Upsert(ctx context.Context, principal *models.Principal) error

	// Get retrieves a principal by ID
	Get(ctx context.Context, principalID uuid.UUID) (*models.Principal, error)
}
