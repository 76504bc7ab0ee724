package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/orgs/internal/models"
	"github.com/wolfeidau/orgs/internal/store"
)

// PrincipalStore implements store.PrincipalStore using PostgreSQL.
type PrincipalStore struct {
	db *DB
}

// Upsert inserts a principal or refreshes its email.
func (s *PrincipalStore) Upsert(ctx context.Context, principal *models.Principal) error {
	now := time.Now()
	createdAt := principal.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err := s.db.pool.Exec(ctx, `
		INSERT INTO principals (principal_id, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (principal_id) DO UPDATE SET
			email = EXCLUDED.email,
			updated_at = EXCLUDED.updated_at
		WHERE principals.email IS DISTINCT FROM EXCLUDED.email
	`, principal.PrincipalID, principal.Email, createdAt, now)
	if err != nil {
		return fmt.Errorf("failed to upsert principal: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("principal_id", principal.PrincipalID.String()).
		Msg("Upserted principal")

	return nil
}

// Get retrieves a principal by ID.
func (s *PrincipalStore) Get(ctx context.Context, principalID uuid.UUID) (*models.Principal, error) {
	var p models.Principal
	err := s.db.pool.QueryRow(ctx, `
		SELECT principal_id, email, created_at, updated_at
		FROM principals
		WHERE principal_id = $1
	`, principalID).Scan(
		&p.PrincipalID,
		&p.Email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("failed to get principal: %w", mapPostgresError(err))
	}

	return &p, nil
}
