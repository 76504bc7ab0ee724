package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgs/internal/models"
	"github.com/wolfeidau/orgs/internal/store"
)

// PrincipalStore implements store.PrincipalStore over SQLite.
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

	_, err := s.db.sqlDB.ExecContext(ctx, `
		INSERT INTO principals (principal_id, email, created_at, updated_at)
		VALUES (?1, ?2, ?3, ?4)
		ON CONFLICT (principal_id) DO UPDATE SET
			email = excluded.email,
			updated_at = excluded.updated_at
		WHERE principals.email <> excluded.email
	`, principal.PrincipalID, principal.Email, toMillis(createdAt), toMillis(now))
	if err != nil {
		return fmt.Errorf("upsert principal: %w", err)
	}

	return nil
}

// Get retrieves a principal by ID.
func (s *PrincipalStore) Get(ctx context.Context, principalID uuid.UUID) (*models.Principal, error) {
	var (
		p                    models.Principal
		createdAt, updatedAt int64
	)
	err := s.db.sqlDB.QueryRowContext(ctx, `
		SELECT principal_id, email, created_at, updated_at
		FROM principals
		WHERE principal_id = ?1
	`, principalID).Scan(&p.PrincipalID, &p.Email, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("get principal: %w", err)
	}

	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return &p, nil
}
