package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/orgs/internal/models"
	"github.com/wolfeidau/orgs/internal/store"
)

const organizationColumns = `org_id, owner_principal_id, super_org_id, permissions_policy, created_at, updated_at`

// OrganizationStore implements store.OrganizationStore over SQLite.
type OrganizationStore struct {
	db *DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrganization(row rowScanner) (*models.Organization, error) {
	var (
		org                  models.Organization
		superOrgID           uuid.NullUUID
		policy               string
		createdAt, updatedAt int64
	)
	err := row.Scan(&org.OrgID, &org.OwnerPrincipalID, &superOrgID, &policy, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if superOrgID.Valid {
		org.SuperOrgID = &superOrgID.UUID
	}
	org.PermissionsPolicy = []byte(policy)
	org.CreatedAt = fromMillis(createdAt)
	org.UpdatedAt = fromMillis(updatedAt)
	return &org, nil
}

func queryOrganizations(ctx context.Context, q queryer, query string, args ...any) ([]*models.Organization, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orgs []*models.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}

	return orgs, rows.Err()
}

func getOrganization(ctx context.Context, q queryer, orgID uuid.UUID) (*models.Organization, error) {
	org, err := scanOrganization(q.QueryRowContext(ctx,
		`SELECT `+organizationColumns+` FROM organizations WHERE org_id = ?1`, orgID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrOrganizationNotFound
		}
		return nil, err
	}
	return org, nil
}

func exists(ctx context.Context, q queryer, query string, args ...any) (bool, error) {
	var found bool
	err := q.QueryRowContext(ctx, `SELECT EXISTS(`+query+`)`, args...).Scan(&found)
	return found, err
}

// Create creates a new organization and its founding owner in one transaction.
func (s *OrganizationStore) Create(ctx context.Context, org *models.Organization, owner *models.Member) error {
	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		if org.SuperOrgID != nil {
			found, err := exists(ctx, tx, `SELECT 1 FROM organizations WHERE org_id = ?1`, *org.SuperOrgID)
			if err != nil {
				return err
			}
			if !found {
				return store.ErrOrganizationNotFound
			}
		}

		found, err := exists(ctx, tx, `SELECT 1 FROM principals WHERE principal_id = ?1`, org.OwnerPrincipalID)
		if err != nil {
			return err
		}
		if !found {
			return store.ErrPrincipalNotFound
		}

		var superOrgID uuid.NullUUID
		if org.SuperOrgID != nil {
			superOrgID = uuid.NullUUID{UUID: *org.SuperOrgID, Valid: true}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO organizations (
				org_id, owner_principal_id, super_org_id, permissions_policy, created_at, updated_at
			) VALUES (?1, ?2, ?3, ?4, ?5, ?6)
		`,
			org.OrgID,
			org.OwnerPrincipalID,
			superOrgID,
			string(org.PermissionsPolicy),
			toMillis(org.CreatedAt),
			toMillis(org.UpdatedAt),
		)
		if err != nil {
			if isUniqueViolation(err, "organizations") {
				return store.ErrOrganizationAlreadyExists
			}
			return err
		}

		return insertMember(ctx, tx, owner)
	})
	if err != nil {
		return fmt.Errorf("create organization: %w", err)
	}

	log.Debug().
		Str("org_id", org.OrgID.String()).
		Str("owner_principal_id", org.OwnerPrincipalID.String()).
		Msg("Created organization")

	return nil
}

// Get retrieves an organization by ID.
func (s *OrganizationStore) Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	org, err := getOrganization(ctx, s.db.sqlDB, orgID)
	if err != nil && !errors.Is(err, store.ErrOrganizationNotFound) {
		return nil, fmt.Errorf("get organization: %w", err)
	}
	return org, err
}

// Update applies a patch to an existing organization.
func (s *OrganizationStore) Update(ctx context.Context, orgID uuid.UUID, patch store.OrganizationPatch) (*models.Organization, error) {
	var updated *models.Organization

	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		org, err := getOrganization(ctx, tx, orgID)
		if err != nil {
			return err
		}

		if parentID, ok := patch.SuperOrgID.Get(); ok {
			if err := checkParent(ctx, tx, orgID, parentID); err != nil {
				return err
			}
		}

		if policy, ok := patch.PermissionsPolicy.Get(); ok {
			org.PermissionsPolicy = policy
		}
		if patch.SuperOrgID.IsSet() {
			org.SuperOrgID = patch.SuperOrgID.Ptr()
		}
		org.UpdatedAt = time.Now()

		var superOrgID uuid.NullUUID
		if org.SuperOrgID != nil {
			superOrgID = uuid.NullUUID{UUID: *org.SuperOrgID, Valid: true}
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE organizations SET permissions_policy = ?2, super_org_id = ?3, updated_at = ?4
			WHERE org_id = ?1
		`, orgID, string(org.PermissionsPolicy), superOrgID, toMillis(org.UpdatedAt))
		if err != nil {
			return err
		}

		updated, err = getOrganization(ctx, tx, orgID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update organization: %w", err)
	}

	log.Debug().
		Str("org_id", orgID.String()).
		Msg("Updated organization")

	return updated, nil
}

// checkParent rejects parentID if orgID is among its ancestors (or is parentID itself).
func checkParent(ctx context.Context, tx *sql.Tx, orgID, parentID uuid.UUID) error {
	var cycle, parentExists bool
	err := tx.QueryRowContext(ctx, `
		WITH RECURSIVE ancestors(org_id, super_org_id) AS (
			SELECT org_id, super_org_id FROM organizations WHERE org_id = ?1
			UNION
			SELECT o.org_id, o.super_org_id
			FROM organizations o
			JOIN ancestors a ON o.org_id = a.super_org_id
		)
		SELECT
			EXISTS (SELECT 1 FROM ancestors WHERE org_id = ?2),
			EXISTS (SELECT 1 FROM ancestors)
	`, parentID, orgID).Scan(&cycle, &parentExists)
	if err != nil {
		return err
	}

	if !parentExists {
		return store.ErrOrganizationNotFound
	}
	if cycle {
		return store.ErrOrganizationCycle
	}

	return nil
}

// Delete deletes an organization by ID.
// Members and invitations are cascade-deleted via FK constraint.
func (s *OrganizationStore) Delete(ctx context.Context, orgID uuid.UUID) error {
	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		hasChildren, err := exists(ctx, tx, `SELECT 1 FROM organizations WHERE super_org_id = ?1`, orgID)
		if err != nil {
			return err
		}
		if hasChildren {
			return store.ErrOrganizationHasChildren
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM organizations WHERE org_id = ?1`, orgID)
		if err != nil {
			if isForeignKeyViolation(err) {
				return store.ErrOrganizationHasChildren
			}
			return err
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return store.ErrOrganizationNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete organization: %w", err)
	}

	log.Info().
		Str("org_id", orgID.String()).
		Msg("Deleted organization (and cascade-deleted members and invitations)")

	return nil
}

// ListChildren returns the direct sub-organizations of an organization.
func (s *OrganizationStore) ListChildren(ctx context.Context, orgID uuid.UUID) ([]*models.Organization, error) {
	orgs, err := queryOrganizations(ctx, s.db.sqlDB, `
		SELECT `+organizationColumns+`
		FROM organizations
		WHERE super_org_id = ?1
		ORDER BY created_at, org_id
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list sub-organizations: %w", err)
	}
	return orgs, nil
}

// ListByMember returns all organizations where the principal holds a member row.
func (s *OrganizationStore) ListByMember(ctx context.Context, principalID uuid.UUID) ([]*models.Organization, error) {
	orgs, err := queryOrganizations(ctx, s.db.sqlDB, `
		SELECT o.org_id, o.owner_principal_id, o.super_org_id, o.permissions_policy, o.created_at, o.updated_at
		FROM organizations o
		JOIN members m ON m.org_id = o.org_id
		WHERE m.principal_id = ?1
		ORDER BY o.created_at, o.org_id
	`, principalID)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	return orgs, nil
}
