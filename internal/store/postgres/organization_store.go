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

// hierarchyLockKey serializes re-parenting so concurrent moves cannot form a cycle.
const hierarchyLockKey = 7_301_245_119

const organizationColumns = `org_id, owner_principal_id, super_org_id, permissions_policy, created_at, updated_at`

// OrganizationStore implements store.OrganizationStore using PostgreSQL.
type OrganizationStore struct {
	db *DB
}

func scanOrganization(row pgx.Row) (*models.Organization, error) {
	var (
		org    models.Organization
		policy []byte
	)
	err := row.Scan(
		&org.OrgID,
		&org.OwnerPrincipalID,
		&org.SuperOrgID,
		&policy,
		&org.CreatedAt,
		&org.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	org.PermissionsPolicy = policy
	return &org, nil
}

func collectOrganizations(rows pgx.Rows) ([]*models.Organization, error) {
	defer rows.Close()

	var orgs []*models.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organizations: %w", err)
	}

	return orgs, nil
}

// Create creates a new organization and its founding owner in one transaction.
func (s *OrganizationStore) Create(ctx context.Context, org *models.Organization, owner *models.Member) error {
	err := s.db.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO organizations (
				org_id, owner_principal_id, super_org_id, permissions_policy, created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6
			)
		`,
			org.OrgID,
			org.OwnerPrincipalID,
			org.SuperOrgID,
			[]byte(org.PermissionsPolicy),
			org.CreatedAt,
			org.UpdatedAt,
		)
		if err != nil {
			return err
		}

		return insertMember(ctx, tx, owner)
	})
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}

	log.Debug().
		Str("org_id", org.OrgID.String()).
		Str("owner_principal_id", org.OwnerPrincipalID.String()).
		Msg("Created organization")

	return nil
}

// Get retrieves an organization by ID.
func (s *OrganizationStore) Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	return getOrganization(ctx, s.db.pool, orgID, false)
}

func getOrganization(ctx context.Context, q querier, orgID uuid.UUID, forUpdate bool) (*models.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE org_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	org, err := scanOrganization(q.QueryRow(ctx, query, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to get organization: %w", mapPostgresError(err))
	}

	return org, nil
}

// Update applies a patch to an existing organization.
func (s *OrganizationStore) Update(ctx context.Context, orgID uuid.UUID, patch store.OrganizationPatch) (*models.Organization, error) {
	var updated *models.Organization

	err := s.db.withTx(ctx, func(tx pgx.Tx) error {
		if parentID, ok := patch.SuperOrgID.Get(); ok {
			if err := checkParent(ctx, tx, orgID, parentID); err != nil {
				return err
			}
		}

		policy, setPolicy := patch.PermissionsPolicy.Get()

		row := tx.QueryRow(ctx, `
			UPDATE organizations SET
				permissions_policy = CASE WHEN $2 THEN $3::jsonb ELSE permissions_policy END,
				super_org_id = CASE WHEN $4 THEN $5::uuid ELSE super_org_id END,
				updated_at = $6
			WHERE org_id = $1
			RETURNING `+organizationColumns,
			orgID,
			setPolicy,
			[]byte(policy),
			patch.SuperOrgID.IsSet(),
			patch.SuperOrgID.Ptr(),
			time.Now(),
		)

		org, err := scanOrganization(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return store.ErrOrganizationNotFound
			}
			return err
		}

		updated = org
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}

	log.Debug().
		Str("org_id", orgID.String()).
		Msg("Updated organization")

	return updated, nil
}

// checkParent rejects parentID if orgID is among its ancestors (or is parentID itself).
func checkParent(ctx context.Context, tx pgx.Tx, orgID, parentID uuid.UUID) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(hierarchyLockKey)); err != nil {
		return err
	}

	var cycle, parentExists bool
	err := tx.QueryRow(ctx, `
		WITH RECURSIVE ancestors AS (
			SELECT org_id, super_org_id FROM organizations WHERE org_id = $1
			UNION
			SELECT o.org_id, o.super_org_id
			FROM organizations o
			JOIN ancestors a ON o.org_id = a.super_org_id
		)
		SELECT
			EXISTS (SELECT 1 FROM ancestors WHERE org_id = $2),
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
	result, err := s.db.pool.Exec(ctx, `DELETE FROM organizations WHERE org_id = $1`, orgID)
	if err != nil {
		if isConstraint(err, "organizations_super_org_fkey") {
			return store.ErrOrganizationHasChildren
		}
		return fmt.Errorf("failed to delete organization: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrOrganizationNotFound
	}

	log.Info().
		Str("org_id", orgID.String()).
		Msg("Deleted organization (and cascade-deleted members and invitations)")

	return nil
}

// ListChildren returns the direct sub-organizations of an organization.
func (s *OrganizationStore) ListChildren(ctx context.Context, orgID uuid.UUID) ([]*models.Organization, error) {
	rows, err := s.db.pool.Query(ctx, `
		SELECT `+organizationColumns+`
		FROM organizations
		WHERE super_org_id = $1
		ORDER BY created_at, org_id
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sub-organizations: %w", mapPostgresError(err))
	}

	return collectOrganizations(rows)
}

// ListByMember returns all organizations where the principal holds a member row.
func (s *OrganizationStore) ListByMember(ctx context.Context, principalID uuid.UUID) ([]*models.Organization, error) {
	rows, err := s.db.pool.Query(ctx, `
		SELECT o.org_id, o.owner_principal_id, o.super_org_id, o.permissions_policy, o.created_at, o.updated_at
		FROM organizations o
		JOIN members m ON m.org_id = o.org_id
		WHERE m.principal_id = $1
		ORDER BY o.created_at, o.org_id
	`, principalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", mapPostgresError(err))
	}

	return collectOrganizations(rows)
}
