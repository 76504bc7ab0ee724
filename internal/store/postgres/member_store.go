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

const memberColumns = `member_id, org_id, principal_id, permission_level, invitation_id, created_at, updated_at`

// MemberStore implements store.MemberStore using PostgreSQL.
type MemberStore struct {
	db *DB
}

func scanMember(row pgx.Row) (*models.Member, error) {
	var m models.Member
	err := row.Scan(
		&m.MemberID,
		&m.OrgID,
		&m.PrincipalID,
		&m.PermissionLevel,
		&m.InvitationID,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func insertMember(ctx context.Context, q querier, m *models.Member) error {
	_, err := q.Exec(ctx, `
		INSERT INTO members (
			member_id, org_id, principal_id, permission_level, invitation_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`,
		m.MemberID,
		m.OrgID,
		m.PrincipalID,
		m.PermissionLevel,
		m.InvitationID,
		m.CreatedAt,
		m.UpdatedAt,
	)
	return err
}

// getMember loads one member with the given WHERE clause, mapping no rows to ErrMemberNotFound.
func getMember(ctx context.Context, q querier, where string, args ...any) (*models.Member, error) {
	m, err := scanMember(q.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE `+where, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrMemberNotFound
		}
		return nil, err
	}
	return m, nil
}

// Create creates a new member in the database.
func (s *MemberStore) Create(ctx context.Context, member *models.Member) error {
	if err := insertMember(ctx, s.db.pool, member); err != nil {
		return fmt.Errorf("failed to create member: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("member_id", member.MemberID.String()).
		Str("org_id", member.OrgID.String()).
		Int("permission_level", int(member.PermissionLevel)).
		Msg("Created member")

	return nil
}

// Get retrieves a member by ID.
func (s *MemberStore) Get(ctx context.Context, memberID uuid.UUID) (*models.Member, error) {
	m, err := getMember(ctx, s.db.pool, `member_id = $1`, memberID)
	if err != nil && !errors.Is(err, store.ErrMemberNotFound) {
		return nil, fmt.Errorf("failed to get member: %w", mapPostgresError(err))
	}
	return m, err
}

// GetByPrincipal retrieves the member row for a principal in an organization.
func (s *MemberStore) GetByPrincipal(ctx context.Context, orgID, principalID uuid.UUID) (*models.Member, error) {
	m, err := getMember(ctx, s.db.pool, `org_id = $1 AND principal_id = $2`, orgID, principalID)
	if err != nil && !errors.Is(err, store.ErrMemberNotFound) {
		return nil, fmt.Errorf("failed to get member: %w", mapPostgresError(err))
	}
	return m, err
}

// GetByEmail retrieves the member whose principal has the given email.
func (s *MemberStore) GetByEmail(ctx context.Context, orgID uuid.UUID, email string) (*models.Member, error) {
	m, err := getMember(ctx, s.db.pool, `
		org_id = $1 AND principal_id IN (
			SELECT principal_id FROM principals WHERE email = $2
		)
		LIMIT 1
	`, orgID, email)
	if err != nil && !errors.Is(err, store.ErrMemberNotFound) {
		return nil, fmt.Errorf("failed to get member by email: %w", mapPostgresError(err))
	}
	return m, err
}

// List returns members matching the options, oldest first.
func (s *MemberStore) List(ctx context.Context, opts store.ListMembersOptions) ([]*models.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE 1=1`

	var args []any
	argIdx := 1

	// Filter by organization (optional)
	if opts.OrgID != uuid.Nil {
		query += fmt.Sprintf(" AND org_id = $%d", argIdx)
		args = append(args, opts.OrgID)
		argIdx++
	}

	// Filter by principal (optional)
	if opts.PrincipalID != uuid.Nil {
		query += fmt.Sprintf(" AND principal_id = $%d", argIdx)
		args = append(args, opts.PrincipalID)
	}

	query += " ORDER BY created_at, member_id"

	rows, err := s.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}

	return members, nil
}

// UpdatePermission sets a member's level, transferring ownership when the owner is demoted.
// The organization row is locked first so every level change within an
// organization is serialized against ownership transfers.
func (s *MemberStore) UpdatePermission(ctx context.Context, memberID uuid.UUID, level models.PermissionLevel, newOwner *uuid.UUID) (*models.Member, bool, error) {
	var (
		updated     *models.Member
		transferred bool
	)

	err := s.db.withTx(ctx, func(tx pgx.Tx) error {
		transferred = false

		var orgID uuid.UUID
		err := tx.QueryRow(ctx, `SELECT org_id FROM members WHERE member_id = $1`, memberID).Scan(&orgID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return store.ErrMemberNotFound
			}
			return err
		}

		org, err := getOrganization(ctx, tx, orgID, true)
		if err != nil {
			return err
		}

		m, err := getMember(ctx, tx, `member_id = $1 FOR UPDATE`, memberID)
		if err != nil {
			return err
		}

		now := time.Now()

		if m.IsOwnerOf(org) && !level.IsOwner() {
			if newOwner == nil {
				return store.ErrOwnerTransferRequired
			}
			if *newOwner == m.PrincipalID {
				return store.ErrNewOwnerNotEligible
			}

			successor, err := getMember(ctx, tx, `org_id = $1 AND principal_id = $2`, orgID, *newOwner)
			if err != nil {
				if errors.Is(err, store.ErrMemberNotFound) {
					return store.ErrNewOwnerNotEligible
				}
				return err
			}
			if !successor.PermissionLevel.IsOwner() {
				return store.ErrNewOwnerNotEligible
			}

			_, err = tx.Exec(ctx, `
				UPDATE organizations SET owner_principal_id = $2, updated_at = $3
				WHERE org_id = $1
			`, orgID, *newOwner, now)
			if err != nil {
				return err
			}
			transferred = true
		}

		updated, err = scanMember(tx.QueryRow(ctx, `
			UPDATE members SET permission_level = $2, updated_at = $3
			WHERE member_id = $1
			RETURNING `+memberColumns,
			memberID, level, now,
		))
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to update member permission: %w", err)
	}

	event := log.Debug()
	if transferred {
		event = log.Info().Str("new_owner_principal_id", newOwner.String())
	}
	event.
		Str("member_id", memberID.String()).
		Int("permission_level", int(level)).
		Msg("Updated member permission")

	return updated, transferred, nil
}
