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

const memberColumns = `member_id, org_id, principal_id, permission_level, invitation_id, created_at, updated_at`

// MemberStore implements store.MemberStore over SQLite.
type MemberStore struct {
	db *DB
}

func scanMember(row rowScanner) (*models.Member, error) {
	var (
		m                    models.Member
		invitationID         uuid.NullUUID
		createdAt, updatedAt int64
	)
	err := row.Scan(&m.MemberID, &m.OrgID, &m.PrincipalID, &m.PermissionLevel, &invitationID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if invitationID.Valid {
		m.InvitationID = &invitationID.UUID
	}
	m.CreatedAt = fromMillis(createdAt)
	m.UpdatedAt = fromMillis(updatedAt)
	return &m, nil
}

func getMember(ctx context.Context, q queryer, where string, args ...any) (*models.Member, error) {
	m, err := scanMember(q.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE `+where, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrMemberNotFound
		}
		return nil, err
	}
	return m, nil
}

// insertMember checks the referenced rows then inserts. Callers run it in a transaction.
func insertMember(ctx context.Context, tx *sql.Tx, m *models.Member) error {
	found, err := exists(ctx, tx, `SELECT 1 FROM organizations WHERE org_id = ?1`, m.OrgID)
	if err != nil {
		return err
	}
	if !found {
		return store.ErrOrganizationNotFound
	}

	found, err = exists(ctx, tx, `SELECT 1 FROM principals WHERE principal_id = ?1`, m.PrincipalID)
	if err != nil {
		return err
	}
	if !found {
		return store.ErrPrincipalNotFound
	}

	var invitationID uuid.NullUUID
	if m.InvitationID != nil {
		invitationID = uuid.NullUUID{UUID: *m.InvitationID, Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO members (
			member_id, org_id, principal_id, permission_level, invitation_id, created_at, updated_at
		) VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7)
	`,
		m.MemberID,
		m.OrgID,
		m.PrincipalID,
		int(m.PermissionLevel),
		invitationID,
		toMillis(m.CreatedAt),
		toMillis(m.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err, "members") {
			return store.ErrMemberAlreadyExists
		}
		return err
	}

	return nil
}

// Create creates a new member.
func (s *MemberStore) Create(ctx context.Context, member *models.Member) error {
	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		return insertMember(ctx, tx, member)
	})
	if err != nil {
		return fmt.Errorf("create member: %w", err)
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
	return getMember(ctx, s.db.sqlDB, `member_id = ?1`, memberID)
}

// GetByPrincipal retrieves the member row for a principal in an organization.
func (s *MemberStore) GetByPrincipal(ctx context.Context, orgID, principalID uuid.UUID) (*models.Member, error) {
	return getMember(ctx, s.db.sqlDB, `org_id = ?1 AND principal_id = ?2`, orgID, principalID)
}

// GetByEmail retrieves the member whose principal has the given email.
func (s *MemberStore) GetByEmail(ctx context.Context, orgID uuid.UUID, email string) (*models.Member, error) {
	return getMember(ctx, s.db.sqlDB, `
		org_id = ?1 AND principal_id IN (
			SELECT principal_id FROM principals WHERE email = ?2
		)
		LIMIT 1
	`, orgID, email)
}

// List returns members matching the options, oldest first.
func (s *MemberStore) List(ctx context.Context, opts store.ListMembersOptions) ([]*models.Member, error) {
	var orgID, principalID any
	if opts.OrgID != uuid.Nil {
		orgID = opts.OrgID
	}
	if opts.PrincipalID != uuid.Nil {
		principalID = opts.PrincipalID
	}

	rows, err := s.db.sqlDB.QueryContext(ctx, `
		SELECT `+memberColumns+`
		FROM members
		WHERE (?1 IS NULL OR org_id = ?1)
		  AND (?2 IS NULL OR principal_id = ?2)
		ORDER BY created_at, member_id
	`, orgID, principalID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	return members, nil
}

// UpdatePermission sets a member's level, transferring ownership when the owner is demoted.
func (s *MemberStore) UpdatePermission(ctx context.Context, memberID uuid.UUID, level models.PermissionLevel, newOwner *uuid.UUID) (*models.Member, bool, error) {
	var (
		updated     *models.Member
		transferred bool
	)

	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		transferred = false

		m, err := getMember(ctx, tx, `member_id = ?1`, memberID)
		if err != nil {
			return err
		}

		org, err := getOrganization(ctx, tx, m.OrgID)
		if err != nil {
			return err
		}

		now := toMillis(time.Now())

		if m.IsOwnerOf(org) && !level.IsOwner() {
			if newOwner == nil {
				return store.ErrOwnerTransferRequired
			}
			if *newOwner == m.PrincipalID {
				return store.ErrNewOwnerNotEligible
			}

			successor, err := getMember(ctx, tx, `org_id = ?1 AND principal_id = ?2`, org.OrgID, *newOwner)
			if err != nil {
				if errors.Is(err, store.ErrMemberNotFound) {
					return store.ErrNewOwnerNotEligible
				}
				return err
			}
			if !successor.PermissionLevel.IsOwner() {
				return store.ErrNewOwnerNotEligible
			}

			_, err = tx.ExecContext(ctx,
				`UPDATE organizations SET owner_principal_id = ?2, updated_at = ?3 WHERE org_id = ?1`,
				org.OrgID, *newOwner, now,
			)
			if err != nil {
				return err
			}
			transferred = true
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE members SET permission_level = ?2, updated_at = ?3 WHERE member_id = ?1`,
			memberID, int(level), now,
		)
		if err != nil {
			return err
		}

		updated, err = getMember(ctx, tx, `member_id = ?1`, memberID)
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("update member permission: %w", err)
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
