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

const invitationColumns = `invitation_id, org_id, inviter_principal_id, email, permission_level, status, expires_at, created_at, updated_at`

// InvitationStore implements store.InvitationStore over SQLite.
type InvitationStore struct {
	db *DB
}

func scanInvitation(row rowScanner) (*models.Invitation, error) {
	var (
		inv                             models.Invitation
		expiresAt, createdAt, updatedAt int64
	)
	err := row.Scan(
		&inv.InvitationID,
		&inv.OrgID,
		&inv.InviterPrincipalID,
		&inv.Email,
		&inv.PermissionLevel,
		&inv.Status,
		&expiresAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.ExpiresAt = fromMillis(expiresAt)
	inv.CreatedAt = fromMillis(createdAt)
	inv.UpdatedAt = fromMillis(updatedAt)
	return &inv, nil
}

func getInvitation(ctx context.Context, q queryer, invitationID uuid.UUID) (*models.Invitation, error) {
	inv, err := scanInvitation(q.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE invitation_id = ?1`, invitationID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrInvitationNotFound
		}
		return nil, err
	}
	return inv, nil
}

// Create creates a new pending invitation.
func (s *InvitationStore) Create(ctx context.Context, inv *models.Invitation) error {
	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		found, err := exists(ctx, tx, `SELECT 1 FROM organizations WHERE org_id = ?1`, inv.OrgID)
		if err != nil {
			return err
		}
		if !found {
			return store.ErrOrganizationNotFound
		}

		found, err = exists(ctx, tx, `SELECT 1 FROM principals WHERE principal_id = ?1`, inv.InviterPrincipalID)
		if err != nil {
			return err
		}
		if !found {
			return store.ErrPrincipalNotFound
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO invitations (
				invitation_id, org_id, inviter_principal_id, email,
				permission_level, status, expires_at, created_at, updated_at
			) VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8, ?9)
		`,
			inv.InvitationID,
			inv.OrgID,
			inv.InviterPrincipalID,
			inv.Email,
			int(inv.PermissionLevel),
			string(inv.Status),
			toMillis(inv.ExpiresAt),
			toMillis(inv.CreatedAt),
			toMillis(inv.UpdatedAt),
		)
		if err != nil {
			if isUniqueViolation(err, "invitations") {
				return store.ErrInvitationAlreadyPending
			}
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create invitation: %w", err)
	}

	log.Debug().
		Str("invitation_id", inv.InvitationID.String()).
		Str("org_id", inv.OrgID.String()).
		Time("expires_at", inv.ExpiresAt).
		Msg("Created invitation")

	return nil
}

// Get retrieves an invitation by ID.
func (s *InvitationStore) Get(ctx context.Context, invitationID uuid.UUID) (*models.Invitation, error) {
	return getInvitation(ctx, s.db.sqlDB, invitationID)
}

// List returns invitations matching the options, oldest first.
func (s *InvitationStore) List(ctx context.Context, opts store.ListInvitationsOptions) ([]*models.Invitation, error) {
	var orgID, email, status, activeAt any
	if opts.OrgID != uuid.Nil {
		orgID = opts.OrgID
	}
	if opts.Email != "" {
		email = opts.Email
	}
	if opts.Status != "" {
		status = string(opts.Status)
	}
	if !opts.ActiveAt.IsZero() {
		activeAt = toMillis(opts.ActiveAt)
	}

	rows, err := s.db.sqlDB.QueryContext(ctx, `
		SELECT `+invitationColumns+`
		FROM invitations
		WHERE (?1 IS NULL OR org_id = ?1)
		  AND (?2 IS NULL OR email = ?2)
		  AND (?3 IS NULL OR status = ?3)
		  AND (?4 IS NULL OR expires_at > ?4)
		ORDER BY created_at, invitation_id
	`, orgID, email, status, activeAt)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	defer rows.Close()

	var invitations []*models.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		invitations = append(invitations, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}

	return invitations, nil
}

// Update applies a patch to a pending invitation.
func (s *InvitationStore) Update(ctx context.Context, invitationID uuid.UUID, patch store.InvitationPatch) (*models.Invitation, error) {
	var updated *models.Invitation

	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		inv, err := getInvitation(ctx, tx, invitationID)
		if err != nil {
			return err
		}
		if inv.Status != models.InvitationStatusPending {
			return store.ErrInvitationNotPending
		}

		if level, ok := patch.PermissionLevel.Get(); ok {
			inv.PermissionLevel = level
		}
		if status, ok := patch.Status.Get(); ok {
			inv.Status = status
		}
		inv.UpdatedAt = time.Now()

		_, err = tx.ExecContext(ctx, `
			UPDATE invitations SET permission_level = ?2, status = ?3, updated_at = ?4
			WHERE invitation_id = ?1
		`, invitationID, int(inv.PermissionLevel), string(inv.Status), toMillis(inv.UpdatedAt))
		if err != nil {
			return err
		}

		updated, err = getInvitation(ctx, tx, invitationID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update invitation: %w", err)
	}

	log.Debug().
		Str("invitation_id", invitationID.String()).
		Str("status", string(updated.Status)).
		Msg("Updated invitation")

	return updated, nil
}

// Accept accepts a pending invitation and creates the member in one transaction.
func (s *InvitationStore) Accept(ctx context.Context, invitationID uuid.UUID, member *models.Member, now time.Time) (*models.Invitation, error) {
	var accepted *models.Invitation

	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		inv, err := getInvitation(ctx, tx, invitationID)
		if err != nil {
			return err
		}
		if inv.Status != models.InvitationStatusPending {
			return store.ErrInvitationNotPending
		}
		if inv.IsExpired(now) {
			return store.ErrInvitationExpired
		}

		member.OrgID = inv.OrgID
		member.PermissionLevel = inv.PermissionLevel
		member.InvitationID = &inv.InvitationID

		if err := insertMember(ctx, tx, member); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE invitations SET status = ?2, updated_at = ?3 WHERE invitation_id = ?1`,
			invitationID, string(models.InvitationStatusAccepted), toMillis(now),
		)
		if err != nil {
			return err
		}

		accepted, err = getInvitation(ctx, tx, invitationID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("accept invitation: %w", err)
	}

	log.Info().
		Str("invitation_id", invitationID.String()).
		Str("member_id", member.MemberID.String()).
		Msg("Accepted invitation")

	return accepted, nil
}

// ExpirePending marks every overdue pending invitation expired.
func (s *InvitationStore) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	var count int64

	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE invitations SET status = ?1, updated_at = ?2
			WHERE status = ?3 AND expires_at < ?2
		`, string(models.InvitationStatusExpired), toMillis(now), string(models.InvitationStatusPending))
		if err != nil {
			return err
		}
		count, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("expire invitations: %w", err)
	}

	if count > 0 {
		log.Info().
			Int64("count", count).
			Msg("Expired pending invitations")
	}

	return count, nil
}
