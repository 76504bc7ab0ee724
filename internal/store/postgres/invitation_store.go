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

const invitationColumns = `invitation_id, org_id, inviter_principal_id, email, permission_level, status, expires_at, created_at, updated_at`

// InvitationStore implements store.InvitationStore using PostgreSQL.
type InvitationStore struct {
	db *DB
}

func scanInvitation(row pgx.Row) (*models.Invitation, error) {
	var inv models.Invitation
	err := row.Scan(
		&inv.InvitationID,
		&inv.OrgID,
		&inv.InviterPrincipalID,
		&inv.Email,
		&inv.PermissionLevel,
		&inv.Status,
		&inv.ExpiresAt,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func getInvitation(ctx context.Context, q querier, invitationID uuid.UUID, forUpdate bool) (*models.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE invitation_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	inv, err := scanInvitation(q.QueryRow(ctx, query, invitationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrInvitationNotFound
		}
		return nil, err
	}
	return inv, nil
}

// Create creates a new pending invitation.
// The partial unique index on (org_id, email) rejects a second pending invitation.
func (s *InvitationStore) Create(ctx context.Context, inv *models.Invitation) error {
	_, err := s.db.pool.Exec(ctx, `
		INSERT INTO invitations (
			invitation_id, org_id, inviter_principal_id, email,
			permission_level, status, expires_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`,
		inv.InvitationID,
		inv.OrgID,
		inv.InviterPrincipalID,
		inv.Email,
		inv.PermissionLevel,
		inv.Status,
		inv.ExpiresAt,
		inv.CreatedAt,
		inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create invitation: %w", mapPostgresError(err))
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
	inv, err := getInvitation(ctx, s.db.pool, invitationID, false)
	if err != nil && !errors.Is(err, store.ErrInvitationNotFound) {
		return nil, fmt.Errorf("failed to get invitation: %w", mapPostgresError(err))
	}
	return inv, err
}

// List returns invitations matching the options, oldest first.
func (s *InvitationStore) List(ctx context.Context, opts store.ListInvitationsOptions) ([]*models.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE 1=1`

	var args []any
	argIdx := 1

	if opts.OrgID != uuid.Nil {
		query += fmt.Sprintf(" AND org_id = $%d", argIdx)
		args = append(args, opts.OrgID)
		argIdx++
	}

	if opts.Email != "" {
		query += fmt.Sprintf(" AND email = $%d", argIdx)
		args = append(args, opts.Email)
		argIdx++
	}

	if opts.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, opts.Status)
		argIdx++
	}

	if !opts.ActiveAt.IsZero() {
		query += fmt.Sprintf(" AND expires_at > $%d", argIdx)
		args = append(args, opts.ActiveAt)
	}

	query += " ORDER BY created_at, invitation_id"

	rows, err := s.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var invitations []*models.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invitations: %w", err)
	}

	return invitations, nil
}

// Update applies a patch to a pending invitation.
func (s *InvitationStore) Update(ctx context.Context, invitationID uuid.UUID, patch store.InvitationPatch) (*models.Invitation, error) {
	var updated *models.Invitation

	err := s.db.withTx(ctx, func(tx pgx.Tx) error {
		current, err := getInvitation(ctx, tx, invitationID, true)
		if err != nil {
			return err
		}
		if current.Status != models.InvitationStatusPending {
			return store.ErrInvitationNotPending
		}

		level, setLevel := patch.PermissionLevel.Get()
		status, setStatus := patch.Status.Get()

		updated, err = scanInvitation(tx.QueryRow(ctx, `
			UPDATE invitations SET
				permission_level = CASE WHEN $2 THEN $3::integer ELSE permission_level END,
				status = CASE WHEN $4 THEN $5::text ELSE status END,
				updated_at = $6
			WHERE invitation_id = $1
			RETURNING `+invitationColumns,
			invitationID,
			setLevel,
			level,
			setStatus,
			status,
			time.Now(),
		))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update invitation: %w", err)
	}

	log.Debug().
		Str("invitation_id", invitationID.String()).
		Str("status", string(updated.Status)).
		Msg("Updated invitation")

	return updated, nil
}

// Accept accepts a pending invitation and creates the member in one transaction.
// Any failure rolls back both writes, leaving the invitation pending.
func (s *InvitationStore) Accept(ctx context.Context, invitationID uuid.UUID, member *models.Member, now time.Time) (*models.Invitation, error) {
	var accepted *models.Invitation

	err := s.db.withTx(ctx, func(tx pgx.Tx) error {
		inv, err := getInvitation(ctx, tx, invitationID, true)
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

		accepted, err = scanInvitation(tx.QueryRow(ctx, `
			UPDATE invitations SET status = $2, updated_at = $3
			WHERE invitation_id = $1
			RETURNING `+invitationColumns,
			invitationID, models.InvitationStatusAccepted, now,
		))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to accept invitation: %w", err)
	}

	log.Info().
		Str("invitation_id", invitationID.String()).
		Str("member_id", member.MemberID.String()).
		Msg("Accepted invitation")

	return accepted, nil
}

// ExpirePending marks every overdue pending invitation expired.
func (s *InvitationStore) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.pool.Exec(ctx, `
		UPDATE invitations SET status = $1, updated_at = $2
		WHERE status = $3 AND expires_at < $2
	`, models.InvitationStatusExpired, now, models.InvitationStatusPending)
	if err != nil {
		return 0, fmt.Errorf("failed to expire invitations: %w", mapPostgresError(err))
	}

	count := result.RowsAffected()
	if count > 0 {
		log.Info().
			Int64("count", count).
			Msg("Expired pending invitations")
	}

	return count, nil
}
