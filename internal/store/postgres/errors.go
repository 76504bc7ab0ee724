package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/wolfeidau/orgs/internal/store"
)

// constraintErrors maps named schema constraints to sentinel errors.
var constraintErrors = map[string]error{
	"organizations_pkey":            store.ErrOrganizationAlreadyExists,
	"organizations_owner_fkey":      store.ErrPrincipalNotFound,
	"organizations_super_org_fkey":  store.ErrOrganizationNotFound,
	"organizations_not_own_parent":  store.ErrOrganizationCycle,
	"members_pkey":                  store.ErrMemberAlreadyExists,
	"members_org_principal_key":     store.ErrMemberAlreadyExists,
	"members_org_fkey":              store.ErrOrganizationNotFound,
	"members_principal_fkey":        store.ErrPrincipalNotFound,
	"members_invitation_fkey":       store.ErrInvitationNotFound,
	"invitations_pkey":              store.ErrInvitationAlreadyPending,
	"idx_invitations_pending_email": store.ErrInvitationAlreadyPending,
	"invitations_org_fkey":          store.ErrOrganizationNotFound,
	"invitations_inviter_fkey":      store.ErrPrincipalNotFound,
}

// mapPostgresError maps PostgreSQL-specific errors to sentinel errors.
// Returns the original error if it's not a PostgreSQL error or doesn't match known patterns.
func mapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	// Check if it's a PostgreSQL error
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	// Map error codes to sentinel errors
	switch pgErr.Code {
	case pgerrcode.UniqueViolation, pgerrcode.ForeignKeyViolation:
		if sentinel, ok := constraintErrors[pgErr.ConstraintName]; ok {
			return fmt.Errorf("%w: %s", sentinel, pgErr.ConstraintName)
		}
		return fmt.Errorf("constraint violation: %s: %w", pgErr.ConstraintName, err)

	case pgerrcode.CheckViolation:
		if sentinel, ok := constraintErrors[pgErr.ConstraintName]; ok {
			return fmt.Errorf("%w: %s", sentinel, pgErr.ConstraintName)
		}
		// Invalid state or constraint violation
		return fmt.Errorf("check constraint violation: %s: %w", pgErr.ConstraintName, err)

	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		// Retryable transaction errors
		return fmt.Errorf("transaction conflict (retryable): %w", err)

	case pgerrcode.ConnectionException,
		pgerrcode.ConnectionDoesNotExist,
		pgerrcode.ConnectionFailure,
		pgerrcode.CannotConnectNow,
		pgerrcode.SQLClientUnableToEstablishSQLConnection:
		// Connection errors
		return fmt.Errorf("database connection error: %w", err)

	case pgerrcode.AdminShutdown,
		pgerrcode.CrashShutdown:
		// Server unavailable
		return fmt.Errorf("database server unavailable: %w", err)

	case pgerrcode.QueryCanceled:
		// Context cancellation or timeout
		return fmt.Errorf("query canceled: %w", err)

	case pgerrcode.InsufficientResources,
		pgerrcode.DiskFull,
		pgerrcode.OutOfMemory,
		pgerrcode.TooManyConnections:
		// Resource errors (throttling-like)
		return fmt.Errorf("database resource limit: %w", err)

	default:
		// Unknown error - wrap with PostgreSQL error details
		return fmt.Errorf("postgres error [%s]: %s (detail: %s, hint: %s): %w",
			pgErr.Code, pgErr.Message, pgErr.Detail, pgErr.Hint, err)
	}
}

// isRetryable returns true for transaction conflicts that succeed when re-run.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
}

// isConstraint returns true if err violates the named constraint.
func isConstraint(err error, name string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.ConstraintName == name
}
