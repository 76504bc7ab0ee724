package orgs

import (
	"errors"
	"fmt"

	"github.com/wolfeidau/orgs/internal/policy"
	"github.com/wolfeidau/orgs/internal/store"
)

// Error kinds returned by the Service. Callers match them with errors.Is;
// the wrapped store or policy error stays available for logging.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")

	// ErrAlreadyInvited is returned when a pending invitation for the email
	// already exists in the organization.
	ErrAlreadyInvited = fmt.Errorf("%w: already invited", ErrConflict)

	// ErrAlreadyJoined is returned when the invitee is already a member.
	ErrAlreadyJoined = fmt.Errorf("%w: already joined", ErrConflict)

	ErrPermissionDenied = policy.ErrPermissionDenied
	ErrInvalidPolicy    = policy.ErrInvalidPolicy
)

func invalidArgumentf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// translateStoreError maps store sentinels onto the service error kinds.
// Missing rows become ErrNotFound; use translateWriteError when the row is the
// required target of a mutation.
func translateStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case isMissing(err):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, store.ErrInvitationAlreadyPending):
		return fmt.Errorf("%w: %w", ErrAlreadyInvited, err)
	case errors.Is(err, store.ErrMemberAlreadyExists):
		return fmt.Errorf("%w: %w", ErrAlreadyJoined, err)
	case errors.Is(err, store.ErrOrganizationAlreadyExists),
		errors.Is(err, store.ErrOrganizationHasChildren),
		errors.Is(err, store.ErrOrganizationCycle),
		errors.Is(err, store.ErrOwnerTransferRequired),
		errors.Is(err, store.ErrNewOwnerNotEligible),
		errors.Is(err, store.ErrInvitationNotPending),
		errors.Is(err, store.ErrInvitationExpired):
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	default:
		return err
	}
}

// translateWriteError is translateStoreError with missing rows reported as
// ErrInvalidArgument.
func translateWriteError(err error) error {
	if isMissing(err) {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return translateStoreError(err)
}

func isMissing(err error) bool {
	return errors.Is(err, store.ErrOrganizationNotFound) ||
		errors.Is(err, store.ErrMemberNotFound) ||
		errors.Is(err, store.ErrInvitationNotFound) ||
		errors.Is(err, store.ErrPrincipalNotFound)
}
