package orgs

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/wolfeidau/orgs/internal/models"
)

// requirePrincipal rejects anonymous callers and callers without a usable email.
func requirePrincipal(principal *models.Principal) error {
	if principal.IsAnonymous() {
		return invalidArgumentf("principal must be authenticated")
	}
	return validateEmail(models.NormalizeEmail(principal.Email))
}

// validateEmail accepts a bare, normalized address without a display name.
func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalidArgumentf("email %q is invalid", email)
	}
	return nil
}

// registerPrincipal records the acting principal before a write references it.
func (s *Service) registerPrincipal(ctx context.Context, principal *models.Principal) error {
	now := s.now()
	record := &models.Principal{
		PrincipalID: principal.PrincipalID,
		Email:       models.NormalizeEmail(principal.Email),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.stores.Principals.Upsert(ctx, record); err != nil {
		return fmt.Errorf("failed to register principal: %w", err)
	}

	return nil
}

// isInvitee reports whether the invitation is addressed to the principal.
func isInvitee(principal *models.Principal, inv *models.Invitation) bool {
	return models.NormalizeEmail(principal.Email) == inv.Email
}
