package orgs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/wolfeidau/orgs/internal/models"
	"github.com/wolfeidau/orgs/internal/policy"
	"github.com/wolfeidau/orgs/internal/store"
)

// InvitationRequest describes a new invitation.
type InvitationRequest struct {
	OrgID     uuid.UUID
	Email     string
	ExpiresAt time.Time

	// PermissionLevel granted on acceptance; defaults to models.PermissionLevelMember.
	PermissionLevel *models.PermissionLevel
}

func (s *Service) recordTransition(ctx context.Context, inv *models.Invitation) {
	s.metrics.InvitationTransitionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", string(inv.Status)),
	))

	log.Info().
		Str("invitation_id", inv.InvitationID.String()).
		Str("org_id", inv.OrgID.String()).
		Str("status", string(inv.Status)).
		Msg("Invitation transitioned")
}

// CreateInvitation invites an email address into an organization.
//
// Conflicts are reported before the policy is consulted: ErrAlreadyInvited when
// a pending invitation for the email exists and ErrAlreadyJoined when the
// email already belongs to a member.
func (s *Service) CreateInvitation(ctx context.Context, principal *models.Principal, req InvitationRequest) (inv *models.Invitation, err error) {
	ctx, span := s.startSpan(ctx, "CreateInvitation", attribute.String("org_id", req.OrgID.String()))
	defer func() { endSpan(span, err) }()

	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}

	email := models.NormalizeEmail(req.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	level := models.PermissionLevelMember
	if req.PermissionLevel != nil {
		level = *req.PermissionLevel
	}
	if err := validateLevel(level); err != nil {
		return nil, err
	}

	now := s.now()
	if !req.ExpiresAt.After(now) {
		return nil, invalidArgumentf("expiry %s is not in the future", req.ExpiresAt.Format(time.RFC3339))
	}

	org, err := s.loadOrganization(ctx, req.OrgID, true)
	if err != nil {
		return nil, err
	}

	pending, err := s.stores.Invitations.List(ctx, store.ListInvitationsOptions{
		OrgID:  org.OrgID,
		Email:  email,
		Status: models.InvitationStatusPending,
	})
	if err != nil {
		return nil, translateStoreError(err)
	}
	if len(pending) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyInvited, email)
	}

	_, err = s.stores.Members.GetByEmail(ctx, org.OrgID, email)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: %s", ErrAlreadyJoined, email)
	case !errors.Is(err, store.ErrMemberNotFound):
		return nil, translateStoreError(err)
	}

	if err := s.authorize(ctx, org, policy.ActionCreateInvitation, principal); err != nil {
		return nil, err
	}

	if err := s.registerPrincipal(ctx, principal); err != nil {
		return nil, err
	}

	invitationID, err := newID()
	if err != nil {
		return nil, err
	}

	inv = &models.Invitation{
		InvitationID:       invitationID,
		OrgID:              org.OrgID,
		InviterPrincipalID: principal.PrincipalID,
		Email:              email,
		PermissionLevel:    level,
		Status:             models.InvitationStatusPending,
		ExpiresAt:          req.ExpiresAt,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.stores.Invitations.Create(ctx, inv); err != nil {
		return nil, translateWriteError(err)
	}

	s.recordTransition(ctx, inv)

	return inv, nil
}

// GetInvitation returns a pending, unexpired invitation. The invitee may always
// read it; anyone else needs get_invitation in the inviting organization.
func (s *Service) GetInvitation(ctx context.Context, principal *models.Principal, invitationID uuid.UUID) (inv *models.Invitation, err error) {
	ctx, span := s.startSpan(ctx, "GetInvitation", attribute.String("invitation_id", invitationID.String()))
	defer func() { endSpan(span, err) }()

	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}

	inv, err = s.stores.Invitations.Get(ctx, invitationID)
	if err != nil {
		return nil, translateStoreError(err)
	}

	if !inv.IsActionable(s.now()) {
		return nil, fmt.Errorf("%w: invitation %s is %s", ErrNotFound, inv.InvitationID, s.displayStatus(inv))
	}

	if isInvitee(principal, inv) {
		return inv, nil
	}

	org, err := s.scopeOf(ctx, inv, false)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, org, policy.ActionGetInvitation, principal); err != nil {
		return nil, err
	}

	return inv, nil
}

// ListInvitations returns the pending, unexpired invitations of orgID. With
// uuid.Nil it instead returns the invitations addressed to the principal's
// email, without any policy check.
func (s *Service) ListInvitations(ctx context.Context, principal *models.Principal, orgID uuid.UUID) (invs []*models.Invitation, err error) {
	ctx, span := s.startSpan(ctx, "ListInvitations", attribute.String("org_id", orgID.String()))
	defer func() { endSpan(span, err) }()

	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}

	opts := store.ListInvitationsOptions{
		Email:    models.NormalizeEmail(principal.Email),
		Status:   models.InvitationStatusPending,
		ActiveAt: s.now(),
	}

	if orgID != uuid.Nil {
		org, err := s.loadOrganization(ctx, orgID, false)
		if err != nil {
			return nil, err
		}

		if err := s.authorize(ctx, org, policy.ActionGetInvitationSet, principal); err != nil {
			return nil, err
		}

		opts.OrgID = org.OrgID
		opts.Email = ""
	}

	invs, err = s.stores.Invitations.List(ctx, opts)
	if err != nil {
		return nil, translateStoreError(err)
	}

	return invs, nil
}

// UpdateInvitationPermission changes the level a pending invitation grants.
func (s *Service) UpdateInvitationPermission(ctx context.Context, principal *models.Principal, invitationID uuid.UUID, level models.PermissionLevel) (inv *models.Invitation, err error) {
	ctx, span := s.startSpan(ctx, "UpdateInvitationPermission",
		attribute.String("invitation_id", invitationID.String()),
		attribute.Int("permission_level", int(level)),
	)
	defer func() { endSpan(span, err) }()

	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}
	if err := validateLevel(level); err != nil {
		return nil, err
	}

	inv, org, err := s.loadPendingInvitation(ctx, invitationID)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, org, policy.ActionUpdateInvitationPermission, principal); err != nil {
		return nil, err
	}

	inv, err = s.stores.Invitations.Update(ctx, inv.InvitationID, store.InvitationPatch{
		PermissionLevel: models.Set(level),
	})
	if err != nil {
		return nil, translateWriteError(err)
	}

	return inv, nil
}

// CancelInvitation withdraws a pending invitation.
func (s *Service) CancelInvitation(ctx context.Context, principal *models.Principal, invitationID uuid.UUID) (inv *models.Invitation, err error) {
	ctx, span := s.startSpan(ctx, "CancelInvitation", attribute.String("invitation_id", invitationID.String()))
	defer func() { endSpan(span, err) }()

	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}

	inv, org, err := s.loadPendingInvitation(ctx, invitationID)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, org, policy.ActionCancelInvitation, principal); err != nil {
		return nil, err
	}

	inv, err = s.stores.Invitations.Update(ctx, inv.InvitationID, store.InvitationPatch{
		Status: models.Set(models.InvitationStatusCanceled),
	})
	if err != nil {
		return nil, translateWriteError(err)
	}

	s.recordTransition(ctx, inv)

	return inv, nil
}

// AcceptInvitation turns a pending, unexpired invitation addressed to the
// principal into a member at the invitation's level. The invitation is marked
// accepted in the same store transaction; on any failure it stays pending.
func (s *Service) AcceptInvitation(ctx context.Context, principal *models.Principal, invitationID uuid.UUID) (member *models.Member, err error) {
	ctx, span := s.startSpan(ctx, "AcceptInvitation", attribute.String("invitation_id", invitationID.String()))
	defer func() { endSpan(span, err) }()

	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}

	inv, err := s.loadInviteeInvitation(ctx, principal, invitationID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if inv.IsExpired(now) {
		return nil, translateWriteError(store.ErrInvitationExpired)
	}

	_, err = s.stores.Members.GetByPrincipal(ctx, inv.OrgID, principal.PrincipalID)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: %s", ErrAlreadyJoined, inv.Email)
	case !errors.Is(err, store.ErrMemberNotFound):
		return nil, translateStoreError(err)
	}

	if err := s.registerPrincipal(ctx, principal); err != nil {
		return nil, err
	}

	memberID, err := newID()
	if err != nil {
		return nil, err
	}

	member = &models.Member{
		MemberID:    memberID,
		PrincipalID: principal.PrincipalID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	inv, err = s.stores.Invitations.Accept(ctx, inv.InvitationID, member, now)
	if err != nil {
		return nil, translateWriteError(err)
	}

	s.recordTransition(ctx, inv)

	return member, nil
}

// DeclineInvitation rejects a pending invitation addressed to the principal.
func (s *Service) DeclineInvitation(ctx context.Context, principal *models.Principal, invitationID uuid.UUID) (inv *models.Invitation, err error) {
	ctx, span := s.startSpan(ctx, "DeclineInvitation", attribute.String("invitation_id", invitationID.String()))
	defer func() { endSpan(span, err) }()

	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}

	inv, err = s.loadInviteeInvitation(ctx, principal, invitationID)
	if err != nil {
		return nil, err
	}

	inv, err = s.stores.Invitations.Update(ctx, inv.InvitationID, store.InvitationPatch{
		Status: models.Set(models.InvitationStatusDeclined),
	})
	if err != nil {
		return nil, translateWriteError(err)
	}

	s.recordTransition(ctx, inv)

	return inv, nil
}

// RevokeExpiredInvitationSet moves every pending invitation past its expiry
// to expired and returns how many changed. It is safe to run repeatedly.
func (s *Service) RevokeExpiredInvitationSet(ctx context.Context) (count int64, err error) {
	ctx, span := s.startSpan(ctx, "RevokeExpiredInvitationSet")
	defer func() { endSpan(span, err) }()

	count, err = s.stores.Invitations.ExpirePending(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to expire invitations: %w", err)
	}

	if count > 0 {
		s.metrics.InvitationsExpiredTotal.Add(ctx, count)
	}

	return count, nil
}

// loadPendingInvitation fetches a pending invitation and its organization for
// a mutation by the inviting side.
func (s *Service) loadPendingInvitation(ctx context.Context, invitationID uuid.UUID) (*models.Invitation, *models.Organization, error) {
	inv, err := s.stores.Invitations.Get(ctx, invitationID)
	if err != nil {
		return nil, nil, translateWriteError(err)
	}

	if inv.Status != models.InvitationStatusPending {
		return nil, nil, fmt.Errorf("%w: %w: invitation is %s", ErrInvalidArgument, store.ErrInvitationNotPending, inv.Status)
	}

	org, err := s.scopeOf(ctx, inv, true)
	if err != nil {
		return nil, nil, err
	}

	return inv, org, nil
}

// loadInviteeInvitation fetches a pending invitation addressed to principal.
func (s *Service) loadInviteeInvitation(ctx context.Context, principal *models.Principal, invitationID uuid.UUID) (*models.Invitation, error) {
	inv, err := s.stores.Invitations.Get(ctx, invitationID)
	if err != nil {
		return nil, translateWriteError(err)
	}

	if !isInvitee(principal, inv) {
		return nil, fmt.Errorf("%w: invitation is addressed to another email", ErrPermissionDenied)
	}

	if inv.Status != models.InvitationStatusPending {
		return nil, fmt.Errorf("%w: %w: invitation is %s", ErrInvalidArgument, store.ErrInvitationNotPending, inv.Status)
	}

	return inv, nil
}

// displayStatus reports pending invitations past their expiry as expired
// even before the sweeper has run.
func (s *Service) displayStatus(inv *models.Invitation) models.InvitationStatus {
	if inv.Status == models.InvitationStatusPending && inv.IsExpired(s.now()) {
		return models.InvitationStatusExpired
	}
	return inv.Status
}
