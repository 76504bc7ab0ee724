package orgs

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfeidau/orgs/internal/models"
	"github.com/wolfeidau/orgs/internal/policy"
	"github.com/wolfeidau/orgs/internal/store"
)

// GetMember returns a member the principal may read under its organization's policy.
func (s *Service) GetMember(ctx context.Context, principal *models.Principal, memberID uuid.UUID) (member *models.Member, err error) {
	ctx, span := s.startSpan(ctx, "GetMember", attribute.String("member_id", memberID.String()))
	defer func() { endSpan(span, err) }()

	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}

	member, err = s.stores.Members.Get(ctx, memberID)
	if err != nil {
		return nil, translateStoreError(err)
	}

	org, err := s.scopeOf(ctx, member, false)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, org, policy.ActionGetMember, principal); err != nil {
		return nil, err
	}

	return member, nil
}

// ListMembers returns the members of orgID. With uuid.Nil it instead returns
// the principal's own memberships across all organizations, without any
// policy check.
func (s *Service) ListMembers(ctx context.Context, principal *models.Principal, orgID uuid.UUID) (members []*models.Member, err error) {
	ctx, span := s.startSpan(ctx, "ListMembers", attribute.String("org_id", orgID.String()))
	defer func() { endSpan(span, err) }()

	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}

	opts := store.ListMembersOptions{PrincipalID: principal.PrincipalID}

	if orgID != uuid.Nil {
		org, err := s.loadOrganization(ctx, orgID, false)
		if err != nil {
			return nil, err
		}

		if err := s.authorize(ctx, org, policy.ActionGetMemberSet, principal); err != nil {
			return nil, err
		}

		opts = store.ListMembersOptions{OrgID: org.OrgID}
	}

	members, err = s.stores.Members.List(ctx, opts)
	if err != nil {
		return nil, translateStoreError(err)
	}

	return members, nil
}

// UpdateMemberPermission changes a member's permission level.
//
// Setting the level the member already holds returns the member unchanged
// without consulting the policy. Demoting the organization's owner requires
// newOwner, a principal already holding owner-level membership in the same
// organization; the owner reassignment and the demotion are applied together
// or not at all.
func (s *Service) UpdateMemberPermission(ctx context.Context, principal *models.Principal, memberID uuid.UUID, level models.PermissionLevel, newOwner *uuid.UUID) (member *models.Member, err error) {
	ctx, span := s.startSpan(ctx, "UpdateMemberPermission",
		attribute.String("member_id", memberID.String()),
		attribute.Int("permission_level", int(level)),
	)
	defer func() { endSpan(span, err) }()

	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}
	if err := validateLevel(level); err != nil {
		return nil, err
	}

	member, err = s.stores.Members.Get(ctx, memberID)
	if err != nil {
		return nil, translateWriteError(err)
	}

	if hasLevel(member, level) {
		return member, nil
	}

	org, err := s.scopeOf(ctx, member, true)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, org, policy.ActionUpdateMemberPermission, principal); err != nil {
		return nil, err
	}

	if member.IsOwnerOf(org) && !level.IsOwner() && newOwner == nil {
		// fail early, the store repeats this check under lock
		return nil, translateWriteError(store.ErrOwnerTransferRequired)
	}

	// ownership may have moved since member was read; only the store knows
	updated, transferred, err := s.stores.Members.UpdatePermission(ctx, member.MemberID, level, newOwner)
	if err != nil {
		return nil, translateWriteError(err)
	}

	if transferred {
		s.metrics.OwnershipTransfersTotal.Add(ctx, 1)
		log.Info().
			Str("org_id", org.OrgID.String()).
			Str("previous_owner_id", member.PrincipalID.String()).
			Str("new_owner_id", newOwner.String()).
			Msg("Transferred organization ownership")
	}

	log.Debug().
		Str("member_id", updated.MemberID.String()).
		Int("from_level", int(member.PermissionLevel)).
		Int("to_level", int(updated.PermissionLevel)).
		Msg("Updated member permission")

	return updated, nil
}
