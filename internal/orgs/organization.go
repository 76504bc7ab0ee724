package orgs

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfeidau/orgs/internal/models"
	"github.com/wolfeidau/orgs/internal/policy"
	"github.com/wolfeidau/orgs/internal/store"
)

// CreateOrganization creates a top-level organization owned by principal,
// together with its founding owner member. No policy applies yet.
func (s *Service) CreateOrganization(ctx context.Context, principal *models.Principal) (org *models.Organization, err error) {
	ctx, span := s.startSpan(ctx, "CreateOrganization")
	defer func() { endSpan(span, err) }()

	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}

	return s.createOrganization(ctx, principal, nil)
}

// CreateSubOrganization creates an organization under parentID. The caller
// needs create_sub_organization on the parent and becomes the owner of the new
// organization, which starts with the default policy.
func (s *Service) CreateSubOrganization(ctx context.Context, principal *models.Principal, parentID uuid.UUID) (org *models.Organization, err error) {
	ctx, span := s.startSpan(ctx, "CreateSubOrganization", attribute.String("parent_org_id", parentID.String()))
	defer func() { endSpan(span, err) }()

	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}

	parent, err := s.loadOrganization(ctx, parentID, true)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, parent, policy.ActionCreateSubOrganization, principal); err != nil {
		return nil, err
	}

	return s.createOrganization(ctx, principal, &parent.OrgID)
}

func (s *Service) createOrganization(ctx context.Context, principal *models.Principal, parentID *uuid.UUID) (*models.Organization, error) {
	if err := s.registerPrincipal(ctx, principal); err != nil {
		return nil, err
	}

	orgID, err := newID()
	if err != nil {
		return nil, err
	}
	memberID, err := newID()
	if err != nil {
		return nil, err
	}

	now := s.now()
	org := &models.Organization{
		OrgID:             orgID,
		OwnerPrincipalID:  principal.PrincipalID,
		SuperOrgID:        parentID,
		PermissionsPolicy: policy.DefaultDocument,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	owner := &models.Member{
		MemberID:        memberID,
		OrgID:           orgID,
		PrincipalID:     principal.PrincipalID,
		PermissionLevel: models.PermissionLevelOwner,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.stores.Organizations.Create(ctx, org, owner); err != nil {
		return nil, translateWriteError(err)
	}

	log.Debug().
		Str("org_id", org.OrgID.String()).
		Str("owner_principal_id", org.OwnerPrincipalID.String()).
		Bool("top_level", org.IsTopLevel()).
		Msg("Created organization")

	return org, nil
}

// GetOrganization returns an organization the principal may read under its policy.
func (s *Service) GetOrganization(ctx context.Context, principal *models.Principal, orgID uuid.UUID) (org *models.Organization, err error) {
	ctx, span := s.startSpan(ctx, "GetOrganization", attribute.String("org_id", orgID.String()))
	defer func() { endSpan(span, err) }()

	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}

	org, err = s.loadOrganization(ctx, orgID, false)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, org, policy.ActionGetOrganization, principal); err != nil {
		return nil, err
	}

	return org, nil
}

// ListOrganizations returns the organizations the principal is a member of.
// It never fails authorization.
func (s *Service) ListOrganizations(ctx context.Context, principal *models.Principal) (orgs []*models.Organization, err error) {
	ctx, span := s.startSpan(ctx, "ListOrganizations")
	defer func() { endSpan(span, err) }()

	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}

	orgs, err = s.stores.Organizations.ListByMember(ctx, principal.PrincipalID)
	if err != nil {
		return nil, translateStoreError(err)
	}

	return orgs, nil
}

// ListSubOrganizations returns the direct children of orgID.
func (s *Service) ListSubOrganizations(ctx context.Context, principal *models.Principal, orgID uuid.UUID) (orgs []*models.Organization, err error) {
	ctx, span := s.startSpan(ctx, "ListSubOrganizations", attribute.String("org_id", orgID.String()))
	defer func() { endSpan(span, err) }()

	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}

	org, err := s.loadOrganization(ctx, orgID, false)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, org, policy.ActionGetSubOrganizationSet, principal); err != nil {
		return nil, err
	}

	orgs, err = s.stores.Organizations.ListChildren(ctx, org.OrgID)
	if err != nil {
		return nil, translateStoreError(err)
	}

	return orgs, nil
}

// MoveOrganization re-parents orgID. A set parent needs create_sub_organization
// on that parent; Null detaches the organization to the top level. Moving an
// organization beneath itself or one of its descendants is rejected.
func (s *Service) MoveOrganization(ctx context.Context, principal *models.Principal, orgID uuid.UUID, parent models.Field[uuid.UUID]) (org *models.Organization, err error) {
	ctx, span := s.startSpan(ctx, "MoveOrganization", attribute.String("org_id", orgID.String()))
	defer func() { endSpan(span, err) }()

	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}
	if !parent.IsSet() {
		return nil, invalidArgumentf("parent organization must be set or cleared")
	}

	org, err = s.loadOrganization(ctx, orgID, true)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, org, policy.ActionMoveOrganization, principal); err != nil {
		return nil, err
	}

	if parentID, ok := parent.Get(); ok {
		if parentID == org.OrgID {
			return nil, invalidArgumentf("organization cannot be its own parent")
		}

		newParent, err := s.loadOrganization(ctx, parentID, true)
		if err != nil {
			return nil, err
		}

		if err := s.authorize(ctx, newParent, policy.ActionCreateSubOrganization, principal); err != nil {
			return nil, err
		}
	}

	org, err = s.stores.Organizations.Update(ctx, org.OrgID, store.OrganizationPatch{SuperOrgID: parent})
	if err != nil {
		return nil, translateWriteError(err)
	}

	log.Info().
		Str("org_id", org.OrgID.String()).
		Bool("top_level", org.IsTopLevel()).
		Msg("Moved organization")

	return org, nil
}

// UpdateOrganizationPolicy validates and replaces the organization's
// permissions policy. Invalid documents fail with ErrInvalidPolicy and are
// never stored.
func (s *Service) UpdateOrganizationPolicy(ctx context.Context, principal *models.Principal, orgID uuid.UUID, document json.RawMessage) (org *models.Organization, err error) {
	ctx, span := s.startSpan(ctx, "UpdateOrganizationPolicy", attribute.String("org_id", orgID.String()))
	defer func() { endSpan(span, err) }()

	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}

	org, err = s.loadOrganization(ctx, orgID, true)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, org, policy.ActionUpdateOrganizationPolicy, principal); err != nil {
		return nil, err
	}

	if err := policy.Validate(document); err != nil {
		return nil, err
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, document); err != nil {
		return nil, err
	}

	org, err = s.stores.Organizations.Update(ctx, org.OrgID, store.OrganizationPatch{
		PermissionsPolicy: models.Set(json.RawMessage(compact.Bytes())),
	})
	if err != nil {
		return nil, translateWriteError(err)
	}

	log.Info().
		Str("org_id", org.OrgID.String()).
		Str("principal_id", principal.PrincipalID.String()).
		RawJSON("policy", org.PermissionsPolicy).
		Msg("Updated organization policy")

	return org, nil
}

// DeleteOrganization removes an organization along with its members and
// invitations. Organizations that still have sub-organizations are rejected.
func (s *Service) DeleteOrganization(ctx context.Context, principal *models.Principal, orgID uuid.UUID) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteOrganization", attribute.String("org_id", orgID.String()))
	defer func() { endSpan(span, err) }()

	if err := requirePrincipal(principal); err != nil {
		return err
	}

	org, err := s.loadOrganization(ctx, orgID, true)
	if err != nil {
		return err
	}

	if err := s.authorize(ctx, org, policy.ActionDeleteOrganization, principal); err != nil {
		return err
	}

	if err := s.stores.Organizations.Delete(ctx, org.OrgID); err != nil {
		return translateWriteError(err)
	}

	log.Info().
		Str("org_id", org.OrgID.String()).
		Str("principal_id", principal.PrincipalID.String()).
		Msg("Deleted organization")

	return nil
}
