// Package storetest holds the behaviour every store backend must share.
// Backends call Run from their own tests with a constructor for their stores.
package storetest

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/orgs/internal/models"
	"github.com/wolfeidau/orgs/internal/store"
)

// Run exercises a store backend. open may return the same stores for every
// call; the checks only rely on rows they create themselves.
func Run(t *testing.T, open func(t *testing.T) store.Stores) {
	t.Run("principals", func(t *testing.T) { testPrincipals(t, open(t)) })
	t.Run("organizations", func(t *testing.T) { testOrganizations(t, open(t)) })
	t.Run("hierarchy", func(t *testing.T) { testHierarchy(t, open(t)) })
	t.Run("delete", func(t *testing.T) { testDelete(t, open(t)) })
	t.Run("members", func(t *testing.T) { testMembers(t, open(t)) })
	t.Run("ownership transfer", func(t *testing.T) { testOwnershipTransfer(t, open(t)) })
	t.Run("invitations", func(t *testing.T) { testInvitations(t, open(t)) })
	t.Run("accept", func(t *testing.T) { testAccept(t, open(t)) })
	t.Run("expire", func(t *testing.T) { testExpire(t, open(t)) })
}

// now is truncated to the coarsest precision any backend stores.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func newPrincipal(t *testing.T, s store.Stores) *models.Principal {
	t.Helper()

	id := uuid.Must(uuid.NewV7())
	p := &models.Principal{
		PrincipalID: id,
		Email:       fmt.Sprintf("%s@example.com", id),
		CreatedAt:   now(),
		UpdatedAt:   now(),
	}
	require.NoError(t, s.Principals.Upsert(context.Background(), p))
	return p
}

func newOrganization(t *testing.T, s store.Stores, owner *models.Principal, parent *uuid.UUID) (*models.Organization, *models.Member) {
	t.Helper()

	ts := now()
	org := &models.Organization{
		OrgID:             uuid.Must(uuid.NewV7()),
		OwnerPrincipalID:  owner.PrincipalID,
		SuperOrgID:        parent,
		PermissionsPolicy: json.RawMessage(`{"version":0}`),
		CreatedAt:         ts,
		UpdatedAt:         ts,
	}
	member := &models.Member{
		MemberID:        uuid.Must(uuid.NewV7()),
		OrgID:           org.OrgID,
		PrincipalID:     owner.PrincipalID,
		PermissionLevel: models.PermissionLevelOwner,
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
	require.NoError(t, s.Organizations.Create(context.Background(), org, member))
	return org, member
}

func newMember(t *testing.T, s store.Stores, org *models.Organization, p *models.Principal, level models.PermissionLevel) *models.Member {
	t.Helper()

	ts := now()
	m := &models.Member{
		MemberID:        uuid.Must(uuid.NewV7()),
		OrgID:           org.OrgID,
		PrincipalID:     p.PrincipalID,
		PermissionLevel: level,
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
	require.NoError(t, s.Members.Create(context.Background(), m))
	return m
}

func newInvitation(t *testing.T, s store.Stores, org *models.Organization, inviter *models.Principal, email string, expiresAt time.Time) *models.Invitation {
	t.Helper()

	ts := now()
	inv := &models.Invitation{
		InvitationID:       uuid.Must(uuid.NewV7()),
		OrgID:              org.OrgID,
		InviterPrincipalID: inviter.PrincipalID,
		Email:              email,
		PermissionLevel:    5,
		Status:             models.InvitationStatusPending,
		ExpiresAt:          expiresAt,
		CreatedAt:          ts,
		UpdatedAt:          ts,
	}
	require.NoError(t, s.Invitations.Create(context.Background(), inv))
	return inv
}

func testPrincipals(t *testing.T, s store.Stores) {
	ctx := context.Background()

	p := newPrincipal(t, s)

	got, err := s.Principals.Get(ctx, p.PrincipalID)
	require.NoError(t, err)
	require.Equal(t, p.Email, got.Email)
	require.False(t, got.Authenticated)

	p.Email = "renamed-" + p.Email
	require.NoError(t, s.Principals.Upsert(ctx, p))

	got, err = s.Principals.Get(ctx, p.PrincipalID)
	require.NoError(t, err)
	require.Equal(t, p.Email, got.Email)

	_, err = s.Principals.Get(ctx, uuid.New())
	require.ErrorIs(t, err, store.ErrPrincipalNotFound)
}

func testOrganizations(t *testing.T, s store.Stores) {
	ctx := context.Background()
	owner := newPrincipal(t, s)
	org, founder := newOrganization(t, s, owner, nil)

	t.Run("get", func(t *testing.T) {
		got, err := s.Organizations.Get(ctx, org.OrgID)
		require.NoError(t, err)
		require.Equal(t, org.OrgID, got.OrgID)
		require.Equal(t, owner.PrincipalID, got.OwnerPrincipalID)
		require.Nil(t, got.SuperOrgID)
		require.JSONEq(t, `{"version":0}`, string(got.PermissionsPolicy))
		require.True(t, org.CreatedAt.Equal(got.CreatedAt))

		m, err := s.Members.Get(ctx, founder.MemberID)
		require.NoError(t, err)
		require.Equal(t, models.PermissionLevelOwner, m.PermissionLevel)
		require.Nil(t, m.InvitationID)
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := s.Organizations.Get(ctx, uuid.New())
		require.ErrorIs(t, err, store.ErrOrganizationNotFound)
	})

	t.Run("create duplicate", func(t *testing.T) {
		dup := *org
		member := *founder
		member.MemberID = uuid.Must(uuid.NewV7())
		err := s.Organizations.Create(ctx, &dup, &member)
		require.ErrorIs(t, err, store.ErrOrganizationAlreadyExists)
	})

	t.Run("create with missing parent", func(t *testing.T) {
		missing := uuid.New()
		child := &models.Organization{
			OrgID:             uuid.Must(uuid.NewV7()),
			OwnerPrincipalID:  owner.PrincipalID,
			SuperOrgID:        &missing,
			PermissionsPolicy: json.RawMessage(`{"version":0}`),
			CreatedAt:         now(),
			UpdatedAt:         now(),
		}
		member := &models.Member{
			MemberID:        uuid.Must(uuid.NewV7()),
			OrgID:           child.OrgID,
			PrincipalID:     owner.PrincipalID,
			PermissionLevel: models.PermissionLevelOwner,
			CreatedAt:       now(),
			UpdatedAt:       now(),
		}
		err := s.Organizations.Create(ctx, child, member)
		require.ErrorIs(t, err, store.ErrOrganizationNotFound)

		_, err = s.Organizations.Get(ctx, child.OrgID)
		require.ErrorIs(t, err, store.ErrOrganizationNotFound)
	})

	t.Run("create with unknown owner", func(t *testing.T) {
		stranger := uuid.Must(uuid.NewV7())
		org := &models.Organization{
			OrgID:             uuid.Must(uuid.NewV7()),
			OwnerPrincipalID:  stranger,
			PermissionsPolicy: json.RawMessage(`{"version":0}`),
			CreatedAt:         now(),
			UpdatedAt:         now(),
		}
		member := &models.Member{
			MemberID:        uuid.Must(uuid.NewV7()),
			OrgID:           org.OrgID,
			PrincipalID:     stranger,
			PermissionLevel: models.PermissionLevelOwner,
			CreatedAt:       now(),
			UpdatedAt:       now(),
		}
		err := s.Organizations.Create(ctx, org, member)
		require.ErrorIs(t, err, store.ErrPrincipalNotFound)
	})

	t.Run("update policy", func(t *testing.T) {
		policy := json.RawMessage(`{"version":1,"statement":{"create_invitation":5}}`)
		updated, err := s.Organizations.Update(ctx, org.OrgID, store.OrganizationPatch{
			PermissionsPolicy: models.Set(policy),
		})
		require.NoError(t, err)
		require.JSONEq(t, string(policy), string(updated.PermissionsPolicy))

		got, err := s.Organizations.Get(ctx, org.OrgID)
		require.NoError(t, err)
		require.JSONEq(t, string(policy), string(got.PermissionsPolicy))
	})

	t.Run("update missing", func(t *testing.T) {
		_, err := s.Organizations.Update(ctx, uuid.New(), store.OrganizationPatch{
			PermissionsPolicy: models.Set(json.RawMessage(`{"version":0}`)),
		})
		require.ErrorIs(t, err, store.ErrOrganizationNotFound)
	})

	t.Run("list by member", func(t *testing.T) {
		other, _ := newOrganization(t, s, newPrincipal(t, s), nil)
		newMember(t, s, other, owner, models.PermissionLevelMember)

		orgs, err := s.Organizations.ListByMember(ctx, owner.PrincipalID)
		require.NoError(t, err)
		require.Len(t, orgs, 2)
		require.Equal(t, org.OrgID, orgs[0].OrgID)
		require.Equal(t, other.OrgID, orgs[1].OrgID)

		orgs, err = s.Organizations.ListByMember(ctx, uuid.New())
		require.NoError(t, err)
		require.Empty(t, orgs)
	})
}

func testHierarchy(t *testing.T, s store.Stores) {
	ctx := context.Background()
	owner := newPrincipal(t, s)

	root, _ := newOrganization(t, s, owner, nil)
	child, _ := newOrganization(t, s, owner, &root.OrgID)
	grandchild, _ := newOrganization(t, s, owner, &child.OrgID)
	other, _ := newOrganization(t, s, owner, nil)

	children, err := s.Organizations.ListChildren(ctx, root.OrgID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	require.Equal(t, child.OrgID, children[0].OrgID)
	require.Equal(t, root.OrgID, *children[0].SuperOrgID)

	t.Run("move to self is a cycle", func(t *testing.T) {
		_, err := s.Organizations.Update(ctx, root.OrgID, store.OrganizationPatch{
			SuperOrgID: models.Set(root.OrgID),
		})
		require.ErrorIs(t, err, store.ErrOrganizationCycle)
	})

	t.Run("move below descendant is a cycle", func(t *testing.T) {
		_, err := s.Organizations.Update(ctx, root.OrgID, store.OrganizationPatch{
			SuperOrgID: models.Set(grandchild.OrgID),
		})
		require.ErrorIs(t, err, store.ErrOrganizationCycle)

		got, err := s.Organizations.Get(ctx, root.OrgID)
		require.NoError(t, err)
		require.Nil(t, got.SuperOrgID)
	})

	t.Run("move to missing parent", func(t *testing.T) {
		_, err := s.Organizations.Update(ctx, child.OrgID, store.OrganizationPatch{
			SuperOrgID: models.Set(uuid.New()),
		})
		require.ErrorIs(t, err, store.ErrOrganizationNotFound)
	})

	t.Run("move and detach", func(t *testing.T) {
		moved, err := s.Organizations.Update(ctx, grandchild.OrgID, store.OrganizationPatch{
			SuperOrgID: models.Set(other.OrgID),
		})
		require.NoError(t, err)
		require.NotNil(t, moved.SuperOrgID)
		require.Equal(t, other.OrgID, *moved.SuperOrgID)

		children, err := s.Organizations.ListChildren(ctx, child.OrgID)
		require.NoError(t, err)
		require.Empty(t, children)

		detached, err := s.Organizations.Update(ctx, grandchild.OrgID, store.OrganizationPatch{
			SuperOrgID: models.Null[uuid.UUID](),
		})
		require.NoError(t, err)
		require.Nil(t, detached.SuperOrgID)
		require.True(t, detached.IsTopLevel())
	})
}

func testDelete(t *testing.T, s store.Stores) {
	ctx := context.Background()
	owner := newPrincipal(t, s)
	invitee := newPrincipal(t, s)

	parent, founder := newOrganization(t, s, owner, nil)
	child, _ := newOrganization(t, s, owner, &parent.OrgID)
	member := newMember(t, s, parent, invitee, models.PermissionLevelMember)
	inv := newInvitation(t, s, parent, owner, "pending-"+invitee.Email, now().Add(time.Hour))

	err := s.Organizations.Delete(ctx, parent.OrgID)
	require.ErrorIs(t, err, store.ErrOrganizationHasChildren)

	_, err = s.Organizations.Get(ctx, parent.OrgID)
	require.NoError(t, err)

	require.NoError(t, s.Organizations.Delete(ctx, child.OrgID))
	require.NoError(t, s.Organizations.Delete(ctx, parent.OrgID))

	_, err = s.Organizations.Get(ctx, parent.OrgID)
	require.ErrorIs(t, err, store.ErrOrganizationNotFound)

	_, err = s.Members.Get(ctx, founder.MemberID)
	require.ErrorIs(t, err, store.ErrMemberNotFound)
	_, err = s.Members.Get(ctx, member.MemberID)
	require.ErrorIs(t, err, store.ErrMemberNotFound)
	_, err = s.Invitations.Get(ctx, inv.InvitationID)
	require.ErrorIs(t, err, store.ErrInvitationNotFound)

	err = s.Organizations.Delete(ctx, parent.OrgID)
	require.ErrorIs(t, err, store.ErrOrganizationNotFound)
}

func testMembers(t *testing.T, s store.Stores) {
	ctx := context.Background()
	owner := newPrincipal(t, s)
	alice := newPrincipal(t, s)

	org, founder := newOrganization(t, s, owner, nil)
	m := newMember(t, s, org, alice, 5)

	t.Run("duplicate principal", func(t *testing.T) {
		dup := *m
		dup.MemberID = uuid.Must(uuid.NewV7())
		err := s.Members.Create(ctx, &dup)
		require.ErrorIs(t, err, store.ErrMemberAlreadyExists)
	})

	t.Run("unknown principal", func(t *testing.T) {
		err := s.Members.Create(ctx, &models.Member{
			MemberID:        uuid.Must(uuid.NewV7()),
			OrgID:           org.OrgID,
			PrincipalID:     uuid.New(),
			PermissionLevel: 1,
			CreatedAt:       now(),
			UpdatedAt:       now(),
		})
		require.ErrorIs(t, err, store.ErrPrincipalNotFound)
	})

	t.Run("lookups", func(t *testing.T) {
		got, err := s.Members.GetByPrincipal(ctx, org.OrgID, alice.PrincipalID)
		require.NoError(t, err)
		require.Equal(t, m.MemberID, got.MemberID)
		require.Equal(t, models.PermissionLevel(5), got.PermissionLevel)

		got, err = s.Members.GetByEmail(ctx, org.OrgID, alice.Email)
		require.NoError(t, err)
		require.Equal(t, m.MemberID, got.MemberID)

		_, err = s.Members.GetByEmail(ctx, org.OrgID, "nobody@example.com")
		require.ErrorIs(t, err, store.ErrMemberNotFound)

		_, err = s.Members.GetByPrincipal(ctx, uuid.New(), alice.PrincipalID)
		require.ErrorIs(t, err, store.ErrMemberNotFound)

		_, err = s.Members.Get(ctx, uuid.New())
		require.ErrorIs(t, err, store.ErrMemberNotFound)
	})

	t.Run("list", func(t *testing.T) {
		members, err := s.Members.List(ctx, store.ListMembersOptions{OrgID: org.OrgID})
		require.NoError(t, err)
		require.Len(t, members, 2)
		require.Equal(t, founder.MemberID, members[0].MemberID)
		require.Equal(t, m.MemberID, members[1].MemberID)

		members, err = s.Members.List(ctx, store.ListMembersOptions{PrincipalID: alice.PrincipalID})
		require.NoError(t, err)
		require.Len(t, members, 1)
	})

	t.Run("update permission", func(t *testing.T) {
		updated, transferred, err := s.Members.UpdatePermission(ctx, m.MemberID, 7, nil)
		require.NoError(t, err)
		require.False(t, transferred)
		require.Equal(t, models.PermissionLevel(7), updated.PermissionLevel)

		got, err := s.Members.Get(ctx, m.MemberID)
		require.NoError(t, err)
		require.Equal(t, models.PermissionLevel(7), got.PermissionLevel)

		_, _, err = s.Members.UpdatePermission(ctx, uuid.New(), 7, nil)
		require.ErrorIs(t, err, store.ErrMemberNotFound)
	})
}

func testOwnershipTransfer(t *testing.T, s store.Stores) {
	ctx := context.Background()
	owner := newPrincipal(t, s)
	bob := newPrincipal(t, s)

	org, founder := newOrganization(t, s, owner, nil)
	bobMember := newMember(t, s, org, bob, 5)

	assertUnchanged := func(t *testing.T) {
		t.Helper()
		got, err := s.Organizations.Get(ctx, org.OrgID)
		require.NoError(t, err)
		require.Equal(t, owner.PrincipalID, got.OwnerPrincipalID)

		m, err := s.Members.Get(ctx, founder.MemberID)
		require.NoError(t, err)
		require.Equal(t, models.PermissionLevelOwner, m.PermissionLevel)
	}

	t.Run("demotion without new owner", func(t *testing.T) {
		_, _, err := s.Members.UpdatePermission(ctx, founder.MemberID, 3, nil)
		require.ErrorIs(t, err, store.ErrOwnerTransferRequired)
		assertUnchanged(t)
	})

	t.Run("new owner below owner level", func(t *testing.T) {
		_, _, err := s.Members.UpdatePermission(ctx, founder.MemberID, 3, &bob.PrincipalID)
		require.ErrorIs(t, err, store.ErrNewOwnerNotEligible)
		assertUnchanged(t)
	})

	t.Run("new owner is the demoted member", func(t *testing.T) {
		_, _, err := s.Members.UpdatePermission(ctx, founder.MemberID, 3, &owner.PrincipalID)
		require.ErrorIs(t, err, store.ErrNewOwnerNotEligible)
		assertUnchanged(t)
	})

	t.Run("new owner outside organization", func(t *testing.T) {
		stranger := newPrincipal(t, s)
		_, _, err := s.Members.UpdatePermission(ctx, founder.MemberID, 3, &stranger.PrincipalID)
		require.ErrorIs(t, err, store.ErrNewOwnerNotEligible)
		assertUnchanged(t)
	})

	t.Run("transfer to co-owner", func(t *testing.T) {
		_, transferred, err := s.Members.UpdatePermission(ctx, bobMember.MemberID, models.PermissionLevelOwner, nil)
		require.NoError(t, err)
		require.False(t, transferred)

		demoted, transferred, err := s.Members.UpdatePermission(ctx, founder.MemberID, 3, &bob.PrincipalID)
		require.NoError(t, err)
		require.True(t, transferred)
		require.Equal(t, models.PermissionLevel(3), demoted.PermissionLevel)

		got, err := s.Organizations.Get(ctx, org.OrgID)
		require.NoError(t, err)
		require.Equal(t, bob.PrincipalID, got.OwnerPrincipalID)
	})

	t.Run("former owner changes freely", func(t *testing.T) {
		updated, transferred, err := s.Members.UpdatePermission(ctx, founder.MemberID, 1, nil)
		require.NoError(t, err)
		require.False(t, transferred)
		require.Equal(t, models.PermissionLevel(1), updated.PermissionLevel)
	})
}

func testInvitations(t *testing.T, s store.Stores) {
	ctx := context.Background()
	owner := newPrincipal(t, s)
	org, _ := newOrganization(t, s, owner, nil)
	email := fmt.Sprintf("invitee-%s@example.com", uuid.New())

	inv := newInvitation(t, s, org, owner, email, now().Add(time.Hour))

	t.Run("get", func(t *testing.T) {
		got, err := s.Invitations.Get(ctx, inv.InvitationID)
		require.NoError(t, err)
		require.Equal(t, email, got.Email)
		require.Equal(t, models.InvitationStatusPending, got.Status)
		require.Equal(t, models.PermissionLevel(5), got.PermissionLevel)
		require.True(t, inv.ExpiresAt.Equal(got.ExpiresAt))

		_, err = s.Invitations.Get(ctx, uuid.New())
		require.ErrorIs(t, err, store.ErrInvitationNotFound)
	})

	t.Run("second pending invitation", func(t *testing.T) {
		dup := *inv
		dup.InvitationID = uuid.Must(uuid.NewV7())
		err := s.Invitations.Create(ctx, &dup)
		require.ErrorIs(t, err, store.ErrInvitationAlreadyPending)
	})

	t.Run("update level", func(t *testing.T) {
		updated, err := s.Invitations.Update(ctx, inv.InvitationID, store.InvitationPatch{
			PermissionLevel: models.Set(models.PermissionLevel(9)),
		})
		require.NoError(t, err)
		require.Equal(t, models.PermissionLevel(9), updated.PermissionLevel)
		require.Equal(t, models.InvitationStatusPending, updated.Status)
	})

	t.Run("list", func(t *testing.T) {
		invs, err := s.Invitations.List(ctx, store.ListInvitationsOptions{
			OrgID:    org.OrgID,
			Status:   models.InvitationStatusPending,
			ActiveAt: now(),
		})
		require.NoError(t, err)
		require.Len(t, invs, 1)

		invs, err = s.Invitations.List(ctx, store.ListInvitationsOptions{Email: email})
		require.NoError(t, err)
		require.Len(t, invs, 1)

		invs, err = s.Invitations.List(ctx, store.ListInvitationsOptions{
			OrgID:    org.OrgID,
			ActiveAt: now().Add(2 * time.Hour),
		})
		require.NoError(t, err)
		require.Empty(t, invs)
	})

	t.Run("cancel then re-invite", func(t *testing.T) {
		canceled, err := s.Invitations.Update(ctx, inv.InvitationID, store.InvitationPatch{
			Status: models.Set(models.InvitationStatusCanceled),
		})
		require.NoError(t, err)
		require.Equal(t, models.InvitationStatusCanceled, canceled.Status)

		_, err = s.Invitations.Update(ctx, inv.InvitationID, store.InvitationPatch{
			Status: models.Set(models.InvitationStatusDeclined),
		})
		require.ErrorIs(t, err, store.ErrInvitationNotPending)

		again := newInvitation(t, s, org, owner, email, now().Add(time.Hour))
		require.NotEqual(t, inv.InvitationID, again.InvitationID)
	})

	t.Run("update missing", func(t *testing.T) {
		_, err := s.Invitations.Update(ctx, uuid.New(), store.InvitationPatch{
			Status: models.Set(models.InvitationStatusCanceled),
		})
		require.ErrorIs(t, err, store.ErrInvitationNotFound)
	})
}

func testAccept(t *testing.T, s store.Stores) {
	ctx := context.Background()
	owner := newPrincipal(t, s)
	bob := newPrincipal(t, s)
	org, _ := newOrganization(t, s, owner, nil)

	t.Run("expired", func(t *testing.T) {
		inv := newInvitation(t, s, org, owner, bob.Email, now().Add(-time.Minute))

		_, err := s.Invitations.Accept(ctx, inv.InvitationID, &models.Member{
			MemberID:    uuid.Must(uuid.NewV7()),
			PrincipalID: bob.PrincipalID,
			CreatedAt:   now(),
			UpdatedAt:   now(),
		}, now())
		require.ErrorIs(t, err, store.ErrInvitationExpired)

		got, err := s.Invitations.Get(ctx, inv.InvitationID)
		require.NoError(t, err)
		require.Equal(t, models.InvitationStatusPending, got.Status)

		_, err = s.Members.GetByPrincipal(ctx, org.OrgID, bob.PrincipalID)
		require.ErrorIs(t, err, store.ErrMemberNotFound)

		_, err = s.Invitations.Update(ctx, inv.InvitationID, store.InvitationPatch{
			Status: models.Set(models.InvitationStatusCanceled),
		})
		require.NoError(t, err)
	})

	t.Run("accepted", func(t *testing.T) {
		inv := newInvitation(t, s, org, owner, bob.Email, now().Add(time.Hour))

		member := &models.Member{
			MemberID:    uuid.Must(uuid.NewV7()),
			PrincipalID: bob.PrincipalID,
			CreatedAt:   now(),
			UpdatedAt:   now(),
		}
		accepted, err := s.Invitations.Accept(ctx, inv.InvitationID, member, now())
		require.NoError(t, err)
		require.Equal(t, models.InvitationStatusAccepted, accepted.Status)

		got, err := s.Members.Get(ctx, member.MemberID)
		require.NoError(t, err)
		require.Equal(t, org.OrgID, got.OrgID)
		require.Equal(t, inv.PermissionLevel, got.PermissionLevel)
		require.NotNil(t, got.InvitationID)
		require.Equal(t, inv.InvitationID, *got.InvitationID)

		_, err = s.Invitations.Accept(ctx, inv.InvitationID, &models.Member{
			MemberID:    uuid.Must(uuid.NewV7()),
			PrincipalID: bob.PrincipalID,
			CreatedAt:   now(),
			UpdatedAt:   now(),
		}, now())
		require.ErrorIs(t, err, store.ErrInvitationNotPending)
	})

	t.Run("already a member", func(t *testing.T) {
		inv := newInvitation(t, s, org, owner, "again-"+bob.Email, now().Add(time.Hour))

		_, err := s.Invitations.Accept(ctx, inv.InvitationID, &models.Member{
			MemberID:    uuid.Must(uuid.NewV7()),
			PrincipalID: bob.PrincipalID,
			CreatedAt:   now(),
			UpdatedAt:   now(),
		}, now())
		require.ErrorIs(t, err, store.ErrMemberAlreadyExists)

		got, err := s.Invitations.Get(ctx, inv.InvitationID)
		require.NoError(t, err)
		require.Equal(t, models.InvitationStatusPending, got.Status)
	})
}

func testExpire(t *testing.T, s store.Stores) {
	ctx := context.Background()
	owner := newPrincipal(t, s)
	org, _ := newOrganization(t, s, owner, nil)

	overdue := newInvitation(t, s, org, owner, "overdue@example.com", now().Add(-time.Minute))
	current := newInvitation(t, s, org, owner, "current@example.com", now().Add(time.Hour))
	declined := newInvitation(t, s, org, owner, "declined@example.com", now().Add(-time.Minute))
	_, err := s.Invitations.Update(ctx, declined.InvitationID, store.InvitationPatch{
		Status: models.Set(models.InvitationStatusDeclined),
	})
	require.NoError(t, err)

	count, err := s.Invitations.ExpirePending(ctx, now())
	require.NoError(t, err)
	require.GreaterOrEqual(t, count, int64(1))

	for id, want := range map[uuid.UUID]models.InvitationStatus{
		overdue.InvitationID:  models.InvitationStatusExpired,
		current.InvitationID:  models.InvitationStatusPending,
		declined.InvitationID: models.InvitationStatusDeclined,
	} {
		got, err := s.Invitations.Get(ctx, id)
		require.NoError(t, err)
		require.Equal(t, want, got.Status)
	}

	count, err = s.Invitations.ExpirePending(ctx, now())
	require.NoError(t, err)
	require.Zero(t, count)
}
