package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfeidau/orgs/internal/models"
	"github.com/wolfeidau/orgs/internal/orgs"
)

// InviteCmd groups invitation commands.
type InviteCmd struct {
	Create   InviteCreateCmd   `cmd:"" help:"Invite an email address into an organization"`
	List     InviteListCmd     `cmd:"" help:"List pending invitations of an organization, or those addressed to you"`
	Get      InviteGetCmd      `cmd:"" help:"Show a pending invitation"`
	SetLevel InviteSetLevelCmd `cmd:"" name:"set-level" help:"Change the level a pending invitation grants"`
	Cancel   InviteCancelCmd   `cmd:"" help:"Cancel a pending invitation"`
	Accept   InviteAcceptCmd   `cmd:"" help:"Accept an invitation addressed to you"`
	Decline  InviteDeclineCmd  `cmd:"" help:"Decline an invitation addressed to you"`
}

type InviteCreateCmd struct {
	OrgID string        `arg:"" help:"organization ID"`
	Email string        `arg:"" help:"invitee email address"`
	Level int           `help:"permission level granted on acceptance" default:"1"`
	TTL   time.Duration `help:"invitation lifetime (default ORGS_INVITATION_TTL)"`
}

func (c *InviteCreateCmd) Run(ctx context.Context, globals *Globals) error {
	orgID, err := parseID("organization id", c.OrgID)
	if err != nil {
		return err
	}

	return withService(ctx, globals, func(s *session, principal *models.Principal) error {
		ttl := c.TTL
		if ttl == 0 {
			ttl = s.cfg.InvitationTTL
		}
		level := models.PermissionLevel(c.Level)

		inv, err := s.svc.CreateInvitation(ctx, principal, orgs.InvitationRequest{
			OrgID:           orgID,
			Email:           c.Email,
			ExpiresAt:       time.Now().Add(ttl),
			PermissionLevel: &level,
		})
		if err != nil {
			return fmt.Errorf("failed to create invitation: %w", err)
		}

		fmt.Fprintf(globals.out(), "Created invitation %s\n", inv.InvitationID)
		return nil
	})
}

type InviteListCmd struct {
	Org string `help:"organization ID; omit to list invitations addressed to you"`
}

func (c *InviteListCmd) Run(ctx context.Context, globals *Globals) error {
	orgID, err := parseOptionalID("organization id", c.Org)
	if err != nil {
		return err
	}

	return withService(ctx, globals, func(s *session, principal *models.Principal) error {
		invs, err := s.svc.ListInvitations(ctx, principal, orgID)
		if err != nil {
			return fmt.Errorf("failed to list invitations: %w", err)
		}

		printInvitations(globals.out(), invs)
		return nil
	})
}

type InviteGetCmd struct {
	InvitationID string `arg:"" help:"invitation ID"`
}

func (c *InviteGetCmd) Run(ctx context.Context, globals *Globals) error {
	invitationID, err := parseID("invitation id", c.InvitationID)
	if err != nil {
		return err
	}

	return withService(ctx, globals, func(s *session, principal *models.Principal) error {
		inv, err := s.svc.GetInvitation(ctx, principal, invitationID)
		if err != nil {
			return fmt.Errorf("failed to get invitation: %w", err)
		}

		printInvitations(globals.out(), []*models.Invitation{inv})
		return nil
	})
}

type InviteSetLevelCmd struct {
	InvitationID string `arg:"" help:"invitation ID"`
	Level        int    `arg:"" help:"permission level granted on acceptance"`
}

func (c *InviteSetLevelCmd) Run(ctx context.Context, globals *Globals) error {
	invitationID, err := parseID("invitation id", c.InvitationID)
	if err != nil {
		return err
	}

	return withService(ctx, globals, func(s *session, principal *models.Principal) error {
		inv, err := s.svc.UpdateInvitationPermission(ctx, principal, invitationID, models.PermissionLevel(c.Level))
		if err != nil {
			return fmt.Errorf("failed to update invitation: %w", err)
		}

		printInvitations(globals.out(), []*models.Invitation{inv})
		return nil
	})
}

type InviteCancelCmd struct {
	InvitationID string `arg:"" help:"invitation ID"`
}

func (c *InviteCancelCmd) Run(ctx context.Context, globals *Globals) error {
	invitationID, err := parseID("invitation id", c.InvitationID)
	if err != nil {
		return err
	}

	return withService(ctx, globals, func(s *session, principal *models.Principal) error {
		inv, err := s.svc.CancelInvitation(ctx, principal, invitationID)
		if err != nil {
			return fmt.Errorf("failed to cancel invitation: %w", err)
		}

		fmt.Fprintf(globals.out(), "Invitation %s is %s\n", inv.InvitationID, inv.Status)
		return nil
	})
}

type InviteAcceptCmd struct {
	InvitationID string `arg:"" help:"invitation ID"`
}

func (c *InviteAcceptCmd) Run(ctx context.Context, globals *Globals) error {
	invitationID, err := parseID("invitation id", c.InvitationID)
	if err != nil {
		return err
	}

	return withService(ctx, globals, func(s *session, principal *models.Principal) error {
		member, err := s.svc.AcceptInvitation(ctx, principal, invitationID)
		if err != nil {
			return fmt.Errorf("failed to accept invitation: %w", err)
		}

		fmt.Fprintf(globals.out(), "Joined organization %s as member %s\n", member.OrgID, member.MemberID)
		return nil
	})
}

type InviteDeclineCmd struct {
	InvitationID string `arg:"" help:"invitation ID"`
}

func (c *InviteDeclineCmd) Run(ctx context.Context, globals *Globals) error {
	invitationID, err := parseID("invitation id", c.InvitationID)
	if err != nil {
		return err
	}

	return withService(ctx, globals, func(s *session, principal *models.Principal) error {
		inv, err := s.svc.DeclineInvitation(ctx, principal, invitationID)
		if err != nil {
			return fmt.Errorf("failed to decline invitation: %w", err)
		}

		fmt.Fprintf(globals.out(), "Invitation %s is %s\n", inv.InvitationID, inv.Status)
		return nil
	})
}
