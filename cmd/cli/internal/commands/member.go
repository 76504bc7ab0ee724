package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/wolfeidau/orgs/internal/models"
)

// MemberCmd groups membership commands.
type MemberCmd struct {
	List     MemberListCmd     `cmd:"" help:"List members of an organization, or your own memberships"`
	Get      MemberGetCmd      `cmd:"" help:"Show a member"`
	SetLevel MemberSetLevelCmd `cmd:"" name:"set-level" help:"Change a member's permission level"`
}

type MemberListCmd struct {
	Org string `help:"organization ID; omit to list your own memberships"`
}

func (c *MemberListCmd) Run(ctx context.Context, globals *Globals) error {
	orgID, err := parseOptionalID("organization id", c.Org)
	if err != nil {
		return err
	}

	return withService(ctx, globals, func(s *session, principal *models.Principal) error {
		members, err := s.svc.ListMembers(ctx, principal, orgID)
		if err != nil {
			return fmt.Errorf("failed to list members: %w", err)
		}

		printMembers(globals.out(), members)
		return nil
	})
}

type MemberGetCmd struct {
	MemberID string `arg:"" help:"member ID"`
}

func (c *MemberGetCmd) Run(ctx context.Context, globals *Globals) error {
	memberID, err := parseID("member id", c.MemberID)
	if err != nil {
		return err
	}

	return withService(ctx, globals, func(s *session, principal *models.Principal) error {
		member, err := s.svc.GetMember(ctx, principal, memberID)
		if err != nil {
			return fmt.Errorf("failed to get member: %w", err)
		}

		printMembers(globals.out(), []*models.Member{member})
		return nil
	})
}

type MemberSetLevelCmd struct {
	MemberID string `arg:"" help:"member ID"`
	Level    int    `arg:"" help:"new permission level (100 is owner)"`
	NewOwner string `help:"principal ID taking over ownership when demoting the owner"`
}

func (c *MemberSetLevelCmd) Run(ctx context.Context, globals *Globals) error {
	memberID, err := parseID("member id", c.MemberID)
	if err != nil {
		return err
	}

	var newOwner *uuid.UUID
	if c.NewOwner != "" {
		id, err := parseID("new owner id", c.NewOwner)
		if err != nil {
			return err
		}
		newOwner = &id
	}

	return withService(ctx, globals, func(s *session, principal *models.Principal) error {
		member, err := s.svc.UpdateMemberPermission(ctx, principal, memberID, models.PermissionLevel(c.Level), newOwner)
		if err != nil {
			return fmt.Errorf("failed to update member: %w", err)
		}

		printMembers(globals.out(), []*models.Member{member})
		return nil
	})
}
