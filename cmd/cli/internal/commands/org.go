package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/wolfeidau/orgs/internal/models"
)

// OrgCmd groups organization commands.
type OrgCmd struct {
	Create   OrgCreateCmd   `cmd:"" help:"Create an organization owned by the acting principal"`
	Get      OrgGetCmd      `cmd:"" help:"Show an organization"`
	List     OrgListCmd     `cmd:"" help:"List organizations the acting principal belongs to"`
	Children OrgChildrenCmd `cmd:"" help:"List direct sub-organizations"`
	Move     OrgMoveCmd     `cmd:"" help:"Move an organization under a new parent or to the top level"`
	Delete   OrgDeleteCmd   `cmd:"" help:"Delete an organization with its members and invitations"`
}

type OrgCreateCmd struct {
	Parent string `help:"parent organization ID; creates a sub-organization"`
}

func (c *OrgCreateCmd) Run(ctx context.Context, globals *Globals) error {
	parentID, err := parseOptionalID("parent organization id", c.Parent)
	if err != nil {
		return err
	}

	return withService(ctx, globals, func(s *session, principal *models.Principal) error {
		var (
			org *models.Organization
			err error
		)
		if parentID == uuid.Nil {
			org, err = s.svc.CreateOrganization(ctx, principal)
		} else {
			org, err = s.svc.CreateSubOrganization(ctx, principal, parentID)
		}
		if err != nil {
			return fmt.Errorf("failed to create organization: %w", err)
		}

		fmt.Fprintf(globals.out(), "Created organization %s\n", org.OrgID)
		return nil
	})
}

type OrgGetCmd struct {
	OrgID string `arg:"" help:"organization ID"`
}

func (c *OrgGetCmd) Run(ctx context.Context, globals *Globals) error {
	orgID, err := parseID("organization id", c.OrgID)
	if err != nil {
		return err
	}

	return withService(ctx, globals, func(s *session, principal *models.Principal) error {
		org, err := s.svc.GetOrganization(ctx, principal, orgID)
		if err != nil {
			return fmt.Errorf("failed to get organization: %w", err)
		}

		printOrganization(globals.out(), org)
		return nil
	})
}

type OrgListCmd struct{}

func (c *OrgListCmd) Run(ctx context.Context, globals *Globals) error {
	return withService(ctx, globals, func(s *session, principal *models.Principal) error {
		orgList, err := s.svc.ListOrganizations(ctx, principal)
		if err != nil {
			return fmt.Errorf("failed to list organizations: %w", err)
		}

		printOrganizations(globals.out(), orgList)
		return nil
	})
}

type OrgChildrenCmd struct {
	OrgID string `arg:"" help:"organization ID"`
}

func (c *OrgChildrenCmd) Run(ctx context.Context, globals *Globals) error {
	orgID, err := parseID("organization id", c.OrgID)
	if err != nil {
		return err
	}

	return withService(ctx, globals, func(s *session, principal *models.Principal) error {
		children, err := s.svc.ListSubOrganizations(ctx, principal, orgID)
		if err != nil {
			return fmt.Errorf("failed to list sub-organizations: %w", err)
		}

		printOrganizations(globals.out(), children)
		return nil
	})
}

type OrgMoveCmd struct {
	OrgID  string `arg:"" help:"organization ID"`
	Parent string `help:"new parent organization ID" xor:"target"`
	Detach bool   `help:"move the organization to the top level" xor:"target"`
}

func (c *OrgMoveCmd) Run(ctx context.Context, globals *Globals) error {
	orgID, err := parseID("organization id", c.OrgID)
	if err != nil {
		return err
	}

	var parent models.Field[uuid.UUID]
	switch {
	case c.Detach:
		parent = models.Null[uuid.UUID]()
	case c.Parent != "":
		parentID, err := parseID("parent organization id", c.Parent)
		if err != nil {
			return err
		}
		parent = models.Set(parentID)
	default:
		return errors.New("one of --parent or --detach is required")
	}

	return withService(ctx, globals, func(s *session, principal *models.Principal) error {
		org, err := s.svc.MoveOrganization(ctx, principal, orgID, parent)
		if err != nil {
			return fmt.Errorf("failed to move organization: %w", err)
		}

		printOrganization(globals.out(), org)
		return nil
	})
}

type OrgDeleteCmd struct {
	OrgID string `arg:"" help:"organization ID"`
}

func (c *OrgDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	orgID, err := parseID("organization id", c.OrgID)
	if err != nil {
		return err
	}

	return withService(ctx, globals, func(s *session, principal *models.Principal) error {
		if err := s.svc.DeleteOrganization(ctx, principal, orgID); err != nil {
			return fmt.Errorf("failed to delete organization: %w", err)
		}

		fmt.Fprintf(globals.out(), "Deleted organization %s\n", orgID)
		return nil
	})
}
