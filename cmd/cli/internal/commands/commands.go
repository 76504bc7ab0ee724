package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wolfeidau/orgs/internal/config"
	"github.com/wolfeidau/orgs/internal/logger"
	"github.com/wolfeidau/orgs/internal/models"
	"github.com/wolfeidau/orgs/internal/orgs"
	"github.com/wolfeidau/orgs/internal/storage"
)

type Globals struct {
	Debug   bool
	Version string
	EnvFile string

	// AsID and AsEmail identify the acting principal. The operator vouches for it.
	AsID    string
	AsEmail string

	// Stdout receives command output; nil means os.Stdout.
	Stdout io.Writer
}

func (g *Globals) out() io.Writer {
	if g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

// principal builds the acting principal from the --as-id and --as-email flags.
func (g *Globals) principal() (*models.Principal, error) {
	if g.AsID == "" || g.AsEmail == "" {
		return nil, errors.New("--as-id and --as-email are required")
	}

	id, err := uuid.Parse(g.AsID)
	if err != nil {
		return nil, fmt.Errorf("invalid --as-id: %w", err)
	}

	return &models.Principal{
		PrincipalID:   id,
		Email:         g.AsEmail,
		Authenticated: true,
	}, nil
}

// session is an open store plus the service over it.
type session struct {
	cfg     *config.Config
	backend *storage.Backend
	svc     *orgs.Service
}

func openSession(ctx context.Context, globals *Globals) (*session, error) {
	log := logger.Setup(globals.Debug)
	if !globals.Debug {
		log = log.Level(zerolog.WarnLevel)
	}
	logger.Install(log)

	cfg, err := config.Load(globals.EnvFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	backend, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	return &session{
		cfg:     cfg,
		backend: backend,
		svc:     orgs.NewService(backend.Stores),
	}, nil
}

func (s *session) Close() {
	_ = s.backend.Close()
}

// withService opens a session for the acting principal and runs fn.
func withService(ctx context.Context, globals *Globals, fn func(s *session, principal *models.Principal) error) error {
	principal, err := globals.principal()
	if err != nil {
		return err
	}

	s, err := openSession(ctx, globals)
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(s, principal)
}

func parseID(label, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s %q: %w", label, value, err)
	}
	return id, nil
}

// parseOptionalID returns uuid.Nil for an empty value.
func parseOptionalID(label, value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, nil
	}
	return parseID(label, value)
}

const timeFormat = "2006-01-02 15:04:05"

func printOrganizations(w io.Writer, orgList []*models.Organization) {
	if len(orgList) == 0 {
		fmt.Fprintln(w, "No organizations found.")
		return
	}

	fmt.Fprintf(w, "%-36s %-36s %-36s %-20s\n", "Org ID", "Owner", "Parent", "Created At")
	fmt.Fprintln(w, strings.Repeat("─", 131))
	for _, org := range orgList {
		parent := "-"
		if org.SuperOrgID != nil {
			parent = org.SuperOrgID.String()
		}
		fmt.Fprintf(w, "%-36s %-36s %-36s %-20s\n",
			org.OrgID, org.OwnerPrincipalID, parent, org.CreatedAt.Local().Format(timeFormat))
	}
}

func printOrganization(w io.Writer, org *models.Organization) {
	fmt.Fprintf(w, "Organization: %s\n", org.OrgID)
	fmt.Fprintf(w, "Owner:        %s\n", org.OwnerPrincipalID)
	if org.SuperOrgID != nil {
		fmt.Fprintf(w, "Parent:       %s\n", org.SuperOrgID)
	}
	fmt.Fprintf(w, "Policy:       %s\n", org.PermissionsPolicy)
	fmt.Fprintf(w, "Created At:   %s\n", org.CreatedAt.Local().Format(timeFormat))
}

func printMembers(w io.Writer, members []*models.Member) {
	if len(members) == 0 {
		fmt.Fprintln(w, "No members found.")
		return
	}

	fmt.Fprintf(w, "%-36s %-36s %-36s %-6s %-20s\n", "Member ID", "Org ID", "Principal", "Level", "Created At")
	fmt.Fprintln(w, strings.Repeat("─", 138))
	for _, m := range members {
		fmt.Fprintf(w, "%-36s %-36s %-36s %-6d %-20s\n",
			m.MemberID, m.OrgID, m.PrincipalID, m.PermissionLevel, m.CreatedAt.Local().Format(timeFormat))
	}
}

func printInvitations(w io.Writer, invs []*models.Invitation) {
	if len(invs) == 0 {
		fmt.Fprintln(w, "No invitations found.")
		return
	}

	fmt.Fprintf(w, "%-36s %-36s %-30s %-6s %-10s %-20s\n", "Invitation ID", "Org ID", "Email", "Level", "Status", "Expires At")
	fmt.Fprintln(w, strings.Repeat("─", 143))
	for _, inv := range invs {
		fmt.Fprintf(w, "%-36s %-36s %-30s %-6d %-10s %-20s\n",
			inv.InvitationID, inv.OrgID, inv.Email, inv.PermissionLevel, inv.Status, inv.ExpiresAt.Local().Format(timeFormat))
	}
}
