package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// actor returns Globals for a principal backed by the shared test store.
type actor struct {
	id     uuid.UUID
	email  string
	dir    string
	stdout *bytes.Buffer
}

func newActor(t *testing.T, dir, email string) *actor {
	t.Helper()
	return &actor{id: uuid.New(), email: email, dir: dir, stdout: &bytes.Buffer{}}
}

func (a *actor) globals() *Globals {
	a.stdout.Reset()
	return &Globals{
		EnvFile: filepath.Join(a.dir, "missing.env"),
		AsID:    a.id.String(),
		AsEmail: a.email,
		Stdout:  a.stdout,
	}
}

func setupStore(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ORGS_STORE_TYPE", "sqlite")
	t.Setenv("ORGS_SQLITE_PATH", filepath.Join(dir, "orgs.db"))
	return dir
}

// lastField returns the final whitespace separated field of out.
func lastField(t *testing.T, out string) string {
	t.Helper()
	fields := strings.Fields(out)
	require.NotEmpty(t, fields)
	return fields[len(fields)-1]
}

func TestInvitationFlow(t *testing.T) {
	ctx := context.Background()
	dir := setupStore(t)

	alice := newActor(t, dir, "alice@example.com")
	bob := newActor(t, dir, "bob@example.com")

	require.NoError(t, (&OrgCreateCmd{}).Run(ctx, alice.globals()))
	require.Contains(t, alice.stdout.String(), "Created organization ")
	orgID := lastField(t, alice.stdout.String())

	require.NoError(t, (&OrgGetCmd{OrgID: orgID}).Run(ctx, alice.globals()))
	require.Contains(t, alice.stdout.String(), "Organization: "+orgID)
	require.Contains(t, alice.stdout.String(), "Owner:        "+alice.id.String())

	require.NoError(t, (&InviteCreateCmd{OrgID: orgID, Email: "Bob@Example.com", Level: 1}).Run(ctx, alice.globals()))
	require.Contains(t, alice.stdout.String(), "Created invitation ")
	invitationID := lastField(t, alice.stdout.String())

	require.NoError(t, (&InviteListCmd{}).Run(ctx, bob.globals()))
	require.Contains(t, bob.stdout.String(), invitationID)
	require.Contains(t, bob.stdout.String(), "bob@example.com")

	require.NoError(t, (&InviteAcceptCmd{InvitationID: invitationID}).Run(ctx, bob.globals()))
	require.Contains(t, bob.stdout.String(), "Joined organization "+orgID)

	require.NoError(t, (&MemberListCmd{Org: orgID}).Run(ctx, alice.globals()))
	require.Contains(t, alice.stdout.String(), bob.id.String())
	require.Contains(t, alice.stdout.String(), alice.id.String())

	require.NoError(t, (&OrgListCmd{}).Run(ctx, bob.globals()))
	require.Contains(t, bob.stdout.String(), orgID)

	// the accepted invitation is no longer visible
	err := (&InviteGetCmd{InvitationID: invitationID}).Run(ctx, alice.globals())
	require.ErrorContains(t, err, "not found")

	sweeper := newActor(t, dir, "")
	require.NoError(t, (&SweepCmd{}).Run(ctx, sweeper.globals()))
	require.Equal(t, "Expired 0 invitation(s)\n", sweeper.stdout.String())
}

func TestSubOrganizationCommands(t *testing.T) {
	ctx := context.Background()
	dir := setupStore(t)

	alice := newActor(t, dir, "alice@example.com")

	require.NoError(t, (&OrgCreateCmd{}).Run(ctx, alice.globals()))
	parentID := lastField(t, alice.stdout.String())

	require.NoError(t, (&OrgCreateCmd{Parent: parentID}).Run(ctx, alice.globals()))
	childID := lastField(t, alice.stdout.String())

	require.NoError(t, (&OrgChildrenCmd{OrgID: parentID}).Run(ctx, alice.globals()))
	require.Contains(t, alice.stdout.String(), childID)

	err := (&OrgDeleteCmd{OrgID: parentID}).Run(ctx, alice.globals())
	require.Error(t, err)

	require.NoError(t, (&OrgMoveCmd{OrgID: childID, Detach: true}).Run(ctx, alice.globals()))
	require.NotContains(t, alice.stdout.String(), "Parent:")

	require.NoError(t, (&OrgDeleteCmd{OrgID: parentID}).Run(ctx, alice.globals()))
	require.Equal(t, "Deleted organization "+parentID+"\n", alice.stdout.String())

	err = (&OrgMoveCmd{OrgID: childID}).Run(ctx, alice.globals())
	require.ErrorContains(t, err, "--parent or --detach")
}

func TestDeclineAndCancel(t *testing.T) {
	ctx := context.Background()
	dir := setupStore(t)

	alice := newActor(t, dir, "alice@example.com")
	bob := newActor(t, dir, "bob@example.com")

	require.NoError(t, (&OrgCreateCmd{}).Run(ctx, alice.globals()))
	orgID := lastField(t, alice.stdout.String())

	require.NoError(t, (&InviteCreateCmd{OrgID: orgID, Email: bob.email, Level: 1}).Run(ctx, alice.globals()))
	first := lastField(t, alice.stdout.String())

	err := (&InviteCreateCmd{OrgID: orgID, Email: bob.email, Level: 1}).Run(ctx, alice.globals())
	require.ErrorContains(t, err, "already invited")

	require.NoError(t, (&InviteDeclineCmd{InvitationID: first}).Run(ctx, bob.globals()))
	require.Equal(t, "Invitation "+first+" is declined\n", bob.stdout.String())

	require.NoError(t, (&InviteCreateCmd{OrgID: orgID, Email: bob.email, Level: 1}).Run(ctx, alice.globals()))
	second := lastField(t, alice.stdout.String())

	require.NoError(t, (&InviteSetLevelCmd{InvitationID: second, Level: 50}).Run(ctx, alice.globals()))
	require.Contains(t, alice.stdout.String(), "50")

	require.NoError(t, (&InviteCancelCmd{InvitationID: second}).Run(ctx, alice.globals()))
	require.Equal(t, "Invitation "+second+" is canceled\n", alice.stdout.String())
}

func TestPrincipalFlagsRequired(t *testing.T) {
	ctx := context.Background()
	setupStore(t)

	err := (&OrgListCmd{}).Run(ctx, &Globals{Stdout: &bytes.Buffer{}})
	require.ErrorContains(t, err, "--as-id and --as-email are required")

	err = (&OrgListCmd{}).Run(ctx, &Globals{AsID: "nope", AsEmail: "a@example.com", Stdout: &bytes.Buffer{}})
	require.ErrorContains(t, err, "invalid --as-id")
}

func TestLoadPolicyDocument(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    string
		wantErr string
	}{
		{
			name:    "yaml",
			content: "version: 1\nstatement:\n  get_member: 1\n",
			want:    `{"statement":{"get_member":1},"version":1}`,
		},
		{
			name:    "json",
			content: `{"version": 0}`,
			want:    `{"version":0}`,
		},
		{
			name:    "empty",
			content: "",
			wantErr: "is empty",
		},
		{
			name:    "malformed",
			content: "version: [1\n",
			wantErr: "failed to parse policy file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			raw, err := loadPolicyDocument(path)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.JSONEq(t, tt.want, string(raw))
		})
	}
}
