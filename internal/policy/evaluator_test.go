package policy

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/orgs/internal/models"
	"github.com/wolfeidau/orgs/internal/store"
)

type fakeMembers struct {
	levels map[uuid.UUID]models.PermissionLevel
	err    error
	calls  int
}

func (f *fakeMembers) GetByPrincipal(ctx context.Context, orgID, principalID uuid.UUID) (*models.Member, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	level, ok := f.levels[principalID]
	if !ok {
		return nil, store.ErrMemberNotFound
	}
	return &models.Member{OrgID: orgID, PrincipalID: principalID, PermissionLevel: level}, nil
}

func TestEvaluator_Decide(t *testing.T) {
	orgID := uuid.New()
	owner := uuid.New()
	admin := uuid.New()
	member := uuid.New()
	stranger := uuid.New()

	members := &fakeMembers{levels: map[uuid.UUID]models.PermissionLevel{
		owner:  models.PermissionLevelOwner,
		admin:  10,
		member: 1,
	}}
	evaluator := NewEvaluator(members)

	statement := `{"version":1,"statement":{"create_invitation":10,"get_member":"1","get_organization":0,"delete_organization":"100"}}`

	tests := []struct {
		name      string
		policy    string
		action    Action
		principal uuid.UUID
		want      Decision
	}{
		{"v0 owner allowed", `{"version":0}`, ActionCreateInvitation, owner, Allowed},
		{"v0 non-owner denied", `{"version":0}`, ActionCreateInvitation, admin, Denied},
		{"v0 stranger denied", `{"version":0}`, ActionGetOrganization, stranger, Denied},
		{"v0 float version", `{"version":0.0}`, ActionGetOrganization, owner, Allowed},
		{"v0 statement ignored", `{"version":0,"statement":{"get_organization":0}}`, ActionGetOrganization, admin, Denied},
		{"v1 absent action open", statement, ActionCancelInvitation, stranger, Allowed},
		{"v1 zero level open", statement, ActionGetOrganization, stranger, Allowed},
		{"v1 level met", statement, ActionCreateInvitation, admin, Allowed},
		{"v1 level exceeded", statement, ActionCreateInvitation, owner, Allowed},
		{"v1 level not met", statement, ActionCreateInvitation, member, Denied},
		{"v1 string level met", statement, ActionGetMember, member, Allowed},
		{"v1 string level stranger", statement, ActionGetMember, stranger, Denied},
		{"v1 owner only action", statement, ActionDeleteOrganization, admin, Denied},
		{"v1 integral float version", `{"version":1.0}`, ActionDeleteOrganization, stranger, Allowed},
		{"v2 denies owner", `{"version":2}`, ActionGetOrganization, owner, Denied},
		{"negative version denies", `{"version":-1,"statement":{}}`, ActionGetOrganization, owner, Denied},
		{"fractional version denies", `{"version":1.5}`, ActionGetOrganization, owner, Denied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evaluator.Decide(context.Background(), json.RawMessage(tt.policy), tt.action, orgID, tt.principal)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluator_OpenActionsSkipLookup(t *testing.T) {
	members := &fakeMembers{err: errors.New("lookup must not run")}
	evaluator := NewEvaluator(members)

	for _, policy := range []string{
		`{"version":1}`,
		`{"version":1,"statement":{"get_organization":0}}`,
		`{"version":7}`,
	} {
		_, err := evaluator.Decide(context.Background(), json.RawMessage(policy), ActionGetOrganization, uuid.New(), uuid.New())
		require.NoError(t, err)
	}
	require.Zero(t, members.calls)
}

func TestEvaluator_Authorize(t *testing.T) {
	owner := uuid.New()
	evaluator := NewEvaluator(&fakeMembers{levels: map[uuid.UUID]models.PermissionLevel{
		owner: models.PermissionLevelOwner,
	}})
	ctx := context.Background()

	t.Run("allowed", func(t *testing.T) {
		err := evaluator.Authorize(ctx, DefaultDocument, ActionDeleteOrganization, uuid.New(), owner)
		require.NoError(t, err)
	})

	t.Run("denied", func(t *testing.T) {
		err := evaluator.Authorize(ctx, DefaultDocument, ActionDeleteOrganization, uuid.New(), uuid.New())
		require.ErrorIs(t, err, ErrPermissionDenied)
		require.Contains(t, err.Error(), "delete_organization")
	})

	t.Run("invalid policy", func(t *testing.T) {
		err := evaluator.Authorize(ctx, json.RawMessage(`{"statement":{}}`), ActionDeleteOrganization, uuid.New(), owner)
		require.ErrorIs(t, err, ErrInvalidPolicy)
		require.NotErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("lookup failure", func(t *testing.T) {
		boom := errors.New("boom")
		evaluator := NewEvaluator(&fakeMembers{err: boom})
		err := evaluator.Authorize(ctx, DefaultDocument, ActionDeleteOrganization, uuid.New(), owner)
		require.ErrorIs(t, err, boom)
	})
}

func TestParse(t *testing.T) {
	t.Run("valid documents", func(t *testing.T) {
		for _, raw := range []string{
			`{"version":0}`,
			`{"version":1,"statement":{}}`,
			`{"version":1,"statement":{"create_invitation":5,"get_member":"3"}}`,
			`{"version":3,"extra":true}`,
		} {
			_, err := Parse(json.RawMessage(raw))
			require.NoError(t, err, raw)
		}
	})

	t.Run("statement levels", func(t *testing.T) {
		doc, err := Parse(json.RawMessage(`{"version":1,"statement":{"create_invitation":5,"get_member":" 3 "}}`))
		require.NoError(t, err)
		require.Equal(t, models.PermissionLevel(5), doc.Statement["create_invitation"])
		require.Equal(t, models.PermissionLevel(3), doc.Statement["get_member"])
	})

	invalid := []struct {
		name string
		raw  string
	}{
		{"empty", ``},
		{"not json", `{version`},
		{"not an object", `[1]`},
		{"missing version", `{"statement":{}}`},
		{"string version", `{"version":"1"}`},
		{"statement not object", `{"version":1,"statement":[]}`},
		{"boolean level", `{"version":1,"statement":{"get_member":true}}`},
		{"null level", `{"version":1,"statement":{"get_member":null}}`},
		{"non numeric string level", `{"version":1,"statement":{"get_member":"admin"}}`},
		{"negative level", `{"version":1,"statement":{"get_member":-1}}`},
		{"fractional level", `{"version":1,"statement":{"get_member":1.5}}`},
	}

	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(json.RawMessage(tt.raw))
			require.ErrorIs(t, err, ErrInvalidPolicy)
			require.ErrorIs(t, Validate(json.RawMessage(tt.raw)), ErrInvalidPolicy)
		})
	}
}
