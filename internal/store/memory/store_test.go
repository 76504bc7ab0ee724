package memory

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/orgs/internal/models"
	"github.com/wolfeidau/orgs/internal/store"
	"github.com/wolfeidau/orgs/internal/store/storetest"
)

func TestStores(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Stores {
		return New()
	})
}

func TestOrganizationStore_ClonesOnReadAndWrite(t *testing.T) {
	ctx := context.Background()
	s := New()

	owner := &models.Principal{PrincipalID: uuid.New(), Email: "owner@example.com"}
	require.NoError(t, s.Principals.Upsert(ctx, owner))

	org := &models.Organization{
		OrgID:             uuid.New(),
		OwnerPrincipalID:  owner.PrincipalID,
		PermissionsPolicy: json.RawMessage(`{"version":0}`),
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}
	member := &models.Member{
		MemberID:        uuid.New(),
		OrgID:           org.OrgID,
		PrincipalID:     owner.PrincipalID,
		PermissionLevel: models.PermissionLevelOwner,
	}
	require.NoError(t, s.Organizations.Create(ctx, org, member))

	// Mutating the caller's copy must not leak into the store
	org.PermissionsPolicy[1] = 'X'
	member.PermissionLevel = 1

	got, err := s.Organizations.Get(ctx, org.OrgID)
	require.NoError(t, err)
	require.JSONEq(t, `{"version":0}`, string(got.PermissionsPolicy))

	got.PermissionsPolicy = json.RawMessage(`{"version":2}`)
	again, err := s.Organizations.Get(ctx, org.OrgID)
	require.NoError(t, err)
	require.JSONEq(t, `{"version":0}`, string(again.PermissionsPolicy))

	m, err := s.Members.Get(ctx, member.MemberID)
	require.NoError(t, err)
	require.Equal(t, models.PermissionLevelOwner, m.PermissionLevel)
}
