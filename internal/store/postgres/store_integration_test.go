//go:build integration

package postgres

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/wolfeidau/orgs/internal/models"
	"github.com/wolfeidau/orgs/internal/store"
	"github.com/wolfeidau/orgs/internal/store/storetest"
)

func setupPostgresContainer(t *testing.T, ctx context.Context) (*DB, func()) {
	// Start postgres container
	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connString := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	// Create backend with auto-migrate enabled
	db, err := Open(ctx, &Config{
		Pool:        PoolConfig{ConnString: connString},
		AutoMigrate: true, // Enable migrations for tests
	})
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		_ = container.Terminate(ctx)
	}

	return db, cleanup
}

func TestIntegration_Stores(t *testing.T) {
	ctx := context.Background()
	db, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	// Re-running migrations is a no-op
	require.NoError(t, db.Migrate(ctx))

	storetest.Run(t, func(t *testing.T) store.Stores {
		return db.Stores()
	})
}

func TestIntegration_ConcurrentOwnershipTransfer(t *testing.T) {
	ctx := context.Background()
	db, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	s := db.Stores()
	now := time.Now().UTC()

	newPrincipal := func(email string) *models.Principal {
		p := &models.Principal{PrincipalID: uuid.Must(uuid.NewV7()), Email: email}
		require.NoError(t, s.Principals.Upsert(ctx, p))
		return p
	}

	a := newPrincipal("a@example.com")
	b := newPrincipal("b@example.com")
	c := newPrincipal("c@example.com")

	org := &models.Organization{
		OrgID:             uuid.Must(uuid.NewV7()),
		OwnerPrincipalID:  a.PrincipalID,
		PermissionsPolicy: []byte(`{"version":0}`),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	founder := &models.Member{
		MemberID:        uuid.Must(uuid.NewV7()),
		OrgID:           org.OrgID,
		PrincipalID:     a.PrincipalID,
		PermissionLevel: models.PermissionLevelOwner,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, s.Organizations.Create(ctx, org, founder))

	for _, p := range []*models.Principal{b, c} {
		require.NoError(t, s.Members.Create(ctx, &models.Member{
			MemberID:        uuid.Must(uuid.NewV7()),
			OrgID:           org.OrgID,
			PrincipalID:     p.PrincipalID,
			PermissionLevel: models.PermissionLevelOwner,
			CreatedAt:       now,
			UpdatedAt:       now,
		}))
	}

	// Two concurrent demotions of the owner, each naming a different successor.
	// Exactly one transfer wins; the loser sees the owner has already moved and
	// applies a plain level change to a non-owner member.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	transfers := make([]bool, 2)
	for i, successor := range []*models.Principal{b, c} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, transfers[i], errs[i] = s.Members.UpdatePermission(ctx, founder.MemberID, models.PermissionLevel(3+i), &successor.PrincipalID)
		}()
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.NotEqual(t, transfers[0], transfers[1], "exactly one call transfers ownership")

	got, err := s.Organizations.Get(ctx, org.OrgID)
	require.NoError(t, err)
	require.Contains(t, []uuid.UUID{b.PrincipalID, c.PrincipalID}, got.OwnerPrincipalID)

	owner, err := s.Members.GetByPrincipal(ctx, org.OrgID, got.OwnerPrincipalID)
	require.NoError(t, err)
	require.Equal(t, models.PermissionLevelOwner, owner.PermissionLevel)
}
