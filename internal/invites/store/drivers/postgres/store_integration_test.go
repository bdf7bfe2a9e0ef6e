package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aussiebroadwan/invitetracker/internal/invites/store"
	"github.com/aussiebroadwan/invitetracker/internal/invites/store/drivers/postgres"
	"github.com/aussiebroadwan/invitetracker/internal/invites/store/storetest"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgresContainer starts a throwaway PostgreSQL and returns its DSN.
func setupPostgresContainer(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "invites",
				"POSTGRES_PASSWORD": "invites",
				"POSTGRES_DB":       "invites",
			},
			// Postgres restarts once after initdb, so wait for the second banner.
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://invites:invites@%s:%s/invites?sslmode=disable", host, port.Port())
}

func TestPostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	dsn := setupPostgresContainer(t)

	storetest.Run(t, func(t *testing.T) store.Store {
		t.Helper()
		ctx := context.Background()

		st, err := postgres.NewStore(ctx, dsn)
		require.NoError(t, err)
		t.Cleanup(func() { _ = st.Close() })

		// Subtests share one database, so start each from empty tables.
		require.NoError(t, st.ApplyMigrations(ctx))
		require.NoError(t, st.Truncate(ctx))
		return st
	})
}
