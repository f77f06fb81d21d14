package sessions

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDatabase(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithInitScripts(filepath.Join("../../migrations", "ticket_sessions.sql")),
		postgres.WithDatabase("portal_db"),
		postgres.WithUsername("portal"),
		postgres.WithPassword("pwd"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	require.NoError(t, err)

	connString, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	poolConfig, err := pgxpool.ParseConfig(connString)
	require.NoError(t, err)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	require.NoError(t, err)

	t.Cleanup(func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return pool
}

func TestPostgresRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresRepository(setupTestDatabase(t))

	session, err := repo.Record(ctx, RecordSessionRequest{
		TicketID:  "t-1",
		SSOID:     "sso-1",
		Email:     "u@example.com",
		UserType:  "New",
		Merchant:  "ET",
		Platform:  "WEB",
		IPAddress: "10.0.0.1",
	})
	require.NoError(t, err)
	assert.Equal(t, "t-1", session.TicketID)
	assert.Nil(t, session.RevokedAt)

	// recording the same ticket refreshes instead of duplicating
	again, err := repo.Record(ctx, RecordSessionRequest{
		TicketID: "t-1",
		SSOID:    "sso-1",
		UserType: "Paid",
	})
	require.NoError(t, err)
	assert.Equal(t, session.ID, again.ID)
	assert.Equal(t, "Paid", again.UserType)

	count, err := repo.CountActiveBySSOID(ctx, "sso-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, repo.Touch(ctx, "t-1"))
	require.NoError(t, repo.UpdateUserType(ctx, "t-1", "trial"))

	got, err := repo.GetByTicketID(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, "trial", got.UserType)

	require.NoError(t, repo.Revoke(ctx, "t-1"))
	revoked, err := repo.IsRevoked(ctx, "t-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	active, err := repo.ListActiveBySSOID(ctx, "sso-1")
	require.NoError(t, err)
	assert.Empty(t, active)

	require.NoError(t, repo.DeleteOldRevoked(ctx, time.Now().Add(time.Minute)))
	_, err = repo.GetByTicketID(ctx, "t-1")
	assert.Error(t, err)
}

func TestPostgresRepositoryRevokeAll(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresRepository(setupTestDatabase(t))

	for _, ticket := range []string{"t-1", "t-2", "t-3"} {
		_, err := repo.Record(ctx, RecordSessionRequest{TicketID: ticket, SSOID: "sso-1"})
		require.NoError(t, err)
	}
	_, err := repo.Record(ctx, RecordSessionRequest{TicketID: "t-other", SSOID: "sso-2"})
	require.NoError(t, err)

	require.NoError(t, repo.RevokeAllBySSOID(ctx, "sso-1"))

	count, err := repo.CountActiveBySSOID(ctx, "sso-1")
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = repo.CountActiveBySSOID(ctx, "sso-2")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
