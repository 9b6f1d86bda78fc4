package repository_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/spec-kit/session-service/internal/domain"
	"github.com/spec-kit/session-service/internal/persistence"
	"github.com/spec-kit/session-service/internal/repository"
)

// Run with GO_TEST_INTEGRATION=1; needs a Docker daemon.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_USER": "user", "POSTGRES_PASSWORD": "pass", "POSTGRES_DB": "sessions"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	dsn := fmt.Sprintf("postgres://user:pass@%s:%s/sessions?sslmode=disable", host, port.Port())

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, persistence.RunMigrations(ctx, pool, zap.NewNop()))
	return pool
}

func createUser(t *testing.T, users repository.UserRepository, email string) *domain.User {
	t.Helper()
	u := &domain.User{Email: email, Name: "Test", PasswordHash: "hash"}
	require.NoError(t, users.Create(context.Background(), u))
	require.NotEmpty(t, u.ID)
	return u
}

func TestIntegration_Users_UniqueEmailAndLookups(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()
	users := repository.NewUserRepository(pool)

	u := createUser(t, users, "a@x.com")

	err := users.Create(ctx, &domain.User{Email: "a@x.com", PasswordHash: "other"})
	require.ErrorIs(t, err, repository.ErrAlreadyExists)

	got, err := users.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.True(t, got.HasPassword())

	_, err = users.GetByEmail(ctx, "missing@x.com")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestIntegration_Users_LinkGoogleDropsUnverifiedPassword(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()
	users := repository.NewUserRepository(pool)

	u := createUser(t, users, "a@x.com")
	require.NoError(t, users.LinkGoogle(ctx, u.ID, "google-sub"))

	got, err := users.GetByGoogleID(ctx, "google-sub")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.True(t, got.EmailVerified)
	require.False(t, got.HasPassword())

	require.ErrorIs(t, users.LinkGoogle(ctx, "00000000-0000-0000-0000-000000000000", "x"), repository.ErrNotFound)
}

func TestIntegration_RefreshSessions_RevokeOnce(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()
	u := createUser(t, repository.NewUserRepository(pool), "a@x.com")
	sessions := repository.NewRefreshSessionRepository(pool)

	s := &domain.RefreshSession{UserID: u.ID, TokenHash: "hash-1", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, sessions.Create(ctx, s))
	require.NotEmpty(t, s.ID)

	require.ErrorIs(t, sessions.Create(ctx, &domain.RefreshSession{UserID: u.ID, TokenHash: "hash-1", ExpiresAt: time.Now().Add(time.Hour)}),
		repository.ErrAlreadyExists)

	revoked, err := sessions.Revoke(ctx, "hash-1")
	require.NoError(t, err)
	require.True(t, revoked)

	revoked, err = sessions.Revoke(ctx, "hash-1")
	require.NoError(t, err)
	require.False(t, revoked)

	revoked, err = sessions.Revoke(ctx, "unknown")
	require.NoError(t, err)
	require.False(t, revoked)

	got, err := sessions.GetByHash(ctx, "hash-1")
	require.NoError(t, err)
	require.True(t, got.Revoked())

	_, err = sessions.GetByHash(ctx, "unknown")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestIntegration_RefreshSessions_DeleteExpired(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()
	u := createUser(t, repository.NewUserRepository(pool), "a@x.com")
	sessions := repository.NewRefreshSessionRepository(pool)

	now := time.Now().UTC()
	require.NoError(t, sessions.Create(ctx, &domain.RefreshSession{UserID: u.ID, TokenHash: "old", ExpiresAt: now.Add(-time.Hour)}))
	require.NoError(t, sessions.Create(ctx, &domain.RefreshSession{UserID: u.ID, TokenHash: "live", ExpiresAt: now.Add(time.Hour)}))

	deleted, err := sessions.DeleteExpired(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	_, err = sessions.GetByHash(ctx, "old")
	require.ErrorIs(t, err, repository.ErrNotFound)
	_, err = sessions.GetByHash(ctx, "live")
	require.NoError(t, err)

	deleted, err = sessions.DeleteExpired(ctx, now)
	require.NoError(t, err)
	require.Zero(t, deleted)
}
