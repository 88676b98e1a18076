package user_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/groupbuy-service/internal/apperror"
	"github.com/vasiliy-maslov/groupbuy-service/internal/user"
)

// testDB expects the schema to be migrated already; the order package tests
// apply migrations against the same TEST_DATABASE_URL.
var testDB *pgxpool.Pool

func TestMain(m *testing.M) {
	if url := os.Getenv("TEST_DATABASE_URL"); url != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pool, err := pgxpool.New(ctx, url)
		if err == nil {
			err = pool.Ping(ctx)
		}
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to test database")
		}
		testDB = pool
	}

	code := m.Run()
	if testDB != nil {
		testDB.Close()
	}
	os.Exit(code)
}

func truncateUsersTable(tb testing.TB) {
	tb.Helper()
	_, err := testDB.Exec(context.Background(), "TRUNCATE TABLE users CASCADE")
	require.NoError(tb, err, "failed to truncate users table")
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	if testDB == nil {
		t.Skip("TEST_DATABASE_URL is not set")
	}
	truncateUsersTable(t)
	t.Cleanup(func() { truncateUsersTable(t) })

	repo := user.NewRepository(testDB)
	ctx := context.Background()

	u := &user.User{Name: "Test User", Email: "test.create@example.com", PasswordHash: "hashed_password"}
	require.NoError(t, repo.Create(ctx, u))
	require.NotEqual(t, uuid.Nil, u.ID)

	byID, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, byID.Email)
	assert.False(t, byID.IsAdmin)

	byEmail, err := repo.GetByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	err = repo.Create(ctx, &user.User{Name: "Other", Email: u.Email, PasswordHash: "x"})
	assert.ErrorIs(t, err, user.ErrEmailExists)
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = repo.GetByID(ctx, uuid.Must(uuid.NewV4()))
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
