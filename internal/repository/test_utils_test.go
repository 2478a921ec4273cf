package repository_test

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/SaiWorkProfile/manortha-website/pkg/postgres"
)

var (
	testDB     *pgxpool.Pool
	testDBErr  error
	testDBOnce sync.Once
)

func SetupTestDatabase(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN is not set")
	}

	testDBOnce.Do(func() {
		testDBErr = postgres.UpMigrations(dsn)
		if testDBErr != nil {
			return
		}

		testDB, testDBErr = pgxpool.New(context.Background(), dsn)
	})
	require.NoError(t, testDBErr)

	CleanupDatabase(t, testDB)

	return testDB
}

func CleanupDatabase(t *testing.T, db *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	for _, table := range []string{"verification_attempts", "sessions"} {
		_, err := db.Exec(ctx, "DELETE FROM "+table)
		if err != nil {
			t.Logf("Warning: failed to cleanup table %s: %v", table, err)
		}
	}
}
