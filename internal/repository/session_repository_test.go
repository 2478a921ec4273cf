package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/SaiWorkProfile/manortha-website/internal/entity"
	"github.com/SaiWorkProfile/manortha-website/internal/repository"
)

func TestSessionRepository(t *testing.T) {
	db := SetupTestDatabase(t)
	repo := repository.NewSessionRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	s := entity.NewSession(uuid.Must(uuid.NewV4()), now)

	require.NoError(t, repo.SaveSession(ctx, s))

	s.PendingRole = entity.RoleFinance
	s.VerificationInProgress = true
	s.UpdatedAt = now.Add(time.Minute)
	require.NoError(t, repo.SaveSession(ctx, s))

	got, err := repo.SessionByID(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, entity.RoleFinance, got.PendingRole)
	require.True(t, got.VerificationInProgress)
	require.Equal(t, entity.ScreenWebsite, got.ActiveScreenID)
	require.True(t, s.UpdatedAt.Equal(got.UpdatedAt))

	n, err := repo.DeleteExpiredSessions(ctx, now.Add(2*time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = repo.SessionByID(ctx, s.ID)
	require.ErrorIs(t, err, entity.ErrNotFound)
}

func TestAttemptRepository(t *testing.T) {
	db := SetupTestDatabase(t)
	repo := repository.NewAttemptRepository(db)
	ctx := context.Background()

	sessionID := uuid.Must(uuid.NewV4())
	start := time.Now().Add(-time.Minute)

	for i, success := range []bool{false, false, true} {
		require.NoError(t, repo.SaveAttempt(ctx, entity.Attempt{
			ID:        uuid.Must(uuid.NewV4()),
			SessionID: sessionID,
			Role:      entity.RoleSales,
			Step:      entity.AttemptStepChallenge,
			Success:   success,
			IPAddress: "127.0.0.1",
			CreatedAt: start.Add(time.Duration(i) * time.Second),
		}))
	}

	count, err := repo.CountFailures(ctx, sessionID, entity.AttemptStepChallenge, start.Add(-time.Second))
	require.NoError(t, err)
	require.Equal(t, 2, count)

	attempts, err := repo.AttemptsBySession(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, attempts, 3)
	require.True(t, attempts[2].Success)
}
