package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SamSjosten/FitChallenge-sub003/internal/constants"
	"github.com/SamSjosten/FitChallenge-sub003/internal/testutil"
)

func TestHealthConnectionRepo_Lifecycle(t *testing.T) {
	db, _ := testutil.NewTestDB(t)
	repo := NewHealthConnectionRepo(db)
	ctx := context.Background()
	now := time.Date(2026, 4, 3, 8, 0, 0, 0, time.UTC)

	missing, err := repo.Get(ctx, testUserID, constants.ProviderMock)
	require.NoError(t, err)
	assert.Nil(t, missing)

	conn, err := repo.Connect(ctx, testUserID, constants.ProviderMock, []constants.PermissionTag{constants.PermissionSteps}, now)
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.True(t, conn.IsActive)
	assert.Equal(t, []constants.PermissionTag{constants.PermissionSteps}, []constants.PermissionTag(conn.PermissionsGranted))

	require.NoError(t, repo.TouchLastSync(ctx, testUserID, constants.ProviderMock, now.Add(time.Hour)))
	require.NoError(t, repo.Disconnect(ctx, testUserID, constants.ProviderMock, now.Add(2*time.Hour)))

	conn, err = repo.Get(ctx, testUserID, constants.ProviderMock)
	require.NoError(t, err)
	assert.False(t, conn.IsActive)
	require.NotNil(t, conn.DisconnectedAt)
	require.NotNil(t, conn.LastSyncAt)

	reconnected, err := repo.Connect(ctx, testUserID, constants.ProviderMock,
		[]constants.PermissionTag{constants.PermissionSteps, constants.PermissionCalories}, now.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, conn.ID, reconnected.ID)
	assert.True(t, reconnected.IsActive)
	assert.Nil(t, reconnected.DisconnectedAt)
	assert.Len(t, reconnected.PermissionsGranted, 2)
}
