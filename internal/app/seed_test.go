package app

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maximillian1508/easyrent-backend/internal/constants"
	"github.com/maximillian1508/easyrent-backend/internal/models"
	"github.com/maximillian1508/easyrent-backend/internal/repositories/memstore"
)

func TestSeedAllTestData_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	require.NoError(t, SeedAllTestData(ctx, store))
	require.NoError(t, SeedAllTestData(ctx, store))

	sentinel, err := store.Users().GetByID(ctx, uuid.MustParse(constants.SeedSentinelUserID))
	require.NoError(t, err)
	require.NotNil(t, sentinel)

	house, err := store.Properties().GetByID(ctx, uuid.MustParse(SeedRoomPropertyID))
	require.NoError(t, err)
	require.NotNil(t, house)
	assert.Len(t, house.Rooms, 3)

	app, err := store.Applications().GetByID(ctx, uuid.MustParse(SeedWaitingApplicationID))
	require.NoError(t, err)
	require.NotNil(t, app)
	assert.Equal(t, models.ApplicationStatusWaitingForResponse, app.Status)
	assert.Equal(t, 1, app.StartDate.Day())
	assert.True(t, models.IsPermittedStayLength(app.StayLength))
}

func TestFirstOfNextMonth(t *testing.T) {
	got := firstOfNextMonth(time.Date(2025, time.December, 31, 23, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), got)
}
