package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/datafair_server/internal/model"
	"github.com/qs3c/datafair_server/internal/repository"
	"github.com/qs3c/datafair_server/internal/testutil"
)

func setupActivityService(t *testing.T) (*ActivityService, *gorm.DB, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	svc := NewActivityService(repository.NewActivityRepository(db))

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}

	return svc, db, cleanup
}

func TestActivityService_List(t *testing.T) {
	svc, db, cleanup := setupActivityService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	testutil.TestActivity(t, db, user.ID, model.ActivitySurveyCompleted, 4.00)
	testutil.TestActivity(t, db, user.ID, model.ActivitySurveyCompleted, 2.40)
	testutil.TestActivity(t, db, user.ID, model.ActivityPayout, 0)

	items, total, err := svc.List(user.ID, "", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, items, 2)

	items, total, err = svc.List(user.ID, model.ActivityPayout, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, model.ActivityPayout, items[0].ActivityType)
}

func TestActivityService_Get(t *testing.T) {
	svc, db, cleanup := setupActivityService(t)
	defer cleanup()

	owner := testutil.TestUser(t, db)
	other := testutil.TestUser(t, db)
	activity := testutil.TestActivity(t, db, owner.ID, model.ActivityBonus, 1.00)

	item, err := svc.Get(owner.ID, activity.ID)
	require.NoError(t, err)
	assert.Equal(t, activity.ID, item.ID)

	_, err = svc.Get(other.ID, activity.ID)
	assert.ErrorIs(t, err, ErrActivityNotFound)

	_, err = svc.Get(owner.ID, 99999)
	assert.ErrorIs(t, err, ErrActivityNotFound)
}

func TestActivityService_Stats(t *testing.T) {
	svc, db, cleanup := setupActivityService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	testutil.TestActivity(t, db, user.ID, model.ActivitySurveyCompleted, 4.00)
	testutil.TestActivity(t, db, user.ID, model.ActivitySurveyCompleted, 2.40)
	testutil.TestActivity(t, db, user.ID, model.ActivityDataSharing, 2.50)
	testutil.TestActivity(t, db, user.ID, model.ActivityPayout, 0)

	stats, err := svc.Stats(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, 8.90, stats.TotalEarning)
	require.Len(t, stats.ByType, 3)

	byType := make(map[string]int64)
	for _, s := range stats.ByType {
		byType[s.ActivityType] = s.Count
	}
	assert.Equal(t, int64(2), byType[model.ActivitySurveyCompleted])
	assert.Equal(t, int64(1), byType[model.ActivityPayout])
}
