package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/datafair_server/internal/model"
	"github.com/qs3c/datafair_server/internal/testutil"
)

func TestResponseRepository_UniquePerSurveyAndUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewResponseRepository(db)
	user := testutil.TestUser(t, db)
	survey := testutil.TestSurvey(t, db)

	first := &model.SurveyResponse{SurveyID: survey.ID, UserID: user.ID, StartedAt: time.Now()}
	require.NoError(t, repo.Create(first))

	second := &model.SurveyResponse{SurveyID: survey.ID, UserID: user.ID, StartedAt: time.Now()}
	assert.Error(t, repo.Create(second))

	found, err := repo.GetBySurveyAndUser(survey.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
	assert.Equal(t, model.ResponseStatusStarted, found.Status)
}

func TestResponseRepository_UpdateProgress_VersionCheck(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewResponseRepository(db)
	user := testutil.TestUser(t, db)
	survey := testutil.TestSurvey(t, db)
	resp := testutil.TestResponse(t, db, user.ID, survey.ID)

	answers := model.Answers{"q1": model.BoolAnswer(true)}
	rows, err := repo.UpdateProgress(resp.ID, resp.Version, answers, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	// 旧版本号的写入被拒绝
	rows, err = repo.UpdateProgress(resp.ID, resp.Version, model.Answers{}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)

	found, err := repo.GetByID(resp.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.Version+1, found.Version)
	assert.Equal(t, 50.0, found.CompletionPercentage)
	assert.True(t, found.Answers["q1"].Equal(model.BoolAnswer(true)))
}

func TestResponseRepository_MarkCompleted_Once(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewResponseRepository(db)
	user := testutil.TestUser(t, db)
	survey := testutil.TestSurvey(t, db)
	resp := testutil.TestResponse(t, db, user.ID, survey.ID)

	completedAt := time.Now()
	rows, err := repo.MarkCompleted(resp.ID, model.Answers{}, 100, 4.00, completedAt)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	rows, err = repo.MarkCompleted(resp.ID, model.Answers{}, 100, 4.00, completedAt.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)

	found, err := repo.GetByID(resp.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ResponseStatusCompleted, found.Status)
	require.NotNil(t, found.CompletedAt)
	assert.WithinDuration(t, completedAt, *found.CompletedAt, time.Second)
	assert.Equal(t, 4.00, found.EarningsAmount)

	rows, err = repo.UpdateProgress(resp.ID, found.Version, model.Answers{}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)
}

func TestResponseRepository_MarkAbandoned(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewResponseRepository(db)
	user := testutil.TestUser(t, db)
	survey := testutil.TestSurvey(t, db)
	started := testutil.TestResponse(t, db, user.ID, survey.ID)
	done := testutil.TestResponse(t, db, user.ID, testutil.TestSurvey(t, db).ID,
		testutil.WithResponseStatus(model.ResponseStatusCompleted))

	rows, err := repo.MarkAbandoned(started.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	rows, err = repo.MarkAbandoned(done.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)
}

func TestResponseRepository_ListStale(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewResponseRepository(db)
	user := testutil.TestUser(t, db)
	stale := testutil.TestResponse(t, db, user.ID, testutil.TestSurvey(t, db).ID)
	testutil.TestResponse(t, db, user.ID, testutil.TestSurvey(t, db).ID)

	old := time.Now().Add(-100 * time.Hour)
	require.NoError(t, db.Model(&model.SurveyResponse{}).Where("id = ?", stale.ID).
		UpdateColumn("updated_at", old).Error)

	found, err := repo.ListStale(time.Now().Add(-72*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, stale.ID, found[0].ID)
}

func TestResponseRepository_ListByUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewResponseRepository(db)
	user := testutil.TestUser(t, db)
	s1 := testutil.TestSurvey(t, db, testutil.WithCategory("travel"))
	s2 := testutil.TestSurvey(t, db)
	testutil.TestResponse(t, db, user.ID, s1.ID)
	testutil.TestResponse(t, db, user.ID, s2.ID, testutil.WithResponseStatus(model.ResponseStatusCompleted))

	rows, err := repo.ListByUser(user.ID, model.ResponseStatusStarted)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, s1.ID, rows[0].SurveyID)
	assert.Equal(t, s1.Title, rows[0].SurveyTitle)
	assert.Equal(t, "travel", rows[0].SurveyCategory)

	rows, err = repo.ListByUser(user.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	count, err := repo.CountByUserStatus(user.ID, model.ResponseStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestResponseRepository_MarkStaleAbandoned_SkipsResumed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewResponseRepository(db)
	user := testutil.TestUser(t, db)
	stale := testutil.TestResponse(t, db, user.ID, testutil.TestSurvey(t, db).ID)
	resumed := testutil.TestResponse(t, db, user.ID, testutil.TestSurvey(t, db).ID)

	old := time.Now().Add(-100 * time.Hour)
	require.NoError(t, db.Model(&model.SurveyResponse{}).
		Where("id IN ?", []int64{stale.ID, resumed.ID}).
		UpdateColumn("updated_at", old).Error)

	before := time.Now().Add(-72 * time.Hour)
	count, err := repo.CountStale(before)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// 列出之后用户又保存了进度
	require.NoError(t, db.Model(&model.SurveyResponse{}).Where("id = ?", resumed.ID).
		UpdateColumn("updated_at", time.Now()).Error)

	rows, err := repo.MarkStaleAbandoned(resumed.ID, before, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)

	rows, err = repo.MarkStaleAbandoned(stale.ID, before, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	got, err := repo.GetByID(resumed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ResponseStatusStarted, got.Status)

	count, err = repo.CountStale(before)
	require.NoError(t, err)
	assert.Zero(t, count)
}
