package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/datafair_server/internal/model"
	"github.com/qs3c/datafair_server/internal/testutil"
)

func TestQualificationRepository_AppendOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewQualificationRepository(db)
	user := testutil.TestUser(t, db)
	survey := testutil.TestSurvey(t, db)

	require.NoError(t, repo.Create(&model.QualificationResponse{
		SurveyID: survey.ID, UserID: user.ID, Qualified: false, Reason: "too young",
		Answers: model.Answers{"age18": model.BoolAnswer(false)},
	}))
	require.NoError(t, repo.Create(&model.QualificationResponse{
		SurveyID: survey.ID, UserID: user.ID, Qualified: true,
		Answers: model.Answers{"age18": model.BoolAnswer(true)},
	}))

	records, err := repo.ListBySurveyAndUser(survey.ID, user.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.False(t, records[0].Qualified)
	assert.Equal(t, "too young", records[0].Reason)

	latest, err := repo.Latest(survey.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, latest.Qualified)

	_, err = repo.Latest(survey.ID, 99999)
	assert.Error(t, err)
}
