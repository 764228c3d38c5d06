package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/datafair_server/internal/model"
	"github.com/qs3c/datafair_server/internal/repository"
	"github.com/qs3c/datafair_server/internal/testutil"
)

func boolCriteria(id string, required bool, reason string) *model.QualificationCriteria {
	answer := model.BoolAnswer(required)
	return &model.QualificationCriteria{
		Questions: []model.GatingQuestion{{ID: id, RequiredAnswer: &answer, DisqualifyReason: reason}},
	}
}

func TestCheckQualification(t *testing.T) {
	criteria := boolCriteria("q1", true, "Nur für Autobesitzer")

	t.Run("mismatch disqualifies", func(t *testing.T) {
		err := CheckQualification(criteria, model.Answers{"q1": model.BoolAnswer(false)})
		var disqualified *DisqualifiedError
		require.True(t, errors.As(err, &disqualified))
		assert.Equal(t, "q1", disqualified.QuestionID)
		assert.Equal(t, "Nur für Autobesitzer", disqualified.Reason)
	})

	t.Run("match qualifies", func(t *testing.T) {
		assert.NoError(t, CheckQualification(criteria, model.Answers{"q1": model.BoolAnswer(true)}))
	})

	t.Run("missing answer is incomplete", func(t *testing.T) {
		err := CheckQualification(criteria, model.Answers{})
		assert.ErrorIs(t, err, ErrIncompleteQualification)
		var disqualified *DisqualifiedError
		assert.False(t, errors.As(err, &disqualified))
	})

	t.Run("blank answer is incomplete", func(t *testing.T) {
		err := CheckQualification(&model.QualificationCriteria{
			Questions: []model.GatingQuestion{{ID: "city"}},
		}, model.Answers{"city": model.TextAnswer(" ")})
		assert.ErrorIs(t, err, ErrIncompleteQualification)
	})
}

func TestCheckQualification_EmptyCriteria(t *testing.T) {
	assert.NoError(t, CheckQualification(nil, nil))
	assert.NoError(t, CheckQualification(&model.QualificationCriteria{}, model.Answers{}))
}

func TestCheckQualification_FirstFailureWins(t *testing.T) {
	yes := model.BoolAnswer(true)
	adult := model.ChoiceAnswer("18+")
	criteria := &model.QualificationCriteria{
		Questions: []model.GatingQuestion{
			{ID: "age", RequiredAnswer: &adult, DisqualifyReason: "zu jung"},
			{ID: "car", RequiredAnswer: &yes, DisqualifyReason: "kein Auto"},
		},
	}

	err := CheckQualification(criteria, model.Answers{
		"age": model.TextAnswer("16-17"),
		"car": model.BoolAnswer(false),
	})

	var disqualified *DisqualifiedError
	require.True(t, errors.As(err, &disqualified))
	assert.Equal(t, "zu jung", disqualified.Reason)

	// 缺失优先于后续的不匹配
	err = CheckQualification(criteria, model.Answers{"car": model.BoolAnswer(false)})
	assert.ErrorIs(t, err, ErrIncompleteQualification)
}

func TestCheckQualification_DefaultReasonAndAnyAnswer(t *testing.T) {
	yes := model.BoolAnswer(true)
	criteria := &model.QualificationCriteria{
		Questions: []model.GatingQuestion{
			{ID: "city"},
			{ID: "q1", RequiredAnswer: &yes},
		},
	}

	err := CheckQualification(criteria, model.Answers{"city": model.TextAnswer("Berlin"), "q1": model.BoolAnswer(false)})
	assert.EqualError(t, err, defaultDisqualifyReason)
}

func setupQualificationService(t *testing.T) (*QualificationService, *gorm.DB, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	svc := NewQualificationService(
		repository.NewSurveyRepository(db),
		repository.NewQualificationRepository(db),
	)

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}

	return svc, db, cleanup
}

func TestQualificationService_Check_RecordsEveryAttempt(t *testing.T) {
	svc, db, cleanup := setupQualificationService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	yes := model.BoolAnswer(true)
	survey := testutil.TestSurvey(t, db, testutil.WithCriteria(model.GatingQuestion{
		ID: "q1", RequiredAnswer: &yes, DisqualifyReason: "nein",
	}))

	_, err := svc.Check(user.ID, survey.ID, model.Answers{})
	assert.ErrorIs(t, err, ErrIncompleteQualification)

	_, err = svc.Check(user.ID, survey.ID, model.Answers{"q1": model.BoolAnswer(false)})
	var disqualified *DisqualifiedError
	require.True(t, errors.As(err, &disqualified))

	resp, err := svc.Check(user.ID, survey.ID, model.Answers{"q1": model.BoolAnswer(true)})
	require.NoError(t, err)
	assert.True(t, resp.Qualified)

	records, err := repository.NewQualificationRepository(db).ListBySurveyAndUser(survey.ID, user.ID)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.False(t, records[0].Qualified)
	assert.False(t, records[1].Qualified)
	assert.Equal(t, "nein", records[1].Reason)
	assert.True(t, records[2].Qualified)

	passed, err := svc.Passed(survey, user.ID)
	require.NoError(t, err)
	assert.True(t, passed)
}

func TestQualificationService_Check_SurveyNotFound(t *testing.T) {
	svc, db, cleanup := setupQualificationService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	_, err := svc.Check(user.ID, 99999, model.Answers{})
	assert.ErrorIs(t, err, ErrSurveyNotFound)
}

func TestQualificationService_Passed(t *testing.T) {
	svc, db, cleanup := setupQualificationService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	open := testutil.TestSurvey(t, db)
	passed, err := svc.Passed(open, user.ID)
	require.NoError(t, err)
	assert.True(t, passed, "empty criteria always passes")

	gated := testutil.TestSurvey(t, db, testutil.WithCriteria(model.GatingQuestion{ID: "q1"}))
	passed, err = svc.Passed(gated, user.ID)
	require.NoError(t, err)
	assert.False(t, passed, "no recorded check")
}
