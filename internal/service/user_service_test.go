package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/qs3c/datafair_server/internal/model"
	"github.com/qs3c/datafair_server/internal/model/dto"
	"github.com/qs3c/datafair_server/internal/repository"
	"github.com/qs3c/datafair_server/internal/testutil"
)

func setupUserService(t *testing.T) (*UserService, *gorm.DB, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	service := NewUserService(
		db,
		repository.NewUserRepository(db),
		repository.NewResponseRepository(db),
		repository.NewEarningRepository(db),
		repository.NewPayoutRepository(db),
		repository.NewPermissionRepository(db),
	)

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}

	return service, db, cleanup
}

func strPtr(s string) *string {
	return &s
}

func TestUserService_GetProfile(t *testing.T) {
	service, db, cleanup := setupUserService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	survey := testutil.TestSurvey(t, db)
	testutil.TestResponse(t, db, user.ID, survey.ID, testutil.WithResponseStatus(model.ResponseStatusCompleted))
	testutil.TestEarning(t, db, user.ID, 12.00)
	testutil.TestPayout(t, db, user.ID, 10.00, model.PayoutStatusPending)

	profile, err := service.GetProfile(user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, profile.Email)
	assert.Equal(t, int64(1), profile.CompletedSurveys)
	assert.Equal(t, 12.00, profile.TotalEarnings)
	assert.Equal(t, 2.00, profile.AvailableBalance)

	_, err = service.GetProfile(99999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_UpdateProfile(t *testing.T) {
	service, db, cleanup := setupUserService(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	info, err := service.UpdateProfile(user.ID, &dto.UpdateProfileRequest{FirstName: strPtr("  Lena ")})
	require.NoError(t, err)
	assert.Equal(t, "Lena", info.FirstName)
	assert.Equal(t, user.LastName, info.LastName)

	_, err = service.UpdateProfile(user.ID, &dto.UpdateProfileRequest{LastName: strPtr("   ")})
	assert.ErrorIs(t, err, ErrEmptyName)

	var stored model.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.Equal(t, "Lena", stored.FirstName)
	assert.Equal(t, user.LastName, stored.LastName)
}

func TestUserService_ChangePassword(t *testing.T) {
	service, db, cleanup := setupUserService(t)
	defer cleanup()

	hash, err := bcrypt.GenerateFromPassword([]byte("oldpassword"), bcrypt.MinCost)
	require.NoError(t, err)
	user := testutil.TestUser(t, db, testutil.WithPasswordHash(string(hash)))

	err = service.ChangePassword(user.ID, &dto.ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "newpassword"})
	assert.ErrorIs(t, err, ErrWrongPassword)

	err = service.ChangePassword(user.ID, &dto.ChangePasswordRequest{CurrentPassword: "oldpassword", NewPassword: "newpassword"})
	require.NoError(t, err)

	var stored model.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("newpassword")))
}

func TestUserService_DeleteAccount(t *testing.T) {
	service, db, cleanup := setupUserService(t)
	defer cleanup()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := testutil.TestUser(t, db, testutil.WithPasswordHash(string(hash)))
	survey := testutil.TestSurvey(t, db)
	finished := testutil.TestSurvey(t, db)
	started := testutil.TestResponse(t, db, user.ID, survey.ID)
	completed := testutil.TestResponse(t, db, user.ID, finished.ID, testutil.WithResponseStatus(model.ResponseStatusCompleted))
	dataType := testutil.TestDataType(t, db, "location", 2.5)
	perm := testutil.TestPermission(t, db, user.ID, dataType.ID, true)
	testutil.TestEarning(t, db, user.ID, 15)
	testutil.TestPayout(t, db, user.ID, 10, model.PayoutStatusCompleted)

	err = service.DeleteAccount(user.ID, "wrong")
	assert.ErrorIs(t, err, ErrWrongPassword)

	require.NoError(t, service.DeleteAccount(user.ID, "secret123"))

	var stored model.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.False(t, stored.IsActive)
	assert.Empty(t, stored.PasswordHash)
	assert.Empty(t, stored.FirstName)
	assert.NotEqual(t, user.Email, stored.Email)

	// 原邮箱可重新注册
	_, err = repository.NewUserRepository(db).GetByEmail(user.Email)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var storedPerm model.DataPermission
	require.NoError(t, db.First(&storedPerm, perm.ID).Error)
	assert.False(t, storedPerm.Enabled)

	var resp model.SurveyResponse
	require.NoError(t, db.First(&resp, started.ID).Error)
	assert.Equal(t, model.ResponseStatusAbandoned, resp.Status)
	require.NoError(t, db.First(&resp, completed.ID).Error)
	assert.Equal(t, model.ResponseStatusCompleted, resp.Status)

	// 账目保留
	var earnings, payouts int64
	db.Model(&model.Earning{}).Where("user_id = ?", user.ID).Count(&earnings)
	db.Model(&model.Payout{}).Where("user_id = ?", user.ID).Count(&payouts)
	assert.Equal(t, int64(1), earnings)
	assert.Equal(t, int64(1), payouts)

	// 密码哈希已清空，任何密码都无法再次通过校验
	assert.ErrorIs(t, service.DeleteAccount(user.ID, "secret123"), ErrWrongPassword)
}

func TestUserService_DeleteAccount_PayoutInFlight(t *testing.T) {
	for _, status := range []string{model.PayoutStatusPending, model.PayoutStatusProcessing} {
		t.Run(status, func(t *testing.T) {
			service, db, cleanup := setupUserService(t)
			defer cleanup()

			hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
			require.NoError(t, err)
			user := testutil.TestUser(t, db, testutil.WithPasswordHash(string(hash)))
			testutil.TestEarning(t, db, user.ID, 30)
			testutil.TestPayout(t, db, user.ID, 10, status)

			err = service.DeleteAccount(user.ID, "secret123")
			assert.ErrorIs(t, err, ErrPayoutInProgress)

			var stored model.User
			require.NoError(t, db.First(&stored, user.ID).Error)
			assert.True(t, stored.IsActive)
			assert.Equal(t, user.Email, stored.Email)
		})
	}
}

func TestUserService_DeleteAccount_NotFound(t *testing.T) {
	service, _, cleanup := setupUserService(t)
	defer cleanup()

	assert.ErrorIs(t, service.DeleteAccount(99999, "whatever"), ErrUserNotFound)
}
