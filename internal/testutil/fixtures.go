package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/datafair_server/internal/model"
)

var seq int64

func nextSeq() int64 {
	return atomic.AddInt64(&seq, 1)
}

// TestUser 创建测试用户
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	n := nextSeq()
	user := &model.User{
		Email:        fmt.Sprintf("test_%d_%d@example.com", n, time.Now().UnixNano()),
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuvwxyz123456", // bcrypt hash placeholder
		FirstName:    "Test",
		LastName:     fmt.Sprintf("User%d", n),
		Role:         model.RoleUser,
		IsActive:     true,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = email
	}
}

// WithPasswordHash 设置密码哈希
func WithPasswordHash(hash string) func(*model.User) {
	return func(u *model.User) {
		u.PasswordHash = hash
	}
}

// WithRole 设置角色
func WithRole(role string) func(*model.User) {
	return func(u *model.User) {
		u.Role = role
	}
}

// TestSurvey 创建测试问卷
func TestSurvey(t *testing.T, db *gorm.DB, opts ...func(*model.Survey)) *model.Survey {
	t.Helper()

	survey := &model.Survey{
		Title:             fmt.Sprintf("Test Survey %d", nextSeq()),
		Description:       "survey for tests",
		Company:           "Acme GmbH",
		Category:          "tech",
		BaseReward:        4.00,
		EstimatedDuration: 5,
		Status:            model.SurveyStatusActive,
	}

	for _, opt := range opts {
		opt(survey)
	}

	if err := db.Create(survey).Error; err != nil {
		t.Fatalf("Failed to create test survey: %v", err)
	}

	return survey
}

// WithReward 设置基础奖励
func WithReward(reward float64) func(*model.Survey) {
	return func(s *model.Survey) {
		s.BaseReward = reward
	}
}

// WithCapacity 设置名额上限与已完成数
func WithCapacity(max, current int) func(*model.Survey) {
	return func(s *model.Survey) {
		s.MaxResponses = &max
		s.CurrentResponses = current
	}
}

// WithSurveyStatus 设置问卷状态
func WithSurveyStatus(status string) func(*model.Survey) {
	return func(s *model.Survey) {
		s.Status = status
	}
}

// WithExpiresAt 设置过期时间
func WithExpiresAt(at time.Time) func(*model.Survey) {
	return func(s *model.Survey) {
		s.ExpiresAt = &at
	}
}

// WithCategory 设置分类
func WithCategory(category string) func(*model.Survey) {
	return func(s *model.Survey) {
		s.Category = category
	}
}

// WithCriteria 设置资格条件
func WithCriteria(questions ...model.GatingQuestion) func(*model.Survey) {
	return func(s *model.Survey) {
		s.QualificationCriteria = model.QualificationCriteria{Questions: questions}
	}
}

// TestQuestion 为问卷添加问题
func TestQuestion(t *testing.T, db *gorm.DB, surveyID int64, key, qType string, required bool, options ...string) *model.Question {
	t.Helper()

	var position int64
	db.Model(&model.Question{}).Where("survey_id = ?", surveyID).Count(&position)

	question := &model.Question{
		SurveyID: surveyID,
		Key:      key,
		Text:     "Question " + key,
		Type:     qType,
		Options:  model.StringArray(options),
		Required: required,
		Position: int(position) + 1,
	}

	if err := db.Create(question).Error; err != nil {
		t.Fatalf("Failed to create test question: %v", err)
	}

	return question
}

// TestResponse 创建测试答卷
func TestResponse(t *testing.T, db *gorm.DB, userID, surveyID int64, opts ...func(*model.SurveyResponse)) *model.SurveyResponse {
	t.Helper()

	resp := &model.SurveyResponse{
		SurveyID:            surveyID,
		UserID:              userID,
		Answers:             model.Answers{},
		QualificationPassed: true,
		Status:              model.ResponseStatusStarted,
		StartedAt:           time.Now(),
	}

	for _, opt := range opts {
		opt(resp)
	}

	if err := db.Create(resp).Error; err != nil {
		t.Fatalf("Failed to create test response: %v", err)
	}

	return resp
}

// WithResponseStatus 设置答卷状态
func WithResponseStatus(status string) func(*model.SurveyResponse) {
	return func(r *model.SurveyResponse) {
		r.Status = status
		now := time.Now()
		switch status {
		case model.ResponseStatusCompleted:
			r.CompletedAt = &now
			r.CompletionPercentage = 100
		case model.ResponseStatusAbandoned:
			r.AbandonedAt = &now
		}
	}
}

// WithQualification 设置资格结果
func WithQualification(passed bool) func(*model.SurveyResponse) {
	return func(r *model.SurveyResponse) {
		r.QualificationPassed = passed
	}
}

// WithAnswers 设置已保存的答案与完成度
func WithAnswers(answers model.Answers, pct float64) func(*model.SurveyResponse) {
	return func(r *model.SurveyResponse) {
		r.Answers = answers
		r.CompletionPercentage = pct
	}
}

// TestEarning 创建测试收益
func TestEarning(t *testing.T, db *gorm.DB, userID int64, amount float64, opts ...func(*model.Earning)) *model.Earning {
	t.Helper()

	earning := &model.Earning{
		UserID:      userID,
		Amount:      amount,
		SourceType:  model.EarningSourceBonus,
		Description: "test earning",
		Status:      model.EarningStatusEarned,
		EarnedAt:    time.Now(),
	}

	for _, opt := range opts {
		opt(earning)
	}

	if err := db.Create(earning).Error; err != nil {
		t.Fatalf("Failed to create test earning: %v", err)
	}

	return earning
}

// WithEarningStatus 设置收益状态
func WithEarningStatus(status string) func(*model.Earning) {
	return func(e *model.Earning) {
		e.Status = status
	}
}

// WithSource 设置收益来源
func WithSource(sourceType string) func(*model.Earning) {
	return func(e *model.Earning) {
		e.SourceType = sourceType
	}
}

// WithEarnedAt 设置收益时间
func WithEarnedAt(at time.Time) func(*model.Earning) {
	return func(e *model.Earning) {
		e.EarnedAt = at
	}
}

// TestPayout 创建测试提现
func TestPayout(t *testing.T, db *gorm.DB, userID int64, amount float64, status string) *model.Payout {
	t.Helper()

	payout := &model.Payout{
		UserID:      userID,
		Amount:      amount,
		Method:      "paypal",
		Status:      status,
		RequestedAt: time.Now(),
	}

	if err := db.Create(payout).Error; err != nil {
		t.Fatalf("Failed to create test payout: %v", err)
	}

	return payout
}

// TestDataType 创建测试数据类别
func TestDataType(t *testing.T, db *gorm.DB, name string, monthlyValue float64) *model.DataType {
	t.Helper()

	dataType := &model.DataType{
		Name:         name,
		Description:  name + " data",
		Icon:         "database",
		MonthlyValue: monthlyValue,
		Category:     "behavior",
		IsActive:     true,
	}

	if err := db.Create(dataType).Error; err != nil {
		t.Fatalf("Failed to create test data type: %v", err)
	}

	return dataType
}

// TestPermission 创建测试数据授权
func TestPermission(t *testing.T, db *gorm.DB, userID, dataTypeID int64, enabled bool) *model.DataPermission {
	t.Helper()

	perm := &model.DataPermission{
		UserID:     userID,
		DataTypeID: dataTypeID,
		Enabled:    enabled,
	}
	if enabled {
		now := time.Now()
		perm.GrantedAt = &now
	}

	if err := db.Create(perm).Error; err != nil {
		t.Fatalf("Failed to create test permission: %v", err)
	}

	return perm
}

// TestActivity 创建测试动态
func TestActivity(t *testing.T, db *gorm.DB, userID int64, activityType string, earning float64) *model.Activity {
	t.Helper()

	activity := &model.Activity{
		UserID:       userID,
		Title:        "Activity " + activityType,
		ActivityType: activityType,
		Earning:      earning,
	}

	if err := db.Create(activity).Error; err != nil {
		t.Fatalf("Failed to create test activity: %v", err)
	}

	return activity
}
