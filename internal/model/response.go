package model

import (
	"time"
)

// 答卷状态
const (
	ResponseStatusStarted   = "started"
	ResponseStatusCompleted = "completed"
	ResponseStatusAbandoned = "abandoned"
)

// SurveyResponse 用户对某问卷的唯一一份答卷
type SurveyResponse struct {
	ID                   int64      `gorm:"primaryKey" json:"id"`
	SurveyID             int64      `gorm:"not null;uniqueIndex:idx_response_survey_user" json:"survey_id"`
	UserID               int64      `gorm:"not null;uniqueIndex:idx_response_survey_user;index" json:"user_id"`
	Answers              Answers    `gorm:"type:json" json:"answers"`
	QualificationPassed  bool       `gorm:"not null" json:"qualification_passed"`
	CompletionPercentage float64    `gorm:"not null;default:0" json:"completion_percentage"`
	Status               string     `gorm:"size:20;not null;default:started;index" json:"status"`
	EarningsAmount       float64    `gorm:"type:decimal(10,2);not null;default:0" json:"earnings_amount"`
	Version              int        `gorm:"not null;default:0" json:"-"`
	StartedAt            time.Time  `json:"started_at"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
	AbandonedAt          *time.Time `json:"abandoned_at,omitempty"`
	UpdatedAt            time.Time  `gorm:"index" json:"updated_at"`
}

func (SurveyResponse) TableName() string {
	return "survey_responses"
}

// ResponseWithSurvey 答卷与问卷摘要的联表结果
type ResponseWithSurvey struct {
	SurveyResponse
	SurveyTitle      string  `json:"survey_title"`
	SurveyCategory   string  `json:"survey_category"`
	SurveyBaseReward float64 `json:"survey_base_reward"`
}
