package model

import (
	"time"
)

// 动态类型
const (
	ActivitySurveyCompleted = "survey_completed"
	ActivityDataSharing     = "data_sharing"
	ActivityPayout          = "payout"
	ActivityBonus           = "bonus"
)

type Activity struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	UserID       int64     `gorm:"not null;index" json:"user_id"`
	Title        string    `gorm:"size:200;not null" json:"title"`
	Description  string    `gorm:"type:text" json:"description"`
	ActivityType string    `gorm:"size:30;not null;index" json:"activity_type"`
	Earning      float64   `gorm:"type:decimal(10,2);not null;default:0" json:"earning"`
	Company      string    `gorm:"size:200" json:"company,omitempty"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}

func (Activity) TableName() string {
	return "activities"
}
