package model

import (
	"time"
)

// QualificationResponse 资格检查记录，只追加不覆盖
type QualificationResponse struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	SurveyID  int64     `gorm:"not null;index:idx_qualification_survey_user" json:"survey_id"`
	UserID    int64     `gorm:"not null;index:idx_qualification_survey_user" json:"user_id"`
	Answers   Answers   `gorm:"type:json" json:"answers"`
	Qualified bool      `gorm:"not null" json:"qualified"`
	Reason    string    `gorm:"size:255" json:"reason,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (QualificationResponse) TableName() string {
	return "qualification_responses"
}
