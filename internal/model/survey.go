package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// 问卷状态
const (
	SurveyStatusActive    = "active"
	SurveyStatusPaused    = "paused"
	SurveyStatusCompleted = "completed"
	SurveyStatusArchived  = "archived"
)

// SurveyCategories 问卷分类代码与展示名称
var SurveyCategories = map[string]string{
	"tech":      "Technologie",
	"lifestyle": "Lifestyle",
	"shopping":  "Shopping",
	"health":    "Gesundheit",
	"travel":    "Reisen",
	"finance":   "Finanzen",
}

// StringArray 用于 JSON 数组字段
type StringArray []string

func (s StringArray) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (s *StringArray) Scan(value interface{}) error {
	*s = []string{}
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	}
	return fmt.Errorf("unsupported string array column type %T", value)
}

// GatingQuestion 资格筛选问题
type GatingQuestion struct {
	ID               string       `json:"id"`
	Text             string       `json:"text,omitempty"`
	RequiredAnswer   *AnswerValue `json:"required_answer,omitempty"`
	DisqualifyReason string       `json:"disqualify_reason,omitempty"`
}

// QualificationCriteria 问卷参与资格条件
type QualificationCriteria struct {
	Questions []GatingQuestion `json:"questions,omitempty"`
}

// IsEmpty 无筛选条件时用户自动合格
func (c *QualificationCriteria) IsEmpty() bool {
	return c == nil || len(c.Questions) == 0
}

func (c QualificationCriteria) Value() (driver.Value, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (c *QualificationCriteria) Scan(value interface{}) error {
	*c = QualificationCriteria{}
	var data []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported criteria column type %T", value)
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, c)
}

type Survey struct {
	ID                    int64                 `gorm:"primaryKey" json:"id"`
	Title                 string                `gorm:"size:200;not null" json:"title"`
	Description           string                `gorm:"type:text" json:"description"`
	Company               string                `gorm:"size:200" json:"company,omitempty"`
	Category              string                `gorm:"size:50;not null;index" json:"category"`
	BaseReward            float64               `gorm:"type:decimal(10,2);not null;default:0" json:"base_reward"`
	EstimatedDuration     int                   `gorm:"default:5" json:"estimated_duration"` // 分钟
	QualificationCriteria QualificationCriteria `gorm:"type:json" json:"qualification_criteria"`
	MaxResponses          *int                  `json:"max_responses,omitempty"`
	CurrentResponses      int                   `gorm:"not null;default:0" json:"current_responses"`
	Status                string                `gorm:"size:20;not null;default:active;index" json:"status"`
	ExpiresAt             *time.Time            `gorm:"index" json:"expires_at,omitempty"`
	CreatedAt             time.Time             `json:"created_at"`
	UpdatedAt             time.Time             `json:"updated_at"`
}

func (Survey) TableName() string {
	return "surveys"
}

// IsFull 是否已达到答卷上限
func (s *Survey) IsFull() bool {
	return s.MaxResponses != nil && s.CurrentResponses >= *s.MaxResponses
}

// IsExpired 在调用时刻判断是否过期
func (s *Survey) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && !s.ExpiresAt.After(now)
}

// 问题类型
const (
	QuestionSingleChoice   = "single_choice"
	QuestionMultipleChoice = "multiple_choice"
	QuestionScale          = "scale"
	QuestionText           = "text"
	QuestionNumber         = "number"
	QuestionBoolean        = "boolean"
	QuestionDate           = "date"
)

// ValidQuestionTypes 支持的问题类型
var ValidQuestionTypes = map[string]bool{
	QuestionSingleChoice:   true,
	QuestionMultipleChoice: true,
	QuestionScale:          true,
	QuestionText:           true,
	QuestionNumber:         true,
	QuestionBoolean:        true,
	QuestionDate:           true,
}

// Question 问卷问题，Key 在同一问卷内唯一
type Question struct {
	ID        int64       `gorm:"primaryKey" json:"-"`
	SurveyID  int64       `gorm:"not null;uniqueIndex:idx_survey_question_key" json:"-"`
	Key       string      `gorm:"size:64;not null;uniqueIndex:idx_survey_question_key" json:"id"`
	Text      string      `gorm:"type:text;not null" json:"text"`
	Type      string      `gorm:"size:20;not null" json:"type"`
	Options   StringArray `gorm:"type:json" json:"options,omitempty"`
	Required  bool        `gorm:"not null" json:"required"`
	Position  int         `gorm:"not null;default:0" json:"order"`
	CreatedAt time.Time   `json:"-"`
}

func (Question) TableName() string {
	return "survey_questions"
}
