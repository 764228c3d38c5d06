package dto

import (
	"time"

	"github.com/qs3c/datafair_server/internal/model"
)

// SurveyListItem 问卷列表项
type SurveyListItem struct {
	ID                int64   `json:"id"`
	Title             string  `json:"title"`
	Description       string  `json:"description"`
	Company           string  `json:"company,omitempty"`
	Category          string  `json:"category"`
	CategoryName      string  `json:"category_name"`
	BaseReward        float64 `json:"base_reward"`
	EstimatedDuration int     `json:"estimated_duration"`
	RemainingSlots    *int    `json:"remaining_slots,omitempty"`
	HasQualification  bool    `json:"has_qualification"`
	ExpiresAt         string  `json:"expires_at,omitempty"`
}

// GatingQuestionItem 筛选问题，不返回期望答案
type GatingQuestionItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// SurveyDetail 问卷详情，不可参与时仍可查看
type SurveyDetail struct {
	SurveyListItem
	Status            string                `json:"status"`
	Questions         []*model.Question     `json:"questions"`
	GatingQuestions   []*GatingQuestionItem `json:"gating_questions,omitempty"`
	Joinable          bool                  `json:"joinable"`
	UnavailableReason string                `json:"unavailable_reason,omitempty"`
	ResponseID        *int64                `json:"response_id,omitempty"`
	ResponseStatus    string                `json:"response_status,omitempty"`
}

// CategoryItem 问卷分类
type CategoryItem struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// QualifyRequest 资格筛选请求
type QualifyRequest struct {
	Answers model.Answers `json:"answers"`
}

// QualifyResponse 资格筛选结果
type QualifyResponse struct {
	Qualified bool   `json:"qualified"`
	Reason    string `json:"reason,omitempty"`
}

// ResponseSummary 进行中/历史答卷列表项
type ResponseSummary struct {
	ResponseID           int64   `json:"response_id"`
	SurveyID             int64   `json:"survey_id"`
	SurveyTitle          string  `json:"survey_title"`
	Category             string  `json:"category"`
	BaseReward           float64 `json:"base_reward"`
	Status               string  `json:"status"`
	CompletionPercentage float64 `json:"completion_percentage"`
	EarningsAmount       float64 `json:"earnings_amount"`
	StartedAt            string  `json:"started_at"`
	CompletedAt          string  `json:"completed_at,omitempty"`
	AbandonedAt          string  `json:"abandoned_at,omitempty"`
}

// CreateQuestionRequest 问题定义
type CreateQuestionRequest struct {
	ID       string   `json:"id" binding:"required,max=64"`
	Text     string   `json:"text" binding:"required"`
	Type     string   `json:"type" binding:"required"`
	Options  []string `json:"options,omitempty"`
	Required bool     `json:"required"`
}

// CreateSurveyRequest 创建问卷（管理员）
type CreateSurveyRequest struct {
	Title                 string                      `json:"title" binding:"required,max=200"`
	Description           string                      `json:"description,omitempty"`
	Company               string                      `json:"company,omitempty" binding:"omitempty,max=200"`
	Category              string                      `json:"category" binding:"required"`
	BaseReward            float64                     `json:"base_reward" binding:"min=0"`
	EstimatedDuration     int                         `json:"estimated_duration,omitempty" binding:"omitempty,min=1"`
	MaxResponses          *int                        `json:"max_responses,omitempty" binding:"omitempty,min=1"`
	ExpiresAt             *time.Time                  `json:"expires_at,omitempty"`
	QualificationCriteria model.QualificationCriteria `json:"qualification_criteria"`
	Questions             []*CreateQuestionRequest    `json:"questions" binding:"required,min=1,dive"`
}

// CreateSurveyResponse 创建问卷响应
type CreateSurveyResponse struct {
	SurveyID int64 `json:"survey_id"`
}

// UpdateSurveyStatusRequest 更新问卷状态（管理员）
type UpdateSurveyStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active paused completed archived"`
}

// SurveyStats 用户答卷统计
type SurveyStats struct {
	SurveysStarted   int64   `json:"total_surveys_started"`
	SurveysCompleted int64   `json:"total_surveys_completed"`
	CompletionRate   float64 `json:"completion_rate"`
	TotalEarnings    float64 `json:"total_earnings"`
}
