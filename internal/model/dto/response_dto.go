package dto

import "github.com/qs3c/datafair_server/internal/model"

// SaveProgressRequest 保存进度请求
type SaveProgressRequest struct {
	Answers model.Answers `json:"answers" binding:"required"`
}

// SubmitRequest 提交请求，answers 可为空（仅提交已保存的答案）
type SubmitRequest struct {
	Answers model.Answers `json:"answers"`
}

// StartResponse 开始答卷响应
type StartResponse struct {
	ResponseID int64             `json:"response_id"`
	Resumed    bool              `json:"resumed"`
	Response   *ResponseDetail   `json:"response"`
	Questions  []*model.Question `json:"questions"`
}

// ResponseDetail 答卷详情
type ResponseDetail struct {
	ID                   int64         `json:"id"`
	SurveyID             int64         `json:"survey_id"`
	Status               string        `json:"status"`
	Answers              model.Answers `json:"answers"`
	QualificationPassed  bool          `json:"qualification_passed"`
	CompletionPercentage float64       `json:"completion_percentage"`
	EarningsAmount       float64       `json:"earnings_amount"`
	StartedAt            string        `json:"started_at"`
	CompletedAt          string        `json:"completed_at,omitempty"`
	AbandonedAt          string        `json:"abandoned_at,omitempty"`
}

// SubmitResponse 提交结果
type SubmitResponse struct {
	*ResponseDetail
	EarningID *int64 `json:"earning_id,omitempty"`
}
