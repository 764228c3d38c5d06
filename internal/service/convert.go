package service

import (
	"time"

	"github.com/qs3c/datafair_server/internal/model"
	"github.com/qs3c/datafair_server/internal/model/dto"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func toResponseDetail(r *model.SurveyResponse) *dto.ResponseDetail {
	answers := r.Answers
	if answers == nil {
		answers = model.Answers{}
	}
	return &dto.ResponseDetail{
		ID:                   r.ID,
		SurveyID:             r.SurveyID,
		Status:               r.Status,
		Answers:              answers,
		QualificationPassed:  r.QualificationPassed,
		CompletionPercentage: r.CompletionPercentage,
		EarningsAmount:       r.EarningsAmount,
		StartedAt:            formatTime(r.StartedAt),
		CompletedAt:          formatTimePtr(r.CompletedAt),
		AbandonedAt:          formatTimePtr(r.AbandonedAt),
	}
}

func toSurveyListItem(s *model.Survey) *dto.SurveyListItem {
	item := &dto.SurveyListItem{
		ID:                s.ID,
		Title:             s.Title,
		Description:       s.Description,
		Company:           s.Company,
		Category:          s.Category,
		CategoryName:      model.SurveyCategories[s.Category],
		BaseReward:        s.BaseReward,
		EstimatedDuration: s.EstimatedDuration,
		HasQualification:  !s.QualificationCriteria.IsEmpty(),
		ExpiresAt:         formatTimePtr(s.ExpiresAt),
	}
	if s.MaxResponses != nil {
		remaining := *s.MaxResponses - s.CurrentResponses
		if remaining < 0 {
			remaining = 0
		}
		item.RemainingSlots = &remaining
	}
	return item
}

func toEarningItem(e *model.Earning) *dto.EarningItem {
	return &dto.EarningItem{
		ID:          e.ID,
		Amount:      e.Amount,
		SourceType:  e.SourceType,
		Description: e.Description,
		Status:      e.Status,
		EarnedAt:    formatTime(e.EarnedAt),
		PaidAt:      formatTimePtr(e.PaidAt),
	}
}

func toPayoutItem(p *model.Payout) *dto.PayoutItem {
	return &dto.PayoutItem{
		ID:            p.ID,
		Amount:        p.Amount,
		Method:        p.Method,
		Status:        p.Status,
		ExternalID:    p.ExternalID,
		FailureReason: p.FailureReason,
		RequestedAt:   formatTime(p.RequestedAt),
		ProcessedAt:   formatTimePtr(p.ProcessedAt),
		PaidAt:        formatTimePtr(p.PaidAt),
	}
}

func toPermissionItem(p *model.PermissionWithType) *dto.PermissionItem {
	return &dto.PermissionItem{
		ID:           p.ID,
		DataTypeID:   p.DataTypeID,
		DataTypeName: p.DataTypeName,
		Icon:         p.Icon,
		MonthlyValue: p.MonthlyValue,
		Enabled:      p.Enabled,
		GrantedAt:    formatTimePtr(p.GrantedAt),
		LastAccessed: formatTimePtr(p.LastAccessed),
	}
}

func toActivityItem(a *model.Activity) *dto.ActivityItem {
	return &dto.ActivityItem{
		ID:           a.ID,
		Title:        a.Title,
		Description:  a.Description,
		ActivityType: a.ActivityType,
		Earning:      a.Earning,
		Company:      a.Company,
		CreatedAt:    formatTime(a.CreatedAt),
	}
}
