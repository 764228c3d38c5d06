package model

import (
	"time"
)

// 收益来源
const (
	EarningSourceSurvey      = "survey"
	EarningSourceDataSharing = "data_sharing"
	EarningSourceBonus       = "bonus"
	EarningSourceActivation  = "activation"
)

// 收益状态
const (
	EarningStatusEarned  = "earned"
	EarningStatusPaid    = "paid"
	EarningStatusPending = "pending"
)

// Earning 收益流水，创建后仅允许 status/paid_at 变更。
// 周期性收益（数据共享）带 Period（YYYY-MM），同一来源同一周期只能入账一次
type Earning struct {
	ID               int64      `gorm:"primaryKey" json:"id"`
	UserID           int64      `gorm:"not null;index" json:"user_id"`
	Amount           float64    `gorm:"type:decimal(10,2);not null" json:"amount"`
	SourceType       string     `gorm:"size:20;not null;index;uniqueIndex:idx_earnings_source_period,priority:1" json:"source_type"`
	SourceID         *int64     `gorm:"uniqueIndex:idx_earnings_source_period,priority:2" json:"source_id,omitempty"`
	Period           *string    `gorm:"size:7;uniqueIndex:idx_earnings_source_period,priority:3" json:"period,omitempty"`
	SurveyResponseID *int64     `gorm:"uniqueIndex" json:"survey_response_id,omitempty"`
	Description      string     `gorm:"size:255" json:"description"`
	Status           string     `gorm:"size:20;not null;default:earned;index" json:"status"`
	EarnedAt         time.Time  `gorm:"index" json:"earned_at"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
}

func (Earning) TableName() string {
	return "earnings"
}

// MonthlyTotal 按月汇总
type MonthlyTotal struct {
	Month  string  `json:"month"` // YYYY-MM
	Amount float64 `json:"amount"`
}
