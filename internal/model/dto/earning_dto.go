package dto

import "github.com/qs3c/datafair_server/internal/model"

// EarningsOverview 收益概览
type EarningsOverview struct {
	TotalEarnings    float64               `json:"total_earnings"`
	ThisMonth        float64               `json:"this_month"`
	AvailableBalance float64               `json:"available_balance"`
	PendingPayouts   float64               `json:"pending_payouts"`
	PaidOut          float64               `json:"paid_out"`
	MonthlyPotential float64               `json:"monthly_potential"`
	MinPayout        float64               `json:"min_payout"`
	Monthly          []*model.MonthlyTotal `json:"monthly"`
}

// EarningItem 收益流水
type EarningItem struct {
	ID          int64   `json:"id"`
	Amount      float64 `json:"amount"`
	SourceType  string  `json:"source_type"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	EarnedAt    string  `json:"earned_at"`
	PaidAt      string  `json:"paid_at,omitempty"`
}

// PayoutRequest 提现申请
type PayoutRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
	Method string  `json:"method" binding:"required"`
}

// PayoutItem 提现记录
type PayoutItem struct {
	ID            int64   `json:"id"`
	Amount        float64 `json:"amount"`
	Method        string  `json:"method"`
	Status        string  `json:"status"`
	ExternalID    string  `json:"external_id,omitempty"`
	FailureReason string  `json:"failure_reason,omitempty"`
	RequestedAt   string  `json:"requested_at"`
	ProcessedAt   string  `json:"processed_at,omitempty"`
	PaidAt        string  `json:"paid_at,omitempty"`
}

// UpdatePayoutStatusRequest 提现结算（管理员）
type UpdatePayoutStatusRequest struct {
	Status     string `json:"status" binding:"required,oneof=processing completed failed"`
	ExternalID string `json:"external_id,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// BonusRequest 发放奖励（管理员）
type BonusRequest struct {
	UserID      int64   `json:"user_id" binding:"required"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Description string  `json:"description" binding:"required,max=255"`
}
