package model

import (
	"time"
)

// 提现状态
const (
	PayoutStatusPending    = "pending"
	PayoutStatusProcessing = "processing"
	PayoutStatusCompleted  = "completed"
	PayoutStatusFailed     = "failed"
)

type Payout struct {
	ID            int64      `gorm:"primaryKey" json:"id"`
	UserID        int64      `gorm:"not null;index" json:"user_id"`
	Amount        float64    `gorm:"type:decimal(10,2);not null" json:"amount"`
	Method        string     `gorm:"size:20;not null" json:"method"` // paypal, bank, crypto
	Status        string     `gorm:"size:20;not null;default:pending;index" json:"status"`
	ExternalID    string     `gorm:"size:100" json:"external_id,omitempty"`
	FailureReason string     `gorm:"size:255" json:"failure_reason,omitempty"`
	RequestedAt   time.Time  `gorm:"index" json:"requested_at"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

func (Payout) TableName() string {
	return "payouts"
}

// IsTerminal 完成或失败后不再变更
func (p *Payout) IsTerminal() bool {
	return p.Status == PayoutStatusCompleted || p.Status == PayoutStatusFailed
}
