package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/datafair_server/internal/model"
)

type PayoutRepository struct {
	db *gorm.DB
}

func NewPayoutRepository(db *gorm.DB) *PayoutRepository {
	return &PayoutRepository{db: db}
}

func (r *PayoutRepository) WithTx(tx *gorm.DB) *PayoutRepository {
	return &PayoutRepository{db: tx}
}

func (r *PayoutRepository) Create(payout *model.Payout) error {
	return r.db.Create(payout).Error
}

func (r *PayoutRepository) GetByID(id int64) (*model.Payout, error) {
	var payout model.Payout
	err := r.db.Where("id = ?", id).First(&payout).Error
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *PayoutRepository) LockByID(id int64) (*model.Payout, error) {
	var payout model.Payout
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&payout).Error
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

// CommittedTotal 未失败提现总额（pending + processing + completed）
func (r *PayoutRepository) CommittedTotal(userID int64) (float64, error) {
	var total float64
	err := r.db.Model(&model.Payout{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND status <> ?", userID, model.PayoutStatusFailed).
		Scan(&total).Error
	return total, err
}

// PendingTotal 处理中的提现总额
func (r *PayoutRepository) PendingTotal(userID int64) (float64, error) {
	var total float64
	err := r.db.Model(&model.Payout{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND status IN ?", userID,
			[]string{model.PayoutStatusPending, model.PayoutStatusProcessing}).
		Scan(&total).Error
	return total, err
}

// CountInFlight 尚未结算的提现笔数
func (r *PayoutRepository) CountInFlight(userID int64) (int64, error) {
	var count int64
	err := r.db.Model(&model.Payout{}).
		Where("user_id = ? AND status IN ?", userID,
			[]string{model.PayoutStatusPending, model.PayoutStatusProcessing}).
		Count(&count).Error
	return count, err
}

// CompletedTotal 已完成提现总额
func (r *PayoutRepository) CompletedTotal(userID int64) (float64, error) {
	var total float64
	err := r.db.Model(&model.Payout{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND status = ?", userID, model.PayoutStatusCompleted).
		Scan(&total).Error
	return total, err
}

func (r *PayoutRepository) ListByUser(userID int64, page, pageSize int) ([]*model.Payout, int64, error) {
	var payouts []*model.Payout
	var total int64

	query := r.db.Model(&model.Payout{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Order("requested_at DESC, id DESC").Offset(offset).Limit(pageSize).Find(&payouts).Error; err != nil {
		return nil, 0, err
	}

	return payouts, total, nil
}

// ListByStatus 按状态获取提现，用于补偿入队
func (r *PayoutRepository) ListByStatus(status string, limit int) ([]*model.Payout, error) {
	var payouts []*model.Payout
	err := r.db.Where("status = ?", status).Order("id ASC").Limit(limit).Find(&payouts).Error
	return payouts, err
}

// Transition 条件状态迁移，当前状态不为 from 时不更新
func (r *PayoutRepository) Transition(id int64, from string, fields map[string]interface{}) (int64, error) {
	result := r.db.Model(&model.Payout{}).
		Where("id = ? AND status = ?", id, from).
		Updates(fields)
	return result.RowsAffected, result.Error
}
