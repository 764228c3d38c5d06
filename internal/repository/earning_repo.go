package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/datafair_server/internal/model"
)

type EarningRepository struct {
	db *gorm.DB
}

func NewEarningRepository(db *gorm.DB) *EarningRepository {
	return &EarningRepository{db: db}
}

func (r *EarningRepository) WithTx(tx *gorm.DB) *EarningRepository {
	return &EarningRepository{db: tx}
}

func (r *EarningRepository) Create(earning *model.Earning) error {
	return r.db.Create(earning).Error
}

func (r *EarningRepository) GetByResponseID(responseID int64) (*model.Earning, error) {
	var earning model.Earning
	err := r.db.Where("survey_response_id = ?", responseID).First(&earning).Error
	if err != nil {
		return nil, err
	}
	return &earning, nil
}

// CreditedTotal 已入账收益总额（earned + paid）
func (r *EarningRepository) CreditedTotal(userID int64) (float64, error) {
	var total float64
	err := r.db.Model(&model.Earning{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND status IN ?", userID, []string{model.EarningStatusEarned, model.EarningStatusPaid}).
		Scan(&total).Error
	return total, err
}

// TotalSince 某时间点之后的入账收益
func (r *EarningRepository) TotalSince(userID int64, since time.Time) (float64, error) {
	var total float64
	err := r.db.Model(&model.Earning{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND status IN ? AND earned_at >= ?", userID,
			[]string{model.EarningStatusEarned, model.EarningStatusPaid}, since).
		Scan(&total).Error
	return total, err
}

// ListSince 某时间点之后的入账收益明细，按时间升序
func (r *EarningRepository) ListSince(userID int64, since time.Time) ([]*model.Earning, error) {
	var earnings []*model.Earning
	err := r.db.Where("user_id = ? AND status IN ? AND earned_at >= ?", userID,
		[]string{model.EarningStatusEarned, model.EarningStatusPaid}, since).
		Order("earned_at ASC, id ASC").
		Find(&earnings).Error
	return earnings, err
}

// List 分页获取收益流水
func (r *EarningRepository) List(userID int64, sourceType string, page, pageSize int) ([]*model.Earning, int64, error) {
	var earnings []*model.Earning
	var total int64

	query := r.db.Model(&model.Earning{}).Where("user_id = ?", userID)
	if sourceType != "" {
		query = query.Where("source_type = ?", sourceType)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Order("earned_at DESC, id DESC").Offset(offset).Limit(pageSize).Find(&earnings).Error; err != nil {
		return nil, 0, err
	}

	return earnings, total, nil
}

// ListUnpaid 未结算收益，最早的在前
func (r *EarningRepository) ListUnpaid(userID int64) ([]*model.Earning, error) {
	var earnings []*model.Earning
	err := r.db.Where("user_id = ? AND status = ?", userID, model.EarningStatusEarned).
		Order("earned_at ASC, id ASC").
		Find(&earnings).Error
	return earnings, err
}

// MarkPaid 结算收益，paid_at 仅写入一次
func (r *EarningRepository) MarkPaid(ids []int64, paidAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Model(&model.Earning{}).
		Where("id IN ? AND status = ? AND paid_at IS NULL", ids, model.EarningStatusEarned).
		Updates(map[string]interface{}{
			"status":  model.EarningStatusPaid,
			"paid_at": paidAt,
		}).Error
}

// ExistsForSource 判断某来源在时间点之后是否已记账
func (r *EarningRepository) ExistsForSource(userID int64, sourceType string, sourceID int64, since time.Time) (bool, error) {
	var count int64
	err := r.db.Model(&model.Earning{}).
		Where("user_id = ? AND source_type = ? AND source_id = ? AND earned_at >= ?", userID, sourceType, sourceID, since).
		Count(&count).Error
	return count > 0, err
}

// ExistsBySource 判断用户是否已有该来源的收益
func (r *EarningRepository) ExistsBySource(userID int64, sourceType string) (bool, error) {
	var count int64
	err := r.db.Model(&model.Earning{}).
		Where("user_id = ? AND source_type = ?", userID, sourceType).
		Count(&count).Error
	return count > 0, err
}

// TotalBySource 某来源的入账收益总额
func (r *EarningRepository) TotalBySource(userID int64, sourceType string) (float64, error) {
	var total float64
	err := r.db.Model(&model.Earning{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND source_type = ? AND status IN ?", userID, sourceType,
			[]string{model.EarningStatusEarned, model.EarningStatusPaid}).
		Scan(&total).Error
	return total, err
}
