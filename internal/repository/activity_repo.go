package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/datafair_server/internal/model"
)

type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) WithTx(tx *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: tx}
}

func (r *ActivityRepository) Create(activity *model.Activity) error {
	return r.db.Create(activity).Error
}

func (r *ActivityRepository) GetByID(id int64) (*model.Activity, error) {
	var activity model.Activity
	err := r.db.Where("id = ?", id).First(&activity).Error
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

// List 分页获取用户动态
func (r *ActivityRepository) List(userID int64, activityType string, page, pageSize int) ([]*model.Activity, int64, error) {
	var activities []*model.Activity
	var total int64

	query := r.db.Model(&model.Activity{}).Where("user_id = ?", userID)
	if activityType != "" {
		query = query.Where("activity_type = ?", activityType)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(pageSize).Find(&activities).Error; err != nil {
		return nil, 0, err
	}

	return activities, total, nil
}

// TypeCount 按类型汇总
type TypeCount struct {
	ActivityType string  `json:"activity_type"`
	Count        int64   `json:"count"`
	Earning      float64 `json:"earning"`
}

// StatsByType 按类型统计动态数量与收益
func (r *ActivityRepository) StatsByType(userID int64) ([]*TypeCount, error) {
	var rows []*TypeCount
	err := r.db.Model(&model.Activity{}).
		Select("activity_type, COUNT(*) AS count, COALESCE(SUM(earning), 0) AS earning").
		Where("user_id = ?", userID).
		Group("activity_type").
		Order("activity_type ASC").
		Scan(&rows).Error
	return rows, err
}
