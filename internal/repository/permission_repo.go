package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/datafair_server/internal/model"
)

type PermissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

func (r *PermissionRepository) WithTx(tx *gorm.DB) *PermissionRepository {
	return &PermissionRepository{db: tx}
}

func (r *PermissionRepository) Create(perm *model.DataPermission) error {
	return r.db.Create(perm).Error
}

func (r *PermissionRepository) GetByID(id int64) (*model.DataPermission, error) {
	var perm model.DataPermission
	err := r.db.Where("id = ?", id).First(&perm).Error
	if err != nil {
		return nil, err
	}
	return &perm, nil
}

func (r *PermissionRepository) GetByUserAndType(userID, dataTypeID int64) (*model.DataPermission, error) {
	var perm model.DataPermission
	err := r.db.Where("user_id = ? AND data_type_id = ?", userID, dataTypeID).First(&perm).Error
	if err != nil {
		return nil, err
	}
	return &perm, nil
}

func (r *PermissionRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.db.Model(&model.DataPermission{}).Where("id = ?", id).Updates(fields).Error
}

func (r *PermissionRepository) Delete(id int64) error {
	return r.db.Delete(&model.DataPermission{}, id).Error
}

func (r *PermissionRepository) joined() *gorm.DB {
	return r.db.Table("data_permissions").
		Select("data_permissions.*, data_types.name AS data_type_name, data_types.icon AS icon, data_types.monthly_value AS monthly_value").
		Joins("JOIN data_types ON data_types.id = data_permissions.data_type_id")
}

// ListByUser 获取用户全部授权（含数据类别信息）
func (r *PermissionRepository) ListByUser(userID int64) ([]*model.PermissionWithType, error) {
	var rows []*model.PermissionWithType
	err := r.joined().
		Where("data_permissions.user_id = ?", userID).
		Order("data_permissions.id ASC").
		Scan(&rows).Error
	return rows, err
}

// ListEnabled 获取所有启用中的授权，数据类别须为启用状态
func (r *PermissionRepository) ListEnabled() ([]*model.PermissionWithType, error) {
	var rows []*model.PermissionWithType
	err := r.joined().
		Where("data_permissions.enabled = ? AND data_types.is_active = ?", true, true).
		Order("data_permissions.id ASC").
		Scan(&rows).Error
	return rows, err
}

// EnabledMonthlyValue 用户已授权类别的月度价值之和
func (r *PermissionRepository) EnabledMonthlyValue(userID int64) (float64, error) {
	var total float64
	err := r.db.Table("data_permissions").
		Select("COALESCE(SUM(data_types.monthly_value), 0)").
		Joins("JOIN data_types ON data_types.id = data_permissions.data_type_id").
		Where("data_permissions.user_id = ? AND data_permissions.enabled = ? AND data_types.is_active = ?", userID, true, true).
		Scan(&total).Error
	return total, err
}

// TouchAccessed 更新最近访问时间
func (r *PermissionRepository) TouchAccessed(id int64, at time.Time) error {
	return r.db.Model(&model.DataPermission{}).Where("id = ?", id).UpdateColumn("last_accessed", at).Error
}

// DisableAllByUser 关闭用户全部授权，停止后续数据共享收益
func (r *PermissionRepository) DisableAllByUser(userID int64) error {
	return r.db.Model(&model.DataPermission{}).
		Where("user_id = ? AND enabled = ?", userID, true).
		Update("enabled", false).Error
}
