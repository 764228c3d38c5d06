package model

import (
	"time"
)

// DataType 可共享的数据类别
type DataType struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description  string    `gorm:"type:text" json:"description"`
	Icon         string    `gorm:"size:50" json:"icon"`
	MonthlyValue float64   `gorm:"type:decimal(10,2);not null;default:0" json:"monthly_value"`
	Category     string    `gorm:"size:50" json:"category"`
	IsActive     bool      `gorm:"not null" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

func (DataType) TableName() string {
	return "data_types"
}

// DataPermission 用户对某数据类别的授权，(user_id, data_type_id) 唯一
type DataPermission struct {
	ID           int64      `gorm:"primaryKey" json:"id"`
	UserID       int64      `gorm:"not null;uniqueIndex:idx_permission_user_type" json:"user_id"`
	DataTypeID   int64      `gorm:"not null;uniqueIndex:idx_permission_user_type" json:"data_type_id"`
	Enabled      bool       `gorm:"not null" json:"enabled"`
	GrantedAt    *time.Time `json:"granted_at,omitempty"`
	LastAccessed *time.Time `json:"last_accessed,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (DataPermission) TableName() string {
	return "data_permissions"
}

// PermissionWithType 授权与数据类别的联表结果
type PermissionWithType struct {
	DataPermission
	DataTypeName string  `json:"data_type_name"`
	Icon         string  `json:"icon"`
	MonthlyValue float64 `json:"monthly_value"`
}
