package dto

// DataTypeItem 数据类别及当前用户授权状态
type DataTypeItem struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Icon         string  `json:"icon"`
	MonthlyValue float64 `json:"monthly_value"`
	Category     string  `json:"category"`
	Enabled      bool    `json:"enabled"`
	PermissionID *int64  `json:"permission_id,omitempty"`
}

// PermissionItem 数据授权
type PermissionItem struct {
	ID           int64   `json:"id"`
	DataTypeID   int64   `json:"data_type_id"`
	DataTypeName string  `json:"data_type_name"`
	Icon         string  `json:"icon"`
	MonthlyValue float64 `json:"monthly_value"`
	Enabled      bool    `json:"enabled"`
	GrantedAt    string  `json:"granted_at,omitempty"`
	LastAccessed string  `json:"last_accessed,omitempty"`
}

// SetPermissionRequest 开启/关闭数据授权
type SetPermissionRequest struct {
	DataTypeID int64 `json:"data_type_id" binding:"required"`
	Enabled    *bool `json:"enabled" binding:"required"`
}

// DataUsage 数据共享概况
type DataUsage struct {
	EnabledCount     int               `json:"enabled_count"`
	MonthlyPotential float64           `json:"monthly_potential"`
	TotalEarned      float64           `json:"total_earned"`
	Permissions      []*PermissionItem `json:"permissions"`
}
