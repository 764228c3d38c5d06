package dto

// ActivityItem 动态
type ActivityItem struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description,omitempty"`
	ActivityType string  `json:"activity_type"`
	Earning      float64 `json:"earning"`
	Company      string  `json:"company,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

// ActivityTypeStat 按类型统计
type ActivityTypeStat struct {
	ActivityType string  `json:"activity_type"`
	Count        int64   `json:"count"`
	Earning      float64 `json:"earning"`
}

// ActivityStats 动态统计
type ActivityStats struct {
	Total        int64               `json:"total"`
	TotalEarning float64             `json:"total_earning"`
	ByType       []*ActivityTypeStat `json:"by_type"`
}
