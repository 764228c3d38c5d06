package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/datafair_server/internal/model"
)

type ResponseRepository struct {
	db *gorm.DB
}

func NewResponseRepository(db *gorm.DB) *ResponseRepository {
	return &ResponseRepository{db: db}
}

func (r *ResponseRepository) WithTx(tx *gorm.DB) *ResponseRepository {
	return &ResponseRepository{db: tx}
}

func (r *ResponseRepository) Create(resp *model.SurveyResponse) error {
	return r.db.Create(resp).Error
}

func (r *ResponseRepository) GetByID(id int64) (*model.SurveyResponse, error) {
	var resp model.SurveyResponse
	err := r.db.Where("id = ?", id).First(&resp).Error
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// LockByID 行锁读取答卷（SELECT ... FOR UPDATE）
func (r *ResponseRepository) LockByID(id int64) (*model.SurveyResponse, error) {
	var resp model.SurveyResponse
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&resp).Error
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *ResponseRepository) GetBySurveyAndUser(surveyID, userID int64) (*model.SurveyResponse, error) {
	var resp model.SurveyResponse
	err := r.db.Where("survey_id = ? AND user_id = ?", surveyID, userID).First(&resp).Error
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateProgress 基于版本号的乐观更新，仅对进行中的答卷生效
func (r *ResponseRepository) UpdateProgress(id int64, version int, answers model.Answers, pct float64) (int64, error) {
	result := r.db.Model(&model.SurveyResponse{}).
		Where("id = ? AND version = ? AND status = ?", id, version, model.ResponseStatusStarted).
		Updates(map[string]interface{}{
			"answers":               answers,
			"completion_percentage": pct,
			"version":               gorm.Expr("version + 1"),
			"updated_at":            time.Now(),
		})
	return result.RowsAffected, result.Error
}

// MarkCompleted 将进行中的答卷置为完成，返回受影响行数
func (r *ResponseRepository) MarkCompleted(id int64, answers model.Answers, pct, earnings float64, completedAt time.Time) (int64, error) {
	result := r.db.Model(&model.SurveyResponse{}).
		Where("id = ? AND status = ?", id, model.ResponseStatusStarted).
		Updates(map[string]interface{}{
			"answers":               answers,
			"completion_percentage": pct,
			"earnings_amount":       earnings,
			"status":                model.ResponseStatusCompleted,
			"completed_at":          completedAt,
			"version":               gorm.Expr("version + 1"),
			"updated_at":            completedAt,
		})
	return result.RowsAffected, result.Error
}

// MarkAbandoned 将进行中的答卷置为放弃
func (r *ResponseRepository) MarkAbandoned(id int64, at time.Time) (int64, error) {
	result := r.db.Model(&model.SurveyResponse{}).
		Where("id = ? AND status = ?", id, model.ResponseStatusStarted).
		Updates(map[string]interface{}{
			"status":       model.ResponseStatusAbandoned,
			"abandoned_at": at,
			"version":      gorm.Expr("version + 1"),
			"updated_at":   at,
		})
	return result.RowsAffected, result.Error
}

// MarkStaleAbandoned 超时清理专用：答卷在 before 之后有过更新则不关闭
func (r *ResponseRepository) MarkStaleAbandoned(id int64, before, at time.Time) (int64, error) {
	result := r.db.Model(&model.SurveyResponse{}).
		Where("id = ? AND status = ? AND updated_at < ?", id, model.ResponseStatusStarted, before).
		Updates(map[string]interface{}{
			"status":       model.ResponseStatusAbandoned,
			"abandoned_at": at,
			"version":      gorm.Expr("version + 1"),
			"updated_at":   at,
		})
	return result.RowsAffected, result.Error
}

// CountStale 统计长时间未更新的进行中答卷
func (r *ResponseRepository) CountStale(before time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.SurveyResponse{}).
		Where("status = ? AND updated_at < ?", model.ResponseStatusStarted, before).
		Count(&count).Error
	return count, err
}

// ListStale 获取长时间未更新的进行中答卷
func (r *ResponseRepository) ListStale(before time.Time, limit int) ([]*model.SurveyResponse, error) {
	var responses []*model.SurveyResponse
	err := r.db.Where("status = ? AND updated_at < ?", model.ResponseStatusStarted, before).
		Order("updated_at ASC").
		Limit(limit).
		Find(&responses).Error
	return responses, err
}

// ListByUser 获取用户指定状态的答卷及问卷摘要
func (r *ResponseRepository) ListByUser(userID int64, statuses ...string) ([]*model.ResponseWithSurvey, error) {
	var rows []*model.ResponseWithSurvey
	query := r.db.Table("survey_responses").
		Select("survey_responses.*, surveys.title AS survey_title, surveys.category AS survey_category, surveys.base_reward AS survey_base_reward").
		Joins("JOIN surveys ON surveys.id = survey_responses.survey_id").
		Where("survey_responses.user_id = ?", userID)

	if len(statuses) > 0 {
		query = query.Where("survey_responses.status IN ?", statuses)
	}

	err := query.Order("survey_responses.updated_at DESC, survey_responses.id DESC").Scan(&rows).Error
	return rows, err
}

// ResponseStats 用户答卷统计
type ResponseStats struct {
	Started   int64
	Completed int64
	Earnings  float64
}

// StatsByUser 开始过的答卷数、已完成数及已完成答卷的奖励合计
func (r *ResponseRepository) StatsByUser(userID int64) (*ResponseStats, error) {
	var stats ResponseStats
	err := r.db.Model(&model.SurveyResponse{}).
		Select("COUNT(*) AS started, "+
			"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS completed, "+
			"COALESCE(SUM(CASE WHEN status = ? THEN earnings_amount ELSE 0 END), 0) AS earnings",
			model.ResponseStatusCompleted, model.ResponseStatusCompleted).
		Where("user_id = ?", userID).
		Scan(&stats).Error
	return &stats, err
}

// AbandonAllByUser 关闭用户全部进行中的答卷
func (r *ResponseRepository) AbandonAllByUser(userID int64, at time.Time) (int64, error) {
	result := r.db.Model(&model.SurveyResponse{}).
		Where("user_id = ? AND status = ?", userID, model.ResponseStatusStarted).
		Updates(map[string]interface{}{
			"status":       model.ResponseStatusAbandoned,
			"abandoned_at": at,
			"version":      gorm.Expr("version + 1"),
			"updated_at":   at,
		})
	return result.RowsAffected, result.Error
}

// CountByUserStatus 统计用户某状态的答卷数
func (r *ResponseRepository) CountByUserStatus(userID int64, status string) (int64, error) {
	var count int64
	err := r.db.Model(&model.SurveyResponse{}).
		Where("user_id = ? AND status = ?", userID, status).
		Count(&count).Error
	return count, err
}
