package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/datafair_server/internal/model"
)

type SurveyRepository struct {
	db *gorm.DB
}

func NewSurveyRepository(db *gorm.DB) *SurveyRepository {
	return &SurveyRepository{db: db}
}

func (r *SurveyRepository) WithTx(tx *gorm.DB) *SurveyRepository {
	return &SurveyRepository{db: tx}
}

// Create 创建问卷及其问题
func (r *SurveyRepository) Create(survey *model.Survey, questions []*model.Question) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(survey).Error; err != nil {
			return err
		}
		for i, q := range questions {
			q.SurveyID = survey.ID
			if q.Position == 0 {
				q.Position = i + 1
			}
		}
		if len(questions) == 0 {
			return nil
		}
		return tx.Create(&questions).Error
	})
}

func (r *SurveyRepository) GetByID(id int64) (*model.Survey, error) {
	var survey model.Survey
	err := r.db.Where("id = ?", id).First(&survey).Error
	if err != nil {
		return nil, err
	}
	return &survey, nil
}

// ListQuestions 按顺序获取问卷问题
func (r *SurveyRepository) ListQuestions(surveyID int64) ([]*model.Question, error) {
	var questions []*model.Question
	err := r.db.Where("survey_id = ?", surveyID).
		Order("position ASC, id ASC").
		Find(&questions).Error
	return questions, err
}

// ListAvailable 获取用户当前可参与的问卷，条件在查询时实时计算
func (r *SurveyRepository) ListAvailable(userID int64, now time.Time, category string) ([]*model.Survey, error) {
	var surveys []*model.Survey

	responded := r.db.Model(&model.SurveyResponse{}).
		Select("1").
		Where("survey_responses.survey_id = surveys.id AND survey_responses.user_id = ?", userID)

	query := r.db.Model(&model.Survey{}).
		Where("status = ?", model.SurveyStatusActive).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Where("max_responses IS NULL OR current_responses < max_responses").
		Where("NOT EXISTS (?)", responded)

	if category != "" {
		query = query.Where("category = ?", category)
	}

	err := query.Order("base_reward DESC, id ASC").Find(&surveys).Error
	return surveys, err
}

// IncrementResponses 原子递增已完成数，名额已满时不更新并返回 0
func (r *SurveyRepository) IncrementResponses(id int64) (int64, error) {
	result := r.db.Model(&model.Survey{}).
		Where("id = ?", id).
		Where("max_responses IS NULL OR current_responses < max_responses").
		UpdateColumn("current_responses", gorm.Expr("current_responses + 1"))
	return result.RowsAffected, result.Error
}

func (r *SurveyRepository) UpdateStatus(id int64, status string) (int64, error) {
	result := r.db.Model(&model.Survey{}).Where("id = ?", id).Update("status", status)
	return result.RowsAffected, result.Error
}

// CountByStatus 按状态统计问卷数
func (r *SurveyRepository) CountByStatus(status string) (int64, error) {
	var count int64
	err := r.db.Model(&model.Survey{}).Where("status = ?", status).Count(&count).Error
	return count, err
}
