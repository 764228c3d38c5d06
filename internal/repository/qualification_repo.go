package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/datafair_server/internal/model"
)

type QualificationRepository struct {
	db *gorm.DB
}

func NewQualificationRepository(db *gorm.DB) *QualificationRepository {
	return &QualificationRepository{db: db}
}

func (r *QualificationRepository) Create(record *model.QualificationResponse) error {
	return r.db.Create(record).Error
}

// Latest 获取用户在某问卷上最近一次资格检查
func (r *QualificationRepository) Latest(surveyID, userID int64) (*model.QualificationResponse, error) {
	var record model.QualificationResponse
	err := r.db.Where("survey_id = ? AND user_id = ?", surveyID, userID).
		Order("created_at DESC, id DESC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *QualificationRepository) ListBySurveyAndUser(surveyID, userID int64) ([]*model.QualificationResponse, error) {
	var records []*model.QualificationResponse
	err := r.db.Where("survey_id = ? AND user_id = ?", surveyID, userID).
		Order("id ASC").
		Find(&records).Error
	return records, err
}
