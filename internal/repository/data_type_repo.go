package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/datafair_server/internal/model"
)

type DataTypeRepository struct {
	db *gorm.DB
}

func NewDataTypeRepository(db *gorm.DB) *DataTypeRepository {
	return &DataTypeRepository{db: db}
}

func (r *DataTypeRepository) Create(dataType *model.DataType) error {
	return r.db.Create(dataType).Error
}

func (r *DataTypeRepository) GetByID(id int64) (*model.DataType, error) {
	var dataType model.DataType
	err := r.db.Where("id = ?", id).First(&dataType).Error
	if err != nil {
		return nil, err
	}
	return &dataType, nil
}

func (r *DataTypeRepository) GetByName(name string) (*model.DataType, error) {
	var dataType model.DataType
	err := r.db.Where("name = ?", name).First(&dataType).Error
	if err != nil {
		return nil, err
	}
	return &dataType, nil
}

// ListActive 获取启用的数据类别
func (r *DataTypeRepository) ListActive() ([]*model.DataType, error) {
	var dataTypes []*model.DataType
	err := r.db.Where("is_active = ?", true).Order("id ASC").Find(&dataTypes).Error
	return dataTypes, err
}
