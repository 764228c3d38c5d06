package service

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/datafair_server/internal/model"
	"github.com/qs3c/datafair_server/internal/model/dto"
	"github.com/qs3c/datafair_server/internal/repository"
)

var (
	ErrDataTypeNotFound   = errors.New("数据类别不存在")
	ErrPermissionNotFound = errors.New("数据授权不存在")
)

type DataPermissionService struct {
	dataTypeRepo   *repository.DataTypeRepository
	permissionRepo *repository.PermissionRepository
	earningRepo    *repository.EarningRepository
}

func NewDataPermissionService(
	dataTypeRepo *repository.DataTypeRepository,
	permissionRepo *repository.PermissionRepository,
	earningRepo *repository.EarningRepository,
) *DataPermissionService {
	return &DataPermissionService{
		dataTypeRepo:   dataTypeRepo,
		permissionRepo: permissionRepo,
		earningRepo:    earningRepo,
	}
}

// ListDataTypes 启用中的数据类别，附带当前用户的授权状态
func (s *DataPermissionService) ListDataTypes(userID int64) ([]*dto.DataTypeItem, error) {
	types, err := s.dataTypeRepo.ListActive()
	if err != nil {
		return nil, err
	}
	perms, err := s.permissionRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}

	byType := make(map[int64]*model.PermissionWithType, len(perms))
	for _, p := range perms {
		byType[p.DataTypeID] = p
	}

	items := make([]*dto.DataTypeItem, 0, len(types))
	for _, t := range types {
		item := &dto.DataTypeItem{
			ID:           t.ID,
			Name:         t.Name,
			Description:  t.Description,
			Icon:         t.Icon,
			MonthlyValue: t.MonthlyValue,
			Category:     t.Category,
		}
		if p, ok := byType[t.ID]; ok {
			id := p.ID
			item.PermissionID = &id
			item.Enabled = p.Enabled
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *DataPermissionService) ListPermissions(userID int64) ([]*dto.PermissionItem, error) {
	perms, err := s.permissionRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.PermissionItem, 0, len(perms))
	for _, p := range perms {
		items = append(items, toPermissionItem(p))
	}
	return items, nil
}

// SetPermission 开启或关闭授权。关闭时保留记录，每次由关闭变为开启都会刷新 granted_at
func (s *DataPermissionService) SetPermission(userID, dataTypeID int64, enabled bool) (*dto.PermissionItem, error) {
	dataType, err := s.dataTypeRepo.GetByID(dataTypeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDataTypeNotFound
		}
		return nil, err
	}
	if !dataType.IsActive {
		return nil, ErrDataTypeNotFound
	}

	now := time.Now()
	perm, err := s.permissionRepo.GetByUserAndType(userID, dataTypeID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		perm = &model.DataPermission{
			UserID:     userID,
			DataTypeID: dataTypeID,
			Enabled:    enabled,
		}
		if enabled {
			perm.GrantedAt = &now
		}
		if err := s.permissionRepo.Create(perm); err != nil {
			return nil, err
		}

	case err != nil:
		return nil, err

	case perm.Enabled != enabled:
		fields := map[string]interface{}{"enabled": enabled}
		if enabled {
			fields["granted_at"] = now
			perm.GrantedAt = &now
		}
		if err := s.permissionRepo.UpdateFields(perm.ID, fields); err != nil {
			return nil, err
		}
		perm.Enabled = enabled
	}

	return toPermissionItem(&model.PermissionWithType{
		DataPermission: *perm,
		DataTypeName:   dataType.Name,
		Icon:           dataType.Icon,
		MonthlyValue:   dataType.MonthlyValue,
	}), nil
}

// DeletePermission 删除授权记录，非本人的授权视为不存在
func (s *DataPermissionService) DeletePermission(userID, permissionID int64) error {
	perm, err := s.permissionRepo.GetByID(permissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPermissionNotFound
		}
		return err
	}
	if perm.UserID != userID {
		return ErrPermissionNotFound
	}
	return s.permissionRepo.Delete(perm.ID)
}

// Usage 数据共享概况
func (s *DataPermissionService) Usage(userID int64) (*dto.DataUsage, error) {
	perms, err := s.permissionRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	earned, err := s.earningRepo.TotalBySource(userID, model.EarningSourceDataSharing)
	if err != nil {
		return nil, err
	}

	usage := &dto.DataUsage{
		TotalEarned: roundCents(earned),
		Permissions: make([]*dto.PermissionItem, 0, len(perms)),
	}
	for _, p := range perms {
		if p.Enabled {
			usage.EnabledCount++
			usage.MonthlyPotential += p.MonthlyValue
		}
		usage.Permissions = append(usage.Permissions, toPermissionItem(p))
	}
	usage.MonthlyPotential = roundCents(usage.MonthlyPotential)
	return usage, nil
}
