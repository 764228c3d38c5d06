package service

import (
	"errors"

	"gorm.io/gorm"

	"github.com/qs3c/datafair_server/internal/model/dto"
	"github.com/qs3c/datafair_server/internal/repository"
)

var ErrActivityNotFound = errors.New("动态不存在")

type ActivityService struct {
	activityRepo *repository.ActivityRepository
}

func NewActivityService(activityRepo *repository.ActivityRepository) *ActivityService {
	return &ActivityService{activityRepo: activityRepo}
}

func (s *ActivityService) List(userID int64, activityType string, page, pageSize int) ([]*dto.ActivityItem, int64, error) {
	activities, total, err := s.activityRepo.List(userID, activityType, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	items := make([]*dto.ActivityItem, 0, len(activities))
	for _, a := range activities {
		items = append(items, toActivityItem(a))
	}
	return items, total, nil
}

// Get 非本人的动态视为不存在
func (s *ActivityService) Get(userID, activityID int64) (*dto.ActivityItem, error) {
	activity, err := s.activityRepo.GetByID(activityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrActivityNotFound
		}
		return nil, err
	}
	if activity.UserID != userID {
		return nil, ErrActivityNotFound
	}
	return toActivityItem(activity), nil
}

func (s *ActivityService) Stats(userID int64) (*dto.ActivityStats, error) {
	rows, err := s.activityRepo.StatsByType(userID)
	if err != nil {
		return nil, err
	}

	stats := &dto.ActivityStats{ByType: make([]*dto.ActivityTypeStat, 0, len(rows))}
	for _, row := range rows {
		stats.Total += row.Count
		stats.TotalEarning += row.Earning
		stats.ByType = append(stats.ByType, &dto.ActivityTypeStat{
			ActivityType: row.ActivityType,
			Count:        row.Count,
			Earning:      roundCents(row.Earning),
		})
	}
	stats.TotalEarning = roundCents(stats.TotalEarning)
	return stats, nil
}
