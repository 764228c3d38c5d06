package service

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/datafair_server/internal/model"
	"github.com/qs3c/datafair_server/internal/model/dto"
	"github.com/qs3c/datafair_server/internal/repository"
)

var (
	ErrSurveyNotFound      = errors.New("问卷不存在")
	ErrSurveyNotAvailable  = errors.New("问卷当前不可参与")
	ErrInvalidCategory     = errors.New("无效的问卷分类")
	ErrInvalidSurvey       = errors.New("问卷定义不合法")
	ErrInvalidSurveyStatus = errors.New("无效的问卷状态")
)

var validSurveyStatuses = map[string]bool{
	model.SurveyStatusActive:    true,
	model.SurveyStatusPaused:    true,
	model.SurveyStatusCompleted: true,
	model.SurveyStatusArchived:  true,
}

type CatalogService struct {
	surveyRepo   *repository.SurveyRepository
	responseRepo *repository.ResponseRepository
}

func NewCatalogService(surveyRepo *repository.SurveyRepository, responseRepo *repository.ResponseRepository) *CatalogService {
	return &CatalogService{
		surveyRepo:   surveyRepo,
		responseRepo: responseRepo,
	}
}

// unavailableReason 在调用时刻计算参与条件，返回空字符串表示可参与
func unavailableReason(s *model.Survey, now time.Time) string {
	switch {
	case s.Status != model.SurveyStatusActive:
		return "问卷未开放"
	case s.IsExpired(now):
		return "问卷已过期"
	case s.IsFull():
		return "问卷名额已满"
	}
	return ""
}

// ListAvailable 用户可参与的问卷，按奖励降序
func (s *CatalogService) ListAvailable(userID int64, category string) ([]*dto.SurveyListItem, error) {
	if category != "" {
		if _, ok := model.SurveyCategories[category]; !ok {
			return nil, ErrInvalidCategory
		}
	}

	surveys, err := s.surveyRepo.ListAvailable(userID, time.Now(), category)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.SurveyListItem, 0, len(surveys))
	for _, survey := range surveys {
		items = append(items, toSurveyListItem(survey))
	}
	return items, nil
}

// GetSurvey 问卷详情始终可读，是否可参与单独计算
func (s *CatalogService) GetSurvey(userID, surveyID int64) (*dto.SurveyDetail, error) {
	survey, err := s.surveyRepo.GetByID(surveyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSurveyNotFound
		}
		return nil, err
	}

	questions, err := s.surveyRepo.ListQuestions(surveyID)
	if err != nil {
		return nil, err
	}

	detail := &dto.SurveyDetail{
		SurveyListItem: *toSurveyListItem(survey),
		Status:         survey.Status,
		Questions:      questions,
	}
	for _, q := range survey.QualificationCriteria.Questions {
		detail.GatingQuestions = append(detail.GatingQuestions, &dto.GatingQuestionItem{ID: q.ID, Text: q.Text})
	}

	detail.UnavailableReason = unavailableReason(survey, time.Now())

	resp, err := s.responseRepo.GetBySurveyAndUser(surveyID, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if resp != nil {
		detail.ResponseID = &resp.ID
		detail.ResponseStatus = resp.Status
		switch resp.Status {
		case model.ResponseStatusCompleted:
			detail.UnavailableReason = "已完成该问卷"
		case model.ResponseStatusAbandoned:
			detail.UnavailableReason = "答卷已关闭"
		}
	}

	detail.Joinable = detail.UnavailableReason == ""
	return detail, nil
}

// ListCategories 分类列表，按代码排序
func (s *CatalogService) ListCategories() []*dto.CategoryItem {
	items := make([]*dto.CategoryItem, 0, len(model.SurveyCategories))
	for code, name := range model.SurveyCategories {
		items = append(items, &dto.CategoryItem{Code: code, Name: name})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Code < items[j].Code
	})
	return items
}

// ListInProgress 进行中的答卷
func (s *CatalogService) ListInProgress(userID int64) ([]*dto.ResponseSummary, error) {
	return s.listResponses(userID, model.ResponseStatusStarted)
}

// History 已完成或已关闭的答卷
func (s *CatalogService) History(userID int64) ([]*dto.ResponseSummary, error) {
	return s.listResponses(userID, model.ResponseStatusCompleted, model.ResponseStatusAbandoned)
}

func (s *CatalogService) listResponses(userID int64, statuses ...string) ([]*dto.ResponseSummary, error) {
	rows, err := s.responseRepo.ListByUser(userID, statuses...)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.ResponseSummary, 0, len(rows))
	for _, r := range rows {
		items = append(items, &dto.ResponseSummary{
			ResponseID:           r.ID,
			SurveyID:             r.SurveyID,
			SurveyTitle:          r.SurveyTitle,
			Category:             r.SurveyCategory,
			BaseReward:           r.SurveyBaseReward,
			Status:               r.Status,
			CompletionPercentage: r.CompletionPercentage,
			EarningsAmount:       r.EarningsAmount,
			StartedAt:            formatTime(r.StartedAt),
			CompletedAt:          formatTimePtr(r.CompletedAt),
			AbandonedAt:          formatTimePtr(r.AbandonedAt),
		})
	}
	return items, nil
}

// Stats 用户答卷统计，完成率保留一位小数
func (s *CatalogService) Stats(userID int64) (*dto.SurveyStats, error) {
	stats, err := s.responseRepo.StatsByUser(userID)
	if err != nil {
		return nil, err
	}

	var rate float64
	if stats.Started > 0 {
		rate = math.Round(float64(stats.Completed)/float64(stats.Started)*1000) / 10
	}

	return &dto.SurveyStats{
		SurveysStarted:   stats.Started,
		SurveysCompleted: stats.Completed,
		CompletionRate:   rate,
		TotalEarnings:    roundCents(stats.Earnings),
	}, nil
}

// CreateSurvey 创建问卷（管理员）
func (s *CatalogService) CreateSurvey(req *dto.CreateSurveyRequest) (*dto.CreateSurveyResponse, error) {
	if _, ok := model.SurveyCategories[req.Category]; !ok {
		return nil, ErrInvalidCategory
	}

	questions, err := buildQuestions(req.Questions)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, g := range req.QualificationCriteria.Questions {
		if strings.TrimSpace(g.ID) == "" {
			return nil, fmt.Errorf("%w: 筛选问题缺少 id", ErrInvalidSurvey)
		}
		if seen[g.ID] {
			return nil, fmt.Errorf("%w: 筛选问题 %s 重复", ErrInvalidSurvey, g.ID)
		}
		seen[g.ID] = true
	}

	if req.ExpiresAt != nil && !req.ExpiresAt.After(time.Now()) {
		return nil, fmt.Errorf("%w: 过期时间必须晚于当前时间", ErrInvalidSurvey)
	}

	duration := req.EstimatedDuration
	if duration == 0 {
		duration = 5
	}

	survey := &model.Survey{
		Title:                 req.Title,
		Description:           req.Description,
		Company:               req.Company,
		Category:              req.Category,
		BaseReward:            roundCents(req.BaseReward),
		EstimatedDuration:     duration,
		QualificationCriteria: req.QualificationCriteria,
		MaxResponses:          req.MaxResponses,
		Status:                model.SurveyStatusActive,
		ExpiresAt:             req.ExpiresAt,
	}

	if err := s.surveyRepo.Create(survey, questions); err != nil {
		return nil, err
	}

	return &dto.CreateSurveyResponse{SurveyID: survey.ID}, nil
}

func buildQuestions(reqs []*dto.CreateQuestionRequest) ([]*model.Question, error) {
	keys := make(map[string]bool, len(reqs))
	questions := make([]*model.Question, 0, len(reqs))

	for i, q := range reqs {
		key := strings.TrimSpace(q.ID)
		if key == "" {
			return nil, fmt.Errorf("%w: 第 %d 个问题缺少 id", ErrInvalidSurvey, i+1)
		}
		if keys[key] {
			return nil, fmt.Errorf("%w: 问题 %s 重复", ErrInvalidSurvey, key)
		}
		keys[key] = true

		if !model.ValidQuestionTypes[q.Type] {
			return nil, fmt.Errorf("%w: 问题 %s 类型 %s 不支持", ErrInvalidSurvey, key, q.Type)
		}
		if (q.Type == model.QuestionSingleChoice || q.Type == model.QuestionMultipleChoice) && len(q.Options) == 0 {
			return nil, fmt.Errorf("%w: 选择题 %s 缺少选项", ErrInvalidSurvey, key)
		}

		questions = append(questions, &model.Question{
			Key:      key,
			Text:     q.Text,
			Type:     q.Type,
			Options:  model.StringArray(q.Options),
			Required: q.Required,
			Position: i + 1,
		})
	}
	return questions, nil
}

// UpdateStatus 更新问卷状态（管理员）
func (s *CatalogService) UpdateStatus(surveyID int64, status string) error {
	if !validSurveyStatuses[status] {
		return ErrInvalidSurveyStatus
	}

	if _, err := s.surveyRepo.GetByID(surveyID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSurveyNotFound
		}
		return err
	}

	_, err := s.surveyRepo.UpdateStatus(surveyID, status)
	return err
}
