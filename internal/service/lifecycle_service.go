package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/datafair_server/config"
	"github.com/qs3c/datafair_server/internal/model"
	"github.com/qs3c/datafair_server/internal/model/dto"
	"github.com/qs3c/datafair_server/internal/pkg/metrics"
	"github.com/qs3c/datafair_server/internal/pkg/pubsub"
	"github.com/qs3c/datafair_server/internal/repository"
)

var (
	ErrResponseNotFound  = errors.New("答卷不存在")
	ErrAlreadyCompleted  = errors.New("该问卷已完成")
	ErrInvalidState      = errors.New("答卷当前状态不允许该操作")
	ErrConcurrentUpdate  = errors.New("答卷正在被其他请求修改，请重试")
	ErrUnknownQuestionID = fmt.Errorf("%w: 未知问题", model.ErrInvalidAnswer)
)

const (
	maxSaveRetries = 3
	staleBatchSize = 100
)

type LifecycleService struct {
	db                   *gorm.DB
	surveyRepo           *repository.SurveyRepository
	responseRepo         *repository.ResponseRepository
	earningRepo          *repository.EarningRepository
	activityRepo         *repository.ActivityRepository
	qualificationService *QualificationService
	publisher            LedgerPublisher
	reward               RewardFunc
	cfg                  *config.Config
}

func NewLifecycleService(
	db *gorm.DB,
	surveyRepo *repository.SurveyRepository,
	responseRepo *repository.ResponseRepository,
	earningRepo *repository.EarningRepository,
	activityRepo *repository.ActivityRepository,
	qualificationService *QualificationService,
	publisher LedgerPublisher,
	cfg *config.Config,
) *LifecycleService {
	return &LifecycleService{
		db:                   db,
		surveyRepo:           surveyRepo,
		responseRepo:         responseRepo,
		earningRepo:          earningRepo,
		activityRepo:         activityRepo,
		qualificationService: qualificationService,
		publisher:            publisher,
		reward:               RewardPolicy(cfg.Survey.RewardPolicy),
		cfg:                  cfg,
	}
}

// Start 开始或继续答卷。已完成返回 ErrAlreadyCompleted，问卷不可参与返回 ErrSurveyNotAvailable，
// 进行中的答卷重复调用返回同一份答卷
func (s *LifecycleService) Start(userID, surveyID int64) (*dto.StartResponse, error) {
	survey, err := s.surveyRepo.GetByID(surveyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSurveyNotFound
		}
		return nil, err
	}

	existing, err := s.responseRepo.GetBySurveyAndUser(surveyID, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil && existing.Status == model.ResponseStatusCompleted {
		return nil, ErrAlreadyCompleted
	}

	if unavailableReason(survey, time.Now()) != "" {
		return nil, ErrSurveyNotAvailable
	}

	questions, err := s.surveyRepo.ListQuestions(surveyID)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		if existing.Status != model.ResponseStatusStarted {
			return nil, ErrInvalidState
		}
		return &dto.StartResponse{
			ResponseID: existing.ID,
			Resumed:    true,
			Response:   toResponseDetail(existing),
			Questions:  questions,
		}, nil
	}

	// 资格结果在开始时确定，之后不再变化
	passed, err := s.qualificationService.Passed(survey, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	resp := &model.SurveyResponse{
		SurveyID:            surveyID,
		UserID:              userID,
		Answers:             model.Answers{},
		QualificationPassed: passed,
		Status:              model.ResponseStatusStarted,
		StartedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.responseRepo.Create(resp); err != nil {
		// 并发开始时唯一索引冲突，返回已创建的答卷
		if raced, getErr := s.responseRepo.GetBySurveyAndUser(surveyID, userID); getErr == nil {
			if raced.Status == model.ResponseStatusCompleted {
				return nil, ErrAlreadyCompleted
			}
			return &dto.StartResponse{
				ResponseID: raced.ID,
				Resumed:    true,
				Response:   toResponseDetail(raced),
				Questions:  questions,
			}, nil
		}
		return nil, err
	}

	metrics.ResponsesStartedTotal.Inc()

	return &dto.StartResponse{
		ResponseID: resp.ID,
		Response:   toResponseDetail(resp),
		Questions:  questions,
	}, nil
}

// GetResponse 获取本人的答卷
func (s *LifecycleService) GetResponse(userID, responseID int64) (*dto.ResponseDetail, error) {
	resp, err := s.ownedResponse(userID, responseID)
	if err != nil {
		return nil, err
	}
	return toResponseDetail(resp), nil
}

// SaveProgress 合并部分答案并重新计算完成度，仅允许进行中的答卷。
// 基于版本号乐观更新，冲突时重读后重试
func (s *LifecycleService) SaveProgress(userID, responseID int64, answers model.Answers) (*dto.ResponseDetail, error) {
	resp, err := s.ownedResponse(userID, responseID)
	if err != nil {
		return nil, err
	}
	if resp.Status != model.ResponseStatusStarted {
		return nil, ErrInvalidState
	}

	questions, err := s.surveyRepo.ListQuestions(resp.SurveyID)
	if err != nil {
		return nil, err
	}

	coerced, err := coerceAnswers(questions, answers)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxSaveRetries; attempt++ {
		if attempt > 0 {
			if resp, err = s.ownedResponse(userID, responseID); err != nil {
				return nil, err
			}
			if resp.Status != model.ResponseStatusStarted {
				return nil, ErrInvalidState
			}
		}

		merged := resp.Answers.Merge(coerced)
		pct := nextCompletion(resp.CompletionPercentage, questions, merged)

		rows, err := s.responseRepo.UpdateProgress(resp.ID, resp.Version, merged, pct)
		if err != nil {
			return nil, err
		}
		if rows == 1 {
			resp.Answers = merged
			resp.CompletionPercentage = pct
			resp.Version++
			return toResponseDetail(resp), nil
		}
	}

	return nil, ErrConcurrentUpdate
}

// Submit 合并最终答案并完成答卷。
// 状态变更、收益入账、名额计数和动态记录在同一事务中完成，任一步失败整体回滚
func (s *LifecycleService) Submit(ctx context.Context, userID, responseID int64, answers model.Answers) (*dto.SubmitResponse, error) {
	resp, err := s.ownedResponse(userID, responseID)
	if err != nil {
		return nil, err
	}
	if resp.Status != model.ResponseStatusStarted {
		return nil, ErrInvalidState
	}

	questions, err := s.surveyRepo.ListQuestions(resp.SurveyID)
	if err != nil {
		return nil, err
	}

	coerced, err := coerceAnswers(questions, answers)
	if err != nil {
		return nil, err
	}

	var (
		completed *model.SurveyResponse
		earning   *model.Earning
		survey    *model.Survey
	)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		responseRepo := s.responseRepo.WithTx(tx)
		surveyRepo := s.surveyRepo.WithTx(tx)

		locked, err := responseRepo.LockByID(responseID)
		if err != nil {
			return err
		}
		if locked.Status != model.ResponseStatusStarted {
			return ErrInvalidState
		}

		survey, err = surveyRepo.GetByID(locked.SurveyID)
		if err != nil {
			return err
		}

		merged := locked.Answers.Merge(coerced)
		pct := nextCompletion(locked.CompletionPercentage, questions, merged)
		amount := s.reward(locked.QualificationPassed, pct, survey.BaseReward)
		now := time.Now()

		rows, err := responseRepo.MarkCompleted(locked.ID, merged, pct, amount, now)
		if err != nil {
			return err
		}
		if rows != 1 {
			return ErrInvalidState
		}

		// 名额计数条件递增，已满时整体回滚
		rows, err = surveyRepo.IncrementResponses(survey.ID)
		if err != nil {
			return err
		}
		if rows != 1 {
			return ErrSurveyNotAvailable
		}

		earning = &model.Earning{
			UserID:           userID,
			Amount:           amount,
			SourceType:       model.EarningSourceSurvey,
			SourceID:         &survey.ID,
			SurveyResponseID: &locked.ID,
			Description:      fmt.Sprintf("Umfrage abgeschlossen: %s", survey.Title),
			Status:           model.EarningStatusEarned,
			EarnedAt:         now,
		}
		if err := s.earningRepo.WithTx(tx).Create(earning); err != nil {
			return err
		}

		activity := &model.Activity{
			UserID:       userID,
			Title:        "Umfrage abgeschlossen",
			Description:  fmt.Sprintf("Du hast die Umfrage \"%s\" abgeschlossen.", survey.Title),
			ActivityType: model.ActivitySurveyCompleted,
			Earning:      amount,
			Company:      survey.Company,
		}
		if err := s.activityRepo.WithTx(tx).Create(activity); err != nil {
			return err
		}

		locked.Answers = merged
		locked.CompletionPercentage = pct
		locked.EarningsAmount = amount
		locked.Status = model.ResponseStatusCompleted
		locked.CompletedAt = &now
		completed = locked
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResponseNotFound
		}
		return nil, err
	}

	metrics.ResponsesCompletedTotal.WithLabelValues(survey.Category).Inc()
	metrics.EarningsCreditedTotal.WithLabelValues(model.EarningSourceSurvey).Add(earning.Amount)

	publishLedger(ctx, s.publisher, &pubsub.LedgerEvent{
		Type:        pubsub.EventEarningCredited,
		UserID:      userID,
		ReferenceID: earning.ID,
		Amount:      earning.Amount,
		SourceType:  earning.SourceType,
	})

	return &dto.SubmitResponse{
		ResponseDetail: toResponseDetail(completed),
		EarningID:      &earning.ID,
	}, nil
}

// Abandon 用户主动放弃进行中的答卷
func (s *LifecycleService) Abandon(ctx context.Context, userID, responseID int64) (*dto.ResponseDetail, error) {
	resp, err := s.ownedResponse(userID, responseID)
	if err != nil {
		return nil, err
	}
	if resp.Status != model.ResponseStatusStarted {
		return nil, ErrInvalidState
	}

	now := time.Now()
	rows, err := s.responseRepo.MarkAbandoned(resp.ID, now)
	if err != nil {
		return nil, err
	}
	if rows != 1 {
		return nil, ErrInvalidState
	}

	metrics.ResponsesAbandonedTotal.WithLabelValues("user").Inc()

	resp.Status = model.ResponseStatusAbandoned
	resp.AbandonedAt = &now
	return toResponseDetail(resp), nil
}

// AbandonStale 关闭超过 olderThan 未更新的进行中答卷，dryRun 时只统计数量
func (s *LifecycleService) AbandonStale(ctx context.Context, olderThan time.Duration, dryRun bool) (int, error) {
	before := time.Now().Add(-olderThan)

	if dryRun {
		count, err := s.responseRepo.CountStale(before)
		if err != nil {
			return 0, err
		}
		return int(count), nil
	}

	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		stale, err := s.responseRepo.ListStale(before, staleBatchSize)
		if err != nil {
			return total, err
		}
		if len(stale) == 0 {
			break
		}

		closed := 0
		now := time.Now()
		for _, resp := range stale {
			// 列出之后用户可能刚保存过进度，条件更新会跳过这类答卷
			rows, err := s.responseRepo.MarkStaleAbandoned(resp.ID, before, now)
			if err != nil {
				return total, err
			}
			if rows == 0 {
				continue
			}
			closed++
			publishLedger(ctx, s.publisher, &pubsub.LedgerEvent{
				Type:        pubsub.EventResponseClosed,
				UserID:      resp.UserID,
				ReferenceID: resp.ID,
				Status:      model.ResponseStatusAbandoned,
			})
		}

		total += closed
		metrics.ResponsesAbandonedTotal.WithLabelValues("sweep").Add(float64(closed))

		if len(stale) < staleBatchSize || closed == 0 {
			break
		}
	}

	if total > 0 {
		log.Printf("Abandon sweep: closed %d responses idle since %s", total, before.Format(time.RFC3339))
	}
	return total, nil
}

func (s *LifecycleService) ownedResponse(userID, responseID int64) (*model.SurveyResponse, error) {
	resp, err := s.responseRepo.GetByID(responseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResponseNotFound
		}
		return nil, err
	}
	if resp.UserID != userID {
		return nil, ErrResponseNotFound
	}
	return resp, nil
}

// coerceAnswers 按问题类型校验答案，未知问题 ID 直接拒绝
func coerceAnswers(questions []*model.Question, answers model.Answers) (model.Answers, error) {
	byKey := make(map[string]*model.Question, len(questions))
	for _, q := range questions {
		byKey[q.Key] = q
	}

	coerced := make(model.Answers, len(answers))
	for key, value := range answers {
		q, ok := byKey[key]
		if !ok {
			return nil, fmt.Errorf("%w %s", ErrUnknownQuestionID, key)
		}
		v, err := q.Coerce(value)
		if err != nil {
			return nil, err
		}
		coerced[key] = v
	}
	return coerced, nil
}

// nextCompletion 完成度只增不减
func nextCompletion(current float64, questions []*model.Question, answers model.Answers) float64 {
	pct := CompletionPercentage(questions, answers)
	if pct < current {
		return current
	}
	return pct
}
