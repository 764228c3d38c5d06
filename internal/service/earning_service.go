package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
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
	ErrInvalidAmount     = errors.New("金额必须大于 0")
	ErrInvalidSourceType = errors.New("无效的收益来源")
)

const overviewMonths = 6

var validSourceTypes = map[string]bool{
	model.EarningSourceSurvey:      true,
	model.EarningSourceDataSharing: true,
	model.EarningSourceBonus:       true,
	model.EarningSourceActivation:  true,
}

type EarningService struct {
	db             *gorm.DB
	earningRepo    *repository.EarningRepository
	payoutRepo     *repository.PayoutRepository
	permissionRepo *repository.PermissionRepository
	activityRepo   *repository.ActivityRepository
	userRepo       *repository.UserRepository
	publisher      LedgerPublisher
	cfg            *config.Config
}

func NewEarningService(
	db *gorm.DB,
	earningRepo *repository.EarningRepository,
	payoutRepo *repository.PayoutRepository,
	permissionRepo *repository.PermissionRepository,
	activityRepo *repository.ActivityRepository,
	userRepo *repository.UserRepository,
	publisher LedgerPublisher,
	cfg *config.Config,
) *EarningService {
	return &EarningService{
		db:             db,
		earningRepo:    earningRepo,
		payoutRepo:     payoutRepo,
		permissionRepo: permissionRepo,
		activityRepo:   activityRepo,
		userRepo:       userRepo,
		publisher:      publisher,
		cfg:            cfg,
	}
}

// availableBalance 可提现余额 = 入账收益 - 未失败提现，不会小于 0。
// 在事务内调用时传入事务仓储，保证两次求和读取同一快照
func availableBalance(earningRepo *repository.EarningRepository, payoutRepo *repository.PayoutRepository, userID int64) (float64, error) {
	credited, err := earningRepo.CreditedTotal(userID)
	if err != nil {
		return 0, err
	}
	committed, err := payoutRepo.CommittedTotal(userID)
	if err != nil {
		return 0, err
	}
	return clampBalance(credited, committed), nil
}

func clampBalance(credited, committed float64) float64 {
	return math.Max(0, roundCents(credited-committed))
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// Overview 收益概览
func (s *EarningService) Overview(userID int64) (*dto.EarningsOverview, error) {
	credited, err := s.earningRepo.CreditedTotal(userID)
	if err != nil {
		return nil, err
	}
	committed, err := s.payoutRepo.CommittedTotal(userID)
	if err != nil {
		return nil, err
	}
	pending, err := s.payoutRepo.PendingTotal(userID)
	if err != nil {
		return nil, err
	}
	paid, err := s.payoutRepo.CompletedTotal(userID)
	if err != nil {
		return nil, err
	}
	potential, err := s.permissionRepo.EnabledMonthlyValue(userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	thisMonth, err := s.earningRepo.TotalSince(userID, monthStart(now))
	if err != nil {
		return nil, err
	}

	firstMonth := monthStart(now).AddDate(0, -(overviewMonths - 1), 0)
	recent, err := s.earningRepo.ListSince(userID, firstMonth)
	if err != nil {
		return nil, err
	}

	return &dto.EarningsOverview{
		TotalEarnings:    roundCents(credited),
		ThisMonth:        roundCents(thisMonth),
		AvailableBalance: clampBalance(credited, committed),
		PendingPayouts:   roundCents(pending),
		PaidOut:          roundCents(paid),
		MonthlyPotential: roundCents(potential),
		MinPayout:        s.cfg.Payout.MinAmount,
		Monthly:          monthlyTotals(recent, firstMonth, overviewMonths),
	}, nil
}

// monthlyTotals 按月汇总，没有收益的月份补 0
func monthlyTotals(earnings []*model.Earning, from time.Time, months int) []*model.MonthlyTotal {
	totals := make([]*model.MonthlyTotal, months)
	index := make(map[string]int, months)
	for i := 0; i < months; i++ {
		key := from.AddDate(0, i, 0).Format("2006-01")
		totals[i] = &model.MonthlyTotal{Month: key}
		index[key] = i
	}

	for _, e := range earnings {
		if i, ok := index[e.EarnedAt.In(from.Location()).Format("2006-01")]; ok {
			totals[i].Amount += e.Amount
		}
	}
	for _, t := range totals {
		t.Amount = roundCents(t.Amount)
	}
	return totals
}

// ListEarnings 收益流水
func (s *EarningService) ListEarnings(userID int64, sourceType string, page, pageSize int) ([]*dto.EarningItem, int64, error) {
	if sourceType != "" && !validSourceTypes[sourceType] {
		return nil, 0, ErrInvalidSourceType
	}

	earnings, total, err := s.earningRepo.List(userID, sourceType, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	items := make([]*dto.EarningItem, 0, len(earnings))
	for _, e := range earnings {
		items = append(items, toEarningItem(e))
	}
	return items, total, nil
}

// AddBonus 发放奖励（管理员）
func (s *EarningService) AddBonus(ctx context.Context, req *dto.BonusRequest) (*dto.EarningItem, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if _, err := s.userRepo.GetByID(req.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	earning := &model.Earning{
		UserID:      req.UserID,
		Amount:      roundCents(req.Amount),
		SourceType:  model.EarningSourceBonus,
		Description: req.Description,
		Status:      model.EarningStatusEarned,
		EarnedAt:    time.Now(),
	}
	activity := &model.Activity{
		UserID:       req.UserID,
		Title:        "Bonus erhalten",
		Description:  req.Description,
		ActivityType: model.ActivityBonus,
		Earning:      earning.Amount,
		Company:      "DataFair",
	}

	if err := s.credit(ctx, earning, activity); err != nil {
		return nil, err
	}
	return toEarningItem(earning), nil
}

// CreditActivation 注册激活奖励，每个用户只发放一次，未配置时跳过
func (s *EarningService) CreditActivation(ctx context.Context, userID int64) error {
	amount := s.cfg.Earnings.ActivationBonus
	if amount <= 0 {
		return nil
	}

	exists, err := s.earningRepo.ExistsBySource(userID, model.EarningSourceActivation)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	earning := &model.Earning{
		UserID:      userID,
		Amount:      roundCents(amount),
		SourceType:  model.EarningSourceActivation,
		Description: "Willkommensbonus",
		Status:      model.EarningStatusEarned,
		EarnedAt:    time.Now(),
	}
	activity := &model.Activity{
		UserID:       userID,
		Title:        "Willkommensbonus",
		Description:  "Danke für deine Registrierung bei DataFair.",
		ActivityType: model.ActivityBonus,
		Earning:      earning.Amount,
		Company:      "DataFair",
	}
	return s.credit(ctx, earning, activity)
}

// GenerateDataSharing 为每个启用中的数据授权发放当月共享收益，同一授权每月只发放一次
func (s *EarningService) GenerateDataSharing(ctx context.Context) (int, error) {
	perms, err := s.permissionRepo.ListEnabled()
	if err != nil {
		return 0, err
	}

	now := time.Now()
	since := monthStart(now)
	period := now.Format("2006-01")
	credited := 0

	for _, perm := range perms {
		if err := ctx.Err(); err != nil {
			return credited, err
		}
		if perm.MonthlyValue <= 0 {
			continue
		}

		exists, err := s.earningRepo.ExistsForSource(perm.UserID, model.EarningSourceDataSharing, perm.ID, since)
		if err != nil {
			return credited, err
		}
		if exists {
			continue
		}

		permID := perm.ID
		earning := &model.Earning{
			UserID:      perm.UserID,
			Amount:      roundCents(perm.MonthlyValue),
			SourceType:  model.EarningSourceDataSharing,
			SourceID:    &permID,
			Period:      &period,
			Description: fmt.Sprintf("Datennutzung: %s (%s)", perm.DataTypeName, period),
			Status:      model.EarningStatusEarned,
			EarnedAt:    now,
		}
		activity := &model.Activity{
			UserID:       perm.UserID,
			Title:        "Daten genutzt",
			Description:  fmt.Sprintf("Deine %s-Daten wurden von Unternehmen genutzt.", perm.DataTypeName),
			ActivityType: model.ActivityDataSharing,
			Earning:      earning.Amount,
			Company:      "Verschiedene Partner",
		}

		if err := s.credit(ctx, earning, activity); err != nil {
			// 多副本或 cleanup CLI 同时运行时，唯一索引保证只有一方入账
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue
			}
			return credited, err
		}
		if err := s.permissionRepo.TouchAccessed(perm.ID, now); err != nil {
			log.Printf("Failed to touch permission %d: %v", perm.ID, err)
		}
		credited++
	}

	if credited > 0 {
		log.Printf("Data sharing: credited %d permissions for %s", credited, now.Format("2006-01"))
	}
	return credited, nil
}

// credit 收益与动态同时写入，提交后发布通知
func (s *EarningService) credit(ctx context.Context, earning *model.Earning, activity *model.Activity) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.earningRepo.WithTx(tx).Create(earning); err != nil {
			return err
		}
		return s.activityRepo.WithTx(tx).Create(activity)
	})
	if err != nil {
		return err
	}

	metrics.EarningsCreditedTotal.WithLabelValues(earning.SourceType).Add(earning.Amount)
	publishLedger(ctx, s.publisher, &pubsub.LedgerEvent{
		Type:        pubsub.EventEarningCredited,
		UserID:      earning.UserID,
		ReferenceID: earning.ID,
		Amount:      earning.Amount,
		SourceType:  earning.SourceType,
	})
	return nil
}
