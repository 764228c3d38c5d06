package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/datafair_server/config"
	"github.com/qs3c/datafair_server/internal/model"
	"github.com/qs3c/datafair_server/internal/model/dto"
	"github.com/qs3c/datafair_server/internal/pkg/metrics"
	"github.com/qs3c/datafair_server/internal/pkg/pubsub"
	"github.com/qs3c/datafair_server/internal/pkg/queue"
	"github.com/qs3c/datafair_server/internal/repository"
)

var (
	ErrInsufficientBalance = errors.New("可用余额不足")
	ErrBelowMinimum        = errors.New("低于最低提现金额")
	ErrInvalidMethod       = errors.New("不支持的提现方式")
	ErrPayoutNotFound      = errors.New("提现记录不存在")
	ErrInvalidTransition   = errors.New("提现状态不允许该变更")
)

// 允许的提现状态迁移
var payoutTransitions = map[string][]string{
	model.PayoutStatusPending:    {model.PayoutStatusProcessing, model.PayoutStatusFailed},
	model.PayoutStatusProcessing: {model.PayoutStatusCompleted, model.PayoutStatusFailed},
}

func canTransition(from, to string) bool {
	for _, next := range payoutTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type PayoutService struct {
	db           *gorm.DB
	payoutRepo   *repository.PayoutRepository
	earningRepo  *repository.EarningRepository
	userRepo     *repository.UserRepository
	activityRepo *repository.ActivityRepository
	queue        PayoutQueue
	publisher    LedgerPublisher
	cfg          *config.Config
}

func NewPayoutService(
	db *gorm.DB,
	payoutRepo *repository.PayoutRepository,
	earningRepo *repository.EarningRepository,
	userRepo *repository.UserRepository,
	activityRepo *repository.ActivityRepository,
	payoutQueue PayoutQueue,
	publisher LedgerPublisher,
	cfg *config.Config,
) *PayoutService {
	return &PayoutService{
		db:           db,
		payoutRepo:   payoutRepo,
		earningRepo:  earningRepo,
		userRepo:     userRepo,
		activityRepo: activityRepo,
		queue:        payoutQueue,
		publisher:    publisher,
		cfg:          cfg,
	}
}

func (s *PayoutService) validMethod(method string) bool {
	for _, m := range s.cfg.Payout.Methods {
		if m == method {
			return true
		}
	}
	return false
}

// RequestPayout 申请提现。先校验方式与最低金额，再在锁住用户行的事务内核对余额
func (s *PayoutService) RequestPayout(ctx context.Context, userID int64, amount float64, method string) (*dto.PayoutItem, error) {
	method = strings.ToLower(strings.TrimSpace(method))
	if !s.validMethod(method) {
		return nil, ErrInvalidMethod
	}

	amount = roundCents(amount)
	if amount < s.cfg.Payout.MinAmount {
		return nil, ErrBelowMinimum
	}

	payout := &model.Payout{
		UserID:      userID,
		Amount:      amount,
		Method:      method,
		Status:      model.PayoutStatusPending,
		RequestedAt: time.Now(),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// 同一用户的提现申请串行化
		if _, err := s.userRepo.WithTx(tx).LockByID(userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		balance, err := availableBalance(s.earningRepo.WithTx(tx), s.payoutRepo.WithTx(tx), userID)
		if err != nil {
			return err
		}
		if amount > balance {
			return ErrInsufficientBalance
		}

		if err := s.payoutRepo.WithTx(tx).Create(payout); err != nil {
			return err
		}

		return s.activityRepo.WithTx(tx).Create(&model.Activity{
			UserID:       userID,
			Title:        "Auszahlung beantragt",
			Description:  fmt.Sprintf("Du hast eine Auszahlung von €%.2f per %s beantragt.", amount, strings.ToUpper(method)),
			ActivityType: model.ActivityPayout,
			Company:      "DataFair",
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.PayoutsRequestedTotal.WithLabelValues(method).Inc()

	if s.queue != nil {
		msg := &queue.PayoutMessage{
			PayoutID:    payout.ID,
			UserID:      userID,
			Amount:      payout.Amount,
			Method:      payout.Method,
			RequestedAt: payout.RequestedAt.Unix(),
		}
		// 入队失败不影响申请结果，worker 启动时会补偿扫描 pending 记录
		if err := s.queue.Push(ctx, msg); err != nil {
			log.Printf("Failed to enqueue payout %d: %v", payout.ID, err)
		}
	}

	publishLedger(ctx, s.publisher, &pubsub.LedgerEvent{
		Type:        pubsub.EventPayoutRequested,
		UserID:      userID,
		ReferenceID: payout.ID,
		Amount:      payout.Amount,
		Status:      payout.Status,
	})

	return toPayoutItem(payout), nil
}

// Settle 推进提现状态。完成时写入 paid_at（仅一次）并把覆盖到的收益标记为已结算
func (s *PayoutService) Settle(ctx context.Context, payoutID int64, status, externalID, reason string) (*dto.PayoutItem, error) {
	var settled *model.Payout

	err := s.db.Transaction(func(tx *gorm.DB) error {
		payoutRepo := s.payoutRepo.WithTx(tx)

		payout, err := payoutRepo.LockByID(payoutID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPayoutNotFound
			}
			return err
		}
		if !canTransition(payout.Status, status) {
			return ErrInvalidTransition
		}

		now := time.Now()
		fields := map[string]interface{}{"status": status}

		switch status {
		case model.PayoutStatusProcessing:
			fields["processed_at"] = now
			payout.ProcessedAt = &now
		case model.PayoutStatusCompleted:
			fields["paid_at"] = now
			payout.PaidAt = &now
			if externalID != "" {
				fields["external_id"] = externalID
				payout.ExternalID = externalID
			}
		case model.PayoutStatusFailed:
			if reason == "" {
				reason = "unknown"
			}
			fields["failure_reason"] = reason
			payout.FailureReason = reason
		}

		rows, err := payoutRepo.Transition(payout.ID, payout.Status, fields)
		if err != nil {
			return err
		}
		if rows != 1 {
			return ErrInvalidTransition
		}
		payout.Status = status

		if status == model.PayoutStatusCompleted {
			if err := s.markEarningsPaid(tx, payout, now); err != nil {
				return err
			}
			if err := s.activityRepo.WithTx(tx).Create(&model.Activity{
				UserID:       payout.UserID,
				Title:        "Auszahlung abgeschlossen",
				Description:  fmt.Sprintf("Deine Auszahlung von €%.2f wurde erfolgreich verarbeitet.", payout.Amount),
				ActivityType: model.ActivityPayout,
				Company:      "DataFair",
			}); err != nil {
				return err
			}
		}

		settled = payout
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.PayoutsSettledTotal.WithLabelValues(status).Inc()
	publishLedger(ctx, s.publisher, &pubsub.LedgerEvent{
		Type:        pubsub.EventPayoutUpdated,
		UserID:      settled.UserID,
		ReferenceID: settled.ID,
		Amount:      settled.Amount,
		Status:      settled.Status,
	})

	return toPayoutItem(settled), nil
}

// markEarningsPaid 按时间顺序结算收益，直到覆盖本次提现金额。
// 已完成提现的总额决定哪些收益已被覆盖，部分覆盖的收益保持未结算
func (s *PayoutService) markEarningsPaid(tx *gorm.DB, payout *model.Payout, paidAt time.Time) error {
	earningRepo := s.earningRepo.WithTx(tx)
	payoutRepo := s.payoutRepo.WithTx(tx)

	completed, err := payoutRepo.CompletedTotal(payout.UserID)
	if err != nil {
		return err
	}
	credited, err := earningRepo.CreditedTotal(payout.UserID)
	if err != nil {
		return err
	}
	unpaid, err := earningRepo.ListUnpaid(payout.UserID)
	if err != nil {
		return err
	}

	var unpaidSum float64
	for _, e := range unpaid {
		unpaidSum += e.Amount
	}
	// 已结算收益之外，尚需覆盖的提现金额
	remaining := roundCents(completed - (credited - unpaidSum))

	var ids []int64
	for _, e := range unpaid {
		if remaining < e.Amount || remaining <= 0 {
			break
		}
		remaining = roundCents(remaining - e.Amount)
		ids = append(ids, e.ID)
	}
	return earningRepo.MarkPaid(ids, paidAt)
}

// List 用户的提现记录
func (s *PayoutService) List(userID int64, page, pageSize int) ([]*dto.PayoutItem, int64, error) {
	payouts, total, err := s.payoutRepo.ListByUser(userID, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	items := make([]*dto.PayoutItem, 0, len(payouts))
	for _, p := range payouts {
		items = append(items, toPayoutItem(p))
	}
	return items, total, nil
}

// Get 获取提现记录
func (s *PayoutService) Get(payoutID int64) (*model.Payout, error) {
	payout, err := s.payoutRepo.GetByID(payoutID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPayoutNotFound
		}
		return nil, err
	}
	return payout, nil
}

// ListPending 待处理的提现，worker 启动时用于补偿入队
func (s *PayoutService) ListPending(limit int) ([]*model.Payout, error) {
	return s.payoutRepo.ListByStatus(model.PayoutStatusPending, limit)
}
