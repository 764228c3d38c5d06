package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/qs3c/datafair_server/config"
	"github.com/qs3c/datafair_server/internal/model"
	"github.com/qs3c/datafair_server/internal/model/dto"
	"github.com/qs3c/datafair_server/internal/pkg/metrics"
	"github.com/qs3c/datafair_server/internal/pkg/queue"
	"github.com/qs3c/datafair_server/internal/service"
)

const popTimeout = 5 * time.Second

// Settler 提现状态机，由 PayoutService 实现
type Settler interface {
	Get(payoutID int64) (*model.Payout, error)
	ListPending(limit int) ([]*model.Payout, error)
	Settle(ctx context.Context, payoutID int64, status, externalID, reason string) (*dto.PayoutItem, error)
}

// UserLookup 查询收款人邮箱
type UserLookup interface {
	GetByID(id int64) (*model.User, error)
}

// Notifier 结算结果通知
type Notifier interface {
	SendPayoutCompleted(to string, amount float64, method, externalID string) error
	SendPayoutFailed(to string, amount float64, reason string) error
}

// PayoutQueue 提现任务队列
type PayoutQueue interface {
	Push(ctx context.Context, msg *queue.PayoutMessage) error
	Pop(ctx context.Context, timeout time.Duration) (*queue.PayoutMessage, error)
	Length(ctx context.Context) (int64, error)
}

// Processor 提现结算处理器
type Processor struct {
	settler  Settler
	users    UserLookup
	gateway  Gateway
	notifier Notifier
	cfg      *config.Config

	retryBase time.Duration
}

// NewProcessor notifier 可为 nil
func NewProcessor(settler Settler, users UserLookup, gateway Gateway, notifier Notifier, cfg *config.Config) *Processor {
	return &Processor{
		settler:   settler,
		users:     users,
		gateway:   gateway,
		notifier:  notifier,
		cfg:       cfg,
		retryBase: time.Second,
	}
}

// Process 推进单笔提现：pending -> processing -> completed/failed
func (p *Processor) Process(ctx context.Context, msg *queue.PayoutMessage) error {
	payout, err := p.settler.Get(msg.PayoutID)
	if err != nil {
		return fmt.Errorf("failed to get payout: %w", err)
	}

	// 只有抢到 pending -> processing 的 worker 才能调用支付通道。
	// processing 可能是另一个 worker 正在打款，也可能是管理员手动推进，一律跳过
	if payout.Status != model.PayoutStatusPending {
		log.Printf("Payout %d: already %s, skipping", payout.ID, payout.Status)
		return nil
	}
	if _, err := p.settler.Settle(ctx, payout.ID, model.PayoutStatusProcessing, "", ""); err != nil {
		if errors.Is(err, service.ErrInvalidTransition) {
			log.Printf("Payout %d: claimed concurrently, skipping", payout.ID)
			return nil
		}
		return fmt.Errorf("failed to mark payout processing: %w", err)
	}

	// 以数据库记录为准，队列消息只携带 ID
	send := &queue.PayoutMessage{
		PayoutID: payout.ID,
		UserID:   payout.UserID,
		Amount:   payout.Amount,
		Method:   payout.Method,
		Attempt:  msg.Attempt,
	}

	externalID, sendErr := sendWithRetry(ctx, p.gateway, send, p.cfg.Payout.GatewayRetries, p.retryBase)
	if sendErr != nil {
		reason := sendErr.Error()
		if _, err := p.settler.Settle(ctx, payout.ID, model.PayoutStatusFailed, "", reason); err != nil {
			return fmt.Errorf("failed to mark payout failed: %w", err)
		}
		log.Printf("Payout %d: failed: %s", payout.ID, reason)
		p.notify(payout, func(to string) error {
			return p.notifier.SendPayoutFailed(to, payout.Amount, reason)
		})
		return nil
	}

	if _, err := p.settler.Settle(ctx, payout.ID, model.PayoutStatusCompleted, externalID, ""); err != nil {
		return fmt.Errorf("failed to mark payout completed: %w", err)
	}
	log.Printf("Payout %d: completed, external_id=%s", payout.ID, externalID)
	p.notify(payout, func(to string) error {
		return p.notifier.SendPayoutCompleted(to, payout.Amount, payout.Method, externalID)
	})
	return nil
}

// notify 邮件失败只记日志
func (p *Processor) notify(payout *model.Payout, send func(to string) error) {
	if p.notifier == nil || p.users == nil {
		return
	}
	user, err := p.users.GetByID(payout.UserID)
	if err != nil {
		log.Printf("Payout %d: failed to load user for notification: %v", payout.ID, err)
		return
	}
	if err := send(user.Email); err != nil {
		log.Printf("Payout %d: failed to send notification: %v", payout.ID, err)
	}
}

// Recover 重新入队 pending 提现，弥补申请时入队失败或 worker 宕机丢失的任务
func (p *Processor) Recover(ctx context.Context, q PayoutQueue) (int, error) {
	pending, err := p.settler.ListPending(p.cfg.Payout.RecoverBatchSize)
	if err != nil {
		return 0, err
	}

	pushed := 0
	for _, payout := range pending {
		msg := &queue.PayoutMessage{
			PayoutID:    payout.ID,
			UserID:      payout.UserID,
			Amount:      payout.Amount,
			Method:      payout.Method,
			RequestedAt: payout.RequestedAt.Unix(),
			Attempt:     1,
		}
		if err := q.Push(ctx, msg); err != nil {
			return pushed, fmt.Errorf("failed to requeue payout %d: %w", payout.ID, err)
		}
		pushed++
	}
	return pushed, nil
}

// Run 启动 workers 个消费协程，ctx 取消后返回
func (p *Processor) Run(ctx context.Context, q PayoutQueue, workers int) {
	if workers <= 0 {
		workers = 1
	}

	done := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		go func(workerID int) {
			defer func() { done <- struct{}{} }()
			p.loop(ctx, q, workerID)
		}(i)
	}

	for i := 0; i < workers; i++ {
		<-done
	}
}

func (p *Processor) loop(ctx context.Context, q PayoutQueue, workerID int) {
	for {
		select {
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", workerID)
			return
		default:
		}

		msg, err := q.Pop(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Worker %d: failed to pop payout: %v", workerID, err)
			continue
		}

		if depth, err := q.Length(ctx); err == nil {
			metrics.PayoutQueueDepth.Set(float64(depth))
		}

		if msg == nil {
			continue
		}

		log.Printf("Worker %d: processing payout %d", workerID, msg.PayoutID)
		if err := p.Process(ctx, msg); err != nil {
			log.Printf("Worker %d: payout %d failed: %v", workerID, msg.PayoutID, err)
		}
	}
}
