package service

import (
	"context"
	"log"

	"github.com/qs3c/datafair_server/internal/pkg/pubsub"
	"github.com/qs3c/datafair_server/internal/pkg/queue"
)

// LedgerPublisher 账本事件的发布端，由 Redis pubsub 实现
type LedgerPublisher interface {
	Publish(ctx context.Context, event *pubsub.LedgerEvent) error
}

// PayoutQueue 提现任务队列
type PayoutQueue interface {
	Push(ctx context.Context, msg *queue.PayoutMessage) error
}

// publishLedger 事务提交后发布通知，失败只记录日志
func publishLedger(ctx context.Context, publisher LedgerPublisher, event *pubsub.LedgerEvent) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		log.Printf("Failed to publish ledger event %s for user %d: %v", event.Type, event.UserID, err)
	}
}
