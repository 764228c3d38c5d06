package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelLedgerEvents = "ledger_events"
)

// 账本事件类型
const (
	EventEarningCredited = "earning_credited"
	EventPayoutRequested = "payout_requested"
	EventPayoutUpdated   = "payout_updated"
	EventResponseClosed  = "response_abandoned"
)

// 事件对应的默认消息
var EventMessages = map[string]string{
	EventEarningCredited: "收益已到账",
	EventPayoutRequested: "提现申请已提交",
	EventPayoutUpdated:   "提现状态已更新",
	EventResponseClosed:  "答卷因长时间未完成已关闭",
}

// LedgerEvent 推送给用户的账本变动
type LedgerEvent struct {
	Type        string  `json:"type"`
	UserID      int64   `json:"user_id"`
	ReferenceID int64   `json:"reference_id"` // earning / payout / response ID
	Amount      float64 `json:"amount,omitempty"`
	SourceType  string  `json:"source_type,omitempty"`
	Status      string  `json:"status,omitempty"`
	Message     string  `json:"message,omitempty"`
	OccurredAt  int64   `json:"occurred_at"`
}

// Publisher Redis 发布者
type Publisher struct {
	client *redis.Client
}

// NewPublisher 创建发布者
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish 发布账本事件
func (p *Publisher) Publish(ctx context.Context, event *LedgerEvent) error {
	if event.Message == "" {
		event.Message = EventMessages[event.Type]
	}
	if event.OccurredAt == 0 {
		event.OccurredAt = time.Now().Unix()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger event: %w", err)
	}

	return p.client.Publish(ctx, ChannelLedgerEvents, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client *redis.Client
}

// NewSubscriber 创建订阅者
func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe 订阅账本事件，直到 ctx 取消
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*LedgerEvent)) error {
	sub := s.client.Subscribe(ctx, ChannelLedgerEvents)
	defer sub.Close()

	// 等待订阅确认，避免丢失紧随其后的消息
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	ch := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var event LedgerEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue // 忽略解析错误
			}

			handler(&event)
		}
	}
}
