package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/qs3c/datafair_server/internal/pkg/queue"
)

// GatewayError 支付通道错误，UserMessage 会写入提现失败原因
type GatewayError struct {
	UserMessage string
	RawError    error
	Transient   bool
}

func (e *GatewayError) Error() string {
	return e.UserMessage
}

func (e *GatewayError) Unwrap() error {
	return e.RawError
}

// Gateway 向外部支付通道发起转账，成功时返回通道侧流水号
type Gateway interface {
	Send(ctx context.Context, msg *queue.PayoutMessage) (string, error)
}

// SimulatedGateway 本地与测试环境使用，不对接真实通道
type SimulatedGateway struct {
	// FailMethods 命中的提现方式直接失败
	FailMethods []string
}

func (g *SimulatedGateway) Send(ctx context.Context, msg *queue.PayoutMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &GatewayError{UserMessage: "支付通道超时", RawError: err, Transient: true}
	}
	for _, m := range g.FailMethods {
		if strings.EqualFold(m, msg.Method) {
			return "", &GatewayError{
				UserMessage: "支付通道拒绝了该提现方式",
				RawError:    fmt.Errorf("simulated rejection for method %s", msg.Method),
			}
		}
	}
	return fmt.Sprintf("%s-%s", strings.ToUpper(msg.Method), uuid.NewString()), nil
}

// classifyGatewayError 未分类的错误按暂时性处理
func classifyGatewayError(err error) *GatewayError {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge
	}
	return &GatewayError{
		UserMessage: "支付通道暂时不可用",
		RawError:    err,
		Transient:   true,
	}
}

// sendWithRetry 指数退避重试，非暂时性错误立即返回
func sendWithRetry(ctx context.Context, gw Gateway, msg *queue.PayoutMessage, maxRetries int, base time.Duration) (string, error) {
	if maxRetries < 0 {
		maxRetries = 0
	}

	var lastErr *GatewayError
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * base
			log.Printf("Payout %d: gateway retry %d/%d after %v", msg.PayoutID, attempt, maxRetries, backoff)
			select {
			case <-ctx.Done():
				return "", &GatewayError{UserMessage: "支付通道超时", RawError: ctx.Err()}
			case <-time.After(backoff):
			}
		}

		externalID, err := gw.Send(ctx, msg)
		if err == nil {
			return externalID, nil
		}

		lastErr = classifyGatewayError(err)
		log.Printf("Payout %d: gateway attempt %d failed: %v", msg.PayoutID, attempt+1, lastErr.RawError)

		if !lastErr.Transient {
			return "", lastErr
		}
	}

	return "", lastErr
}
