package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/qs3c/datafair_server/config"
	"github.com/qs3c/datafair_server/internal/pkg/queue"
)

const gatewayTimeout = 15 * time.Second

type transferRequest struct {
	Reference string  `json:"reference"`
	UserID    int64   `json:"user_id"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Method    string  `json:"method"`
}

type transferResponse struct {
	ID      string `json:"id"`
	Message string `json:"message,omitempty"`
}

// HTTPGateway 对接外部支付通道，使用 OAuth2 client credentials 获取访问令牌
type HTTPGateway struct {
	endpoint string
	client   *http.Client
}

func NewHTTPGateway(cfg *config.PayoutConfig) *HTTPGateway {
	cc := &clientcredentials.Config{
		ClientID:     cfg.GatewayClientID,
		ClientSecret: cfg.GatewayClientSecret,
		TokenURL:     cfg.GatewayTokenURL,
	}
	base := &http.Client{Timeout: gatewayTimeout}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)

	return &HTTPGateway{
		endpoint: cfg.GatewayURL,
		client:   cc.Client(ctx),
	}
}

// NewGateway 未配置通道地址时返回模拟通道
func NewGateway(cfg *config.PayoutConfig) Gateway {
	if cfg.GatewayURL == "" {
		return &SimulatedGateway{FailMethods: cfg.SimulatedFailures}
	}
	return NewHTTPGateway(cfg)
}

func (g *HTTPGateway) Send(ctx context.Context, msg *queue.PayoutMessage) (string, error) {
	reference := "payout-" + strconv.FormatInt(msg.PayoutID, 10)
	body, err := json.Marshal(transferRequest{
		Reference: reference,
		UserID:    msg.UserID,
		Amount:    msg.Amount,
		Currency:  "EUR",
		Method:    msg.Method,
	})
	if err != nil {
		return "", &GatewayError{UserMessage: "提现请求构造失败", RawError: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &GatewayError{UserMessage: "支付通道配置错误", RawError: err}
	}
	req.Header.Set("Content-Type", "application/json")
	// 重试时沿用同一个幂等键，避免重复打款
	req.Header.Set("Idempotency-Key", reference)

	resp, err := g.client.Do(req)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil && re.Response.StatusCode < 500 {
			return "", &GatewayError{UserMessage: "支付通道认证失败", RawError: err}
		}
		return "", &GatewayError{UserMessage: "支付通道暂时不可用", RawError: err, Transient: true}
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var out transferResponse
	_ = json.Unmarshal(data, &out)

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return "", &GatewayError{
			UserMessage: "支付通道暂时不可用",
			RawError:    fmt.Errorf("gateway status %d: %s", resp.StatusCode, string(data)),
			Transient:   true,
		}
	case resp.StatusCode >= 400:
		msg := out.Message
		if msg == "" {
			msg = "支付通道拒绝了该笔提现"
		}
		return "", &GatewayError{
			UserMessage: msg,
			RawError:    fmt.Errorf("gateway status %d: %s", resp.StatusCode, string(data)),
		}
	}

	if out.ID == "" {
		return "", &GatewayError{
			UserMessage: "支付通道返回数据异常",
			RawError:    fmt.Errorf("gateway response without id: %s", string(data)),
		}
	}
	return out.ID, nil
}
