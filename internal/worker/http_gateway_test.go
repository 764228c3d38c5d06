package worker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/datafair_server/config"
	"github.com/qs3c/datafair_server/internal/pkg/queue"
)

func setupGatewayServer(t *testing.T, transfer http.HandlerFunc) (*HTTPGateway, *int32) {
	var tokenCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&tokenCalls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"test-token","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/transfers", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		transfer(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	gw := NewHTTPGateway(&config.PayoutConfig{
		GatewayURL:          srv.URL + "/transfers",
		GatewayTokenURL:     srv.URL + "/oauth/token",
		GatewayClientID:     "client",
		GatewayClientSecret: "secret",
	})
	return gw, &tokenCalls
}

func TestHTTPGateway_Send_Success(t *testing.T) {
	gw, tokenCalls := setupGatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req transferRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "payout-7", req.Reference)
		assert.Equal(t, "payout-7", r.Header.Get("Idempotency-Key"))
		assert.Equal(t, 15.5, req.Amount)
		assert.Equal(t, "EUR", req.Currency)
		w.Write([]byte(`{"id":"TX-123"}`))
	})

	msg := &queue.PayoutMessage{PayoutID: 7, UserID: 3, Amount: 15.5, Method: "paypal"}
	id, err := gw.Send(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, "TX-123", id)

	// 令牌缓存复用
	_, err = gw.Send(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(tokenCalls))
}

func TestHTTPGateway_Send_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		transient   bool
		userMessage string
	}{
		{"server error", http.StatusBadGateway, `{}`, true, "支付通道暂时不可用"},
		{"rate limited", http.StatusTooManyRequests, `{}`, true, "支付通道暂时不可用"},
		{"rejected with message", http.StatusUnprocessableEntity, `{"message":"账户已冻结"}`, false, "账户已冻结"},
		{"rejected without message", http.StatusBadRequest, ``, false, "支付通道拒绝了该笔提现"},
		{"missing id", http.StatusOK, `{}`, false, "支付通道返回数据异常"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw, _ := setupGatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := gw.Send(context.Background(), &queue.PayoutMessage{PayoutID: 1, Amount: 10, Method: "bank"})
			require.Error(t, err)

			var ge *GatewayError
			require.True(t, errors.As(err, &ge))
			assert.Equal(t, tt.transient, ge.Transient)
			assert.Equal(t, tt.userMessage, ge.UserMessage)
		})
	}
}

func TestHTTPGateway_RetriedByProcessorUntilSuccess(t *testing.T) {
	var calls int32
	gw, _ := setupGatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"id":"TX-9"}`))
	})

	id, err := sendWithRetry(context.Background(), gw, &queue.PayoutMessage{PayoutID: 9, Amount: 10, Method: "bank"}, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, "TX-9", id)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestNewGateway(t *testing.T) {
	gw := NewGateway(&config.PayoutConfig{SimulatedFailures: []string{"crypto"}})
	sim, ok := gw.(*SimulatedGateway)
	require.True(t, ok)
	assert.Equal(t, []string{"crypto"}, sim.FailMethods)

	gw = NewGateway(&config.PayoutConfig{GatewayURL: "http://example.invalid/transfers"})
	_, ok = gw.(*HTTPGateway)
	assert.True(t, ok)
}
