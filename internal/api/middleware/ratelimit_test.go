package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/qs3c/datafair_server/internal/pkg/metrics"
	"github.com/qs3c/datafair_server/internal/pkg/response"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(60, 2, time.Minute)

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))

	// 不同 key 互不影响
	assert.True(t, rl.Allow("b"))
}

func TestRateLimiter_SweepsIdleKeys(t *testing.T) {
	rl := NewRateLimiter(60, 1, 10*time.Millisecond)

	rl.Allow("idle")
	time.Sleep(20 * time.Millisecond)
	rl.Allow("fresh")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.visitors, "idle")
	assert.Contains(t, rl.visitors, "fresh")
}

func TestRateLimit_PerUser(t *testing.T) {
	rl := NewRateLimiter(60, 1, time.Minute)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if id := c.GetHeader("X-User"); id == "1" {
			c.Set(UserIDKey, int64(1))
		} else if id == "2" {
			c.Set(UserIDKey, int64(2))
		}
		c.Next()
	}, RateLimit(rl))
	router.POST("/payouts", func(c *gin.Context) {
		response.Success(c, nil)
	})

	call := func(user string) int {
		req := httptest.NewRequest("POST", "/payouts", nil)
		req.Header.Set("X-User", user)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return parseResponse(t, w).Code
	}

	assert.Equal(t, response.CodeSuccess, call("1"))
	assert.Equal(t, response.CodeRateLimited, call("1"))
	assert.Equal(t, response.CodeSuccess, call("2"))
}

func TestMetrics_RecordsRouteTemplate(t *testing.T) {
	router := gin.New()
	router.Use(Metrics())
	router.GET("/surveys/:id", func(c *gin.Context) {
		response.Success(c, nil)
	})

	before := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/surveys/:id", "200"))

	req := httptest.NewRequest("GET", "/surveys/42", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	after := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/surveys/:id", "200"))
	assert.Equal(t, before+1, after)
}
