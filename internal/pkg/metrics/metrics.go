package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 指标在包初始化时注册到默认 Registry，进程内只注册一次
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datafair_http_requests_total",
			Help: "HTTP 请求总数",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datafair_http_request_duration_seconds",
			Help:    "HTTP 请求耗时",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	QualificationChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datafair_qualification_checks_total",
			Help: "资格检查次数，按结果划分",
		},
		[]string{"result"}, // qualified, disqualified, incomplete
	)

	ResponsesStartedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "datafair_responses_started_total",
			Help: "新开始的答卷数",
		},
	)

	ResponsesCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datafair_responses_completed_total",
			Help: "提交完成的答卷数",
		},
		[]string{"category"},
	)

	ResponsesAbandonedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datafair_responses_abandoned_total",
			Help: "放弃的答卷数，按触发方式划分",
		},
		[]string{"trigger"}, // user, sweep
	)

	EarningsCreditedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datafair_earnings_credited_amount_total",
			Help: "入账收益金额（EUR）",
		},
		[]string{"source_type"},
	)

	PayoutsRequestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datafair_payouts_requested_total",
			Help: "提现申请数",
		},
		[]string{"method"},
	)

	PayoutsSettledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datafair_payouts_settled_total",
			Help: "提现状态迁移次数",
		},
		[]string{"status"},
	)

	PayoutQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "datafair_payout_queue_depth",
			Help: "待处理的提现队列长度",
		},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "datafair_websocket_connections",
			Help: "当前 WebSocket 连接数",
		},
	)
)

// Handler 暴露 /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
