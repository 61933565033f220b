// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordConnectAttempt(provider string)
	RecordConnectSuccess(provider string)
	RecordConnectFailure(provider string, reason string)
	RecordTrigger(trigger string, items int)
	RecordAction(action string, duplicate bool)
	RecordHTTPStatus(statusCode int)
	RecordProviderLatency(provider string, duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	connectAttempts *prometheus.CounterVec
	connectSuccess  *prometheus.CounterVec
	connectFail     *prometheus.CounterVec
	triggerItems    *prometheus.CounterVec
	triggerCalls    *prometheus.CounterVec
	actionCalls     *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		connectAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedlink_connect_attempts_total",
			Help: "プロバイダー連携試行の合計数",
		}, []string{"provider"}),
		connectSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedlink_connect_success_total",
			Help: "プロバイダー連携成功の合計数",
		}, []string{"provider"}),
		connectFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedlink_connect_fail_total",
			Help: "プロバイダー連携失敗の理由別合計数",
		}, []string{"provider", "reason"}),
		triggerItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedlink_trigger_items_total",
			Help: "トリガー種別ごとに返した記事の合計数",
		}, []string{"trigger"}),
		triggerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedlink_trigger_calls_total",
			Help: "トリガー呼び出しの合計数",
		}, []string{"trigger"}),
		actionCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedlink_action_calls_total",
			Help: "アクション呼び出しの合計数（重複実行を含む）",
		}, []string{"action", "duplicate"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedlink_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "feedlink_provider_latency_seconds",
			Help:    "外部プロバイダーAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
	}

	reg.MustRegister(
		c.connectAttempts,
		c.connectSuccess,
		c.connectFail,
		c.triggerItems,
		c.triggerCalls,
		c.actionCalls,
		c.httpStatus,
		c.providerLatency,
	)

	return c
}

// RecordConnectAttempt は連携試行を記録する。
func (c *Collector) RecordConnectAttempt(provider string) {
	c.connectAttempts.WithLabelValues(provider).Inc()
}

// RecordConnectSuccess は連携成功を記録する。
func (c *Collector) RecordConnectSuccess(provider string) {
	c.connectSuccess.WithLabelValues(provider).Inc()
}

// RecordConnectFailure は連携失敗を理由付きで記録する。
func (c *Collector) RecordConnectFailure(provider string, reason string) {
	c.connectFail.WithLabelValues(provider, reason).Inc()
}

// RecordTrigger はトリガー呼び出しと返却記事数を記録する。
func (c *Collector) RecordTrigger(trigger string, items int) {
	c.triggerCalls.WithLabelValues(trigger).Inc()
	c.triggerItems.WithLabelValues(trigger).Add(float64(items))
}

// RecordAction はアクション呼び出しを記録する。duplicateは冪等リトライの検出。
func (c *Collector) RecordAction(action string, duplicate bool) {
	c.actionCalls.WithLabelValues(action, strconv.FormatBool(duplicate)).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordProviderLatency は外部プロバイダー呼び出しのレイテンシを記録する。
func (c *Collector) RecordProviderLatency(provider string, duration time.Duration) {
	c.providerLatency.WithLabelValues(provider).Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
