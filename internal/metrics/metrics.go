// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はアプリケーションメトリクスを保持する。
type Collector struct {
	registrations            prometheus.Counter
	logins                   *prometheus.CounterVec
	profileUpdates           prometheus.Counter
	reportsCreated           prometheus.Counter
	staleImageDeleteFailures prometheus.Counter
	httpStatus               *prometheus.CounterVec
	inferenceLatency         prometheus.Histogram
}

// NewCollector はCollectorを生成し、regに全メトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agriiq_registrations_total",
			Help: "Total number of user registrations.",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agriiq_logins_total",
			Help: "Total number of login attempts by result.",
		}, []string{"result"}),
		profileUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agriiq_profile_updates_total",
			Help: "Total number of profile updates.",
		}),
		reportsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agriiq_reports_created_total",
			Help: "Total number of detection reports created.",
		}),
		staleImageDeleteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agriiq_stale_image_delete_failures_total",
			Help: "Total number of failed deletions of replaced or orphaned images.",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agriiq_http_responses_total",
			Help: "Total number of HTTP responses by status code.",
		}, []string{"status_code"}),
		inferenceLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "agriiq_inference_duration_seconds",
			Help:    "Latency of inference endpoint calls.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.registrations,
		c.logins,
		c.profileUpdates,
		c.reportsCreated,
		c.staleImageDeleteFailures,
		c.httpStatus,
		c.inferenceLatency,
	)

	return c
}

// RecordRegistration はユーザー登録を記録する。
func (c *Collector) RecordRegistration() {
	c.registrations.Inc()
}

// RecordLogin はログイン試行を結果つきで記録する。
func (c *Collector) RecordLogin(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.logins.WithLabelValues(result).Inc()
}

// RecordProfileUpdate はプロフィール更新を記録する。
func (c *Collector) RecordProfileUpdate() {
	c.profileUpdates.Inc()
}

// RecordReportCreated はレポート作成を記録する。
func (c *Collector) RecordReportCreated() {
	c.reportsCreated.Inc()
}

// RecordStaleImageDeleteFailure は置き換え済み画像の削除失敗を記録する。
func (c *Collector) RecordStaleImageDeleteFailure() {
	c.staleImageDeleteFailures.Inc()
}

// RecordHTTPStatus はHTTPレスポンスのステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(status int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(status)).Inc()
}

// RecordInferenceLatency は推論呼び出しのレイテンシを記録する。
func (c *Collector) RecordInferenceLatency(d time.Duration) {
	c.inferenceLatency.Observe(d.Seconds())
}

// Handler はメトリクス公開用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
