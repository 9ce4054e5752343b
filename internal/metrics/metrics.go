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
// ミドルウェアやサービス層から利用する。
type MetricsCollector interface {
	RecordHTTPRequest(method, route string, statusCode int, duration time.Duration)
	RecordRateLimited(scope string)
	RecordPostCreated()
	RecordSummaryGenerated(summaryType string, duration time.Duration)
	RecordSummarySkipped(summaryType string)
	RecordSummaryFailure(summaryType string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests      *prometheus.CounterVec
	httpLatency       *prometheus.HistogramVec
	rateLimited       *prometheus.CounterVec
	postsCreated      prometheus.Counter
	summaryGenerated  *prometheus.CounterVec
	summarySkipped    *prometheus.CounterVec
	summaryFail       *prometheus.CounterVec
	generationLatency *prometheus.HistogramVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "furikaeri_http_requests_total",
			Help: "ルート・ステータスコード別のHTTPリクエスト数",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "furikaeri_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "furikaeri_rate_limited_total",
			Help: "レート制限で拒否されたリクエスト数",
		}, []string{"scope"}),
		postsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "furikaeri_posts_created_total",
			Help: "作成された投稿の合計数",
		}),
		summaryGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "furikaeri_summaries_generated_total",
			Help: "生成された振り返りの合計数",
		}, []string{"type"}),
		summarySkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "furikaeri_summaries_skipped_total",
			Help: "対象期間に投稿がなく生成しなかった振り返りの数",
		}, []string{"type"}),
		summaryFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "furikaeri_summary_generation_fail_total",
			Help: "振り返り生成バックエンドの失敗数",
		}, []string{"type"}),
		generationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "furikaeri_summary_generation_seconds",
			Help:    "振り返り生成のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"type"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.rateLimited,
		c.postsCreated,
		c.summaryGenerated,
		c.summarySkipped,
		c.summaryFail,
		c.generationLatency,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの結果と処理時間を記録する。
// routeにはchiのルートパターンを渡し、IDごとにラベルが増えないようにする。
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordRateLimited はレート制限による拒否を記録する。
func (c *Collector) RecordRateLimited(scope string) {
	c.rateLimited.WithLabelValues(scope).Inc()
}

// RecordPostCreated は投稿作成を記録する。
func (c *Collector) RecordPostCreated() {
	c.postsCreated.Inc()
}

// RecordSummaryGenerated は振り返り生成の成功とレイテンシを記録する。
func (c *Collector) RecordSummaryGenerated(summaryType string, duration time.Duration) {
	c.summaryGenerated.WithLabelValues(summaryType).Inc()
	c.generationLatency.WithLabelValues(summaryType).Observe(duration.Seconds())
}

// RecordSummarySkipped は空期間による生成スキップを記録する。
func (c *Collector) RecordSummarySkipped(summaryType string) {
	c.summarySkipped.WithLabelValues(summaryType).Inc()
}

// RecordSummaryFailure は生成バックエンドの失敗を記録する。
func (c *Collector) RecordSummaryFailure(summaryType string) {
	c.summaryFail.WithLabelValues(summaryType).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
