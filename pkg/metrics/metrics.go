package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// 通知任务入队计数
	JobsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_jobs_enqueued_total",
			Help: "Total number of notification jobs enqueued",
		},
		[]string{"kind"},
	)

	// 通知任务处理计数
	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_jobs_processed_total",
			Help: "Total number of notification jobs processed",
		},
		[]string{"kind", "status"}, // status: ok, retry, exhausted, dropped
	)

	// 单个任务处理延迟（毫秒）
	JobProcessLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notify_job_process_latency_ms",
			Help:    "Notification job processing latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"kind"},
	)

	// 队列深度
	QueueWaiting = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notify_queue_waiting",
			Help: "Number of jobs waiting (including delayed) in the notification queue",
		},
	)
	QueueActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notify_queue_active",
			Help: "Number of jobs currently leased by workers",
		},
	)

	// 邮件发送计数
	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emails_sent_total",
			Help: "Total number of email delivery attempts",
		},
		[]string{"status"}, // status: success, failed
	)
)

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordJobProcessed 记录任务处理结果和延迟
func RecordJobProcessed(kind, status string, duration time.Duration) {
	JobsProcessed.WithLabelValues(kind, status).Inc()
	JobProcessLatency.WithLabelValues(kind).Observe(float64(duration.Milliseconds()))
}

// SetQueueDepth 更新队列深度指标
func SetQueueDepth(waiting, active int64) {
	QueueWaiting.Set(float64(waiting))
	QueueActive.Set(float64(active))
}
