package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// API 请求计数器
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	// API 请求响应时间
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 任务创建数
	tasksCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tasks_created_total",
			Help: "Total number of tasks created",
		},
	)

	// 任务分配数(按分配方式)
	tasksAssignedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasks_assigned_total",
			Help: "Total number of task assignments",
		},
		[]string{"method"}, // pull_queue, equal_split
	)

	// 生命周期操作数
	lifecycleEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_events_total",
			Help: "Total number of lifecycle transitions",
		},
		[]string{"type"}, // start, draft_save, submit, skip
	)

	// 数据库连接数
	databaseConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_active",
			Help: "Number of active database connections",
		},
	)

	databaseConnectionsIdle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	// 任务状态分布
	tasksByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tasks_by_status",
			Help: "Number of tasks by status",
		},
		[]string{"status"},
	)
)

var registerOnce sync.Once

// Register 注册所有指标
// 重复调用是安全的
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			apiRequestsTotal,
			apiRequestDuration,
			tasksCreatedTotal,
			tasksAssignedTotal,
			lifecycleEventsTotal,
			databaseConnectionsActive,
			databaseConnectionsIdle,
			tasksByStatus,
		)
	})
}

// Handler 返回 Prometheus 指标的 HTTP 处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest 记录 API 请求指标
func RecordAPIRequest(method string, path string, status string, durationSeconds float64) {
	apiRequestsTotal.WithLabelValues(method, path, status).Inc()
	apiRequestDuration.WithLabelValues(method, path).Observe(durationSeconds)
}

// RecordTaskCreated 记录任务创建
func RecordTaskCreated() {
	tasksCreatedTotal.Inc()
}

// RecordTaskAssigned 记录任务分配
func RecordTaskAssigned(method string) {
	tasksAssignedTotal.WithLabelValues(method).Inc()
}

// RecordLifecycle 记录生命周期操作
func RecordLifecycle(eventType string) {
	lifecycleEventsTotal.WithLabelValues(eventType).Inc()
}

// SetDatabaseConnections 更新数据库连接数
func SetDatabaseConnections(active int, idle int) {
	databaseConnectionsActive.Set(float64(active))
	databaseConnectionsIdle.Set(float64(idle))
}

// SetTasksByStatus 更新任务状态分布
func SetTasksByStatus(status string, count int64) {
	tasksByStatus.WithLabelValues(status).Set(float64(count))
}
