package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
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

	// 申请提交数
	requestsSubmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "training_requests_submitted_total",
			Help: "Total number of training requests submitted",
		},
	)

	// 决定操作数
	decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "training_request_decisions_total",
			Help: "Total number of workflow decisions",
		},
		[]string{"action"}, // approved, rejected, processed, cancelled
	)

	// 版本冲突重试耗尽数
	stateConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "training_request_state_conflicts_total",
			Help: "Total number of exhausted optimistic-concurrency retries",
		},
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

	databaseConnectionsMax = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_max",
			Help: "Maximum number of database connections",
		},
	)

	// 申请状态分布
	requestsByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "training_requests_by_status",
			Help: "Number of training requests by status",
		},
		[]string{"status"},
	)
)

var (
	once sync.Once
)

func init() {
	// 注册指标
	prometheus.MustRegister(apiRequestsTotal)
	prometheus.MustRegister(apiRequestDuration)
	prometheus.MustRegister(requestsSubmittedTotal)
	prometheus.MustRegister(decisionsTotal)
	prometheus.MustRegister(stateConflictsTotal)
	prometheus.MustRegister(databaseConnectionsActive)
	prometheus.MustRegister(databaseConnectionsIdle)
	prometheus.MustRegister(databaseConnectionsMax)
	prometheus.MustRegister(requestsByStatus)

	// 注册 Go 运行时指标（只注册一次）
	once.Do(func() {
		// 尝试注册 Go 运行时指标，如果已注册则忽略错误
		_ = prometheus.Register(prometheus.NewGoCollector())
		_ = prometheus.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	})
}

// Handler 返回 Prometheus 指标处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest 记录 API 请求
func RecordAPIRequest(method, path string, status int, duration float64) {
	statusText := http.StatusText(status)
	if statusText == "" {
		statusText = fmt.Sprintf("%d", status)
	}
	apiRequestsTotal.WithLabelValues(method, path, statusText).Inc()
	apiRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordRequestSubmitted 记录申请提交
func RecordRequestSubmitted() {
	requestsSubmittedTotal.Inc()
}

// RecordDecision 记录决定操作
func RecordDecision(action string) {
	decisionsTotal.WithLabelValues(action).Inc()
}

// RecordStateConflict 记录重试耗尽的并发冲突
func RecordStateConflict() {
	stateConflictsTotal.Inc()
}

// UpdateDatabaseConnections 更新数据库连接数指标
func UpdateDatabaseConnections(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	stats := sqlDB.Stats()
	databaseConnectionsActive.Set(float64(stats.OpenConnections - stats.Idle))
	databaseConnectionsIdle.Set(float64(stats.Idle))
	databaseConnectionsMax.Set(float64(stats.MaxOpenConnections))

	return nil
}

// UpdateRequestsByStatus 更新申请状态分布指标
func UpdateRequestsByStatus(status string, count float64) {
	requestsByStatus.WithLabelValues(status).Set(count)
}
