package api

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SLAConfig 各类操作的最大响应时间
type SLAConfig struct {
	SubmissionMaxTime time.Duration // 提交申请
	DecisionMaxTime   time.Duration // 审批/处理/取消
	QueryMaxTime      time.Duration // 查询
}

// DefaultSLAConfig 返回默认 SLA 配置
func DefaultSLAConfig() *SLAConfig {
	return &SLAConfig{
		SubmissionMaxTime: 1 * time.Second,
		DecisionMaxTime:   2 * time.Second,
		QueryMaxTime:      500 * time.Millisecond,
	}
}

// getOperation 从请求路径和方法获取操作类型
func getOperation(c *gin.Context) string {
	method := c.Request.Method
	path := c.Request.URL.Path

	if path == "/api/v1/requests" && method == "POST" {
		return "request_submission"
	}
	if strings.Contains(path, "/approve") || strings.Contains(path, "/reject") ||
		strings.Contains(path, "/process") || strings.Contains(path, "/cancel") {
		return "request_decision"
	}
	if strings.HasPrefix(path, "/api/v1/") && method == "GET" {
		return "request_query"
	}

	return "unknown"
}

// CheckSLA 检查操作耗时是否在 SLA 内
func CheckSLA(operation string, duration time.Duration, config *SLAConfig) bool {
	switch operation {
	case "request_submission":
		return duration <= config.SubmissionMaxTime
	case "request_decision":
		return duration <= config.DecisionMaxTime
	case "request_query":
		return duration <= config.QueryMaxTime
	default:
		// 未知操作不检查 SLA
		return true
	}
}

// getExpectedDuration 获取期望的响应时间
func getExpectedDuration(operation string, config *SLAConfig) time.Duration {
	switch operation {
	case "request_submission":
		return config.SubmissionMaxTime
	case "request_decision":
		return config.DecisionMaxTime
	case "request_query":
		return config.QueryMaxTime
	default:
		return 0
	}
}

// SLAMonitorMiddleware SLA 监控中间件
// 超时的响应打上标记头,便于网关侧聚合告警
func SLAMonitorMiddleware(config *SLAConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultSLAConfig()
	}

	return func(c *gin.Context) {
		start := time.Now()
		operation := getOperation(c)

		c.Next()

		duration := time.Since(start)
		if !CheckSLA(operation, duration, config) {
			c.Header("X-SLA-Violation", "true")
			c.Header("X-SLA-Operation", operation)
			c.Header("X-SLA-Duration", duration.String())
			c.Header("X-SLA-Expected", getExpectedDuration(operation, config).String())
		}
	}
}
