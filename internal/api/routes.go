package api

import (
	"net/http"

	"github.com/arslant84/l1a-test-sub000/internal/auth"
	"github.com/arslant84/l1a-test-sub000/internal/config"
	"github.com/arslant84/l1a-test-sub000/internal/websocket"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRoutes 配置基础路由和中间件
func SetupRoutes(cfg *config.Config, validator *auth.TokenValidator, hub *websocket.Hub, db *gorm.DB) *gin.Engine {
	if config.IsProduction(cfg) {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	// 中间件
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogMiddleware())
	router.Use(SecurityHeadersMiddleware())
	router.Use(HTTPSRedirectMiddleware(config.IsProduction(cfg)))
	router.Use(CORSMiddleware(cfg.CORS.AllowedOrigins))
	router.Use(SLAMonitorMiddleware(DefaultSLAConfig()))
	if cfg.Server.RateLimitRPS > 0 {
		router.Use(RateLimitMiddleware(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst))
	}
	if cfg.Tracing.Enabled {
		router.Use(TracingMiddleware())
	}

	// 健康检查
	healthController := NewHealthController(db)
	router.GET("/health", healthController.Check)

	// Prometheus 指标端点
	router.GET("/metrics", MetricsHandler)

	// 通知 WebSocket 路由
	if hub != nil && validator != nil {
		router.GET("/ws/notifications", websocket.NotificationHandler(hub, validator))
	}

	// 未匹配路由返回 JSON 格式的 404
	router.NoRoute(func(c *gin.Context) {
		Error(c, http.StatusNotFound, "route not found", "the requested route does not exist")
	})

	return router
}

// RegisterRoutes 注册业务路由,全部要求认证
func RegisterRoutes(
	router *gin.Engine,
	validator *auth.TokenValidator,
	requestController *RequestController,
	employeeController *EmployeeController,
) {
	v1 := router.Group("/api/v1")
	v1.Use(auth.AuthMiddleware(validator))
	{
		// 培训申请路由
		requests := v1.Group("/requests")
		{
			requests.POST("", requestController.Submit)
			requests.GET("", requestController.List)
			requests.GET("/:id", requestController.Get)
			requests.GET("/:id/chain", requestController.GetChain)
			requests.POST("/:id/approve", requestController.Approve)
			requests.POST("/:id/reject", requestController.Reject)
			requests.POST("/:id/process", requestController.Process)
			requests.POST("/:id/cancel", requestController.Cancel)
		}

		// 员工目录路由(只读)
		employees := v1.Group("/employees")
		{
			employees.GET("", employeeController.List)
			employees.GET("/:id", employeeController.Get)
			employees.GET("/:id/manager", employeeController.Manager)
		}
	}
}
