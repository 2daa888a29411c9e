package container

import (
	"fmt"
	"time"

	"github.com/arslant84/l1a-test-sub000/internal/auth"
	"github.com/arslant84/l1a-test-sub000/internal/config"
	"github.com/arslant84/l1a-test-sub000/internal/database"
	"github.com/arslant84/l1a-test-sub000/internal/directory"
	"github.com/arslant84/l1a-test-sub000/internal/engine"
	"github.com/arslant84/l1a-test-sub000/internal/notify"
	"github.com/arslant84/l1a-test-sub000/internal/repository"
	"github.com/arslant84/l1a-test-sub000/internal/service"
	"github.com/arslant84/l1a-test-sub000/internal/websocket"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Container 依赖注入容器
// 管理所有应用依赖,包括数据库、服务、通知路由等
type Container struct {
	db             *gorm.DB
	hub            *websocket.Hub
	router         notify.Router
	tokenValidator *auth.TokenValidator
	dir            directory.Directory
	requestService service.RequestService
	auditLogSvc    service.AuditLogService
}

// NewContainer 创建依赖注入容器
// 根据配置初始化所有依赖组件
func NewContainer(cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	// 1. 初始化数据库（带重试机制）
	// 默认重试 3 次，初始间隔 1 秒，指数退避
	db, err := database.ConnectWithRetry(cfg.Database, 3, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// 执行数据库迁移
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// 2. 仓储层
	requestRepo := repository.NewRequestRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	// 3. 员工目录与审批引擎
	dir := directory.New(employeeRepo)
	eng := engine.NewEngine()

	// 4. WebSocket Hub 与通知路由
	hub := websocket.NewHub()
	go hub.Run()

	workers := cfg.Notify.Workers
	if workers <= 0 {
		workers = 4
	}
	router := notify.NewRouter(notificationRepo, hub, cfg.Notify.WebhookURL, workers, logger)

	// 5. Token 验证器
	tokenValidator := auth.NewTokenValidator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	// 6. 业务服务
	auditLogSvc := service.NewAuditLogService(auditRepo)
	requestService := service.NewRequestService(eng, requestRepo, dir, router, auditLogSvc, logger)

	return &Container{
		db:             db,
		hub:            hub,
		router:         router,
		tokenValidator: tokenValidator,
		dir:            dir,
		requestService: requestService,
		auditLogSvc:    auditLogSvc,
	}, nil
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// Hub 获取 WebSocket Hub
func (c *Container) Hub() *websocket.Hub {
	return c.hub
}

// Router 获取通知路由
func (c *Container) Router() notify.Router {
	return c.router
}

// TokenValidator 获取 Token 验证器
func (c *Container) TokenValidator() *auth.TokenValidator {
	return c.tokenValidator
}

// Directory 获取员工目录
func (c *Container) Directory() directory.Directory {
	return c.dir
}

// RequestService 获取培训申请服务
func (c *Container) RequestService() service.RequestService {
	return c.requestService
}

// AuditLogService 获取审计日志服务
func (c *Container) AuditLogService() service.AuditLogService {
	return c.auditLogSvc
}

// Close 关闭容器,清理资源
func (c *Container) Close() error {
	if c.router != nil {
		c.router.Close()
	}

	if c.hub != nil {
		c.hub.Stop()
	}

	if c.db != nil {
		sqlDB, err := c.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	return nil
}
