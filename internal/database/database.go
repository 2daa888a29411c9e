package database

import (
	"context"
	"fmt"
	"time"

	"github.com/arslant84/l1a-test-sub000/internal/config"
	"github.com/arslant84/l1a-test-sub000/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// PoolConfig 连接池配置
type PoolConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime int // 秒
	ConnMaxIdleTime int // 秒
}

// BuildDSN 构建 PostgreSQL DSN
func BuildDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

// defaultPoolConfig 默认连接池配置
func defaultPoolConfig(production bool) *PoolConfig {
	if production {
		return &PoolConfig{
			MaxIdleConns:    20,
			MaxOpenConns:    200,
			ConnMaxLifetime: 3600, // 1 小时
			ConnMaxIdleTime: 300,  // 5 分钟
		}
	}
	return &PoolConfig{
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: 3600, // 1 小时
		ConnMaxIdleTime: 600,  // 10 分钟
	}
}

// Connect 连接数据库, driver 为 sqlite 时 DBName 作为文件路径(支持 :memory:)
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	return connect(cfg, false)
}

// ConnectProduction 连接数据库（生产环境连接池默认值）
func ConnectProduction(cfg config.DatabaseConfig) (*gorm.DB, error) {
	return connect(cfg, true)
}

func connect(cfg config.DatabaseConfig, production bool) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if cfg.Driver == "sqlite" || cfg.Driver == "sqlite3" {
		dialector = sqlite.Open(cfg.DBName)
	} else {
		dialector = postgres.Open(BuildDSN(cfg))
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	pool := defaultPoolConfig(production)
	if cfg.MaxIdleConns > 0 {
		pool.MaxIdleConns = cfg.MaxIdleConns
	}
	if cfg.MaxOpenConns > 0 {
		pool.MaxOpenConns = cfg.MaxOpenConns
	}
	if cfg.ConnMaxLifetime > 0 {
		pool.ConnMaxLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		pool.ConnMaxIdleTime = cfg.ConnMaxIdleTime
	}

	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(pool.ConnMaxIdleTime) * time.Second)

	return db, nil
}

// ConnectWithRetry 带重试的数据库连接
func ConnectWithRetry(cfg config.DatabaseConfig, maxRetries int, retryInterval time.Duration) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	for i := 0; i < maxRetries; i++ {
		db, err = Connect(cfg)
		if err == nil {
			return db, nil
		}

		if i < maxRetries-1 {
			time.Sleep(retryInterval)
			retryInterval *= 2 // 指数退避
		}
	}

	return nil, fmt.Errorf("failed to connect database after %d retries: %w", maxRetries, err)
}

// Migrate 执行数据库迁移
func Migrate(db *gorm.DB) error {
	dialector := db.Dialector.Name()

	// SQLite 不支持 jsonb，需要手动创建表
	if dialector == "sqlite" || dialector == "sqlite3" {
		if err := createSQLiteTables(db); err != nil {
			return fmt.Errorf("failed to create SQLite tables: %w", err)
		}
	} else {
		if err := db.AutoMigrate(
			&model.Employee{},
			&model.TrainingRequest{},
			&model.Notification{},
			&model.AuditLog{},
		); err != nil {
			return fmt.Errorf("failed to auto migrate: %w", err)
		}
	}

	if err := CreateIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// createSQLiteTables 为 SQLite 手动创建表（使用 TEXT 替代 jsonb）
func createSQLiteTables(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS employees (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL UNIQUE,
			department VARCHAR(128),
			role VARCHAR(32) NOT NULL,
			manager_id VARCHAR(64),
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create employees table: %w", err)
	}

	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS training_requests (
			id VARCHAR(64) PRIMARY KEY,
			employee_id VARCHAR(64) NOT NULL,
			employee_name VARCHAR(255) NOT NULL,
			training_title VARCHAR(255) NOT NULL,
			justification TEXT,
			organiser VARCHAR(255),
			venue VARCHAR(255),
			start_date DATETIME NOT NULL,
			end_date DATETIME NOT NULL,
			cost NUMERIC NOT NULL DEFAULT 0,
			mode VARCHAR(32) NOT NULL,
			program_type VARCHAR(128),
			status VARCHAR(32) NOT NULL,
			current_step VARCHAR(32) NOT NULL,
			approval_chain TEXT NOT NULL DEFAULT '[]',
			cancelled_by_user_id VARCHAR(64),
			cancelled_date DATETIME,
			cancellation_reason TEXT,
			submitted_date DATETIME NOT NULL,
			last_updated DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create training_requests table: %w", err)
	}

	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS notifications (
			id VARCHAR(64) PRIMARY KEY,
			request_id VARCHAR(64) NOT NULL,
			type VARCHAR(32) NOT NULL,
			recipients TEXT NOT NULL,
			payload TEXT NOT NULL,
			status VARCHAR(32) NOT NULL DEFAULT 'pending',
			retry_count INTEGER DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create notifications table: %w", err)
	}

	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_logs (
			id VARCHAR(64) PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			action VARCHAR(64) NOT NULL,
			resource_type VARCHAR(32) NOT NULL,
			resource_id VARCHAR(64) NOT NULL,
			request_id VARCHAR(64),
			ip VARCHAR(45),
			user_agent TEXT,
			details TEXT,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create audit_logs table: %w", err)
	}

	return nil
}

// CreateIndexes 创建数据库索引
func CreateIndexes(db *gorm.DB) error {
	dialector := db.Dialector.Name()

	// employees 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_employees_role ON employees(role)").Error; err != nil {
		return fmt.Errorf("failed to create idx_employees_role: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_employees_manager_id ON employees(manager_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_employees_manager_id: %w", err)
	}

	// training_requests 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_requests_employee_id ON training_requests(employee_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_requests_employee_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_requests_status_step ON training_requests(status, current_step)").Error; err != nil {
		return fmt.Errorf("failed to create idx_requests_status_step: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_requests_last_updated ON training_requests(last_updated)").Error; err != nil {
		return fmt.Errorf("failed to create idx_requests_last_updated: %w", err)
	}

	// notifications 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_notifications_status ON notifications(status)").Error; err != nil {
		return fmt.Errorf("failed to create idx_notifications_status: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_notifications_request_id ON notifications(request_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_notifications_request_id: %w", err)
	}

	// audit_logs 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_audit_resource ON audit_logs(resource_type, resource_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_audit_resource: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_audit_user_id ON audit_logs(user_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_audit_user_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_audit_created_at ON audit_logs(created_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_audit_created_at: %w", err)
	}

	// PostgreSQL 特定的 GIN 索引
	if dialector == "postgres" {
		if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_requests_chain_gin ON training_requests USING GIN (approval_chain)").Error; err != nil {
			return fmt.Errorf("failed to create idx_requests_chain_gin: %w", err)
		}
	}

	return nil
}

// CheckHealth 检查数据库连接健康状态
func CheckHealth(db *gorm.DB) bool {
	if db == nil {
		return false
	}

	sqlDB, err := db.DB()
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return sqlDB.PingContext(ctx) == nil
}

// Reconnect 重新连接数据库
func Reconnect(cfg config.DatabaseConfig, oldDB *gorm.DB) (*gorm.DB, error) {
	if oldDB != nil {
		if sqlDB, err := oldDB.DB(); err == nil {
			sqlDB.Close()
		}
	}

	return Connect(cfg)
}
