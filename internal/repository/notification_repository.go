package repository

import (
	"time"

	"github.com/arslant84/l1a-test-sub000/internal/model"
	"gorm.io/gorm"
)

// NotificationRepository 通知仓储接口
type NotificationRepository interface {
	Save(n *model.Notification) error
	FindByRequestID(requestID string) ([]*model.Notification, error)
	FindPending(limit int) ([]*model.Notification, error)
	FindRetryable(maxRetries int, limit int) ([]*model.Notification, error)
	UpdateStatus(id string, status string, retryCount int) error
}

// notificationRepository 通知仓储实现
type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository 创建通知仓储
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// Save 保存通知
func (r *notificationRepository) Save(n *model.Notification) error {
	return r.db.Save(n).Error
}

// FindByRequestID 根据申请 ID 查找通知
func (r *notificationRepository) FindByRequestID(requestID string) ([]*model.Notification, error) {
	var ns []*model.Notification
	err := r.db.Where("request_id = ?", requestID).Order("created_at ASC").Find(&ns).Error
	return ns, err
}

// FindPending 查找待投递的通知
func (r *notificationRepository) FindPending(limit int) ([]*model.Notification, error) {
	var ns []*model.Notification
	query := r.db.Where("status = ?", "pending").Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&ns).Error
	return ns, err
}

// FindRetryable 查找投递失败且未超过重试上限的通知
func (r *notificationRepository) FindRetryable(maxRetries int, limit int) ([]*model.Notification, error) {
	var ns []*model.Notification
	query := r.db.Where("status = ? AND retry_count < ?", "failed", maxRetries).Order("updated_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&ns).Error
	return ns, err
}

// UpdateStatus 更新通知投递状态
func (r *notificationRepository) UpdateStatus(id string, status string, retryCount int) error {
	return r.db.Model(&model.Notification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      status,
			"retry_count": retryCount,
			"updated_at":  time.Now(),
		}).Error
}
