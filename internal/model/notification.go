package model

import (
	"errors"
	"time"
)

// EventType 工作流事件类型
type EventType string

const (
	EventRequestSubmitted EventType = "RequestSubmitted"
	EventStepAdvanced     EventType = "StepAdvanced"
	EventRequestDecided   EventType = "RequestDecided"
	EventRequestProcessed EventType = "RequestProcessed"
	EventRequestCancelled EventType = "RequestCancelled"
)

var validEventTypes = map[EventType]bool{
	EventRequestSubmitted: true,
	EventStepAdvanced:     true,
	EventRequestDecided:   true,
	EventRequestProcessed: true,
	EventRequestCancelled: true,
}

// IsValid 判断事件类型是否合法
func (t EventType) IsValid() bool {
	return validEventTypes[t]
}

// Notification 通知数据模型,工作流事件的持久化出箱记录
type Notification struct {
	ID         string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	RequestID  string    `gorm:"type:varchar(64);not null;index" json:"request_id"`
	Type       EventType `gorm:"type:varchar(32);not null;index" json:"type"`
	Recipients []byte    `gorm:"type:jsonb;not null" json:"-"` // 收件人 ID 列表(JSON)
	Payload    []byte    `gorm:"type:jsonb;not null" json:"-"` // 序列化后的事件数据
	Status     string    `gorm:"type:varchar(32);not null;default:'pending'" json:"status"` // pending/sent/failed
	RetryCount int       `gorm:"type:int;default:0" json:"retry_count"`
	CreatedAt  time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

// TableName 指定表名
func (Notification) TableName() string {
	return "notifications"
}

// Validate 验证通知模型
func (n *Notification) Validate() error {
	if n.ID == "" {
		return errors.New("notification ID is required")
	}
	if n.RequestID == "" {
		return errors.New("request ID is required")
	}
	if !n.Type.IsValid() {
		return errors.New("notification type is invalid")
	}
	if len(n.Recipients) == 0 {
		return errors.New("notification recipients are required")
	}
	if n.Status == "" {
		n.Status = "pending"
	}
	return nil
}
