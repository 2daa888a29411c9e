package model

import (
	"errors"
	"time"
)

// Employee 员工数据模型
type Employee struct {
	ID         string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name       string    `gorm:"type:varchar(255);not null" json:"name"`
	Email      string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	Department string    `gorm:"type:varchar(128)" json:"department"`
	Role       Role      `gorm:"type:varchar(32);not null;index" json:"role"`
	ManagerID  *string   `gorm:"type:varchar(64);index" json:"manager_id,omitempty"` // 上级主管 ID,仅 employee/supervisor 设置
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

// TableName 指定表名
func (Employee) TableName() string {
	return "employees"
}

// Validate 验证员工模型
func (e *Employee) Validate() error {
	if e.ID == "" {
		return errors.New("employee ID is required")
	}
	if e.Name == "" {
		return errors.New("employee name is required")
	}
	if e.Email == "" {
		return errors.New("employee email is required")
	}
	if !e.Role.IsValid() {
		return errors.New("employee role is invalid")
	}
	return nil
}
