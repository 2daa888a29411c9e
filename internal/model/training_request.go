package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ApprovalAction 审批链条目,追加后不可变
type ApprovalAction struct {
	StepRole Step      `json:"step_role"` // 该条目对应的审批步骤
	Decision Decision  `json:"decision"`
	UserID   string    `json:"user_id"`
	UserName string    `json:"user_name"`
	Notes    string    `json:"notes,omitempty"`
	Date     time.Time `json:"date"`
}

// ApprovalChain 审批链,按时间顺序追加的审批记录
type ApprovalChain []ApprovalAction

// Value 实现 driver.Valuer,序列化为 JSON 存储
func (c ApprovalChain) Value() (driver.Value, error) {
	if c == nil {
		c = ApprovalChain{}
	}
	return json.Marshal(c)
}

// Scan 实现 sql.Scanner,从 JSON 反序列化
func (c *ApprovalChain) Scan(value interface{}) error {
	if value == nil {
		*c = ApprovalChain{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported approval chain type: %T", value)
	}
	if len(data) == 0 {
		*c = ApprovalChain{}
		return nil
	}
	return json.Unmarshal(data, c)
}

// Clone 深拷贝审批链
func (c ApprovalChain) Clone() ApprovalChain {
	cloned := make(ApprovalChain, len(c))
	copy(cloned, c)
	return cloned
}

// Last 返回最后一条审批记录
func (c ApprovalChain) Last() (ApprovalAction, bool) {
	if len(c) == 0 {
		return ApprovalAction{}, false
	}
	return c[len(c)-1], true
}

// TrainingRequest 培训申请数据模型
// LastUpdated 在每次接受的变更上严格递增,同时充当乐观并发的版本令牌
type TrainingRequest struct {
	ID            string        `gorm:"primaryKey;type:varchar(64)" json:"id"`
	EmployeeID    string        `gorm:"type:varchar(64);not null;index" json:"employee_id"`
	EmployeeName  string        `gorm:"type:varchar(255);not null" json:"employee_name"` // 创建时冗余
	TrainingTitle string        `gorm:"type:varchar(255);not null" json:"training_title"`
	Justification string        `gorm:"type:text" json:"justification"`
	Organiser     string        `gorm:"type:varchar(255)" json:"organiser"`
	Venue         string        `gorm:"type:varchar(255)" json:"venue"`
	StartDate     time.Time     `gorm:"not null" json:"start_date"`
	EndDate       time.Time     `gorm:"not null" json:"end_date"`
	Cost          float64       `gorm:"not null" json:"cost"`
	Mode          TrainingMode  `gorm:"type:varchar(32);not null" json:"mode"`
	ProgramType   string        `gorm:"type:varchar(128)" json:"program_type"`
	Status        Status        `gorm:"type:varchar(32);not null;index" json:"status"`
	CurrentStep   Step          `gorm:"type:varchar(32);not null;index" json:"current_step"`
	ApprovalChain ApprovalChain `gorm:"type:jsonb" json:"approval_chain"`
	SubmittedDate time.Time     `gorm:"not null;index" json:"submitted_date"`
	LastUpdated   time.Time     `gorm:"not null;index" json:"last_updated"`

	// 取消相关字段,仅在 status == cancelled 时设置
	CancelledByUserID  string     `gorm:"type:varchar(64)" json:"cancelled_by_user_id,omitempty"`
	CancelledDate      *time.Time `json:"cancelled_date,omitempty"`
	CancellationReason string     `gorm:"type:text" json:"cancellation_reason,omitempty"`
}

// TableName 指定表名
func (TrainingRequest) TableName() string {
	return "training_requests"
}

// Validate 验证培训申请模型
func (r *TrainingRequest) Validate() error {
	if r.ID == "" {
		return errors.New("request ID is required")
	}
	if r.EmployeeID == "" {
		return errors.New("employee ID is required")
	}
	if r.TrainingTitle == "" {
		return errors.New("training title is required")
	}
	if r.Cost < 0 {
		return errors.New("cost must be non-negative")
	}
	if !r.Mode.IsValid() {
		return errors.New("training mode is invalid")
	}
	if !r.Status.IsValid() {
		return errors.New("request status is invalid")
	}
	if !r.CurrentStep.IsValid() {
		return errors.New("current step is invalid")
	}
	return nil
}

// Clone 深拷贝申请快照,引擎在快照副本上计算新状态
func (r *TrainingRequest) Clone() *TrainingRequest {
	cloned := *r
	cloned.ApprovalChain = r.ApprovalChain.Clone()
	if r.CancelledDate != nil {
		d := *r.CancelledDate
		cloned.CancelledDate = &d
	}
	return &cloned
}

// IsTerminal 判断申请是否处于终止状态
func (r *TrainingRequest) IsTerminal() bool {
	switch r.Status {
	case StatusRejected, StatusCancelled:
		return true
	case StatusApproved:
		return r.CurrentStep == StepCompleted
	}
	return false
}
