package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/arslant84/l1a-test-sub000/internal/model"
	"gorm.io/gorm"
)

// ErrVersionConflict 乐观并发冲突,期望的版本令牌与存储中的不一致
var ErrVersionConflict = errors.New("request version conflict")

// RequestRepository 培训申请仓储接口
// LastUpdated 充当版本令牌,CompareAndSave 只在令牌匹配时写入
type RequestRepository interface {
	Create(req *model.TrainingRequest) error
	Load(id string) (*model.TrainingRequest, time.Time, error)
	CompareAndSave(id string, expectedVersion time.Time, req *model.TrainingRequest) error
	FindByFilter(filter *RequestFilter) ([]*model.TrainingRequest, error)
}

// RequestFilter 申请查询过滤器
type RequestFilter struct {
	EmployeeID  *string
	EmployeeIDs []string
	Status      *model.Status
	Step        *model.Step
	SeenAtStep  *model.Step // 当前或曾经处于该步骤
}

// requestRepository 培训申请仓储实现
type requestRepository struct {
	db *gorm.DB
}

// NewRequestRepository 创建培训申请仓储
func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

// Create 创建申请
func (r *requestRepository) Create(req *model.TrainingRequest) error {
	return r.db.Create(req).Error
}

// Load 根据 ID 加载申请快照和版本令牌
func (r *requestRepository) Load(id string) (*model.TrainingRequest, time.Time, error) {
	var req model.TrainingRequest
	if err := r.db.Where("id = ?", id).First(&req).Error; err != nil {
		return nil, time.Time{}, err
	}
	return &req, req.LastUpdated, nil
}

// CompareAndSave 在版本令牌匹配时保存新快照
// 使用单条带条件的 UPDATE 实现比较并保存,RowsAffected 为 0 说明
// 另一个操作者先行修改了该申请,返回 ErrVersionConflict
func (r *requestRepository) CompareAndSave(id string, expectedVersion time.Time, req *model.TrainingRequest) error {
	result := r.db.Model(&model.TrainingRequest{}).
		Where("id = ? AND last_updated = ?", id, expectedVersion).
		Select("*").Omit("id").
		Updates(req)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// FindByFilter 根据过滤器查找申请
func (r *requestRepository) FindByFilter(filter *RequestFilter) ([]*model.TrainingRequest, error) {
	var reqs []*model.TrainingRequest
	query := r.db.Model(&model.TrainingRequest{})

	if filter != nil {
		if filter.EmployeeID != nil {
			query = query.Where("employee_id = ?", *filter.EmployeeID)
		}
		if len(filter.EmployeeIDs) > 0 {
			query = query.Where("employee_id IN ?", filter.EmployeeIDs)
		}
		if filter.Status != nil {
			query = query.Where("status = ?", *filter.Status)
		}
		if filter.Step != nil {
			query = query.Where("current_step = ?", *filter.Step)
		}
		if filter.SeenAtStep != nil {
			cond, args := seenAtStepCondition(r.db.Dialector.Name(), *filter.SeenAtStep)
			query = query.Where(cond, args...)
		}
	}

	err := query.Order("submitted_date DESC").Find(&reqs).Error
	return reqs, err
}

// seenAtStepCondition 构造"当前或曾经处于该步骤"的查询条件
// postgres 会规范化 jsonb 的文本形式(冒号后带空格), 文本 LIKE 匹配不到
// 序列化时的原文, 因此用 @> 包含判断, 同时命中 approval_chain 上的 GIN 索引;
// sqlite 把审批链存为原始 JSON 文本, 按文本 LIKE 匹配
func seenAtStepCondition(dialect string, step model.Step) (string, []interface{}) {
	if dialect == "postgres" {
		contains := fmt.Sprintf(`[{"step_role":%q}]`, step.String())
		return "current_step = ? OR approval_chain @> ?", []interface{}{step, contains}
	}
	pattern := `%"step_role":"` + step.String() + `"%`
	return "current_step = ? OR CAST(approval_chain AS TEXT) LIKE ?", []interface{}{step, pattern}
}
