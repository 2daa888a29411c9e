package engine

import (
	"time"

	"github.com/arslant84/l1a-test-sub000/internal/model"
	"github.com/google/uuid"
)

// EscalationCostThreshold 超过该费用的申请在 thr 审批通过后升级到 ceo
const EscalationCostThreshold = 2000

// Draft 培训申请草稿,提交时的不可变输入字段
type Draft struct {
	TrainingTitle string
	Justification string
	Organiser     string
	Venue         string
	StartDate     time.Time
	EndDate       time.Time
	Cost          float64
	Mode          model.TrainingMode
	ProgramType   string
}

// Engine 审批工作流引擎
// 纯决策逻辑,不做任何 I/O,所有变更在传入快照的副本上计算并返回新快照,
// 因此可以安全地并发调用
type Engine struct {
	now func() time.Time
}

// NewEngine 创建审批工作流引擎
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// NewEngineWithClock 创建使用指定时钟的引擎(用于测试)
func NewEngineWithClock(now func() time.Time) *Engine {
	return &Engine{now: now}
}

// tick 返回严格晚于 prev 的当前时间
// LastUpdated 必须在每次接受的变更上严格递增,它同时充当版本令牌
func (e *Engine) tick(prev time.Time) time.Time {
	now := e.now()
	if !now.After(prev) {
		now = prev.Add(time.Millisecond)
	}
	return now
}

// Submit 根据草稿创建新的培训申请
// 新申请 status=pending,step=supervisor,审批链为空
func (e *Engine) Submit(draft *Draft, requester *model.Employee) (*model.TrainingRequest, error) {
	if draft.TrainingTitle == "" {
		return nil, &ValidationError{Field: "training_title", Message: "training title is required"}
	}
	if draft.Cost < 0 {
		return nil, &ValidationError{Field: "cost", Message: "cost must be non-negative"}
	}
	if draft.StartDate.IsZero() || draft.EndDate.IsZero() {
		return nil, &ValidationError{Field: "dates", Message: "start and end dates are required"}
	}
	if draft.EndDate.Before(draft.StartDate) {
		return nil, &ValidationError{Field: "end_date", Message: "end date must not be before start date"}
	}
	if !draft.Mode.IsValid() {
		return nil, &ValidationError{Field: "mode", Message: "training mode is invalid"}
	}

	now := e.now()
	return &model.TrainingRequest{
		ID:            uuid.New().String(),
		EmployeeID:    requester.ID,
		EmployeeName:  requester.Name,
		TrainingTitle: draft.TrainingTitle,
		Justification: draft.Justification,
		Organiser:     draft.Organiser,
		Venue:         draft.Venue,
		StartDate:     draft.StartDate,
		EndDate:       draft.EndDate,
		Cost:          draft.Cost,
		Mode:          draft.Mode,
		ProgramType:   draft.ProgramType,
		Status:        model.StatusPending,
		CurrentStep:   model.StepSupervisor,
		ApprovalChain: model.ApprovalChain{},
		SubmittedDate: now,
		LastUpdated:   now,
	}, nil
}

// Decide 在当前审批步骤上做出同意/拒绝决定
// managerID 是申请人的直属主管 ID,由调用方从目录解析后传入,
// supervisor 步骤额外要求 actor 是申请人的直属主管
func (e *Engine) Decide(req *model.TrainingRequest, actor *model.Employee, managerID string, decision model.Decision, notes string) (*model.TrainingRequest, error) {
	if decision != model.DecisionApproved && decision != model.DecisionRejected {
		return nil, &ValidationError{Field: "decision", Message: "decision must be approved or rejected"}
	}
	if req.Status != model.StatusPending {
		return nil, &InvalidTransitionError{
			Status:  req.Status.String(),
			Step:    req.CurrentStep.String(),
			Message: "only pending requests can be decided",
		}
	}
	stepRole, ok := req.CurrentStep.Role()
	if !ok {
		return nil, &InvalidTransitionError{
			Status:  req.Status.String(),
			Step:    req.CurrentStep.String(),
			Message: "current step has no approver role",
		}
	}
	if actor.Role != stepRole {
		return nil, &AuthorizationError{
			ActorID: actor.ID,
			Message: "actor role " + actor.Role.String() + " does not match current step " + req.CurrentStep.String(),
		}
	}
	if actor.Role == model.RoleSupervisor && managerID != actor.ID {
		return nil, &AuthorizationError{
			ActorID: actor.ID,
			Message: "actor is not the requester's direct manager",
		}
	}

	next := req.Clone()
	now := e.tick(req.LastUpdated)
	next.ApprovalChain = append(next.ApprovalChain, model.ApprovalAction{
		StepRole: req.CurrentStep,
		Decision: decision,
		UserID:   actor.ID,
		UserName: actor.Name,
		Notes:    notes,
		Date:     now,
	})

	if decision == model.DecisionRejected {
		next.Status = model.StatusRejected
		next.CurrentStep = model.StepCompleted
		next.LastUpdated = now
		return next, nil
	}

	switch req.CurrentStep {
	case model.StepSupervisor:
		next.CurrentStep = model.StepTHR
		next.Status = model.StatusPending
	case model.StepTHR:
		// 费用/地点升级规则只在 thr 步骤通过时判断一次,
		// 使用申请上保存的值,不再对照任何外部预算复核
		if req.Cost > EscalationCostThreshold || req.Mode == model.ModeOverseas {
			next.CurrentStep = model.StepCEO
			next.Status = model.StatusPending
		} else {
			next.CurrentStep = model.StepCM
			next.Status = model.StatusApproved
		}
	case model.StepCEO:
		next.CurrentStep = model.StepCM
		next.Status = model.StatusApproved
	}

	next.LastUpdated = now
	return next, nil
}

// ProcessByCM 由 CM 处理已完全审批通过的申请
// 前置条件: status=approved 且 step=cm;处理后 step=completed,status 保持 approved
func (e *Engine) ProcessByCM(req *model.TrainingRequest, actor *model.Employee, notes string) (*model.TrainingRequest, error) {
	if req.Status != model.StatusApproved || req.CurrentStep != model.StepCM {
		return nil, &InvalidTransitionError{
			Status:  req.Status.String(),
			Step:    req.CurrentStep.String(),
			Message: "only approved requests awaiting CM processing can be processed",
		}
	}
	if actor.Role != model.RoleCM {
		return nil, &AuthorizationError{
			ActorID: actor.ID,
			Message: "only CM can process approved requests",
		}
	}

	next := req.Clone()
	now := e.tick(req.LastUpdated)
	next.ApprovalChain = append(next.ApprovalChain, model.ApprovalAction{
		StepRole: model.StepCM,
		Decision: model.DecisionProcessed,
		UserID:   actor.ID,
		UserName: actor.Name,
		Notes:    notes,
		Date:     now,
	})
	next.CurrentStep = model.StepCompleted
	next.LastUpdated = now
	return next, nil
}

// Cancel 取消申请
// 只允许从 pending 或 rejected 状态取消,取消本身不追加审批链条目
func (e *Engine) Cancel(req *model.TrainingRequest, actor *model.Employee, reason string) (*model.TrainingRequest, error) {
	if req.Status != model.StatusPending && req.Status != model.StatusRejected {
		return nil, &InvalidTransitionError{
			Status:  req.Status.String(),
			Step:    req.CurrentStep.String(),
			Message: "only pending or rejected requests can be cancelled",
		}
	}

	next := req.Clone()
	now := e.tick(req.LastUpdated)
	next.Status = model.StatusCancelled
	next.CurrentStep = model.StepCompleted
	next.CancelledByUserID = actor.ID
	next.CancelledDate = &now
	next.CancellationReason = reason
	next.LastUpdated = now
	return next, nil
}
