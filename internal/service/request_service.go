package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arslant84/l1a-test-sub000/internal/directory"
	"github.com/arslant84/l1a-test-sub000/internal/engine"
	"github.com/arslant84/l1a-test-sub000/internal/metrics"
	"github.com/arslant84/l1a-test-sub000/internal/model"
	"github.com/arslant84/l1a-test-sub000/internal/notify"
	"github.com/arslant84/l1a-test-sub000/internal/repository"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// maxSaveAttempts 乐观并发冲突时整个操作的最大重试次数
const maxSaveAttempts = 3

// RequestService 培训申请生命周期服务接口
// 封装引擎的持久化与通知副作用,并负责并发控制;
// 操作者始终以显式参数传入,授权在每次调用时对照目录实时数据复核
type RequestService interface {
	Submit(ctx context.Context, draft *engine.Draft, requesterID string) (*model.TrainingRequest, error)
	Decide(ctx context.Context, id string, actorID string, decision model.Decision, notes string) (*model.TrainingRequest, error)
	ProcessByCM(ctx context.Context, id string, actorID string, notes string) (*model.TrainingRequest, error)
	Cancel(ctx context.Context, id string, actorID string, reason string) (*model.TrainingRequest, error)
	Get(ctx context.Context, id string, actorID string) (*model.TrainingRequest, error)
	ListVisibleTo(ctx context.Context, actorID string) ([]*model.TrainingRequest, error)
}

// requestService 培训申请生命周期服务实现
type requestService struct {
	eng         *engine.Engine
	repo        repository.RequestRepository
	dir         directory.Directory
	router      notify.Router
	auditLogSvc AuditLogService
	logger      *logrus.Logger
}

// NewRequestService 创建培训申请生命周期服务
func NewRequestService(
	eng *engine.Engine,
	repo repository.RequestRepository,
	dir directory.Directory,
	router notify.Router,
	auditLogSvc AuditLogService,
	logger *logrus.Logger,
) RequestService {
	if logger == nil {
		logger = logrus.New()
	}
	return &requestService{
		eng:         eng,
		repo:        repo,
		dir:         dir,
		router:      router,
		auditLogSvc: auditLogSvc,
		logger:      logger,
	}
}

// Submit 提交新的培训申请
func (s *requestService) Submit(ctx context.Context, draft *engine.Draft, requesterID string) (*model.TrainingRequest, error) {
	requester, err := s.dir.GetByID(requesterID)
	if err != nil {
		return nil, err
	}

	req, err := s.eng.Submit(draft, requester)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(req); err != nil {
		return nil, &engine.RepositoryError{Op: "create", Err: err}
	}

	metrics.RecordRequestSubmitted()

	// 通知解析出的直属主管;申请人没有主管时只记录日志,不影响已提交的申请
	if manager, err := s.dir.ManagerOf(requester.ID); err == nil {
		s.publish(&notify.Event{
			Type:       model.EventRequestSubmitted,
			RequestID:  req.ID,
			Recipients: []string{manager.ID},
			Request:    req,
			OccurredAt: req.SubmittedDate,
		})
	} else {
		s.logger.WithField("employee_id", requester.ID).Warn("no manager resolved for submitted request")
	}

	s.recordAudit(ctx, requesterID, "submit", req.ID,
		fmt.Sprintf(`{"request_id":"%s","title":"%s"}`, req.ID, req.TrainingTitle))

	return req, nil
}

// Decide 在当前审批步骤上做出同意/拒绝决定
// 采用乐观并发:版本令牌不匹配时重新加载并整体重试,耗尽后返回 StateConflictError,
// 绝不在过期状态上应用决定
func (s *requestService) Decide(ctx context.Context, id string, actorID string, decision model.Decision, notes string) (*model.TrainingRequest, error) {
	actor, err := s.dir.GetByID(actorID)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		snapshot, version, err := s.load(id)
		if err != nil {
			return nil, err
		}

		// supervisor 步骤对照目录实时数据解析主管,
		// 主管调整对在途申请立即生效
		managerID := ""
		if actor.Role == model.RoleSupervisor {
			manager, err := s.dir.ManagerOf(snapshot.EmployeeID)
			if err != nil {
				var notFound *engine.NotFoundError
				if !errors.As(err, &notFound) {
					return nil, err
				}
			} else {
				managerID = manager.ID
			}
		}

		next, err := s.eng.Decide(snapshot, actor, managerID, decision, notes)
		if err != nil {
			// 引擎错误是确定性的,重试同样的输入只会得到同样的错误
			return snapshot, err
		}

		if err := s.repo.CompareAndSave(id, version, next); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				continue
			}
			return nil, &engine.RepositoryError{Op: "compare and save", Err: err}
		}

		metrics.RecordDecision(decision.String())
		s.publishDecideEvents(next, actor)
		s.recordAudit(ctx, actorID, decision.String(), id,
			fmt.Sprintf(`{"request_id":"%s","step":"%s","notes":"%s"}`, id, snapshot.CurrentStep, notes))
		return next, nil
	}

	metrics.RecordStateConflict()
	return nil, &engine.StateConflictError{RequestID: id, Attempts: maxSaveAttempts}
}

// ProcessByCM 由 CM 处理已完全审批通过的申请
func (s *requestService) ProcessByCM(ctx context.Context, id string, actorID string, notes string) (*model.TrainingRequest, error) {
	actor, err := s.dir.GetByID(actorID)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		snapshot, version, err := s.load(id)
		if err != nil {
			return nil, err
		}

		next, err := s.eng.ProcessByCM(snapshot, actor, notes)
		if err != nil {
			return snapshot, err
		}

		if err := s.repo.CompareAndSave(id, version, next); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				continue
			}
			return nil, &engine.RepositoryError{Op: "compare and save", Err: err}
		}

		metrics.RecordDecision("processed")
		s.publish(&notify.Event{
			Type:       model.EventRequestProcessed,
			RequestID:  next.ID,
			Recipients: []string{next.EmployeeID},
			Request:    next,
			OccurredAt: next.LastUpdated,
		})
		s.recordAudit(ctx, actorID, "process", id,
			fmt.Sprintf(`{"request_id":"%s","notes":"%s"}`, id, notes))
		return next, nil
	}

	metrics.RecordStateConflict()
	return nil, &engine.StateConflictError{RequestID: id, Attempts: maxSaveAttempts}
}

// Cancel 取消申请,只有申请人本人可以取消自己的申请
func (s *requestService) Cancel(ctx context.Context, id string, actorID string, reason string) (*model.TrainingRequest, error) {
	actor, err := s.dir.GetByID(actorID)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		snapshot, version, err := s.load(id)
		if err != nil {
			return nil, err
		}

		if snapshot.EmployeeID != actor.ID {
			return snapshot, &engine.AuthorizationError{
				ActorID: actor.ID,
				Message: "only the requester can cancel their own request",
			}
		}

		next, err := s.eng.Cancel(snapshot, actor, reason)
		if err != nil {
			return snapshot, err
		}

		if err := s.repo.CompareAndSave(id, version, next); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				continue
			}
			return nil, &engine.RepositoryError{Op: "compare and save", Err: err}
		}

		metrics.RecordDecision("cancelled")
		s.publish(&notify.Event{
			Type:       model.EventRequestCancelled,
			RequestID:  next.ID,
			Recipients: []string{next.EmployeeID},
			Request:    next,
			OccurredAt: next.LastUpdated,
		})
		s.recordAudit(ctx, actorID, "cancel", id,
			fmt.Sprintf(`{"request_id":"%s","reason":"%s"}`, id, reason))
		return next, nil
	}

	metrics.RecordStateConflict()
	return nil, &engine.StateConflictError{RequestID: id, Attempts: maxSaveAttempts}
}

// Get 获取单个申请,按操作者角色做可见性检查
func (s *requestService) Get(ctx context.Context, id string, actorID string) (*model.TrainingRequest, error) {
	actor, err := s.dir.GetByID(actorID)
	if err != nil {
		return nil, err
	}

	snapshot, _, err := s.load(id)
	if err != nil {
		return nil, err
	}

	visible, err := s.visibleTo(actor, snapshot)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, &engine.AuthorizationError{
			ActorID: actor.ID,
			Message: "request is not visible to this actor",
		}
	}
	return snapshot, nil
}

// ListVisibleTo 列出操作者可见的申请
// 可见性: 员工只看自己的;主管看直接下属的加自己的;
// thr/ceo 看当前或曾经处于其步骤的;cm 看所有 approved 的
func (s *requestService) ListVisibleTo(ctx context.Context, actorID string) ([]*model.TrainingRequest, error) {
	actor, err := s.dir.GetByID(actorID)
	if err != nil {
		return nil, err
	}

	var filter repository.RequestFilter
	switch actor.Role {
	case model.RoleEmployee:
		filter.EmployeeID = &actor.ID
	case model.RoleSupervisor:
		reports, err := s.dir.DirectReportsOf(actor.ID)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(reports)+1)
		for _, r := range reports {
			ids = append(ids, r.ID)
		}
		ids = append(ids, actor.ID)
		filter.EmployeeIDs = ids
	case model.RoleTHR:
		step := model.StepTHR
		filter.SeenAtStep = &step
	case model.RoleCEO:
		step := model.StepCEO
		filter.SeenAtStep = &step
	case model.RoleCM:
		status := model.StatusApproved
		filter.Status = &status
	default:
		return nil, &engine.AuthorizationError{ActorID: actor.ID, Message: "unknown role"}
	}

	reqs, err := s.repo.FindByFilter(&filter)
	if err != nil {
		return nil, &engine.RepositoryError{Op: "find by filter", Err: err}
	}
	return reqs, nil
}

// load 加载申请快照和版本令牌,统一错误映射
func (s *requestService) load(id string) (*model.TrainingRequest, time.Time, error) {
	snapshot, version, err := s.repo.Load(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, time.Time{}, &engine.NotFoundError{Resource: "request", ID: id}
		}
		return nil, time.Time{}, &engine.RepositoryError{Op: "load", Err: err}
	}
	return snapshot, version, nil
}

// visibleTo 判断申请对操作者是否可见
func (s *requestService) visibleTo(actor *model.Employee, req *model.TrainingRequest) (bool, error) {
	switch actor.Role {
	case model.RoleEmployee:
		return req.EmployeeID == actor.ID, nil
	case model.RoleSupervisor:
		if req.EmployeeID == actor.ID {
			return true, nil
		}
		manager, err := s.dir.ManagerOf(req.EmployeeID)
		if err != nil {
			var notFound *engine.NotFoundError
			if errors.As(err, &notFound) {
				return false, nil
			}
			return false, err
		}
		return manager.ID == actor.ID, nil
	case model.RoleTHR, model.RoleCEO:
		step := model.StepTHR
		if actor.Role == model.RoleCEO {
			step = model.StepCEO
		}
		if req.CurrentStep == step {
			return true, nil
		}
		for _, action := range req.ApprovalChain {
			if action.StepRole == step {
				return true, nil
			}
		}
		return false, nil
	case model.RoleCM:
		return req.Status == model.StatusApproved, nil
	}
	return false, nil
}

// publishDecideEvents 发布决定相关的通知事件
// 申请人总是收到决定结果;步骤推进到非终止步骤时,
// 通知新步骤对应角色的目录成员
func (s *requestService) publishDecideEvents(req *model.TrainingRequest, actor *model.Employee) {
	s.publish(&notify.Event{
		Type:       model.EventRequestDecided,
		RequestID:  req.ID,
		Recipients: []string{req.EmployeeID},
		Request:    req,
		OccurredAt: req.LastUpdated,
	})

	if req.CurrentStep.IsTerminal() {
		return
	}
	role, ok := req.CurrentStep.Role()
	if !ok {
		return
	}
	members, err := s.dir.GetByRole(role)
	if err != nil {
		s.logger.WithError(err).WithField("role", role).Warn("failed to resolve step recipients")
		return
	}
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	if len(ids) == 0 {
		return
	}
	s.publish(&notify.Event{
		Type:       model.EventStepAdvanced,
		RequestID:  req.ID,
		Recipients: ids,
		Request:    req,
		OccurredAt: req.LastUpdated,
	})
}

// publish 发布事件,投递失败记录日志但不回滚已提交的状态变更
func (s *requestService) publish(evt *notify.Event) {
	if s.router == nil {
		return
	}
	if err := s.router.Publish(evt); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"type":       evt.Type,
			"request_id": evt.RequestID,
		}).Warn("failed to publish notification event")
	}
}

// recordAudit 记录审计日志,尽力而为
func (s *requestService) recordAudit(ctx context.Context, userID string, action string, resourceID string, details string) {
	if s.auditLogSvc == nil || userID == "" {
		return
	}
	_ = s.auditLogSvc.RecordAction(ctx, userID, action, "request", resourceID, details)
}
