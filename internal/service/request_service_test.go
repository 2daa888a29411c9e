package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/arslant84/l1a-test-sub000/internal/database"
	"github.com/arslant84/l1a-test-sub000/internal/directory"
	"github.com/arslant84/l1a-test-sub000/internal/engine"
	"github.com/arslant84/l1a-test-sub000/internal/model"
	"github.com/arslant84/l1a-test-sub000/internal/repository"
	"github.com/arslant84/l1a-test-sub000/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fixture 服务测试环境
type fixture struct {
	db  *gorm.DB
	svc service.RequestService
}

// setupFixture 创建内存数据库、示例组织结构与服务
func setupFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	employeeRepo := repository.NewEmployeeRepository(db)
	supervisorID := "sup-1"
	employees := []*model.Employee{
		{ID: "emp-1", Name: "Aisha Rahman", Email: "aisha@example.com", Role: model.RoleEmployee, ManagerID: &supervisorID},
		{ID: "emp-2", Name: "Tomas Berg", Email: "tomas@example.com", Role: model.RoleEmployee, ManagerID: &supervisorID},
		{ID: supervisorID, Name: "Daniel Okafor", Email: "daniel@example.com", Role: model.RoleSupervisor},
		{ID: "sup-2", Name: "Lena Fischer", Email: "lena@example.com", Role: model.RoleSupervisor},
		{ID: "thr-1", Name: "Marcus Lim", Email: "marcus@example.com", Role: model.RoleTHR},
		{ID: "ceo-1", Name: "Eleanor Voss", Email: "eleanor@example.com", Role: model.RoleCEO},
		{ID: "cm-1", Name: "Priya Nair", Email: "priya@example.com", Role: model.RoleCM},
	}
	for _, emp := range employees {
		require.NoError(t, employeeRepo.Save(emp))
	}

	svc := service.NewRequestService(
		engine.NewEngine(),
		repository.NewRequestRepository(db),
		directory.New(employeeRepo),
		nil,
		service.NewAuditLogService(repository.NewAuditLogRepository(db)),
		nil,
	)
	return &fixture{db: db, svc: svc}
}

// draft 构造一个合法的申请草稿
func draft(cost float64, mode model.TrainingMode) *engine.Draft {
	return &engine.Draft{
		TrainingTitle: "Kubernetes 进阶培训",
		StartDate:     time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, 10, 3, 0, 0, 0, 0, time.UTC),
		Cost:          cost,
		Mode:          mode,
	}
}

// TestRequestService_FullLifecycle 测试低费用本地培训从提交到处理完成的完整生命周期
func TestRequestService_FullLifecycle(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	req, err := f.svc.Submit(ctx, draft(1500, model.ModeLocal), "emp-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, req.Status)
	assert.Equal(t, model.StepSupervisor, req.CurrentStep)

	req, err = f.svc.Decide(ctx, req.ID, "sup-1", model.DecisionApproved, "同意")
	require.NoError(t, err)
	assert.Equal(t, model.StepTHR, req.CurrentStep)

	req, err = f.svc.Decide(ctx, req.ID, "thr-1", model.DecisionApproved, "预算内")
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, req.Status)
	assert.Equal(t, model.StepCM, req.CurrentStep)

	req, err = f.svc.ProcessByCM(ctx, req.ID, "cm-1", "已登记")
	require.NoError(t, err)
	assert.Equal(t, model.StepCompleted, req.CurrentStep)
	assert.Len(t, req.ApprovalChain, 3)

	// 状态变更已持久化
	stored, err := f.svc.Get(ctx, req.ID, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, model.StepCompleted, stored.CurrentStep)
	assert.Len(t, stored.ApprovalChain, 3)
}

// TestRequestService_EscalationPersisted 测试高费用申请经 ceo 审批的持久化流程
func TestRequestService_EscalationPersisted(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	req, err := f.svc.Submit(ctx, draft(5000, model.ModeLocal), "emp-1")
	require.NoError(t, err)

	_, err = f.svc.Decide(ctx, req.ID, "sup-1", model.DecisionApproved, "")
	require.NoError(t, err)
	step, err := f.svc.Decide(ctx, req.ID, "thr-1", model.DecisionApproved, "")
	require.NoError(t, err)
	assert.Equal(t, model.StepCEO, step.CurrentStep)
	assert.Equal(t, model.StatusPending, step.Status)

	final, err := f.svc.Decide(ctx, req.ID, "ceo-1", model.DecisionApproved, "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, final.Status)
	assert.Equal(t, model.StepCM, final.CurrentStep)
}

// TestRequestService_WrongSupervisorDenied 测试非直属主管不能审批
func TestRequestService_WrongSupervisorDenied(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	req, err := f.svc.Submit(ctx, draft(1500, model.ModeLocal), "emp-1")
	require.NoError(t, err)

	_, err = f.svc.Decide(ctx, req.ID, "sup-2", model.DecisionApproved, "")
	var aerr *engine.AuthorizationError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "sup-2", aerr.ActorID)
}

// TestRequestService_UnknownActorOrRequest 测试不存在的操作者或申请
func TestRequestService_UnknownActorOrRequest(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, draft(1000, model.ModeLocal), "ghost")
	var nerr *engine.NotFoundError
	require.ErrorAs(t, err, &nerr)

	_, err = f.svc.Decide(ctx, "missing", "sup-1", model.DecisionApproved, "")
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, "request", nerr.Resource)
}

// TestRequestService_CancelOnlyByRequester 测试只有申请人能取消自己的申请
func TestRequestService_CancelOnlyByRequester(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	req, err := f.svc.Submit(ctx, draft(1500, model.ModeLocal), "emp-1")
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, req.ID, "emp-2", "想替别人取消")
	var aerr *engine.AuthorizationError
	require.ErrorAs(t, err, &aerr)

	cancelled, err := f.svc.Cancel(ctx, req.ID, "emp-1", "计划变更")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)
	assert.Equal(t, "emp-1", cancelled.CancelledByUserID)
	assert.NotNil(t, cancelled.CancelledDate)
}

// TestRequestService_CancelAfterRejection 测试被拒绝后仍可取消
func TestRequestService_CancelAfterRejection(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	req, err := f.svc.Submit(ctx, draft(1500, model.ModeLocal), "emp-1")
	require.NoError(t, err)

	_, err = f.svc.Decide(ctx, req.ID, "sup-1", model.DecisionRejected, "不符合计划")
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(ctx, req.ID, "emp-1", "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)
}

// TestRequestService_Visibility 测试各角色的可见范围
func TestRequestService_Visibility(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	// emp-1 的申请走到 thr;emp-2 的申请保持在 supervisor
	reqA, err := f.svc.Submit(ctx, draft(1500, model.ModeLocal), "emp-1")
	require.NoError(t, err)
	_, err = f.svc.Decide(ctx, reqA.ID, "sup-1", model.DecisionApproved, "")
	require.NoError(t, err)

	reqB, err := f.svc.Submit(ctx, draft(800, model.ModeOnline), "emp-2")
	require.NoError(t, err)

	t.Run("员工只看自己的", func(t *testing.T) {
		reqs, err := f.svc.ListVisibleTo(ctx, "emp-1")
		require.NoError(t, err)
		require.Len(t, reqs, 1)
		assert.Equal(t, reqA.ID, reqs[0].ID)
	})

	t.Run("主管看直接下属的", func(t *testing.T) {
		reqs, err := f.svc.ListVisibleTo(ctx, "sup-1")
		require.NoError(t, err)
		assert.Len(t, reqs, 2)
	})

	t.Run("其他主管看不到", func(t *testing.T) {
		reqs, err := f.svc.ListVisibleTo(ctx, "sup-2")
		require.NoError(t, err)
		assert.Empty(t, reqs)
	})

	t.Run("thr 看当前处于其步骤的", func(t *testing.T) {
		reqs, err := f.svc.ListVisibleTo(ctx, "thr-1")
		require.NoError(t, err)
		require.Len(t, reqs, 1)
		assert.Equal(t, reqA.ID, reqs[0].ID)
	})

	t.Run("cm 只看 approved 的", func(t *testing.T) {
		reqs, err := f.svc.ListVisibleTo(ctx, "cm-1")
		require.NoError(t, err)
		assert.Empty(t, reqs)
	})

	t.Run("员工不能查看他人申请详情", func(t *testing.T) {
		_, err := f.svc.Get(ctx, reqB.ID, "emp-1")
		var aerr *engine.AuthorizationError
		require.ErrorAs(t, err, &aerr)
	})
}

// TestRequestService_THRSeesPreviouslyHandled 测试 thr 可以看到曾经经手的申请
func TestRequestService_THRSeesPreviouslyHandled(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	req, err := f.svc.Submit(ctx, draft(1500, model.ModeLocal), "emp-1")
	require.NoError(t, err)
	_, err = f.svc.Decide(ctx, req.ID, "sup-1", model.DecisionApproved, "")
	require.NoError(t, err)
	_, err = f.svc.Decide(ctx, req.ID, "thr-1", model.DecisionApproved, "")
	require.NoError(t, err)

	// 申请已离开 thr 步骤,但 thr 仍能看到
	reqs, err := f.svc.ListVisibleTo(ctx, "thr-1")
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, req.ID, reqs[0].ID)

	got, err := f.svc.Get(ctx, req.ID, "thr-1")
	require.NoError(t, err)
	assert.Equal(t, model.StepCM, got.CurrentStep)
}

// conflictingRepo 始终返回版本冲突的仓储,用于验证重试耗尽路径
type conflictingRepo struct {
	repository.RequestRepository
	saves int
}

func (r *conflictingRepo) CompareAndSave(id string, expectedVersion time.Time, req *model.TrainingRequest) error {
	r.saves++
	return repository.ErrVersionConflict
}

// TestRequestService_StateConflictAfterRetries 测试乐观并发重试耗尽后返回状态冲突错误
func TestRequestService_StateConflictAfterRetries(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	req, err := f.svc.Submit(ctx, draft(1500, model.ModeLocal), "emp-1")
	require.NoError(t, err)

	employeeRepo := repository.NewEmployeeRepository(f.db)
	repo := &conflictingRepo{RequestRepository: repository.NewRequestRepository(f.db)}
	svc := service.NewRequestService(
		engine.NewEngine(),
		repo,
		directory.New(employeeRepo),
		nil,
		nil,
		nil,
	)

	_, err = svc.Decide(ctx, req.ID, "sup-1", model.DecisionApproved, "")
	var cerr *engine.StateConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, req.ID, cerr.RequestID)
	assert.Equal(t, 3, repo.saves)

	// 冲突期间不会写入任何变更
	stored, err := f.svc.Get(ctx, req.ID, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, model.StepSupervisor, stored.CurrentStep)
	assert.Empty(t, stored.ApprovalChain)
}

// TestRequestService_StaleActorRetriesFreshSnapshot 测试重试时基于最新快照重新决策
// 一次冲突后第二次尝试应当成功
type onceConflictRepo struct {
	repository.RequestRepository
	conflicted bool
}

func (r *onceConflictRepo) CompareAndSave(id string, expectedVersion time.Time, req *model.TrainingRequest) error {
	if !r.conflicted {
		r.conflicted = true
		return repository.ErrVersionConflict
	}
	return r.RequestRepository.CompareAndSave(id, expectedVersion, req)
}

func TestRequestService_RetriesAfterSingleConflict(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	req, err := f.svc.Submit(ctx, draft(1500, model.ModeLocal), "emp-1")
	require.NoError(t, err)

	employeeRepo := repository.NewEmployeeRepository(f.db)
	repo := &onceConflictRepo{RequestRepository: repository.NewRequestRepository(f.db)}
	svc := service.NewRequestService(
		engine.NewEngine(),
		repo,
		directory.New(employeeRepo),
		nil,
		nil,
		nil,
	)

	next, err := svc.Decide(ctx, req.ID, "sup-1", model.DecisionApproved, "")
	require.NoError(t, err)
	assert.Equal(t, model.StepTHR, next.CurrentStep)
	assert.True(t, repo.conflicted)
}
