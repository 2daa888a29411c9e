package repository_test

import (
	"testing"
	"time"

	"github.com/arslant84/l1a-test-sub000/internal/database"
	"github.com/arslant84/l1a-test-sub000/internal/model"
	"github.com/arslant84/l1a-test-sub000/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB 创建内存数据库并迁移
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

// newRequest 构造一个待审批的申请
func newRequest(id string, lastUpdated time.Time) *model.TrainingRequest {
	return &model.TrainingRequest{
		ID:            id,
		EmployeeID:    "emp-1",
		EmployeeName:  "Aisha Rahman",
		TrainingTitle: "Go 进阶",
		StartDate:     time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC),
		Cost:          800,
		Mode:          model.ModeLocal,
		Status:        model.StatusPending,
		CurrentStep:   model.StepSupervisor,
		ApprovalChain: model.ApprovalChain{},
		SubmittedDate: lastUpdated,
		LastUpdated:   lastUpdated,
	}
}

// TestRequestRepository_CreateAndLoad 测试创建与加载
func TestRequestRepository_CreateAndLoad(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRequestRepository(db)

	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(newRequest("req-1", now)))

	loaded, version, err := repo.Load("req-1")
	require.NoError(t, err)
	assert.Equal(t, "req-1", loaded.ID)
	assert.Equal(t, model.StatusPending, loaded.Status)
	assert.True(t, version.Equal(now))
	assert.NotNil(t, loaded.ApprovalChain)
}

// TestRequestRepository_Load_NotFound 测试加载不存在的申请
func TestRequestRepository_Load_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRequestRepository(db)

	_, _, err := repo.Load("missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

// TestRequestRepository_CompareAndSave 测试版本匹配时保存成功
func TestRequestRepository_CompareAndSave(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRequestRepository(db)

	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(newRequest("req-1", now)))

	loaded, version, err := repo.Load("req-1")
	require.NoError(t, err)

	next := loaded.Clone()
	next.CurrentStep = model.StepTHR
	next.LastUpdated = now.Add(time.Second)
	next.ApprovalChain = append(next.ApprovalChain, model.ApprovalAction{
		StepRole: model.StepSupervisor,
		Decision: model.DecisionApproved,
		UserID:   "sup-1",
		UserName: "Daniel Okafor",
		Date:     next.LastUpdated,
	})

	require.NoError(t, repo.CompareAndSave("req-1", version, next))

	reloaded, newVersion, err := repo.Load("req-1")
	require.NoError(t, err)
	assert.Equal(t, model.StepTHR, reloaded.CurrentStep)
	assert.True(t, newVersion.Equal(next.LastUpdated))
	require.Len(t, reloaded.ApprovalChain, 1)
	assert.Equal(t, "sup-1", reloaded.ApprovalChain[0].UserID)
}

// TestRequestRepository_CompareAndSave_Conflict 测试过期版本被拒绝
// 两个操作者基于同一快照提交,后者必须得到版本冲突而不是覆盖前者
func TestRequestRepository_CompareAndSave_Conflict(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRequestRepository(db)

	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(newRequest("req-1", now)))

	_, version, err := repo.Load("req-1")
	require.NoError(t, err)

	first := newRequest("req-1", now.Add(time.Second))
	first.CurrentStep = model.StepTHR
	require.NoError(t, repo.CompareAndSave("req-1", version, first))

	// 第二个操作者仍持有旧版本令牌
	second := newRequest("req-1", now.Add(2*time.Second))
	second.Status = model.StatusRejected
	second.CurrentStep = model.StepCompleted
	err = repo.CompareAndSave("req-1", version, second)
	assert.ErrorIs(t, err, repository.ErrVersionConflict)

	// 存储中保留的是第一个操作者的写入
	reloaded, _, err := repo.Load("req-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, reloaded.Status)
	assert.Equal(t, model.StepTHR, reloaded.CurrentStep)
}

// TestRequestRepository_FindByFilter 测试过滤查询
func TestRequestRepository_FindByFilter(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRequestRepository(db)

	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	mine := newRequest("req-1", base)
	require.NoError(t, repo.Create(mine))

	other := newRequest("req-2", base.Add(time.Hour))
	other.EmployeeID = "emp-2"
	other.CurrentStep = model.StepTHR
	require.NoError(t, repo.Create(other))

	done := newRequest("req-3", base.Add(2*time.Hour))
	done.EmployeeID = "emp-3"
	done.Status = model.StatusApproved
	done.CurrentStep = model.StepCM
	done.ApprovalChain = model.ApprovalChain{
		{StepRole: model.StepSupervisor, Decision: model.DecisionApproved, UserID: "sup-1", Date: base},
		{StepRole: model.StepTHR, Decision: model.DecisionApproved, UserID: "thr-1", Date: base.Add(time.Minute)},
	}
	require.NoError(t, repo.Create(done))

	t.Run("按员工过滤", func(t *testing.T) {
		empID := "emp-1"
		reqs, err := repo.FindByFilter(&repository.RequestFilter{EmployeeID: &empID})
		require.NoError(t, err)
		require.Len(t, reqs, 1)
		assert.Equal(t, "req-1", reqs[0].ID)
	})

	t.Run("按员工集合过滤", func(t *testing.T) {
		reqs, err := repo.FindByFilter(&repository.RequestFilter{EmployeeIDs: []string{"emp-1", "emp-2"}})
		require.NoError(t, err)
		assert.Len(t, reqs, 2)
	})

	t.Run("按状态过滤", func(t *testing.T) {
		status := model.StatusApproved
		reqs, err := repo.FindByFilter(&repository.RequestFilter{Status: &status})
		require.NoError(t, err)
		require.Len(t, reqs, 1)
		assert.Equal(t, "req-3", reqs[0].ID)
	})

	t.Run("按经手步骤过滤", func(t *testing.T) {
		// thr 应当看到当前处于 thr 步骤的 req-2 和曾经经手的 req-3
		step := model.StepTHR
		reqs, err := repo.FindByFilter(&repository.RequestFilter{SeenAtStep: &step})
		require.NoError(t, err)
		require.Len(t, reqs, 2)
		ids := []string{reqs[0].ID, reqs[1].ID}
		assert.Contains(t, ids, "req-2")
		assert.Contains(t, ids, "req-3")
	})

	t.Run("结果按提交时间倒序", func(t *testing.T) {
		reqs, err := repo.FindByFilter(nil)
		require.NoError(t, err)
		require.Len(t, reqs, 3)
		assert.Equal(t, "req-3", reqs[0].ID)
		assert.Equal(t, "req-1", reqs[2].ID)
	})
}
