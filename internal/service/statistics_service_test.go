package service_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Phuduong999/annotation-platform-sub000/internal/model"
	"github.com/Phuduong999/annotation-platform-sub000/internal/repository"
	"github.com/Phuduong999/annotation-platform-sub000/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTaskStatisticsByStatus 按状态统计任务数量
func TestTaskStatisticsByStatus(t *testing.T) {
	db := setupTestDB(t)
	statsSvc := service.NewStatisticsService(db)
	assignSvc := service.NewAssignmentService(db, nil)
	createTasks(t, db, 3)

	_, err := assignSvc.FetchNext(context.Background(), "alice")
	require.NoError(t, err)

	stats, err := statsSvc.GetTaskStatisticsByStatus()
	require.NoError(t, err)

	byStatus := make(map[string]int64)
	for _, s := range stats {
		byStatus[s.Status] = s.Count
	}
	assert.Equal(t, int64(2), byStatus[model.StatusPending])
	assert.Equal(t, int64(1), byStatus[model.StatusAssigned])
}

// TestAnnotatorStatistics 按标注人统计完成量
func TestAnnotatorStatistics(t *testing.T) {
	db := setupTestDB(t)
	statsSvc := service.NewStatisticsService(db)
	assignSvc := service.NewAssignmentService(db, nil)
	lifecycleSvc := service.NewLifecycleService(db, nil, nil)
	createTasks(t, db, 2)

	for _, actor := range []string{"alice", "bob"} {
		task, err := assignSvc.FetchNext(context.Background(), actor)
		require.NoError(t, err)
		_, err = lifecycleSvc.Start(context.Background(), task.ID, actor)
		require.NoError(t, err)
		_, err = lifecycleSvc.Submit(context.Background(), task.ID, actor,
			json.RawMessage(`{"sentiment":"positive","category":"billing","quality":"high"}`), "")
		require.NoError(t, err)
	}

	stats, err := statsSvc.GetAnnotatorStatistics()
	require.NoError(t, err)
	require.Len(t, stats, 2)

	byActor := make(map[string]int64)
	for _, s := range stats {
		byActor[s.Annotator] = s.CompletedCount
	}
	assert.Equal(t, int64(1), byActor["alice"])
	assert.Equal(t, int64(1), byActor["bob"])
}

// TestThroughputStatistics 整体吞吐统计
func TestThroughputStatistics(t *testing.T) {
	db := setupTestDB(t)
	statsSvc := service.NewStatisticsService(db)
	assignSvc := service.NewAssignmentService(db, nil)
	lifecycleSvc := service.NewLifecycleService(db, nil, nil)
	createTasks(t, db, 4)

	task, err := assignSvc.FetchNext(context.Background(), "alice")
	require.NoError(t, err)
	_, err = lifecycleSvc.Start(context.Background(), task.ID, "alice")
	require.NoError(t, err)
	_, err = lifecycleSvc.Submit(context.Background(), task.ID, "alice",
		json.RawMessage(`{"sentiment":"positive","category":"billing","quality":"high"}`), "")
	require.NoError(t, err)

	skipTask, err := assignSvc.FetchNext(context.Background(), "bob")
	require.NoError(t, err)
	_, err = lifecycleSvc.Skip(context.Background(), skipTask.ID, "bob", "unclear")
	require.NoError(t, err)

	stats, err := statsSvc.GetThroughputStatistics()
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalTasks)
	assert.Equal(t, int64(1), stats.CompletedTasks)
	assert.Equal(t, int64(1), stats.SkippedEvents)
	assert.InDelta(t, 0.25, stats.CompletionRate, 1e-9)
	assert.GreaterOrEqual(t, stats.AvgDurationMS, float64(0))
}

// TestAuditLogRecordsContext 审计日志记录请求上下文
func TestAuditLogRecordsContext(t *testing.T) {
	db := setupTestDB(t)
	auditSvc := service.NewAuditLogService(repository.NewAuditLogRepository(db))

	ctx := context.WithValue(context.Background(), service.ContextKeyRequestID, "req-abc")
	ctx = context.WithValue(ctx, service.ContextKeyClientIP, "10.0.0.1")
	require.NoError(t, auditSvc.RecordAction(ctx, "alice", "submit", "task-1", `{"annotation_id":"a1"}`))

	logs, err := auditSvc.GetByTask("task-1")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "alice", logs[0].Actor)
	assert.Equal(t, "submit", logs[0].Action)
	assert.Equal(t, "req-abc", logs[0].RequestID)
	assert.Equal(t, "10.0.0.1", logs[0].IP)

	byActor, err := auditSvc.GetByActor("alice", 10)
	require.NoError(t, err)
	assert.Len(t, byActor, 1)
}
